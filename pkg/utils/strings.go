package utils

import (
	"strconv"
	"strings"
)

// ParseInt parses s as a base-10 int, returning defaultVal when s is blank
// or malformed.
func ParseInt(s string, defaultVal int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return val
}
