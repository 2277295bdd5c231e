package carrier

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// FlexString decodes a JSON string or number into a string. Carriers are
// inconsistent about quoting ids and day counts.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	*f = FlexString(string(b))
	return nil
}

func (f FlexString) String() string { return string(f) }

// Int parses the leading integer, so "3-4 days" yields 3.
func (f FlexString) Int() int {
	s := strings.TrimSpace(string(f))
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}

// Grams converts kilograms to whole grams, rounding up.
func Grams(kg decimal.Decimal) int64 {
	return kg.Mul(decimal.NewFromInt(1000)).Ceil().IntPart()
}

// Float is the wire representation of a decimal for carriers that want JSON numbers.
func Float(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// ParseTime tries the timestamp layouts the carriers are known to emit.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.000",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"02 Jan 2006 15:04",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
