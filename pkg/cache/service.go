package cache

import "time"

// CacheService is the process-local key/value store behind quotes and
// carrier credentials.
type CacheService interface {
	// Get returns the value and true, or nil and false when the key is
	// missing or expired.
	Get(key string) (interface{}, bool)

	// Set stores value for duration. A non-positive duration removes the key.
	Set(key string, value interface{}, duration time.Duration)

	Delete(key string)
}
