package carrier

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexString(t *testing.T) {
	var v struct {
		ID   FlexString `json:"id"`
		Days FlexString `json:"days"`
		Nil  FlexString `json:"nil"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"id": 12345, "days": " 3-4 days ", "nil": null}`), &v))
	assert.Equal(t, "12345", v.ID.String())
	assert.Equal(t, 3, v.Days.Int())
	assert.Equal(t, "", v.Nil.String())
	assert.Equal(t, 0, FlexString("n/a").Int())
}

func TestUnitConversions(t *testing.T) {
	assert.Equal(t, int64(500), Grams(decimal.RequireFromString("0.5")))
	assert.Equal(t, int64(1235), Grams(decimal.RequireFromString("1.2341")))
	assert.Equal(t, 12.35, Float(decimal.RequireFromString("12.345")))
}

func TestParseTime(t *testing.T) {
	got, ok := ParseTime("2026-10-18 14:05:00")
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 10, 18, 14, 5, 0, 0, time.UTC), got)

	_, ok = ParseTime("18 Oct 2026 14:05")
	assert.True(t, ok)
	_, ok = ParseTime("yesterday")
	assert.False(t, ok)
}
