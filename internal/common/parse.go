package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseUint64orHex converts the given uint64 string into the number.
// It can parse the string with 0x prefix as well.
func ParseUint64orHex(val *string) (uint64, error) {
	if val == nil {
		return 0, nil
	}

	str := *val
	base := 10

	if strings.HasPrefix(str, "0x") {
		str = str[2:]
		base = 16
	}

	return strconv.ParseUint(str, base, 64)
}

func ToLowerWithTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MonthKeyLayout is the time layout of a transfer log partition key.
const MonthKeyLayout = "200601"

// MonthKey returns the UTC calendar month of ts as YYYYMM.
func MonthKey(ts time.Time) string {
	return ts.UTC().Format(MonthKeyLayout)
}

// ParseMonthKey parses a YYYYMM partition key into the first instant of that month (UTC).
func ParseMonthKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(MonthKeyLayout, key, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month key %q: %w", key, err)
	}

	return t, nil
}
