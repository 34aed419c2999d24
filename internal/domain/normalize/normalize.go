// Package normalize coerces loosely typed client payload fields into the
// numeric values the relay broadcasts.
//
// Payloads arrive as map[string]any from either the JSON or the CBOR codec,
// so numbers may be float64, int64, uint64 or numeric strings. Parsing is
// lenient: a string contributes its longest numeric prefix ("12px" is 12),
// which keeps older controller builds that send formatted strings working.
package normalize

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// Present reports whether v counts as supplied: not missing, not null, not
// false, not zero, not NaN and not the empty string.
func Present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	default:
		if f, ok := number(v); ok {
			return f != 0 && !math.IsNaN(f)
		}
		return true
	}
}

// Field returns m[key], tolerating a nil map.
func Field(m map[string]any, key string) any {
	if m == nil {
		return nil
	}
	return m[key]
}

// Float parses v as a float. Missing, unparsable, zero and non-finite values
// yield def.
func Float(v any, def float64) float64 {
	f, ok := parseFloat(v)
	if !ok || f == 0 || math.IsInf(f, 0) {
		return def
	}
	return f
}

// Int parses the leading integer of v. Missing, unparsable and zero values
// yield def. Fractions are truncated toward zero.
func Int(v any, def int) int {
	n, ok := parseInt(v)
	if !ok || n == 0 {
		return def
	}
	return n
}

// Clamp bounds n to [lo, hi].
func Clamp(n, lo, hi int) int {
	return min(max(n, lo), hi)
}

// String returns v when it is a non-empty string.
func String(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok && s != ""
}

// Instant interprets a client timestamp: unix milliseconds as a number or
// numeric string, or an RFC 3339 string.
func Instant(v any) (time.Time, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t, true
		}
		ms, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return time.Time{}, false
		}
		return fromMillis(ms)
	}
	if f, ok := number(v); ok {
		return fromMillis(f)
	}
	return time.Time{}, false
}

// maxMillis keeps conversions inside the int64 nanosecond range.
const maxMillis = math.MaxInt64 / int64(time.Millisecond)

func fromMillis(ms float64) (time.Time, bool) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > float64(maxMillis) {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)), true
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	}
	return 0, false
}

func parseFloat(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		return floatPrefix(s)
	}
	f, ok := number(v)
	if !ok || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func parseInt(v any) (int, bool) {
	if s, ok := v.(string); ok {
		return intPrefix(s)
	}
	f, ok := number(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(math.Max(math.Min(math.Trunc(f), math.MaxInt32), math.MinInt32)), true
}

func intPrefix(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := signLen(s)
	digits := end
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:end], 10, 32)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return int(n), true
}

func floatPrefix(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	i := signLen(s)
	if strings.HasPrefix(s[i:], "Infinity") {
		if s[0] == '-' {
			return math.Inf(-1), true
		}
		return math.Inf(1), true
	}

	mantissa := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		mantissa++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			mantissa++
		}
	}
	if mantissa == 0 {
		return 0, false
	}
	end := i
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		j += signLen(s[j:])
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			end = k
		}
	}

	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		// Out of range values saturate.
		if errors.Is(err, strconv.ErrRange) {
			return f, true
		}
		return 0, false
	}
	return f, true
}

func signLen(s string) int {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		return 1
	}
	return 0
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
