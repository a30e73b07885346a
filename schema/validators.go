package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"unicode/utf8"
)

// All returns a Validator running fns in order and reporting the first failure.
func All(fns ...Validator) Validator {
	return func(v any) string {
		for _, fn := range fns {
			if msg := fn(v); msg != "" {
				return msg
			}
		}
		return ""
	}
}

// MinLength rejects strings shorter than n runes. msg overrides the
// default message when non-empty.
func MinLength(n int, msg string) Validator {
	return func(v any) string {
		s, ok := v.(string)
		if !ok {
			return ""
		}
		if l := utf8.RuneCountInString(s); l < n {
			if msg != "" {
				return msg
			}
			return fmt.Sprintf("string length %d is less than minLength %d", l, n)
		}
		return ""
	}
}

// MaxLength rejects strings longer than n runes.
func MaxLength(n int, msg string) Validator {
	return func(v any) string {
		s, ok := v.(string)
		if !ok {
			return ""
		}
		if l := utf8.RuneCountInString(s); l > n {
			if msg != "" {
				return msg
			}
			return fmt.Sprintf("string length %d is greater than maxLength %d", l, n)
		}
		return ""
	}
}

// Match rejects strings not matching re.
func Match(re *regexp.Regexp, msg string) Validator {
	return func(v any) string {
		s, ok := v.(string)
		if !ok {
			return ""
		}
		if !re.MatchString(s) {
			if msg != "" {
				return msg
			}
			return fmt.Sprintf("%q does not match %s", s, re)
		}
		return ""
	}
}

// Minimum rejects numbers below min.
func Minimum(min float64) Validator {
	return func(v any) string {
		n, ok := toFloat(v)
		if !ok {
			return ""
		}
		if n < min {
			return fmt.Sprintf("%v is less than minimum %v", n, min)
		}
		return ""
	}
}

// Maximum rejects numbers above max.
func Maximum(max float64) Validator {
	return func(v any) string {
		n, ok := toFloat(v)
		if !ok {
			return ""
		}
		if n > max {
			return fmt.Sprintf("%v is greater than maximum %v", n, max)
		}
		return ""
	}
}

// OneOf rejects values not equal to one of allowed.
func OneOf(allowed ...any) Validator {
	return func(v any) string {
		f, isNum := toFloat(v)
		for _, a := range allowed {
			if isNum {
				if af, ok := toFloat(a); ok && af == f {
					return ""
				}
				continue
			}
			if reflect.DeepEqual(a, v) {
				return ""
			}
		}
		return fmt.Sprintf("value not in enum %v", allowed)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
