package http

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// DefaultMaxValueSize bounds a single submitted string value.
const DefaultMaxValueSize = 4096

var (
	ErrValueTooLarge = errors.New("value exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("value contains invalid UTF-8 sequences")
)

// SanitizeValue rejects oversized or malformed values, strips control
// characters other than newline, tab and carriage return, and removes any
// markup through policy.
func SanitizeValue(policy *bluemonday.Policy, value string) (string, error) {
	if len(value) > DefaultMaxValueSize {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrValueTooLarge, len(value), DefaultMaxValueSize)
	}
	if !utf8.ValidString(value) {
		return "", ErrInvalidUTF8
	}

	value = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !isSafeControl(r) {
			return -1
		}
		return r
	}, value)

	if strings.ContainsAny(value, "<>") {
		value = policy.Sanitize(value)
	}
	return value, nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}

// sanitizeFields cleans every value of a form map.
func sanitizeFields(policy *bluemonday.Policy, values map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for k, v := range values {
		clean, err := SanitizeValue(policy, v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = clean
	}
	return out, nil
}

// sanitizeJSON cleans every string inside a decoded JSON document.
func sanitizeJSON(policy *bluemonday.Policy, v any) (any, error) {
	switch v := v.(type) {
	case string:
		return SanitizeValue(policy, v)
	case map[string]any:
		for k, item := range v {
			clean, err := sanitizeJSON(policy, item)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			v[k] = clean
		}
		return v, nil
	case []any:
		for i, item := range v {
			clean, err := sanitizeJSON(policy, item)
			if err != nil {
				return nil, err
			}
			v[i] = clean
		}
		return v, nil
	default:
		return v, nil
	}
}
