package validator

import (
	"strings"
	"unicode"

	"github.com/guihenriquebr/sefra/pkg/domain"
)

// Digits strips every non-digit character.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatPhone renders typed digits as a Brazilian phone number.
// 11 digits become (DD) DDDDD-DDDD and 10 digits (DD) DDDD-DDDD; anything
// else, longer input included, is returned as bare digits without a cap so
// partial input keeps growing as the user types.
func FormatPhone(raw string) string {
	d := Digits(raw)
	switch len(d) {
	case 11:
		return "(" + d[:2] + ") " + d[2:7] + "-" + d[7:]
	case 10:
		return "(" + d[:2] + ") " + d[2:6] + "-" + d[6:]
	}
	return d
}

// FormatCurrency renders typed digits with pt-BR thousands separators
// (1.234.567). Leading zeros are dropped. Input without digits yields "".
func FormatCurrency(raw string) string {
	d := strings.TrimLeft(Digits(raw), "0")
	if d == "" {
		if strings.ContainsFunc(raw, unicode.IsDigit) {
			return "0"
		}
		return ""
	}

	var b strings.Builder
	lead := len(d) % 3
	if lead > 0 {
		b.WriteString(d[:lead])
	}
	for i := lead; i < len(d); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(d[i : i+3])
	}
	return b.String()
}

// Normalize applies the live formatting of the field kind to a typed value.
func Normalize(field domain.Field, raw string) string {
	value := strings.TrimSpace(raw)
	switch field.Kind {
	case domain.KindTel:
		return FormatPhone(value)
	case domain.KindCurrency:
		return FormatCurrency(value)
	case domain.KindEmail:
		return strings.ToLower(value)
	}
	return value
}
