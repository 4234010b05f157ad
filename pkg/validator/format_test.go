package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/guihenriquebr/sefra/pkg/domain"
	"github.com/guihenriquebr/sefra/pkg/validator"
)

func TestFormatPhone(t *testing.T) {
	tests := map[string]string{
		"11987654321":     "(11) 98765-4321",
		"1134567890":      "(11) 3456-7890",
		"(11) 98765-4321": "(11) 98765-4321",
		"11 3456 7890":    "(11) 3456-7890",
		"119":             "119",
		"":                "",
		"119876543210":    "119876543210",
	}
	for raw, want := range tests {
		assert.Equal(t, want, validator.FormatPhone(raw), "raw=%q", raw)
	}
}

func TestFormatPhone_Live(t *testing.T) {
	// Formatting is applied on every keystroke; re-formatting formatted output is stable.
	typed := ""
	for _, r := range "11987654321" {
		typed = validator.FormatPhone(typed + string(r))
	}
	assert.Equal(t, "(11) 98765-4321", typed)
}

func TestFormatCurrency(t *testing.T) {
	tests := map[string]string{
		"50000":      "50.000",
		"1250000":    "1.250.000",
		"999":        "999",
		"1000":       "1.000",
		"R$ 300.000": "300.000",
		"000":        "0",
		"":           "",
		"abc":        "",
	}
	for raw, want := range tests {
		assert.Equal(t, want, validator.FormatCurrency(raw), "raw=%q", raw)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "(11) 3456-7890", validator.Normalize(domain.Field{Kind: domain.KindTel}, " 1134567890 "))
	assert.Equal(t, "150.000", validator.Normalize(domain.Field{Kind: domain.KindCurrency}, "150000"))
	assert.Equal(t, "maria@example.com", validator.Normalize(domain.Field{Kind: domain.KindEmail}, " Maria@Example.com"))
	assert.Equal(t, "São Paulo", validator.Normalize(domain.Field{Kind: domain.KindText}, " São Paulo "))
}

func TestParseAmount(t *testing.T) {
	n, ok := validator.ParseAmount("R$ 1.250.000")
	assert.True(t, ok)
	assert.Equal(t, int64(1250000), n)

	_, ok = validator.ParseAmount("R$")
	assert.False(t, ok)
}
