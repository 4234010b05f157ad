package validator

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/guihenriquebr/sefra/pkg/domain"
)

// User-facing messages, in the language of the landing page.
const (
	MsgRequired      = "Este campo é obrigatório"
	MsgInvalidEmail  = "Digite um e-mail válido"
	MsgInvalidPhone  = "Digite um telefone válido"
	MsgMinimumValue  = "Valor mínimo: R$ 50.000"
	MsgMaximumValue  = "Valor máximo: R$ 5.000.000"
	MsgInvalidChoice = "Selecione uma opção válida"
)

// Property value bounds, in whole reais. Both are inclusive.
const (
	MinPropertyValue int64 = 50_000
	MaxPropertyValue int64 = 5_000_000
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\(\d{2}\) \d{4,5}-\d{4}$`)
)

// Verdict is the outcome of validating one field.
type Verdict struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

var ok = Verdict{Valid: true}

func fail(msg string) Verdict {
	return Verdict{Valid: false, Message: msg}
}

// Validate applies the rules for the field kind, first failure wins.
// Empty optional fields are always valid.
func Validate(field domain.Field, raw string) Verdict {
	value := strings.TrimSpace(raw)
	if value == "" {
		if field.Required {
			return fail(MsgRequired)
		}
		return ok
	}

	switch field.Kind {
	case domain.KindEmail:
		if !emailPattern.MatchString(value) {
			return fail(MsgInvalidEmail)
		}
	case domain.KindTel:
		if !phonePattern.MatchString(FormatPhone(value)) {
			return fail(MsgInvalidPhone)
		}
	case domain.KindCurrency:
		return validateAmount(value)
	case domain.KindChoice:
		if !slices.Contains(field.Options, value) {
			return fail(MsgInvalidChoice)
		}
	}
	return ok
}

func validateAmount(value string) Verdict {
	amount, parsed := ParseAmount(value)
	switch {
	case !parsed:
		// No digits at all reads as zero, which is below the minimum.
		return fail(MsgMinimumValue)
	case amount < 0:
		return fail(MsgMaximumValue)
	case amount < MinPropertyValue:
		return fail(MsgMinimumValue)
	case amount > MaxPropertyValue:
		return fail(MsgMaximumValue)
	}
	return ok
}

// ValidateStep validates every field of the step against values and returns
// the messages of the invalid ones. An empty map means the step may advance.
func ValidateStep(step domain.Step, values map[string]string) map[string]string {
	errs := make(map[string]string)
	for _, field := range step.Fields {
		if v := Validate(field, values[field.Name]); !v.Valid {
			errs[field.Name] = v.Message
		}
	}
	return errs
}

// ParseAmount reads the digits of value as whole currency units.
// The second result is false when value holds no digits. Amounts that overflow
// int64 are reported as -1.
func ParseAmount(value string) (int64, bool) {
	digits := Digits(value)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return -1, true
	}
	return n, true
}
