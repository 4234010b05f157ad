package validator_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/guihenriquebr/sefra/pkg/domain"
	"github.com/guihenriquebr/sefra/pkg/validator"
)

var (
	nameField  = domain.Field{Name: domain.FieldName, Kind: domain.KindText, Required: true}
	emailField = domain.Field{Name: domain.FieldEmail, Kind: domain.KindEmail, Required: true}
	phoneField = domain.Field{Name: domain.FieldPhone, Kind: domain.KindTel, Required: true}
	valueField = domain.Field{Name: domain.FieldPropertyValue, Kind: domain.KindCurrency, Required: true}
	termField  = domain.Field{Name: domain.FieldTerm, Kind: domain.KindChoice, Required: true, Options: []string{"120", "180"}}
)

func TestValidate_RequiredEmpty(t *testing.T) {
	for _, f := range []domain.Field{nameField, emailField, phoneField, valueField, termField} {
		t.Run(string(f.Kind), func(t *testing.T) {
			for _, raw := range []string{"", "   "} {
				v := validator.Validate(f, raw)
				assert.False(t, v.Valid)
				assert.Equal(t, validator.MsgRequired, v.Message)
			}
		})
	}
}

func TestValidate_OptionalEmpty(t *testing.T) {
	optional := domain.Field{Name: domain.FieldIncome, Kind: domain.KindText}
	assert.True(t, validator.Validate(optional, "").Valid)

	optionalEmail := domain.Field{Name: "alt_email", Kind: domain.KindEmail}
	assert.True(t, validator.Validate(optionalEmail, "").Valid)
	assert.Equal(t, validator.MsgInvalidEmail, validator.Validate(optionalEmail, "nope").Message)
}

func TestValidate_Email(t *testing.T) {
	tests := []struct {
		raw   string
		valid bool
	}{
		{"maria@example.com", true},
		{"  joao.silva@sefra.com.br ", true},
		{"maria@example", false},
		{"maria example@x.com", false},
		{"@example.com", false},
		{"maria@@example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v := validator.Validate(emailField, tt.raw)
			assert.Equal(t, tt.valid, v.Valid)
			if !tt.valid {
				assert.Equal(t, validator.MsgInvalidEmail, v.Message)
			}
		})
	}
}

func TestValidate_Phone(t *testing.T) {
	tests := []struct {
		raw   string
		valid bool
	}{
		{"(11) 98765-4321", true},
		{"(11) 3456-7890", true},
		{"11987654321", true},
		{"1134567890", true},
		{"119876543", false},
		{"119876543210", false},
		{"(11) 9876-54321", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v := validator.Validate(phoneField, tt.raw)
			assert.Equal(t, tt.valid, v.Valid)
			if !tt.valid {
				assert.Equal(t, validator.MsgInvalidPhone, v.Message)
			}
		})
	}
}

func TestValidate_PropertyValueBounds(t *testing.T) {
	tests := []struct {
		raw     string
		valid   bool
		message string
	}{
		{"49999", false, validator.MsgMinimumValue},
		{"50000", true, ""},
		{"50.000", true, ""},
		{"R$ 1.250.000", true, ""},
		{"5000000", true, ""},
		{"5000001", false, validator.MsgMaximumValue},
		{"99999999999999999999999", false, validator.MsgMaximumValue},
		{"abc", false, validator.MsgMinimumValue},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v := validator.Validate(valueField, tt.raw)
			assert.Equal(t, tt.valid, v.Valid)
			assert.Equal(t, tt.message, v.Message)
		})
	}
}

func TestValidate_Choice(t *testing.T) {
	assert.True(t, validator.Validate(termField, "180").Valid)
	v := validator.Validate(termField, "240")
	assert.False(t, v.Valid)
	assert.Equal(t, validator.MsgInvalidChoice, v.Message)
}

func TestValidateStep(t *testing.T) {
	step := domain.Step{Fields: []domain.Field{nameField, emailField, phoneField}}

	got := validator.ValidateStep(step, map[string]string{
		domain.FieldName:  "Maria",
		domain.FieldEmail: "invalid",
	})
	want := map[string]string{
		domain.FieldEmail: validator.MsgInvalidEmail,
		domain.FieldPhone: validator.MsgRequired,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ValidateStep mismatch (-want +got):\n%s", diff)
	}

	assert.Empty(t, validator.ValidateStep(step, map[string]string{
		domain.FieldName:  "Maria",
		domain.FieldEmail: "maria@example.com",
		domain.FieldPhone: "11987654321",
	}))
}
