package domain

import (
	"fmt"
)

// FieldKind selects the format predicate applied to a field value.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindEmail    FieldKind = "email"
	KindTel      FieldKind = "tel"
	KindCurrency FieldKind = "currency"
	KindChoice   FieldKind = "choice"
)

// Field describes a single input of a wizard step.
type Field struct {
	Name     string    `json:"name" yaml:"name"`
	Label    string    `json:"label,omitempty" yaml:"label"`
	Kind     FieldKind `json:"kind" yaml:"kind"`
	Required bool      `json:"required" yaml:"required"`
	// Options lists the accepted values of a choice field.
	Options []string `json:"options,omitempty" yaml:"options"`
}

// Step is one screen of the wizard.
type Step struct {
	Title  string  `json:"title" yaml:"title"`
	Fields []Field `json:"fields" yaml:"fields"`
}

// Required returns the required fields of the step, in declaration order.
func (s Step) Required() []Field {
	out := make([]Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}

// Form is the ordered list of input steps. The success screen is implicit
// and sits right after the last input step.
type Form struct {
	Name  string `json:"name" yaml:"name"`
	Steps []Step `json:"steps" yaml:"steps"`
}

// TotalSteps is the number of input steps (the success screen is not counted).
func (f Form) TotalSteps() int {
	return len(f.Steps)
}

// SuccessStep is the position of the terminal success screen.
func (f Form) SuccessStep() int {
	return len(f.Steps) + 1
}

// Step returns the step at the 1-based position n.
func (f Form) Step(n int) (Step, bool) {
	if n < 1 || n > len(f.Steps) {
		return Step{}, false
	}
	return f.Steps[n-1], true
}

// Check verifies the form is usable: at least one step, non-empty field
// names unique across the form, and options declared for choice fields.
func (f Form) Check() error {
	if len(f.Steps) == 0 {
		return fmt.Errorf("form %q has no steps", f.Name)
	}
	seen := make(map[string]int)
	for i, step := range f.Steps {
		for _, field := range step.Fields {
			if field.Name == "" {
				return fmt.Errorf("form %q step %d: field without name", f.Name, i+1)
			}
			if prev, dup := seen[field.Name]; dup {
				return fmt.Errorf("form %q: field %q declared in steps %d and %d", f.Name, field.Name, prev, i+1)
			}
			if field.Kind == KindChoice && len(field.Options) == 0 {
				return fmt.Errorf("form %q: choice field %q has no options", f.Name, field.Name)
			}
			seen[field.Name] = i + 1
		}
	}
	return nil
}

// DefaultForm is the consórcio simulator shipped with the landing page.
func DefaultForm() Form {
	return Form{
		Name: "consorcio_simulator",
		Steps: []Step{
			{
				Title: "Seus dados",
				Fields: []Field{
					{Name: FieldName, Label: "Nome completo", Kind: KindText, Required: true},
					{Name: FieldEmail, Label: "E-mail", Kind: KindEmail, Required: true},
					{Name: FieldPhone, Label: "Telefone", Kind: KindTel, Required: true},
				},
			},
			{
				Title: "Seu imóvel",
				Fields: []Field{
					{Name: FieldPropertyValue, Label: "Valor do imóvel", Kind: KindCurrency, Required: true},
					{Name: FieldTerm, Label: "Prazo (meses)", Kind: KindChoice, Required: true, Options: []string{"120", "150", "180", "200"}},
				},
			},
			{
				Title: "Finalize",
				Fields: []Field{
					{Name: FieldCity, Label: "Cidade", Kind: KindText, Required: true},
					{Name: FieldIncome, Label: "Renda mensal", Kind: KindText},
				},
			},
		},
	}
}
