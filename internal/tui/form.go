package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"

	"financial-planner/internal/widget"
)

type formField struct {
	label string
	id    string
	input textinput.Model
}

// Child rows are entered as two comma-separated lists; the i-th age pairs
// with the i-th goal. A goal therefore can't contain a comma.
const (
	fieldChildAges  = "child_ages"
	fieldChildGoals = "child_goals"
)

func newFormFields() []formField {
	specs := []struct {
		label, id, placeholder string
	}{
		{"Age", widget.FieldAge, "40"},
		{"Current savings", widget.FieldCurrentSavings, "10000"},
		{"Annual income", widget.FieldAnnualIncome, "80000"},
		{"Retirement age", widget.FieldRetirementAge, "65"},
		{"Children's ages", fieldChildAges, "10, 7"},
		{"Education goals", fieldChildGoals, "college, trade school"},
	}
	fields := make([]formField, 0, len(specs))
	for _, s := range specs {
		in := textinput.New()
		in.Placeholder = s.placeholder
		in.Prompt = ""
		in.Width = 32
		fields = append(fields, formField{label: s.label, id: s.id, input: in})
	}
	return fields
}

// formSubmit is the SubmitEvent produced by Ctrl+S on the form screen.
type formSubmit struct {
	values    map[string]string
	prevented bool
}

func newFormSubmit(fields []formField) *formSubmit {
	values := make(map[string]string, len(fields))
	for _, f := range fields {
		values[f.id] = f.input.Value()
	}
	return &formSubmit{values: values}
}

func (s *formSubmit) Value(id string) string {
	return s.values[id]
}

func (s *formSubmit) Values(class string) []string {
	switch class {
	case widget.ClassChildAge:
		return splitList(s.values[fieldChildAges])
	case widget.ClassChildGoal:
		return splitList(s.values[fieldChildGoals])
	default:
		return nil
	}
}

func (s *formSubmit) PreventDefault() {
	s.prevented = true
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
