package domain

// FormSnapshot is the financial-planning form as captured at its last
// submission. Numeric fields are nil when the form value was not a number;
// they encode as JSON null.
type FormSnapshot struct {
	Age            *int         `json:"age"`
	CurrentSavings *float64     `json:"current_savings"`
	AnnualIncome   *float64     `json:"annual_income"`
	RetirementAge  *int         `json:"retirement_age"`
	Children       []ChildEntry `json:"children"`
}

// ChildEntry is one child row of the form.
type ChildEntry struct {
	Age           *int   `json:"age"`
	EducationGoal string `json:"education_goal"`
}

// Clone returns a deep copy so callers can't mutate a stored snapshot.
func (s *FormSnapshot) Clone() *FormSnapshot {
	if s == nil {
		return nil
	}
	out := &FormSnapshot{
		Age:            cloneInt(s.Age),
		CurrentSavings: cloneFloat(s.CurrentSavings),
		AnnualIncome:   cloneFloat(s.AnnualIncome),
		RetirementAge:  cloneInt(s.RetirementAge),
		Children:       make([]ChildEntry, len(s.Children)),
	}
	for i, c := range s.Children {
		out.Children[i] = ChildEntry{Age: cloneInt(c.Age), EducationGoal: c.EducationGoal}
	}
	return out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// IsEmpty reports whether s carries no form values at all.
func (s *FormSnapshot) IsEmpty() bool {
	return s == nil || (s.Age == nil && s.CurrentSavings == nil && s.AnnualIncome == nil &&
		s.RetirementAge == nil && len(s.Children) == 0)
}
