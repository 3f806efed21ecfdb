package widget

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"financial-planner/internal/domain"
)

// Form field ids and repeated-element classes.
const (
	FieldAge            = "age"
	FieldCurrentSavings = "current_savings"
	FieldAnnualIncome   = "annual_income"
	FieldRetirementAge  = "retirement_age"

	ClassChildAge  = "child-age"
	ClassChildGoal = "child-goal"
)

var (
	intPrefix   = regexp.MustCompile(`^[+-]?[0-9]+`)
	hexPrefix   = regexp.MustCompile(`^[+-]?0[xX]`)
	hexDigits   = regexp.MustCompile(`^[0-9a-fA-F]+`)
	floatPrefix = regexp.MustCompile(`^[+-]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][+-]?[0-9]+)?`)
)

// CaptureSnapshot builds a fresh snapshot from the form. The i-th child age
// pairs with the i-th child goal; a missing goal is empty. Nothing is
// validated: unparsable numbers are left nil.
func CaptureSnapshot(f FormValues) *domain.FormSnapshot {
	ages := f.Values(ClassChildAge)
	goals := f.Values(ClassChildGoal)

	children := make([]domain.ChildEntry, 0, len(ages))
	for i, age := range ages {
		goal := ""
		if i < len(goals) {
			goal = goals[i]
		}
		children = append(children, domain.ChildEntry{
			Age:           ParseInt(age),
			EducationGoal: goal,
		})
	}

	return &domain.FormSnapshot{
		Age:            ParseInt(f.Value(FieldAge)),
		CurrentSavings: ParseFloat(f.Value(FieldCurrentSavings)),
		AnnualIncome:   ParseFloat(f.Value(FieldAnnualIncome)),
		RetirementAge:  ParseInt(f.Value(FieldRetirementAge)),
		Children:       children,
	}
}

// ParseInt reads the leading integer of s the way form inputs are read:
// leading whitespace is skipped, trailing garbage ignored, and a 0x prefix
// selects base 16. It returns nil when no digits lead the string.
func ParseInt(s string) *int {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)

	if p := hexPrefix.FindString(s); p != "" {
		digits := hexDigits.FindString(s[len(p):])
		if digits == "" {
			return nil
		}
		n, err := strconv.ParseInt(digits, 16, strconv.IntSize)
		if err != nil {
			return nil
		}
		v := int(n)
		if strings.HasPrefix(p, "-") {
			v = -v
		}
		return &v
	}

	m := intPrefix.FindString(s)
	if m == "" {
		return nil
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &v
}

// ParseFloat reads the leading decimal literal of s. Non-finite results are
// nil since they have no JSON encoding.
func ParseFloat(s string) *float64 {
	m := floatPrefix.FindString(strings.TrimLeftFunc(s, unicode.IsSpace))
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}
