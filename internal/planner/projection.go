// Package planner projects retirement and education savings from a form
// snapshot.
package planner

import (
	"errors"
	"math"

	"financial-planner/internal/domain"
)

const (
	AnnualReturnRate       = 0.06
	SavingsRate            = 0.15
	CollegeStartAge        = 18
	AnnualCollegeCost      = 35000.0
	CollegeYears           = 4
	CollegeInflationRate   = 0.05
	RetirementSpendingRate = 0.8
)

var (
	ErrIncompleteData = errors.New("planner: snapshot is missing numeric values")
	ErrNoIncome       = errors.New("planner: annual income must not be zero")
)

// Risk is a coarse rating used in the advisor context.
type Risk string

const (
	RiskLow      Risk = "LOW"
	RiskModerate Risk = "MODERATE"
	RiskHigh     Risk = "HIGH"
)

// ChildCost is the projected college cost for one child.
type ChildCost struct {
	Age                  int
	EducationGoal        string
	YearsToCollege       int
	TotalCost            float64
	MonthlySavingsNeeded float64
}

type Projection struct {
	Age                      int
	RetirementAge            int
	CurrentSavings           float64
	AnnualIncome             float64
	YearsToRetirement        int
	AnnualSavings            float64
	MonthlyRetirementSavings float64
	FinalSavings             float64
	MonthlyRetirementExpense float64
	YearsCovered             float64
	Children                 []ChildCost
	RetirementRisk           Risk
	SavingsBurden            Risk
}

// Project runs the savings model over s. A negative horizon leaves savings
// uncompounded.
func Project(s domain.FormSnapshot) (Projection, error) {
	if s.Age == nil || s.RetirementAge == nil || s.CurrentSavings == nil || s.AnnualIncome == nil {
		return Projection{}, ErrIncompleteData
	}
	income := *s.AnnualIncome
	if income == 0 {
		return Projection{}, ErrNoIncome
	}

	p := Projection{
		Age:               *s.Age,
		RetirementAge:     *s.RetirementAge,
		CurrentSavings:    *s.CurrentSavings,
		AnnualIncome:      income,
		YearsToRetirement: *s.RetirementAge - *s.Age,
		AnnualSavings:     income * SavingsRate,
	}
	p.MonthlyRetirementSavings = p.AnnualSavings / 12

	p.FinalSavings = p.CurrentSavings
	for i := 0; i < p.YearsToRetirement; i++ {
		p.FinalSavings = p.FinalSavings*(1+AnnualReturnRate) + p.AnnualSavings
	}

	p.Children = make([]ChildCost, 0, len(s.Children))
	for _, child := range s.Children {
		if child.Age == nil {
			return Projection{}, ErrIncompleteData
		}
		p.Children = append(p.Children, childCost(*child.Age, child.EducationGoal))
	}

	p.MonthlyRetirementExpense = income * RetirementSpendingRate / 12
	p.YearsCovered = p.FinalSavings / (p.MonthlyRetirementExpense * 12)

	switch {
	case p.YearsCovered < 20:
		p.RetirementRisk = RiskHigh
	case p.YearsCovered < 25:
		p.RetirementRisk = RiskModerate
	default:
		p.RetirementRisk = RiskLow
	}
	switch {
	case p.MonthlyRetirementSavings > income/24:
		p.SavingsBurden = RiskHigh
	case p.MonthlyRetirementSavings > income/36:
		p.SavingsBurden = RiskModerate
	default:
		p.SavingsBurden = RiskLow
	}
	return p, nil
}

func childCost(age int, goal string) ChildCost {
	years := CollegeStartAge - age
	cost := AnnualCollegeCost * CollegeYears * math.Pow(1+CollegeInflationRate, float64(years))
	monthly := cost / 12
	if years > 0 {
		monthly = cost / float64(years*12)
	}
	return ChildCost{
		Age:                  age,
		EducationGoal:        goal,
		YearsToCollege:       years,
		TotalCost:            cost,
		MonthlySavingsNeeded: monthly,
	}
}
