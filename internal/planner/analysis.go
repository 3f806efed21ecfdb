package planner

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"financial-planner/internal/domain"
)

// SavingsPoint is the projected balance at the start of the year the user
// turns Age.
type SavingsPoint struct {
	Age     int     `json:"age"`
	Savings float64 `json:"savings"`
}

// CollegeCost compares today's four-year cost with the inflated cost at the
// child's college start.
type CollegeCost struct {
	Child     string  `json:"child"`
	Current   float64 `json:"current"`
	Projected float64 `json:"projected"`
}

type MonthlyGoal struct {
	Goal   string  `json:"goal"`
	Amount float64 `json:"amount"`
}

type Analysis struct {
	Level           Risk     `json:"level"`
	Summary         string   `json:"summary"`
	Risks           []string `json:"risks"`
	Recommendations []string `json:"recommendations"`
}

// Report is the financial health assessment behind /calculate. Education
// and Monthly are empty when there are no children.
type Report struct {
	Retirement []SavingsPoint `json:"retirement"`
	Education  []CollegeCost  `json:"education"`
	Monthly    []MonthlyGoal  `json:"monthly"`
	Analysis   Analysis       `json:"analysis"`
}

// Analyze projects s and assesses its risks.
func Analyze(s domain.FormSnapshot) (Report, error) {
	p, err := Project(s)
	if err != nil {
		return Report{}, err
	}

	r := Report{
		Retirement: savingsSeries(p),
		Education:  []CollegeCost{},
		Monthly:    []MonthlyGoal{},
	}
	if len(p.Children) > 0 {
		r.Monthly = append(r.Monthly, MonthlyGoal{Goal: "Retirement", Amount: p.MonthlyRetirementSavings})
		for i, c := range p.Children {
			r.Education = append(r.Education, CollegeCost{
				Child:     fmt.Sprintf("Child %d", i+1),
				Current:   AnnualCollegeCost * CollegeYears,
				Projected: c.TotalCost,
			})
			r.Monthly = append(r.Monthly, MonthlyGoal{
				Goal:   fmt.Sprintf("Child %d Education", i+1),
				Amount: c.MonthlySavingsNeeded,
			})
		}
	}
	r.Analysis = analyze(p)
	return r, nil
}

// savingsSeries has one point per age from p.Age through p.RetirementAge;
// the last point equals p.FinalSavings.
func savingsSeries(p Projection) []SavingsPoint {
	series := []SavingsPoint{}
	balance := p.CurrentSavings
	for age := p.Age; age <= p.RetirementAge; age++ {
		series = append(series, SavingsPoint{Age: age, Savings: balance})
		balance = balance*(1+AnnualReturnRate) + p.AnnualSavings
	}
	return series
}

func analyze(p Projection) Analysis {
	a := Analysis{Risks: []string{}, Recommendations: []string{}}

	monthlyIncome := p.AnnualIncome / 12
	totalMonthly := p.MonthlyRetirementSavings
	var educationRisks []string
	for _, c := range p.Children {
		totalMonthly += c.MonthlySavingsNeeded
		if c.MonthlySavingsNeeded > p.AnnualIncome/24 {
			educationRisks = append(educationRisks, fmt.Sprintf(
				"Child age %d: High monthly savings requirement (%s)", c.Age, FormatMoney(c.MonthlySavingsNeeded)))
		}
	}

	if p.YearsCovered < 20 {
		a.Risks = append(a.Risks, fmt.Sprintf("Your retirement savings may only last %.1f years after retirement", p.YearsCovered))
	}
	if totalMonthly > monthlyIncome*0.5 {
		a.Risks = append(a.Risks, "Total monthly savings requirement exceeds 50% of your monthly income")
	}
	a.Risks = append(a.Risks, educationRisks...)

	if p.YearsCovered < 20 {
		a.Recommendations = append(a.Recommendations,
			fmt.Sprintf("Consider increasing your retirement savings rate above the current %.1f%%", SavingsRate*100))
	}
	if p.CurrentSavings < p.AnnualIncome {
		a.Recommendations = append(a.Recommendations, "Build an emergency fund of at least 6 months of expenses")
	}
	if len(educationRisks) > 0 {
		a.Recommendations = append(a.Recommendations,
			"Consider starting a 529 college savings plan for each child",
			"Research scholarship and financial aid opportunities",
		)
	}

	switch n := len(a.Risks); {
	case n == 0:
		a.Level = RiskLow
	case n <= 2:
		a.Level = RiskModerate
	default:
		a.Level = RiskHigh
	}

	lines := []string{
		fmt.Sprintf("Financial Health Assessment: %s RISK", a.Level),
		"",
		"Retirement Outlook:",
		fmt.Sprintf("- You're saving %s annually for retirement", FormatMoney(p.AnnualSavings)),
		fmt.Sprintf("- Projected savings at retirement: %s", FormatMoney(p.FinalSavings)),
		fmt.Sprintf("- This could cover approximately %.1f years of retirement", p.YearsCovered),
		"",
		"Monthly Savings Requirements:",
		fmt.Sprintf("- Total monthly savings needed: %s", FormatMoney(totalMonthly)),
		fmt.Sprintf("- This represents %.1f%% of your monthly income", totalMonthly/monthlyIncome*100),
	}
	if len(p.Children) > 0 {
		lines = append(lines,
			"",
			"Education Planning:",
			fmt.Sprintf("- You have %d children to plan for", len(p.Children)),
			"- Total education costs will be a significant portion of your savings goals",
		)
	}
	a.Summary = strings.Join(lines, "\n")
	return a
}

// FormatMoney renders v as $1,234.56.
func FormatMoney(v float64) string {
	if v < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -v)
	}
	return "$" + humanize.FormatFloat("#,###.##", v)
}
