package planner

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"financial-planner/internal/domain"
)

func compoundedSavings(current, income float64, years int) float64 {
	final := current
	for i := 0; i < years; i++ {
		final = final*(1+AnnualReturnRate) + income*SavingsRate
	}
	return final
}

func TestAnalyze_RetirementSeries(t *testing.T) {
	cases := []struct {
		name            string
		age, retire     int
		savings, income float64
	}{
		{name: "normal case", age: 30, retire: 65, savings: 10000, income: 80000},
		{name: "zero current savings", age: 25, retire: 65, savings: 0, income: 60000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := Analyze(snapshot(tc.age, tc.retire, tc.savings, tc.income))
			require.NoError(t, err)

			years := tc.retire - tc.age
			require.Len(t, r.Retirement, years+1)
			require.Equal(t, SavingsPoint{Age: tc.age, Savings: tc.savings}, r.Retirement[0])

			last := r.Retirement[len(r.Retirement)-1]
			require.Equal(t, tc.retire, last.Age)
			require.InDelta(t, compoundedSavings(tc.savings, tc.income, years), last.Savings, 1e-2)
		})
	}
}

func TestAnalyze_PastRetirementHasEmptySeries(t *testing.T) {
	r, err := Analyze(snapshot(70, 65, 500000, 50000))
	require.NoError(t, err)
	require.Empty(t, r.Retirement)

	b, err := json.Marshal(r)
	require.NoError(t, err)
	require.Contains(t, string(b), `"retirement":[]`)
	require.Contains(t, string(b), `"education":[]`)
}

func TestAnalyze_RiskLevels(t *testing.T) {
	cases := []struct {
		name       string
		in         domain.FormSnapshot
		level      Risk
		risks      int
		recs       []string
		noChildren bool
	}{
		{
			name:       "well funded",
			in:         snapshot(30, 65, 2000000, 100000),
			level:      RiskLow,
			risks:      0,
			recs:       []string{},
			noChildren: true,
		},
		{
			name:  "short coverage",
			in:    snapshot(40, 65, 10000, 80000),
			level: RiskModerate,
			risks: 1,
			recs: []string{
				"Consider increasing your retirement savings rate above the current 15.0%",
				"Build an emergency fund of at least 6 months of expenses",
			},
			noChildren: true,
		},
		{
			name:  "college imminent",
			in:    snapshot(63, 65, 1000, 10000, 17),
			level: RiskHigh,
			risks: 3,
			recs: []string{
				"Consider increasing your retirement savings rate above the current 15.0%",
				"Build an emergency fund of at least 6 months of expenses",
				"Consider starting a 529 college savings plan for each child",
				"Research scholarship and financial aid opportunities",
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := Analyze(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.level, r.Analysis.Level)
			require.Len(t, r.Analysis.Risks, tc.risks)
			require.Equal(t, tc.recs, r.Analysis.Recommendations)
			require.Contains(t, r.Analysis.Summary, "Financial Health Assessment: "+string(tc.level)+" RISK")
			if tc.noChildren {
				require.Empty(t, r.Education)
				require.Empty(t, r.Monthly)
				require.NotContains(t, r.Analysis.Summary, "Education Planning:")
			}
		})
	}
}

func TestAnalyze_EducationBreakdown(t *testing.T) {
	r, err := Analyze(snapshot(63, 65, 1000, 10000, 17))
	require.NoError(t, err)

	require.Len(t, r.Education, 1)
	require.Equal(t, "Child 1", r.Education[0].Child)
	require.InDelta(t, 140000, r.Education[0].Current, 1e-9)
	require.InDelta(t, 147000, r.Education[0].Projected, 1e-6)
	require.Len(t, r.Monthly, 2)
	require.Equal(t, "Retirement", r.Monthly[0].Goal)
	require.InDelta(t, 125, r.Monthly[0].Amount, 1e-9)
	require.Equal(t, "Child 1 Education", r.Monthly[1].Goal)
	require.InDelta(t, 12250, r.Monthly[1].Amount, 1e-6)

	require.Equal(t, "Total monthly savings requirement exceeds 50% of your monthly income", r.Analysis.Risks[1])
	require.Equal(t, "Child age 17: High monthly savings requirement ($12,250.00)", r.Analysis.Risks[2])
	require.Contains(t, r.Analysis.Summary, "- You have 1 children to plan for")
	require.Contains(t, r.Analysis.Summary, "- Total monthly savings needed: $12,375.00")
}

func TestAnalyze_PropagatesProjectionErrors(t *testing.T) {
	s := snapshot(40, 65, 10000, 80000)
	s.CurrentSavings = nil
	_, err := Analyze(s)
	require.ErrorIs(t, err, ErrIncompleteData)

	_, err = Analyze(snapshot(40, 65, 10000, 0))
	require.ErrorIs(t, err, ErrNoIncome)
}

func TestFormatMoney(t *testing.T) {
	require.Equal(t, "$1,234.56", FormatMoney(1234.56))
	require.Equal(t, "$0.00", FormatMoney(0))
	require.Equal(t, "-$5.00", FormatMoney(-5))
}
