package usecase

import (
	"errors"
	"fmt"
	"strings"

	"financial-planner/internal/domain"
	"financial-planner/internal/planner"
)

const unformattableContext = "Financial data available but could not be formatted."

func buildPromptMessages(context string, history []domain.ChatMessage, message string) []domain.ChatMessage {
	messages := make([]domain.ChatMessage, 0, len(history)+2)
	messages = append(messages, domain.ChatMessage{
		Role:    domain.RoleSystem,
		Content: buildSystemPrompt(context),
	})
	messages = append(messages, history...)
	messages = append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: message})
	return messages
}

func buildSystemPrompt(context string) string {
	return strings.Join([]string{
		"You are an expert financial planning assistant.",
		"Use this detailed context about the user's financial situation to provide specific, data-driven advice:",
		context,
		"",
		"Guidelines:",
		guidelines(),
	}, "\n")
}

func guidelines() string {
	return strings.Join([]string{
		"1) Reference specific numbers from the context when giving advice.",
		"2) Explain the reasoning behind each recommendation.",
		"3) Consider both retirement and education planning.",
		"4) Highlight any risks identified in the analysis.",
		"5) Give actionable steps with clear numbers and timeframes.",
		"6) Format all monetary values as $1,234.56.",
		"7) Take the user's age, income and savings rate into account.",
		"8) Where relevant, cover short-term and long-term implications.",
		"9) Provide specific savings targets when applicable.",
		"10) Acknowledge both retirement and education goals.",
	}, "\n")
}

// financialContext renders the projection for the system prompt. A nil or
// empty snapshot yields no context; one with missing values yields a fixed
// notice. Zero income fails since no projection is meaningful.
func financialContext(snapshot *domain.FormSnapshot) (string, error) {
	if snapshot.IsEmpty() {
		return "", nil
	}
	p, err := planner.Project(*snapshot)
	if errors.Is(err, planner.ErrNoIncome) {
		return "", err
	}
	if err != nil {
		return unformattableContext, nil
	}

	lines := []string{
		"Financial Context:",
		"Personal Information:",
		fmt.Sprintf("- Current Age: %d", p.Age),
		fmt.Sprintf("- Annual Income: %s", money(p.AnnualIncome)),
		fmt.Sprintf("- Current Savings: %s", money(p.CurrentSavings)),
		fmt.Sprintf("- Target Retirement Age: %d", p.RetirementAge),
		fmt.Sprintf("- Years until retirement: %d", p.YearsToRetirement),
		"",
		"Retirement Planning:",
		fmt.Sprintf("- Projected retirement savings: %s", money(p.FinalSavings)),
		fmt.Sprintf("- Years of retirement covered: %.1f", p.YearsCovered),
		fmt.Sprintf("- Monthly retirement savings needed: %s", money(p.MonthlyRetirementSavings)),
		fmt.Sprintf("- Expected monthly expenses in retirement: %s", money(p.MonthlyRetirementExpense)),
		fmt.Sprintf("- Assumed annual return rate: %.1f%%", planner.AnnualReturnRate*100),
		fmt.Sprintf("- Current savings rate: %.1f%%", planner.SavingsRate*100),
		"",
		"Education Planning:",
		fmt.Sprintf("- Number of Children: %d", len(p.Children)),
	}
	for i, c := range p.Children {
		lines = append(lines, fmt.Sprintf(
			"- Child %d: Age %d, Goal: %s, Years to college: %d, Total cost: %s, Monthly savings needed: %s",
			i+1, c.Age, goalOrUnspecified(c.EducationGoal), c.YearsToCollege, money(c.TotalCost), money(c.MonthlySavingsNeeded),
		))
	}
	lines = append(lines,
		"",
		"Risk Assessment:",
		fmt.Sprintf("- %s retirement risk", p.RetirementRisk),
		fmt.Sprintf("- %s monthly savings burden", p.SavingsBurden),
	)
	return strings.Join(lines, "\n"), nil
}

func money(v float64) string {
	return planner.FormatMoney(v)
}

func goalOrUnspecified(goal string) string {
	if g := strings.TrimSpace(goal); g != "" {
		return g
	}
	return "unspecified"
}

// recentMessages flattens turns into alternating user/assistant messages and
// keeps the last limit of them.
func recentMessages(turns []domain.Turn, limit int) []domain.ChatMessage {
	if limit <= 0 {
		return nil
	}
	messages := make([]domain.ChatMessage, 0, len(turns)*2)
	for _, t := range turns {
		message := strings.TrimSpace(t.Message)
		reply := strings.TrimSpace(t.Reply)
		if message == "" || reply == "" {
			continue
		}
		messages = append(messages,
			domain.ChatMessage{Role: domain.RoleUser, Content: message},
			domain.ChatMessage{Role: domain.RoleAssistant, Content: reply},
		)
	}
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages
}
