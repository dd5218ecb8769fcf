package advisor

import (
	"fmt"
	"strconv"
	"strings"

	"finx/internal/core"
)

const promptIntro = `You are FinX AI Advisor, a friendly and knowledgeable financial assistant for users in Kazakhstan.
You give personalized financial advice based on the user's real financial data shown below.
Be helpful, concise and actionable. Use Tenge (₸) as the currency.
Never recommend specific financial products or institutions unless asked.
If the user asks something unrelated to finance, gently redirect them.`

const promptGuidelines = `GUIDELINES:
- Reference specific numbers from the user's profile when giving advice.
- If asked about budgeting, base advice on the actual expense categories above.
- Risk score interpretation: 0-39 = High Risk, 40-69 = Moderate, 70-100 = Healthy.
- Keep responses focused and under 300 words unless the user asks for detail.
- Use bullet points and clear formatting for readability.
- If the user has negative free cash flow, flag it as urgent.`

// SystemPrompt renders the advisor instructions followed by the user's profile.
func SystemPrompt(fc FinancialContext) string {
	var b strings.Builder
	b.WriteString(promptIntro)
	b.WriteString("\n\nUSER'S FINANCIAL PROFILE:\n")

	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}
	t := core.FormatTenge

	line("- Monthly Income: %s", t(fc.MonthlyIncome))
	line("- Total Fixed Expenses: %s", t(fc.TotalExpenses))
	line("  - Rent: %s", t(fc.Rent))
	line("  - Utilities: %s", t(fc.Utilities))
	line("  - Subscriptions: %s", t(fc.Subscriptions))
	line("  - Entertainment: %s", t(fc.Entertainment))
	line("  - Groceries: %s", t(fc.Groceries))
	line("  - Mortgage: %s", t(fc.Mortgage))
	line("- Free Cash Flow: %s", t(fc.FreeCashFlow))
	line("- Financial Health Score: %d/100", fc.RiskScore)
	line("- Cash Savings: %s", t(fc.CashSavings))
	line("- Deposit Savings: %s (at %s%% annual rate)", t(fc.DepositSavings), rate(fc.DepositInterestRate))
	line("- Monthly Deposit Contribution: %s", t(fc.MonthlyDepositContribution))
	line("- Total Savings: %s", t(fc.TotalSavings))
	line("- Total Debt: %s", t(fc.TotalDebt))
	line("- Monthly Debt Payments: %s", t(fc.TotalMonthlyDebtPayment))
	line("- Debt-to-Income Ratio: %s", core.FormatPercent(fc.DebtToIncomeRatio))

	if len(fc.Loans) == 0 {
		line("- No active loans")
	} else {
		line("- Active Loans:")
		for _, l := range fc.Loans {
			line("  • %s: %s at %s%%, monthly payment %s", l.Name, t(l.Amount), rate(l.InterestRate), t(l.MonthlyPayment))
		}
	}

	b.WriteByte('\n')
	b.WriteString(promptGuidelines)
	return b.String()
}

func rate(r float64) string {
	return strconv.FormatFloat(r, 'f', -1, 64)
}
