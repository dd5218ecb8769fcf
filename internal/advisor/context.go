// Package advisor builds the financial context handed to the chat model and
// relays conversations to an OpenAI-compatible chat-completions endpoint.
package advisor

import (
	"finx/internal/core"
	"finx/internal/finance"
)

// LoanSummary is the part of a loan the advisor sees.
type LoanSummary struct {
	Name           string  `json:"name"`
	Amount         float64 `json:"amount"`
	InterestRate   float64 `json:"interestRate"`
	MonthlyPayment float64 `json:"monthlyPayment"`
}

// FinancialContext is the flat profile sent alongside a conversation.
type FinancialContext struct {
	MonthlyIncome              float64       `json:"monthlyIncome"`
	Rent                       float64       `json:"rent"`
	Utilities                  float64       `json:"utilities"`
	Subscriptions              float64       `json:"subscriptions"`
	Entertainment              float64       `json:"entertainment"`
	Groceries                  float64       `json:"groceries"`
	Mortgage                   float64       `json:"mortgage"`
	TotalExpenses              float64       `json:"totalExpenses"`
	FreeCashFlow               float64       `json:"freeCashFlow"`
	RiskScore                  int           `json:"riskScore"`
	RiskLevel                  string        `json:"riskLevel"`
	CashSavings                float64       `json:"cashSavings"`
	DepositSavings             float64       `json:"depositSavings"`
	DepositInterestRate        float64       `json:"depositInterestRate"`
	MonthlyDepositContribution float64       `json:"monthlyDepositContribution"`
	TotalSavings               float64       `json:"totalSavings"`
	TotalDebt                  float64       `json:"totalDebt"`
	TotalMonthlyDebtPayment    float64       `json:"totalMonthlyDebtPayment"`
	DebtToIncomeRatio          float64       `json:"debtToIncomeRatio"`
	Loans                      []LoanSummary `json:"loans"`
}

// ContextFromSnapshot flattens a derived snapshot.
func ContextFromSnapshot(s core.Snapshot) FinancialContext {
	loans := make([]LoanSummary, 0, len(s.Loans))
	for _, l := range s.Loans {
		loans = append(loans, LoanSummary{
			Name:           l.Name,
			Amount:         l.Amount,
			InterestRate:   l.InterestRate,
			MonthlyPayment: l.MonthlyPayment,
		})
	}
	return FinancialContext{
		MonthlyIncome:              s.MonthlyIncome,
		Rent:                       s.Rent,
		Utilities:                  s.Utilities,
		Subscriptions:              s.Subscriptions,
		Entertainment:              s.Entertainment,
		Groceries:                  s.Groceries,
		Mortgage:                   s.Mortgage,
		TotalExpenses:              s.TotalExpenses,
		FreeCashFlow:               s.FreeCashFlow,
		RiskScore:                  s.RiskScore,
		RiskLevel:                  finance.RiskLevel(s.RiskScore),
		CashSavings:                s.CashSavings,
		DepositSavings:             s.DepositSavings,
		DepositInterestRate:        s.DepositInterestRate,
		MonthlyDepositContribution: s.MonthlyDepositContribution,
		TotalSavings:               s.CashSavings + s.DepositSavings,
		TotalDebt:                  s.TotalDebt,
		TotalMonthlyDebtPayment:    s.TotalMonthlyDebtPayment,
		DebtToIncomeRatio:          s.DebtToIncomeRatio,
		Loans:                      loans,
	}
}
