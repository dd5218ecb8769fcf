package finance

import "finx/internal/core"

// EmergencyFundMonths is how many months of outflow the emergency fund target covers.
const EmergencyFundMonths = 3

// ProgressMetrics are the percentages shown on the progress screen.
type ProgressMetrics struct {
	SavingsRate       float64 `json:"savingsRate"`
	ExpenseRate       float64 `json:"expenseRate"`
	DebtRate          float64 `json:"debtRate"`
	EmergencyTarget   float64 `json:"emergencyTarget"`
	EmergencyProgress float64 `json:"emergencyProgress"`
}

// Progress computes the progress percentages of a derived snapshot. Rates are
// percent of income and zero without income; emergency progress is capped at 100.
func Progress(s core.Snapshot) ProgressMetrics {
	var p ProgressMetrics
	if s.MonthlyIncome > 0 {
		p.SavingsRate = s.PlannedMonthlySavings / s.MonthlyIncome * 100
		p.ExpenseRate = s.TotalExpenses / s.MonthlyIncome * 100
	}
	p.DebtRate = s.DebtToIncomeRatio * 100

	p.EmergencyTarget = (s.TotalExpenses + s.TotalMonthlyDebtPayment) * EmergencyFundMonths
	if p.EmergencyTarget > 0 {
		p.EmergencyProgress = min(s.CurrentSavings/p.EmergencyTarget*100, 100)
	}
	return p
}
