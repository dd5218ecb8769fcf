package finance

import "finx/internal/core"

// Sub-score ceilings. They sum to 100.
const (
	MaxCashFlowScore          = 30
	MaxDebtToIncomeScore      = 25
	MaxSavingsRateScore       = 20
	MaxEmergencyCushionScore  = 15
	MaxDepositDisciplineScore = 10
)

// Risk bands used by the dashboard and the advisor prompt.
const (
	RiskLevelHealthy  = "Healthy"
	RiskLevelModerate = "Moderate Risk"
	RiskLevelHigh     = "High Risk"
)

// ScoreBreakdown holds the five bucketed sub-scores and their clamped sum.
type ScoreBreakdown struct {
	CashFlow          int `json:"cashFlow"`
	DebtToIncome      int `json:"debtToIncome"`
	SavingsRate       int `json:"savingsRate"`
	EmergencyCushion  int `json:"emergencyCushion"`
	DepositDiscipline int `json:"depositDiscipline"`
	Total             int `json:"total"`
}

// HealthScore returns the composite 0-100 score for a derived snapshot.
func HealthScore(s core.Snapshot) int {
	return Breakdown(s).Total
}

// Breakdown scores s. It reads TotalExpenses, TotalMonthlyDebtPayment,
// MonthlyIncome, MonthlyDepositContribution, CashSavings and DepositSavings,
// so the aggregate fields must be current. No income means a zero score.
func Breakdown(s core.Snapshot) ScoreBreakdown {
	if s.MonthlyIncome <= 0 {
		return ScoreBreakdown{}
	}
	income := s.MonthlyIncome
	debt := s.TotalMonthlyDebtPayment
	outflow := s.TotalExpenses + debt

	b := ScoreBreakdown{
		CashFlow:          cashFlowScore((income - outflow) / income),
		DebtToIncome:      debtToIncomeScore(debt, income),
		SavingsRate:       savingsRateScore(s.MonthlyDepositContribution / income),
		DepositDiscipline: depositDisciplineScore(s.DepositSavings, s.MonthlyDepositContribution),
	}
	if outflow > 0 {
		b.EmergencyCushion = emergencyCushionScore(s.CashSavings / outflow)
	}

	total := b.CashFlow + b.DebtToIncome + b.SavingsRate + b.EmergencyCushion + b.DepositDiscipline
	b.Total = min(100, max(0, total))
	return b
}

// RiskLevel maps a score to its band label.
func RiskLevel(score int) string {
	switch {
	case score >= 70:
		return RiskLevelHealthy
	case score >= 40:
		return RiskLevelModerate
	default:
		return RiskLevelHigh
	}
}

func cashFlowScore(ratio float64) int {
	switch {
	case ratio >= 0.30:
		return 30
	case ratio >= 0.20:
		return 24
	case ratio >= 0.10:
		return 18
	case ratio > 0:
		return 10
	default:
		return 0
	}
}

func debtToIncomeScore(payment, income float64) int {
	if payment == 0 {
		return MaxDebtToIncomeScore
	}
	dti := payment / income
	switch {
	case dti < 0.15:
		return 25
	case dti < 0.25:
		return 20
	case dti < 0.35:
		return 15
	case dti < 0.45:
		return 8
	default:
		return 0
	}
}

func savingsRateScore(rate float64) int {
	switch {
	case rate >= 0.20:
		return 20
	case rate >= 0.15:
		return 16
	case rate >= 0.10:
		return 12
	case rate >= 0.05:
		return 8
	case rate > 0:
		return 4
	default:
		return 0
	}
}

func emergencyCushionScore(months float64) int {
	switch {
	case months >= 6:
		return 15
	case months >= 3:
		return 12
	case months >= 1:
		return 8
	case months > 0:
		return 4
	default:
		return 0
	}
}

func depositDisciplineScore(deposit, contribution float64) int {
	hasDeposit, contributes := deposit > 0, contribution > 0
	switch {
	case hasDeposit && contributes:
		return 10
	case hasDeposit || contributes:
		return 5
	default:
		return 0
	}
}
