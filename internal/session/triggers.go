package session

import (
	"finx/internal/core"
	"finx/internal/finance"
)

// RiskImprovementThreshold is the score gain in one change that unlocks
// the risk-improved achievement.
const RiskImprovementThreshold = 20

// triggered lists the achievements earned by moving from prev to next.
// Nothing fires before onboarding is complete. Streak and credit
// achievements need history the session does not keep, so they are only
// unlocked explicitly.
func triggered(prev, next core.Snapshot) []string {
	if !next.OnboardingCompleted {
		return nil
	}
	var ids []string

	if next.MonthlyDepositContribution > 0 {
		ids = append(ids, core.AchievementSavingsStarted)
	}
	if outflow := next.TotalExpenses + next.TotalMonthlyDebtPayment; outflow > 0 && next.CashSavings >= outflow {
		ids = append(ids, core.AchievementEmergencyFund)
	}
	if finance.Progress(next).EmergencyProgress >= 100 {
		ids = append(ids, core.AchievementSavingsGoal)
	}

	if !prev.OnboardingCompleted {
		return ids
	}
	if prev.DebtToIncomeRatio > 0 && next.DebtToIncomeRatio < prev.DebtToIncomeRatio {
		ids = append(ids, core.AchievementDebtImproved)
	}
	if next.TotalExpenses < prev.TotalExpenses {
		ids = append(ids, core.AchievementExpenseOptimized)
	}
	if next.RiskScore-prev.RiskScore >= RiskImprovementThreshold {
		ids = append(ids, core.AchievementRiskImproved)
	}
	return ids
}
