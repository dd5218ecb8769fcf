package core

import "time"

const (
	AchievementFirstBudget      = "first-budget"
	AchievementSavingsStarted   = "savings-started"
	AchievementThreeMonthStreak = "three-month-streak"
	AchievementDebtImproved     = "debt-improved"
	AchievementExpenseOptimized = "expense-optimized"
	AchievementEmergencyFund    = "emergency-fund"
	AchievementSmartCredit      = "smart-credit"
	AchievementRiskImproved     = "risk-improved"
	AchievementSavingsGoal      = "savings-goal"
)

// Achievement is a gamification flag. Unlocking is a one-way transition.
type Achievement struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlockedAt,omitempty"`
}

// DefaultAchievements returns the full achievement list, all locked.
func DefaultAchievements() []Achievement {
	return []Achievement{
		{ID: AchievementFirstBudget, Name: "First Budget Created", Description: "Complete your first financial profile", Icon: "1"},
		{ID: AchievementSavingsStarted, Name: "Savings Plan Started", Description: "Set up a monthly savings goal", Icon: "2"},
		{ID: AchievementThreeMonthStreak, Name: "3-Month Saving Streak", Description: "Save consistently for 3 months", Icon: "3"},
		{ID: AchievementDebtImproved, Name: "Debt Ratio Improved", Description: "Lower your debt-to-income ratio", Icon: "4"},
		{ID: AchievementExpenseOptimized, Name: "Expense Optimization Applied", Description: "Apply an expense reduction recommendation", Icon: "5"},
		{ID: AchievementEmergencyFund, Name: "Emergency Fund Started", Description: "Build savings equal to 1 month expenses", Icon: "6"},
		{ID: AchievementSmartCredit, Name: "Smart Credit Avoided", Description: "Avoid taking a risky loan", Icon: "7"},
		{ID: AchievementRiskImproved, Name: "Risk Score Improved by 20+", Description: "Improve your financial health score significantly", Icon: "8"},
		{ID: AchievementSavingsGoal, Name: "Savings Goal Reached", Description: "Reach your target savings amount", Icon: "9"},
	}
}

// Unlock marks the achievement as unlocked at the given time. It reports
// false when the achievement was already unlocked; the original timestamp is kept.
func (a *Achievement) Unlock(at time.Time) bool {
	if a.Unlocked {
		return false
	}
	t := at.UTC()
	a.Unlocked = true
	a.UnlockedAt = &t
	return true
}
