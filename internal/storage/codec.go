package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"finx/internal/core"
)

// storedSnapshot overlays pointer fields on the snapshot so decoding can
// tell a missing key from a zero value.
type storedSnapshot struct {
	core.Snapshot
	CashSavings                *float64 `json:"cashSavings"`
	DepositSavings             *float64 `json:"depositSavings"`
	DepositInterestRate        *float64 `json:"depositInterestRate"`
	MonthlyDepositContribution *float64 `json:"monthlyDepositContribution"`
	CurrentSavings             *float64 `json:"currentSavings"`
	PlannedMonthlySavings      *float64 `json:"plannedMonthlySavings"`
}

// DecodeSnapshot parses a stored snapshot blob. Data written before cash and
// deposit savings were split is migrated forward. Missing fields take their
// defaults, and malformed data yields the default snapshot. Derived fields
// are left as stored; callers re-derive.
func DecodeSnapshot(ctx context.Context, data []byte) core.Snapshot {
	s, err := decodeSnapshot(data)
	if err != nil {
		slog.WarnContext(ctx, "Discarding unreadable stored snapshot", "error", err)
		return core.DefaultSnapshot()
	}
	return s
}

func decodeSnapshot(data []byte) (core.Snapshot, error) {
	st := storedSnapshot{Snapshot: core.DefaultSnapshot()}
	if err := json.Unmarshal(data, &st); err != nil {
		return core.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	s := st.Snapshot

	if st.CurrentSavings != nil && st.CashSavings == nil {
		s.CashSavings = *st.CurrentSavings
		s.DepositSavings = 0
		s.DepositInterestRate = core.DefaultDepositInterestRate
		s.MonthlyDepositContribution = 0
		if st.PlannedMonthlySavings != nil {
			s.MonthlyDepositContribution = *st.PlannedMonthlySavings
		}
	} else {
		setIfPresent(&s.CashSavings, st.CashSavings)
		setIfPresent(&s.DepositSavings, st.DepositSavings)
		setIfPresent(&s.DepositInterestRate, st.DepositInterestRate)
		setIfPresent(&s.MonthlyDepositContribution, st.MonthlyDepositContribution)
	}
	setIfPresent(&s.CurrentSavings, st.CurrentSavings)
	setIfPresent(&s.PlannedMonthlySavings, st.PlannedMonthlySavings)

	if s.OtherExpenses == nil {
		s.OtherExpenses = []core.ExpenseItem{}
	}
	if s.Loans == nil {
		s.Loans = []core.Loan{}
	}
	if err := s.Validate(); err != nil {
		return core.Snapshot{}, fmt.Errorf("stored snapshot: %w", err)
	}
	return s, nil
}

func setIfPresent(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// EncodeSnapshot serializes s in the stored blob format.
func EncodeSnapshot(s core.Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeAchievements merges stored unlock state onto the default list.
// Unknown ids are dropped, and malformed data yields the defaults.
func DecodeAchievements(ctx context.Context, data []byte) []core.Achievement {
	list := core.DefaultAchievements()
	var stored []core.Achievement
	if err := json.Unmarshal(data, &stored); err != nil {
		slog.WarnContext(ctx, "Discarding unreadable stored achievements", "error", err)
		return list
	}
	byID := make(map[string]core.Achievement, len(stored))
	for _, a := range stored {
		byID[a.ID] = a
	}
	for i := range list {
		if a, ok := byID[list[i].ID]; ok && a.Unlocked {
			list[i].Unlocked = true
			list[i].UnlockedAt = a.UnlockedAt
		}
	}
	return list
}

// EncodeAchievements serializes the achievement list.
func EncodeAchievements(list []core.Achievement) ([]byte, error) {
	data, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("encode achievements: %w", err)
	}
	return data, nil
}
