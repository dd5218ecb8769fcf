// Package finance is the computation core: amortization, aggregate
// derivation, the health score, projections and what-if scenarios.
//
// Every function takes a full snapshot by value and returns a new value.
// The package holds no state between calls.
package finance

import "finx/internal/core"

// Derive recomputes every derived field of s from its raw inputs. The rules
// run in order and each reads only raw fields or fields set earlier in the
// same pass. Loans must already carry their cached MonthlyPayment.
func Derive(s core.Snapshot) core.Snapshot {
	d := s.Clone()

	d.TotalExpenses = totalExpenses(d)

	d.TotalDebt = 0
	d.TotalMonthlyDebtPayment = 0
	for _, l := range d.Loans {
		d.TotalDebt += l.Amount
		d.TotalMonthlyDebtPayment += l.MonthlyPayment
	}

	d.CurrentSavings = d.CashSavings + d.DepositSavings
	d.PlannedMonthlySavings = d.MonthlyDepositContribution

	return recomputeOutcome(d)
}

// recomputeOutcome applies the tail of the pipeline (free cash flow, DTI and
// score) on top of whatever totals d already carries. The simulator relies
// on this to keep totals it adjusted directly.
func recomputeOutcome(d core.Snapshot) core.Snapshot {
	d.FreeCashFlow = d.MonthlyIncome - d.TotalExpenses - d.TotalMonthlyDebtPayment - d.MonthlyDepositContribution
	d.DebtToIncomeRatio = 0
	if d.MonthlyIncome > 0 {
		d.DebtToIncomeRatio = d.TotalMonthlyDebtPayment / d.MonthlyIncome
	}
	d.RiskScore = HealthScore(d)
	return d
}

func totalExpenses(s core.Snapshot) float64 {
	total := s.Rent + s.Utilities + s.Subscriptions + s.Entertainment + s.Groceries + s.Mortgage
	for _, e := range s.OtherExpenses {
		total += e.Amount
	}
	return total
}
