package finance

import (
	"fmt"
	"math"
	"time"

	"finx/internal/core"
)

// DebtReductionFactor is the share of the monthly debt payment treated as
// principal when projecting the debt balance.
const DebtReductionFactor = 0.4

// Horizon is one of the projection ranges offered to users.
type Horizon struct {
	Months int    `json:"months"`
	Label  string `json:"label"`
}

// Horizons lists the standard projection ranges.
var Horizons = []Horizon{
	{Months: 12, Label: "1 Year"},
	{Months: 60, Label: "5 Years"},
	{Months: 120, Label: "10 Years"},
	{Months: 240, Label: "20 Years"},
	{Months: 360, Label: "30 Years"},
}

// ProjectionPoint is the projected state at the end of one month.
type ProjectionPoint struct {
	MonthIndex       int       `json:"monthIndex"`
	Date             time.Time `json:"date"`
	Label            string    `json:"label"`
	ProjectedDebt    float64   `json:"projectedDebt"`
	ProjectedSavings float64   `json:"projectedSavings"`
	DebtReachedZero  bool      `json:"debtReachedZero"`
}

// Project returns months points for the derived snapshot s. start only
// drives the dates and labels. The deposit balance is carried forward month
// to month, which performs the same operations as recomputing it from the
// start for every index.
func Project(s core.Snapshot, months int, start time.Time) []ProjectionPoint {
	if months <= 0 {
		return []ProjectionPoint{}
	}

	reduction := DebtReductionFactor * s.TotalMonthlyDebtPayment
	monthlyRate := s.DepositInterestRate / 100 / 12
	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())

	points := make([]ProjectionPoint, 0, months)
	balance := s.DepositSavings
	zeroSeen := false
	for m := 1; m <= months; m++ {
		debt := math.Max(0, s.TotalDebt-reduction*float64(m))
		reached := false
		if s.TotalDebt > 0 && debt == 0 && !zeroSeen {
			reached = true
			zeroSeen = true
		}

		balance = balance*(1+monthlyRate) + s.MonthlyDepositContribution

		date := first.AddDate(0, m-1, 0)
		points = append(points, ProjectionPoint{
			MonthIndex:       m,
			Date:             date,
			Label:            projectionLabel(m, months, date),
			ProjectedDebt:    core.Round(debt),
			ProjectedSavings: core.Round(s.CashSavings + balance),
			DebtReachedZero:  reached,
		})
	}
	return points
}

// DebtFreeMonth reports the month index at which projected debt first hits zero.
func DebtFreeMonth(points []ProjectionPoint) (int, bool) {
	for _, p := range points {
		if p.DebtReachedZero {
			return p.MonthIndex, true
		}
	}
	return 0, false
}

// projectionLabel names a chart tick. Short ranges show every month, mid
// ranges every half year, long ranges every year. Other points get "".
func projectionLabel(m, horizon int, date time.Time) string {
	switch {
	case horizon <= 12:
		return date.Format("Jan")
	case horizon <= 60:
		if m%6 != 0 {
			return ""
		}
		if m%12 == 0 {
			return fmt.Sprintf("%dy", m/12)
		}
		return fmt.Sprintf("%dy %dm", m/12, m%12)
	default:
		if m%12 != 0 {
			return ""
		}
		return fmt.Sprintf("Year %d", m/12)
	}
}

// DepositMonth is one row of the deposit growth table.
type DepositMonth struct {
	Month       int     `json:"month"`
	Balance     float64 `json:"balance"`
	Contributed float64 `json:"contributed"`
}

// DepositGrowthResult summarises a deposit compounded monthly.
type DepositGrowthResult struct {
	FinalAmount      float64        `json:"finalAmount"`
	TotalContributed float64        `json:"totalContributed"`
	InterestEarned   float64        `json:"interestEarned"`
	Months           []DepositMonth `json:"months"`
}

// DepositGrowth compounds initial at annualRate percent for months, adding
// monthly after each month's interest.
func DepositGrowth(initial, monthly, annualRate float64, months int) DepositGrowthResult {
	months = max(0, months)
	monthlyRate := annualRate / 100 / 12
	balance := initial
	rows := make([]DepositMonth, 0, months)
	for m := 1; m <= months; m++ {
		balance = balance*(1+monthlyRate) + monthly
		rows = append(rows, DepositMonth{
			Month:       m,
			Balance:     core.Round(balance),
			Contributed: initial + monthly*float64(m),
		})
	}
	contributed := initial + monthly*float64(months)
	return DepositGrowthResult{
		FinalAmount:      core.Round(balance),
		TotalContributed: contributed,
		InterestEarned:   core.Round(balance - contributed),
		Months:           rows,
	}
}
