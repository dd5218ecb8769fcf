package finance

import (
	"errors"
	"fmt"
	"math"

	"finx/internal/core"
)

var (
	ErrUnknownScenario = errors.New("unknown scenario")
	ErrInvalidScenario = errors.New("invalid scenario parameters")
)

// ScenarioKind names a what-if transform.
type ScenarioKind string

const (
	ScenarioNone           ScenarioKind = "none"
	ScenarioAdjustExpenses ScenarioKind = "adjust-expenses"
	ScenarioReallocateCash ScenarioKind = "reallocate-cash"
	ScenarioNewLoan        ScenarioKind = "new-loan"
	ScenarioHousingChange  ScenarioKind = "housing-change"
	ScenarioJobChange      ScenarioKind = "job-change"
)

// MaxQuoteScheduleRows caps the schedule returned with a new-loan quote.
const MaxQuoteScheduleRows = 48

// ExpenseCuts are percentage reductions per discretionary category.
type ExpenseCuts struct {
	Subscriptions float64 `json:"subscriptions" toml:"subscriptions"`
	Utilities     float64 `json:"utilities" toml:"utilities"`
	Entertainment float64 `json:"entertainment" toml:"entertainment"`
	Groceries     float64 `json:"groceries" toml:"groceries"`
}

// Reallocation moves freed-up cash into savings or debt.
type Reallocation struct {
	AddToDeposit     float64 `json:"addToDeposit" toml:"add_to_deposit"`
	AddToCashSavings float64 `json:"addToCashSavings" toml:"add_to_cash_savings"`
	ExtraLoanPayment float64 `json:"extraLoanPayment" toml:"extra_loan_payment"`
}

// LoanTerms describe a prospective loan.
type LoanTerms struct {
	Amount       float64 `json:"amount" toml:"amount"`
	InterestRate float64 `json:"interestRate" toml:"interest_rate"`
	Duration     int     `json:"duration" toml:"duration"`
}

// DefaultLoanTerms are used when a new-loan scenario carries no terms.
var DefaultLoanTerms = LoanTerms{Amount: 500_000, InterestRate: 22, Duration: 24}

// Scenario selects one transform and carries its parameters. Only the
// parameters of the selected kind are read. A nil Rent or Income keeps the
// baseline value.
type Scenario struct {
	Kind         ScenarioKind `json:"kind" toml:"kind"`
	Name         string       `json:"name,omitempty" toml:"name"`
	ExpenseCuts  ExpenseCuts  `json:"expenseCuts" toml:"expense_cuts"`
	Reallocation Reallocation `json:"reallocation" toml:"reallocation"`
	NewLoan      *LoanTerms   `json:"newLoan,omitempty" toml:"new_loan"`
	Rent         *float64     `json:"rent,omitempty" toml:"rent"`
	Income       *float64     `json:"income,omitempty" toml:"income"`
}

// Validate checks the parameters used by the scenario's kind.
func (sc Scenario) Validate() error {
	switch sc.Kind {
	case ScenarioNone, "":
		return nil
	case ScenarioAdjustExpenses:
		for name, pct := range map[string]float64{
			"subscriptions": sc.ExpenseCuts.Subscriptions,
			"utilities":     sc.ExpenseCuts.Utilities,
			"entertainment": sc.ExpenseCuts.Entertainment,
			"groceries":     sc.ExpenseCuts.Groceries,
		} {
			if pct < 0 || pct > 100 {
				return fmt.Errorf("%w: %s cut must be between 0 and 100", ErrInvalidScenario, name)
			}
		}
	case ScenarioReallocateCash:
		r := sc.Reallocation
		if r.AddToDeposit < 0 || r.AddToCashSavings < 0 || r.ExtraLoanPayment < 0 {
			return fmt.Errorf("%w: reallocation amounts must be non-negative", ErrInvalidScenario)
		}
	case ScenarioNewLoan:
		t := sc.loanTerms()
		if t.Amount <= 0 {
			return fmt.Errorf("%w: %w", ErrInvalidScenario, core.ErrInvalidAmount)
		}
		if t.InterestRate < 0 {
			return fmt.Errorf("%w: %w", ErrInvalidScenario, core.ErrInvalidRate)
		}
		if t.Duration <= 0 {
			return fmt.Errorf("%w: %w", ErrInvalidScenario, core.ErrInvalidDuration)
		}
	case ScenarioHousingChange:
		if sc.Rent != nil && *sc.Rent < 0 {
			return fmt.Errorf("%w: rent: %w", ErrInvalidScenario, core.ErrNegativeAmount)
		}
	case ScenarioJobChange:
		if sc.Income != nil && *sc.Income < 0 {
			return fmt.Errorf("%w: income: %w", ErrInvalidScenario, core.ErrNegativeAmount)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownScenario, sc.Kind)
	}
	return nil
}

func (sc Scenario) loanTerms() LoanTerms {
	if sc.NewLoan == nil {
		return DefaultLoanTerms
	}
	return *sc.NewLoan
}

// Simulate applies sc to a copy of the derived snapshot base and recomputes
// free cash flow, DTI and the score on the copy. base is never modified.
// Totals adjusted by a transform are kept as adjusted rather than derived
// again from the loan list.
func Simulate(base core.Snapshot, sc Scenario) (core.Snapshot, error) {
	if err := sc.Validate(); err != nil {
		return core.Snapshot{}, err
	}
	d := base.Clone()

	switch sc.Kind {
	case ScenarioAdjustExpenses:
		c := sc.ExpenseCuts
		d.Subscriptions *= 1 - c.Subscriptions/100
		d.Utilities *= 1 - c.Utilities/100
		d.Entertainment *= 1 - c.Entertainment/100
		d.Groceries *= 1 - c.Groceries/100
		d.TotalExpenses = totalExpenses(d)

	case ScenarioReallocateCash:
		r := sc.Reallocation
		d.MonthlyDepositContribution += r.AddToDeposit
		d.CashSavings += r.AddToCashSavings
		if r.ExtraLoanPayment > 0 && d.TotalDebt > 0 {
			d.TotalDebt = math.Max(0, d.TotalDebt-r.ExtraLoanPayment*12)
		}

	case ScenarioNewLoan:
		t := sc.loanTerms()
		payment, err := MonthlyPayment(t.Amount, t.InterestRate, t.Duration)
		if err != nil {
			return core.Snapshot{}, err
		}
		d.TotalDebt += t.Amount
		d.TotalMonthlyDebtPayment += core.Round(payment)

	case ScenarioHousingChange:
		if sc.Rent != nil {
			d.Rent = *sc.Rent
		}
		d.TotalExpenses = totalExpenses(d)

	case ScenarioJobChange:
		if sc.Income != nil {
			d.MonthlyIncome = *sc.Income
		}
	}

	d.CurrentSavings = d.CashSavings + d.DepositSavings
	d.PlannedMonthlySavings = d.MonthlyDepositContribution
	return recomputeOutcome(d), nil
}

// Delta is simulated minus baseline for the headline figures.
type Delta struct {
	RiskScore               int     `json:"riskScore"`
	FreeCashFlow            float64 `json:"freeCashFlow"`
	TotalDebt               float64 `json:"totalDebt"`
	TotalMonthlyDebtPayment float64 `json:"totalMonthlyDebtPayment"`
	DebtToIncomeRatio       float64 `json:"debtToIncomeRatio"`
	TotalExpenses           float64 `json:"totalExpenses"`
}

// Compare returns sim − base field by field.
func Compare(base, sim core.Snapshot) Delta {
	return Delta{
		RiskScore:               sim.RiskScore - base.RiskScore,
		FreeCashFlow:            sim.FreeCashFlow - base.FreeCashFlow,
		TotalDebt:               sim.TotalDebt - base.TotalDebt,
		TotalMonthlyDebtPayment: sim.TotalMonthlyDebtPayment - base.TotalMonthlyDebtPayment,
		DebtToIncomeRatio:       sim.DebtToIncomeRatio - base.DebtToIncomeRatio,
		TotalExpenses:           sim.TotalExpenses - base.TotalExpenses,
	}
}

// LoanQuote describes the loan a new-loan scenario would take on.
type LoanQuote struct {
	Terms          LoanTerms     `json:"terms"`
	MonthlyPayment float64       `json:"monthlyPayment"`
	TotalInterest  float64       `json:"totalInterest"`
	Schedule       []Installment `json:"schedule"`
}

// Outcome is a scenario evaluated against its baseline.
type Outcome struct {
	Scenario    Scenario      `json:"scenario"`
	Baseline    core.Snapshot `json:"baseline"`
	Simulated   core.Snapshot `json:"simulated"`
	Delta       Delta         `json:"delta"`
	RiskLevel   string        `json:"riskLevel"`
	FreedUpCash float64       `json:"freedUpCash"`
	LoanQuote   *LoanQuote    `json:"loanQuote,omitempty"`
}

// Run simulates sc and packages the result with its delta and, where the
// kind has one, the freed-up cash or the loan quote.
func Run(base core.Snapshot, sc Scenario) (Outcome, error) {
	sim, err := Simulate(base, sc)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{
		Scenario:  sc,
		Baseline:  base.Clone(),
		Simulated: sim,
		Delta:     Compare(base, sim),
		RiskLevel: RiskLevel(sim.RiskScore),
	}

	switch sc.Kind {
	case ScenarioAdjustExpenses:
		out.FreedUpCash = discretionary(base) - discretionary(sim)
	case ScenarioNewLoan:
		q, err := quote(sc.loanTerms())
		if err != nil {
			return Outcome{}, err
		}
		out.LoanQuote = &q
	}
	return out, nil
}

func discretionary(s core.Snapshot) float64 {
	return s.Subscriptions + s.Utilities + s.Entertainment + s.Groceries
}

func quote(t LoanTerms) (LoanQuote, error) {
	payment, err := MonthlyPayment(t.Amount, t.InterestRate, t.Duration)
	if err != nil {
		return LoanQuote{}, err
	}
	schedule, err := Schedule(t.Amount, t.InterestRate, t.Duration)
	if err != nil {
		return LoanQuote{}, err
	}
	if len(schedule) > MaxQuoteScheduleRows {
		schedule = schedule[:MaxQuoteScheduleRows]
	}
	return LoanQuote{
		Terms:          t,
		MonthlyPayment: core.Round(payment),
		TotalInterest:  TotalInterest(t.Amount, payment, t.Duration),
		Schedule:       schedule,
	}, nil
}
