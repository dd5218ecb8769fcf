package core

import (
	"errors"
	"strings"
)

// DefaultDepositInterestRate is the annual deposit rate (percent) assumed when none is stored.
const DefaultDepositInterestRate = 14

type (
	// ExpenseItem is a user-defined expense line beyond the fixed categories.
	ExpenseItem struct {
		ID     string  `json:"id"`
		Name   string  `json:"name"`
		Amount float64 `json:"amount"`
		Icon   string  `json:"icon"`
	}

	// Loan is immutable once added. MonthlyPayment is computed once at creation.
	Loan struct {
		ID             string  `json:"id"`
		Name           string  `json:"name"`
		Amount         float64 `json:"amount"`
		InterestRate   float64 `json:"interestRate"`
		Duration       int     `json:"duration"` // months
		MonthlyPayment float64 `json:"monthlyPayment"`
	}

	// Snapshot is the complete financial state of a session: raw inputs plus
	// the aggregates derived from them. Derived fields are only ever written by
	// the derive pipeline in package finance.
	Snapshot struct {
		MonthlyIncome float64 `json:"monthlyIncome"`

		Rent          float64       `json:"rent"`
		Utilities     float64       `json:"utilities"`
		Subscriptions float64       `json:"subscriptions"`
		Entertainment float64       `json:"entertainment"`
		Groceries     float64       `json:"groceries"`
		Mortgage      float64       `json:"mortgage"`
		OtherExpenses []ExpenseItem `json:"otherExpenses"`

		Loans []Loan `json:"loans"`

		CashSavings                float64 `json:"cashSavings"`    // non-interest-bearing
		DepositSavings             float64 `json:"depositSavings"` // interest-bearing
		DepositInterestRate        float64 `json:"depositInterestRate"`
		MonthlyDepositContribution float64 `json:"monthlyDepositContribution"`

		// Legacy mirrors kept for stored-data compatibility.
		CurrentSavings        float64 `json:"currentSavings"`
		PlannedMonthlySavings float64 `json:"plannedMonthlySavings"`

		TotalExpenses           float64 `json:"totalExpenses"`
		TotalDebt               float64 `json:"totalDebt"`
		TotalMonthlyDebtPayment float64 `json:"totalMonthlyDebtPayment"`
		FreeCashFlow            float64 `json:"freeCashFlow"`
		DebtToIncomeRatio       float64 `json:"debtToIncomeRatio"`
		RiskScore               int     `json:"riskScore"`

		OnboardingCompleted bool `json:"onboardingCompleted"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNegativeAmount  = errors.New("amount cannot be negative")
	ErrInvalidRate     = errors.New("invalid interest rate")
	ErrInvalidDuration = errors.New("duration must be at least one month")
	ErrEmptyName       = errors.New("empty name")
)

// DefaultSnapshot returns the zero-input state.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		OtherExpenses:       []ExpenseItem{},
		Loans:               []Loan{},
		DepositInterestRate: DefaultDepositInterestRate,
	}
}

// Clone returns a copy that shares no slices with s.
func (s Snapshot) Clone() Snapshot {
	c := s
	c.OtherExpenses = append(make([]ExpenseItem, 0, len(s.OtherExpenses)), s.OtherExpenses...)
	c.Loans = append(make([]Loan, 0, len(s.Loans)), s.Loans...)
	return c
}

// ExpenseCategories returns the fixed categories in display order.
func (s Snapshot) ExpenseCategories() []CategoryAmount {
	return []CategoryAmount{
		{Name: "Rent", Amount: s.Rent},
		{Name: "Utilities", Amount: s.Utilities},
		{Name: "Subscriptions", Amount: s.Subscriptions},
		{Name: "Entertainment", Amount: s.Entertainment},
		{Name: "Groceries", Amount: s.Groceries},
		{Name: "Mortgage", Amount: s.Mortgage},
	}
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Validate checks the raw inputs only. Derived fields are not inspected.
func (s Snapshot) Validate() error {
	amounts := []float64{
		s.MonthlyIncome,
		s.Rent, s.Utilities, s.Subscriptions, s.Entertainment, s.Groceries, s.Mortgage,
		s.CashSavings, s.DepositSavings, s.MonthlyDepositContribution,
	}
	for _, a := range amounts {
		if a < 0 {
			return ErrNegativeAmount
		}
	}
	if s.DepositInterestRate < 0 {
		return ErrInvalidRate
	}
	for _, e := range s.OtherExpenses {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	for _, l := range s.Loans {
		if err := l.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (e ExpenseItem) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	if len(e.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	if e.Amount < 0 {
		return ErrNegativeAmount
	}
	return nil
}

func (l Loan) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return ErrEmptyName
	}
	if len(l.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	if l.Amount <= 0 {
		return ErrInvalidAmount
	}
	if l.InterestRate < 0 {
		return ErrInvalidRate
	}
	if l.Duration <= 0 {
		return ErrInvalidDuration
	}
	return nil
}
