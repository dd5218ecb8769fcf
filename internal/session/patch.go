package session

import (
	"fmt"
	"strings"

	"finx/internal/core"
)

// Patch is a partial update of raw snapshot fields. Nil fields are left as they are.
type Patch struct {
	MonthlyIncome              *float64 `json:"monthlyIncome,omitempty"`
	Rent                       *float64 `json:"rent,omitempty"`
	Utilities                  *float64 `json:"utilities,omitempty"`
	Subscriptions              *float64 `json:"subscriptions,omitempty"`
	Entertainment              *float64 `json:"entertainment,omitempty"`
	Groceries                  *float64 `json:"groceries,omitempty"`
	Mortgage                   *float64 `json:"mortgage,omitempty"`
	CashSavings                *float64 `json:"cashSavings,omitempty"`
	DepositSavings             *float64 `json:"depositSavings,omitempty"`
	DepositInterestRate        *float64 `json:"depositInterestRate,omitempty"`
	MonthlyDepositContribution *float64 `json:"monthlyDepositContribution,omitempty"`
}

// DerivedFields are snapshot JSON keys that callers may never set.
var DerivedFields = []string{
	"totalExpenses",
	"totalDebt",
	"totalMonthlyDebtPayment",
	"freeCashFlow",
	"debtToIncomeRatio",
	"riskScore",
	"currentSavings",
	"plannedMonthlySavings",
}

// IsDerivedField reports whether key names a derived snapshot field.
func IsDerivedField(key string) bool {
	for _, f := range DerivedFields {
		if f == key {
			return true
		}
	}
	return false
}

func (p Patch) fields() map[string]*float64 {
	return map[string]*float64{
		"monthlyIncome":              p.MonthlyIncome,
		"rent":                       p.Rent,
		"utilities":                  p.Utilities,
		"subscriptions":              p.Subscriptions,
		"entertainment":              p.Entertainment,
		"groceries":                  p.Groceries,
		"mortgage":                   p.Mortgage,
		"cashSavings":                p.CashSavings,
		"depositSavings":             p.DepositSavings,
		"monthlyDepositContribution": p.MonthlyDepositContribution,
	}
}

// Validate rejects negative amounts and a negative deposit rate.
func (p Patch) Validate() error {
	for name, v := range p.fields() {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s: %w", name, core.ErrNegativeAmount)
		}
	}
	if p.DepositInterestRate != nil && *p.DepositInterestRate < 0 {
		return fmt.Errorf("depositInterestRate: %w", core.ErrInvalidRate)
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	for _, v := range p.fields() {
		if v != nil {
			return false
		}
	}
	return p.DepositInterestRate == nil
}

func (p Patch) applyTo(s *core.Snapshot) {
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&s.MonthlyIncome, p.MonthlyIncome)
	set(&s.Rent, p.Rent)
	set(&s.Utilities, p.Utilities)
	set(&s.Subscriptions, p.Subscriptions)
	set(&s.Entertainment, p.Entertainment)
	set(&s.Groceries, p.Groceries)
	set(&s.Mortgage, p.Mortgage)
	set(&s.CashSavings, p.CashSavings)
	set(&s.DepositSavings, p.DepositSavings)
	set(&s.DepositInterestRate, p.DepositInterestRate)
	set(&s.MonthlyDepositContribution, p.MonthlyDepositContribution)
}

// LoanInput are the user-supplied terms of a new loan.
type LoanInput struct {
	Name         string  `json:"name" toml:"name"`
	Amount       float64 `json:"amount" toml:"amount"`
	InterestRate float64 `json:"interestRate" toml:"interest_rate"`
	Duration     int     `json:"duration" toml:"duration"`
}

// ExpenseInput is a user-defined expense line to add.
type ExpenseInput struct {
	Name   string  `json:"name" toml:"name"`
	Amount float64 `json:"amount" toml:"amount"`
	Icon   string  `json:"icon" toml:"icon"`
}

func (in ExpenseInput) toItem(id string) (core.ExpenseItem, error) {
	item := core.ExpenseItem{ID: id, Name: strings.TrimSpace(in.Name), Amount: in.Amount, Icon: in.Icon}
	if item.Icon == "" {
		item.Icon = DefaultExpenseIcon
	}
	if err := item.Validate(); err != nil {
		return core.ExpenseItem{}, err
	}
	return item, nil
}

// DefaultExpenseIcon is used when an expense line carries no icon.
const DefaultExpenseIcon = "receipt"

// Onboarding is the full first-run profile: raw fields plus the loans and
// extra expense lines entered in the wizard.
type Onboarding struct {
	Patch
	Loans         []LoanInput    `json:"loans"`
	OtherExpenses []ExpenseInput `json:"otherExpenses"`
}
