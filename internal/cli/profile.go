package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"finx/internal/core"
	"finx/internal/finance"
	"finx/internal/session"
)

// Profile is a TOML description of a household's raw inputs. Loan payments
// and every derived figure are computed on load.
//
//	monthly_income = 500000
//	rent = 150000
//
//	[[loans]]
//	name = "Car"
//	amount = 1000000
//	interest_rate = 20
//	duration = 12
type Profile struct {
	MonthlyIncome              float64  `toml:"monthly_income"`
	Rent                       float64  `toml:"rent"`
	Utilities                  float64  `toml:"utilities"`
	Subscriptions              float64  `toml:"subscriptions"`
	Entertainment              float64  `toml:"entertainment"`
	Groceries                  float64  `toml:"groceries"`
	Mortgage                   float64  `toml:"mortgage"`
	CashSavings                float64  `toml:"cash_savings"`
	DepositSavings             float64  `toml:"deposit_savings"`
	DepositInterestRate        *float64 `toml:"deposit_interest_rate"`
	MonthlyDepositContribution float64  `toml:"monthly_deposit_contribution"`

	Loans     []session.LoanInput    `toml:"loans"`
	Expenses  []session.ExpenseInput `toml:"expenses"`
	Scenarios []finance.Scenario     `toml:"scenarios"`
}

// LoadProfile reads and decodes a profile file.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("reading profile: %w", err)
	}
	return ParseProfile(string(data))
}

// ParseProfile decodes profile TOML. Unknown keys are rejected so typos do
// not silently zero a field.
func ParseProfile(data string) (Profile, error) {
	var p Profile
	md, err := toml.Decode(data, &p)
	if err != nil {
		return Profile{}, fmt.Errorf("parsing profile: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Profile{}, fmt.Errorf("parsing profile: unknown key %q", undecoded[0].String())
	}
	return p, nil
}

// Snapshot validates the profile and returns its derived snapshot.
func (p Profile) Snapshot() (core.Snapshot, error) {
	var rate float64 = core.DefaultDepositInterestRate
	if p.DepositInterestRate != nil {
		rate = *p.DepositInterestRate
	}

	o := session.Onboarding{
		Patch: session.Patch{
			MonthlyIncome:              &p.MonthlyIncome,
			Rent:                       &p.Rent,
			Utilities:                  &p.Utilities,
			Subscriptions:              &p.Subscriptions,
			Entertainment:              &p.Entertainment,
			Groceries:                  &p.Groceries,
			Mortgage:                   &p.Mortgage,
			CashSavings:                &p.CashSavings,
			DepositSavings:             &p.DepositSavings,
			DepositInterestRate:        &rate,
			MonthlyDepositContribution: &p.MonthlyDepositContribution,
		},
		Loans:         p.Loans,
		OtherExpenses: p.Expenses,
	}
	if o.Loans == nil {
		o.Loans = []session.LoanInput{}
	}
	if o.OtherExpenses == nil {
		o.OtherExpenses = []session.ExpenseInput{}
	}

	sess := session.New(core.DefaultSnapshot(), core.DefaultAchievements())
	if err := sess.CompleteOnboarding(o); err != nil {
		return core.Snapshot{}, fmt.Errorf("invalid profile: %w", err)
	}
	return sess.Snapshot(), nil
}

// Scenario looks up a profile scenario by name.
func (p Profile) Scenario(name string) (finance.Scenario, bool) {
	for _, sc := range p.Scenarios {
		if sc.Name == name {
			return sc, true
		}
	}
	return finance.Scenario{}, false
}
