package finance

import (
	"errors"
	"math"
	"strings"

	"github.com/google/uuid"

	"finx/internal/core"
)

// ErrInvalidTerm is returned when an amortization term is not positive.
var ErrInvalidTerm = errors.New("amortization term must be positive")

// Installment is one row of a true amortization schedule.
type Installment struct {
	Month     int     `json:"month"`
	Payment   float64 `json:"payment"`
	Interest  float64 `json:"interest"`
	Principal float64 `json:"principal"`
	Balance   float64 `json:"balance"`
}

// MonthlyPayment returns the fixed monthly payment for a loan of principal
// at annualRate percent over months. The result is not rounded.
func MonthlyPayment(principal, annualRate float64, months int) (float64, error) {
	if months <= 0 {
		return 0, ErrInvalidTerm
	}
	i := annualRate / 100 / 12
	n := float64(months)
	if i == 0 {
		return principal / n, nil
	}
	growth := math.Pow(1+i, n)
	return principal * i * growth / (growth - 1), nil
}

// NewLoan validates the terms and builds a loan with its payment cached.
func NewLoan(name string, amount, annualRate float64, months int) (core.Loan, error) {
	l := core.Loan{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Amount:       amount,
		InterestRate: annualRate,
		Duration:     months,
	}
	if err := l.Validate(); err != nil {
		return core.Loan{}, err
	}
	payment, err := MonthlyPayment(amount, annualRate, months)
	if err != nil {
		return core.Loan{}, err
	}
	l.MonthlyPayment = core.Round(payment)
	return l, nil
}

// TotalInterest is what a borrower pays above the principal over the full term.
func TotalInterest(principal, payment float64, months int) float64 {
	return core.Round(payment*float64(months) - principal)
}

// Schedule returns the month-by-month split of each payment into interest
// and principal. The final row absorbs the rounding residue so the balance
// closes at exactly zero.
func Schedule(principal, annualRate float64, months int) ([]Installment, error) {
	payment, err := MonthlyPayment(principal, annualRate, months)
	if err != nil {
		return nil, err
	}
	i := annualRate / 100 / 12
	rows := make([]Installment, 0, months)
	balance := principal
	for m := 1; m <= months; m++ {
		interest := balance * i
		p := payment - interest
		if m == months {
			p = balance
		}
		balance -= p
		rows = append(rows, Installment{
			Month:     m,
			Payment:   core.Round(p + interest),
			Interest:  core.Round(interest),
			Principal: core.Round(p),
			Balance:   math.Max(0, core.Round(balance)),
		})
	}
	return rows, nil
}
