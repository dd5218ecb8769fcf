package http

import (
	"strings"

	"finx/internal/session"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func sanitizeLoan(in session.LoanInput) session.LoanInput {
	in.Name = sanitizeInput(in.Name)
	return in
}

func sanitizeExpense(in session.ExpenseInput) session.ExpenseInput {
	in.Name = sanitizeInput(in.Name)
	in.Icon = sanitizeInput(in.Icon)
	return in
}

func sanitizeOnboarding(o session.Onboarding) session.Onboarding {
	for i := range o.Loans {
		o.Loans[i] = sanitizeLoan(o.Loans[i])
	}
	for i := range o.OtherExpenses {
		o.OtherExpenses[i] = sanitizeExpense(o.OtherExpenses[i])
	}
	return o
}
