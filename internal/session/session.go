// Package session holds the explicit session object that owns one financial
// snapshot and its achievement list. Every raw-field mutation is followed by
// the derive pipeline before the method returns, so readers never observe
// stale aggregates.
//
// A Session is not safe for concurrent use; callers serialize access.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"finx/internal/core"
	"finx/internal/finance"
)

var (
	ErrLoanNotFound       = errors.New("loan not found")
	ErrExpenseNotFound    = errors.New("expense not found")
	ErrUnknownAchievement = errors.New("unknown achievement")
)

// Session owns the current snapshot and achievements of a single user.
type Session struct {
	snapshot     core.Snapshot
	achievements []core.Achievement
	unlocked     []core.Achievement
	now          func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the time source used for unlock timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New builds a session from stored state and derives the snapshot. A nil
// achievement list means the defaults.
func New(snapshot core.Snapshot, achievements []core.Achievement, opts ...Option) *Session {
	if achievements == nil {
		achievements = core.DefaultAchievements()
	}
	s := &Session{
		snapshot:     finance.Derive(snapshot),
		achievements: append([]core.Achievement(nil), achievements...),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current derived snapshot.
func (s *Session) Snapshot() core.Snapshot {
	return s.snapshot.Clone()
}

// Achievements returns a copy of the achievement list.
func (s *Session) Achievements() []core.Achievement {
	return append([]core.Achievement(nil), s.achievements...)
}

// TakeUnlocked returns the achievements unlocked since the last call and clears the list.
func (s *Session) TakeUnlocked() []core.Achievement {
	out := s.unlocked
	s.unlocked = nil
	return out
}

// Apply updates raw fields and re-derives.
func (s *Session) Apply(p Patch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	next := s.snapshot.Clone()
	p.applyTo(&next)
	s.commit(next)
	return nil
}

// CompleteOnboarding replaces the profile with the wizard input, marks
// onboarding complete and unlocks the onboarding achievements.
func (s *Session) CompleteOnboarding(o Onboarding) error {
	if err := o.Patch.Validate(); err != nil {
		return err
	}
	next := s.snapshot.Clone()
	o.Patch.applyTo(&next)

	if o.Loans != nil {
		next.Loans = make([]core.Loan, 0, len(o.Loans))
		for i, in := range o.Loans {
			l, err := finance.NewLoan(in.Name, in.Amount, in.InterestRate, in.Duration)
			if err != nil {
				return fmt.Errorf("loan %d: %w", i+1, err)
			}
			next.Loans = append(next.Loans, l)
		}
	}
	if o.OtherExpenses != nil {
		next.OtherExpenses = make([]core.ExpenseItem, 0, len(o.OtherExpenses))
		for i, in := range o.OtherExpenses {
			item, err := in.toItem(uuid.NewString())
			if err != nil {
				return fmt.Errorf("expense %d: %w", i+1, err)
			}
			next.OtherExpenses = append(next.OtherExpenses, item)
		}
	}

	next.OnboardingCompleted = true
	s.commit(next)

	s.unlock(core.AchievementFirstBudget)
	if s.snapshot.MonthlyDepositContribution > 0 {
		s.unlock(core.AchievementSavingsStarted)
	}
	return nil
}

// AddLoan computes the loan's payment once and appends it.
func (s *Session) AddLoan(in LoanInput) (core.Loan, error) {
	l, err := finance.NewLoan(in.Name, in.Amount, in.InterestRate, in.Duration)
	if err != nil {
		return core.Loan{}, err
	}
	next := s.snapshot.Clone()
	next.Loans = append(next.Loans, l)
	s.commit(next)
	return l, nil
}

// RemoveLoan deletes the loan with id.
func (s *Session) RemoveLoan(id string) error {
	next := s.snapshot.Clone()
	for i, l := range next.Loans {
		if l.ID == id {
			next.Loans = append(next.Loans[:i], next.Loans[i+1:]...)
			s.commit(next)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrLoanNotFound, id)
}

// AddExpense appends a user-defined expense line.
func (s *Session) AddExpense(in ExpenseInput) (core.ExpenseItem, error) {
	item, err := in.toItem(uuid.NewString())
	if err != nil {
		return core.ExpenseItem{}, err
	}
	next := s.snapshot.Clone()
	next.OtherExpenses = append(next.OtherExpenses, item)
	s.commit(next)
	return item, nil
}

// RemoveExpense deletes the expense line with id.
func (s *Session) RemoveExpense(id string) error {
	next := s.snapshot.Clone()
	for i, e := range next.OtherExpenses {
		if e.ID == id {
			next.OtherExpenses = append(next.OtherExpenses[:i], next.OtherExpenses[i+1:]...)
			s.commit(next)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrExpenseNotFound, id)
}

// Unlock marks an achievement unlocked. Unlocking twice keeps the first timestamp.
func (s *Session) Unlock(id string) (core.Achievement, error) {
	for i := range s.achievements {
		if s.achievements[i].ID == id {
			s.unlock(id)
			return s.achievements[i], nil
		}
	}
	return core.Achievement{}, fmt.Errorf("%w: %s", ErrUnknownAchievement, id)
}

// Reset returns the session to the default snapshot and achievements.
func (s *Session) Reset() {
	s.snapshot = finance.Derive(core.DefaultSnapshot())
	s.achievements = core.DefaultAchievements()
	s.unlocked = nil
}

func (s *Session) commit(next core.Snapshot) {
	prev := s.snapshot
	s.snapshot = finance.Derive(next)
	for _, id := range triggered(prev, s.snapshot) {
		s.unlock(id)
	}
}

func (s *Session) unlock(id string) {
	for i := range s.achievements {
		if s.achievements[i].ID == id && s.achievements[i].Unlock(s.now()) {
			s.unlocked = append(s.unlocked, s.achievements[i])
			return
		}
	}
}
