package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"finx/internal/advisor"
	"finx/internal/cache"
	"finx/internal/core"
	"finx/internal/finance"
	"finx/internal/log"
	"finx/internal/ports"
	"finx/internal/session"
	"finx/internal/storage"
)

// Projection horizon bounds accepted by Projection.
const (
	DefaultProjectionMonths = 12
	MaxProjectionMonths     = 600
	MaxCompareScenarios     = 10
)

var (
	ErrAdvisorUnavailable = errors.New("advisor is not configured")
	ErrInvalidHorizon     = errors.New("projection months must be between 1 and 600")
	ErrTooManyScenarios   = errors.New("too many scenarios to compare")
)

// Dashboard is the snapshot plus everything the overview screen shows about it.
type Dashboard struct {
	Snapshot  core.Snapshot           `json:"snapshot"`
	Breakdown finance.ScoreBreakdown  `json:"breakdown"`
	RiskLevel string                  `json:"riskLevel"`
	Progress  finance.ProgressMetrics `json:"progress"`
}

// Mutation is the result of a state change: the new dashboard and any
// achievements it unlocked.
type Mutation struct {
	Dashboard
	Unlocked []core.Achievement `json:"unlocked"`
}

// FinanceService serializes access to the single session, persists every
// change and announces it to other processes.
type FinanceService struct {
	mu      sync.Mutex
	session *session.Session

	store       ports.BlobStore
	publisher   ports.EventPublisher
	chat        ports.ChatModel
	projections *cache.ProjectionCache
	now         func() time.Time
	logger      *log.Logger
}

// Option configures a FinanceService.
type Option func(*FinanceService)

// WithPublisher sets where snapshot events go. Without one, events are skipped.
func WithPublisher(p ports.EventPublisher) Option {
	return func(s *FinanceService) { s.publisher = p }
}

// WithChatModel enables the advisor.
func WithChatModel(m ports.ChatModel) Option {
	return func(s *FinanceService) { s.chat = m }
}

// WithProjectionCache memoizes projections.
func WithProjectionCache(c *cache.ProjectionCache) Option {
	return func(s *FinanceService) { s.projections = c }
}

// WithClock overrides the time source for projections and unlock timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *FinanceService) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(l *log.Logger) Option {
	return func(s *FinanceService) { s.logger = l.WithComponent(log.ComponentFinance) }
}

// NewFinanceService loads the stored snapshot and achievements and builds the
// session from them. Missing blobs mean a fresh profile.
func NewFinanceService(ctx context.Context, store ports.BlobStore, opts ...Option) (*FinanceService, error) {
	s := &FinanceService{
		store:  store,
		now:    time.Now,
		logger: log.Default().WithComponent(log.ComponentFinance),
	}
	for _, opt := range opts {
		opt(s)
	}

	snapshot := core.DefaultSnapshot()
	blob, err := store.Load(ctx, ports.SnapshotKey)
	switch {
	case err == nil:
		snapshot = storage.DecodeSnapshot(ctx, blob.Data)
	case !errors.Is(err, ports.ErrNotFound):
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var achievements []core.Achievement
	blob, err = store.Load(ctx, ports.AchievementsKey)
	switch {
	case err == nil:
		achievements = storage.DecodeAchievements(ctx, blob.Data)
	case !errors.Is(err, ports.ErrNotFound):
		return nil, fmt.Errorf("load achievements: %w", err)
	}

	s.session = session.New(snapshot, achievements, session.WithClock(s.now))

	loaded := s.session.Snapshot()
	s.logger.InfoContext(ctx, "Session loaded",
		log.FieldOperation, log.OpStartup,
		log.FieldOnboarded, loaded.OnboardingCompleted,
		log.FieldRiskScore, loaded.RiskScore,
		log.FieldLoans, len(loaded.Loans))
	return s, nil
}

// Snapshot returns a copy of the current derived snapshot.
func (s *FinanceService) Snapshot() core.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Snapshot()
}

// Dashboard returns the current snapshot with its score breakdown and progress.
func (s *FinanceService) Dashboard() Dashboard {
	return dashboardFor(s.Snapshot())
}

func dashboardFor(snap core.Snapshot) Dashboard {
	return Dashboard{
		Snapshot:  snap,
		Breakdown: finance.Breakdown(snap),
		RiskLevel: finance.RiskLevel(snap.RiskScore),
		Progress:  finance.Progress(snap),
	}
}

// UpdateSnapshot applies a partial update of raw fields.
func (s *FinanceService) UpdateSnapshot(ctx context.Context, p session.Patch) (Mutation, error) {
	return s.mutate(ctx, log.OpUpdate, func(sess *session.Session) error {
		return sess.Apply(p)
	})
}

// CompleteOnboarding stores the wizard profile and marks onboarding complete.
func (s *FinanceService) CompleteOnboarding(ctx context.Context, o session.Onboarding) (Mutation, error) {
	return s.mutate(ctx, log.OpOnboard, func(sess *session.Session) error {
		return sess.CompleteOnboarding(o)
	})
}

// AddLoan adds a loan with its payment computed once.
func (s *FinanceService) AddLoan(ctx context.Context, in session.LoanInput) (core.Loan, Mutation, error) {
	var loan core.Loan
	m, err := s.mutate(ctx, log.OpCreate, func(sess *session.Session) error {
		var err error
		loan, err = sess.AddLoan(in)
		return err
	})
	return loan, m, err
}

func (s *FinanceService) RemoveLoan(ctx context.Context, id string) (Mutation, error) {
	return s.mutate(ctx, log.OpDelete, func(sess *session.Session) error {
		return sess.RemoveLoan(id)
	})
}

func (s *FinanceService) AddExpense(ctx context.Context, in session.ExpenseInput) (core.ExpenseItem, Mutation, error) {
	var item core.ExpenseItem
	m, err := s.mutate(ctx, log.OpCreate, func(sess *session.Session) error {
		var err error
		item, err = sess.AddExpense(in)
		return err
	})
	return item, m, err
}

func (s *FinanceService) RemoveExpense(ctx context.Context, id string) (Mutation, error) {
	return s.mutate(ctx, log.OpDelete, func(sess *session.Session) error {
		return sess.RemoveExpense(id)
	})
}

// Achievements returns the achievement list.
func (s *FinanceService) Achievements() []core.Achievement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Achievements()
}

// UnlockAchievement unlocks id manually. Unlocking twice is not an error.
func (s *FinanceService) UnlockAchievement(ctx context.Context, id string) (core.Achievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.session.Unlock(id)
	if err != nil {
		return core.Achievement{}, err
	}
	if unlocked := s.session.TakeUnlocked(); len(unlocked) > 0 {
		s.logUnlocked(ctx, unlocked)
		s.persistAchievements(ctx)
	}
	return a, nil
}

// Reset discards the profile and achievements and deletes both stored blobs.
func (s *FinanceService) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session.Reset()
	if s.projections != nil {
		s.projections.Purge()
	}

	var errs []error
	for _, key := range []string{ports.SnapshotKey, ports.AchievementsKey} {
		if err := s.store.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Session reset", log.FieldOperation, log.OpReset)
	return nil
}

// Projection projects the current snapshot months ahead from the current month.
func (s *FinanceService) Projection(months int) ([]finance.ProjectionPoint, error) {
	if months < 1 || months > MaxProjectionMonths {
		return nil, ErrInvalidHorizon
	}
	snap := s.Snapshot()
	start := s.now()
	if s.projections != nil {
		return s.projections.Project(snap, months, start)
	}
	return finance.Project(snap, months, start), nil
}

// Simulate runs one scenario against the current snapshot.
func (s *FinanceService) Simulate(sc finance.Scenario) (finance.Outcome, error) {
	return finance.Run(s.Snapshot(), sc)
}

// CompareScenarios runs every scenario against the same baseline. Results
// keep the input order; the first invalid scenario fails the whole call.
func (s *FinanceService) CompareScenarios(ctx context.Context, scenarios []finance.Scenario) ([]finance.Outcome, error) {
	if len(scenarios) > MaxCompareScenarios {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyScenarios, len(scenarios), MaxCompareScenarios)
	}
	base := s.Snapshot()
	outcomes := make([]finance.Outcome, len(scenarios))

	g, ctx := errgroup.WithContext(ctx)
	for i, sc := range scenarios {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := finance.Run(base, sc)
			if err != nil {
				return fmt.Errorf("scenario %d: %w", i+1, err)
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// AdvisorContext returns the profile the advisor sees.
func (s *FinanceService) AdvisorContext() advisor.FinancialContext {
	return advisor.ContextFromSnapshot(s.Snapshot())
}

// Chat sends the conversation to the chat model with the current profile as
// the system prompt.
func (s *FinanceService) Chat(ctx context.Context, messages []ports.ChatMessage) (string, error) {
	if s.chat == nil {
		return "", ErrAdvisorUnavailable
	}
	if len(messages) == 0 {
		return "", advisor.ErrNoMessages
	}
	prompt := advisor.SystemPrompt(s.AdvisorContext())
	reply, err := s.chat.Complete(ctx, prompt, messages)
	if err != nil {
		return "", fmt.Errorf("advisor chat: %w", err)
	}
	return reply, nil
}

// AdvisorEnabled reports whether a chat model is configured.
func (s *FinanceService) AdvisorEnabled() bool {
	return s.chat != nil
}

// mutate runs fn on the session under the lock, then persists and publishes
// the new state. Persistence and publishing failures are logged; the session
// stays authoritative and the next change writes the full state again.
func (s *FinanceService) mutate(ctx context.Context, op string, fn func(*session.Session) error) (Mutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.session); err != nil {
		s.logger.WarnContext(ctx, "Mutation rejected",
			log.FieldOperation, op,
			log.FieldError, err)
		return Mutation{}, err
	}

	snap := s.session.Snapshot()
	unlocked := s.session.TakeUnlocked()

	s.persistSnapshot(ctx, snap)
	if len(unlocked) > 0 {
		s.logUnlocked(ctx, unlocked)
		s.persistAchievements(ctx)
	}

	s.logger.InfoContext(ctx, "Snapshot updated",
		log.FieldOperation, op,
		log.FieldRiskScore, snap.RiskScore,
		log.FieldFreeCashFlow, snap.FreeCashFlow)

	if unlocked == nil {
		unlocked = []core.Achievement{}
	}
	return Mutation{Dashboard: dashboardFor(snap), Unlocked: unlocked}, nil
}

func (s *FinanceService) persistSnapshot(ctx context.Context, snap core.Snapshot) {
	data, err := storage.EncodeSnapshot(snap)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to encode snapshot", log.FieldError, err)
		return
	}
	version, err := s.store.Save(ctx, ports.SnapshotKey, data)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist snapshot", log.FieldError, err)
		return
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSnapshotUpdated(ctx, ports.SnapshotKey, version, snap); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish snapshot event",
			log.FieldVersion, version,
			log.FieldError, err)
	}
}

func (s *FinanceService) persistAchievements(ctx context.Context) {
	data, err := storage.EncodeAchievements(s.session.Achievements())
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to encode achievements", log.FieldError, err)
		return
	}
	if _, err := s.store.Save(ctx, ports.AchievementsKey, data); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist achievements", log.FieldError, err)
	}
}

func (s *FinanceService) logUnlocked(ctx context.Context, unlocked []core.Achievement) {
	for _, a := range unlocked {
		s.logger.InfoContext(ctx, "Achievement unlocked", log.FieldAchievement, a.ID)
	}
}
