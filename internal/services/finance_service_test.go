package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"finx/internal/advisor"
	"finx/internal/cache"
	"finx/internal/core"
	"finx/internal/finance"
	"finx/internal/ports"
	"finx/internal/session"
	"finx/internal/storage"
	"finx/internal/storage/memory"
)

var fixedNow = time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)

type publishedEvent struct {
	key     string
	version int64
	score   int
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *fakePublisher) PublishSnapshotUpdated(_ context.Context, key string, version int64, s core.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{key: key, version: version, score: s.RiskScore})
	return nil
}

type fakeChat struct {
	system   string
	messages []ports.ChatMessage
	reply    string
	err      error
}

func (c *fakeChat) Complete(_ context.Context, system string, messages []ports.ChatMessage) (string, error) {
	c.system = system
	c.messages = messages
	return c.reply, c.err
}

type failingStore struct {
	*memory.Store
	loadErr error
	saveErr error
}

func (s *failingStore) Load(ctx context.Context, key string) (ports.Blob, error) {
	if s.loadErr != nil {
		return ports.Blob{}, s.loadErr
	}
	return s.Store.Load(ctx, key)
}

func (s *failingStore) Save(ctx context.Context, key string, data []byte) (int64, error) {
	if s.saveErr != nil {
		return 0, s.saveErr
	}
	return s.Store.Save(ctx, key, data)
}

func f(v float64) *float64 { return &v }

func newTestService(t *testing.T, store ports.BlobStore, opts ...Option) *FinanceService {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	svc, err := NewFinanceService(context.Background(), store, opts...)
	if err != nil {
		t.Fatalf("NewFinanceService: %v", err)
	}
	return svc
}

func onboard(t *testing.T, svc *FinanceService) Mutation {
	t.Helper()
	m, err := svc.CompleteOnboarding(context.Background(), session.Onboarding{
		Patch: session.Patch{
			MonthlyIncome:              f(500_000),
			Rent:                       f(150_000),
			Utilities:                  f(30_000),
			Groceries:                  f(60_000),
			CashSavings:                f(600_000),
			DepositSavings:             f(200_000),
			MonthlyDepositContribution: f(50_000),
		},
		Loans: []session.LoanInput{{Name: "Car", Amount: 1_000_000, InterestRate: 20, Duration: 12}},
	})
	if err != nil {
		t.Fatalf("CompleteOnboarding: %v", err)
	}
	return m
}

func TestNewFinanceServiceFreshStore(t *testing.T) {
	svc := newTestService(t, memory.New())
	snap := svc.Snapshot()
	if snap.DepositInterestRate != core.DefaultDepositInterestRate || snap.OnboardingCompleted {
		t.Fatalf("expected default snapshot, got %+v", snap)
	}
	if n := len(svc.Achievements()); n != len(core.DefaultAchievements()) {
		t.Errorf("achievements = %d", n)
	}
}

func TestNewFinanceServiceLoadsLegacyBlob(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.Save(ctx, ports.SnapshotKey, []byte(`{"monthlyIncome": 300000, "rent": 100000, "currentSavings": 150000, "plannedMonthlySavings": 25000, "loans": [], "otherExpenses": []}`))

	svc := newTestService(t, store)
	snap := svc.Snapshot()
	if snap.CashSavings != 150_000 || snap.MonthlyDepositContribution != 25_000 {
		t.Fatalf("legacy blob not migrated: %+v", snap)
	}
	if snap.FreeCashFlow != 300_000-100_000-25_000 {
		t.Errorf("loaded snapshot not derived: FreeCashFlow = %v", snap.FreeCashFlow)
	}
}

func TestNewFinanceServiceLoadError(t *testing.T) {
	store := &failingStore{Store: memory.New(), loadErr: errors.New("disk gone")}
	if _, err := NewFinanceService(context.Background(), store); err == nil {
		t.Fatal("expected load error")
	}
}

func TestMutationsPersistAndPublish(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	pub := &fakePublisher{}
	svc := newTestService(t, store, WithPublisher(pub))

	m := onboard(t, svc)
	if !m.Snapshot.OnboardingCompleted || m.Snapshot.TotalMonthlyDebtPayment != 92_635 {
		t.Fatalf("unexpected snapshot: %+v", m.Snapshot)
	}
	if m.RiskLevel != finance.RiskLevel(m.Snapshot.RiskScore) || m.Breakdown.Total != m.Snapshot.RiskScore {
		t.Errorf("dashboard inconsistent: %+v", m.Dashboard)
	}
	ids := map[string]bool{}
	for _, a := range m.Unlocked {
		ids[a.ID] = true
	}
	if !ids[core.AchievementFirstBudget] || !ids[core.AchievementSavingsStarted] {
		t.Errorf("onboarding achievements missing: %v", ids)
	}

	blob, err := store.Load(ctx, ports.SnapshotKey)
	if err != nil {
		t.Fatalf("snapshot not persisted: %v", err)
	}
	stored := storage.DecodeSnapshot(ctx, blob.Data)
	if stored.MonthlyIncome != 500_000 || len(stored.Loans) != 1 {
		t.Errorf("stored snapshot = %+v", stored)
	}
	achBlob, err := store.Load(ctx, ports.AchievementsKey)
	if err != nil {
		t.Fatalf("achievements not persisted: %v", err)
	}
	if list := storage.DecodeAchievements(ctx, achBlob.Data); !list[0].Unlocked {
		t.Errorf("first-budget not stored as unlocked")
	}

	if _, err := svc.UpdateSnapshot(ctx, session.Patch{Rent: f(140_000)}); err != nil {
		t.Fatalf("UpdateSnapshot: %v", err)
	}
	if len(pub.events) != 2 || pub.events[1].version != 2 || pub.events[1].key != ports.SnapshotKey {
		t.Errorf("events = %+v", pub.events)
	}

	// A fresh service sees the persisted state.
	reloaded := newTestService(t, store)
	if reloaded.Snapshot().Rent != 140_000 {
		t.Errorf("reloaded rent = %v", reloaded.Snapshot().Rent)
	}
}

func TestPublishAndSaveFailuresDoNotFailMutation(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{err: errors.New("broker down")}
	store := &failingStore{Store: memory.New()}
	svc := newTestService(t, store, WithPublisher(pub))

	if _, err := svc.UpdateSnapshot(ctx, session.Patch{MonthlyIncome: f(100_000)}); err != nil {
		t.Fatalf("publish failure leaked: %v", err)
	}
	store.saveErr = errors.New("read-only filesystem")
	if _, err := svc.UpdateSnapshot(ctx, session.Patch{Rent: f(10_000)}); err != nil {
		t.Fatalf("save failure leaked: %v", err)
	}
	if svc.Snapshot().Rent != 10_000 {
		t.Error("session should keep the change")
	}
}

func TestRejectedMutationLeavesState(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newTestService(t, store)

	if _, err := svc.UpdateSnapshot(ctx, session.Patch{Rent: f(-5)}); !errors.Is(err, core.ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
	if _, err := store.Load(ctx, ports.SnapshotKey); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("rejected change was persisted")
	}
	if _, err := svc.RemoveLoan(ctx, "missing"); !errors.Is(err, session.ErrLoanNotFound) {
		t.Errorf("expected ErrLoanNotFound, got %v", err)
	}
	if _, err := svc.RemoveExpense(ctx, "missing"); !errors.Is(err, session.ErrExpenseNotFound) {
		t.Errorf("expected ErrExpenseNotFound, got %v", err)
	}
}

func TestLoansAndExpenses(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.New())
	svc.UpdateSnapshot(ctx, session.Patch{MonthlyIncome: f(300_000)})

	loan, m, err := svc.AddLoan(ctx, session.LoanInput{Name: "Phone", Amount: 240_000, InterestRate: 0, Duration: 12})
	if err != nil {
		t.Fatalf("AddLoan: %v", err)
	}
	if loan.ID == "" || loan.MonthlyPayment != 20_000 || m.Snapshot.TotalMonthlyDebtPayment != 20_000 {
		t.Errorf("loan = %+v, debt payment = %v", loan, m.Snapshot.TotalMonthlyDebtPayment)
	}

	item, m, err := svc.AddExpense(ctx, session.ExpenseInput{Name: "Gym", Amount: 15_000})
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if m.Snapshot.TotalExpenses != 15_000 {
		t.Errorf("TotalExpenses = %v", m.Snapshot.TotalExpenses)
	}

	if _, err := svc.RemoveLoan(ctx, loan.ID); err != nil {
		t.Fatalf("RemoveLoan: %v", err)
	}
	m, err = svc.RemoveExpense(ctx, item.ID)
	if err != nil {
		t.Fatalf("RemoveExpense: %v", err)
	}
	if m.Snapshot.TotalDebt != 0 || m.Snapshot.TotalExpenses != 0 {
		t.Errorf("removals not derived: %+v", m.Snapshot)
	}

	if _, _, err := svc.AddLoan(ctx, session.LoanInput{Name: "Bad", Amount: 100, Duration: 0}); !errors.Is(err, core.ErrInvalidDuration) {
		t.Errorf("expected ErrInvalidDuration, got %v", err)
	}
}

func TestUnlockAchievement(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newTestService(t, store)

	a, err := svc.UnlockAchievement(ctx, core.AchievementSmartCredit)
	if err != nil {
		t.Fatalf("UnlockAchievement: %v", err)
	}
	if !a.Unlocked || a.UnlockedAt == nil || !a.UnlockedAt.Equal(fixedNow) {
		t.Errorf("achievement = %+v", a)
	}
	blob, err := store.Load(ctx, ports.AchievementsKey)
	if err != nil || blob.Version != 1 {
		t.Fatalf("achievements not saved: %v", err)
	}

	if _, err := svc.UnlockAchievement(ctx, core.AchievementSmartCredit); err != nil {
		t.Fatalf("second unlock: %v", err)
	}
	if blob, _ := store.Load(ctx, ports.AchievementsKey); blob.Version != 1 {
		t.Errorf("repeat unlock should not rewrite achievements")
	}

	if _, err := svc.UnlockAchievement(ctx, "no-such"); !errors.Is(err, session.ErrUnknownAchievement) {
		t.Errorf("expected ErrUnknownAchievement, got %v", err)
	}
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := newTestService(t, store, WithProjectionCache(cache.NewProjectionCache(4, time.Minute)))
	onboard(t, svc)
	if _, err := svc.Projection(12); err != nil {
		t.Fatalf("Projection: %v", err)
	}

	if err := svc.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if snap := svc.Snapshot(); snap.MonthlyIncome != 0 || snap.OnboardingCompleted {
		t.Errorf("snapshot not reset: %+v", snap)
	}
	for _, a := range svc.Achievements() {
		if a.Unlocked {
			t.Errorf("%s still unlocked", a.ID)
		}
	}
	for _, key := range []string{ports.SnapshotKey, ports.AchievementsKey} {
		if _, err := store.Load(ctx, key); !errors.Is(err, ports.ErrNotFound) {
			t.Errorf("%s not deleted", key)
		}
	}
}

func TestProjection(t *testing.T) {
	svc := newTestService(t, memory.New(), WithProjectionCache(cache.NewProjectionCache(4, time.Minute)))
	onboard(t, svc)

	points, err := svc.Projection(24)
	if err != nil {
		t.Fatalf("Projection: %v", err)
	}
	want := finance.Project(svc.Snapshot(), 24, fixedNow)
	if len(points) != 24 || points[23] != want[23] {
		t.Errorf("projection differs from the core computation")
	}
	if points[0].Date.Month() != time.March {
		t.Errorf("projection should start in the current month, got %v", points[0].Date)
	}

	for _, months := range []int{0, -1, MaxProjectionMonths + 1} {
		if _, err := svc.Projection(months); !errors.Is(err, ErrInvalidHorizon) {
			t.Errorf("Projection(%d) err = %v", months, err)
		}
	}
}

func TestSimulateAndCompare(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.New())
	onboard(t, svc)
	before := svc.Snapshot()

	out, err := svc.Simulate(finance.Scenario{Kind: finance.ScenarioAdjustExpenses, ExpenseCuts: finance.ExpenseCuts{Groceries: 50}})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if out.FreedUpCash != 30_000 {
		t.Errorf("FreedUpCash = %v, want 30000", out.FreedUpCash)
	}

	scenarios := []finance.Scenario{
		{Kind: finance.ScenarioNone},
		{Kind: finance.ScenarioNewLoan},
		{Kind: finance.ScenarioJobChange, Income: f(700_000)},
	}
	outcomes, err := svc.CompareScenarios(ctx, scenarios)
	if err != nil {
		t.Fatalf("CompareScenarios: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("outcomes = %d", len(outcomes))
	}
	for i, o := range outcomes {
		if o.Scenario.Kind != scenarios[i].Kind {
			t.Errorf("outcome %d out of order: %s", i, o.Scenario.Kind)
		}
	}
	if outcomes[1].LoanQuote == nil || outcomes[2].Simulated.MonthlyIncome != 700_000 {
		t.Errorf("unexpected outcomes: %+v", outcomes)
	}

	if _, err := svc.CompareScenarios(ctx, []finance.Scenario{{Kind: "lottery"}}); !errors.Is(err, finance.ErrUnknownScenario) {
		t.Errorf("expected ErrUnknownScenario, got %v", err)
	}
	if _, err := svc.CompareScenarios(ctx, make([]finance.Scenario, MaxCompareScenarios+1)); !errors.Is(err, ErrTooManyScenarios) {
		t.Errorf("expected ErrTooManyScenarios, got %v", err)
	}

	if after := svc.Snapshot(); after.RiskScore != before.RiskScore || after.Groceries != before.Groceries {
		t.Error("simulation changed the session")
	}
}

func TestChat(t *testing.T) {
	ctx := context.Background()
	msgs := []ports.ChatMessage{{Role: "user", Content: "Should I repay the car loan early?"}}

	svc := newTestService(t, memory.New())
	if svc.AdvisorEnabled() {
		t.Error("advisor should be disabled without a chat model")
	}
	if _, err := svc.Chat(ctx, msgs); !errors.Is(err, ErrAdvisorUnavailable) {
		t.Fatalf("expected ErrAdvisorUnavailable, got %v", err)
	}

	chat := &fakeChat{reply: "Yes, the rate is high."}
	svc = newTestService(t, memory.New(), WithChatModel(chat))
	onboard(t, svc)

	reply, err := svc.Chat(ctx, msgs)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply != "Yes, the rate is high." {
		t.Errorf("reply = %q", reply)
	}
	if chat.system != advisor.SystemPrompt(svc.AdvisorContext()) {
		t.Error("system prompt not built from the current snapshot")
	}
	if len(chat.messages) != 1 {
		t.Errorf("messages = %+v", chat.messages)
	}

	if _, err := svc.Chat(ctx, nil); !errors.Is(err, advisor.ErrNoMessages) {
		t.Errorf("expected ErrNoMessages, got %v", err)
	}

	chat.err = errors.New("upstream 500")
	if _, err := svc.Chat(ctx, msgs); err == nil {
		t.Error("expected chat error")
	}
}

func TestConcurrentMutations(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.New())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := svc.AddExpense(ctx, session.ExpenseInput{Name: "Coffee", Amount: 1_000}); err != nil {
				t.Errorf("AddExpense: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := svc.Snapshot().TotalExpenses; got != 20_000 {
		t.Errorf("TotalExpenses = %v, want 20000", got)
	}
}
