package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"finx/internal/core"
	"finx/internal/finance"
)

const testProfile = `
monthly_income = 500000
rent = 150000
utilities = 30000
groceries = 60000
cash_savings = 600000
monthly_deposit_contribution = 50000

[[loans]]
name = "Car"
amount = 1000000
interest_rate = 20
duration = 12

[[expenses]]
name = "Gym"
amount = 15000

[[scenarios]]
name = "Cut groceries"
kind = "adjust-expenses"
[scenarios.expense_cuts]
groceries = 50

[[scenarios]]
name = "Raise"
kind = "job-change"
income = 650000
`

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestProfileSnapshot(t *testing.T) {
	p, err := ParseProfile(testProfile)
	if err != nil {
		t.Fatalf("ParseProfile: %v", err)
	}
	if len(p.Scenarios) != 2 || p.Scenarios[0].ExpenseCuts.Groceries != 50 {
		t.Fatalf("scenarios = %+v", p.Scenarios)
	}
	if p.Scenarios[1].Income == nil || *p.Scenarios[1].Income != 650_000 {
		t.Fatalf("income override not decoded: %+v", p.Scenarios[1])
	}

	s, err := p.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if s.TotalMonthlyDebtPayment != 92_635 || s.TotalDebt != 1_000_000 {
		t.Errorf("loan totals = %v / %v", s.TotalMonthlyDebtPayment, s.TotalDebt)
	}
	if s.TotalExpenses != 255_000 {
		t.Errorf("TotalExpenses = %v", s.TotalExpenses)
	}
	if s.DepositInterestRate != core.DefaultDepositInterestRate {
		t.Errorf("missing rate should default, got %v", s.DepositInterestRate)
	}
	if s.RiskScore != finance.HealthScore(s) {
		t.Errorf("score not derived")
	}

	if _, ok := p.Scenario("Raise"); !ok {
		t.Error("named scenario not found")
	}
}

func TestParseProfileErrors(t *testing.T) {
	if _, err := ParseProfile(`monthly_incme = 5`); err == nil || !strings.Contains(err.Error(), "monthly_incme") {
		t.Errorf("unknown key err = %v", err)
	}
	if _, err := ParseProfile(`rent = `); err == nil {
		t.Error("expected a syntax error")
	}

	p, err := ParseProfile("rent = -5")
	if err != nil {
		t.Fatalf("ParseProfile: %v", err)
	}
	if _, err := p.Snapshot(); !errors.Is(err, core.ErrNegativeAmount) {
		t.Errorf("negative rent err = %v", err)
	}

	p, _ = ParseProfile("[[loans]]\nname = \"x\"\namount = 10\nduration = 0")
	if _, err := p.Snapshot(); !errors.Is(err, core.ErrInvalidDuration) {
		t.Errorf("bad loan err = %v", err)
	}
}

func TestScoreCommand(t *testing.T) {
	path := writeProfile(t, testProfile)

	out, err := run(t, "score", "--profile", path)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	for _, want := range []string{"Health score", "Score breakdown", "92 635 ₸", "Groceries", "Gym"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, "score", "--profile", path, "--json")
	if err != nil {
		t.Fatalf("score --json: %v", err)
	}
	var body struct {
		Snapshot  core.Snapshot          `json:"snapshot"`
		Breakdown finance.ScoreBreakdown `json:"breakdown"`
	}
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if body.Breakdown.Total != body.Snapshot.RiskScore {
		t.Errorf("breakdown total %d != score %d", body.Breakdown.Total, body.Snapshot.RiskScore)
	}
}

func TestCommandsRequireProfile(t *testing.T) {
	for _, name := range []string{"score", "project", "simulate"} {
		if _, err := run(t, name); !errors.Is(err, errNoProfile) {
			t.Errorf("%s without profile: %v", name, err)
		}
	}
}

func TestProjectCommand(t *testing.T) {
	path := writeProfile(t, testProfile)

	out, err := run(t, "project", "--profile", path, "--months", "36", "--json")
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	var body struct {
		Months        int                       `json:"months"`
		Points        []finance.ProjectionPoint `json:"points"`
		DebtFreeMonth *int                      `json:"debtFreeMonth"`
	}
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Points) != 36 || body.DebtFreeMonth == nil {
		t.Errorf("points=%d debtFree=%v", len(body.Points), body.DebtFreeMonth)
	}

	if _, err := run(t, "project", "--profile", path, "--months", "0"); err == nil {
		t.Error("expected error for zero months")
	}

	help, err := run(t, "project", "--help")
	if err != nil {
		t.Fatalf("project --help: %v", err)
	}
	if !strings.Contains(help, "360 (30 Years)") {
		t.Errorf("help should list the standard horizons:\n%s", help)
	}
}

func TestSimulateCommand(t *testing.T) {
	path := writeProfile(t, testProfile)

	out, err := run(t, "simulate", "--profile", path, "--json")
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	var body struct {
		Outcomes []finance.Outcome `json:"outcomes"`
	}
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Outcomes) != 2 || body.Outcomes[0].FreedUpCash != 30_000 {
		t.Fatalf("outcomes = %+v", body.Outcomes)
	}

	out, err = run(t, "simulate", "Raise", "--profile", path)
	if err != nil {
		t.Fatalf("simulate Raise: %v", err)
	}
	if !strings.Contains(out, "Raise") || strings.Contains(out, "Cut groceries") {
		t.Errorf("only the named scenario should run:\n%s", out)
	}

	if _, err := run(t, "simulate", "Lottery", "--profile", path); !errors.Is(err, finance.ErrUnknownScenario) {
		t.Errorf("unknown scenario err = %v", err)
	}

	empty := writeProfile(t, "monthly_income = 1")
	if _, err := run(t, "simulate", "--profile", empty); err == nil {
		t.Error("expected error for a profile without scenarios")
	}
}

func TestDepositCommand(t *testing.T) {
	out, err := run(t, "deposit", "--initial", "100 000", "--monthly", "10000", "--rate", "0", "--json")
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	var res finance.DepositGrowthResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.FinalAmount != 220_000 || res.InterestEarned != 0 || len(res.Months) != 12 {
		t.Errorf("result = %+v", res)
	}

	path := writeProfile(t, "deposit_savings = 1000\nmonthly_deposit_contribution = 500\ndeposit_interest_rate = 0")
	out, err = run(t, "deposit", "--profile", path, "--months", "2", "--json")
	if err != nil {
		t.Fatalf("deposit with profile: %v", err)
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.FinalAmount != 2_000 {
		t.Errorf("profile defaults not used: %+v", res)
	}

	if _, err := run(t, "deposit", "--initial=-1"); !errors.Is(err, core.ErrNegativeAmount) {
		t.Errorf("negative initial err = %v", err)
	}
}

func TestLoanCommand(t *testing.T) {
	out, err := run(t, "loan", "--amount", "1 000 000", "--rate", "20", "--months", "12", "--schedule", "--json")
	if err != nil {
		t.Fatalf("loan: %v", err)
	}
	var q finance.LoanQuote
	if err := json.Unmarshal([]byte(out), &q); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if q.MonthlyPayment != 92_635 || len(q.Schedule) != 12 {
		t.Fatalf("quote = %v, %d rows", q.MonthlyPayment, len(q.Schedule))
	}
	if last := q.Schedule[len(q.Schedule)-1]; last.Balance != 0 {
		t.Errorf("schedule should close at zero, got %v", last.Balance)
	}

	out, err = run(t, "loan", "--amount", "120000", "--months", "12")
	if err != nil {
		t.Fatalf("loan table: %v", err)
	}
	if !strings.Contains(out, "10 000 ₸") {
		t.Errorf("zero-rate payment missing:\n%s", out)
	}

	if _, err := run(t, "loan", "--amount", "1000", "--months", "0"); !errors.Is(err, core.ErrInvalidDuration) {
		t.Errorf("zero term err = %v", err)
	}
}

func TestRenderTable(t *testing.T) {
	got := RenderTable(Table{
		Headers: []string{"A", "B"},
		Rows:    [][]string{{"x", "1"}, {"---"}, {"longer", "22"}},
	})
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 7 {
		t.Fatalf("expected 7 lines, got %d:\n%s", len(lines), got)
	}
	if !strings.Contains(got, "longer") || !strings.Contains(got, "22") {
		t.Errorf("missing cells:\n%s", got)
	}
	if RenderTable(Table{}) != "" {
		t.Error("empty table should render nothing")
	}
}
