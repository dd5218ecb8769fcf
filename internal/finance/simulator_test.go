package finance

import (
	"errors"
	"reflect"
	"testing"

	"finx/internal/core"
)

func simulatorBaseline() core.Snapshot {
	s := sampleSnapshot()
	s.OtherExpenses = []core.ExpenseItem{{ID: "e1", Name: "Gym", Amount: 8_000}}
	s.Loans = []core.Loan{{ID: "l1", Name: "Car", Amount: 1_000_000, InterestRate: 20, Duration: 12, MonthlyPayment: 92_635}}
	return Derive(s)
}

func ptr(v float64) *float64 { return &v }

func allScenarios() []Scenario {
	return []Scenario{
		{Kind: ScenarioAdjustExpenses, ExpenseCuts: ExpenseCuts{Subscriptions: 50, Utilities: 10, Entertainment: 100, Groceries: 20}},
		{Kind: ScenarioReallocateCash, Reallocation: Reallocation{AddToDeposit: 10_000, AddToCashSavings: 5_000, ExtraLoanPayment: 20_000}},
		{Kind: ScenarioNewLoan, NewLoan: &LoanTerms{Amount: 500_000, InterestRate: 22, Duration: 24}},
		{Kind: ScenarioHousingChange, Rent: ptr(90_000)},
		{Kind: ScenarioJobChange, Income: ptr(550_000)},
	}
}

func TestSimulateDoesNotMutateBaseline(t *testing.T) {
	for _, sc := range allScenarios() {
		t.Run(string(sc.Kind), func(t *testing.T) {
			base := simulatorBaseline()
			before := base.Clone()
			if _, err := Simulate(base, sc); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, err := Run(base, sc); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(base, before) {
				t.Fatalf("baseline mutated:\nbefore %+v\nafter  %+v", before, base)
			}
		})
	}
}

func TestSimulateSharesNoSlices(t *testing.T) {
	base := simulatorBaseline()
	sim, err := Simulate(base, Scenario{Kind: ScenarioNone})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sim.Loans[0].Amount = 1
	sim.OtherExpenses[0].Amount = 1
	if base.Loans[0].Amount != 1_000_000 || base.OtherExpenses[0].Amount != 8_000 {
		t.Fatalf("simulated snapshot aliases the baseline")
	}
}

func TestSimulateNoneKeepsOutcome(t *testing.T) {
	base := simulatorBaseline()
	sim, err := Simulate(base, Scenario{Kind: ScenarioNone})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(base, sim) {
		t.Fatalf("none scenario changed the snapshot")
	}
	if d := Compare(base, sim); d != (Delta{}) {
		t.Fatalf("expected zero delta, got %+v", d)
	}
}

func TestSimulateAdjustExpenses(t *testing.T) {
	base := simulatorBaseline()
	out, err := Run(base, allScenarios()[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sim := out.Simulated
	if sim.Subscriptions != 2_500 || sim.Utilities != 18_000 || sim.Entertainment != 0 || sim.Groceries != 12_000 {
		t.Fatalf("unexpected categories: %+v", sim)
	}
	if want := 120_000.0 + 18_000 + 2_500 + 0 + 12_000 + 8_000; sim.TotalExpenses != want {
		t.Fatalf("TotalExpenses = %v, want %v", sim.TotalExpenses, want)
	}
	if out.FreedUpCash != 17_500 {
		t.Fatalf("FreedUpCash = %v, want 17500", out.FreedUpCash)
	}
	if out.Delta.FreeCashFlow != 17_500 {
		t.Fatalf("free cash flow delta = %v, want 17500", out.Delta.FreeCashFlow)
	}
}

func TestSimulateReallocateCash(t *testing.T) {
	base := simulatorBaseline()
	sim, err := Simulate(base, allScenarios()[1])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sim.MonthlyDepositContribution != 50_000 || sim.CashSavings != 205_000 {
		t.Fatalf("unexpected savings: %v / %v", sim.MonthlyDepositContribution, sim.CashSavings)
	}
	if sim.TotalDebt != 760_000 {
		t.Fatalf("TotalDebt = %v, want 760000", sim.TotalDebt)
	}
	if sim.FreeCashFlow != base.FreeCashFlow-10_000 {
		t.Fatalf("FreeCashFlow = %v, want %v", sim.FreeCashFlow, base.FreeCashFlow-10_000)
	}

	huge := Scenario{Kind: ScenarioReallocateCash, Reallocation: Reallocation{ExtraLoanPayment: 1_000_000}}
	sim, _ = Simulate(base, huge)
	if sim.TotalDebt != 0 {
		t.Fatalf("TotalDebt = %v, want floor at 0", sim.TotalDebt)
	}
}

func TestSimulateNewLoan(t *testing.T) {
	base := simulatorBaseline()
	out, err := Run(base, allScenarios()[2])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Simulated.TotalDebt != base.TotalDebt+500_000 {
		t.Fatalf("TotalDebt = %v", out.Simulated.TotalDebt)
	}
	if out.Simulated.TotalMonthlyDebtPayment != base.TotalMonthlyDebtPayment+25_939 {
		t.Fatalf("TotalMonthlyDebtPayment = %v", out.Simulated.TotalMonthlyDebtPayment)
	}
	if out.Delta.RiskScore > 0 {
		t.Fatalf("taking on a loan should not raise the score, delta %d", out.Delta.RiskScore)
	}
	if out.LoanQuote == nil || out.LoanQuote.MonthlyPayment != 25_939 || len(out.LoanQuote.Schedule) != 24 {
		t.Fatalf("unexpected quote: %+v", out.LoanQuote)
	}
	if len(out.Simulated.Loans) != len(base.Loans) {
		t.Fatalf("simulation must not add a loan to the list")
	}

	long, err := Run(base, Scenario{Kind: ScenarioNewLoan, NewLoan: &LoanTerms{Amount: 1_000_000, InterestRate: 10, Duration: 120}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(long.LoanQuote.Schedule) != MaxQuoteScheduleRows {
		t.Fatalf("schedule rows = %d, want %d", len(long.LoanQuote.Schedule), MaxQuoteScheduleRows)
	}

	def, err := Simulate(base, Scenario{Kind: ScenarioNewLoan})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.TotalDebt != base.TotalDebt+DefaultLoanTerms.Amount {
		t.Fatalf("default terms not applied: %v", def.TotalDebt)
	}
}

func TestSimulateHousingAndJobChange(t *testing.T) {
	base := simulatorBaseline()

	sim, err := Simulate(base, allScenarios()[3])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sim.Rent != 90_000 || sim.TotalExpenses != base.TotalExpenses-30_000 {
		t.Fatalf("unexpected housing result: rent %v total %v", sim.Rent, sim.TotalExpenses)
	}

	sim, err = Simulate(base, allScenarios()[4])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sim.MonthlyIncome != 550_000 || sim.DebtToIncomeRatio != sim.TotalMonthlyDebtPayment/550_000 {
		t.Fatalf("unexpected job change result: %+v", sim)
	}

	sim, _ = Simulate(base, Scenario{Kind: ScenarioJobChange, Income: ptr(0)})
	if sim.RiskScore != 0 || sim.DebtToIncomeRatio != 0 {
		t.Fatalf("zero income: score %d, dti %v", sim.RiskScore, sim.DebtToIncomeRatio)
	}
}

func TestSimulateRejectsBadScenarios(t *testing.T) {
	base := simulatorBaseline()
	cases := []struct {
		name string
		sc   Scenario
		want error
	}{
		{"unknown", Scenario{Kind: "lottery"}, ErrUnknownScenario},
		{"cut over 100", Scenario{Kind: ScenarioAdjustExpenses, ExpenseCuts: ExpenseCuts{Groceries: 120}}, ErrInvalidScenario},
		{"negative reallocation", Scenario{Kind: ScenarioReallocateCash, Reallocation: Reallocation{AddToDeposit: -1}}, ErrInvalidScenario},
		{"zero duration loan", Scenario{Kind: ScenarioNewLoan, NewLoan: &LoanTerms{Amount: 1, Duration: 0}}, core.ErrInvalidDuration},
		{"negative rent", Scenario{Kind: ScenarioHousingChange, Rent: ptr(-1)}, core.ErrNegativeAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Simulate(base, tc.sc); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
