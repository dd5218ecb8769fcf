package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"finx/internal/core"
	"finx/internal/finance"
)

// MaxMonths bounds every projection and deposit horizon.
const MaxMonths = 600

var errNoProfile = errors.New("--profile is required")

type rootOptions struct {
	profile string
	json    bool
	now     func() time.Time
}

// NewRootCommand builds the finx-cli command tree writing to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	opts := &rootOptions{now: time.Now}

	root := &cobra.Command{
		Use:          "finx-cli",
		Short:        "Personal finance health score, projections and what-if scenarios",
		Long:         "Compute the financial health score, debt and savings projections and scenario outcomes for a TOML profile.",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&opts.profile, "profile", "p", "", "Profile TOML file")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "Print JSON instead of tables")

	root.AddCommand(
		newScoreCommand(opts),
		newProjectCommand(opts),
		newSimulateCommand(opts),
		newDepositCommand(opts),
		newLoanCommand(opts),
	)
	return root
}

func (o *rootOptions) loadProfile() (Profile, core.Snapshot, error) {
	if o.profile == "" {
		return Profile{}, core.Snapshot{}, errNoProfile
	}
	p, err := LoadProfile(o.profile)
	if err != nil {
		return Profile{}, core.Snapshot{}, err
	}
	s, err := p.Snapshot()
	if err != nil {
		return Profile{}, core.Snapshot{}, err
	}
	return p, s, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newScoreCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "score",
		Short: "Show the derived totals and the health score breakdown",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, s, err := opts.loadProfile()
			if err != nil {
				return err
			}
			b := finance.Breakdown(s)
			out := cmd.OutOrStdout()

			if opts.json {
				return writeJSON(out, struct {
					Snapshot  core.Snapshot           `json:"snapshot"`
					Breakdown finance.ScoreBreakdown  `json:"breakdown"`
					RiskLevel string                  `json:"riskLevel"`
					Progress  finance.ProgressMetrics `json:"progress"`
				}{s, b, finance.RiskLevel(s.RiskScore), finance.Progress(s)})
			}

			fmt.Fprintln(out, RenderTitle("FINANCIAL HEALTH"))
			fmt.Fprintln(out, RenderTable(Table{
				Headers: []string{"Metric", "Value"},
				Rows: [][]string{
					{"Monthly income", core.FormatTenge(s.MonthlyIncome)},
					{"Total expenses", core.FormatTenge(s.TotalExpenses)},
					{"Debt payments", core.FormatTenge(s.TotalMonthlyDebtPayment)},
					{"Free cash flow", core.FormatTenge(s.FreeCashFlow)},
					{"---"},
					{"Total debt", core.FormatTenge(s.TotalDebt)},
					{"Debt-to-income", core.FormatPercent(s.DebtToIncomeRatio)},
					{"Savings", core.FormatTenge(s.CurrentSavings)},
				},
			}))
			expenses := make([][]string, 0, 6+len(s.OtherExpenses))
			for _, c := range s.ExpenseCategories() {
				if c.Amount > 0 {
					expenses = append(expenses, []string{c.Name, core.FormatTenge(c.Amount)})
				}
			}
			for _, e := range s.OtherExpenses {
				expenses = append(expenses, []string{e.Name, core.FormatTenge(e.Amount)})
			}
			if len(expenses) > 0 {
				fmt.Fprintln(out, RenderTable(Table{
					Title:   "Expenses",
					Headers: []string{"Category", "Amount"},
					Rows:    expenses,
				}))
			}
			fmt.Fprintln(out, RenderTable(Table{
				Title:   "Score breakdown",
				Headers: []string{"Component", "Points", "Max"},
				Rows: [][]string{
					{"Cash flow", strconv.Itoa(b.CashFlow), strconv.Itoa(finance.MaxCashFlowScore)},
					{"Debt-to-income", strconv.Itoa(b.DebtToIncome), strconv.Itoa(finance.MaxDebtToIncomeScore)},
					{"Savings rate", strconv.Itoa(b.SavingsRate), strconv.Itoa(finance.MaxSavingsRateScore)},
					{"Emergency cushion", strconv.Itoa(b.EmergencyCushion), strconv.Itoa(finance.MaxEmergencyCushionScore)},
					{"Deposit discipline", strconv.Itoa(b.DepositDiscipline), strconv.Itoa(finance.MaxDepositDisciplineScore)},
				},
			}))
			fmt.Fprintln(out, "  Health score: "+RenderScore(s.RiskScore))
			return nil
		},
	}
}

func newProjectCommand(opts *rootOptions) *cobra.Command {
	var months int
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Project debt and savings month by month",
		Long:  "Project debt and savings month by month.\n\nStandard horizons: " + horizonList() + ".",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if months < 1 || months > MaxMonths {
				return fmt.Errorf("--months must be between 1 and %d", MaxMonths)
			}
			_, s, err := opts.loadProfile()
			if err != nil {
				return err
			}
			points := finance.Project(s, months, opts.now())
			debtFree, ok := finance.DebtFreeMonth(points)
			out := cmd.OutOrStdout()

			if opts.json {
				resp := struct {
					Months        int                       `json:"months"`
					Points        []finance.ProjectionPoint `json:"points"`
					DebtFreeMonth *int                      `json:"debtFreeMonth"`
				}{Months: months, Points: points}
				if ok {
					resp.DebtFreeMonth = &debtFree
				}
				return writeJSON(out, resp)
			}

			rows := make([][]string, 0, len(points))
			for _, p := range points {
				rows = append(rows, []string{
					strconv.Itoa(p.MonthIndex),
					p.Date.Format("Jan 2006"),
					core.FormatTenge(p.ProjectedDebt),
					core.FormatTenge(p.ProjectedSavings),
				})
			}
			fmt.Fprintln(out, RenderTitle(fmt.Sprintf("PROJECTION  %d months", months)))
			fmt.Fprintln(out, RenderTable(Table{
				Headers: []string{"Month", "Date", "Debt", "Savings"},
				Rows:    rows,
			}))
			switch {
			case ok:
				fmt.Fprintf(out, "  Debt free in month %d\n", debtFree)
			case s.TotalDebt > 0:
				fmt.Fprintln(out, mutedStyle.Render("  Debt remains at the end of the horizon"))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&months, "months", "m", 12, "Projection horizon in months")
	return cmd
}

func horizonList() string {
	var b strings.Builder
	for i, h := range finance.Horizons {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d (%s)", h.Months, h.Label)
	}
	return b.String()
}

func newSimulateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "simulate [scenario...]",
		Short: "Run the profile's named scenarios, or all of them",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, s, err := opts.loadProfile()
			if err != nil {
				return err
			}

			scenarios := p.Scenarios
			if len(args) > 0 {
				scenarios = make([]finance.Scenario, 0, len(args))
				for _, name := range args {
					sc, ok := p.Scenario(name)
					if !ok {
						return fmt.Errorf("%w: no scenario named %q in profile", finance.ErrUnknownScenario, name)
					}
					scenarios = append(scenarios, sc)
				}
			}
			if len(scenarios) == 0 {
				return errors.New("profile defines no scenarios")
			}

			outcomes := make([]finance.Outcome, 0, len(scenarios))
			for _, sc := range scenarios {
				o, err := finance.Run(s, sc)
				if err != nil {
					return fmt.Errorf("scenario %q: %w", scenarioLabel(sc), err)
				}
				outcomes = append(outcomes, o)
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return writeJSON(out, struct {
					Outcomes []finance.Outcome `json:"outcomes"`
				}{outcomes})
			}

			rows := make([][]string, 0, len(outcomes))
			for _, o := range outcomes {
				rows = append(rows, []string{
					scenarioLabel(o.Scenario),
					fmt.Sprintf("%d (%+d)", o.Simulated.RiskScore, o.Delta.RiskScore),
					o.RiskLevel,
					FormatSigned(core.FormatTenge, o.Delta.FreeCashFlow),
					core.FormatPercent(o.Simulated.DebtToIncomeRatio),
				})
			}
			fmt.Fprintln(out, RenderTitle("WHAT-IF SCENARIOS"))
			fmt.Fprintf(out, "  Baseline: %s\n\n", RenderScore(s.RiskScore))
			fmt.Fprintln(out, RenderTable(Table{
				Headers: []string{"Scenario", "Score", "Risk", "Cash flow", "DTI"},
				Rows:    rows,
			}))
			for _, o := range outcomes {
				if o.LoanQuote != nil {
					fmt.Fprintf(out, "  %s: %s per month, %s total interest\n",
						scenarioLabel(o.Scenario),
						core.FormatTenge(o.LoanQuote.MonthlyPayment),
						core.FormatTenge(o.LoanQuote.TotalInterest))
				}
			}
			return nil
		},
	}
}

func scenarioLabel(sc finance.Scenario) string {
	if sc.Name != "" {
		return sc.Name
	}
	if sc.Kind == "" {
		return string(finance.ScenarioNone)
	}
	return string(sc.Kind)
}

func newDepositCommand(opts *rootOptions) *cobra.Command {
	var initial, monthly, rate string
	var months int
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Compound a deposit monthly",
		Long:  "Compound a deposit monthly. Amounts left unset come from --profile when given.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if months < 1 || months > MaxMonths {
				return fmt.Errorf("--months must be between 1 and %d", MaxMonths)
			}
			base := core.DefaultSnapshot()
			if opts.profile != "" {
				_, s, err := opts.loadProfile()
				if err != nil {
					return err
				}
				base = s
			}

			initialAmount, err := amountFlag("initial", initial, base.DepositSavings)
			if err != nil {
				return err
			}
			monthlyAmount, err := amountFlag("monthly", monthly, base.MonthlyDepositContribution)
			if err != nil {
				return err
			}
			annualRate, err := amountFlag("rate", rate, base.DepositInterestRate)
			if err != nil {
				return err
			}

			res := finance.DepositGrowth(initialAmount, monthlyAmount, annualRate, months)
			out := cmd.OutOrStdout()
			if opts.json {
				return writeJSON(out, res)
			}

			fmt.Fprintln(out, RenderTitle(fmt.Sprintf("DEPOSIT  %d months at %.1f%%", months, annualRate)))
			fmt.Fprintln(out, RenderTable(Table{
				Headers: []string{"Metric", "Value"},
				Rows: [][]string{
					{"Final amount", core.FormatTenge(res.FinalAmount)},
					{"Contributed", core.FormatTenge(res.TotalContributed)},
					{"Interest earned", core.FormatTenge(res.InterestEarned)},
				},
			}))
			return nil
		},
	}
	cmd.Flags().StringVar(&initial, "initial", "", "Starting balance")
	cmd.Flags().StringVar(&monthly, "monthly", "", "Monthly contribution")
	cmd.Flags().StringVar(&rate, "rate", "", "Annual interest rate in percent")
	cmd.Flags().IntVarP(&months, "months", "m", 12, "Horizon in months")
	return cmd
}

// amountFlag parses a money or rate flag, returning def when unset.
func amountFlag(name, value string, def float64) (float64, error) {
	if value == "" {
		return def, nil
	}
	v, err := core.ParseAmount(value)
	if err != nil {
		return 0, fmt.Errorf("--%s: %w", name, err)
	}
	return v, nil
}

func newLoanCommand(opts *rootOptions) *cobra.Command {
	var amount, rate string
	var months int
	var schedule bool
	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Quote the monthly payment of an annuity loan",
		RunE: func(cmd *cobra.Command, _ []string) error {
			principal, err := amountFlag("amount", amount, 0)
			if err != nil {
				return err
			}
			annualRate, err := amountFlag("rate", rate, 0)
			if err != nil {
				return err
			}
			if _, err := finance.NewLoan("quote", principal, annualRate, months); err != nil {
				return err
			}

			payment, err := finance.MonthlyPayment(principal, annualRate, months)
			if err != nil {
				return err
			}
			payment = core.Round(payment)
			quote := finance.LoanQuote{
				Terms:          finance.LoanTerms{Amount: principal, InterestRate: annualRate, Duration: months},
				MonthlyPayment: payment,
				TotalInterest:  finance.TotalInterest(principal, payment, months),
			}
			if schedule {
				if quote.Schedule, err = finance.Schedule(principal, annualRate, months); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return writeJSON(out, quote)
			}

			fmt.Fprintln(out, RenderTitle("LOAN QUOTE"))
			fmt.Fprintln(out, RenderTable(Table{
				Headers: []string{"Metric", "Value"},
				Rows: [][]string{
					{"Principal", core.FormatTenge(principal)},
					{"Rate", strconv.FormatFloat(annualRate, 'f', -1, 64) + "%"},
					{"Term", fmt.Sprintf("%d months", months)},
					{"---"},
					{"Monthly payment", core.FormatTenge(payment)},
					{"Total interest", core.FormatTenge(quote.TotalInterest)},
				},
			}))
			if schedule {
				rows := make([][]string, 0, len(quote.Schedule))
				for _, in := range quote.Schedule {
					rows = append(rows, []string{
						strconv.Itoa(in.Month),
						core.FormatTenge(in.Payment),
						core.FormatTenge(in.Interest),
						core.FormatTenge(in.Principal),
						core.FormatTenge(in.Balance),
					})
				}
				fmt.Fprintln(out, RenderTable(Table{
					Title:   "Schedule",
					Headers: []string{"Month", "Payment", "Interest", "Principal", "Balance"},
					Rows:    rows,
				}))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "Principal")
	cmd.Flags().StringVar(&rate, "rate", "0", "Annual interest rate in percent")
	cmd.Flags().IntVarP(&months, "months", "m", 12, "Term in months")
	cmd.Flags().BoolVar(&schedule, "schedule", false, "Print the amortization schedule")
	return cmd
}
