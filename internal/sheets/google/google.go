package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"finx/internal/core"
	"finx/internal/finance"
	"finx/internal/ports"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Default sheet names.
const (
	DefaultSummarySheet    = "Summary"
	DefaultProjectionSheet = "Projection"
)

// Exporter overwrites a summary sheet and a projection sheet on every export.
type Exporter struct {
	svc             *gsheet.Service
	spreadsheetID   string
	summarySheet    string
	projectionSheet string
}

var _ ports.ProjectionExporter = (*Exporter)(nil)

// Config selects the spreadsheet, the sheet names and the credentials.
type Config struct {
	SpreadsheetID      string
	SummarySheet       string
	ProjectionSheet    string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// NewFromEnv creates an exporter using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional sheet names: GOOGLE_SUMMARY_SHEET_NAME (default "Summary"),
// GOOGLE_PROJECTION_SHEET_NAME (default "Projection").
func NewFromEnv(ctx context.Context) (*Exporter, error) {
	return New(ctx, Config{
		SpreadsheetID:      os.Getenv("GOOGLE_SPREADSHEET_ID"),
		SummarySheet:       os.Getenv("GOOGLE_SUMMARY_SHEET_NAME"),
		ProjectionSheet:    os.Getenv("GOOGLE_PROJECTION_SHEET_NAME"),
		ServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		ServiceAccountFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	})
}

func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Exporter, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	if len(opts) == 0 {
		credentials, err := serviceAccountCredentials(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(credentials),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Exporter{
		svc:             svc,
		spreadsheetID:   spreadsheetID,
		summarySheet:    orDefault(cfg.SummarySheet, DefaultSummarySheet),
		projectionSheet: orDefault(cfg.ProjectionSheet, DefaultProjectionSheet),
	}, nil
}

// serviceAccountCredentials resolves inline JSON first, then a file path,
// then GOOGLE_APPLICATION_CREDENTIALS.
func serviceAccountCredentials(ctx context.Context, cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", file)
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// Export implements ports.ProjectionExporter. Both sheets are cleared before
// the new values are written so shorter projections leave no stale rows.
func (e *Exporter) Export(ctx context.Context, s core.Snapshot, points []finance.ProjectionPoint) error {
	if e.svc == nil {
		return errors.New("sheets service not initialized")
	}

	summaryRange := fmt.Sprintf("%s!A:C", e.summarySheet)
	projectionRange := fmt.Sprintf("%s!A:F", e.projectionSheet)

	_, err := e.svc.Spreadsheets.Values.BatchClear(e.spreadsheetID, &gsheet.BatchClearValuesRequest{
		Ranges: []string{summaryRange, projectionRange},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear export sheets: %w", err)
	}

	req := &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data: []*gsheet.ValueRange{
			{Range: fmt.Sprintf("%s!A1", e.summarySheet), Values: SummaryRows(s)},
			{Range: fmt.Sprintf("%s!A1", e.projectionSheet), Values: ProjectionRows(points)},
		},
	}
	resp, err := e.svc.Spreadsheets.Values.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write export sheets: %w", err)
	}

	slog.InfoContext(ctx, "Exported snapshot to Google Sheets",
		"spreadsheet_id", e.spreadsheetID,
		"updated_cells", resp.TotalUpdatedCells,
		"projection_months", len(points))
	return nil
}

// SummaryRows lays out the headline metrics and the score breakdown.
func SummaryRows(s core.Snapshot) [][]any {
	b := finance.Breakdown(s)
	return [][]any{
		{"Metric", "Value", "Max"},
		{"Monthly income", s.MonthlyIncome, ""},
		{"Total expenses", s.TotalExpenses, ""},
		{"Monthly debt payment", s.TotalMonthlyDebtPayment, ""},
		{"Free cash flow", s.FreeCashFlow, ""},
		{"Total debt", s.TotalDebt, ""},
		{"Debt-to-income", core.FormatPercent(s.DebtToIncomeRatio), ""},
		{"Cash savings", s.CashSavings, ""},
		{"Deposit savings", s.DepositSavings, ""},
		{"Deposit rate %", s.DepositInterestRate, ""},
		{"Monthly deposit contribution", s.MonthlyDepositContribution, ""},
		{"", "", ""},
		{"Cash flow", b.CashFlow, finance.MaxCashFlowScore},
		{"Debt-to-income", b.DebtToIncome, finance.MaxDebtToIncomeScore},
		{"Savings rate", b.SavingsRate, finance.MaxSavingsRateScore},
		{"Emergency cushion", b.EmergencyCushion, finance.MaxEmergencyCushionScore},
		{"Deposit discipline", b.DepositDiscipline, finance.MaxDepositDisciplineScore},
		{"Health score", s.RiskScore, 100},
		{"Risk level", finance.RiskLevel(s.RiskScore), ""},
	}
}

// ProjectionRows renders one row per projected month under a header row.
func ProjectionRows(points []finance.ProjectionPoint) [][]any {
	rows := make([][]any, 0, len(points)+1)
	rows = append(rows, []any{"Month", "Date", "Label", "Debt", "Savings", "Debt free"})
	for _, p := range points {
		debtFree := ""
		if p.DebtReachedZero {
			debtFree = "yes"
		}
		rows = append(rows, []any{
			p.MonthIndex,
			p.Date.Format("2006-01-02"),
			p.Label,
			p.ProjectedDebt,
			p.ProjectedSavings,
			debtFree,
		})
	}
	return rows
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
