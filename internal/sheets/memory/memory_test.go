package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"finx/internal/core"
	"finx/internal/finance"
)

func TestExporterRecordsCopies(t *testing.T) {
	e := New()
	if _, ok := e.Last(); ok {
		t.Fatal("new exporter should have no exports")
	}

	s := core.DefaultSnapshot()
	s.Loans = []core.Loan{{ID: "a", Name: "Car", Amount: 100, Duration: 2, MonthlyPayment: 50}}
	points := finance.Project(finance.Derive(s), 2, time.Now())
	if err := e.Export(context.Background(), s, points); err != nil {
		t.Fatalf("Export: %v", err)
	}

	s.Loans[0].Name = "changed"
	points[0].ProjectedDebt = -1

	last, ok := e.Last()
	if !ok {
		t.Fatal("expected an export")
	}
	if last.Snapshot.Loans[0].Name != "Car" || last.Points[0].ProjectedDebt == -1 {
		t.Errorf("export aliases caller data: %+v", last)
	}
}

func TestExporterFailWith(t *testing.T) {
	e := New()
	boom := errors.New("quota exceeded")
	e.FailWith(boom)
	if err := e.Export(context.Background(), core.DefaultSnapshot(), nil); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	e.FailWith(nil)
	if err := e.Export(context.Background(), core.DefaultSnapshot(), nil); err != nil {
		t.Fatalf("expected success after reset, got %v", err)
	}
	if n := len(e.Exports()); n != 1 {
		t.Errorf("recorded %d exports, want 1", n)
	}
}
