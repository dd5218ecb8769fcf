package http

import (
	"fmt"
	"net/http"

	"finx/internal/finance"
	"finx/internal/log"
	"finx/internal/services"
)

type projectionResponse struct {
	Months        int                       `json:"months"`
	Points        []finance.ProjectionPoint `json:"points"`
	DebtFreeMonth *int                      `json:"debtFreeMonth"`
	Horizons      []finance.Horizon         `json:"horizons"`
}

// handleProjection projects the current snapshot ?months=N ahead.
func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	months, err := queryInt(r.URL.Query(), "months", services.DefaultProjectionMonths)
	if err != nil {
		writeError(w, r, log.OpProject, err)
		return
	}
	points, err := s.svc.Projection(months)
	if err != nil {
		writeError(w, r, log.OpProject, err)
		return
	}

	resp := projectionResponse{Months: months, Points: points, Horizons: finance.Horizons}
	if m, ok := finance.DebtFreeMonth(points); ok {
		resp.DebtFreeMonth = &m
	}
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var sc finance.Scenario
	if err := decodeJSON(w, r, &sc); err != nil {
		writeError(w, r, log.OpSimulate, err)
		return
	}
	out, err := s.svc.Simulate(sc)
	if err != nil {
		writeError(w, r, log.OpSimulate, err)
		return
	}
	NewJSONResponse().Body(out).Write(w)
}

type compareRequest struct {
	Scenarios []finance.Scenario `json:"scenarios"`
}

type compareResponse struct {
	Outcomes []finance.Outcome `json:"outcomes"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpSimulate, err)
		return
	}
	outcomes, err := s.svc.CompareScenarios(r.Context(), req.Scenarios)
	if err != nil {
		writeError(w, r, log.OpSimulate, err)
		return
	}
	NewJSONResponse().Body(compareResponse{Outcomes: outcomes}).Write(w)
}

// handleDepositCalculator compounds a deposit. Missing parameters default to
// the current snapshot's deposit balance, contribution and rate.
func (s *Server) handleDepositCalculator(w http.ResponseWriter, r *http.Request) {
	snap := s.svc.Snapshot()
	q := r.URL.Query()

	initial, err := queryAmount(q, "initial", snap.DepositSavings)
	if err != nil {
		writeError(w, r, log.OpProject, err)
		return
	}
	monthly, err := queryAmount(q, "monthly", snap.MonthlyDepositContribution)
	if err != nil {
		writeError(w, r, log.OpProject, err)
		return
	}
	rate, err := queryAmount(q, "rate", snap.DepositInterestRate)
	if err != nil {
		writeError(w, r, log.OpProject, err)
		return
	}
	months, err := queryInt(q, "months", services.DefaultProjectionMonths)
	if err != nil {
		writeError(w, r, log.OpProject, err)
		return
	}
	if months < 1 || months > services.MaxProjectionMonths {
		writeError(w, r, log.OpProject, fmt.Errorf("%w: months must be between 1 and %d", errInvalidInput, services.MaxProjectionMonths))
		return
	}

	NewJSONResponse().Body(finance.DepositGrowth(initial, monthly, rate, months)).Write(w)
}
