package http

import (
	"net/http"

	"finx/internal/core"
	"finx/internal/log"
	"finx/internal/services"
	"finx/internal/session"
)

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.svc.Dashboard()).Write(w)
}

// handlePatchSnapshot applies a partial update of raw fields.
func (s *Server) handlePatchSnapshot(w http.ResponseWriter, r *http.Request) {
	var p session.Patch
	if err := decodeRawFields(w, r, &p); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	m, err := s.svc.UpdateSnapshot(r.Context(), p)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(m).Write(w)
}

func (s *Server) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	var o session.Onboarding
	if err := decodeRawFields(w, r, &o); err != nil {
		writeError(w, r, log.OpOnboard, err)
		return
	}
	m, err := s.svc.CompleteOnboarding(r.Context(), sanitizeOnboarding(o))
	if err != nil {
		writeError(w, r, log.OpOnboard, err)
		return
	}
	NewJSONResponse().Body(m).Write(w)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Reset(r.Context()); err != nil {
		writeError(w, r, log.OpReset, err)
		return
	}
	NewJSONResponse().Body(s.svc.Dashboard()).Write(w)
}

type achievementsResponse struct {
	Achievements []core.Achievement `json:"achievements"`
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(achievementsResponse{Achievements: s.svc.Achievements()}).Write(w)
}

type achievementResponse struct {
	Achievement core.Achievement `json:"achievement"`
}

func (s *Server) handleUnlockAchievement(w http.ResponseWriter, r *http.Request) {
	a, err := s.svc.UnlockAchievement(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(achievementResponse{Achievement: a}).Write(w)
}

// loanResponse is the created loan alongside the mutation result.
type loanResponse struct {
	Loan core.Loan `json:"loan"`
	services.Mutation
}

type expenseResponse struct {
	Expense core.ExpenseItem `json:"expense"`
	services.Mutation
}

func (s *Server) handleAddLoan(w http.ResponseWriter, r *http.Request) {
	var in session.LoanInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	loan, m, err := s.svc.AddLoan(r.Context(), sanitizeLoan(in))
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(loanResponse{Loan: loan, Mutation: m}).Write(w)
}

func (s *Server) handleRemoveLoan(w http.ResponseWriter, r *http.Request) {
	m, err := s.svc.RemoveLoan(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Body(m).Write(w)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var in session.ExpenseInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	item, m, err := s.svc.AddExpense(r.Context(), sanitizeExpense(in))
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(expenseResponse{Expense: item, Mutation: m}).Write(w)
}

func (s *Server) handleRemoveExpense(w http.ResponseWriter, r *http.Request) {
	m, err := s.svc.RemoveExpense(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Body(m).Write(w)
}
