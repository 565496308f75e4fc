package http

import (
	"net/http"

	"tally/internal/core"
)

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request, user *core.User) {
	var req recurringTransactionRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	first, err := s.recurring.Create(r.Context(), user, req.toService())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(first))
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request, user *core.User) {
	series, err := s.recurring.List(r.Context(), user)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(series))
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request, user *core.User) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid transaction id")
		return
	}
	var req recurringTransactionRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	updated, err := s.recurring.Update(r.Context(), user, id, req.toService())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(updated))
}

type deleteSeriesResponse struct {
	Deleted int64 `json:"deleted"`
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request, user *core.User) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid transaction id")
		return
	}

	deleted, err := s.recurring.DeleteSeries(r.Context(), user, id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteSeriesResponse{Deleted: deleted})
}
