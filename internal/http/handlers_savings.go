package http

import (
	"net/http"

	"tally/internal/core"
)

func (s *Server) handleCreateSavings(w http.ResponseWriter, r *http.Request, user *core.User) {
	var req savingsRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	created, err := s.savings.Create(r.Context(), user, core.Savings{
		Amount:   req.Amount,
		Currency: req.Currency,
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSavingsResponse(created))
}

func (s *Server) handleListSavings(w http.ResponseWriter, r *http.Request, user *core.User) {
	list, err := s.savings.List(r.Context(), user)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	out := make([]savingsResponse, 0, len(list))
	for i := range list {
		out = append(out, toSavingsResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSavings(w http.ResponseWriter, r *http.Request, user *core.User) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid savings id")
		return
	}
	sv, err := s.savings.Get(r.Context(), user, id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSavingsResponse(sv))
}

func (s *Server) handleUpdateSavings(w http.ResponseWriter, r *http.Request, user *core.User) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid savings id")
		return
	}
	var req savingsRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	updated, err := s.savings.Update(r.Context(), user, core.Savings{
		ID:       id,
		Amount:   req.Amount,
		Currency: req.Currency,
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSavingsResponse(updated))
}

func (s *Server) handleDeleteSavings(w http.ResponseWriter, r *http.Request, user *core.User) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid savings id")
		return
	}
	if err := s.savings.Delete(r.Context(), user, id); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request, user *core.User) {
	var req savingGoalRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	goal, err := req.toCore()
	if err != nil {
		badRequest(w, "invalid date, expected YYYY-MM-DD")
		return
	}

	created, err := s.savings.CreateGoal(r.Context(), user, goal)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSavingGoalResponse(created))
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request, user *core.User) {
	goals, err := s.savings.ListGoals(r.Context(), user)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	out := make([]savingGoalResponse, 0, len(goals))
	for i := range goals {
		out = append(out, toSavingGoalResponse(&goals[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request, user *core.User) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid goal id")
		return
	}
	goal, err := s.savings.GetGoal(r.Context(), user, id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSavingGoalResponse(goal))
}

type goalStatusRequest struct {
	Status core.GoalStatus `json:"status"`
}

func (s *Server) handleGoalStatus(w http.ResponseWriter, r *http.Request, user *core.User) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid goal id")
		return
	}
	var req goalStatusRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	if err := s.savings.SetGoalStatus(r.Context(), user, id, req.Status); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request, user *core.User) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid goal id")
		return
	}
	if err := s.savings.DeleteGoal(r.Context(), user, id); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
