package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"tally/internal/core"
	"tally/internal/services"
)

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, user *core.User) {
	var req createTransactionRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	svcReq, err := req.toService()
	if err != nil {
		badRequest(w, "invalid date, expected YYYY-MM-DD")
		return
	}

	t, err := s.transactions.Create(r.Context(), user, svcReq)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(t))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request, user *core.User) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid transaction id")
		return
	}

	t, err := s.transactions.Get(r.Context(), user, id)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request, user *core.User) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid transaction id")
		return
	}
	var req updateTransactionRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	svcReq, err := req.toService()
	if err != nil {
		badRequest(w, "invalid date, expected YYYY-MM-DD")
		return
	}

	t, err := s.transactions.Update(r.Context(), user, id, svcReq)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, user *core.User) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid transaction id")
		return
	}

	if err := s.transactions.Delete(r.Context(), user, id); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleFilterTransactions lists transactions, constrained by the optional
// year, month, category, status, currency and date query parameters.
func (s *Server) handleFilterTransactions(w http.ResponseWriter, r *http.Request, user *core.User) {
	filters, err := parseFilters(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	rows, err := s.summaries.FindByFilters(r.Context(), user, filters)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(rows))
}

func parseFilters(r *http.Request) (services.TransactionFilters, error) {
	var f services.TransactionFilters
	q := r.URL.Query()

	if v := strings.TrimSpace(q.Get("year")); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return f, errInvalidQuery("year")
		}
		f.Year = &year
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		month, err := strconv.Atoi(v)
		if err != nil {
			return f, errInvalidQuery("month")
		}
		f.Month = &month
	}
	if v := strings.TrimSpace(q.Get("category")); v != "" {
		category := core.Category(v)
		if err := category.Validate(); err != nil {
			return f, err
		}
		f.Category = &category
	}
	if v := strings.TrimSpace(q.Get("status")); v != "" {
		status := core.Status(v)
		if err := status.Validate(); err != nil {
			return f, err
		}
		f.Status = &status
	}
	if v := strings.TrimSpace(q.Get("currency")); v != "" {
		currency := core.Currency(v)
		if err := currency.Validate(); err != nil {
			return f, err
		}
		f.Currency = &currency
	}
	if v := strings.TrimSpace(q.Get("date")); v != "" {
		date, err := time.Parse(dateLayout, v)
		if err != nil {
			return f, errInvalidQuery("date")
		}
		f.Date = &date
	}
	return f, nil
}

type queryError string

func (e queryError) Error() string { return string(e) }

func errInvalidQuery(param string) error {
	return queryError("invalid query parameter: " + param)
}
