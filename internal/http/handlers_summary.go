package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"tally/internal/core"
)

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errInvalidQuery(name)
	}
	return n, nil
}

// handleMonthlySummary defaults to the current month when year or month are
// not given.
func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request, user *core.User) {
	now := time.Now()
	year, err := queryInt(r, "year", now.Year())
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	month, err := queryInt(r, "month", int(now.Month()))
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	summary, err := s.summaries.ByMonth(r.Context(), user, year, month)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleYearlySummary(w http.ResponseWriter, r *http.Request, user *core.User) {
	year, err := queryInt(r, "year", time.Now().Year())
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	summary, err := s.summaries.ByYear(r.Context(), user, year)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
