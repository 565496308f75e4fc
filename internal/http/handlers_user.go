package http

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request, user *core.User) {
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

type favoriteCurrencyRequest struct {
	Currency core.Currency `json:"currency"`
}

func (s *Server) handleSetFavoriteCurrency(w http.ResponseWriter, r *http.Request, user *core.User) {
	var req favoriteCurrencyRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	if err := s.users.SetFavoriteCurrency(r.Context(), user, req.Currency); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

type conversionResponse struct {
	Amount    decimal.Decimal `json:"amount"`
	From      core.Currency   `json:"from"`
	To        core.Currency   `json:"to"`
	Converted decimal.Decimal `json:"converted"`
}

func (s *Server) handleConvertCurrency(w http.ResponseWriter, r *http.Request, _ *core.User) {
	q := r.URL.Query()

	amount, err := decimal.NewFromString(strings.TrimSpace(q.Get("amount")))
	if err != nil {
		badRequest(w, "invalid query parameter: amount")
		return
	}
	from := core.Currency(strings.TrimSpace(q.Get("from")))
	to := core.Currency(strings.TrimSpace(q.Get("to")))

	converted, err := s.converter.Convert(r.Context(), amount, from, to)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, conversionResponse{
		Amount:    amount,
		From:      from,
		To:        to,
		Converted: converted,
	})
}
