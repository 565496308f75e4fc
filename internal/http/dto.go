package http

import (
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/services"
)

const dateLayout = "2006-01-02"

type scheduleDTO struct {
	DayOfMonth int `json:"dayOfMonth"`
	StartMonth int `json:"startMonth"`
	StartYear  int `json:"startYear"`
	EndMonth   int `json:"endMonth"`
	EndYear    int `json:"endYear"`
}

func (d scheduleDTO) toCore() core.Schedule {
	return core.Schedule{
		DayOfMonth: d.DayOfMonth,
		StartMonth: d.StartMonth,
		StartYear:  d.StartYear,
		EndMonth:   d.EndMonth,
		EndYear:    d.EndYear,
	}
}

type transactionResponse struct {
	ID          int64                `json:"id"`
	Amount      decimal.Decimal      `json:"amount"`
	Currency    core.Currency        `json:"currency"`
	Date        string               `json:"date"`
	Category    core.Category        `json:"category"`
	Status      core.Status          `json:"status"`
	Description string               `json:"description,omitempty"`
	Type        core.TransactionType `json:"type"`
	SeriesID    string               `json:"seriesId,omitempty"`
	Schedule    *scheduleDTO         `json:"schedule,omitempty"`
}

func toTransactionResponse(t *core.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:          t.ID,
		Amount:      t.Amount,
		Currency:    t.Currency,
		Date:        t.Date.Format(dateLayout),
		Category:    t.Category,
		Status:      t.Status,
		Description: t.Description,
		Type:        t.Type,
		SeriesID:    t.SeriesID,
	}
	if t.Type == core.Recurring {
		resp.Schedule = &scheduleDTO{
			DayOfMonth: t.Schedule.DayOfMonth,
			StartMonth: t.Schedule.StartMonth,
			StartYear:  t.Schedule.StartYear,
			EndMonth:   t.Schedule.EndMonth,
			EndYear:    t.Schedule.EndYear,
		}
	}
	return resp
}

func toTransactionResponses(ts []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(ts))
	for i := range ts {
		out = append(out, toTransactionResponse(&ts[i]))
	}
	return out
}

type createTransactionRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    core.Currency   `json:"currency"`
	Date        string          `json:"date"`
	Category    core.Category   `json:"category"`
	Status      core.Status     `json:"status"`
	Description string          `json:"description"`
}

func (r createTransactionRequest) toService() (services.TransactionRequest, error) {
	req := services.TransactionRequest{
		Amount:      r.Amount,
		Currency:    r.Currency,
		Category:    r.Category,
		Status:      r.Status,
		Description: r.Description,
	}
	if r.Date != "" {
		d, err := time.Parse(dateLayout, r.Date)
		if err != nil {
			return req, err
		}
		req.Date = d
	}
	return req, nil
}

type updateTransactionRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Currency    *core.Currency   `json:"currency"`
	Date        *string          `json:"date"`
	Category    *core.Category   `json:"category"`
	Status      *core.Status     `json:"status"`
	Description *string          `json:"description"`
}

func (r updateTransactionRequest) toService() (services.UpdateTransactionRequest, error) {
	req := services.UpdateTransactionRequest{
		Amount:      r.Amount,
		Currency:    r.Currency,
		Category:    r.Category,
		Status:      r.Status,
		Description: r.Description,
	}
	if r.Date != nil {
		d, err := time.Parse(dateLayout, *r.Date)
		if err != nil {
			return req, err
		}
		req.Date = &d
	}
	return req, nil
}

type recurringTransactionRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    core.Currency   `json:"currency"`
	Category    core.Category   `json:"category"`
	Status      core.Status     `json:"status"`
	Description string          `json:"description"`
	Schedule    scheduleDTO     `json:"schedule"`
}

func (r recurringTransactionRequest) toService() services.RecurringTransactionRequest {
	return services.RecurringTransactionRequest{
		Amount:      r.Amount,
		Currency:    r.Currency,
		Category:    r.Category,
		Status:      r.Status,
		Description: r.Description,
		Schedule:    r.Schedule.toCore(),
	}
}

type savingsRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency core.Currency   `json:"currency"`
}

type savingsResponse struct {
	ID       int64           `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency core.Currency   `json:"currency"`
}

func toSavingsResponse(s *core.Savings) savingsResponse {
	return savingsResponse{ID: s.ID, Amount: s.Amount, Currency: s.Currency}
}

type savingGoalRequest struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	GoalAmount    decimal.Decimal `json:"goalAmount"`
	InitialAmount decimal.Decimal `json:"initialAmount"`
	Currency      core.Currency   `json:"currency"`
	StartDate     string          `json:"startDate"`
	TargetDate    string          `json:"targetDate"`
}

func (r savingGoalRequest) toCore() (core.SavingGoal, error) {
	g := core.SavingGoal{
		Name:          r.Name,
		Description:   r.Description,
		GoalAmount:    r.GoalAmount,
		InitialAmount: r.InitialAmount,
		Currency:      r.Currency,
	}
	if r.StartDate != "" {
		d, err := time.Parse(dateLayout, r.StartDate)
		if err != nil {
			return g, err
		}
		g.StartDate = d
	}
	if r.TargetDate != "" {
		d, err := time.Parse(dateLayout, r.TargetDate)
		if err != nil {
			return g, err
		}
		g.TargetDate = d
	}
	return g, nil
}

type savingGoalResponse struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	GoalAmount    decimal.Decimal `json:"goalAmount"`
	InitialAmount decimal.Decimal `json:"initialAmount"`
	Currency      core.Currency   `json:"currency"`
	StartDate     string          `json:"startDate"`
	TargetDate    string          `json:"targetDate,omitempty"`
	Status        core.GoalStatus `json:"status"`
}

func toSavingGoalResponse(g *core.SavingGoal) savingGoalResponse {
	resp := savingGoalResponse{
		ID:            g.ID,
		Name:          g.Name,
		Description:   g.Description,
		GoalAmount:    g.GoalAmount,
		InitialAmount: g.InitialAmount,
		Currency:      g.Currency,
		StartDate:     g.StartDate.Format(dateLayout),
		Status:        g.Status,
	}
	if !g.TargetDate.IsZero() {
		resp.TargetDate = g.TargetDate.Format(dateLayout)
	}
	return resp
}

type userResponse struct {
	ID               int64         `json:"id"`
	Username         string        `json:"username"`
	Email            string        `json:"email"`
	FavoriteCurrency core.Currency `json:"favoriteCurrency,omitempty"`
}

func toUserResponse(u *core.User) userResponse {
	return userResponse{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		FavoriteCurrency: u.FavoriteCurrency,
	}
}
