package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/storage"
)

// UserService owns per-user settings and the headline totals used by the
// summary engine. Totals partition on status: INCOME on one side, everything
// else on the other.
type UserService struct {
	repo *storage.Repository
}

func NewUserService(repo *storage.Repository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) IncomeBetween(ctx context.Context, user *core.User, start, end time.Time) (decimal.Decimal, error) {
	return s.sumBetween(ctx, user, start, end, true)
}

func (s *UserService) OutgoingsBetween(ctx context.Context, user *core.User, start, end time.Time) (decimal.Decimal, error) {
	return s.sumBetween(ctx, user, start, end, false)
}

// BudgetBetween is income minus outgoings over the same window.
func (s *UserService) BudgetBetween(ctx context.Context, user *core.User, start, end time.Time) (decimal.Decimal, error) {
	income, err := s.IncomeBetween(ctx, user, start, end)
	if err != nil {
		return decimal.Zero, err
	}
	outgoings, err := s.OutgoingsBetween(ctx, user, start, end)
	if err != nil {
		return decimal.Zero, err
	}
	return income.Sub(outgoings), nil
}

func (s *UserService) sumBetween(ctx context.Context, user *core.User, start, end time.Time, income bool) (decimal.Decimal, error) {
	rows, err := s.repo.FindByUserAndDateRange(ctx, user.ID, start, end)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load transactions: %w", err)
	}
	total := decimal.Zero
	for _, t := range rows {
		if (t.Status == core.StatusIncome) == income {
			total = total.Add(t.Amount)
		}
	}
	return total, nil
}

// SetFavoriteCurrency stores the default currency applied to transactions
// created without an explicit one.
func (s *UserService) SetFavoriteCurrency(ctx context.Context, user *core.User, currency core.Currency) error {
	if err := currency.Validate(); err != nil {
		return err
	}
	if err := s.repo.SetFavoriteCurrency(ctx, user.ID, currency); err != nil {
		return fmt.Errorf("set favorite currency: %w", err)
	}
	user.FavoriteCurrency = currency
	return nil
}

func (s *UserService) Info(ctx context.Context, userID int64) (*core.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}
