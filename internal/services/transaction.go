package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tally/internal/core"
	"tally/internal/storage"
)

// TransactionService is the one-time transaction CRUD. Recurring series are
// the RecurringService's business; this service refuses to touch them.
type TransactionService struct {
	repo   *storage.Repository
	events EventPublisher

	now func() time.Time
}

func NewTransactionService(repo *storage.Repository, events EventPublisher) *TransactionService {
	return &TransactionService{repo: repo, events: events, now: time.Now}
}

// Create records a one-time transaction. A zero date defaults to today, and
// the user's favorite currency, when set, overrides the requested one.
func (s *TransactionService) Create(ctx context.Context, user *core.User, req TransactionRequest) (*core.Transaction, error) {
	date := req.Date
	if date.IsZero() {
		date = s.now()
	}

	t := core.Transaction{
		UserID:      user.ID,
		Amount:      req.Amount,
		Currency:    effectiveCurrency(user, req.Currency),
		Date:        date,
		Category:    req.Category,
		Status:      req.Status,
		Description: req.Description,
		Type:        core.OneTime,
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("validate transaction: %w", err)
	}

	if err := s.repo.CreateTransaction(ctx, &t); err != nil {
		return nil, fmt.Errorf("persist transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created",
		"user_id", user.ID,
		"transaction_id", t.ID,
		"category", t.Category,
		"amount", t.Amount)

	s.publishSync(ctx, t.ID)
	return &t, nil
}

func (s *TransactionService) Get(ctx context.Context, user *core.User, id int64) (*core.Transaction, error) {
	t, err := s.repo.GetTransaction(ctx, user.ID, id)
	if err != nil {
		return nil, fmt.Errorf("load transaction %d: %w", id, err)
	}
	return t, nil
}

// Update applies the non-nil request fields to a one-time transaction.
func (s *TransactionService) Update(ctx context.Context, user *core.User, id int64, req UpdateTransactionRequest) (*core.Transaction, error) {
	t, err := s.repo.GetTransaction(ctx, user.ID, id)
	if err != nil {
		return nil, fmt.Errorf("load transaction %d: %w", id, err)
	}
	if t.Type == core.Recurring {
		return nil, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}

	if req.Amount != nil {
		t.Amount = *req.Amount
	}
	if req.Date != nil {
		t.Date = *req.Date
	}
	if req.Category != nil {
		t.Category = *req.Category
	}
	if req.Status != nil {
		t.Status = *req.Status
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Currency != nil {
		t.Currency = *req.Currency
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("validate transaction: %w", err)
	}

	if err := s.repo.UpdateTransaction(ctx, t); err != nil {
		return nil, fmt.Errorf("update transaction %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Transaction updated", "user_id", user.ID, "transaction_id", id)

	s.publishSync(ctx, id)
	return t, nil
}

func (s *TransactionService) Delete(ctx context.Context, user *core.User, id int64) error {
	if err := s.repo.DeleteTransaction(ctx, user.ID, id); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Transaction deleted", "user_id", user.ID, "transaction_id", id)

	s.publishDelete(ctx, id)
	return nil
}

func (s *TransactionService) publishSync(ctx context.Context, id int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionSync(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync event", "transaction_id", id, "error", err)
	}
}

func (s *TransactionService) publishDelete(ctx context.Context, id int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionDelete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete event", "transaction_id", id, "error", err)
	}
}
