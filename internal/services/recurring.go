package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"tally/internal/core"
	"tally/internal/storage"
)

// RecurringService materializes, mutates and tears down recurring transaction
// series. One recurrence definition becomes one dated instance row per month
// of its schedule, every instance carrying the same generated series id.
type RecurringService struct {
	repo   *storage.Repository
	events EventPublisher
}

func NewRecurringService(repo *storage.Repository, events EventPublisher) *RecurringService {
	return &RecurringService{repo: repo, events: events}
}

// Create expands the request into one transaction row per month of the
// schedule, all inside a single store transaction, and returns the first
// generated instance. The whole series shares one freshly generated series id.
func (s *RecurringService) Create(ctx context.Context, user *core.User, req RecurringTransactionRequest) (*core.Transaction, error) {
	if err := req.Schedule.Validate(); err != nil {
		return nil, fmt.Errorf("validate schedule: %w", err)
	}

	currency := effectiveCurrency(user, req.Currency)
	prototype := core.Transaction{
		UserID:      user.ID,
		Amount:      req.Amount,
		Currency:    currency,
		Category:    req.Category,
		Status:      req.Status,
		Description: req.Description,
		Type:        core.Recurring,
		Schedule:    req.Schedule,
	}
	if err := prototype.Validate(); err != nil {
		return nil, fmt.Errorf("validate transaction: %w", err)
	}

	var first *core.Transaction
	err := s.repo.WithTx(ctx, func(tx *storage.Repository) error {
		f, err := expandSeries(ctx, tx, prototype)
		if err != nil {
			return err
		}
		first = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Recurring series created",
		"user_id", user.ID,
		"series_id", first.SeriesID,
		"instances", prototype.Schedule.Months(),
		"category", first.Category,
		"amount", first.Amount)

	s.publishSync(ctx, first.ID)
	return first, nil
}

// expandSeries walks the schedule month by month, persisting one instance per
// month under a new series id, and returns the first instance.
func expandSeries(ctx context.Context, tx *storage.Repository, prototype core.Transaction) (*core.Transaction, error) {
	seriesID := uuid.NewString()

	var first *core.Transaction
	for _, date := range prototype.Schedule.OccurrenceDates() {
		instance := prototype
		instance.Date = date
		instance.SeriesID = seriesID
		if err := tx.CreateTransaction(ctx, &instance); err != nil {
			return nil, fmt.Errorf("persist instance for %s: %w", date.Format("2006-01-02"), err)
		}
		if first == nil {
			first = &instance
		}
	}
	return first, nil
}

// List returns one representative transaction per distinct series: the
// earliest-dated instance. Callers see the recurring definitions, not every
// generated row.
func (s *RecurringService) List(ctx context.Context, user *core.User) ([]core.Transaction, error) {
	rows, err := s.repo.FindByUserAndType(ctx, user.ID, core.Recurring)
	if err != nil {
		return nil, fmt.Errorf("load recurring transactions: %w", err)
	}

	earliest := make(map[string]core.Transaction)
	for _, t := range rows {
		cur, ok := earliest[t.SeriesID]
		if !ok || t.Date.Before(cur.Date) {
			earliest[t.SeriesID] = t
		}
	}

	out := make([]core.Transaction, 0, len(earliest))
	for _, t := range earliest {
		out = append(out, t)
	}

	slog.DebugContext(ctx, "Listed recurring series",
		"user_id", user.ID, "series", len(out), "instances", len(rows))
	return out, nil
}

// Update mutates the series the addressed transaction belongs to. A schedule
// change invalidates the very set of dates the series occupies, so the old
// series is deleted and a new one generated under a new series id; a
// content-only change patches every member in place. Either path runs in one
// store transaction.
func (s *RecurringService) Update(ctx context.Context, user *core.User, transactionID int64, req RecurringTransactionRequest) (*core.Transaction, error) {
	target, err := s.findSeriesMember(ctx, user, transactionID)
	if err != nil {
		return nil, err
	}

	if err := req.Schedule.Validate(); err != nil {
		return nil, fmt.Errorf("validate schedule: %w", err)
	}

	currency := effectiveCurrency(user, req.Currency)
	content := core.Transaction{
		UserID:      user.ID,
		Amount:      req.Amount,
		Currency:    currency,
		Category:    req.Category,
		Status:      req.Status,
		Description: req.Description,
		Type:        core.Recurring,
		Schedule:    req.Schedule,
	}
	if err := content.Validate(); err != nil {
		return nil, fmt.Errorf("validate transaction: %w", err)
	}

	scheduleChanged := !target.Schedule.Equal(req.Schedule)

	var result *core.Transaction
	err = s.repo.WithTx(ctx, func(tx *storage.Repository) error {
		if scheduleChanged {
			deleted, err := tx.DeleteBySeriesID(ctx, target.SeriesID)
			if err != nil {
				return fmt.Errorf("delete old series: %w", err)
			}
			slog.DebugContext(ctx, "Regenerating recurring series",
				"old_series_id", target.SeriesID, "deleted", deleted)

			first, err := expandSeries(ctx, tx, content)
			if err != nil {
				return fmt.Errorf("regenerate series: %w", err)
			}
			result = first
			return nil
		}

		patched, err := tx.UpdateSeriesContent(ctx, target.SeriesID, content)
		if err != nil {
			return fmt.Errorf("patch series content: %w", err)
		}
		slog.DebugContext(ctx, "Patched recurring series in place",
			"series_id", target.SeriesID, "patched", patched)

		updated, err := tx.GetTransaction(ctx, user.ID, target.ID)
		if err != nil {
			return fmt.Errorf("reload patched transaction: %w", err)
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Recurring series updated",
		"user_id", user.ID,
		"series_id", result.SeriesID,
		"schedule_changed", scheduleChanged)

	s.publishSync(ctx, result.ID)
	return result, nil
}

// DeleteSeries removes every instance of the series the addressed transaction
// belongs to and returns how many rows were deleted. There is no
// single-instance deletion: a series lives and dies as a unit.
func (s *RecurringService) DeleteSeries(ctx context.Context, user *core.User, transactionID int64) (int64, error) {
	target, err := s.findSeriesMember(ctx, user, transactionID)
	if err != nil {
		return 0, err
	}

	var deleted int64
	err = s.repo.WithTx(ctx, func(tx *storage.Repository) error {
		deleted, err = tx.DeleteBySeriesID(ctx, target.SeriesID)
		if err != nil {
			return fmt.Errorf("delete series: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Recurring series deleted",
		"user_id", user.ID,
		"series_id", target.SeriesID,
		"deleted", deleted)

	s.publishDelete(ctx, target.ID)
	return deleted, nil
}

// findSeriesMember resolves a transaction owned by the user and requires it
// to carry recurrence metadata.
func (s *RecurringService) findSeriesMember(ctx context.Context, user *core.User, transactionID int64) (*core.Transaction, error) {
	t, err := s.repo.GetTransaction(ctx, user.ID, transactionID)
	if err != nil {
		return nil, fmt.Errorf("load transaction %d: %w", transactionID, err)
	}
	if t.SeriesID == "" {
		return nil, core.ErrNotRecurring
	}
	return t, nil
}

func (s *RecurringService) publishSync(ctx context.Context, id int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionSync(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync event", "transaction_id", id, "error", err)
	}
}

func (s *RecurringService) publishDelete(ctx context.Context, id int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionDelete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete event", "transaction_id", id, "error", err)
	}
}
