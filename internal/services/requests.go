// Package services implements the application's use cases on top of the
// storage layer: recurring series expansion, summary aggregation, one-time
// transaction CRUD, savings, auth and user totals.
package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

// TransactionRequest carries the content of a one-time transaction.
type TransactionRequest struct {
	Amount      decimal.Decimal
	Date        time.Time // zero means today
	Category    core.Category
	Status      core.Status
	Description string
	Currency    core.Currency
}

// RecurringTransactionRequest carries the content and schedule of a
// recurring transaction definition. The same shape serves updates: an update
// whose schedule differs from the stored one regenerates the series.
type RecurringTransactionRequest struct {
	Amount      decimal.Decimal
	Description string
	Category    core.Category
	Status      core.Status
	Currency    core.Currency
	Schedule    core.Schedule
}

// UpdateTransactionRequest carries optional field updates for a one-time
// transaction; nil fields are left untouched.
type UpdateTransactionRequest struct {
	Amount      *decimal.Decimal
	Date        *time.Time
	Category    *core.Category
	Status      *core.Status
	Description *string
	Currency    *core.Currency
}

// TransactionFilters are the optional exact-match predicates of the filter
// query. Nil fields do not constrain the result.
type TransactionFilters struct {
	Year     *int
	Month    *int
	Category *core.Category
	Status   *core.Status
	Currency *core.Currency
	Date     *time.Time
}

// EventPublisher publishes sync events for downstream export. The services
// treat a nil publisher as "sync disabled" and a publish failure as
// non-fatal: the local write already succeeded.
type EventPublisher interface {
	PublishTransactionSync(ctx context.Context, id int64) error
	PublishTransactionDelete(ctx context.Context, id int64) error
}

// effectiveCurrency applies the user's favorite-currency override: when the
// user has a favorite currency every new transaction is recorded in it,
// regardless of what the request asked for.
func effectiveCurrency(user *core.User, requested core.Currency) core.Currency {
	if user.FavoriteCurrency != "" {
		return user.FavoriteCurrency
	}
	return requested
}
