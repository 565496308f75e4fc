package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/storage"
)

// TotalsProvider supplies the headline income/outgoings totals for a period.
// It partitions by status == INCOME versus status != INCOME, independently of
// the per-category grouping the summary engine computes itself.
type TotalsProvider interface {
	IncomeBetween(ctx context.Context, user *core.User, start, end time.Time) (decimal.Decimal, error)
	OutgoingsBetween(ctx context.Context, user *core.User, start, end time.Time) (decimal.Decimal, error)
}

// SummaryService produces period summaries: headline totals from the totals
// provider combined with a category/status breakdown computed over the same
// window, plus the combinable filter query.
type SummaryService struct {
	repo   *storage.Repository
	totals TotalsProvider

	// now is stubbed in tests to pin the open filter window.
	now func() time.Time
}

func NewSummaryService(repo *storage.Repository, totals TotalsProvider) *SummaryService {
	return &SummaryService{repo: repo, totals: totals, now: time.Now}
}

// ByMonth summarizes one calendar month, honoring real month lengths
// including leap-year February.
func (s *SummaryService) ByMonth(ctx context.Context, user *core.User, year, month int) (*core.Summary, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("summary month: %w", core.ErrInvalidMonth)
	}
	start, end := core.MonthWindow(year, month)
	return s.build(ctx, user, start, end)
}

// ByYear summarizes one calendar year.
func (s *SummaryService) ByYear(ctx context.Context, user *core.User, year int) (*core.Summary, error) {
	start, end := core.YearWindow(year)
	return s.build(ctx, user, start, end)
}

func (s *SummaryService) build(ctx context.Context, user *core.User, start, end time.Time) (*core.Summary, error) {
	income, err := s.totals.IncomeBetween(ctx, user, start, end)
	if err != nil {
		return nil, fmt.Errorf("income total: %w", err)
	}
	outgoings, err := s.totals.OutgoingsBetween(ctx, user, start, end)
	if err != nil {
		return nil, fmt.Errorf("outgoings total: %w", err)
	}

	rows, err := s.repo.FindByUserAndDateRange(ctx, user.ID, start, end)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	summary := &core.Summary{
		TotalIncome:    income,
		TotalOutgoings: outgoings,
		TotalBudget:    income.Sub(outgoings),
		Categories:     groupByCategoryAndStatus(rows),
	}

	slog.DebugContext(ctx, "Built summary",
		"user_id", user.ID,
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"),
		"transactions", len(rows),
		"categories", len(summary.Categories))
	return summary, nil
}

// groupByCategoryAndStatus buckets transactions by category, then by status
// within each category, emitting a count and exact-decimal sum per non-empty
// bucket. Categories with no transactions in range are absent from the map.
func groupByCategoryAndStatus(rows []core.Transaction) map[core.Category][]core.StatusAggregate {
	type bucket struct {
		count int
		total decimal.Decimal
	}
	byCategory := make(map[core.Category]map[core.Status]*bucket)
	for _, t := range rows {
		statuses, ok := byCategory[t.Category]
		if !ok {
			statuses = make(map[core.Status]*bucket)
			byCategory[t.Category] = statuses
		}
		b, ok := statuses[t.Status]
		if !ok {
			b = &bucket{total: decimal.Zero}
			statuses[t.Status] = b
		}
		b.count++
		b.total = b.total.Add(t.Amount)
	}

	out := make(map[core.Category][]core.StatusAggregate, len(byCategory))
	for category, statuses := range byCategory {
		aggregates := make([]core.StatusAggregate, 0, len(statuses))
		for status, b := range statuses {
			aggregates = append(aggregates, core.StatusAggregate{
				Count:       b.count,
				TotalAmount: b.total,
				Status:      status,
			})
		}
		out[category] = aggregates
	}
	return out
}

// FindByFilters resolves a date window from the year/month filters (year and
// month: that month; year alone: that year; neither: epoch through now), then
// applies every non-nil filter as an exact-match AND predicate.
func (s *SummaryService) FindByFilters(ctx context.Context, user *core.User, f TransactionFilters) ([]core.Transaction, error) {
	var start, end time.Time
	switch {
	case f.Year != nil && f.Month != nil:
		if *f.Month < 1 || *f.Month > 12 {
			return nil, fmt.Errorf("filter month: %w", core.ErrInvalidMonth)
		}
		start, end = core.MonthWindow(*f.Year, *f.Month)
	case f.Year != nil:
		start, end = core.YearWindow(*f.Year)
	default:
		start, end = core.OpenWindow(s.now())
	}

	rows, err := s.repo.FindByUserAndDateRange(ctx, user.ID, start, end)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	out := rows[:0]
	for _, t := range rows {
		if f.Category != nil && t.Category != *f.Category {
			continue
		}
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if f.Currency != nil && t.Currency != *f.Currency {
			continue
		}
		if f.Date != nil && !sameDay(t.Date, *f.Date) {
			continue
		}
		out = append(out, t)
	}

	slog.DebugContext(ctx, "Filtered transactions",
		"user_id", user.ID, "window_start", start.Format("2006-01-02"),
		"window_end", end.Format("2006-01-02"), "matched", len(out))
	return out, nil
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
