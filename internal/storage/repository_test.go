package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *Repository) *core.User {
	t.Helper()
	u := &core.User{Username: "u", Email: "u@example.com", PasswordHash: "x"}
	if err := repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func seedTransaction(t *testing.T, repo *Repository, userID int64, date, seriesID string) *core.Transaction {
	t.Helper()
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	typ := core.OneTime
	if seriesID != "" {
		typ = core.Recurring
	}
	tr := &core.Transaction{
		UserID:   userID,
		Amount:   decimal.NewFromInt(10),
		Currency: core.EUR,
		Date:     d,
		Category: core.CategoryOther,
		Status:   core.StatusOutgoing,
		Type:     typ,
		SeriesID: seriesID,
	}
	if err := repo.CreateTransaction(context.Background(), tr); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	return tr
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	repo := newTestRepo(t)
	user := seedUser(t, repo)
	ctx := context.Background()

	boom := errors.New("boom")
	err := repo.WithTx(ctx, func(tx *Repository) error {
		seedTransaction(t, tx, user.ID, "2024-01-01", "")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx err = %v, want boom", err)
	}

	rows, err := repo.FindByUserAndType(ctx, user.ID, core.OneTime)
	if err != nil {
		t.Fatalf("FindByUserAndType: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("found %d rows after rollback, want 0", len(rows))
	}
}

func TestWithTx_NestedCallReusesTransaction(t *testing.T) {
	repo := newTestRepo(t)
	user := seedUser(t, repo)
	ctx := context.Background()

	err := repo.WithTx(ctx, func(tx *Repository) error {
		return tx.WithTx(ctx, func(inner *Repository) error {
			seedTransaction(t, inner, user.ID, "2024-01-01", "")
			return nil
		})
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}

	rows, err := repo.FindByUserAndType(ctx, user.ID, core.OneTime)
	if err != nil {
		t.Fatalf("FindByUserAndType: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("found %d rows, want 1", len(rows))
	}
}

func TestUpdateSeriesContent_PreservesDates(t *testing.T) {
	repo := newTestRepo(t)
	user := seedUser(t, repo)
	ctx := context.Background()

	seedTransaction(t, repo, user.ID, "2024-01-05", "s1")
	seedTransaction(t, repo, user.ID, "2024-02-05", "s1")
	seedTransaction(t, repo, user.ID, "2024-03-05", "s2") // other series untouched

	patched, err := repo.UpdateSeriesContent(ctx, "s1", core.Transaction{
		Amount:      decimal.NewFromInt(99),
		Currency:    core.USD,
		Category:    core.CategoryRent,
		Status:      core.StatusOutgoing,
		Description: "patched",
	})
	if err != nil {
		t.Fatalf("UpdateSeriesContent: %v", err)
	}
	if patched != 2 {
		t.Fatalf("patched = %d, want 2", patched)
	}

	rows, err := repo.FindBySeriesID(ctx, "s1")
	if err != nil {
		t.Fatalf("FindBySeriesID: %v", err)
	}
	for i, want := range []string{"2024-01-05", "2024-02-05"} {
		if got := rows[i].Date.Format("2006-01-02"); got != want {
			t.Errorf("row %d date = %s, want %s", i, got, want)
		}
		if !rows[i].Amount.Equal(decimal.NewFromInt(99)) {
			t.Errorf("row %d amount = %s, want 99", i, rows[i].Amount)
		}
	}

	other, err := repo.FindBySeriesID(ctx, "s2")
	if err != nil {
		t.Fatalf("FindBySeriesID s2: %v", err)
	}
	if other[0].Description == "patched" {
		t.Error("series s2 was patched by an update addressed to s1")
	}
}

func TestFindByUserAndDateRange_InclusiveBounds(t *testing.T) {
	repo := newTestRepo(t)
	user := seedUser(t, repo)
	ctx := context.Background()

	seedTransaction(t, repo, user.ID, "2024-02-01", "")
	seedTransaction(t, repo, user.ID, "2024-02-29", "")
	seedTransaction(t, repo, user.ID, "2024-03-01", "")

	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	rows, err := repo.FindByUserAndDateRange(ctx, user.ID, start, end)
	if err != nil {
		t.Fatalf("FindByUserAndDateRange: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("found %d rows, want 2 (bounds inclusive)", len(rows))
	}
}

func TestTokens_ExpiryScoped(t *testing.T) {
	repo := newTestRepo(t)
	user := seedUser(t, repo)
	ctx := context.Background()
	now := time.Now()

	if err := repo.InsertToken(ctx, "live", user.ID, now.Add(time.Hour)); err != nil {
		t.Fatalf("InsertToken: %v", err)
	}
	if err := repo.InsertToken(ctx, "dead", user.ID, now.Add(-time.Hour)); err != nil {
		t.Fatalf("InsertToken: %v", err)
	}

	if _, err := repo.UserByToken(ctx, "live", now); err != nil {
		t.Fatalf("UserByToken live: %v", err)
	}
	if _, err := repo.UserByToken(ctx, "dead", now); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("UserByToken dead: err = %v, want ErrNotFound", err)
	}

	deleted, err := repo.DeleteExpiredTokens(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpiredTokens: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	repo := newTestRepo(t)
	seedUser(t, repo)

	err := repo.CreateUser(context.Background(), &core.User{
		Username: "u", Email: "u2@example.com", PasswordHash: "x",
	})
	if err == nil {
		t.Fatal("expected unique constraint error")
	}
}
