package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/storage"
)

func newTestRepo(t *testing.T) *storage.Repository {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestUser(t *testing.T, repo *storage.Repository) *core.User {
	t.Helper()
	user := &core.User{
		Username:     "tester",
		Email:        "tester@example.com",
		PasswordHash: "x",
	}
	if err := repo.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

func amount(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

// recordingPublisher captures published event ids for assertions.
type recordingPublisher struct {
	synced  []int64
	deleted []int64
}

func (p *recordingPublisher) PublishTransactionSync(_ context.Context, id int64) error {
	p.synced = append(p.synced, id)
	return nil
}

func (p *recordingPublisher) PublishTransactionDelete(_ context.Context, id int64) error {
	p.deleted = append(p.deleted, id)
	return nil
}
