package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/storage"
)

type fakeSheet struct {
	appended []int64
	removed  []int64
}

func (f *fakeSheet) AppendTransaction(_ context.Context, t *core.Transaction) error {
	f.appended = append(f.appended, t.ID)
	return nil
}

func (f *fakeSheet) RemoveTransaction(_ context.Context, id int64) error {
	f.removed = append(f.removed, id)
	return nil
}

func newWorkerFixture(t *testing.T) (*SyncWorker, *fakeSheet, *storage.Repository, *core.Transaction) {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	ctx := context.Background()
	user := &core.User{Username: "w", Email: "w@example.com", PasswordHash: "x"}
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	tr := &core.Transaction{
		UserID:   user.ID,
		Amount:   decimal.NewFromInt(10),
		Currency: core.EUR,
		Date:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Category: core.CategoryOther,
		Status:   core.StatusOutgoing,
		Type:     core.OneTime,
	}
	if err := repo.CreateTransaction(ctx, tr); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	sheet := &fakeSheet{}
	return NewSyncWorker(repo, sheet), sheet, repo, tr
}

func TestHandleMessage_Sync(t *testing.T) {
	w, sheet, _, tr := newWorkerFixture(t)

	err := w.HandleMessage(context.Background(), amqp.NewTransactionSyncMessage(tr.ID, amqp.ActionSync))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(sheet.appended) != 1 || sheet.appended[0] != tr.ID {
		t.Fatalf("appended = %v, want [%d]", sheet.appended, tr.ID)
	}
}

func TestHandleMessage_SyncForDeletedTransaction(t *testing.T) {
	w, sheet, _, _ := newWorkerFixture(t)

	// The row may be gone by the time the message is consumed.
	err := w.HandleMessage(context.Background(), amqp.NewTransactionSyncMessage(99999, amqp.ActionSync))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(sheet.appended) != 0 {
		t.Fatalf("appended = %v, want none", sheet.appended)
	}
}

func TestHandleMessage_Delete(t *testing.T) {
	w, sheet, _, tr := newWorkerFixture(t)

	err := w.HandleMessage(context.Background(), amqp.NewTransactionSyncMessage(tr.ID, amqp.ActionDelete))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(sheet.removed) != 1 || sheet.removed[0] != tr.ID {
		t.Fatalf("removed = %v, want [%d]", sheet.removed, tr.ID)
	}
}

func TestResyncBatch_ExportsPendingOnce(t *testing.T) {
	w, sheet, repo, tr := newWorkerFixture(t)
	ctx := context.Background()

	if err := w.resyncBatch(ctx, 10); err != nil {
		t.Fatalf("resyncBatch: %v", err)
	}
	if len(sheet.appended) != 1 || sheet.appended[0] != tr.ID {
		t.Fatalf("appended = %v, want [%d]", sheet.appended, tr.ID)
	}

	// The row is marked synced, a second sweep finds nothing.
	if err := w.resyncBatch(ctx, 10); err != nil {
		t.Fatalf("second resyncBatch: %v", err)
	}
	if len(sheet.appended) != 1 {
		t.Fatalf("appended = %v after second sweep, want one entry", sheet.appended)
	}

	pending, err := repo.FindUnsyncedTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("FindUnsyncedTransactions: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("still %d unsynced rows", len(pending))
	}
}

func TestHandleMessage_UnknownActionDropped(t *testing.T) {
	w, sheet, _, tr := newWorkerFixture(t)

	err := w.HandleMessage(context.Background(), amqp.NewTransactionSyncMessage(tr.ID, "replay"))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(sheet.appended) != 0 || len(sheet.removed) != 0 {
		t.Fatal("unknown action must not touch the sheet")
	}
}
