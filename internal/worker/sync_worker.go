// Package worker drains the transaction sync queue into the export sheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/storage"
)

// SheetWriter is the slice of the sheets exporter the worker needs.
type SheetWriter interface {
	AppendTransaction(ctx context.Context, t *core.Transaction) error
	RemoveTransaction(ctx context.Context, id int64) error
}

// SyncWorker mirrors transactions from SQLite to the export sheet, driven by
// sync messages off the queue.
type SyncWorker struct {
	storage *storage.Repository
	sheet   SheetWriter
}

func NewSyncWorker(storage *storage.Repository, sheet SheetWriter) *SyncWorker {
	return &SyncWorker{storage: storage, sheet: sheet}
}

// HandleMessage processes one sync message. Sync loads the transaction and
// writes its row; delete clears the row. A sync for a row deleted in the
// meantime is treated as done.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	switch msg.Action {
	case amqp.ActionSync:
		return w.handleSync(ctx, msg.ID)
	case amqp.ActionDelete:
		return w.handleDelete(ctx, msg.ID)
	default:
		slog.WarnContext(ctx, "Unknown sync action, dropping message",
			"id", msg.ID, "action", msg.Action)
		return nil
	}
}

func (w *SyncWorker) handleSync(ctx context.Context, id int64) error {
	t, err := w.storage.GetTransactionAny(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			slog.InfoContext(ctx, "Transaction deleted before sync, skipping", "id", id)
			return nil
		}
		return fmt.Errorf("load transaction %d: %w", id, err)
	}

	if err := w.sheet.AppendTransaction(ctx, t); err != nil {
		return fmt.Errorf("export transaction %d: %w", id, err)
	}

	if err := w.storage.MarkTransactionSynced(ctx, id, time.Now()); err != nil {
		return fmt.Errorf("mark transaction %d synced: %w", id, err)
	}

	slog.InfoContext(ctx, "Synced transaction to sheet", "id", id)
	return nil
}

// RunResyncLoop periodically exports transactions that never made it to the
// sheet, in batches, until the context is cancelled. It backstops lost queue
// messages.
func (w *SyncWorker) RunResyncLoop(ctx context.Context, interval time.Duration, batchSize int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.resyncBatch(ctx, batchSize); err != nil {
				slog.ErrorContext(ctx, "Resync batch failed", "error", err)
			}
		}
	}
}

func (w *SyncWorker) resyncBatch(ctx context.Context, batchSize int) error {
	pending, err := w.storage.FindUnsyncedTransactions(ctx, batchSize)
	if err != nil {
		return fmt.Errorf("load unsynced transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	for i := range pending {
		if err := w.handleSync(ctx, pending[i].ID); err != nil {
			return err
		}
	}

	slog.InfoContext(ctx, "Resynced pending transactions", "count", len(pending))
	return nil
}

func (w *SyncWorker) handleDelete(ctx context.Context, id int64) error {
	if err := w.sheet.RemoveTransaction(ctx, id); err != nil {
		return fmt.Errorf("remove transaction %d from sheet: %w", id, err)
	}
	slog.InfoContext(ctx, "Removed transaction from sheet", "id", id)
	return nil
}
