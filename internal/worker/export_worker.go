package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"kopilka/internal/amqp"
	"kopilka/internal/core"
	"kopilka/internal/export/sheets"
	"kopilka/internal/storage"
)

// ExportWorker ships recorded operations to the Google Sheets journal.
// Events from AMQP drive the fast path; a periodic sweep over the
// export_state column catches anything a lost message left behind.
type ExportWorker struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	writer     sheets.Writer
	batchSize  int
	interval   time.Duration
}

func NewExportWorker(storage *storage.SQLiteRepository, amqpClient *amqp.Client, writer sheets.Writer, batchSize int, interval time.Duration) *ExportWorker {
	return &ExportWorker{
		storage:    storage,
		amqpClient: amqpClient,
		writer:     writer,
		batchSize:  batchSize,
		interval:   interval,
	}
}

// Run consumes events and sweeps pending rows until ctx is cancelled.
func (w *ExportWorker) Run(ctx context.Context) error {
	if err := w.sweepPending(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup export sweep failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if w.amqpClient != nil {
		g.Go(func() error {
			return w.amqpClient.ConsumeOperationEvents(ctx, func(msg *amqp.OperationEvent) error {
				return w.handleEvent(ctx, msg)
			})
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.sweepPending(ctx); err != nil {
					slog.ErrorContext(ctx, "Export sweep failed", "error", err)
				}
			}
		}
	})

	return g.Wait()
}

func (w *ExportWorker) handleEvent(ctx context.Context, msg *amqp.OperationEvent) error {
	if msg.Action == amqp.ActionReversed {
		// The operation row is gone by the time a reversal event arrives.
		// The journal keeps the original line; nothing to export.
		slog.InfoContext(ctx, "Operation reversed, journal row kept",
			"operation_id", msg.OperationID)
		return nil
	}

	op, err := loadOperation(ctx, w.storage.Queries(), msg.OperationID)
	if errors.Is(err, core.ErrOperationNotFound) {
		// Reversed between publish and delivery.
		slog.WarnContext(ctx, "Operation vanished before export", "operation_id", msg.OperationID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load operation: %w", err)
	}

	return w.export(ctx, op)
}

// sweepPending exports operations still marked pending.
func (w *ExportWorker) sweepPending(ctx context.Context) error {
	q := w.storage.Queries()
	ops, err := q.ListPendingExportOperations(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending operations: %w", err)
	}
	if len(ops) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Exporting pending operations", "count", len(ops))
	for _, op := range ops {
		items, err := q.GetOperationItems(ctx, op.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load operation items",
				"operation_id", op.ID, "error", err)
			continue
		}
		op.Items = items
		if err := w.export(ctx, op); err != nil {
			slog.ErrorContext(ctx, "Failed to export operation",
				"operation_id", op.ID, "error", err)
		}
	}
	return nil
}

func (w *ExportWorker) export(ctx context.Context, op core.Operation) error {
	q := w.storage.Queries()

	if w.writer == nil {
		// No spreadsheet configured. Close the outbox entry so the sweep
		// does not retry forever.
		return q.SetOperationExportState(ctx, op.ID, storage.ExportDisabled)
	}

	if err := w.writer.AppendOperation(ctx, op); err != nil {
		if markErr := q.SetOperationExportState(ctx, op.ID, storage.ExportFailed); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error",
				"operation_id", op.ID, "error", markErr)
		}
		return fmt.Errorf("append operation: %w", err)
	}

	if err := q.SetOperationExportState(ctx, op.ID, storage.ExportDone); err != nil {
		slog.ErrorContext(ctx, "Failed to mark operation exported",
			"operation_id", op.ID, "error", err)
		// The append worked; the next sweep will just re-export the row.
	}

	slog.InfoContext(ctx, "Exported operation",
		"operation_id", op.ID,
		"kind", string(op.Kind),
		"amount_cents", op.TotalAmount.Cents,
		"items", len(op.Items))
	return nil
}

func loadOperation(ctx context.Context, q *storage.Queries, id int64) (core.Operation, error) {
	op, err := q.GetOperation(ctx, id)
	if err != nil {
		return core.Operation{}, err
	}
	items, err := q.GetOperationItems(ctx, id)
	if err != nil {
		return core.Operation{}, err
	}
	op.Items = items
	return op, nil
}
