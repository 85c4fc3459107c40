package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fintrack/apiserver/internal/mq"
	"github.com/fintrack/apiserver/internal/stats"
	"github.com/fintrack/apiserver/internal/storage"
	"github.com/fintrack/apiserver/internal/store"
	"github.com/fintrack/apiserver/types"
)

const exportContentType = "text/csv"

// ExportRepository defines owner-scoped persistence for export jobs.
type ExportRepository interface {
	Create(ctx context.Context, export types.Export) (types.Export, error)
	Get(ctx context.Context, userID, id string) (types.Export, error)
	Update(ctx context.Context, export types.Export) (types.Export, error)
}

// Publisher is the queue side of the export pipeline. *mq.MQ satisfies it.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// ObjectStore is where rendered exports are kept. *storage.Storage satisfies it.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// ExportService turns a user's transactions into a downloadable CSV file.
// Request runs in the API server; Process runs in the worker.
type ExportService struct {
	exports      ExportRepository
	transactions TransactionRepository
	publisher    Publisher
	objects      ObjectStore
	channel      string
	now          func() time.Time
}

func NewExportService(
	exports ExportRepository,
	transactions TransactionRepository,
	publisher Publisher,
	objects ObjectStore,
	channel string,
) *ExportService {
	return &ExportService{
		exports:      exports,
		transactions: transactions,
		publisher:    publisher,
		objects:      objects,
		channel:      channel,
		now:          time.Now,
	}
}

// Request records a pending export and queues it for the worker.
func (s *ExportService) Request(ctx context.Context, userID string) (types.Export, error) {
	export, err := s.exports.Create(ctx, types.Export{UserID: userID, Status: types.ExportStatusPending})
	if err != nil {
		return types.Export{}, fmt.Errorf("create export: %w", err)
	}

	data, attrs, err := mq.ExportRequested{
		ExportID:    export.ID,
		UserID:      userID,
		RequestedAt: s.now().UTC(),
	}.Encode()
	if err == nil {
		_, err = s.publisher.Publish(ctx, s.channel, data, attrs)
	}
	if err != nil {
		export.Status = types.ExportStatusFailed
		export.Error = "could not queue export"
		if _, updateErr := s.exports.Update(ctx, export); updateErr != nil {
			return types.Export{}, errors.Join(fmt.Errorf("publish export: %w", err), updateErr)
		}
		return types.Export{}, fmt.Errorf("publish export: %w", err)
	}
	return export, nil
}

func (s *ExportService) Get(ctx context.Context, userID, id string) (types.Export, error) {
	return s.exports.Get(ctx, userID, id)
}

// Open returns the rendered file of a ready export.
func (s *ExportService) Open(ctx context.Context, userID, id string) (io.ReadCloser, types.Export, error) {
	export, err := s.exports.Get(ctx, userID, id)
	if err != nil {
		return nil, types.Export{}, err
	}
	if export.Status != types.ExportStatusReady {
		return nil, export, ErrExportNotReady
	}
	r, err := s.objects.Get(ctx, export.ObjectKey)
	if err != nil {
		if !errors.Is(err, storage.ErrObjectNotFound) {
			return nil, export, fmt.Errorf("open export object: %w", err)
		}
		// The file is gone; a new export has to be requested.
		export.Status = types.ExportStatusFailed
		export.Error = "export file is no longer available"
		if _, updateErr := s.exports.Update(ctx, export); updateErr != nil {
			return nil, export, fmt.Errorf("mark export failed: %w", updateErr)
		}
		return nil, export, fmt.Errorf("open export object: %w", store.ErrNotFound)
	}
	return r, export, nil
}

// Process renders and uploads the export named by job. Jobs for exports that
// no longer exist are marked permanent so the queue drops them; upload
// failures are returned for redelivery.
func (s *ExportService) Process(ctx context.Context, job mq.ExportRequested) error {
	export, err := s.exports.Get(ctx, job.UserID, job.ExportID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return mq.Permanent(err)
		}
		return fmt.Errorf("load export: %w", err)
	}
	if export.Status == types.ExportStatusReady {
		return nil
	}

	txs, err := s.transactions.List(ctx, job.UserID, types.TransactionFilter{})
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}

	var buf bytes.Buffer
	if err := WriteTransactionsCSV(&buf, txs); err != nil {
		return s.fail(ctx, export, err)
	}

	key := ExportObjectKey(job.UserID, job.ExportID)
	if err := s.objects.Put(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), exportContentType); err != nil {
		return fmt.Errorf("upload export: %w", err)
	}

	export.Status = types.ExportStatusReady
	export.ObjectKey = key
	export.Error = ""
	if _, err := s.exports.Update(ctx, export); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// The export or its owner was deleted while rendering.
			if delErr := s.objects.Delete(ctx, key); delErr != nil {
				return fmt.Errorf("remove orphaned export %s: %w", key, delErr)
			}
			return mq.Permanent(err)
		}
		return fmt.Errorf("mark export ready: %w", err)
	}
	return nil
}

func (s *ExportService) fail(ctx context.Context, export types.Export, cause error) error {
	export.Status = types.ExportStatusFailed
	export.Error = cause.Error()
	if _, err := s.exports.Update(ctx, export); err != nil {
		return fmt.Errorf("mark export failed: %w", err)
	}
	return mq.Permanent(cause)
}

// ExportObjectKey is the object storage key of an export file.
func ExportObjectKey(userID, exportID string) string {
	return "exports/" + userID + "/" + exportID + ".csv"
}

// WriteTransactionsCSV writes one row per transaction followed by a totals
// footer computed with the same aggregation as the statistics endpoint.
func WriteTransactionsCSV(w io.Writer, txs []types.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "date", "description", "category", "type", "amount"}); err != nil {
		return err
	}
	for _, tx := range txs {
		row := []string{
			fmt.Sprint(tx.ID),
			tx.Date.String(),
			tx.Description,
			tx.Category,
			string(tx.Type),
			tx.Amount.StringFixed(2),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	totals := stats.Compute(txs)
	footer := [][]string{
		{},
		{"", "", "Total income", "", "", totals.TotalIncome.StringFixed(2)},
		{"", "", "Total expenses", "", "", totals.TotalExpenses.StringFixed(2)},
		{"", "", "Balance", "", "", totals.Balance.StringFixed(2)},
	}
	if err := cw.WriteAll(footer); err != nil {
		return err
	}
	return cw.Error()
}
