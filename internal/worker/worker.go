// Package worker consumes export jobs from the queue and produces the CSV
// files the API serves.
package worker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fintrack/apiserver/internal/logging"
	"github.com/fintrack/apiserver/internal/mq"
)

// Subscriber is the consuming side of a queue. *mq.MQ satisfies it.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler mq.Handler) error
}

// Processor renders one export job.
type Processor interface {
	Process(ctx context.Context, job mq.ExportRequested) error
}

type Worker struct {
	queue     Subscriber
	processor Processor
	channel   string
	logger    *slog.Logger
}

func New(queue Subscriber, processor Processor, channel string, logger *slog.Logger) *Worker {
	return &Worker{
		queue:     queue,
		processor: processor,
		channel:   channel,
		logger:    logging.Component(logger, "worker"),
	}
}

// Run consumes jobs until ctx is cancelled. Cancellation is not an error.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("consuming export jobs", "channel", w.channel)
	err := w.queue.Subscribe(ctx, w.channel, w.Handle)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Handle decodes and processes one message. Undecodable messages are dropped.
func (w *Worker) Handle(ctx context.Context, msg mq.Message) error {
	job, err := mq.DecodeExportRequested(msg)
	if err != nil {
		w.logger.WarnContext(ctx, "dropping malformed export message", "message_id", msg.ID, logging.Err(err))
		return mq.Permanent(err)
	}

	logger := w.logger.With("export_id", job.ExportID, logging.FieldUserID, job.UserID)
	if err := w.processor.Process(ctx, job); err != nil {
		if mq.IsPermanent(err) {
			logger.WarnContext(ctx, "export job failed permanently", logging.Err(err))
		} else {
			logger.ErrorContext(ctx, "export job failed, will retry", logging.Err(err))
		}
		return err
	}
	logger.InfoContext(ctx, "export ready")
	return nil
}
