package worker

import (
	"context"
	"encoding/json"
	"errors"

	"marketplace-service/internal/apperr"
	"marketplace-service/internal/broker"
	"marketplace-service/internal/models"
	"marketplace-service/internal/service"
	"marketplace-service/internal/store"
	"marketplace-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// VerificationWorker drains the payment-verifications topic and drives
// the orchestrator's Verify. Webhook deliveries are at-least-once; the
// idempotency guard makes redelivery safe, so transient failures simply
// leave the message uncommitted for retry.
type VerificationWorker struct {
	consumer    *broker.Consumer
	saleService *service.SaleService
	logger      *zap.Logger
}

// NewVerificationWorker creates a new verification worker
func NewVerificationWorker(consumer *broker.Consumer, saleService *service.SaleService) *VerificationWorker {
	return &VerificationWorker{
		consumer:    consumer,
		saleService: saleService,
		logger:      util.GetLogger(),
	}
}

// Start starts the worker
func (w *VerificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting verification worker")
	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

// Stop stops the worker
func (w *VerificationWorker) Stop() error {
	w.logger.Info("Stopping verification worker")
	return w.consumer.Close()
}

func (w *VerificationWorker) handleMessage(ctx context.Context, msg kafka.Message) error {
	var event models.VerificationRequestedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		// Malformed payloads never become processable; drop them.
		w.logger.Error("Failed to unmarshal verification request", zap.Error(err))
		return nil
	}

	w.logger.Info("Processing verification request",
		zap.String("reference", event.Reference),
		zap.String("source", event.Source))

	_, err := w.saleService.Verify(ctx, event.Reference)
	if err == nil {
		return nil
	}

	// Terminal state conflicts (cancelled sale, payment previously
	// marked failed, vanished product) need a human; the payment stays
	// unapplied and the message is committed so the queue does not
	// spin on an outcome no retry can change.
	if isTerminalConflict(err) {
		w.logger.Error("Verification anomaly requires manual review",
			zap.String("reference", event.Reference),
			zap.Error(err))
		return nil
	}

	if retryable(err) {
		// Transient: leave uncommitted so the delivery retries.
		return err
	}

	// Terminal business outcome (unknown reference, charge not
	// successful); nothing a retry would change.
	w.logger.Warn("Verification resolved without applying payment",
		zap.String("reference", event.Reference),
		zap.String("reason", apperr.PublicReason(err)))
	return nil
}

// isTerminalConflict reports whether err is a reconciliation conflict
// pinned to a terminal record state, as opposed to a transient apply
// failure
func isTerminalConflict(err error) bool {
	return errors.Is(err, store.ErrSaleCancelled) ||
		errors.Is(err, store.ErrPaymentAlreadyFailed) ||
		errors.Is(err, store.ErrProductNotFound)
}

// retryable reports whether redelivering the verification request could
// produce a different outcome
func retryable(err error) bool {
	if ae, ok := apperr.As(err); ok {
		return ae.Kind == apperr.Gateway || ae.Kind == apperr.Reconciliation
	}
	return true
}
