package broker

import (
	"context"
	"fmt"

	"marketplace-service/internal/models"
)

// EventPublisher publishes domain events to the sale-events topic
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishSaleInitiated publishes a SaleInitiated event
func (ep *EventPublisher) PublishSaleInitiated(ctx context.Context, event *models.SaleInitiatedEvent) error {
	return ep.producer.PublishEvent(ctx, saleKey(event.SaleID), event)
}

// PublishPaymentInitialized publishes a PaymentInitialized event
func (ep *EventPublisher) PublishPaymentInitialized(ctx context.Context, event *models.PaymentInitializedEvent) error {
	return ep.producer.PublishEvent(ctx, saleKey(event.SaleID), event)
}

// PublishPaymentVerified publishes a PaymentVerified event
func (ep *EventPublisher) PublishPaymentVerified(ctx context.Context, event *models.PaymentVerifiedEvent) error {
	return ep.producer.PublishEvent(ctx, saleKey(event.SaleID), event)
}

// PublishPaymentFailed publishes a PaymentFailed event
func (ep *EventPublisher) PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	return ep.producer.PublishEvent(ctx, saleKey(event.SaleID), event)
}

// PublishSaleCompleted publishes a SaleCompleted event
func (ep *EventPublisher) PublishSaleCompleted(ctx context.Context, event *models.SaleCompletedEvent) error {
	return ep.producer.PublishEvent(ctx, saleKey(event.SaleID), event)
}

// PublishSaleCancelled publishes a SaleCancelled event
func (ep *EventPublisher) PublishSaleCancelled(ctx context.Context, event *models.SaleCancelledEvent) error {
	return ep.producer.PublishEvent(ctx, saleKey(event.SaleID), event)
}

func saleKey(saleID int64) string {
	return fmt.Sprintf("sale-%d", saleID)
}

// VerificationQueue enqueues webhook-triggered verification requests on
// their own topic, keyed by reference so redeliveries for one reference
// stay ordered
type VerificationQueue struct {
	producer *Producer
}

// NewVerificationQueue creates a verification queue publisher
func NewVerificationQueue(producer *Producer) *VerificationQueue {
	return &VerificationQueue{producer: producer}
}

// Enqueue publishes a VerificationRequested event
func (vq *VerificationQueue) Enqueue(ctx context.Context, event *models.VerificationRequestedEvent) error {
	return vq.producer.PublishEvent(ctx, event.Reference, event)
}
