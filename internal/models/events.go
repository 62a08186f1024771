package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeSaleInitiated         = "SALE_INITIATED"
	EventTypePaymentInitialized    = "PAYMENT_INITIALIZED"
	EventTypePaymentVerified       = "PAYMENT_VERIFIED"
	EventTypePaymentFailed         = "PAYMENT_FAILED"
	EventTypeSaleCompleted         = "SALE_COMPLETED"
	EventTypeSaleCancelled         = "SALE_CANCELLED"
	EventTypeVerificationRequested = "VERIFICATION_REQUESTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// SaleInitiatedEvent published when a sale is created and its first
// charge initialized
type SaleInitiatedEvent struct {
	BaseEvent
	SaleID     int64           `json:"sale_id"`
	CustomerID int64           `json:"customer_id"`
	ProductID  int64           `json:"product_id"`
	Quantity   int             `json:"quantity"`
	Amount     decimal.Decimal `json:"amount"`
	Reference  string          `json:"reference"`
}

// PaymentInitializedEvent published when an additional charge is
// initialized against an existing sale
type PaymentInitializedEvent struct {
	BaseEvent
	SaleID    int64           `json:"sale_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

// PaymentVerifiedEvent published after a gateway-confirmed payment has
// been applied to its sale
type PaymentVerifiedEvent struct {
	BaseEvent
	SaleID    int64           `json:"sale_id"`
	PaymentID int64           `json:"payment_id"`
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	Paid      decimal.Decimal `json:"paid"`
	Balance   decimal.Decimal `json:"balance"`
	Status    string          `json:"status"`
}

// PaymentFailedEvent published when the gateway reports a
// non-successful charge
type PaymentFailedEvent struct {
	BaseEvent
	SaleID    int64  `json:"sale_id"`
	Reference string `json:"reference"`
	Reason    string `json:"reason"`
}

// SaleCompletedEvent published when a sale's balance reaches zero and
// stock has been adjusted
type SaleCompletedEvent struct {
	BaseEvent
	SaleID    int64 `json:"sale_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// SaleCancelledEvent published when a sale is cancelled
type SaleCancelledEvent struct {
	BaseEvent
	SaleID    int64  `json:"sale_id"`
	ActorType string `json:"actor_type"`
}

// VerificationRequestedEvent enqueued by the webhook endpoint; the
// verification worker drains these and calls the orchestrator
type VerificationRequestedEvent struct {
	BaseEvent
	Reference string `json:"reference"`
	Source    string `json:"source"`
}
