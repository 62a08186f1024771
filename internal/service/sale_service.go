package service

import (
	"context"
	"errors"
	"time"

	"marketplace-service/internal/apperr"
	"marketplace-service/internal/gateway"
	"marketplace-service/internal/models"
	"marketplace-service/internal/store"
	"marketplace-service/internal/util"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SaleLedger is the slice of the store the orchestrator drives. The
// Sale/Payment state transitions belong exclusively to this service; no
// other component writes status, paid or balance.
type SaleLedger interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error)
	GetAddressByID(ctx context.Context, id int64) (*models.CustomerAddress, error)
	CreateSale(ctx context.Context, sale *models.Sale) error
	DeleteSale(ctx context.Context, saleID int64) error
	GetSaleByID(ctx context.Context, id int64) (*models.Sale, error)
	SetSalePaymentReference(ctx context.Context, saleID int64, reference string) error
	CancelSale(ctx context.Context, saleID int64) (bool, error)
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPaymentByReference(ctx context.Context, reference string) (*models.Payment, error)
	GetPaymentsBySaleID(ctx context.Context, saleID int64) ([]models.Payment, error)
	MarkPaymentFailed(ctx context.Context, reference string) error
	ApplyVerifiedPayment(ctx context.Context, reference string, adjust store.InventoryApplyFunc) (*store.ApplyResult, error)
	ListSales(ctx context.Context, f store.SaleFilter) ([]models.Sale, int, error)
}

// Inventory is the stock adjustment contract the orchestrator invokes
// at completion
type Inventory interface {
	Apply(ctx context.Context, tx *sqlx.Tx, productID int64, quantity int) error
	AdjustCache(ctx context.Context, productID int64, quantity int)
	CachedStock(ctx context.Context, productID int64) (int, bool)
}

// EventSink receives sale lifecycle events for the audit stream
type EventSink interface {
	PublishSaleInitiated(ctx context.Context, event *models.SaleInitiatedEvent) error
	PublishPaymentInitialized(ctx context.Context, event *models.PaymentInitializedEvent) error
	PublishPaymentVerified(ctx context.Context, event *models.PaymentVerifiedEvent) error
	PublishPaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error
	PublishSaleCompleted(ctx context.Context, event *models.SaleCompletedEvent) error
	PublishSaleCancelled(ctx context.Context, event *models.SaleCancelledEvent) error
}

// Actor identifies the authenticated caller of an operation
type Actor struct {
	ID   int64
	Type string
	Role string
}

// SaleService orchestrates the sale/payment state machine
type SaleService struct {
	ledger            SaleLedger
	gateway           gateway.Client
	inventory         Inventory
	events            EventSink
	logger            *zap.Logger
	partialMinPercent int64
	paymentMethod     string
}

// NewSaleService creates a new sale orchestrator
func NewSaleService(
	ledger SaleLedger,
	gw gateway.Client,
	inventory Inventory,
	events EventSink,
	partialMinPercent int,
) *SaleService {
	return &SaleService{
		ledger:            ledger,
		gateway:           gw,
		inventory:         inventory,
		events:            events,
		logger:            util.GetLogger(),
		partialMinPercent: int64(partialMinPercent),
		paymentMethod:     "paystack",
	}
}

// InitiateSaleRequest is a request to create a sale and initialize its
// first charge
type InitiateSaleRequest struct {
	CustomerID    int64
	ProductID     int64
	Quantity      int
	AddressID     *int64
	PartialAmount *decimal.Decimal
}

// InitiateSaleResponse carries the new sale and its gateway handle
type InitiateSaleResponse struct {
	SaleID           int64  `json:"sale_id"`
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
}

// VerifyResponse is the sale snapshot after a verification
type VerifyResponse struct {
	SaleID  int64           `json:"sale_id"`
	Paid    decimal.Decimal `json:"paid"`
	Balance decimal.Decimal `json:"balance"`
	Status  string          `json:"status"`
}

// InitiateSale creates a pending sale, computes the charge amount under
// the partial-payment eligibility rules and initializes the gateway
// charge. A failed gateway call rolls the sale back entirely.
func (s *SaleService) InitiateSale(ctx context.Context, req *InitiateSaleRequest) (*InitiateSaleResponse, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.InitiateSale")
	defer span.End()

	if req.Quantity < 1 {
		return nil, apperr.New(apperr.Validation, apperr.ReasonInvalidInput, "Quantity must be at least 1")
	}

	// Cheap early rejection from the stock cache; the database row
	// below stays authoritative.
	if available, ok := s.inventory.CachedStock(ctx, req.ProductID); ok && available < req.Quantity {
		util.SalesFailedTotal.WithLabelValues("insufficient_stock").Inc()
		return nil, apperr.New(apperr.BusinessRule, apperr.ReasonInsufficientStock, "Insufficient product quantity")
	}

	product, err := s.ledger.GetProductByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			return nil, apperr.New(apperr.NotFound, apperr.ReasonProductNotFound, "Product not found")
		}
		return nil, err
	}

	if product.Quantity < req.Quantity {
		util.SalesFailedTotal.WithLabelValues("insufficient_stock").Inc()
		return nil, apperr.New(apperr.BusinessRule, apperr.ReasonInsufficientStock, "Insufficient product quantity")
	}

	customer, err := s.ledger.GetCustomerByID(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, store.ErrCustomerNotFound) {
			return nil, apperr.New(apperr.NotFound, apperr.ReasonCustomerNotFound, "Customer not found")
		}
		return nil, err
	}

	if req.AddressID != nil {
		addr, err := s.ledger.GetAddressByID(ctx, *req.AddressID)
		if err != nil || addr.CustomerID != req.CustomerID {
			return nil, apperr.New(apperr.Validation, apperr.ReasonInvalidInput, "Invalid delivery address")
		}
	}

	amount := product.Price.Mul(decimal.NewFromInt(int64(req.Quantity)))

	chargeAmount := amount
	if req.PartialAmount != nil {
		if customer.KycStatus != models.KycStatusVerified {
			util.SalesFailedTotal.WithLabelValues("partial_not_allowed").Inc()
			return nil, apperr.New(apperr.Forbidden, apperr.ReasonPartialPaymentNotAllowed,
				"Part payment is only available for verified customers")
		}

		minimum := amount.Mul(decimal.NewFromInt(s.partialMinPercent)).Div(decimal.NewFromInt(100))
		if req.PartialAmount.LessThan(minimum) {
			util.SalesFailedTotal.WithLabelValues("partial_too_low").Inc()
			return nil, apperr.New(apperr.BusinessRule, apperr.ReasonPartialPaymentTooLow,
				"Minimum partial payment is 30% of total amount")
		}
		chargeAmount = *req.PartialAmount
	}

	sale := &models.Sale{
		CustomerID: req.CustomerID,
		ProductID:  req.ProductID,
		AddressID:  req.AddressID,
		Price:      product.Price,
		Amount:     amount,
		Paid:       decimal.Zero,
		Balance:    amount,
		Quantity:   req.Quantity,
		Status:     models.SaleStatusPending,
	}

	if err := s.ledger.CreateSale(ctx, sale); err != nil {
		util.SalesFailedTotal.WithLabelValues("db_error").Inc()
		return nil, err
	}

	initRes, err := s.gateway.Initialize(ctx, customer.Email, chargeAmount, gateway.Metadata{
		SaleID:     sale.ID,
		CustomerID: customer.ID,
		ProductID:  product.ID,
	})
	if err != nil {
		// No orphaned pending sale survives a failed initialization.
		if delErr := s.ledger.DeleteSale(ctx, sale.ID); delErr != nil {
			s.logger.Error("Failed to roll back sale after gateway error",
				zap.Int64("sale_id", sale.ID),
				zap.Error(delErr))
		}
		util.SalesFailedTotal.WithLabelValues("gateway_init").Inc()
		return nil, apperr.Wrap(apperr.Gateway, apperr.ReasonGatewayInitFailed,
			"Failed to initialize payment", err)
	}

	payment := &models.Payment{
		SaleID:           sale.ID,
		Amount:           chargeAmount,
		PaymentReference: initRes.Reference,
		Status:           models.PaymentStatusPending,
		PaymentMethod:    s.paymentMethod,
	}
	if err := s.ledger.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	if err := s.ledger.SetSalePaymentReference(ctx, sale.ID, initRes.Reference); err != nil {
		return nil, err
	}

	util.SalesInitiatedTotal.Inc()
	util.PaymentsInitializedTotal.Inc()
	s.logger.Info("Sale initiated",
		zap.Int64("sale_id", sale.ID),
		zap.String("reference", initRes.Reference),
		zap.String("amount", amount.String()),
		zap.String("charge", chargeAmount.String()))

	s.publishSaleInitiated(ctx, sale, initRes.Reference)

	return &InitiateSaleResponse{
		SaleID:           sale.ID,
		Reference:        initRes.Reference,
		AuthorizationURL: initRes.AuthorizationURL,
	}, nil
}

// Verify confirms a payment reference with the gateway and applies it
// to its sale exactly once. Safe to call any number of times with the
// same reference: replays return the stored snapshot unchanged.
func (s *SaleService) Verify(ctx context.Context, reference string) (*VerifyResponse, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.Verify")
	defer span.End()

	payment, err := s.ledger.GetPaymentByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, store.ErrPaymentNotFound) {
			return nil, apperr.New(apperr.NotFound, apperr.ReasonPaymentNotFound, "Payment record not found")
		}
		return nil, err
	}

	verifyRes, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		util.PaymentsFailedTotal.WithLabelValues("gateway_error").Inc()
		return nil, apperr.Wrap(apperr.Gateway, apperr.ReasonGatewayVerifyFailed,
			"Payment verification failed", err)
	}

	if verifyRes.Status != gateway.StatusSuccess {
		if markErr := s.ledger.MarkPaymentFailed(ctx, reference); markErr != nil {
			s.logger.Error("Failed to mark payment failed",
				zap.String("reference", reference),
				zap.Error(markErr))
		}
		util.PaymentsFailedTotal.WithLabelValues("not_successful").Inc()
		s.publishPaymentFailed(ctx, payment.SaleID, reference, verifyRes.Status)
		return nil, apperr.New(apperr.BusinessRule, apperr.ReasonGatewayVerifyFailed,
			"Payment was not successful")
	}

	start := time.Now()
	result, err := s.ledger.ApplyVerifiedPayment(ctx, reference, s.inventory.Apply)
	util.PaymentApplyLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, s.classifyApplyError(reference, err)
	}

	if result.Replayed {
		util.PaymentsReplayedTotal.Inc()
		s.logger.Info("Verification replayed",
			zap.String("reference", reference),
			zap.Int64("sale_id", result.Sale.ID))
		return snapshot(result.Sale), nil
	}

	util.PaymentsVerifiedTotal.Inc()
	s.logger.Info("Payment applied",
		zap.String("reference", reference),
		zap.Int64("sale_id", result.Sale.ID),
		zap.String("paid", result.Sale.Paid.String()),
		zap.String("balance", result.Sale.Balance.String()),
		zap.String("status", result.Sale.Status))

	s.publishPaymentVerified(ctx, result)

	if result.Completed {
		util.SalesCompletedTotal.Inc()
		s.inventory.AdjustCache(ctx, result.Sale.ProductID, result.Sale.Quantity)
		s.publishSaleCompleted(ctx, result.Sale)
	}

	return snapshot(result.Sale), nil
}

// classifyApplyError maps transactional apply failures onto the error
// taxonomy. Everything after the gateway confirmed success must stay
// retriable with the same reference, never silently dropped.
func (s *SaleService) classifyApplyError(reference string, err error) error {
	switch {
	case errors.Is(err, store.ErrPaymentNotFound):
		return apperr.New(apperr.NotFound, apperr.ReasonPaymentNotFound, "Payment record not found")
	case errors.Is(err, store.ErrSaleCancelled):
		s.logger.Error("Confirmed payment against cancelled sale",
			zap.String("reference", reference))
		util.PaymentsFailedTotal.WithLabelValues("sale_cancelled").Inc()
		return apperr.Wrap(apperr.Reconciliation, apperr.ReasonReconciliationFailed,
			"Payment received for a cancelled sale", err)
	case errors.Is(err, store.ErrPaymentAlreadyFailed):
		s.logger.Error("Gateway confirmed a payment previously marked failed",
			zap.String("reference", reference))
		return apperr.Wrap(apperr.Reconciliation, apperr.ReasonReconciliationFailed,
			"Payment state conflict", err)
	case errors.Is(err, store.ErrProductNotFound):
		s.logger.Error("Product vanished before sale completion",
			zap.String("reference", reference))
		return apperr.Wrap(apperr.Reconciliation, apperr.ReasonReconciliationFailed,
			"Product no longer exists", err)
	default:
		util.PaymentsFailedTotal.WithLabelValues("apply_error").Inc()
		return apperr.Wrap(apperr.Reconciliation, apperr.ReasonReconciliationFailed,
			"Failed to apply payment, retry verification", err)
	}
}

// AdditionalPaymentRequest is a request to initialize a further charge
// against an open sale
type AdditionalPaymentRequest struct {
	CustomerID int64
	SaleID     int64
	Amount     decimal.Decimal
}

// MakeAdditionalPayment initializes a new charge toward an open sale's
// balance. The sale itself is not mutated here; completion happens via
// a later Verify exactly as for the first payment.
func (s *SaleService) MakeAdditionalPayment(ctx context.Context, req *AdditionalPaymentRequest) (*InitiateSaleResponse, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.MakeAdditionalPayment")
	defer span.End()

	sale, err := s.ledger.GetSaleByID(ctx, req.SaleID)
	if err != nil {
		if errors.Is(err, store.ErrSaleNotFound) {
			return nil, apperr.New(apperr.NotFound, apperr.ReasonSaleNotFound, "Sale not found")
		}
		return nil, err
	}
	if sale.CustomerID != req.CustomerID {
		return nil, apperr.New(apperr.NotFound, apperr.ReasonSaleNotFound, "Sale not found")
	}

	if sale.Status != models.SaleStatusPending && sale.Status != models.SaleStatusPartial {
		return nil, apperr.New(apperr.BusinessRule, apperr.ReasonNotCompletable,
			"Sale not found or already completed")
	}

	if req.Amount.Sign() <= 0 {
		return nil, apperr.New(apperr.Validation, apperr.ReasonInvalidInput, "Amount must be positive")
	}
	if req.Amount.GreaterThan(sale.Balance) {
		return nil, apperr.New(apperr.BusinessRule, apperr.ReasonOverpayment,
			"Payment amount exceeds remaining balance")
	}

	customer, err := s.ledger.GetCustomerByID(ctx, sale.CustomerID)
	if err != nil {
		return nil, err
	}

	initRes, err := s.gateway.Initialize(ctx, customer.Email, req.Amount, gateway.Metadata{
		SaleID:            sale.ID,
		CustomerID:        customer.ID,
		AdditionalPayment: true,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Gateway, apperr.ReasonGatewayInitFailed,
			"Failed to initialize payment", err)
	}

	payment := &models.Payment{
		SaleID:           sale.ID,
		Amount:           req.Amount,
		PaymentReference: initRes.Reference,
		Status:           models.PaymentStatusPending,
		PaymentMethod:    s.paymentMethod,
	}
	if err := s.ledger.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	if err := s.ledger.SetSalePaymentReference(ctx, sale.ID, initRes.Reference); err != nil {
		return nil, err
	}

	util.PaymentsInitializedTotal.Inc()
	s.logger.Info("Additional payment initialized",
		zap.Int64("sale_id", sale.ID),
		zap.String("reference", initRes.Reference),
		zap.String("amount", req.Amount.String()))

	s.publishPaymentInitialized(ctx, sale.ID, req.Amount, initRes.Reference)

	return &InitiateSaleResponse{
		SaleID:           sale.ID,
		Reference:        initRes.Reference,
		AuthorizationURL: initRes.AuthorizationURL,
	}, nil
}

// CancelSale cancels a pending or partial sale. Cancellation is
// terminal: paid and balance are untouched and no inventory effect
// occurs, since none was ever reserved.
func (s *SaleService) CancelSale(ctx context.Context, saleID int64, actor Actor) error {
	ctx, span := util.StartSpan(ctx, "SaleService.CancelSale")
	defer span.End()

	sale, err := s.ledger.GetSaleByID(ctx, saleID)
	if err != nil {
		if errors.Is(err, store.ErrSaleNotFound) {
			return apperr.New(apperr.NotFound, apperr.ReasonSaleNotFound, "Sale not found")
		}
		return err
	}

	if sale.Status == models.SaleStatusCompleted {
		return apperr.New(apperr.BusinessRule, apperr.ReasonAlreadyCompleted,
			"Completed sales cannot be cancelled")
	}

	if actor.Type == models.ActorCustomer && sale.CustomerID != actor.ID {
		return apperr.New(apperr.Forbidden, apperr.ReasonNotAuthorized,
			"Not authorized to cancel this sale")
	}

	if sale.Status == models.SaleStatusCancelled {
		return nil
	}

	// The write is conditional on the sale still being open; a Verify
	// that commits completion between the read above and this write
	// wins the race and the cancel is rejected.
	changed, err := s.ledger.CancelSale(ctx, saleID)
	if err != nil {
		return err
	}
	if !changed {
		sale, err := s.ledger.GetSaleByID(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status == models.SaleStatusCancelled {
			return nil
		}
		return apperr.New(apperr.BusinessRule, apperr.ReasonAlreadyCompleted,
			"Completed sales cannot be cancelled")
	}

	util.SalesCancelledTotal.Inc()
	s.logger.Info("Sale cancelled",
		zap.Int64("sale_id", saleID),
		zap.String("actor_type", actor.Type))

	s.publishSaleCancelled(ctx, saleID, actor.Type)
	return nil
}

// SaleDetail is a sale with its payment history
type SaleDetail struct {
	Sale     *models.Sale     `json:"sale"`
	Payments []models.Payment `json:"payments"`
}

// GetSale retrieves a sale with its payments, enforcing customer
// ownership
func (s *SaleService) GetSale(ctx context.Context, saleID int64, actor Actor) (*SaleDetail, error) {
	sale, err := s.ledger.GetSaleByID(ctx, saleID)
	if err != nil {
		if errors.Is(err, store.ErrSaleNotFound) {
			return nil, apperr.New(apperr.NotFound, apperr.ReasonSaleNotFound, "Sale not found")
		}
		return nil, err
	}

	if actor.Type == models.ActorCustomer && sale.CustomerID != actor.ID {
		return nil, apperr.New(apperr.Forbidden, apperr.ReasonNotAuthorized,
			"Not authorized to view this sale")
	}

	payments, err := s.ledger.GetPaymentsBySaleID(ctx, saleID)
	if err != nil {
		return nil, err
	}

	return &SaleDetail{Sale: sale, Payments: payments}, nil
}

// ListSalesRequest narrows and pages the sales listing
type ListSalesRequest struct {
	Status     string
	CustomerID int64
	ProductID  int64
	Limit      int
	Offset     int
}

// ListSales lists sales scoped to the actor: customers see their own,
// vendors see sales of their products, staff see everything
func (s *SaleService) ListSales(ctx context.Context, req *ListSalesRequest, actor Actor) ([]models.Sale, int, error) {
	filter := store.SaleFilter{
		Status:     req.Status,
		CustomerID: req.CustomerID,
		ProductID:  req.ProductID,
		Limit:      req.Limit,
		Offset:     req.Offset,
	}

	switch actor.Type {
	case models.ActorCustomer:
		filter.CustomerID = actor.ID
	case models.ActorVendor:
		filter.VendorID = actor.ID
	}

	return s.ledger.ListSales(ctx, filter)
}

func snapshot(sale *models.Sale) *VerifyResponse {
	return &VerifyResponse{
		SaleID:  sale.ID,
		Paid:    sale.Paid,
		Balance: sale.Balance,
		Status:  sale.Status,
	}
}

func (s *SaleService) publishSaleInitiated(ctx context.Context, sale *models.Sale, reference string) {
	if s.events == nil {
		return
	}
	event := &models.SaleInitiatedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeSaleInitiated),
		SaleID:     sale.ID,
		CustomerID: sale.CustomerID,
		ProductID:  sale.ProductID,
		Quantity:   sale.Quantity,
		Amount:     sale.Amount,
		Reference:  reference,
	}
	if err := s.events.PublishSaleInitiated(ctx, event); err != nil {
		s.logger.Error("Failed to publish SaleInitiated event", zap.Error(err))
	}
}

func (s *SaleService) publishPaymentInitialized(ctx context.Context, saleID int64, amount decimal.Decimal, reference string) {
	if s.events == nil {
		return
	}
	event := &models.PaymentInitializedEvent{
		BaseEvent: newBaseEvent(models.EventTypePaymentInitialized),
		SaleID:    saleID,
		Amount:    amount,
		Reference: reference,
	}
	if err := s.events.PublishPaymentInitialized(ctx, event); err != nil {
		s.logger.Error("Failed to publish PaymentInitialized event", zap.Error(err))
	}
}

func (s *SaleService) publishPaymentVerified(ctx context.Context, result *store.ApplyResult) {
	if s.events == nil {
		return
	}
	event := &models.PaymentVerifiedEvent{
		BaseEvent: newBaseEvent(models.EventTypePaymentVerified),
		SaleID:    result.Sale.ID,
		PaymentID: result.Payment.ID,
		Reference: result.Payment.PaymentReference,
		Amount:    result.Payment.Amount,
		Paid:      result.Sale.Paid,
		Balance:   result.Sale.Balance,
		Status:    result.Sale.Status,
	}
	if err := s.events.PublishPaymentVerified(ctx, event); err != nil {
		s.logger.Error("Failed to publish PaymentVerified event", zap.Error(err))
	}
}

func (s *SaleService) publishPaymentFailed(ctx context.Context, saleID int64, reference, reason string) {
	if s.events == nil {
		return
	}
	event := &models.PaymentFailedEvent{
		BaseEvent: newBaseEvent(models.EventTypePaymentFailed),
		SaleID:    saleID,
		Reference: reference,
		Reason:    reason,
	}
	if err := s.events.PublishPaymentFailed(ctx, event); err != nil {
		s.logger.Error("Failed to publish PaymentFailed event", zap.Error(err))
	}
}

func (s *SaleService) publishSaleCompleted(ctx context.Context, sale *models.Sale) {
	if s.events == nil {
		return
	}
	event := &models.SaleCompletedEvent{
		BaseEvent: newBaseEvent(models.EventTypeSaleCompleted),
		SaleID:    sale.ID,
		ProductID: sale.ProductID,
		Quantity:  sale.Quantity,
	}
	if err := s.events.PublishSaleCompleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish SaleCompleted event", zap.Error(err))
	}
}

func (s *SaleService) publishSaleCancelled(ctx context.Context, saleID int64, actorType string) {
	if s.events == nil {
		return
	}
	event := &models.SaleCancelledEvent{
		BaseEvent: newBaseEvent(models.EventTypeSaleCancelled),
		SaleID:    saleID,
		ActorType: actorType,
	}
	if err := s.events.PublishSaleCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish SaleCancelled event", zap.Error(err))
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
