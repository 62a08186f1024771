package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"marketplace-service/internal/apperr"
	"marketplace-service/internal/gateway"
	"marketplace-service/internal/models"
	"marketplace-service/internal/store"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLedger is an in-memory SaleLedger with the same transactional
// semantics as the SQL store: one payment application per reference,
// replays returning the stored snapshot, cancelled sales rejecting
// payments without state changes.
type fakeLedger struct {
	mu            sync.Mutex
	sales         map[int64]*models.Sale
	payments      map[string]*models.Payment
	products      map[int64]*models.Product
	customers     map[int64]*models.Customer
	addresses     map[int64]*models.CustomerAddress
	nextSaleID    int64
	nextPaymentID int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		sales:     make(map[int64]*models.Sale),
		payments:  make(map[string]*models.Payment),
		products:  make(map[int64]*models.Product),
		customers: make(map[int64]*models.Customer),
		addresses: make(map[int64]*models.CustomerAddress),
	}
}

func (l *fakeLedger) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.products[id]
	if !ok {
		return nil, store.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (l *fakeLedger) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.customers[id]
	if !ok {
		return nil, store.ErrCustomerNotFound
	}
	cp := *c
	return &cp, nil
}

func (l *fakeLedger) GetAddressByID(ctx context.Context, id int64) (*models.CustomerAddress, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.addresses[id]
	if !ok {
		return nil, store.ErrAddressNotFound
	}
	cp := *a
	return &cp, nil
}

func (l *fakeLedger) CreateSale(ctx context.Context, sale *models.Sale) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextSaleID++
	sale.ID = l.nextSaleID
	sale.CreatedAt = time.Now()
	sale.UpdatedAt = sale.CreatedAt
	cp := *sale
	l.sales[sale.ID] = &cp
	return nil
}

func (l *fakeLedger) DeleteSale(ctx context.Context, saleID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.sales, saleID)
	return nil
}

func (l *fakeLedger) GetSaleByID(ctx context.Context, id int64) (*models.Sale, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sales[id]
	if !ok {
		return nil, store.ErrSaleNotFound
	}
	cp := *s
	return &cp, nil
}

func (l *fakeLedger) SetSalePaymentReference(ctx context.Context, saleID int64, reference string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sales[saleID]
	if !ok {
		return store.ErrSaleNotFound
	}
	s.PaymentReference = reference
	return nil
}

func (l *fakeLedger) CancelSale(ctx context.Context, saleID int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sales[saleID]
	if !ok {
		return false, nil
	}
	if s.Status != models.SaleStatusPending && s.Status != models.SaleStatusPartial {
		return false, nil
	}
	s.Status = models.SaleStatusCancelled
	return true, nil
}

func (l *fakeLedger) CreatePayment(ctx context.Context, payment *models.Payment) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextPaymentID++
	payment.ID = l.nextPaymentID
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = payment.CreatedAt
	cp := *payment
	l.payments[payment.PaymentReference] = &cp
	return nil
}

func (l *fakeLedger) GetPaymentByReference(ctx context.Context, reference string) (*models.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.payments[reference]
	if !ok {
		return nil, store.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (l *fakeLedger) GetPaymentsBySaleID(ctx context.Context, saleID int64) ([]models.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Payment
	for _, p := range l.payments {
		if p.SaleID == saleID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (l *fakeLedger) MarkPaymentFailed(ctx context.Context, reference string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.payments[reference]
	if ok && p.Status == models.PaymentStatusPending {
		p.Status = models.PaymentStatusFailed
	}
	return nil
}

func (l *fakeLedger) ApplyVerifiedPayment(ctx context.Context, reference string, adjust store.InventoryApplyFunc) (*store.ApplyResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	payment, ok := l.payments[reference]
	if !ok {
		return nil, store.ErrPaymentNotFound
	}

	if payment.Status == models.PaymentStatusSuccess {
		sale := l.sales[payment.SaleID]
		saleCp, payCp := *sale, *payment
		return &store.ApplyResult{Sale: &saleCp, Payment: &payCp, Replayed: true}, nil
	}
	if payment.Status == models.PaymentStatusFailed {
		return nil, store.ErrPaymentAlreadyFailed
	}

	sale, ok := l.sales[payment.SaleID]
	if !ok {
		return nil, store.ErrSaleNotFound
	}
	if sale.Status == models.SaleStatusCancelled {
		return nil, store.ErrSaleCancelled
	}

	newPaid := sale.Paid.Add(payment.Amount)
	newBalance := sale.Amount.Sub(newPaid)
	completed := newBalance.Sign() <= 0

	if completed {
		if err := adjust(ctx, nil, sale.ProductID, sale.Quantity); err != nil {
			return nil, err
		}
	}

	payment.Status = models.PaymentStatusSuccess
	sale.Paid = newPaid
	sale.Balance = newBalance
	if completed {
		sale.Status = models.SaleStatusCompleted
	} else {
		sale.Status = models.SaleStatusPartial
	}

	saleCp, payCp := *sale, *payment
	return &store.ApplyResult{Sale: &saleCp, Payment: &payCp, Completed: completed}, nil
}

func (l *fakeLedger) ListSales(ctx context.Context, f store.SaleFilter) ([]models.Sale, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Sale
	for _, s := range l.sales {
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		if f.CustomerID != 0 && s.CustomerID != f.CustomerID {
			continue
		}
		if f.ProductID != 0 && s.ProductID != f.ProductID {
			continue
		}
		if f.VendorID != 0 {
			p, ok := l.products[s.ProductID]
			if !ok || p.VendorID != f.VendorID {
				continue
			}
		}
		out = append(out, *s)
	}
	return out, len(out), nil
}

// fakeInventory mutates the fake ledger's product rows. Apply runs under
// the ledger lock, mirroring the in-transaction adjustment.
type fakeInventory struct {
	ledger       *fakeLedger
	mu           sync.Mutex
	cached       map[int64]int
	cacheAdjusts int
}

func (f *fakeInventory) Apply(ctx context.Context, tx *sqlx.Tx, productID int64, quantity int) error {
	p, ok := f.ledger.products[productID]
	if !ok {
		return store.ErrProductNotFound
	}
	p.Quantity -= quantity
	p.SalesCount += quantity
	return nil
}

func (f *fakeInventory) AdjustCache(ctx context.Context, productID int64, quantity int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cacheAdjusts++
}

func (f *fakeInventory) CachedStock(ctx context.Context, productID int64) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.cached[productID]
	return v, ok
}

type fakeGateway struct {
	mu        sync.Mutex
	refSeq    int
	statuses  map[string]string
	initErr   error
	verifyErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{statuses: make(map[string]string)}
}

func (g *fakeGateway) Initialize(ctx context.Context, email string, amount decimal.Decimal, meta gateway.Metadata) (*gateway.InitializeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.initErr != nil {
		return nil, g.initErr
	}
	g.refSeq++
	ref := fmt.Sprintf("PSK_%04d", g.refSeq)
	return &gateway.InitializeResult{
		Reference:        ref,
		AuthorizationURL: "https://checkout.example.com/" + ref,
	}, nil
}

func (g *fakeGateway) Verify(ctx context.Context, reference string) (*gateway.VerifyResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	status, ok := g.statuses[reference]
	if !ok {
		status = gateway.StatusSuccess
	}
	return &gateway.VerifyResult{Status: status}, nil
}

const (
	buyerID         = int64(1)
	verifiedBuyerID = int64(2)
	productID       = int64(1)
)

func newFixture() (*SaleService, *fakeLedger, *fakeGateway, *fakeInventory) {
	ledger := newFakeLedger()
	ledger.products[productID] = &models.Product{
		ID:       productID,
		VendorID: 7,
		Price:    decimal.RequireFromString("100.00"),
		Quantity: 10,
	}
	ledger.customers[buyerID] = &models.Customer{
		ID:        buyerID,
		Email:     "buyer@example.com",
		KycStatus: models.KycStatusPending,
	}
	ledger.customers[verifiedBuyerID] = &models.Customer{
		ID:        verifiedBuyerID,
		Email:     "verified@example.com",
		KycStatus: models.KycStatusVerified,
	}

	gw := newFakeGateway()
	inv := &fakeInventory{ledger: ledger, cached: make(map[int64]int)}
	svc := NewSaleService(ledger, gw, inv, nil, 30)
	return svc, ledger, gw, inv
}

func initiate(t *testing.T, svc *SaleService, customerID int64, qty int, partial *decimal.Decimal) *InitiateSaleResponse {
	t.Helper()
	resp, err := svc.InitiateSale(context.Background(), &InitiateSaleRequest{
		CustomerID:    customerID,
		ProductID:     productID,
		Quantity:      qty,
		PartialAmount: partial,
	})
	require.NoError(t, err)
	return resp
}

func TestInitiateSaleFullAmount(t *testing.T) {
	svc, ledger, _, _ := newFixture()

	resp := initiate(t, svc, buyerID, 2, nil)

	sale := ledger.sales[resp.SaleID]
	require.NotNil(t, sale)
	assert.Equal(t, models.SaleStatusPending, sale.Status)
	assert.True(t, sale.Amount.Equal(decimal.RequireFromString("200.00")))
	assert.True(t, sale.Paid.IsZero())
	assert.True(t, sale.Balance.Equal(sale.Amount))
	assert.Equal(t, resp.Reference, sale.PaymentReference)

	payment := ledger.payments[resp.Reference]
	require.NotNil(t, payment)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.True(t, payment.Amount.Equal(sale.Amount))

	// Stock is untouched until completion.
	assert.Equal(t, 10, ledger.products[productID].Quantity)
}

func TestInitiateSaleInsufficientStock(t *testing.T) {
	svc, _, _, _ := newFixture()

	_, err := svc.InitiateSale(context.Background(), &InitiateSaleRequest{
		CustomerID: buyerID,
		ProductID:  productID,
		Quantity:   11,
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ReasonInsufficientStock))
}

func TestInitiateSaleCachedStockRejection(t *testing.T) {
	svc, _, _, inv := newFixture()
	inv.cached[productID] = 1

	_, err := svc.InitiateSale(context.Background(), &InitiateSaleRequest{
		CustomerID: buyerID,
		ProductID:  productID,
		Quantity:   3,
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ReasonInsufficientStock))
}

func TestInitiateSaleGatewayFailureRollsBack(t *testing.T) {
	svc, ledger, gw, _ := newFixture()
	gw.initErr = errors.New("gateway unreachable")

	_, err := svc.InitiateSale(context.Background(), &InitiateSaleRequest{
		CustomerID: buyerID,
		ProductID:  productID,
		Quantity:   1,
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ReasonGatewayInitFailed))

	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Gateway, ae.Kind)

	// No orphaned pending sale survives.
	assert.Empty(t, ledger.sales)
	assert.Empty(t, ledger.payments)
}

func TestInitiateSalePartialRequiresVerifiedCustomer(t *testing.T) {
	svc, _, _, _ := newFixture()
	partial := decimal.RequireFromString("80.00")

	_, err := svc.InitiateSale(context.Background(), &InitiateSaleRequest{
		CustomerID:    buyerID,
		ProductID:     productID,
		Quantity:      2,
		PartialAmount: &partial,
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ReasonPartialPaymentNotAllowed))

	ae, _ := apperr.As(err)
	assert.Equal(t, apperr.Forbidden, ae.Kind)
}

func TestInitiateSalePartialBelowMinimum(t *testing.T) {
	svc, _, _, _ := newFixture()

	// 30% of 200.00 is 60.00.
	partial := decimal.RequireFromString("59.99")
	_, err := svc.InitiateSale(context.Background(), &InitiateSaleRequest{
		CustomerID:    verifiedBuyerID,
		ProductID:     productID,
		Quantity:      2,
		PartialAmount: &partial,
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ReasonPartialPaymentTooLow))
}

func TestInitiateSalePartialChargesPartialAmount(t *testing.T) {
	svc, ledger, _, _ := newFixture()

	partial := decimal.RequireFromString("80.00")
	resp := initiate(t, svc, verifiedBuyerID, 2, &partial)

	payment := ledger.payments[resp.Reference]
	require.NotNil(t, payment)
	assert.True(t, payment.Amount.Equal(partial))

	// The sale itself still carries the full amount and balance.
	sale := ledger.sales[resp.SaleID]
	assert.True(t, sale.Amount.Equal(decimal.RequireFromString("200.00")))
	assert.True(t, sale.Balance.Equal(sale.Amount))
}

func TestVerifyCompletesSale(t *testing.T) {
	svc, ledger, _, inv := newFixture()
	resp := initiate(t, svc, buyerID, 2, nil)

	snap, err := svc.Verify(context.Background(), resp.Reference)
	require.NoError(t, err)

	assert.Equal(t, models.SaleStatusCompleted, snap.Status)
	assert.True(t, snap.Paid.Equal(decimal.RequireFromString("200.00")))
	assert.True(t, snap.Balance.IsZero())

	product := ledger.products[productID]
	assert.Equal(t, 8, product.Quantity)
	assert.Equal(t, 2, product.SalesCount)
	assert.Equal(t, 1, inv.cacheAdjusts)

	assert.Equal(t, models.PaymentStatusSuccess, ledger.payments[resp.Reference].Status)
}

func TestVerifyIsIdempotent(t *testing.T) {
	svc, ledger, _, inv := newFixture()
	resp := initiate(t, svc, buyerID, 2, nil)

	first, err := svc.Verify(context.Background(), resp.Reference)
	require.NoError(t, err)

	second, err := svc.Verify(context.Background(), resp.Reference)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.True(t, first.Paid.Equal(second.Paid))
	assert.True(t, first.Balance.Equal(second.Balance))

	// Applied exactly once.
	assert.Equal(t, 8, ledger.products[productID].Quantity)
	assert.Equal(t, 1, inv.cacheAdjusts)
}

func TestVerifyConcurrentSameReference(t *testing.T) {
	svc, ledger, _, inv := newFixture()
	resp := initiate(t, svc, buyerID, 2, nil)

	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Verify(context.Background(), resp.Reference)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}

	sale := ledger.sales[resp.SaleID]
	assert.Equal(t, models.SaleStatusCompleted, sale.Status)
	assert.True(t, sale.Paid.Equal(sale.Amount))
	assert.Equal(t, 8, ledger.products[productID].Quantity)
	assert.Equal(t, 2, ledger.products[productID].SalesCount)
	assert.Equal(t, 1, inv.cacheAdjusts)
}

func TestPartialPaymentLifecycle(t *testing.T) {
	svc, ledger, _, _ := newFixture()

	partial := decimal.RequireFromString("80.00")
	resp := initiate(t, svc, verifiedBuyerID, 2, &partial)

	snap, err := svc.Verify(context.Background(), resp.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.SaleStatusPartial, snap.Status)
	assert.True(t, snap.Paid.Equal(partial))
	assert.True(t, snap.Balance.Equal(decimal.RequireFromString("120.00")))

	// Stock only moves at completion.
	assert.Equal(t, 10, ledger.products[productID].Quantity)

	second, err := svc.MakeAdditionalPayment(context.Background(), &AdditionalPaymentRequest{
		CustomerID: verifiedBuyerID,
		SaleID:     resp.SaleID,
		Amount:     decimal.RequireFromString("120.00"),
	})
	require.NoError(t, err)
	assert.NotEqual(t, resp.Reference, second.Reference)

	snap, err = svc.Verify(context.Background(), second.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.SaleStatusCompleted, snap.Status)
	assert.True(t, snap.Balance.IsZero())
	assert.Equal(t, 8, ledger.products[productID].Quantity)

	// Paid plus balance equals the original amount at every step.
	sale := ledger.sales[resp.SaleID]
	assert.True(t, sale.Paid.Add(sale.Balance).Equal(sale.Amount))
}

func TestAdditionalPaymentOverpaymentRejected(t *testing.T) {
	svc, ledger, _, _ := newFixture()

	partial := decimal.RequireFromString("80.00")
	resp := initiate(t, svc, verifiedBuyerID, 2, &partial)
	_, err := svc.Verify(context.Background(), resp.Reference)
	require.NoError(t, err)

	paymentsBefore := len(ledger.payments)

	_, err = svc.MakeAdditionalPayment(context.Background(), &AdditionalPaymentRequest{
		CustomerID: verifiedBuyerID,
		SaleID:     resp.SaleID,
		Amount:     decimal.RequireFromString("120.01"),
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ReasonOverpayment))

	// The rejected attempt never created a payment record.
	assert.Equal(t, paymentsBefore, len(ledger.payments))
}

func TestAdditionalPaymentOnCompletedSale(t *testing.T) {
	svc, _, _, _ := newFixture()

	resp := initiate(t, svc, buyerID, 1, nil)
	_, err := svc.Verify(context.Background(), resp.Reference)
	require.NoError(t, err)

	_, err = svc.MakeAdditionalPayment(context.Background(), &AdditionalPaymentRequest{
		CustomerID: buyerID,
		SaleID:     resp.SaleID,
		Amount:     decimal.RequireFromString("10.00"),
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ReasonNotCompletable))
}

func TestAdditionalPaymentOwnership(t *testing.T) {
	svc, _, _, _ := newFixture()

	resp := initiate(t, svc, buyerID, 2, nil)

	_, err := svc.MakeAdditionalPayment(context.Background(), &AdditionalPaymentRequest{
		CustomerID: verifiedBuyerID,
		SaleID:     resp.SaleID,
		Amount:     decimal.RequireFromString("50.00"),
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ReasonSaleNotFound))
}

func TestVerifyFailedCharge(t *testing.T) {
	svc, ledger, gw, _ := newFixture()
	resp := initiate(t, svc, buyerID, 2, nil)

	gw.statuses[resp.Reference] = "abandoned"

	_, err := svc.Verify(context.Background(), resp.Reference)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ReasonGatewayVerifyFailed))
	assert.Equal(t, models.PaymentStatusFailed, ledger.payments[resp.Reference].Status)

	// The sale itself is untouched by a failed charge.
	sale := ledger.sales[resp.SaleID]
	assert.Equal(t, models.SaleStatusPending, sale.Status)
	assert.True(t, sale.Paid.IsZero())

	// If the gateway later claims success for the same reference, the
	// conflict surfaces as a reconciliation error.
	delete(gw.statuses, resp.Reference)
	_, err = svc.Verify(context.Background(), resp.Reference)
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Reconciliation, ae.Kind)
}

func TestVerifyGatewayError(t *testing.T) {
	svc, ledger, gw, _ := newFixture()
	resp := initiate(t, svc, buyerID, 1, nil)

	gw.verifyErr = errors.New("timeout")

	_, err := svc.Verify(context.Background(), resp.Reference)
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Gateway, ae.Kind)

	// Retriable: payment stays pending.
	assert.Equal(t, models.PaymentStatusPending, ledger.payments[resp.Reference].Status)
}

func TestVerifyUnknownReference(t *testing.T) {
	svc, _, _, _ := newFixture()

	_, err := svc.Verify(context.Background(), "PSK_missing")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ReasonPaymentNotFound))
}

func TestCancelSale(t *testing.T) {
	svc, ledger, _, _ := newFixture()
	resp := initiate(t, svc, buyerID, 2, nil)

	actor := Actor{ID: buyerID, Type: models.ActorCustomer}
	require.NoError(t, svc.CancelSale(context.Background(), resp.SaleID, actor))
	assert.Equal(t, models.SaleStatusCancelled, ledger.sales[resp.SaleID].Status)

	// Cancelling again is a no-op.
	require.NoError(t, svc.CancelSale(context.Background(), resp.SaleID, actor))
}

func TestCancelSaleOwnership(t *testing.T) {
	svc, _, _, _ := newFixture()
	resp := initiate(t, svc, buyerID, 2, nil)

	err := svc.CancelSale(context.Background(), resp.SaleID, Actor{ID: verifiedBuyerID, Type: models.ActorCustomer})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ReasonNotAuthorized))

	// Staff can cancel any sale.
	require.NoError(t, svc.CancelSale(context.Background(), resp.SaleID, Actor{ID: 99, Type: models.ActorUser}))
}

// raceLedger runs a hook after CancelSale's status read, opening the
// window in which a concurrent Verify can commit completion.
type raceLedger struct {
	*fakeLedger
	once      sync.Once
	afterRead func()
}

func (l *raceLedger) GetSaleByID(ctx context.Context, id int64) (*models.Sale, error) {
	sale, err := l.fakeLedger.GetSaleByID(ctx, id)
	if l.afterRead != nil {
		l.once.Do(l.afterRead)
	}
	return sale, err
}

func TestCancelLosesRaceToCompletion(t *testing.T) {
	ledger := newFakeLedger()
	ledger.products[productID] = &models.Product{
		ID:       productID,
		VendorID: 7,
		Price:    decimal.RequireFromString("100.00"),
		Quantity: 10,
	}
	ledger.customers[buyerID] = &models.Customer{
		ID:        buyerID,
		Email:     "buyer@example.com",
		KycStatus: models.KycStatusPending,
	}

	raced := &raceLedger{fakeLedger: ledger}
	gw := newFakeGateway()
	inv := &fakeInventory{ledger: ledger, cached: make(map[int64]int)}
	svc := NewSaleService(raced, gw, inv, nil, 30)

	resp := initiate(t, svc, buyerID, 2, nil)

	// The payment completes after cancel has observed the sale as
	// pending but before it writes.
	raced.afterRead = func() {
		_, err := svc.Verify(context.Background(), resp.Reference)
		require.NoError(t, err)
	}

	err := svc.CancelSale(context.Background(), resp.SaleID, Actor{ID: buyerID, Type: models.ActorCustomer})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ReasonAlreadyCompleted))

	// Completed is terminal: the cancel never overwrote it.
	sale := ledger.sales[resp.SaleID]
	assert.Equal(t, models.SaleStatusCompleted, sale.Status)
	assert.True(t, sale.Paid.Equal(sale.Amount))
	assert.True(t, sale.Balance.IsZero())
	assert.Equal(t, 8, ledger.products[productID].Quantity)
}

func TestCancelCompletedSale(t *testing.T) {
	svc, _, _, _ := newFixture()
	resp := initiate(t, svc, buyerID, 1, nil)
	_, err := svc.Verify(context.Background(), resp.Reference)
	require.NoError(t, err)

	err = svc.CancelSale(context.Background(), resp.SaleID, Actor{ID: buyerID, Type: models.ActorCustomer})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ReasonAlreadyCompleted))
}

func TestVerifyAgainstCancelledSale(t *testing.T) {
	svc, ledger, _, _ := newFixture()
	resp := initiate(t, svc, buyerID, 2, nil)

	actor := Actor{ID: buyerID, Type: models.ActorCustomer}
	require.NoError(t, svc.CancelSale(context.Background(), resp.SaleID, actor))

	_, err := svc.Verify(context.Background(), resp.Reference)
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Reconciliation, ae.Kind)
	assert.True(t, errors.Is(err, store.ErrSaleCancelled))

	// Nothing was applied: payment pending, sale money fields untouched.
	assert.Equal(t, models.PaymentStatusPending, ledger.payments[resp.Reference].Status)
	sale := ledger.sales[resp.SaleID]
	assert.True(t, sale.Paid.IsZero())
	assert.True(t, sale.Balance.Equal(sale.Amount))
	assert.Equal(t, 10, ledger.products[productID].Quantity)
}

func TestGetSaleOwnership(t *testing.T) {
	svc, _, _, _ := newFixture()
	resp := initiate(t, svc, buyerID, 2, nil)

	_, err := svc.GetSale(context.Background(), resp.SaleID, Actor{ID: verifiedBuyerID, Type: models.ActorCustomer})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ReasonNotAuthorized))

	detail, err := svc.GetSale(context.Background(), resp.SaleID, Actor{ID: buyerID, Type: models.ActorCustomer})
	require.NoError(t, err)
	assert.Len(t, detail.Payments, 1)
}

func TestListSalesScoping(t *testing.T) {
	svc, _, _, _ := newFixture()
	initiate(t, svc, buyerID, 1, nil)
	initiate(t, svc, verifiedBuyerID, 1, nil)

	// Customers see only their own sales regardless of filters.
	sales, total, err := svc.ListSales(context.Background(),
		&ListSalesRequest{CustomerID: verifiedBuyerID, Limit: 10},
		Actor{ID: buyerID, Type: models.ActorCustomer})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, buyerID, sales[0].CustomerID)

	// Vendors see sales of their products.
	_, total, err = svc.ListSales(context.Background(),
		&ListSalesRequest{Limit: 10},
		Actor{ID: 7, Type: models.ActorVendor})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	// Staff see everything.
	_, total, err = svc.ListSales(context.Background(),
		&ListSalesRequest{Limit: 10},
		Actor{ID: 99, Type: models.ActorUser})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}
