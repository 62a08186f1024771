package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"marketplace-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// InventoryApplyFunc applies the relative product adjustment inside the
// completion transaction
type InventoryApplyFunc func(ctx context.Context, tx *sqlx.Tx, productID int64, quantity int) error

// ApplyResult is the outcome of a transactional payment application
type ApplyResult struct {
	Sale      *models.Sale
	Payment   *models.Payment
	Replayed  bool
	Completed bool
}

// CreateSale creates a new sale in pending status
func (s *Store) CreateSale(ctx context.Context, sale *models.Sale) error {
	query := `
		INSERT INTO sales (customer_id, product_id, address_id, price, amount, paid, balance, quantity, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		sale.CustomerID, sale.ProductID, sale.AddressID,
		sale.Price, sale.Amount, sale.Paid, sale.Balance,
		sale.Quantity, sale.Status,
	).Scan(&sale.ID, &sale.CreatedAt, &sale.UpdatedAt)
}

// DeleteSale removes a sale; used only to roll back an orphaned pending
// sale after a failed gateway initialization
func (s *Store) DeleteSale(ctx context.Context, saleID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sales WHERE id = $1", saleID)
	return err
}

// GetSaleByID retrieves a sale by ID
func (s *Store) GetSaleByID(ctx context.Context, id int64) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.GetContext(ctx, &sale, "SELECT * FROM sales WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSaleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// SetSalePaymentReference stamps the sale with its most recent
// initialization reference
func (s *Store) SetSalePaymentReference(ctx context.Context, saleID int64, reference string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE sales SET payment_reference = $1, updated_at = NOW() WHERE id = $2",
		reference, saleID)
	return err
}

// CancelSale transitions an open sale to cancelled. The write is
// conditional on the current status, so a concurrently committed
// completion is never overwritten; cancelled stays unreachable from
// completed. Returns false when no row changed.
func (s *Store) CancelSale(ctx context.Context, saleID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sales SET status = $1, updated_at = NOW() WHERE id = $2 AND status IN ($3, $4)",
		models.SaleStatusCancelled, saleID, models.SaleStatusPending, models.SaleStatusPartial)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// CreatePayment creates a new pending payment record
func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (sale_id, amount, payment_reference, status, payment_method)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		payment.SaleID, payment.Amount, payment.PaymentReference,
		payment.Status, payment.PaymentMethod,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
}

// GetPaymentByReference retrieves a payment by its gateway reference
func (s *Store) GetPaymentByReference(ctx context.Context, reference string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment,
		"SELECT * FROM payments WHERE payment_reference = $1", reference)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetPaymentsBySaleID retrieves all payments against a sale
func (s *Store) GetPaymentsBySaleID(ctx context.Context, saleID int64) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.SelectContext(ctx, &payments,
		"SELECT * FROM payments WHERE sale_id = $1 ORDER BY created_at", saleID)
	return payments, err
}

// MarkPaymentFailed transitions a pending payment to failed. The sale
// is never touched on this path.
func (s *Store) MarkPaymentFailed(ctx context.Context, reference string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE payments SET status = $1, updated_at = NOW() WHERE payment_reference = $2 AND status = $3",
		models.PaymentStatusFailed, reference, models.PaymentStatusPending)
	return err
}

// ApplyVerifiedPayment applies a gateway-confirmed payment to its sale
// exactly once. The payment row and then the sale row are locked with
// FOR UPDATE inside a single transaction, so concurrent calls for the
// same reference serialize and the pending-check cannot be passed
// twice. A payment already in success status is an idempotent replay:
// the stored sale snapshot is returned unchanged.
func (s *Store) ApplyVerifiedPayment(ctx context.Context, reference string, adjust InventoryApplyFunc) (*ApplyResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var payment models.Payment
	err = tx.GetContext(ctx, &payment,
		"SELECT * FROM payments WHERE payment_reference = $1 FOR UPDATE", reference)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock payment: %w", err)
	}

	if payment.Status == models.PaymentStatusSuccess {
		var sale models.Sale
		if err := tx.GetContext(ctx, &sale, "SELECT * FROM sales WHERE id = $1", payment.SaleID); err != nil {
			return nil, fmt.Errorf("failed to fetch sale for replay: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return &ApplyResult{Sale: &sale, Payment: &payment, Replayed: true}, nil
	}

	if payment.Status == models.PaymentStatusFailed {
		return nil, ErrPaymentAlreadyFailed
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE payments SET status = $1, updated_at = NOW() WHERE id = $2",
		models.PaymentStatusSuccess, payment.ID); err != nil {
		return nil, fmt.Errorf("failed to mark payment success: %w", err)
	}
	payment.Status = models.PaymentStatusSuccess

	var sale models.Sale
	err = tx.GetContext(ctx, &sale,
		"SELECT * FROM sales WHERE id = $1 FOR UPDATE", payment.SaleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSaleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock sale: %w", err)
	}

	// A cancelled sale must not absorb a payment; rolling back leaves
	// the payment pending for manual reconciliation.
	if sale.Status == models.SaleStatusCancelled {
		return nil, ErrSaleCancelled
	}

	newPaid := sale.Paid.Add(payment.Amount)
	newBalance := sale.Amount.Sub(newPaid)

	completed := newBalance.Sign() <= 0
	newStatus := models.SaleStatusPartial
	if completed {
		newStatus = models.SaleStatusCompleted
		if err := adjust(ctx, tx, sale.ProductID, sale.Quantity); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE sales SET paid = $1, balance = $2, status = $3, updated_at = NOW() WHERE id = $4",
		newPaid, newBalance, newStatus, sale.ID); err != nil {
		return nil, fmt.Errorf("failed to update sale: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payment application: %w", err)
	}

	sale.Paid = newPaid
	sale.Balance = newBalance
	sale.Status = newStatus
	return &ApplyResult{Sale: &sale, Payment: &payment, Completed: completed}, nil
}

// SaleFilter narrows ListSales results
type SaleFilter struct {
	Status     string
	CustomerID int64
	ProductID  int64
	VendorID   int64
	Limit      int
	Offset     int
}

// ListSales retrieves sales matching the filter, newest first, with the
// total match count
func (s *Store) ListSales(ctx context.Context, f SaleFilter) ([]models.Sale, int, error) {
	conds := []string{"1=1"}
	args := []interface{}{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("s.status = $%d", f.Status)
	}
	if f.CustomerID != 0 {
		add("s.customer_id = $%d", f.CustomerID)
	}
	if f.ProductID != 0 {
		add("s.product_id = $%d", f.ProductID)
	}
	if f.VendorID != 0 {
		add("s.product_id IN (SELECT id FROM products WHERE vendor_id = $%d)", f.VendorID)
	}

	where := strings.Join(conds, " AND ")

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM sales s WHERE %s", where)
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	listQuery := fmt.Sprintf(
		"SELECT s.* FROM sales s WHERE %s ORDER BY s.created_at DESC LIMIT $%d OFFSET $%d",
		where, len(args)-1, len(args))

	var sales []models.Sale
	if err := s.db.SelectContext(ctx, &sales, listQuery, args...); err != nil {
		return nil, 0, err
	}
	return sales, total, nil
}
