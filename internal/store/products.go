package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marketplace-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateProduct creates a new product
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (vendor_id, category_id, name, description, quantity, price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, view_count, sales_count, created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		product.VendorID, product.CategoryID, product.Name,
		product.Description, product.Quantity, product.Price,
	).Scan(&product.ID, &product.ViewCount, &product.SalesCount,
		&product.CreatedAt, &product.UpdatedAt)
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts retrieves a page of products with the total count
func (s *Store) ListProducts(ctx context.Context, limit, offset int) ([]models.Product, int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM products"); err != nil {
		return nil, 0, err
	}

	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	return products, total, err
}

// IncrementViewCount bumps a product's view counter
func (s *Store) IncrementViewCount(ctx context.Context, productID int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE products SET view_count = view_count + 1 WHERE id = $1", productID)
	return err
}

// AdjustProductTx applies a relative stock and sales-count adjustment
// inside the caller's transaction. Relative deltas avoid lost updates
// from concurrent sales of the same product.
func (s *Store) AdjustProductTx(ctx context.Context, tx *sqlx.Tx, productID int64, quantityDelta, salesCountDelta int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE products SET quantity = quantity + $1, sales_count = sales_count + $2, updated_at = NOW() WHERE id = $3",
		quantityDelta, salesCountDelta, productID)
	if err != nil {
		return fmt.Errorf("failed to adjust product: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrProductNotFound
	}
	return nil
}
