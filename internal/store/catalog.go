package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marketplace-service/internal/models"
)

// CreateCategory creates a category node
func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	query := `
		INSERT INTO categories (name, parent_id)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		category.Name, category.ParentID,
	).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
}

// GetCategoryByID retrieves a category by ID
func (s *Store) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	var category models.Category
	err := s.db.GetContext(ctx, &category, "SELECT * FROM categories WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// ListCategories retrieves all category nodes; tree traversal happens
// in memory against this arena
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := s.db.SelectContext(ctx, &categories, "SELECT * FROM categories ORDER BY id")
	return categories, err
}

// SetCategoryParent reparents a category node. Cycle prevention is the
// caller's responsibility (it needs the whole arena).
func (s *Store) SetCategoryParent(ctx context.Context, categoryID int64, parentID *int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE categories SET parent_id = $1, updated_at = NOW() WHERE id = $2",
		parentID, categoryID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// CreateKyc records a submitted identity document
func (s *Store) CreateKyc(ctx context.Context, kyc *models.Kyc) error {
	query := `
		INSERT INTO kycs (customer_id, doc, doc_type, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		kyc.CustomerID, kyc.Doc, kyc.DocType, kyc.Status,
	).Scan(&kyc.ID, &kyc.CreatedAt, &kyc.UpdatedAt)
}

// GetKycByID retrieves a KYC record by ID
func (s *Store) GetKycByID(ctx context.Context, id int64) (*models.Kyc, error) {
	var kyc models.Kyc
	err := s.db.GetContext(ctx, &kyc, "SELECT * FROM kycs WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKycNotFound
	}
	if err != nil {
		return nil, err
	}
	return &kyc, nil
}

// ReviewKycTx updates a KYC record's review status and the owning
// customer's verification status in one transaction
func (s *Store) ReviewKycTx(ctx context.Context, kycID int64, docStatus, customerStatus string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var customerID int64
	err = tx.GetContext(ctx, &customerID,
		"UPDATE kycs SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING customer_id",
		docStatus, kycID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrKycNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update kyc: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE customers SET kyc_status = $1, updated_at = NOW() WHERE id = $2",
		customerStatus, customerID); err != nil {
		return fmt.Errorf("failed to update customer kyc status: %w", err)
	}

	return tx.Commit()
}

// UpsertCartItem adds a product to a customer's cart or updates its
// quantity
func (s *Store) UpsertCartItem(ctx context.Context, item *models.CartItem) error {
	query := `
		INSERT INTO carts (customer_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (customer_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity
		RETURNING id, created_at`

	return s.db.QueryRowxContext(ctx, query,
		item.CustomerID, item.ProductID, item.Quantity,
	).Scan(&item.ID, &item.CreatedAt)
}

// DeleteCartItem removes a product from a customer's cart
func (s *Store) DeleteCartItem(ctx context.Context, customerID, productID int64) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM carts WHERE customer_id = $1 AND product_id = $2", customerID, productID)
	return err
}

// GetCartByCustomer retrieves a customer's cart
func (s *Store) GetCartByCustomer(ctx context.Context, customerID int64) ([]models.CartItem, error) {
	var items []models.CartItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM carts WHERE customer_id = $1 ORDER BY created_at", customerID)
	return items, err
}

// AddWishlistItem adds a product to a customer's wishlist
func (s *Store) AddWishlistItem(ctx context.Context, item *models.WishlistItem) error {
	query := `
		INSERT INTO wishlists (customer_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT (customer_id, product_id) DO NOTHING
		RETURNING id, created_at`

	err := s.db.QueryRowxContext(ctx, query,
		item.CustomerID, item.ProductID,
	).Scan(&item.ID, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// already present
		return nil
	}
	return err
}

// DeleteWishlistItem removes a product from a customer's wishlist
func (s *Store) DeleteWishlistItem(ctx context.Context, customerID, productID int64) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM wishlists WHERE customer_id = $1 AND product_id = $2", customerID, productID)
	return err
}

// GetWishlistByCustomer retrieves a customer's wishlist
func (s *Store) GetWishlistByCustomer(ctx context.Context, customerID int64) ([]models.WishlistItem, error) {
	var items []models.WishlistItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM wishlists WHERE customer_id = $1 ORDER BY created_at", customerID)
	return items, err
}
