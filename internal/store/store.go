package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Sentinel errors the service layer maps onto the API error taxonomy
var (
	ErrSaleNotFound         = errors.New("sale not found")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrCustomerNotFound     = errors.New("customer not found")
	ErrAddressNotFound      = errors.New("address not found")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrKycNotFound          = errors.New("kyc record not found")
	ErrAccountNotFound      = errors.New("account not found")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrSaleCancelled        = errors.New("sale is cancelled")
	ErrPaymentAlreadyFailed = errors.New("payment already marked failed")
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
