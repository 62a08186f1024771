package store

import (
	"context"
	"database/sql"
	"errors"

	"marketplace-service/internal/models"
)

// CreateCustomer creates a new customer account
func (s *Store) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	query := `
		INSERT INTO customers (name, phone, email, password_hash, kyc_status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := s.db.QueryRowxContext(ctx, query,
		customer.Name, customer.Phone, customer.Email,
		customer.PasswordHash, customer.KycStatus,
	).Scan(&customer.ID, &customer.CreatedAt, &customer.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

// GetCustomerByID retrieves a customer by ID
func (s *Store) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.GetContext(ctx, &customer, "SELECT * FROM customers WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetCustomerByEmail retrieves a customer by email
func (s *Store) GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.GetContext(ctx, &customer, "SELECT * FROM customers WHERE email = $1", email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetVendorByEmail retrieves a vendor by email
func (s *Store) GetVendorByEmail(ctx context.Context, email string) (*models.Vendor, error) {
	var vendor models.Vendor
	err := s.db.GetContext(ctx, &vendor, "SELECT * FROM vendors WHERE email = $1", email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

// GetUserByEmail retrieves a staff user by email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE email = $1", email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateAddress creates a delivery address for a customer
func (s *Store) CreateAddress(ctx context.Context, addr *models.CustomerAddress) error {
	query := `
		INSERT INTO customer_addresses (customer_id, address, city, state, postal_code, is_default)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		addr.CustomerID, addr.Address, addr.City, addr.State,
		addr.PostalCode, addr.IsDefault,
	).Scan(&addr.ID, &addr.CreatedAt, &addr.UpdatedAt)
}

// GetAddressByID retrieves an address by ID
func (s *Store) GetAddressByID(ctx context.Context, id int64) (*models.CustomerAddress, error) {
	var addr models.CustomerAddress
	err := s.db.GetContext(ctx, &addr, "SELECT * FROM customer_addresses WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

// GetAddressesByCustomer retrieves all addresses owned by a customer
func (s *Store) GetAddressesByCustomer(ctx context.Context, customerID int64) ([]models.CustomerAddress, error) {
	var addrs []models.CustomerAddress
	err := s.db.SelectContext(ctx, &addrs,
		"SELECT * FROM customer_addresses WHERE customer_id = $1 ORDER BY is_default DESC, created_at", customerID)
	return addrs, err
}
