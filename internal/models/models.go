package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a vendor-listed product in the catalog
type Product struct {
	ID          int64           `db:"id" json:"id"`
	VendorID    int64           `db:"vendor_id" json:"vendor_id"`
	CategoryID  int64           `db:"category_id" json:"category_id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description,omitempty"`
	Quantity    int             `db:"quantity" json:"quantity"`
	Price       decimal.Decimal `db:"price" json:"price"`
	ViewCount   int             `db:"view_count" json:"view_count"`
	SalesCount  int             `db:"sales_count" json:"sales_count"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Sale represents one purchase intent for a product by a customer.
// Paid and Balance are mutated only by verified payment application;
// Price, Amount and Quantity are fixed at creation.
type Sale struct {
	ID               int64           `db:"id" json:"id"`
	CustomerID       int64           `db:"customer_id" json:"customer_id"`
	ProductID        int64           `db:"product_id" json:"product_id"`
	AddressID        *int64          `db:"address_id" json:"address_id,omitempty"`
	Price            decimal.Decimal `db:"price" json:"price"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	Paid             decimal.Decimal `db:"paid" json:"paid"`
	Balance          decimal.Decimal `db:"balance" json:"balance"`
	Quantity         int             `db:"quantity" json:"quantity"`
	Status           string          `db:"status" json:"status"`
	PaymentReference string          `db:"payment_reference" json:"payment_reference,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// Payment represents one money-movement attempt against a sale,
// keyed by the gateway-issued reference
type Payment struct {
	ID               int64           `db:"id" json:"id"`
	SaleID           int64           `db:"sale_id" json:"sale_id"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	PaymentReference string          `db:"payment_reference" json:"payment_reference"`
	Status           string          `db:"status" json:"status"`
	PaymentMethod    string          `db:"payment_method" json:"payment_method"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// Customer represents a buyer account
type Customer struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Phone        string    `db:"phone" json:"phone"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	KycStatus    string    `db:"kyc_status" json:"kyc_status"`
	Nin          *string   `db:"nin" json:"nin,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CustomerAddress represents a delivery address owned by a customer
type CustomerAddress struct {
	ID         int64     `db:"id" json:"id"`
	CustomerID int64     `db:"customer_id" json:"customer_id"`
	Address    string    `db:"address" json:"address"`
	City       string    `db:"city" json:"city"`
	State      string    `db:"state" json:"state"`
	PostalCode *string   `db:"postal_code" json:"postal_code,omitempty"`
	IsDefault  bool      `db:"is_default" json:"is_default"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Vendor represents a seller account
type Vendor struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	BusinessName string    `db:"business_name" json:"business_name"`
	Address      string    `db:"address" json:"address"`
	Phone        string    `db:"phone" json:"phone"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IsVerified   bool      `db:"is_verified" json:"is_verified"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// User represents a staff account (admin/manager/staff)
type User struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Address      *string   `db:"address" json:"address,omitempty"`
	Phone        string    `db:"phone" json:"phone"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Category is a node in the category tree, keyed by ID with an
// optional parent
type Category struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	ParentID  *int64    `db:"parent_id" json:"parent_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Kyc represents a submitted identity document
type Kyc struct {
	ID         int64     `db:"id" json:"id"`
	CustomerID int64     `db:"customer_id" json:"customer_id"`
	Doc        string    `db:"doc" json:"doc"`
	DocType    *string   `db:"doc_type" json:"doc_type,omitempty"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// CartItem represents a product in a customer's cart
type CartItem struct {
	ID         int64     `db:"id" json:"id"`
	CustomerID int64     `db:"customer_id" json:"customer_id"`
	ProductID  int64     `db:"product_id" json:"product_id"`
	Quantity   int       `db:"quantity" json:"quantity"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// WishlistItem represents a product in a customer's wishlist
type WishlistItem struct {
	ID         int64     `db:"id" json:"id"`
	CustomerID int64     `db:"customer_id" json:"customer_id"`
	ProductID  int64     `db:"product_id" json:"product_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Sale statuses
const (
	SaleStatusPending   = "pending"
	SaleStatusPartial   = "partial"
	SaleStatusCompleted = "completed"
	SaleStatusCancelled = "cancelled"
)

// Payment statuses
const (
	PaymentStatusPending = "pending"
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
)

// Customer KYC verification statuses
const (
	KycStatusPending  = "pending"
	KycStatusVerified = "verified"
	KycStatusRejected = "rejected"
)

// KYC document review statuses
const (
	KycDocPending  = "pending"
	KycDocApproved = "approved"
	KycDocRejected = "rejected"
)

// Staff roles
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

// Actor types carried in auth tokens
const (
	ActorUser     = "user"
	ActorVendor   = "vendor"
	ActorCustomer = "customer"
)
