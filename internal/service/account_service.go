package service

import (
	"context"
	"errors"

	"marketplace-service/internal/apperr"
	"marketplace-service/internal/auth"
	"marketplace-service/internal/models"
	"marketplace-service/internal/store"
	"marketplace-service/internal/util"

	"go.uber.org/zap"
)

// AccountService handles registration, login and customer addresses.
// Passwords are hashed explicitly at the call sites below; nothing
// hashes implicitly on persistence.
type AccountService struct {
	store  *store.Store
	tokens *auth.TokenIssuer
	logger *zap.Logger
}

// NewAccountService creates a new account service
func NewAccountService(st *store.Store, tokens *auth.TokenIssuer) *AccountService {
	return &AccountService{
		store:  st,
		tokens: tokens,
		logger: util.GetLogger(),
	}
}

// RegisterCustomerRequest is a customer registration request
type RegisterCustomerRequest struct {
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// RegisterCustomer creates a customer account with a hashed credential
func (a *AccountService) RegisterCustomer(ctx context.Context, req *RegisterCustomerRequest) (*models.Customer, error) {
	digest, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	customer := &models.Customer{
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		PasswordHash: digest,
		KycStatus:    models.KycStatusPending,
	}

	if err := a.store.CreateCustomer(ctx, customer); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, apperr.New(apperr.Validation, apperr.ReasonDuplicateEmail, "Email already registered")
		}
		return nil, err
	}

	a.logger.Info("Customer registered", zap.Int64("customer_id", customer.ID))
	return customer, nil
}

// LoginRequest authenticates any actor type
type LoginRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	ActorType string `json:"actor_type" binding:"required,oneof=user vendor customer"`
}

// LoginResponse carries the signed access token
type LoginResponse struct {
	Token     string `json:"token"`
	ActorID   int64  `json:"actor_id"`
	ActorType string `json:"actor_type"`
}

// Login verifies credentials for the given actor type and issues a
// token
func (a *AccountService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	var (
		actorID int64
		role    string
		digest  string
	)

	switch req.ActorType {
	case models.ActorCustomer:
		customer, err := a.store.GetCustomerByEmail(ctx, req.Email)
		if err != nil {
			return nil, invalidCredentials(err)
		}
		actorID, digest = customer.ID, customer.PasswordHash
	case models.ActorVendor:
		vendor, err := a.store.GetVendorByEmail(ctx, req.Email)
		if err != nil {
			return nil, invalidCredentials(err)
		}
		actorID, digest = vendor.ID, vendor.PasswordHash
	case models.ActorUser:
		user, err := a.store.GetUserByEmail(ctx, req.Email)
		if err != nil {
			return nil, invalidCredentials(err)
		}
		actorID, digest, role = user.ID, user.PasswordHash, user.Role
	default:
		return nil, apperr.New(apperr.Validation, apperr.ReasonInvalidInput, "Unknown actor type")
	}

	if !auth.VerifyPassword(req.Password, digest) {
		return nil, apperr.New(apperr.Unauthorized, apperr.ReasonInvalidCredentials, "Invalid email or password")
	}

	token, err := a.tokens.Issue(actorID, req.ActorType, role)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{Token: token, ActorID: actorID, ActorType: req.ActorType}, nil
}

func invalidCredentials(err error) error {
	if errors.Is(err, store.ErrAccountNotFound) {
		return apperr.New(apperr.Unauthorized, apperr.ReasonInvalidCredentials, "Invalid email or password")
	}
	return err
}

// CreateAddressRequest adds a delivery address for a customer
type CreateAddressRequest struct {
	Address    string  `json:"address" binding:"required"`
	City       string  `json:"city" binding:"required"`
	State      string  `json:"state" binding:"required"`
	PostalCode *string `json:"postal_code"`
	IsDefault  bool    `json:"is_default"`
}

// CreateAddress stores a delivery address owned by the customer
func (a *AccountService) CreateAddress(ctx context.Context, customerID int64, req *CreateAddressRequest) (*models.CustomerAddress, error) {
	addr := &models.CustomerAddress{
		CustomerID: customerID,
		Address:    req.Address,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		IsDefault:  req.IsDefault,
	}
	if err := a.store.CreateAddress(ctx, addr); err != nil {
		return nil, err
	}
	return addr, nil
}

// ListAddresses retrieves the customer's addresses
func (a *AccountService) ListAddresses(ctx context.Context, customerID int64) ([]models.CustomerAddress, error) {
	return a.store.GetAddressesByCustomer(ctx, customerID)
}
