package service

import (
	"context"
	"errors"

	"marketplace-service/internal/apperr"
	"marketplace-service/internal/models"
	"marketplace-service/internal/store"
	"marketplace-service/internal/util"

	"go.uber.org/zap"
)

// KycService handles identity document submission and staff review.
// Approval flips the customer's verification status, which gates
// partial-payment eligibility.
type KycService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewKycService creates a new KYC service
func NewKycService(st *store.Store) *KycService {
	return &KycService{store: st, logger: util.GetLogger()}
}

// SubmitRequest records an identity document for review
type SubmitRequest struct {
	Doc     string  `json:"doc" binding:"required"`
	DocType *string `json:"doc_type"`
}

// Submit records a document submitted by the customer
func (k *KycService) Submit(ctx context.Context, customerID int64, req *SubmitRequest) (*models.Kyc, error) {
	if _, err := k.store.GetCustomerByID(ctx, customerID); err != nil {
		if errors.Is(err, store.ErrCustomerNotFound) {
			return nil, apperr.New(apperr.NotFound, apperr.ReasonCustomerNotFound, "Customer not found")
		}
		return nil, err
	}

	kyc := &models.Kyc{
		CustomerID: customerID,
		Doc:        req.Doc,
		DocType:    req.DocType,
		Status:     models.KycDocPending,
	}
	if err := k.store.CreateKyc(ctx, kyc); err != nil {
		return nil, err
	}

	k.logger.Info("KYC document submitted",
		zap.Int64("kyc_id", kyc.ID),
		zap.Int64("customer_id", customerID))
	return kyc, nil
}

// Review applies a staff decision to a submitted document and updates
// the customer's verification status in the same transaction
func (k *KycService) Review(ctx context.Context, kycID int64, approve bool) error {
	if _, err := k.store.GetKycByID(ctx, kycID); err != nil {
		if errors.Is(err, store.ErrKycNotFound) {
			return apperr.New(apperr.NotFound, apperr.ReasonKycNotFound, "KYC record not found")
		}
		return err
	}

	docStatus := models.KycDocRejected
	customerStatus := models.KycStatusRejected
	if approve {
		docStatus = models.KycDocApproved
		customerStatus = models.KycStatusVerified
	}

	if err := k.store.ReviewKycTx(ctx, kycID, docStatus, customerStatus); err != nil {
		return err
	}

	k.logger.Info("KYC document reviewed",
		zap.Int64("kyc_id", kycID),
		zap.Bool("approved", approve))
	return nil
}
