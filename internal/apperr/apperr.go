package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure into the taxonomy the HTTP surface maps to
// status codes
type Kind string

const (
	Validation     Kind = "validation"
	BusinessRule   Kind = "business_rule"
	NotFound       Kind = "not_found"
	Unauthorized   Kind = "unauthorized"
	Forbidden      Kind = "forbidden"
	Gateway        Kind = "gateway"
	Reconciliation Kind = "reconciliation"
	Internal       Kind = "internal"
)

// Stable machine-usable reason codes returned to clients
const (
	ReasonInsufficientStock        = "INSUFFICIENT_STOCK"
	ReasonPartialPaymentNotAllowed = "PARTIAL_PAYMENT_NOT_ALLOWED"
	ReasonPartialPaymentTooLow     = "PARTIAL_PAYMENT_TOO_LOW"
	ReasonOverpayment              = "OVERPAYMENT"
	ReasonSaleNotFound             = "SALE_NOT_FOUND"
	ReasonPaymentNotFound          = "PAYMENT_NOT_FOUND"
	ReasonProductNotFound          = "PRODUCT_NOT_FOUND"
	ReasonCustomerNotFound         = "CUSTOMER_NOT_FOUND"
	ReasonNotCompletable           = "SALE_NOT_COMPLETABLE"
	ReasonAlreadyCompleted         = "SALE_ALREADY_COMPLETED"
	ReasonGatewayInitFailed        = "GATEWAY_INIT_FAILED"
	ReasonGatewayVerifyFailed      = "GATEWAY_VERIFICATION_FAILED"
	ReasonReconciliationFailed     = "RECONCILIATION_FAILED"
	ReasonNotAuthorized            = "NOT_AUTHORIZED"
	ReasonInvalidCredentials       = "INVALID_CREDENTIALS"
	ReasonInvalidInput             = "INVALID_INPUT"
	ReasonCategoryCycle            = "CATEGORY_CYCLE"
	ReasonCategoryNotFound         = "CATEGORY_NOT_FOUND"
	ReasonKycNotFound              = "KYC_NOT_FOUND"
	ReasonDuplicateEmail           = "DUPLICATE_EMAIL"
)

// Error carries a kind, a stable reason code, a client-safe message and
// an optional wrapped cause
type Error struct {
	Kind    Kind
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Reason, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (%s): %s", e.Reason, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, reason, message string) *Error {
	return &Error{Kind: kind, Reason: reason, Message: message}
}

func Wrap(kind Kind, reason, message string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Message: message, Err: err}
}

// As unwraps err into *Error if possible
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Is reports whether err carries the given reason code
func Is(err error, reason string) bool {
	if ae, ok := As(err); ok {
		return ae.Reason == reason
	}
	return false
}

// HTTPStatus maps a failure kind to the status code the API returns
func HTTPStatus(err error) int {
	ae, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch ae.Kind {
	case Validation, BusinessRule:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Gateway:
		return http.StatusBadGateway
	case Reconciliation:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the client-safe message, never internal detail
func PublicMessage(err error) string {
	if ae, ok := As(err); ok && ae.Message != "" {
		return ae.Message
	}
	return "An unexpected error occurred"
}

// PublicReason returns the stable reason code, or empty for internal
// failures
func PublicReason(err error) string {
	if ae, ok := As(err); ok {
		return ae.Reason
	}
	return ""
}
