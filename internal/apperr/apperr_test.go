package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{Validation, http.StatusBadRequest},
		{BusinessRule, http.StatusBadRequest},
		{Unauthorized, http.StatusUnauthorized},
		{Forbidden, http.StatusForbidden},
		{NotFound, http.StatusNotFound},
		{Gateway, http.StatusBadGateway},
		{Reconciliation, http.StatusConflict},
		{Internal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		err := New(tc.kind, "X", "x")
		assert.Equal(t, tc.want, HTTPStatus(err), string(tc.kind))
	}

	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("row locked")
	err := Wrap(Reconciliation, ReasonReconciliationFailed, "Failed to apply payment", cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, Is(err, ReasonReconciliationFailed))

	// Wrapping again still surfaces the outermost taxonomy entry.
	outer := fmt.Errorf("handling webhook: %w", err)
	ae, ok := As(outer)
	assert.True(t, ok)
	assert.Equal(t, Reconciliation, ae.Kind)
	assert.True(t, errors.Is(outer, cause))
}

func TestPublicFields(t *testing.T) {
	err := New(BusinessRule, ReasonOverpayment, "Payment amount exceeds remaining balance")
	assert.Equal(t, "Payment amount exceeds remaining balance", PublicMessage(err))
	assert.Equal(t, ReasonOverpayment, PublicReason(err))

	// Internal details never leak for untyped errors.
	plain := errors.New("pq: connection refused")
	assert.Equal(t, "An unexpected error occurred", PublicMessage(plain))
	assert.Equal(t, "", PublicReason(plain))
}
