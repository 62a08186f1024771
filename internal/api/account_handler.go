package api

import (
	"net/http"

	"marketplace-service/internal/service"

	"github.com/gin-gonic/gin"
)

// registerCustomer handles customer registration
func (h *Handler) registerCustomer(c *gin.Context) {
	var req service.RegisterCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBadRequest(c, "Invalid request body")
		return
	}

	customer, err := h.accountService.RegisterCustomer(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.respondOK(c, http.StatusCreated, gin.H{
		"customer_id": customer.ID,
		"email":       customer.Email,
		"kyc_status":  customer.KycStatus,
	})
}

// login handles authentication for all actor types
func (h *Handler) login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBadRequest(c, "Invalid request body")
		return
	}

	resp, err := h.accountService.Login(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.respondOK(c, http.StatusOK, resp)
}

// createAddress adds a delivery address for the customer
func (h *Handler) createAddress(c *gin.Context) {
	var req service.CreateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBadRequest(c, "Invalid request body")
		return
	}

	addr, err := h.accountService.CreateAddress(c.Request.Context(), actorFromContext(c).ID, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.respondOK(c, http.StatusCreated, addr)
}

// listAddresses lists the customer's delivery addresses
func (h *Handler) listAddresses(c *gin.Context) {
	addrs, err := h.accountService.ListAddresses(c.Request.Context(), actorFromContext(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.respondOK(c, http.StatusOK, addrs)
}

// submitKyc records an identity document for review
func (h *Handler) submitKyc(c *gin.Context) {
	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBadRequest(c, "Invalid request body")
		return
	}

	kyc, err := h.kycService.Submit(c.Request.Context(), actorFromContext(c).ID, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.respondOK(c, http.StatusCreated, kyc)
}

type reviewKycRequest struct {
	Approve *bool `json:"approve" binding:"required"`
}

// reviewKyc applies a staff decision to a submitted document
func (h *Handler) reviewKyc(c *gin.Context) {
	kycID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req reviewKycRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBadRequest(c, "Invalid request body")
		return
	}

	if err := h.kycService.Review(c.Request.Context(), kycID, *req.Approve); err != nil {
		h.respondError(c, err)
		return
	}

	h.respondOK(c, http.StatusOK, gin.H{"kyc_id": kycID, "approved": *req.Approve})
}
