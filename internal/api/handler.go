package api

import (
	"net/http"
	"strconv"
	"time"

	"marketplace-service/internal/apperr"
	"marketplace-service/internal/broker"
	"marketplace-service/internal/models"
	"marketplace-service/internal/redisclient"
	"marketplace-service/internal/service"
	"marketplace-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const webhookDedupeTTL = 24 * time.Hour

// Handler contains HTTP handlers
type Handler struct {
	saleService     *service.SaleService
	accountService  *service.AccountService
	catalogService  *service.CatalogService
	kycService      *service.KycService
	redis           *redisclient.Client
	verifications   *broker.VerificationQueue
	defaultPageSize int
	logger          *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	saleService *service.SaleService,
	accountService *service.AccountService,
	catalogService *service.CatalogService,
	kycService *service.KycService,
	redis *redisclient.Client,
	verifications *broker.VerificationQueue,
	defaultPageSize int,
) *Handler {
	return &Handler{
		saleService:     saleService,
		accountService:  accountService,
		catalogService:  catalogService,
		kycService:      kycService,
		redis:           redis,
		verifications:   verifications,
		defaultPageSize: defaultPageSize,
		logger:          util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/customers/register", h.registerCustomer)
		v1.POST("/customers/login", h.login)

		v1.POST("/webhooks/paystack", h.paystackWebhook)

		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.GET("/categories/:id/subtree", h.categorySubtree)
	}

	authed := v1.Group("")
	authed.Use(authMiddleware)
	{
		customer := authed.Group("", requireActorType(models.ActorCustomer))
		{
			customer.POST("/sales/initialize", h.initiateSale)
			customer.POST("/sales/additional-payment", h.additionalPayment)

			customer.POST("/customers/addresses", h.createAddress)
			customer.GET("/customers/addresses", h.listAddresses)

			customer.POST("/kyc", h.submitKyc)

			customer.POST("/cart", h.addToCart)
			customer.GET("/cart", h.getCart)
			customer.DELETE("/cart/:product_id", h.removeFromCart)

			customer.POST("/wishlist", h.addToWishlist)
			customer.GET("/wishlist", h.getWishlist)
			customer.DELETE("/wishlist/:product_id", h.removeFromWishlist)
		}

		authed.GET("/sales", h.listSales)
		authed.GET("/sales/:id", h.getSale)
		authed.GET("/sales/verify/:reference", h.verifyPayment)
		authed.PATCH("/sales/:id/cancel", h.cancelSale)

		vendor := authed.Group("", requireActorType(models.ActorVendor))
		{
			vendor.POST("/products", h.createProduct)
		}

		staff := authed.Group("", requireActorType(models.ActorUser))
		{
			staff.POST("/categories", h.createCategory)
			staff.PATCH("/categories/:id/parent", h.setCategoryParent)
			staff.PATCH("/kyc/:id/review", h.reviewKyc)
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}

	body := gin.H{
		"success": false,
		"message": apperr.PublicMessage(err),
	}
	if reason := apperr.PublicReason(err); reason != "" {
		body["reason"] = reason
	}
	c.JSON(status, body)
}

func (h *Handler) respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": message,
		"reason":  apperr.ReasonInvalidInput,
	})
}

type initiateSaleRequest struct {
	ProductID     int64            `json:"product_id" binding:"required"`
	Quantity      int              `json:"quantity" binding:"required,min=1"`
	AddressID     *int64           `json:"address_id"`
	PartialAmount *decimal.Decimal `json:"partial_amount"`
}

// initiateSale handles sale creation and first charge initialization
func (h *Handler) initiateSale(c *gin.Context) {
	var req initiateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBadRequest(c, "Invalid request body")
		return
	}

	actor := actorFromContext(c)
	resp, err := h.saleService.InitiateSale(c.Request.Context(), &service.InitiateSaleRequest{
		CustomerID:    actor.ID,
		ProductID:     req.ProductID,
		Quantity:      req.Quantity,
		AddressID:     req.AddressID,
		PartialAmount: req.PartialAmount,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.respondOK(c, http.StatusCreated, resp)
}

// verifyPayment handles payment verification by reference
func (h *Handler) verifyPayment(c *gin.Context) {
	reference := c.Param("reference")
	if reference == "" {
		h.respondBadRequest(c, "Missing payment reference")
		return
	}

	resp, err := h.saleService.Verify(c.Request.Context(), reference)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.respondOK(c, http.StatusOK, resp)
}

type additionalPaymentRequest struct {
	SaleID int64           `json:"sale_id" binding:"required"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// additionalPayment initializes a further charge against an open sale
func (h *Handler) additionalPayment(c *gin.Context) {
	var req additionalPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBadRequest(c, "Invalid request body")
		return
	}

	actor := actorFromContext(c)
	resp, err := h.saleService.MakeAdditionalPayment(c.Request.Context(), &service.AdditionalPaymentRequest{
		CustomerID: actor.ID,
		SaleID:     req.SaleID,
		Amount:     req.Amount,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.respondOK(c, http.StatusCreated, resp)
}

// getSale handles get sale by ID
func (h *Handler) getSale(c *gin.Context) {
	saleID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	detail, err := h.saleService.GetSale(c.Request.Context(), saleID, actorFromContext(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.respondOK(c, http.StatusOK, detail)
}

// listSales handles the scoped sales listing
func (h *Handler) listSales(c *gin.Context) {
	p := h.pagination(c)

	var customerID int64
	if v := c.Query("customer_id"); v != "" {
		customerID, _ = strconv.ParseInt(v, 10, 64)
	}
	var productID int64
	if v := c.Query("product_id"); v != "" {
		productID, _ = strconv.ParseInt(v, 10, 64)
	}

	sales, total, err := h.saleService.ListSales(c.Request.Context(), &service.ListSalesRequest{
		Status:     c.Query("status"),
		CustomerID: customerID,
		ProductID:  productID,
		Limit:      p.Limit,
		Offset:     p.Offset,
	}, actorFromContext(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.respondOK(c, http.StatusOK, util.NewPagedResult(sales, total, p))
}

// cancelSale handles sale cancellation
func (h *Handler) cancelSale(c *gin.Context) {
	saleID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.saleService.CancelSale(c.Request.Context(), saleID, actorFromContext(c)); err != nil {
		h.respondError(c, err)
		return
	}

	h.respondOK(c, http.StatusOK, gin.H{"sale_id": saleID, "status": models.SaleStatusCancelled})
}

type paystackWebhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// paystackWebhook acknowledges gateway deliveries immediately and hands
// the reference to the verification queue. Verification itself runs in
// the worker; the gateway only needs a fast 200.
func (h *Handler) paystackWebhook(c *gin.Context) {
	var payload paystackWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.respondBadRequest(c, "Invalid webhook payload")
		return
	}

	if payload.Event != "charge.success" || payload.Data.Reference == "" {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	reference := payload.Data.Reference

	if h.redis != nil {
		fresh, err := h.redis.MarkWebhookSeen(c.Request.Context(), reference, webhookDedupeTTL)
		if err != nil {
			// Dedupe is an optimization; verification is idempotent, so
			// enqueue anyway.
			h.logger.Warn("Webhook dedupe check failed",
				zap.String("reference", reference),
				zap.Error(err))
		} else if !fresh {
			c.JSON(http.StatusOK, gin.H{"success": true})
			return
		}
	}

	event := &models.VerificationRequestedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeVerificationRequested,
			Timestamp: time.Now(),
		},
		Reference: reference,
		Source:    "webhook",
	}
	if err := h.verifications.Enqueue(c.Request.Context(), event); err != nil {
		h.logger.Error("Failed to enqueue verification request",
			zap.String("reference", reference),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		h.respondBadRequest(c, "Invalid "+name+" parameter")
		return 0, false
	}
	return id, true
}

func (h *Handler) pagination(c *gin.Context) util.Pagination {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("size"))
	return util.NewPagination(page, size, h.defaultPageSize)
}
