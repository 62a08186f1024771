package api

import (
	"net/http"

	"marketplace-service/internal/service"

	"github.com/gin-gonic/gin"
)

// createProduct handles vendor product creation
func (h *Handler) createProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBadRequest(c, "Invalid request body")
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), actorFromContext(c).ID, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.respondOK(c, http.StatusCreated, product)
}

// getProduct handles get product by ID
func (h *Handler) getProduct(c *gin.Context) {
	productID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	product, err := h.catalogService.GetProduct(c.Request.Context(), productID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.respondOK(c, http.StatusOK, product)
}

// listProducts handles the paged product listing
func (h *Handler) listProducts(c *gin.Context) {
	result, err := h.catalogService.ListProducts(c.Request.Context(), h.pagination(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.respondOK(c, http.StatusOK, result)
}

// createCategory handles category creation
func (h *Handler) createCategory(c *gin.Context) {
	var req service.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBadRequest(c, "Invalid request body")
		return
	}

	category, err := h.catalogService.CreateCategory(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.respondOK(c, http.StatusCreated, category)
}

type setCategoryParentRequest struct {
	ParentID *int64 `json:"parent_id"`
}

// setCategoryParent reparents a category node
func (h *Handler) setCategoryParent(c *gin.Context) {
	categoryID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req setCategoryParentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBadRequest(c, "Invalid request body")
		return
	}

	if err := h.catalogService.SetCategoryParent(c.Request.Context(), categoryID, req.ParentID); err != nil {
		h.respondError(c, err)
		return
	}

	h.respondOK(c, http.StatusOK, gin.H{"category_id": categoryID, "parent_id": req.ParentID})
}

// categorySubtree lists a category and its descendants
func (h *Handler) categorySubtree(c *gin.Context) {
	categoryID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	categories, err := h.catalogService.Subtree(c.Request.Context(), categoryID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.respondOK(c, http.StatusOK, categories)
}

type cartItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// addToCart puts a product in the customer's cart
func (h *Handler) addToCart(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBadRequest(c, "Invalid request body")
		return
	}

	item, err := h.catalogService.AddToCart(c.Request.Context(), actorFromContext(c).ID, req.ProductID, req.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.respondOK(c, http.StatusCreated, item)
}

// getCart retrieves the customer's cart
func (h *Handler) getCart(c *gin.Context) {
	items, err := h.catalogService.GetCart(c.Request.Context(), actorFromContext(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.respondOK(c, http.StatusOK, items)
}

// removeFromCart removes a product from the customer's cart
func (h *Handler) removeFromCart(c *gin.Context) {
	productID, ok := h.pathID(c, "product_id")
	if !ok {
		return
	}

	if err := h.catalogService.RemoveFromCart(c.Request.Context(), actorFromContext(c).ID, productID); err != nil {
		h.respondError(c, err)
		return
	}

	h.respondOK(c, http.StatusOK, gin.H{"product_id": productID})
}

type wishlistItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
}

// addToWishlist puts a product on the customer's wishlist
func (h *Handler) addToWishlist(c *gin.Context) {
	var req wishlistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBadRequest(c, "Invalid request body")
		return
	}

	item, err := h.catalogService.AddToWishlist(c.Request.Context(), actorFromContext(c).ID, req.ProductID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.respondOK(c, http.StatusCreated, item)
}

// getWishlist retrieves the customer's wishlist
func (h *Handler) getWishlist(c *gin.Context) {
	items, err := h.catalogService.GetWishlist(c.Request.Context(), actorFromContext(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.respondOK(c, http.StatusOK, items)
}

// removeFromWishlist removes a product from the customer's wishlist
func (h *Handler) removeFromWishlist(c *gin.Context) {
	productID, ok := h.pathID(c, "product_id")
	if !ok {
		return
	}

	if err := h.catalogService.RemoveFromWishlist(c.Request.Context(), actorFromContext(c).ID, productID); err != nil {
		h.respondError(c, err)
		return
	}

	h.respondOK(c, http.StatusOK, gin.H{"product_id": productID})
}
