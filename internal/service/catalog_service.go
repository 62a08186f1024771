package service

import (
	"context"
	"errors"

	"marketplace-service/internal/apperr"
	"marketplace-service/internal/models"
	"marketplace-service/internal/store"
	"marketplace-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService handles products, the category tree and customer
// cart/wishlist lists. Plain data access; the orchestrator's completion
// transaction is the only writer of stock.
type CatalogService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(st *store.Store) *CatalogService {
	return &CatalogService{store: st, logger: util.GetLogger()}
}

// CreateProductRequest creates a product listing
type CreateProductRequest struct {
	CategoryID  int64           `json:"category_id" binding:"required"`
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity" binding:"min=0"`
	Price       decimal.Decimal `json:"price" binding:"required"`
}

// CreateProduct creates a product for the vendor
func (c *CatalogService) CreateProduct(ctx context.Context, vendorID int64, req *CreateProductRequest) (*models.Product, error) {
	if req.Price.Sign() <= 0 {
		return nil, apperr.New(apperr.Validation, apperr.ReasonInvalidInput, "Price must be positive")
	}
	if _, err := c.store.GetCategoryByID(ctx, req.CategoryID); err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			return nil, apperr.New(apperr.NotFound, apperr.ReasonCategoryNotFound, "Category not found")
		}
		return nil, err
	}

	product := &models.Product{
		VendorID:    vendorID,
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		Quantity:    req.Quantity,
		Price:       req.Price,
	}
	if err := c.store.CreateProduct(ctx, product); err != nil {
		return nil, err
	}

	c.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.Int64("vendor_id", vendorID))
	return product, nil
}

// GetProduct retrieves a product and bumps its view counter
func (c *CatalogService) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	product, err := c.store.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			return nil, apperr.New(apperr.NotFound, apperr.ReasonProductNotFound, "Product not found")
		}
		return nil, err
	}

	if err := c.store.IncrementViewCount(ctx, productID); err != nil {
		c.logger.Warn("Failed to bump view count",
			zap.Int64("product_id", productID),
			zap.Error(err))
	}
	return product, nil
}

// ListProducts retrieves a page of products
func (c *CatalogService) ListProducts(ctx context.Context, p util.Pagination) (util.PagedResult, error) {
	products, total, err := c.store.ListProducts(ctx, p.Limit, p.Offset)
	if err != nil {
		return util.PagedResult{}, err
	}
	return util.NewPagedResult(products, total, p), nil
}

// CreateCategoryRequest creates a category node
type CreateCategoryRequest struct {
	Name     string `json:"name" binding:"required"`
	ParentID *int64 `json:"parent_id"`
}

// CreateCategory creates a category, validating the parent exists
func (c *CatalogService) CreateCategory(ctx context.Context, req *CreateCategoryRequest) (*models.Category, error) {
	if req.ParentID != nil {
		if _, err := c.store.GetCategoryByID(ctx, *req.ParentID); err != nil {
			if errors.Is(err, store.ErrCategoryNotFound) {
				return nil, apperr.New(apperr.NotFound, apperr.ReasonCategoryNotFound, "Parent category not found")
			}
			return nil, err
		}
	}

	category := &models.Category{Name: req.Name, ParentID: req.ParentID}
	if err := c.store.CreateCategory(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// categoryArena indexes all category nodes by id for traversal
type categoryArena map[int64]*models.Category

func (c *CatalogService) loadArena(ctx context.Context) (categoryArena, error) {
	categories, err := c.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	arena := make(categoryArena, len(categories))
	for i := range categories {
		arena[categories[i].ID] = &categories[i]
	}
	return arena, nil
}

// isDescendant walks ancestors of candidate and reports whether node
// appears among them (or candidate is node itself)
func (arena categoryArena) isDescendant(candidate, node int64) bool {
	for id := &candidate; id != nil; {
		if *id == node {
			return true
		}
		current, ok := arena[*id]
		if !ok {
			return false
		}
		id = current.ParentID
	}
	return false
}

// SetCategoryParent reparents a category. The new parent's ancestor
// chain is walked first: if the node being moved appears in it, the
// assignment would create a cycle and is rejected.
func (c *CatalogService) SetCategoryParent(ctx context.Context, categoryID int64, parentID *int64) error {
	arena, err := c.loadArena(ctx)
	if err != nil {
		return err
	}

	if _, ok := arena[categoryID]; !ok {
		return apperr.New(apperr.NotFound, apperr.ReasonCategoryNotFound, "Category not found")
	}

	if parentID != nil {
		if _, ok := arena[*parentID]; !ok {
			return apperr.New(apperr.NotFound, apperr.ReasonCategoryNotFound, "Parent category not found")
		}
		if arena.isDescendant(*parentID, categoryID) {
			return apperr.New(apperr.BusinessRule, apperr.ReasonCategoryCycle,
				"Category cannot be moved under its own subtree")
		}
	}

	return c.store.SetCategoryParent(ctx, categoryID, parentID)
}

// Subtree lists a category and all of its descendants
func (c *CatalogService) Subtree(ctx context.Context, categoryID int64) ([]models.Category, error) {
	arena, err := c.loadArena(ctx)
	if err != nil {
		return nil, err
	}

	root, ok := arena[categoryID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, apperr.ReasonCategoryNotFound, "Category not found")
	}

	children := make(map[int64][]*models.Category)
	for _, node := range arena {
		if node.ParentID != nil {
			children[*node.ParentID] = append(children[*node.ParentID], node)
		}
	}

	var result []models.Category
	queue := []*models.Category{root}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, *node)
		queue = append(queue, children[node.ID]...)
	}
	return result, nil
}

// AddToCart puts a product in the customer's cart
func (c *CatalogService) AddToCart(ctx context.Context, customerID, productID int64, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, apperr.New(apperr.Validation, apperr.ReasonInvalidInput, "Quantity must be at least 1")
	}
	if _, err := c.store.GetProductByID(ctx, productID); err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			return nil, apperr.New(apperr.NotFound, apperr.ReasonProductNotFound, "Product not found")
		}
		return nil, err
	}

	item := &models.CartItem{CustomerID: customerID, ProductID: productID, Quantity: quantity}
	if err := c.store.UpsertCartItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveFromCart removes a product from the customer's cart
func (c *CatalogService) RemoveFromCart(ctx context.Context, customerID, productID int64) error {
	return c.store.DeleteCartItem(ctx, customerID, productID)
}

// GetCart retrieves the customer's cart
func (c *CatalogService) GetCart(ctx context.Context, customerID int64) ([]models.CartItem, error) {
	return c.store.GetCartByCustomer(ctx, customerID)
}

// AddToWishlist puts a product on the customer's wishlist
func (c *CatalogService) AddToWishlist(ctx context.Context, customerID, productID int64) (*models.WishlistItem, error) {
	if _, err := c.store.GetProductByID(ctx, productID); err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			return nil, apperr.New(apperr.NotFound, apperr.ReasonProductNotFound, "Product not found")
		}
		return nil, err
	}

	item := &models.WishlistItem{CustomerID: customerID, ProductID: productID}
	if err := c.store.AddWishlistItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveFromWishlist removes a product from the customer's wishlist
func (c *CatalogService) RemoveFromWishlist(ctx context.Context, customerID, productID int64) error {
	return c.store.DeleteWishlistItem(ctx, customerID, productID)
}

// GetWishlist retrieves the customer's wishlist
func (c *CatalogService) GetWishlist(ctx context.Context, customerID int64) ([]models.WishlistItem, error) {
	return c.store.GetWishlistByCustomer(ctx, customerID)
}
