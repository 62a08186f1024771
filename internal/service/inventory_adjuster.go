package service

import (
	"context"
	"fmt"

	"marketplace-service/internal/redisclient"
	"marketplace-service/internal/store"
	"marketplace-service/internal/util"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// InventoryAdjuster applies the stock decrement and sales-counter
// increment tied to sale completion, and keeps the Redis stock cache
// warm for the creation-time fast path.
type InventoryAdjuster struct {
	store  *store.Store
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewInventoryAdjuster creates a new inventory adjuster
func NewInventoryAdjuster(store *store.Store, redis *redisclient.Client) *InventoryAdjuster {
	return &InventoryAdjuster{
		store:  store,
		redis:  redis,
		logger: util.GetLogger(),
	}
}

// Apply decrements stock and increments the sales counter for a
// completed sale inside the caller's transaction. The adjustment is
// relative, so concurrent completions for the same product cannot lose
// updates.
func (ia *InventoryAdjuster) Apply(ctx context.Context, tx *sqlx.Tx, productID int64, quantity int) error {
	return ia.store.AdjustProductTx(ctx, tx, productID, -quantity, quantity)
}

// AdjustCache applies a completed sale to the cached stock, best
// effort; the database row committed first and remains authoritative
func (ia *InventoryAdjuster) AdjustCache(ctx context.Context, productID int64, quantity int) {
	if ia.redis == nil {
		return
	}
	if err := ia.redis.AdjustStock(ctx, productID, quantity); err != nil {
		ia.logger.Warn("Failed to adjust cached stock",
			zap.Int64("product_id", productID),
			zap.Error(err))
	}
}

// CachedStock returns the cached available stock for a product; the
// second value is false on a miss or a Redis failure
func (ia *InventoryAdjuster) CachedStock(ctx context.Context, productID int64) (int, bool) {
	if ia.redis == nil {
		return 0, false
	}
	available, ok, err := ia.redis.GetStock(ctx, productID)
	if err != nil {
		ia.logger.Warn("Failed to read cached stock",
			zap.Int64("product_id", productID),
			zap.Error(err))
		return 0, false
	}
	return available, ok
}

// SyncCache synchronizes database stock levels to Redis at startup
func (ia *InventoryAdjuster) SyncCache(ctx context.Context) error {
	ia.logger.Info("Starting stock cache sync")

	const pageSize = 500
	offset := 0
	synced := 0
	for {
		products, _, err := ia.store.ListProducts(ctx, pageSize, offset)
		if err != nil {
			return fmt.Errorf("failed to list products: %w", err)
		}
		if len(products) == 0 {
			break
		}

		for _, product := range products {
			if err := ia.redis.SetStock(ctx, product.ID, product.Quantity, product.SalesCount); err != nil {
				ia.logger.Error("Failed to cache stock",
					zap.Int64("product_id", product.ID),
					zap.Error(err))
				continue
			}
			synced++
		}
		offset += pageSize
	}

	ia.logger.Info("Stock cache sync completed", zap.Int("count", synced))
	return nil
}
