package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/adjust_stock.lua
var adjustStockScript string

type Client struct {
	rdb          *redis.Client
	adjustScript *redis.Script
}

// NewClient creates a new Redis client with the stock script loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:          rdb,
		adjustScript: redis.NewScript(adjustStockScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func stockKey(productID int64) string {
	return fmt.Sprintf("stock:%d", productID)
}

// SetStock initializes or refreshes the cached stock for a product
func (c *Client) SetStock(ctx context.Context, productID int64, available, salesCount int) error {
	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, stockKey(productID), "available", available)
	pipe.HSet(ctx, stockKey(productID), "sales_count", salesCount)

	_, err := pipe.Exec(ctx)
	return err
}

// GetStock retrieves the cached available stock for a product. The
// second return value is false on a cache miss.
func (c *Client) GetStock(ctx context.Context, productID int64) (int, bool, error) {
	result, err := c.rdb.HGet(ctx, stockKey(productID), "available").Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	var available int
	if _, err := fmt.Sscanf(result, "%d", &available); err != nil {
		return 0, false, err
	}
	return available, true, nil
}

// AdjustStock atomically applies a sale's quantity to the cached stock
// using the embedded Lua script
func (c *Client) AdjustStock(ctx context.Context, productID int64, quantity int) error {
	_, err := c.adjustScript.Run(ctx, c.rdb, []string{stockKey(productID)}, quantity).Result()
	if err != nil {
		return fmt.Errorf("adjust stock script failed: %w", err)
	}
	return nil
}

// MarkWebhookSeen records a webhook delivery for dedupe before it is
// enqueued. Returns false if the reference was already seen within the
// TTL window.
func (c *Client) MarkWebhookSeen(ctx context.Context, reference string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("webhook:%s", reference), "1", ttl).Result()
}
