package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"matchbook/internal/config"
	"matchbook/internal/engine"
	"matchbook/internal/models"
)

// RedisCache provides short-TTL caching of book read paths.
// CACHING STRATEGY:
//   - Ticker (best bid/ask): 100ms TTL for fast price lookups
//   - Depth snapshot: 500ms TTL
//   - Recent trades: capped list for the trade feed
//
// Book state is never rebuilt from this cache; it only serves reads.
type RedisCache struct {
	client     *redis.Client
	defaultTTL time.Duration
}

// Ticker is the cached top of book for one symbol.
type Ticker struct {
	Symbol    string    `json:"symbol"`
	BidPrice  int64     `json:"bid_price"`
	BidQty    uint64    `json:"bid_quantity"`
	AskPrice  int64     `json:"ask_price"`
	AskQty    uint64    `json:"ask_quantity"`
	Timestamp time.Time `json:"timestamp"`
}

// DepthSnapshot is the cached aggregated book for one symbol.
type DepthSnapshot struct {
	Symbol    string         `json:"symbol"`
	Bids      []engine.Level `json:"bids"`
	Asks      []engine.Level `json:"asks"`
	Timestamp time.Time      `json:"timestamp"`
}

const (
	tickerTTL  = 100 * time.Millisecond
	depthTTL   = 500 * time.Millisecond
	tradeLimit = 100
)

func NewRedisCache(cfg *config.Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{
		client:     client,
		defaultTTL: time.Second,
	}, nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// SetTicker caches the top of book for a symbol.
func (c *RedisCache) SetTicker(ctx context.Context, t *Ticker) error {
	t.Timestamp = time.Now()
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "ticker:"+t.Symbol, data, tickerTTL).Err()
}

// GetTicker returns the cached top of book, or nil on a miss.
func (c *RedisCache) GetTicker(ctx context.Context, symbol string) (*Ticker, error) {
	data, err := c.client.Get(ctx, "ticker:"+symbol).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var t Ticker
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// SetDepth caches a depth snapshot for a symbol.
func (c *RedisCache) SetDepth(ctx context.Context, symbol string, bids, asks []engine.Level) error {
	snap := DepthSnapshot{
		Symbol:    symbol,
		Bids:      bids,
		Asks:      asks,
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(&snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "depth:"+symbol, data, depthTTL).Err()
}

// GetDepth returns the cached depth snapshot, or nil on a miss.
func (c *RedisCache) GetDepth(ctx context.Context, symbol string) (*DepthSnapshot, error) {
	data, err := c.client.Get(ctx, "depth:"+symbol).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap DepthSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// AddRecentTrade pushes a trade onto the symbol's capped feed.
func (c *RedisCache) AddRecentTrade(ctx context.Context, trade *models.Trade) error {
	data, err := json.Marshal(trade)
	if err != nil {
		return err
	}
	key := "trades:" + trade.Symbol
	pipe := c.client.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, tradeLimit-1)
	_, err = pipe.Exec(ctx)
	return err
}

// GetRecentTrades returns up to limit recent trades, newest first.
func (c *RedisCache) GetRecentTrades(ctx context.Context, symbol string, limit int64) ([]models.Trade, error) {
	items, err := c.client.LRange(ctx, "trades:"+symbol, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	trades := make([]models.Trade, 0, len(items))
	for _, item := range items {
		var t models.Trade
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			continue
		}
		trades = append(trades, t)
	}
	return trades, nil
}
