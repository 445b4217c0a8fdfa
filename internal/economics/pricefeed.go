package economics

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gridstake/backend/internal/config"
)

const priceCacheKey = "eth_usd_price"

// PriceFeed fetches the native coin USD price with a bounded RPC volume:
// successful reads are cached in Redis for the configured TTL, and the
// last successful value is kept in-process as a fallback when a refresh
// fails. The cache is safe to lose; it is rehydrated on next use.
type PriceFeed struct {
	url        string
	ttl        time.Duration
	rdb        *redis.Client
	httpClient *http.Client

	mu       sync.RWMutex
	lastGood float64
}

// NewPriceFeed creates a price feed client. Returns nil when no feed URL
// is configured; callers treat a nil feed as "price unavailable".
func NewPriceFeed(cfg *config.Config, rdb *redis.Client) *PriceFeed {
	if cfg == nil || cfg.PriceFeedURL == "" {
		log.Printf("[PRICE] Price feed not configured - economics will use fallback values")
		return nil
	}
	ttl := time.Duration(cfg.PriceCacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PriceFeed{
		url:        cfg.PriceFeedURL,
		ttl:        ttl,
		rdb:        rdb,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// EthUsd returns the current ETH/USD price. Cache hit -> cached value;
// miss -> fetch, cache and remember it; fetch failure -> last known good
// value if one exists.
func (f *PriceFeed) EthUsd(ctx context.Context) (float64, error) {
	if f == nil {
		return 0, fmt.Errorf("price feed not configured")
	}

	if f.rdb != nil {
		if cached, err := f.rdb.Get(ctx, priceCacheKey).Result(); err == nil {
			if price, err := strconv.ParseFloat(cached, 64); err == nil && price > 0 {
				return price, nil
			}
		}
	}

	price, err := f.fetch(ctx)
	if err != nil {
		f.mu.RLock()
		last := f.lastGood
		f.mu.RUnlock()
		if last > 0 {
			log.Printf("[PRICE] Refresh failed (%v), using last known good price %.2f", err, last)
			return last, nil
		}
		return 0, err
	}

	f.mu.Lock()
	f.lastGood = price
	f.mu.Unlock()

	if f.rdb != nil {
		if err := f.rdb.Set(ctx, priceCacheKey, strconv.FormatFloat(price, 'f', -1, 64), f.ttl).Err(); err != nil {
			log.Printf("[PRICE] Failed to cache price: %v", err)
		}
	}

	log.Printf("[PRICE] Fetched ETH/USD price: %.2f (cached for %v)", price, f.ttl)
	return price, nil
}

func (f *PriceFeed) fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", f.url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("price request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price request failed with status %d", resp.StatusCode)
	}

	// CoinGecko simple/price shape: {"ethereum":{"usd":1234.56}}
	var body map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode price response: %w", err)
	}
	for _, quotes := range body {
		if usd, ok := quotes["usd"]; ok && usd > 0 {
			return usd, nil
		}
	}
	return 0, fmt.Errorf("no usd quote in price response")
}
