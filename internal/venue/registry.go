package venue

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"
	"resty.dev/v3"
)

// WSOLMint is the wrapped-SOL mint every venue lookup pairs against.
const WSOLMint = "So11111111111111111111111111111111111111112"

// Registry looks up the primary-market pool pairing a mint against the
// native currency. A miss is a normal outcome, not an error.
type Registry interface {
	// FindVenue returns the pool address for mint/quoteMint and whether a
	// listing exists.
	FindVenue(ctx context.Context, mint, quoteMint string) (string, bool, error)
}

// HTTPRegistryConfig configures HTTPRegistry.
type HTTPRegistryConfig struct {
	BaseURL   string
	Timeout   time.Duration // default 10s
	RateLimit int           // requests per minute, 0 disables limiting
	Logger    *log.Logger
}

// HTTPRegistry queries a Raydium-style pool listing API.
type HTTPRegistry struct {
	client  *resty.Client
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewHTTPRegistry creates a registry client for the given pool API.
func NewHTTPRegistry(cfg HTTPRegistryConfig) *HTTPRegistry {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RateLimit)/60), 1)
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout)

	return &HTTPRegistry{
		client:  client,
		limiter: limiter,
		logger:  logger,
	}
}

// poolListResponse is the pool API response shape.
type poolListResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Count int `json:"count"`
		Data  []struct {
			ID string `json:"id"`
		} `json:"data"`
	} `json:"data"`
}

// FindVenue returns the first pool listed for the mint pair.
func (r *HTTPRegistry) FindVenue(ctx context.Context, mint, quoteMint string) (string, bool, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", false, err
		}
	}

	var result poolListResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"mint1":    mint,
			"mint2":    quoteMint,
			"poolType": "all",
			"pageSize": "10",
			"page":     "1",
		}).
		SetResult(&result).
		Get("/pools/info/mint")
	if err != nil {
		return "", false, fmt.Errorf("query pool api: %w", err)
	}

	if resp.StatusCode() != 200 {
		return "", false, fmt.Errorf("pool api status %d", resp.StatusCode())
	}

	if !result.Success || len(result.Data.Data) == 0 {
		return "", false, nil
	}

	// First match wins when a pair trades in several pools.
	return result.Data.Data[0].ID, true, nil
}

// Close releases the underlying HTTP client.
func (r *HTTPRegistry) Close() error {
	return r.client.Close()
}

// Compile-time interface check.
var _ Registry = (*HTTPRegistry)(nil)
