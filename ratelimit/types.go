// Package ratelimit paces outbound AWS API calls. AWS Organizations allows
// only a handful of requests per second per account, and a stack that
// creates several DetectiveGraphConfig resources runs their handlers
// concurrently.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Pacer blocks until the next call may be issued.
// Implementations must be safe for concurrent use.
type Pacer interface {
	// Wait blocks until a call is permitted or ctx is done.
	Wait(ctx context.Context) error
}

// Config contains pacing configuration.
type Config struct {
	// RequestsPerWindow is the sustained number of calls allowed per Window.
	RequestsPerWindow int

	// Window is the period RequestsPerWindow is measured over.
	Window time.Duration

	// BurstSize allows short bursts above the rate (optional).
	// If zero, defaults to RequestsPerWindow.
	BurstSize int
}

// DefaultOrganizationsConfig stays under the Organizations API limit of
// five requests per second.
func DefaultOrganizationsConfig() Config {
	return Config{RequestsPerWindow: 4, Window: time.Second}
}

// Validate checks if the Config is valid.
func (c *Config) Validate() error {
	if c.RequestsPerWindow <= 0 {
		return fmt.Errorf("RequestsPerWindow must be positive, got %d", c.RequestsPerWindow)
	}
	if c.Window <= 0 {
		return fmt.Errorf("Window must be positive, got %v", c.Window)
	}
	if c.BurstSize < 0 {
		return fmt.Errorf("BurstSize cannot be negative, got %d", c.BurstSize)
	}
	return nil
}

// EffectiveBurstSize returns BurstSize if set, otherwise RequestsPerWindow.
func (c *Config) EffectiveBurstSize() int {
	if c.BurstSize > 0 {
		return c.BurstSize
	}
	return c.RequestsPerWindow
}

// Limit converts the configuration into a token refill rate.
func (c *Config) Limit() rate.Limit {
	return rate.Limit(float64(c.RequestsPerWindow) / c.Window.Seconds())
}

// TokenBucket is a Pacer backed by a token bucket.
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket creates a TokenBucket from cfg.
func NewTokenBucket(cfg Config) (*TokenBucket, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &TokenBucket{limiter: rate.NewLimiter(cfg.Limit(), cfg.EffectiveBurstSize())}, nil
}

// Wait blocks until a token is available or ctx is done.
func (b *TokenBucket) Wait(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}

// Unlimited returns a Pacer that never blocks.
func Unlimited() Pacer {
	return &TokenBucket{limiter: rate.NewLimiter(rate.Inf, 0)}
}

// NewOrganizationsPacer returns a TokenBucket using DefaultOrganizationsConfig.
func NewOrganizationsPacer() *TokenBucket {
	cfg := DefaultOrganizationsConfig()
	return &TokenBucket{limiter: rate.NewLimiter(cfg.Limit(), cfg.EffectiveBurstSize())}
}
