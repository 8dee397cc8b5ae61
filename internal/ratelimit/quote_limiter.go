package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/panelquote/internal/config"
)

const keyQuoteClient = "panelquote:quote:client:%s"

// QuoteLimiter throttles quotation compute per client. A nil limiter allows everything.
type QuoteLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewQuoteLimiter(cfg config.Config, client *redis.Client) *QuoteLimiter {
	limitCfg := cfg.RateLimit
	if client == nil || limitCfg.QuoteRate <= 0 || limitCfg.QuoteBurst <= 0 {
		return nil
	}
	return &QuoteLimiter{
		bucket: NewTokenBucket(client),
		rate:   limitCfg.QuoteRate,
		burst:  limitCfg.QuoteBurst,
	}
}

func (l *QuoteLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *QuoteLimiter) Allow(ctx context.Context, clientID string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyQuoteClient, strings.TrimSpace(clientID)), l.rate, l.burst)
}
