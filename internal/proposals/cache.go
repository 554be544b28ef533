package proposals

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// SummaryCache keeps computed financial summaries in Redis, keyed per
// proposal. Concurrent misses for the same proposal collapse into one
// computation via singleflight. A nil cache or client degrades to computing
// on every call.
type SummaryCache struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
	group  singleflight.Group
}

// NewSummaryCache instantiates the cache helper.
func NewSummaryCache(client *redis.Client, logger *slog.Logger, ttl time.Duration) *SummaryCache {
	return &SummaryCache{client: client, logger: logger, ttl: ttl}
}

func summaryKey(proposalID int64) string {
	return fmt.Sprintf("proposal:summary:%d", proposalID)
}

// Fetch loads the cached summary or computes and stores it.
func (c *SummaryCache) Fetch(ctx context.Context, proposalID int64, compute func(context.Context) (FinancialSummary, error)) (FinancialSummary, error) {
	if c == nil || c.client == nil {
		return compute(ctx)
	}

	key := summaryKey(proposalID)
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var summary FinancialSummary
		if err := json.Unmarshal(payload, &summary); err == nil {
			return summary, nil
		}
		// Corrupt entry: fall through and recompute.
		c.client.Del(ctx, key)
	} else if err != redis.Nil {
		c.logger.Warn("summary cache read failed",
			slog.Int64("proposal_id", proposalID),
			slog.Any("error", err))
	}

	value, err, _ := c.group.Do(key, func() (any, error) {
		summary, err := compute(ctx)
		if err != nil {
			return FinancialSummary{}, err
		}
		raw, err := json.Marshal(summary)
		if err != nil {
			return summary, nil
		}
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("summary cache write failed",
				slog.Int64("proposal_id", proposalID),
				slog.Any("error", err))
		}
		return summary, nil
	})
	if err != nil {
		return FinancialSummary{}, err
	}
	return value.(FinancialSummary), nil
}

// Invalidate drops the cached summary after a mutation.
func (c *SummaryCache) Invalidate(ctx context.Context, proposalID int64) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, summaryKey(proposalID)).Err(); err != nil {
		c.logger.Warn("summary cache invalidation failed",
			slog.Int64("proposal_id", proposalID),
			slog.Any("error", err))
	}
}
