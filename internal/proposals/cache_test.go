package proposals

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*SummaryCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSummaryCache(client, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Minute), mr
}

func TestSummaryCacheComputesOnceWhileWarm(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	computes := 0
	loader := func(context.Context) (FinancialSummary, error) {
		computes++
		return FinancialSummary{TotalAmount: 4200}, nil
	}

	first, err := cache.Fetch(ctx, 7, loader)
	require.NoError(t, err)
	require.Equal(t, 4200.0, first.TotalAmount)

	second, err := cache.Fetch(ctx, 7, loader)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, computes)
}

func TestSummaryCacheInvalidateForcesRecompute(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	total := 100.0
	loader := func(context.Context) (FinancialSummary, error) {
		return FinancialSummary{TotalAmount: total}, nil
	}

	first, err := cache.Fetch(ctx, 7, loader)
	require.NoError(t, err)
	require.Equal(t, 100.0, first.TotalAmount)

	total = 250
	cache.Invalidate(ctx, 7)

	second, err := cache.Fetch(ctx, 7, loader)
	require.NoError(t, err)
	require.Equal(t, 250.0, second.TotalAmount)
}

func TestSummaryCachePropagatesComputeError(t *testing.T) {
	cache, _ := newTestCache(t)

	wantErr := errors.New("load failed")
	_, err := cache.Fetch(context.Background(), 9, func(context.Context) (FinancialSummary, error) {
		return FinancialSummary{}, wantErr
	})
	require.ErrorIs(t, err, wantErr)
}

func TestSummaryCacheNilDegradesToCompute(t *testing.T) {
	var cache *SummaryCache

	summary, err := cache.Fetch(context.Background(), 1, func(context.Context) (FinancialSummary, error) {
		return FinancialSummary{TotalAmount: 10}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 10.0, summary.TotalAmount)
}
