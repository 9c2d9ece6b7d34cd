package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Amund211/blitzstats/internal/logging"
)

// GetOrCreate returns the cached value for key, or runs create once while concurrent callers for the same key wait.
// The returned bool is true when this call created the value.
//
// A failed create releases the claim so the next caller retries.
func GetOrCreate[T any](ctx context.Context, cache Cache[T], key string, create func() (T, error)) (T, bool, error) {
	logger := logging.FromContext(ctx).With(slog.String("key", key))

	// Release an unfulfilled claim, also when create panics
	holdingClaim := false
	defer func() {
		if holdingClaim {
			cache.delete(key)
		}
	}()

	waits := 0
	for {
		result := cache.getOrClaim(key)

		if result.valid {
			logger.InfoContext(ctx, "Getting cached value", "cache", "hit", "waits", waits)
			return result.data, false, nil
		}

		if !result.claimed {
			if waits == 0 {
				logger.InfoContext(ctx, "Waiting for cache")
			}
			waits++
			cache.wait()
			continue
		}

		holdingClaim = true
		logger.InfoContext(ctx, "Getting cached value", "cache", "miss")

		data, err := create()
		if err != nil {
			var empty T
			return empty, false, fmt.Errorf("failed to create cache entry for %s: %w", key, err)
		}

		cache.set(key, data)
		holdingClaim = false
		return data, true, nil
	}
}
