package repository_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jerseyshop/storefront-api/internal/config"
	repository "github.com/jerseyshop/storefront-api/internal/repositories"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRateLimiter(t *testing.T, maxAttempts int64) (repository.RateLimitRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		client.Close()
	})

	return repository.NewRateLimitRepo(client, config.RateConfig{MaxAttempts: maxAttempts, WindowSize: time.Minute}), mr
}

func TestCheckRateLimit(t *testing.T) {
	t.Run("Allows up to the limit then blocks", func(t *testing.T) {
		// Arrange
		limiter, _ := setupRateLimiter(t, 3)
		ctx := t.Context()

		// Act & Assert
		for i := range 3 {
			allowed, remaining, wait, err := limiter.CheckRateLimit(ctx, "checkout:user-1")
			require.NoError(t, err)
			assert.True(t, allowed, "attempt %d should pass", i+1)
			assert.Equal(t, 2-i, remaining)
			assert.Zero(t, wait)
		}

		allowed, remaining, wait, err := limiter.CheckRateLimit(ctx, "checkout:user-1")
		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Zero(t, remaining)
		assert.Positive(t, wait)
		assert.LessOrEqual(t, wait, 60)
	})

	t.Run("Keys are independent", func(t *testing.T) {
		limiter, _ := setupRateLimiter(t, 1)
		ctx := t.Context()

		allowed, _, _, err := limiter.CheckRateLimit(ctx, "checkout:a")
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, _, _, err = limiter.CheckRateLimit(ctx, "checkout:b")
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("Key expires with the window", func(t *testing.T) {
		limiter, mr := setupRateLimiter(t, 1)
		ctx := t.Context()

		_, _, _, err := limiter.CheckRateLimit(ctx, "checkout:c")
		require.NoError(t, err)

		assert.Equal(t, time.Minute, mr.TTL("rate_limit:checkout:c"))
	})

	t.Run("Redis unavailable", func(t *testing.T) {
		limiter, mr := setupRateLimiter(t, 1)
		mr.Close()

		allowed, _, _, err := limiter.CheckRateLimit(t.Context(), "checkout:d")

		assert.Error(t, err)
		assert.False(t, allowed)
	})
}
