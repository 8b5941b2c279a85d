package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tipjar/internal/platform/config"
)

func TestNew_Configuration(t *testing.T) {
	t.Run("empty url", func(t *testing.T) {
		_, err := New(context.Background(), config.RedisConfig{})
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("bad scheme", func(t *testing.T) {
		_, err := New(context.Background(), config.RedisConfig{URL: "http://localhost:6379"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse redis URL")
	})
}
