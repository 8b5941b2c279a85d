package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "tipjar/pkg/domain"
)

const ownerHex = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := fromLookup(lookupFrom(map[string]string{"LEDGER_OWNER": ownerHex}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, ownerHex, cfg.Owner.String())
	assert.Equal(t, 0, cfg.MinDonation.Cmp(id.MustParseEther("0.001")))
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 5*time.Minute, cfg.Auth.ChallengeTTL)
	assert.True(t, cfg.Auth.DevSigningKey)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 20, cfg.RateLimit.AuthPerMinute)
	assert.False(t, cfg.RateLimit.Disabled)
}

func TestFromLookup_Overrides(t *testing.T) {
	cfg, err := fromLookup(lookupFrom(map[string]string{
		"LEDGER_OWNER":    ownerHex,
		"TIPJAR_ADDR":     ":9090",
		"MIN_DONATION":    "0.01",
		"STORE_BACKEND":   "Postgres",
		"DATABASE_URL":    "postgres://tipjar@localhost/tipjar",
		"KAFKA_BROKERS":   "a:9092, b:9092,",
		"JWT_SIGNING_KEY": "secret",
		"TOKEN_TTL":       "15m",
		"LOG_FORMAT":      "TEXT",
		"LOG_LEVEL":       "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 0, cfg.MinDonation.Cmp(id.MustParseEther("0.01")))
	assert.Equal(t, StorePostgres, cfg.Store.Backend)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "secret", cfg.Auth.JWTSigningKey)
	assert.False(t, cfg.Auth.DevSigningKey)
	assert.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestFromLookup_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing owner", map[string]string{}, "LEDGER_OWNER is required"},
		{"zero owner", map[string]string{"LEDGER_OWNER": "0x0000000000000000000000000000000000000000"}, "LEDGER_OWNER"},
		{"bad min donation", map[string]string{"LEDGER_OWNER": ownerHex, "MIN_DONATION": "abc"}, "MIN_DONATION"},
		{"postgres without url", map[string]string{"LEDGER_OWNER": ownerHex, "STORE_BACKEND": "postgres"}, "DATABASE_URL"},
		{"unknown backend", map[string]string{"LEDGER_OWNER": ownerHex, "STORE_BACKEND": "mongo"}, "STORE_BACKEND"},
		{"bad duration", map[string]string{"LEDGER_OWNER": ownerHex, "TOKEN_TTL": "soon"}, "TOKEN_TTL"},
		{"bad int", map[string]string{"LEDGER_OWNER": ownerHex, "EVENT_BUFFER": "many"}, "EVENT_BUFFER"},
		{"negative rate limit", map[string]string{"LEDGER_OWNER": ownerHex, "RATE_LIMIT_AUTH_PER_MINUTE": "-1"}, "cannot be negative"},
		{"bad log level", map[string]string{"LEDGER_OWNER": ownerHex, "LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fromLookup(lookupFrom(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
