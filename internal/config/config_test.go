package config

import (
	"testing"
	"time"

	"github.com/ca-srg/mailscope/internal/types"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	requiredEnv := map[string]string{
		"OPENSEARCH_ENDPOINT": "https://opensearch.example.com",
		"OPENSEARCH_INDEX":    "email-data",
		"JWT_SECRET":          "0123456789abcdef0123",
	}

	t.Run("parses auth overrides", func(t *testing.T) {
		for key, value := range requiredEnv {
			t.Setenv(key, value)
		}

		t.Setenv("AUTH_MODE", "JWT")
		t.Setenv("AUTH_ALLOWED_IPS", "10.0.0.0/8 , 192.168.1.5 ,,")
		t.Setenv("AUTH_TRUSTED_PROXIES", "127.0.0.1")
		t.Setenv("SEARCH_TIEBREAK_FIELD", " message.message_id ")

		cfg, err := Load()
		require.NoError(t, err)

		require.Equal(t, types.AuthModeJWT, cfg.AuthMode)
		require.Equal(t, []string{"10.0.0.0/8", "192.168.1.5"}, cfg.AuthAllowedIPs)
		require.Equal(t, []string{"127.0.0.1"}, cfg.AuthTrustedProxies)
		require.Equal(t, "message.message_id", cfg.SearchTiebreakField)
	})

	t.Run("normalizes defaults when env not provided", func(t *testing.T) {
		for key, value := range requiredEnv {
			t.Setenv(key, value)
		}

		t.Setenv("STATS_WINDOW_YEARS", "-3")
		t.Setenv("STATS_PROTOCOL_BUCKETS", "5000")
		t.Setenv("OPENSEARCH_RATE_LIMIT", "0")

		cfg, err := Load()
		require.NoError(t, err)

		require.Equal(t, 1, cfg.StatsWindowYears)
		require.Equal(t, 100, cfg.StatsProtocolBuckets)
		require.Equal(t, 50.0, cfg.OpenSearchRateLimit)
		require.Equal(t, "token", cfg.AuthCookieName)
		require.Equal(t, 8080, cfg.ServerPort)
		require.Equal(t, 60*time.Second, cfg.OpenSearchRequestTimeout)
	})

	t.Run("rejects jwt mode without secret", func(t *testing.T) {
		t.Setenv("OPENSEARCH_ENDPOINT", "https://opensearch.example.com")
		t.Setenv("JWT_SECRET", "")
		t.Setenv("AUTH_MODE", "jwt")

		_, err := Load()
		require.Error(t, err)
		require.Contains(t, err.Error(), "JWT_SECRET")
	})

	t.Run("accepts none mode without secret", func(t *testing.T) {
		t.Setenv("OPENSEARCH_ENDPOINT", "http://localhost:9200")
		t.Setenv("JWT_SECRET", "")
		t.Setenv("AUTH_MODE", "none")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, types.AuthModeNone, cfg.AuthMode)
	})
}

func TestValidateConfig(t *testing.T) {
	base := func() *Config {
		return &Config{
			OpenSearchEndpoint: "https://search.example.com",
			OpenSearchIndex:    "email-data",
			ServerHost:         "localhost",
			ServerPort:         8080,
			AuthMode:           types.AuthModeNone,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing scheme", func(c *Config) { c.OpenSearchEndpoint = "search.example.com" }, "scheme"},
		{"bad scheme", func(c *Config) { c.OpenSearchEndpoint = "ftp://search.example.com" }, "http or https"},
		{"uppercase index", func(c *Config) { c.OpenSearchIndex = "Emails" }, "OPENSEARCH_INDEX"},
		{"sigv4 without region", func(c *Config) {
			c.OpenSearchAWSSigV4 = true
			c.OpenSearchRegion = ""
		}, "OPENSEARCH_REGION"},
		{"bad port", func(c *Config) { c.ServerPort = 70000 }, "SERVER_PORT"},
		{"unknown auth mode", func(c *Config) {
			c.AuthMode = "basic"
			c.AuthModeStr = "basic"
		}, "AUTH_MODE"},
		{"oidc without client", func(c *Config) {
			c.AuthMode = types.AuthModeOIDC
			c.OIDCIssuer = "https://issuer.example.com"
		}, "OIDC_CLIENT_ID"},
		{"short jwt secret", func(c *Config) {
			c.AuthMode = types.AuthModeJWT
			c.JWTSecret = "short"
		}, "16 bytes"},
		{"bad allowlist", func(c *Config) { c.AuthAllowedIPs = []string{"10.0.0.0/33"} }, "AUTH_ALLOWED_IPS"},
		{"bad trusted proxy", func(c *Config) { c.AuthTrustedProxies = []string{"proxy.local"} }, "AUTH_TRUSTED_PROXIES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsValidIndexName(t *testing.T) {
	require.True(t, isValidIndexName("email-data"))
	require.True(t, isValidIndexName("emails.2024_01"))
	require.False(t, isValidIndexName(""))
	require.False(t, isValidIndexName("_hidden"))
	require.False(t, isValidIndexName("Emails"))
	require.False(t, isValidIndexName("a b"))
}
