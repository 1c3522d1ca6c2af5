package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/ca-srg/mailscope/internal/types"
	"github.com/joho/godotenv"
	env "github.com/netflix/go-env"
)

// Type alias for Config
type Config = types.Config

// Load loads configuration from environment variables.
// A .env file in the working directory is read first when present; real
// environment variables always win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var config Config

	_, err := env.UnmarshalFromEnviron(&config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	config.AuthMode = types.AuthMode(strings.ToLower(strings.TrimSpace(config.AuthModeStr)))
	config.AuthAllowedIPs = splitList(config.AuthAllowedIPsStr)
	config.AuthTrustedProxies = splitList(config.AuthTrustedProxyStr)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// splitList parses a comma-separated list, dropping blanks
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// validateConfig validates configuration values and adjusts them to safe ranges
func validateConfig(config *Config) error {
	if err := validateOpenSearchConfig(config); err != nil {
		return fmt.Errorf("OpenSearch configuration validation failed: %w", err)
	}

	if err := validateServerConfig(config); err != nil {
		return fmt.Errorf("server configuration validation failed: %w", err)
	}

	if err := validateAuthConfig(config); err != nil {
		return fmt.Errorf("auth configuration validation failed: %w", err)
	}

	if config.StatsWindowYears < 1 {
		config.StatsWindowYears = 1
	}
	if config.StatsWindowYears > 20 {
		config.StatsWindowYears = 20
	}

	if config.StatsProtocolBuckets < 1 {
		config.StatsProtocolBuckets = 1
	}
	if config.StatsProtocolBuckets > 100 {
		config.StatsProtocolBuckets = 100
	}

	config.SearchTiebreakField = strings.TrimSpace(config.SearchTiebreakField)

	if config.LogMaxSizeMB <= 0 {
		config.LogMaxSizeMB = 100
	}
	if config.LogMaxBackups < 0 {
		config.LogMaxBackups = 0
	}
	if config.LogMaxAgeDays < 0 {
		config.LogMaxAgeDays = 0
	}

	return nil
}

// validateOpenSearchConfig validates OpenSearch-specific configuration
func validateOpenSearchConfig(config *Config) error {
	if config.OpenSearchEndpoint == "" {
		return fmt.Errorf("OPENSEARCH_ENDPOINT is required")
	}

	parsedURL, err := url.Parse(config.OpenSearchEndpoint)
	if err != nil {
		return fmt.Errorf("invalid OPENSEARCH_ENDPOINT URL format: %w", err)
	}

	if parsedURL.Scheme == "" {
		return fmt.Errorf("OPENSEARCH_ENDPOINT must include scheme (http:// or https://)")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("OPENSEARCH_ENDPOINT scheme must be http or https")
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("OPENSEARCH_ENDPOINT must include a valid host")
	}

	if !isValidIndexName(config.OpenSearchIndex) {
		return fmt.Errorf("OPENSEARCH_INDEX contains invalid characters: %q", config.OpenSearchIndex)
	}

	if config.OpenSearchAWSSigV4 && config.OpenSearchRegion == "" {
		return fmt.Errorf("OPENSEARCH_REGION is required when OPENSEARCH_AWS_SIGV4 is enabled")
	}

	if config.OpenSearchAWSSigV4 && config.OpenSearchUsername != "" {
		return fmt.Errorf("OPENSEARCH_USERNAME cannot be combined with OPENSEARCH_AWS_SIGV4")
	}

	if config.OpenSearchRateLimit <= 0 {
		config.OpenSearchRateLimit = 50.0
	}
	if config.OpenSearchRateLimit > 1000 {
		config.OpenSearchRateLimit = 1000.0
	}

	if config.OpenSearchRateBurst <= 0 {
		config.OpenSearchRateBurst = 100
	}
	if config.OpenSearchRateBurst > 10000 {
		config.OpenSearchRateBurst = 10000
	}

	if config.OpenSearchConnectionTimeout <= 0 {
		config.OpenSearchConnectionTimeout = 30 * time.Second
	}
	if config.OpenSearchRequestTimeout <= 0 {
		config.OpenSearchRequestTimeout = 60 * time.Second
	}
	if config.OpenSearchRequestTimeout > 600*time.Second {
		config.OpenSearchRequestTimeout = 600 * time.Second
	}

	if config.OpenSearchMaxConnections <= 0 {
		config.OpenSearchMaxConnections = 100
	}
	if config.OpenSearchMaxIdleConns <= 0 {
		config.OpenSearchMaxIdleConns = 10
	}
	if config.OpenSearchMaxIdleConns > config.OpenSearchMaxConnections {
		return fmt.Errorf("OPENSEARCH_MAX_IDLE_CONNS cannot exceed OPENSEARCH_MAX_CONNECTIONS")
	}

	if config.OpenSearchIdleConnTimeout <= 0 {
		config.OpenSearchIdleConnTimeout = 90 * time.Second
	}

	return nil
}

// validateServerConfig validates the HTTP listener settings
func validateServerConfig(config *Config) error {
	if config.ServerHost == "" {
		return fmt.Errorf("SERVER_HOST cannot be empty")
	}

	if config.ServerPort < 1 || config.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535")
	}

	timeoutChecks := []struct {
		name  string
		value *time.Duration
		def   time.Duration
	}{
		{"SERVER_READ_TIMEOUT", &config.ServerReadTimeout, 30 * time.Second},
		{"SERVER_WRITE_TIMEOUT", &config.ServerWriteTimeout, 60 * time.Second},
		{"SERVER_IDLE_TIMEOUT", &config.ServerIdleTimeout, 120 * time.Second},
		{"SERVER_SHUTDOWN_TIMEOUT", &config.ServerShutdownTimeout, 30 * time.Second},
	}
	for _, check := range timeoutChecks {
		if *check.value <= 0 {
			*check.value = check.def
		}
	}

	if config.ServerMaxHeaderBytes <= 0 {
		config.ServerMaxHeaderBytes = 1 << 20
	}
	if config.ServerMaxHeaderBytes > 10<<20 {
		return fmt.Errorf("SERVER_MAX_HEADER_BYTES cannot exceed 10MB")
	}

	return nil
}

// validateAuthConfig validates the token-verification and IP allowlist settings
func validateAuthConfig(config *Config) error {
	switch config.AuthMode {
	case types.AuthModeJWT:
		if config.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when AUTH_MODE=jwt")
		}
		if len(config.JWTSecret) < 16 {
			return fmt.Errorf("JWT_SECRET must be at least 16 bytes")
		}
	case types.AuthModeOIDC:
		if config.OIDCIssuer == "" {
			return fmt.Errorf("OIDC_ISSUER is required when AUTH_MODE=oidc")
		}
		if config.OIDCClientID == "" {
			return fmt.Errorf("OIDC_CLIENT_ID is required when AUTH_MODE=oidc")
		}
		if config.OIDCRoleClaim == "" {
			config.OIDCRoleClaim = "role"
		}
	case types.AuthModeNone:
	default:
		return fmt.Errorf("AUTH_MODE must be one of jwt, oidc, none (got %q)", config.AuthModeStr)
	}

	for i, entry := range config.AuthAllowedIPs {
		if !isValidIPOrCIDR(entry) {
			return fmt.Errorf("invalid entry in AUTH_ALLOWED_IPS at index %d: %s", i, entry)
		}
	}
	for i, entry := range config.AuthTrustedProxies {
		if !isValidIPOrCIDR(entry) {
			return fmt.Errorf("invalid entry in AUTH_TRUSTED_PROXIES at index %d: %s", i, entry)
		}
	}

	if config.AuthCookieName == "" {
		config.AuthCookieName = "token"
	}

	return nil
}

func isValidIPOrCIDR(s string) bool {
	if strings.Contains(s, "/") {
		_, err := netip.ParsePrefix(s)
		return err == nil
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}

// isValidIndexName checks if an index name is acceptable to OpenSearch
func isValidIndexName(name string) bool {
	if len(name) == 0 || len(name) > 255 {
		return false
	}

	if name[0] == '_' || name[0] == '-' || name[0] == '+' {
		return false
	}

	for _, char := range name {
		if !((char >= 'a' && char <= 'z') || (char >= '0' && char <= '9') ||
			char == '_' || char == '-' || char == '.') {
			return false
		}
	}

	return true
}
