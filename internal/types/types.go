package types

import (
	"time"
)

// ErrorType represents the type of error that occurred
type ErrorType string

const (
	ErrorTypeNetworkTimeout ErrorType = "network_timeout"
	ErrorTypeTimeout        ErrorType = "timeout"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeResponse       ErrorType = "response"
	ErrorTypeUnknown        ErrorType = "unknown"
	// OpenSearch specific error types
	ErrorTypeOpenSearchConnection ErrorType = "opensearch_connection"
	ErrorTypeOpenSearchQuery      ErrorType = "opensearch_query"
	ErrorTypeOpenSearchIndex      ErrorType = "opensearch_index"
)

// AuthMode selects the token-verification collaborator used by the API
type AuthMode string

const (
	AuthModeJWT  AuthMode = "jwt"
	AuthModeOIDC AuthMode = "oidc"
	AuthModeNone AuthMode = "none"
)

// Config represents the service configuration
type Config struct {
	// OpenSearch configuration
	OpenSearchEndpoint          string        `json:"opensearch_endpoint" env:"OPENSEARCH_ENDPOINT,default=http://localhost:9200"`
	OpenSearchIndex             string        `json:"opensearch_index" env:"OPENSEARCH_INDEX,default=email-data"`
	OpenSearchUsername          string        `json:"opensearch_username" env:"OPENSEARCH_USERNAME"`
	OpenSearchPassword          string        `json:"-" env:"OPENSEARCH_PASSWORD"`
	OpenSearchAWSSigV4          bool          `json:"opensearch_aws_sigv4" env:"OPENSEARCH_AWS_SIGV4,default=false"`
	OpenSearchRegion            string        `json:"opensearch_region" env:"OPENSEARCH_REGION,default=us-east-1"`
	OpenSearchInsecureSkipTLS   bool          `json:"opensearch_insecure_skip_tls" env:"OPENSEARCH_INSECURE_SKIP_TLS,default=false"`
	OpenSearchRateLimit         float64       `json:"opensearch_rate_limit" env:"OPENSEARCH_RATE_LIMIT,default=50.0"`
	OpenSearchRateBurst         int           `json:"opensearch_rate_burst" env:"OPENSEARCH_RATE_BURST,default=100"`
	OpenSearchConnectionTimeout time.Duration `json:"opensearch_connection_timeout" env:"OPENSEARCH_CONNECTION_TIMEOUT,default=30s"`
	OpenSearchRequestTimeout    time.Duration `json:"opensearch_request_timeout" env:"OPENSEARCH_REQUEST_TIMEOUT,default=60s"`
	OpenSearchMaxConnections    int           `json:"opensearch_max_connections" env:"OPENSEARCH_MAX_CONNECTIONS,default=100"`
	OpenSearchMaxIdleConns      int           `json:"opensearch_max_idle_conns" env:"OPENSEARCH_MAX_IDLE_CONNS,default=10"`
	OpenSearchIdleConnTimeout   time.Duration `json:"opensearch_idle_conn_timeout" env:"OPENSEARCH_IDLE_CONN_TIMEOUT,default=90s"`

	// HTTP server configuration
	ServerHost            string        `json:"server_host" env:"SERVER_HOST,default=localhost"`
	ServerPort            int           `json:"server_port" env:"SERVER_PORT,default=8080"`
	ServerReadTimeout     time.Duration `json:"server_read_timeout" env:"SERVER_READ_TIMEOUT,default=30s"`
	ServerWriteTimeout    time.Duration `json:"server_write_timeout" env:"SERVER_WRITE_TIMEOUT,default=60s"`
	ServerIdleTimeout     time.Duration `json:"server_idle_timeout" env:"SERVER_IDLE_TIMEOUT,default=120s"`
	ServerShutdownTimeout time.Duration `json:"server_shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT,default=30s"`
	ServerMaxHeaderBytes  int           `json:"server_max_header_bytes" env:"SERVER_MAX_HEADER_BYTES,default=1048576"`

	// Authentication configuration
	AuthModeStr         string   `json:"-" env:"AUTH_MODE,default=jwt"`
	AuthMode            AuthMode `json:"auth_mode"`
	JWTSecret           string   `json:"-" env:"JWT_SECRET"`
	JWTIssuer           string   `json:"jwt_issuer" env:"JWT_ISSUER"`
	OIDCIssuer          string   `json:"oidc_issuer" env:"OIDC_ISSUER"`
	OIDCClientID        string   `json:"oidc_client_id" env:"OIDC_CLIENT_ID"`
	OIDCRoleClaim       string   `json:"oidc_role_claim" env:"OIDC_ROLE_CLAIM,default=role"`
	AuthAllowedIPsStr   string   `json:"-" env:"AUTH_ALLOWED_IPS"`
	AuthAllowedIPs      []string `json:"auth_allowed_ips"`
	AuthTrustedProxyStr string   `json:"-" env:"AUTH_TRUSTED_PROXIES"`
	AuthTrustedProxies  []string `json:"auth_trusted_proxies"`
	AuthCookieName      string   `json:"auth_cookie_name" env:"AUTH_COOKIE_NAME,default=token"`

	// Query engine configuration
	SearchTiebreakField  string `json:"search_tiebreak_field" env:"SEARCH_TIEBREAK_FIELD"`
	StatsWindowYears     int    `json:"stats_window_years" env:"STATS_WINDOW_YEARS,default=5"`
	StatsProtocolBuckets int    `json:"stats_protocol_buckets" env:"STATS_PROTOCOL_BUCKETS,default=10"`

	// Usage accounting
	UsageTrackingEnabled bool   `json:"usage_tracking_enabled" env:"USAGE_TRACKING_ENABLED,default=true"`
	UsageDBPath          string `json:"usage_db_path" env:"USAGE_DB_PATH"`

	// MCP tool surface
	MCPEnabled bool `json:"mcp_enabled" env:"MCP_ENABLED,default=true"`

	// Logging
	LogFile       string `json:"log_file" env:"LOG_FILE"`
	LogMaxSizeMB  int    `json:"log_max_size_mb" env:"LOG_MAX_SIZE_MB,default=100"`
	LogMaxBackups int    `json:"log_max_backups" env:"LOG_MAX_BACKUPS,default=3"`
	LogMaxAgeDays int    `json:"log_max_age_days" env:"LOG_MAX_AGE_DAYS,default=28"`

	// OpenTelemetry configuration
	OTelEnabled              bool          `json:"otel_enabled" env:"OTEL_ENABLED,default=false"`
	OTelServiceName          string        `json:"otel_service_name" env:"OTEL_SERVICE_NAME,default=mailscope"`
	OTelExporterOTLPEndpoint string        `json:"otel_exporter_otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelExporterOTLPProtocol string        `json:"otel_exporter_otlp_protocol" env:"OTEL_EXPORTER_OTLP_PROTOCOL,default=http/protobuf"`
	OTelResourceAttributes   string        `json:"otel_resource_attributes" env:"OTEL_RESOURCE_ATTRIBUTES"`
	OTelTracesSampler        string        `json:"otel_traces_sampler" env:"OTEL_TRACES_SAMPLER,default=always_on"`
	OTelTracesSamplerArg     float64       `json:"otel_traces_sampler_arg" env:"OTEL_TRACES_SAMPLER_ARG,default=1.0"`
	OTelMetricExportInterval time.Duration `json:"otel_metric_export_interval" env:"OTEL_METRIC_EXPORT_INTERVAL,default=60s"`
}
