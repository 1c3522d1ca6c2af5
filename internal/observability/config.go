package observability

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ca-srg/mailscope/internal/types"
)

const (
	defaultServiceName      = "mailscope"
	defaultExporterProtocol = "http/protobuf"
	protocolGRPC            = "grpc"
	defaultExportInterval   = 60 * time.Second

	resourceServiceNameKey      = "service.name"
	resourceServiceNamespaceKey = "service.namespace"
	resourceIndexKey            = "mailscope.opensearch.index"
	resourceAuthModeKey         = "mailscope.auth.mode"
	resourceMCPEnabledKey       = "mailscope.mcp.enabled"
)

// Config holds the OpenTelemetry settings resolved from the service configuration.
type Config struct {
	Enabled              bool
	ServiceName          string
	ExporterEndpoint     string
	ExporterProtocol     string
	ResourceAttributes   map[string]string
	TracesSampler        string
	TracesSamplerArg     float64
	MetricExportInterval time.Duration
}

// LoadConfig resolves telemetry settings from the root config. Besides
// OTEL_RESOURCE_ATTRIBUTES, every resource carries the index being queried,
// the auth mode and whether MCP tools are mounted; explicit attributes win.
func LoadConfig(cfg *types.Config) (*Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("observability: nil root configuration provided")
	}

	attrs, err := parseResourceAttributes(cfg.OTelResourceAttributes)
	if err != nil {
		return nil, fmt.Errorf("observability: failed to parse resource attributes: %w", err)
	}

	for key, value := range serviceAttributes(cfg) {
		if _, ok := attrs[key]; !ok && value != "" {
			attrs[key] = value
		}
	}

	otelCfg := &Config{
		Enabled:              cfg.OTelEnabled,
		ServiceName:          strings.TrimSpace(cfg.OTelServiceName),
		ExporterEndpoint:     strings.TrimSpace(cfg.OTelExporterOTLPEndpoint),
		ExporterProtocol:     strings.TrimSpace(cfg.OTelExporterOTLPProtocol),
		ResourceAttributes:   attrs,
		TracesSampler:        strings.TrimSpace(cfg.OTelTracesSampler),
		TracesSamplerArg:     cfg.OTelTracesSamplerArg,
		MetricExportInterval: cfg.OTelMetricExportInterval,
	}

	if err := otelCfg.Validate(); err != nil {
		return nil, err
	}
	return otelCfg, nil
}

func serviceAttributes(cfg *types.Config) map[string]string {
	return map[string]string{
		resourceServiceNamespaceKey: defaultServiceName,
		resourceIndexKey:            cfg.OpenSearchIndex,
		resourceAuthModeKey:         string(cfg.AuthMode),
		resourceMCPEnabledKey:       fmt.Sprintf("%t", cfg.MCPEnabled),
	}
}

// Validate fills defaults and, when telemetry is enabled, checks the
// exporter endpoint against the chosen protocol.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("observability: config is nil")
	}

	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}
	c.ExporterProtocol = strings.ToLower(strings.TrimSpace(c.ExporterProtocol))
	if c.ExporterProtocol == "" {
		c.ExporterProtocol = defaultExporterProtocol
	}
	if c.TracesSampler == "" {
		c.TracesSampler = "always_on"
	}
	if c.MetricExportInterval <= 0 {
		c.MetricExportInterval = defaultExportInterval
	}
	if c.ResourceAttributes == nil {
		c.ResourceAttributes = make(map[string]string)
	}
	if _, ok := c.ResourceAttributes[resourceServiceNameKey]; !ok {
		c.ResourceAttributes[resourceServiceNameKey] = c.ServiceName
	}

	if !c.Enabled {
		return nil
	}

	if c.ExporterEndpoint == "" {
		return fmt.Errorf("observability: OTEL_EXPORTER_OTLP_ENDPOINT is required when OTEL_ENABLED=true")
	}

	switch c.ExporterProtocol {
	case defaultExporterProtocol:
		parsed, err := url.Parse(c.ExporterEndpoint)
		if err != nil {
			return fmt.Errorf("observability: invalid OTLP exporter endpoint: %w", err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("observability: OTLP endpoint %q needs an http or https scheme for http/protobuf", c.ExporterEndpoint)
		}
		if parsed.Host == "" {
			return fmt.Errorf("observability: OTLP endpoint %q has no host", c.ExporterEndpoint)
		}
	case protocolGRPC:
		if _, _, err := parseGRPCEndpoint(c.ExporterEndpoint); err != nil {
			return fmt.Errorf("observability: invalid OTLP gRPC endpoint: %w", err)
		}
	default:
		return fmt.Errorf("observability: unsupported OTLP exporter protocol %q", c.ExporterProtocol)
	}

	if c.TracesSamplerArg < 0 {
		return fmt.Errorf("observability: traces sampler argument must be non-negative")
	}
	if strings.EqualFold(c.TracesSampler, "traceidratio") && (c.TracesSamplerArg <= 0 || c.TracesSamplerArg > 1) {
		return fmt.Errorf("observability: traceidratio sampler argument must be in (0, 1]")
	}

	return nil
}

// parseResourceAttributes reads the "k1=v1,k2=v2" form of OTEL_RESOURCE_ATTRIBUTES
func parseResourceAttributes(input string) (map[string]string, error) {
	attributes := make(map[string]string)

	for _, pair := range strings.Split(input, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid resource attribute %q", pair)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("resource attribute key cannot be empty")
		}
		attributes[key] = strings.TrimSpace(value)
	}

	return attributes, nil
}
