package opensearch

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	opensearch "github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"
	requestsigner "github.com/opensearch-project/opensearch-go/v4/signer/awsv2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/ca-srg/mailscope/internal/logging"
)

const tracerName = "mailscope/opensearch"

type Client struct {
	client      *opensearchapi.Client
	rateLimiter *rate.Limiter
	config      *Config
	logger      *log.Logger
	stats       *requestStats
}

func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid OpenSearch config: %w", err)
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipTLS,
		},
		MaxConnsPerHost:       cfg.MaxConnections,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   max(cfg.MaxIdleConns/2, 1),
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
	}

	clientConfig := opensearch.Config{
		Addresses: []string{cfg.Endpoint},
		Transport: transport,
	}

	if cfg.UseSigV4 {
		awsConfig, err := config.LoadDefaultConfig(context.Background(),
			config.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		signer, err := requestsigner.NewSignerWithService(awsConfig, "es")
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS signer: %w", err)
		}
		clientConfig.Signer = signer
	} else if cfg.Username != "" {
		clientConfig.Username = cfg.Username
		clientConfig.Password = cfg.Password
	}

	osClient, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: clientConfig,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenSearch client: %w", err)
	}

	return &Client{
		client:      osClient,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		config:      cfg,
		logger:      logging.New("opensearch"),
		stats:       newRequestStats(),
	}, nil
}

// Index returns the default index configured for this client
func (c *Client) Index() string {
	return c.config.Index
}

// HealthCheck returns the cluster status ("green", "yellow", "red")
func (c *Client) HealthCheck(ctx context.Context) (string, error) {
	if err := c.WaitForRateLimit(ctx); err != nil {
		return "", fmt.Errorf("rate limit exceeded: %w", err)
	}

	resp, err := c.client.Cluster.Health(ctx, &opensearchapi.ClusterHealthReq{})
	if err != nil {
		var raw *opensearch.Response
		if resp != nil {
			raw = resp.Inspect().Response
		}
		c.logger.Printf("OpenSearch health check failed: %v", err)
		return "", fmt.Errorf("health check failed: %w", classifyError(raw, err))
	}

	return resp.Status, nil
}

func (c *Client) GetClient() *opensearchapi.Client {
	return c.client
}

func (c *Client) WaitForRateLimit(ctx context.Context) error {
	return c.rateLimiter.Wait(ctx)
}

// requestStats records store round-trips as OTel instruments
type requestStats struct {
	once     sync.Once
	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

func newRequestStats() *requestStats {
	return &requestStats{}
}

func (s *requestStats) init() {
	s.once.Do(func() {
		meter := otel.Meter(tracerName)

		var err error
		s.requests, err = meter.Int64Counter(
			"mailscope.opensearch.requests.total",
			metric.WithDescription("Total number of OpenSearch requests"),
		)
		if err != nil {
			log.Printf("Failed to create opensearch request counter: %v", err)
		}

		s.latency, err = meter.Float64Histogram(
			"mailscope.opensearch.latency",
			metric.WithDescription("OpenSearch request latency"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			log.Printf("Failed to create opensearch latency histogram: %v", err)
		}
	})
}

// RecordRequest records one store round-trip
func (c *Client) RecordRequest(ctx context.Context, operation string, duration time.Duration, success bool) {
	if c.stats == nil {
		return
	}
	c.stats.init()

	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("success", success),
	)
	if c.stats.requests != nil {
		c.stats.requests.Add(ctx, 1, attrs)
	}
	if c.stats.latency != nil {
		c.stats.latency.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}
