package search

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ca-srg/mailscope/internal/opensearch"
	"github.com/ca-srg/mailscope/internal/pagination"
	"github.com/ca-srg/mailscope/internal/types"
)

var (
	searchTracer = otel.Tracer("mailscope/search")
)

// Executor sends prepared requests to the document store.
// *opensearch.Client satisfies it.
type Executor interface {
	Search(ctx context.Context, index string, body map[string]interface{}) (*opensearch.SearchResult, error)
	GetDocument(ctx context.Context, index, id string) (*opensearch.Document, error)
}

// Options tunes the service
type Options struct {
	Index           string
	TiebreakField   string
	WindowYears     int
	ProtocolBuckets int
	Logger          *log.Logger
}

// Service runs email searches, dashboard stats and single-document lookups.
// It holds no per-request state and issues one store call per operation.
type Service struct {
	executor  Executor
	options   Options
	projector *Projector
	logger    *log.Logger
}

func NewService(executor Executor, opts Options) (*Service, error) {
	if executor == nil {
		return nil, fmt.Errorf("executor cannot be nil")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &Service{
		executor:  executor,
		options:   opts,
		projector: NewProjector(opts.Logger),
		logger:    opts.Logger,
	}, nil
}

// NewServiceFromConfig wires a Service from the process configuration
func NewServiceFromConfig(executor Executor, cfg *types.Config, logger *log.Logger) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return NewService(executor, Options{
		Index:           cfg.OpenSearchIndex,
		TiebreakField:   cfg.SearchTiebreakField,
		WindowYears:     cfg.StatsWindowYears,
		ProtocolBuckets: cfg.StatsProtocolBuckets,
		Logger:          logger,
	})
}

// Search runs one page of an email search
func (s *Service) Search(ctx context.Context, filter types.FilterDescriptor) (*types.SearchResponse, error) {
	ctx, span := searchTracer.Start(ctx, "search.emails")
	defer span.End()

	span.SetAttributes(
		attribute.Int("search.page", filter.Page),
		attribute.Int("search.size", filter.PageSize),
		attribute.String("search.sort_field", filter.SortField),
		attribute.Bool("search.has_clauses", filter.HasClauses()),
	)
	if filter.SourceIP != nil {
		span.SetAttributes(attribute.String("search.source_ip_kind", filter.SourceIP.Kind.String()))
	}

	body := opensearch.BuildSearchBody(filter, opensearch.QueryOptions{
		TiebreakField: s.options.TiebreakField,
	})

	result, err := s.executor.Search(ctx, s.options.Index, body)
	if err != nil {
		s.logger.Printf("Email search failed: %v", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "search_failed")
		return nil, newQueryError("search", err)
	}

	resp := &types.SearchResponse{
		Results:    s.projector.ProjectMany(result.Hits),
		Total:      result.Total,
		Page:       filter.Page,
		Size:       filter.PageSize,
		TotalPages: pagination.TotalPages(result.Total, filter.PageSize),
	}

	span.SetAttributes(
		attribute.Int("search.results.total_hits", resp.Total),
		attribute.Int("search.results.returned", len(resp.Results)),
	)

	return resp, nil
}

// DashboardStats aggregates protocol, correlation and traffic counts over
// window; a nil window or missing side uses the configured trailing window.
func (s *Service) DashboardStats(ctx context.Context, window *types.DateRange) (*types.StatsResponse, error) {
	ctx, span := searchTracer.Start(ctx, "search.dashboard_stats")
	defer span.End()

	body := opensearch.BuildDashboardAggregations(window, opensearch.AggregationOptions{
		WindowYears:     s.options.WindowYears,
		ProtocolBuckets: s.options.ProtocolBuckets,
	})

	result, err := s.executor.Search(ctx, s.options.Index, body)
	if err != nil {
		s.logger.Printf("Dashboard stats query failed: %v", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "stats_failed")
		return nil, newQueryError("stats", err)
	}

	buckets, err := opensearch.ParseDashboardAggregations(result.Aggregations)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stats_parse_failed")
		return nil, newQueryError("stats", err)
	}

	span.SetAttributes(attribute.Int("stats.traffic_buckets", len(buckets.Traffic)))

	return &types.StatsResponse{
		Protocols: buckets.Protocols,
		CGNAT:     buckets.CGNAT,
		Radius:    buckets.Radius,
		Traffic:   buckets.Traffic,
	}, nil
}

// GetEmail fetches and projects a single document
func (s *Service) GetEmail(ctx context.Context, id string) (*types.EmailDetail, error) {
	ctx, span := searchTracer.Start(ctx, "search.get_email")
	defer span.End()
	span.SetAttributes(attribute.String("search.document.id", id))

	doc, err := s.executor.GetDocument(ctx, s.options.Index, id)
	if errors.Is(err, opensearch.ErrDocumentNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logger.Printf("Get email %s failed: %v", id, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "get_failed")
		return nil, newQueryError("get", err)
	}

	detail := s.projector.ProjectDetail(doc)
	return &detail, nil
}
