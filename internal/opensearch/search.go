package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	opensearch "github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ca-srg/mailscope/internal/types"
)

// Hit is one raw search hit
type Hit struct {
	ID        string
	Score     *float64
	Source    json.RawMessage
	Highlight map[string][]string
}

// SearchResult is the executor's view of a _search response
type SearchResult struct {
	Total        int
	Hits         []Hit
	Aggregations json.RawMessage
	Took         int
}

// Document is a single document fetched by id
type Document struct {
	ID     string
	Index  string
	Source json.RawMessage
}

// Search sends a prepared body to the _search endpoint of index. The call
// is made exactly once; failures come back as *SearchError.
func (c *Client) Search(ctx context.Context, index string, body map[string]interface{}) (*SearchResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "opensearch.search",
		trace.WithAttributes(attribute.String("opensearch.index", index)))
	defer span.End()

	if index == "" {
		index = c.config.Index
	}

	if err := c.WaitForRateLimit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate limit wait failed")
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	bodyJSON, err := json.Marshal(body)
	if err != nil {
		return nil, NewSearchError(types.ErrorTypeValidation, fmt.Sprintf("failed to marshal search body: %v", err))
	}

	startTime := time.Now()
	resp, err := c.client.Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{index},
		Body:    bytes.NewReader(bodyJSON),
	})
	duration := time.Since(startTime)
	c.RecordRequest(ctx, "search", duration, err == nil)

	if err != nil {
		var raw *opensearch.Response
		if resp != nil {
			raw = resp.Inspect().Response
		}
		searchErr := classifyError(raw, err)
		c.logger.Printf("Search on %s failed after %v: %v", index, duration, searchErr)
		span.RecordError(searchErr)
		span.SetStatus(codes.Error, string(searchErr.Type))
		return nil, searchErr
	}
	if resp == nil {
		return nil, NewSearchError(types.ErrorTypeResponse, "received nil response from OpenSearch")
	}

	result := &SearchResult{
		Total:        resp.Hits.Total.Value,
		Hits:         make([]Hit, 0, len(resp.Hits.Hits)),
		Aggregations: resp.Aggregations,
		Took:         resp.Took,
	}

	// Field-sorted searches return a null _score, which decodes as zero
	scored := resp.Hits.MaxScore != 0
	for _, hit := range resp.Hits.Hits {
		h := Hit{
			ID:        hit.ID,
			Source:    hit.Source,
			Highlight: hit.Highlight,
		}
		if scored {
			score := float64(hit.Score)
			h.Score = &score
		}
		result.Hits = append(result.Hits, h)
	}

	span.SetAttributes(
		attribute.Int("opensearch.total_hits", result.Total),
		attribute.Int("opensearch.took_ms", result.Took),
	)

	return result, nil
}

// GetDocument fetches one document by id. A missing document yields
// ErrDocumentNotFound rather than a *SearchError.
func (c *Client) GetDocument(ctx context.Context, index, id string) (*Document, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "opensearch.get",
		trace.WithAttributes(
			attribute.String("opensearch.index", index),
			attribute.String("opensearch.document_id", id),
		))
	defer span.End()

	if index == "" {
		index = c.config.Index
	}
	if id == "" {
		return nil, ErrDocumentNotFound
	}

	if err := c.WaitForRateLimit(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	startTime := time.Now()
	resp, err := c.client.Document.Get(ctx, opensearchapi.DocumentGetReq{
		Index:      index,
		DocumentID: id,
	})
	c.RecordRequest(ctx, "get", time.Since(startTime), err == nil)

	var raw *opensearch.Response
	if resp != nil {
		raw = resp.Inspect().Response
	}

	if raw != nil && raw.StatusCode == http.StatusNotFound && !isIndexNotFound(err) {
		return nil, ErrDocumentNotFound
	}

	if err != nil {
		searchErr := classifyError(raw, err)
		c.logger.Printf("Get %s/%s failed: %v", index, id, searchErr)
		span.RecordError(searchErr)
		span.SetStatus(codes.Error, string(searchErr.Type))
		return nil, searchErr
	}

	if resp == nil || !resp.Found {
		return nil, ErrDocumentNotFound
	}

	return &Document{
		ID:     resp.ID,
		Index:  resp.Index,
		Source: resp.Source,
	}, nil
}

// isIndexNotFound distinguishes a missing index from a missing document;
// both come back as HTTP 404.
func isIndexNotFound(err error) bool {
	var structErr *opensearch.StructError
	return errors.As(err, &structErr) && structErr.Err.Type == "index_not_found_exception"
}
