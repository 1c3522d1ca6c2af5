package search

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ca-srg/mailscope/internal/filter"
	"github.com/ca-srg/mailscope/internal/opensearch"
	"github.com/ca-srg/mailscope/internal/types"
)

type fakeExecutor struct {
	result *opensearch.SearchResult
	doc    *opensearch.Document
	err    error

	calls     int
	lastIndex string
	lastBody  map[string]interface{}
	lastID    string
}

func (f *fakeExecutor) Search(ctx context.Context, index string, body map[string]interface{}) (*opensearch.SearchResult, error) {
	f.calls++
	f.lastIndex = index
	f.lastBody = body
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeExecutor) GetDocument(ctx context.Context, index, id string) (*opensearch.Document, error) {
	f.calls++
	f.lastIndex = index
	f.lastID = id
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func newTestService(t *testing.T, exec *fakeExecutor) *Service {
	t.Helper()
	svc, err := NewService(exec, Options{Index: "email-data", TiebreakField: "message.message_id"})
	require.NoError(t, err)
	return svc
}

func TestNewServiceRequiresExecutor(t *testing.T) {
	_, err := NewService(nil, Options{})
	require.Error(t, err)
}

func TestServiceSearch(t *testing.T) {
	exec := &fakeExecutor{result: &opensearch.SearchResult{
		Total: 25,
		Hits: []opensearch.Hit{
			{ID: "1", Source: json.RawMessage(`{"message": {"subject": "first"}}`)},
			{ID: "2", Source: json.RawMessage(`{}`)},
		},
	}}
	svc := newTestService(t, exec)

	f := filter.Normalize(map[string]string{"page": "3", "size": "10", "protocol": "SMTP"})
	resp, err := svc.Search(context.Background(), f)
	require.NoError(t, err)

	assert.Equal(t, 1, exec.calls)
	assert.Equal(t, "email-data", exec.lastIndex)
	assert.Equal(t, 20, exec.lastBody["from"])
	assert.Len(t, exec.lastBody["sort"], 2)

	assert.Equal(t, 25, resp.Total)
	assert.Equal(t, 3, resp.Page)
	assert.Equal(t, 10, resp.Size)
	assert.Equal(t, 3, resp.TotalPages)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "first", resp.Results[0].Subject)
	assert.Equal(t, "(No Subject)", resp.Results[1].Subject)
}

func TestServiceSearchNoResults(t *testing.T) {
	exec := &fakeExecutor{result: &opensearch.SearchResult{}}
	svc := newTestService(t, exec)

	resp, err := svc.Search(context.Background(), filter.Normalize(nil))
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Total)
	assert.Equal(t, 0, resp.TotalPages)
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)

	query := exec.lastBody["query"].(map[string]interface{})
	assert.Contains(t, query, "match_all")
}

func TestServiceSearchFailure(t *testing.T) {
	exec := &fakeExecutor{err: opensearch.ClassifyHTTPError(400, "failed to parse date field [nope]")}
	svc := newTestService(t, exec)

	resp, err := svc.Search(context.Background(), filter.Normalize(nil))
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, errors.Is(err, ErrSearchFailed))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "failed to parse date field [nope]", DetailOf(err))
	assert.Equal(t, 1, exec.calls, "failures are not retried")

	var searchErr *opensearch.SearchError
	assert.True(t, errors.As(err, &searchErr))
}

func TestServiceDashboardStats(t *testing.T) {
	exec := &fakeExecutor{result: &opensearch.SearchResult{
		Aggregations: json.RawMessage(`{
			"protocols": {"buckets": [{"key": "SMTP", "doc_count": 5}]},
			"cgnat": {"buckets": [{"key": 1, "key_as_string": "true", "doc_count": 2}]},
			"traffic_over_time": {"buckets": [{"key": 1704067200000, "doc_count": 5}]}
		}`),
	}}
	svc := newTestService(t, exec)

	stats, err := svc.DashboardStats(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, []types.Bucket{{Key: "SMTP", Count: 5}}, stats.Protocols)
	assert.Equal(t, []types.Bucket{{Key: "true", Count: 2}}, stats.CGNAT)
	assert.Equal(t, []types.Bucket{}, stats.Radius)
	assert.Equal(t, []types.TrafficBucket{{BucketStart: "2024-01-01T00:00:00Z", Count: 5}}, stats.Traffic)
	assert.Equal(t, 0, exec.lastBody["size"])
}

func TestServiceDashboardStatsFailure(t *testing.T) {
	svc := newTestService(t, &fakeExecutor{err: errors.New("connection reset")})

	_, err := svc.DashboardStats(context.Background(), nil)
	require.ErrorIs(t, err, ErrSearchFailed)
	assert.Equal(t, "connection reset", DetailOf(err))
}

func TestServiceGetEmail(t *testing.T) {
	exec := &fakeExecutor{doc: &opensearch.Document{ID: "abc", Source: json.RawMessage(`{"message": {"subject": "hi"}}`)}}
	svc := newTestService(t, exec)

	detail, err := svc.GetEmail(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", exec.lastID)
	assert.Equal(t, "hi", detail.Subject)
}

func TestServiceGetEmailNotFound(t *testing.T) {
	svc := newTestService(t, &fakeExecutor{err: opensearch.ErrDocumentNotFound})

	_, err := svc.GetEmail(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.False(t, errors.Is(err, ErrSearchFailed))
}

func TestServiceGetEmailFailure(t *testing.T) {
	svc := newTestService(t, &fakeExecutor{err: opensearch.ClassifyHTTPError(503, "")})

	_, err := svc.GetEmail(context.Background(), "abc")
	require.ErrorIs(t, err, ErrSearchFailed)
	assert.False(t, errors.Is(err, ErrNotFound))
}
