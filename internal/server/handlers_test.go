package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ca-srg/mailscope/internal/auth"
	"github.com/ca-srg/mailscope/internal/metrics"
	"github.com/ca-srg/mailscope/internal/search"
	"github.com/ca-srg/mailscope/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	lastFilter types.FilterDescriptor
	lastWindow *types.DateRange
	lastID     string

	searchResp *types.SearchResponse
	statsResp  *types.StatsResponse
	detail     *types.EmailDetail
	err        error
}

func (f *fakeService) Search(_ context.Context, filter types.FilterDescriptor) (*types.SearchResponse, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.searchResp, nil
}

func (f *fakeService) DashboardStats(_ context.Context, window *types.DateRange) (*types.StatsResponse, error) {
	f.lastWindow = window
	if f.err != nil {
		return nil, f.err
	}
	return f.statsResp, nil
}

func (f *fakeService) GetEmail(_ context.Context, id string) (*types.EmailDetail, error) {
	f.lastID = id
	if f.err != nil {
		return nil, f.err
	}
	return f.detail, nil
}

type fakeHealth struct {
	status string
	err    error
}

func (f fakeHealth) HealthCheck(context.Context) (string, error) { return f.status, f.err }

func newTestServer(t *testing.T, svc SearchService, mutate func(*Deps)) http.Handler {
	t.Helper()
	deps := Deps{
		Service: svc,
		Logger:  log.New(io.Discard, "", 0),
	}
	if mutate != nil {
		mutate(&deps)
	}
	srv, err := NewServer(nil, deps)
	require.NoError(t, err)
	return srv.Handler()
}

func doRequest(t *testing.T, h http.Handler, target string, setup func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, target, nil)
	if setup != nil {
		setup(r)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestNewServerRequiresService(t *testing.T) {
	_, err := NewServer(nil, Deps{})
	assert.Error(t, err)
}

func TestHandleSearch(t *testing.T) {
	svc := &fakeService{searchResp: &types.SearchResponse{
		Results:    []types.EmailSearchResult{{ID: "a", Subject: "hello", To: []string{}}},
		Total:      1,
		Page:       1,
		Size:       100,
		TotalPages: 1,
	}}
	h := newTestServer(t, svc, nil)

	w := doRequest(t, h, "/api/search?email=Alice@Example.com&page=0&size=500&sourceIp=10.0.0.0/24", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	assert.Equal(t, "alice@example.com", svc.lastFilter.EmailSubstring)
	assert.Equal(t, 1, svc.lastFilter.Page)
	assert.Equal(t, 100, svc.lastFilter.PageSize)
	require.NotNil(t, svc.lastFilter.SourceIP)
	assert.Equal(t, types.IPMatchCIDR, svc.lastFilter.SourceIP.Kind)

	var body types.SearchResponse
	decodeBody(t, w, &body)
	assert.Equal(t, 1, body.Total)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "hello", body.Results[0].Subject)
}

func TestHandleSearchFailure(t *testing.T) {
	svc := &fakeService{err: &search.QueryError{Op: "search", Detail: "index_not_found_exception"}}
	h := newTestServer(t, svc, nil)

	w := doRequest(t, h, "/api/search", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body ErrorResponse
	decodeBody(t, w, &body)
	assert.Equal(t, ErrorResponse{Error: "Search failed", Details: "index_not_found_exception"}, body)
}

func TestHandleSearchUnexpectedError(t *testing.T) {
	h := newTestServer(t, &fakeService{err: errors.New("boom")}, nil)

	w := doRequest(t, h, "/api/search", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body ErrorResponse
	decodeBody(t, w, &body)
	assert.Equal(t, "Search failed", body.Error)
	assert.Empty(t, body.Details)
}

func TestHandleDashboardStats(t *testing.T) {
	svc := &fakeService{statsResp: &types.StatsResponse{
		Protocols: []types.Bucket{{Key: "SMTP", Count: 3}},
		CGNAT:     []types.Bucket{},
		Radius:    []types.Bucket{},
		Traffic:   []types.TrafficBucket{{BucketStart: "2024-01-01T00:00:00Z", Count: 3}},
	}}
	h := newTestServer(t, svc, nil)

	t.Run("default window", func(t *testing.T) {
		w := doRequest(t, h, "/api/dashboard/stats", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, svc.lastWindow)

		var body types.StatsResponse
		decodeBody(t, w, &body)
		assert.Equal(t, []types.Bucket{{Key: "SMTP", Count: 3}}, body.Protocols)
		assert.Len(t, body.Traffic, 1)
	})

	t.Run("explicit window", func(t *testing.T) {
		w := doRequest(t, h, "/api/dashboard/stats?startDate=2024-01-01&endDate=not-a-date", nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, svc.lastWindow)
		require.NotNil(t, svc.lastWindow.From)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *svc.lastWindow.From)
		assert.Nil(t, svc.lastWindow.To)
	})
}

func TestHandleGetEmail(t *testing.T) {
	svc := &fakeService{detail: &types.EmailDetail{ID: "doc-1", Subject: "(No Subject)"}}
	h := newTestServer(t, svc, nil)

	w := doRequest(t, h, "/api/emails/doc-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "doc-1", svc.lastID)

	var body types.EmailDetail
	decodeBody(t, w, &body)
	assert.Equal(t, "doc-1", body.ID)
}

func TestHandleGetEmailNotFound(t *testing.T) {
	h := newTestServer(t, &fakeService{err: search.ErrNotFound}, nil)

	w := doRequest(t, h, "/api/emails/missing", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	var body ErrorResponse
	decodeBody(t, w, &body)
	assert.Equal(t, ErrorResponse{Error: "Not found"}, body)
}

func TestHandleMe(t *testing.T) {
	verifier, err := auth.NewJWTVerifier([]byte("0123456789abcdef0123"), "")
	require.NoError(t, err)
	middleware, err := auth.NewMiddleware(auth.MiddlewareConfig{Verifier: verifier, Logger: log.New(io.Discard, "", 0)})
	require.NoError(t, err)

	h := newTestServer(t, &fakeService{}, func(d *Deps) { d.Auth = middleware })

	w := doRequest(t, h, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := verifier.Issue(auth.Principal{Subject: "alice", Role: auth.RoleAdmin}, time.Hour)
	require.NoError(t, err)
	w = doRequest(t, h, "/api/me", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	require.Equal(t, http.StatusOK, w.Code)

	var body auth.Principal
	decodeBody(t, w, &body)
	assert.Equal(t, auth.Principal{Subject: "alice", Role: auth.RoleAdmin}, body)
}

func TestHandleMeAnonymous(t *testing.T) {
	h := newTestServer(t, &fakeService{}, nil)

	w := doRequest(t, h, "/api/me", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body auth.Principal
	decodeBody(t, w, &body)
	assert.Equal(t, auth.Anonymous, body)
}

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name       string
		health     HealthChecker
		wantStatus int
		wantBody   HealthResponse
	}{
		{"no checker", nil, http.StatusOK, HealthResponse{Status: "ok"}},
		{"green", fakeHealth{status: "green"}, http.StatusOK, HealthResponse{Status: "ok", Cluster: "green"}},
		{"yellow", fakeHealth{status: "yellow"}, http.StatusOK, HealthResponse{Status: "ok", Cluster: "yellow"}},
		{"red", fakeHealth{status: "red"}, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Cluster: "red"}},
		{"unreachable", fakeHealth{err: errors.New("dial tcp")}, http.StatusServiceUnavailable,
			HealthResponse{Status: "unavailable", Error: "document store unreachable"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &fakeService{}, func(d *Deps) { d.Health = tt.health })
			w := doRequest(t, h, "/healthz", nil)
			assert.Equal(t, tt.wantStatus, w.Code)

			var body HealthResponse
			decodeBody(t, w, &body)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestHealthSkipsAuth(t *testing.T) {
	verifier, err := auth.NewJWTVerifier([]byte("0123456789abcdef0123"), "")
	require.NoError(t, err)
	middleware, err := auth.NewMiddleware(auth.MiddlewareConfig{Verifier: verifier, Logger: log.New(io.Discard, "", 0)})
	require.NoError(t, err)

	h := newTestServer(t, &fakeService{}, func(d *Deps) { d.Auth = middleware })

	assert.Equal(t, http.StatusOK, doRequest(t, h, "/healthz", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(t, h, "/api/search", nil).Code)
}

func TestUnknownRoute(t *testing.T) {
	h := newTestServer(t, &fakeService{}, nil)

	w := doRequest(t, h, "/nope", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	var body ErrorResponse
	decodeBody(t, w, &body)
	assert.Equal(t, "Not found", body.Error)
}

func TestUsageRecorded(t *testing.T) {
	store, err := metrics.NewStore(filepath.Join(t.TempDir(), "usage.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	recorder := metrics.NewRecorder(store, log.New(io.Discard, "", 0))

	svc := &fakeService{
		searchResp: &types.SearchResponse{Results: []types.EmailSearchResult{}},
		statsResp:  &types.StatsResponse{},
		err:        nil,
	}
	h := newTestServer(t, svc, func(d *Deps) { d.Usage = recorder })

	doRequest(t, h, "/api/search", nil)
	doRequest(t, h, "/api/search", nil)
	doRequest(t, h, "/api/dashboard/stats", nil)
	doRequest(t, h, "/healthz", nil)

	totals := recorder.Totals(context.Background())
	assert.Equal(t, int64(2), totals[metrics.EndpointSearch])
	assert.Equal(t, int64(1), totals[metrics.EndpointStats])
	assert.Zero(t, totals[metrics.EndpointDocument])
}

func TestMCPMountedBehindAuth(t *testing.T) {
	var gotPrincipal auth.Principal
	mcp := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrincipal, _ = auth.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusAccepted)
	})
	h := newTestServer(t, &fakeService{}, func(d *Deps) { d.MCP = mcp })

	r := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, auth.Anonymous, gotPrincipal)
}
