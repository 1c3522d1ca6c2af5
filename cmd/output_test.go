package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ca-srg/mailscope/internal/metrics"
	"github.com/ca-srg/mailscope/internal/types"
)

func TestValidateOutputFormat(t *testing.T) {
	for _, format := range []string{"text", "json", "yaml", "JSON"} {
		assert.NoError(t, validateOutputFormat(format), format)
	}
	err := validateOutputFormat("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}

func TestWriteOutputJSONUsesContractKeys(t *testing.T) {
	resp := &types.SearchResponse{
		Results: []types.EmailSearchResult{{ID: "a1", SourceIP: "10.0.0.5"}},
		Total:   1, Page: 1, Size: 10, TotalPages: 1,
	}

	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, outputJSON, resp, nil))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.EqualValues(t, 1, decoded["totalPages"])
	results := decoded["results"].([]interface{})
	require.Len(t, results, 1)
	assert.Equal(t, "10.0.0.5", results[0].(map[string]interface{})["sourceIp"])
}

func TestWriteOutputYAMLUsesContractKeys(t *testing.T) {
	stats := &types.StatsResponse{
		Protocols: []types.Bucket{{Key: "SMTP", Count: 3}},
		Traffic:   []types.TrafficBucket{{BucketStart: "2024-01-01T00:00:00Z", Count: 3}},
	}

	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, outputYAML, stats, nil))

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "protocols")
	assert.Contains(t, decoded, "traffic")
	assert.Contains(t, buf.String(), "bucketStart")
}

func TestWriteOutputTextCallsRenderer(t *testing.T) {
	var buf bytes.Buffer
	called := false
	err := writeOutput(&buf, outputText, nil, func(w io.Writer) error {
		called = true
		_, err := io.WriteString(w, "rendered")
		return err
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "rendered", buf.String())
}

func TestPrintSearchResults(t *testing.T) {
	score := 1.5
	resp := &types.SearchResponse{
		Results: []types.EmailSearchResult{
			{
				ID:             "doc-1",
				Timestamp:      "2024-01-15T10:00:00Z",
				Protocol:       "SMTP",
				From:           "alice@example.com",
				To:             []string{"bob@example.com", "carol@example.com"},
				SourceIP:       "10.0.0.5",
				Subject:        "Quarterly report",
				Correlation:    types.Correlation{CGNATMatched: true},
				RelevanceScore: &score,
			},
		},
		Total:      100,
		Page:       3,
		Size:       10,
		TotalPages: 10,
	}

	var buf bytes.Buffer
	require.NoError(t, printSearchResults(&buf, resp))
	out := buf.String()

	assert.Contains(t, out, "Found 100 emails (page 3 of 10)")
	assert.Contains(t, out, "bob@example.com,carol@example.com")
	assert.Contains(t, out, "1.500")
	assert.Contains(t, out, "doc-1")
	assert.Contains(t, out, "Pages: 1 2 [3] 4 ... 10")
}

func TestPrintSearchResultsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printSearchResults(&buf, &types.SearchResponse{Page: 1, Size: 10}))
	assert.Equal(t, "No emails matched.\n", buf.String())
}

func TestTruncateAndFormatScore(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "-", formatScore(nil))
	v := 0.25
	assert.Equal(t, "0.250", formatScore(&v))
}

func TestPrintStats(t *testing.T) {
	stats := &types.StatsResponse{
		Protocols: []types.Bucket{{Key: "SMTP", Count: 7}, {Key: "IMAP", Count: 2}},
		CGNAT:     []types.Bucket{{Key: "true", Count: 4}},
		Traffic: []types.TrafficBucket{
			{BucketStart: "2024-01-01T00:00:00Z", Count: 5},
			{BucketStart: "2024-01-02T00:00:00Z", Count: 0},
			{BucketStart: "2024-01-03T00:00:00Z", Count: 4},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, printStats(&buf, stats))
	out := buf.String()

	assert.Contains(t, out, "=== Protocols ===")
	assert.Contains(t, out, "SMTP")
	assert.Contains(t, out, "(no data)")
	assert.Regexp(t, `Emails\s+9`, out)
	assert.Regexp(t, `Days with traffic\s+2`, out)
	assert.Contains(t, out, "2024-01-01T00:00:00Z .. 2024-01-03T00:00:00Z")
}

func TestPrintEmailDetail(t *testing.T) {
	detail := &types.EmailDetail{
		ID:       "doc-9",
		From:     "alice@example.com",
		To:       []string{"bob@example.com"},
		Subject:  "Hello",
		Protocol: "IMAP",
		Source:   types.Endpoint{IP: "100.64.1.2", Port: "5555", IsPrivate: true, PublicIP: "203.0.113.9"},
		Attachments: []types.Attachment{
			{FileName: "a.pdf", MimeType: "application/pdf", FileSize: 42, FileHash: "abc"},
		},
		Correlation: types.CorrelationDetail{
			Correlation: types.Correlation{RadiusSessionFound: true},
			MSISDN:      "819012345678",
		},
		BodyText: "body text",
	}

	var buf bytes.Buffer
	require.NoError(t, printEmailDetail(&buf, detail))
	out := buf.String()

	assert.Contains(t, out, "100.64.1.2:5555 (private) public=203.0.113.9")
	assert.Contains(t, out, "Destination: -")
	assert.Contains(t, out, "MSISDN:      819012345678")
	assert.Contains(t, out, "a.pdf (application/pdf, 42 bytes) sha256:abc")
	assert.NotContains(t, out, "Cc:")
	assert.Contains(t, out, "body text")
}

func TestPrintUsage(t *testing.T) {
	report := UsageReport{
		Totals: map[metrics.Endpoint]int64{metrics.EndpointSearch: 12},
		Daily: []metrics.DailyCount{
			{Endpoint: metrics.EndpointSearch, Date: "2024-01-02", Count: 5},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, printUsage(&buf, report))
	out := buf.String()

	assert.Regexp(t, `search\s+12`, out)
	assert.Regexp(t, `mcp\s+0`, out)
	assert.Regexp(t, `2024-01-02\s+search\s+5`, out)
}

func TestPrintUsageEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printUsage(&buf, UsageReport{}))
	assert.Contains(t, buf.String(), "(no usage recorded)")
}
