package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"
)

// EmailIndexMapping returns the settings and mappings the query layer relies
// on: keyword address fields for wildcard matching, ip-typed endpoints for
// CIDR terms (with a keyword sub-field for wildcard patterns), a date
// timestamp and boolean correlation flags.
func EmailIndexMapping() map[string]interface{} {
	keyword := map[string]interface{}{"type": "keyword"}
	ipWithPattern := map[string]interface{}{
		"type": "ip",
		"fields": map[string]interface{}{
			"keyword": map[string]interface{}{"type": "keyword"},
		},
	}
	endpoint := func() map[string]interface{} {
		return map[string]interface{}{
			"properties": map[string]interface{}{
				"ip":         ipWithPattern,
				"port":       keyword,
				"is_private": map[string]interface{}{"type": "boolean"},
				"public_ip":  map[string]interface{}{"type": "ip"},
			},
		}
	}

	return map[string]interface{}{
		"settings": map[string]interface{}{
			"index": map[string]interface{}{
				"number_of_shards":   1,
				"number_of_replicas": 1,
			},
		},
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"timestamp": map[string]interface{}{"type": "date"},
				"email": map[string]interface{}{
					"properties": map[string]interface{}{
						"from": keyword,
						"to":   keyword,
						"cc":   keyword,
						"bcc":  keyword,
					},
				},
				"message": map[string]interface{}{
					"properties": map[string]interface{}{
						"message_id":   keyword,
						"subject":      map[string]interface{}{"type": "text"},
						"content_type": keyword,
						"body_text":    map[string]interface{}{"type": "text"},
						"body_html":    map[string]interface{}{"type": "text", "index": false},
					},
				},
				"network": map[string]interface{}{
					"properties": map[string]interface{}{
						"protocol":    keyword,
						"source":      endpoint(),
						"destination": endpoint(),
					},
				},
				"attachments": map[string]interface{}{
					"type": "nested",
					"properties": map[string]interface{}{
						"file_name": keyword,
						"mime_type": keyword,
						"file_size": map[string]interface{}{"type": "long"},
						"file_hash": keyword,
					},
				},
				"correlation": map[string]interface{}{
					"properties": map[string]interface{}{
						"cgnat": map[string]interface{}{
							"properties": map[string]interface{}{
								"matched": map[string]interface{}{"type": "boolean"},
							},
						},
						"radius": map[string]interface{}{
							"properties": map[string]interface{}{
								"session_found": map[string]interface{}{"type": "boolean"},
								"msisdn":        keyword,
							},
						},
					},
				},
			},
		},
	}
}

// IndexExists reports whether index exists
func (c *Client) IndexExists(ctx context.Context, index string) (bool, error) {
	if err := c.WaitForRateLimit(ctx); err != nil {
		return false, fmt.Errorf("rate limit error: %w", err)
	}

	resp, err := c.client.Indices.Exists(ctx, opensearchapi.IndicesExistsReq{
		Indices: []string{index},
	})
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if err != nil {
		return false, classifyError(resp, err)
	}

	return resp != nil && resp.StatusCode == http.StatusOK, nil
}

// DeleteIndex removes index
func (c *Client) DeleteIndex(ctx context.Context, index string) error {
	if err := c.WaitForRateLimit(ctx); err != nil {
		return fmt.Errorf("rate limit error: %w", err)
	}

	startTime := time.Now()
	resp, err := c.client.Indices.Delete(ctx, opensearchapi.IndicesDeleteReq{
		Indices: []string{index},
	})
	c.RecordRequest(ctx, "delete_index", time.Since(startTime), err == nil)
	if err != nil {
		if resp != nil {
			return classifyError(resp.Inspect().Response, err)
		}
		return classifyError(nil, err)
	}

	c.logger.Printf("Deleted index %s", index)
	return nil
}

// CreateEmailIndex creates index with EmailIndexMapping
func (c *Client) CreateEmailIndex(ctx context.Context, index string) error {
	if err := c.WaitForRateLimit(ctx); err != nil {
		return fmt.Errorf("rate limit error: %w", err)
	}

	bodyJSON, err := json.Marshal(EmailIndexMapping())
	if err != nil {
		return fmt.Errorf("failed to marshal index settings: %w", err)
	}

	startTime := time.Now()
	resp, err := c.client.Indices.Create(ctx, opensearchapi.IndicesCreateReq{
		Index: index,
		Body:  bytes.NewReader(bodyJSON),
	})
	c.RecordRequest(ctx, "create_index", time.Since(startTime), err == nil)
	if err != nil {
		if resp != nil {
			return classifyError(resp.Inspect().Response, err)
		}
		return classifyError(nil, err)
	}

	c.logger.Printf("Created index %s", index)
	return nil
}
