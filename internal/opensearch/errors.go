package opensearch

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	opensearch "github.com/opensearch-project/opensearch-go/v4"

	"github.com/ca-srg/mailscope/internal/types"
)

// ErrDocumentNotFound is returned when a requested document does not exist
var ErrDocumentNotFound = errors.New("document not found")

type SearchError struct {
	Type       types.ErrorType `json:"type"`
	Message    string          `json:"message"`
	StatusCode int             `json:"status_code,omitempty"`
	Retryable  bool            `json:"retryable"`
	RetryAfter time.Duration   `json:"retry_after,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	Suggestion string          `json:"suggestion,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

func (e *SearchError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type, e.Message)
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	return msg
}

// IsRetryable reports whether a caller could reasonably try again.
// Nothing in this package retries on its own.
func (e *SearchError) IsRetryable() bool {
	return e.Retryable
}

// Detail returns the store-supplied reason, or the message when there is none
func (e *SearchError) Detail() string {
	if e.Reason != "" {
		return e.Reason
	}
	return e.Message
}

func NewSearchError(errType types.ErrorType, message string) *SearchError {
	return &SearchError{
		Type:      errType,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now(),
	}
}

func ClassifyHTTPError(statusCode int, body string) *SearchError {
	switch statusCode {
	case http.StatusBadRequest:
		return &SearchError{
			Type:       types.ErrorTypeOpenSearchQuery,
			Message:    "OpenSearch rejected the query",
			StatusCode: statusCode,
			Retryable:  false,
			Reason:     body,
			Suggestion: "Check the generated query against the index mapping.",
			Timestamp:  time.Now(),
		}
	case http.StatusUnauthorized:
		return &SearchError{
			Type:       types.ErrorTypeAuthentication,
			Message:    "authentication to OpenSearch failed",
			StatusCode: statusCode,
			Retryable:  false,
			Suggestion: "Check OPENSEARCH_USERNAME/OPENSEARCH_PASSWORD or the AWS credentials.",
			Timestamp:  time.Now(),
		}
	case http.StatusForbidden:
		return &SearchError{
			Type:       types.ErrorTypeAuthentication,
			Message:    "access to OpenSearch was denied",
			StatusCode: statusCode,
			Retryable:  false,
			Suggestion: "Check that the role has read access to the index.",
			Timestamp:  time.Now(),
		}
	case http.StatusNotFound:
		return &SearchError{
			Type:       types.ErrorTypeOpenSearchIndex,
			Message:    "index or endpoint not found",
			StatusCode: statusCode,
			Retryable:  false,
			Reason:     body,
			Suggestion: "Check OPENSEARCH_ENDPOINT and OPENSEARCH_INDEX.",
			Timestamp:  time.Now(),
		}
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return &SearchError{
			Type:       types.ErrorTypeTimeout,
			Message:    "OpenSearch request timed out",
			StatusCode: statusCode,
			Retryable:  true,
			RetryAfter: 5 * time.Second,
			Timestamp:  time.Now(),
		}
	case http.StatusTooManyRequests:
		return &SearchError{
			Type:       types.ErrorTypeRateLimit,
			Message:    "OpenSearch rate limit reached",
			StatusCode: statusCode,
			Retryable:  true,
			RetryAfter: 10 * time.Second,
			Timestamp:  time.Now(),
		}
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return &SearchError{
			Type:       types.ErrorTypeOpenSearchConnection,
			Message:    "OpenSearch server error",
			StatusCode: statusCode,
			Retryable:  true,
			RetryAfter: 10 * time.Second,
			Reason:     body,
			Suggestion: "Check the cluster health.",
			Timestamp:  time.Now(),
		}
	default:
		return &SearchError{
			Type:       types.ErrorTypeUnknown,
			Message:    "unexpected HTTP error from OpenSearch",
			StatusCode: statusCode,
			Retryable:  statusCode >= 500,
			Reason:     body,
			Timestamp:  time.Now(),
		}
	}
}

func ClassifyConnectionError(err error) *SearchError {
	errMsg := err.Error()

	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline exceeded") {
		return &SearchError{
			Type:       types.ErrorTypeNetworkTimeout,
			Message:    "connection to OpenSearch timed out",
			Retryable:  true,
			RetryAfter: 5 * time.Second,
			Suggestion: "Check network reachability of OPENSEARCH_ENDPOINT.",
			Timestamp:  time.Now(),
		}
	}

	if strings.Contains(errMsg, "connection refused") {
		return &SearchError{
			Type:       types.ErrorTypeOpenSearchConnection,
			Message:    "connection to OpenSearch was refused",
			Retryable:  false,
			Suggestion: "Check the OPENSEARCH_ENDPOINT host and port.",
			Timestamp:  time.Now(),
		}
	}

	if strings.Contains(errMsg, "no such host") {
		return &SearchError{
			Type:       types.ErrorTypeOpenSearchConnection,
			Message:    "OpenSearch host not found",
			Retryable:  false,
			Suggestion: "Check the OPENSEARCH_ENDPOINT hostname.",
			Timestamp:  time.Now(),
		}
	}

	return &SearchError{
		Type:       types.ErrorTypeUnknown,
		Message:    "OpenSearch request failed",
		Retryable:  true,
		RetryAfter: 10 * time.Second,
		Reason:     errMsg,
		Timestamp:  time.Now(),
	}
}

// classifyError turns an opensearchapi failure into a SearchError. When the
// store answered, the HTTP status and the error.reason from the body drive
// the classification; otherwise it is a connection-level failure.
func classifyError(raw *opensearch.Response, err error) *SearchError {
	var searchErr *SearchError
	if errors.As(err, &searchErr) {
		return searchErr
	}

	status := 0
	if raw != nil {
		status = raw.StatusCode
	}
	if status == 0 {
		var structErr *opensearch.StructError
		if errors.As(err, &structErr) {
			status = structErr.Status
		}
	}
	if status == 0 {
		return ClassifyConnectionError(err)
	}

	return ClassifyHTTPError(status, errorReason(err))
}

// errorReason extracts the most specific reason the store gave
func errorReason(err error) string {
	var structErr *opensearch.StructError
	if errors.As(err, &structErr) {
		if len(structErr.Err.RootCause) > 0 && structErr.Err.RootCause[0].Reason != "" {
			return structErr.Err.RootCause[0].Reason
		}
		if structErr.Err.Reason != "" {
			return structErr.Err.Reason
		}
	}

	var stringErr *opensearch.StringError
	if errors.As(err, &stringErr) {
		return stringErr.Err
	}

	return err.Error()
}
