package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ca-srg/mailscope/internal/filter"
	"github.com/ca-srg/mailscope/internal/metrics"
	"github.com/ca-srg/mailscope/internal/search"
	"github.com/ca-srg/mailscope/internal/types"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	ToolEmailSearch    = "email_search"
	ToolDashboardStats = "email_dashboard_stats"
	ToolEmailGet       = "email_get"
)

var toolTracer = otel.Tracer("mailscope/mcpserver")

// errInvalidArguments marks tool input that cannot be used at all
var errInvalidArguments = errors.New("invalid arguments")

type toolHandler func(ctx context.Context, args map[string]string) (interface{}, error)

type toolSpec struct {
	definition *mcp.Tool
	handler    toolHandler
}

func stringProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func (s *Server) tools() []toolSpec {
	return []toolSpec{
		{
			definition: &mcp.Tool{
				Name: ToolEmailSearch,
				Description: "Search captured email metadata. All filters are optional and combined with AND. " +
					"Returns one page of results with highlight fragments and CGNAT/RADIUS correlation flags.",
				InputSchema: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						filter.ParamEmail:     stringProp("Case-insensitive substring matched against from/to/cc/bcc"),
						filter.ParamDomain:    stringProp("Mail domain any from/to/cc/bcc address must end with, e.g. example.com"),
						filter.ParamStartDate: stringProp("Inclusive lower bound (RFC3339 or YYYY-MM-DD, UTC)"),
						filter.ParamEndDate:   stringProp("Inclusive upper bound (RFC3339 or YYYY-MM-DD, UTC)"),
						filter.ParamProtocol:  stringProp("Exact protocol, e.g. SMTP, IMAP, POP3"),
						filter.ParamSourceIP:  stringProp("Source IP: exact address, CIDR (10.0.0.0/24) or wildcard (10.0.0.*)"),
						filter.ParamMSISDN:    stringProp("Subscriber MSISDN from RADIUS correlation"),
						filter.ParamPage:      {Types: []string{"integer", "string"}, Description: "Page number, starting at 1"},
						filter.ParamSize:      {Types: []string{"integer", "string"}, Description: "Page size, 1-100 (default 10)"},
						filter.ParamSortField: stringProp("timestamp (default), protocol, sourceIp, destinationIp, from, messageId"),
						filter.ParamSortOrder: {Type: "string", Enum: []any{"asc", "desc"}, Description: "Sort direction (default desc)"},
					},
				},
			},
			handler: s.handleEmailSearch,
		},
		{
			definition: &mcp.Tool{
				Name:        ToolDashboardStats,
				Description: "Protocol distribution, CGNAT/RADIUS match counts and daily traffic volume over a time window.",
				InputSchema: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						filter.ParamStartDate: stringProp("Window start; defaults to the configured trailing window"),
						filter.ParamEndDate:   stringProp("Window end; defaults to now"),
					},
				},
			},
			handler: s.handleDashboardStats,
		},
		{
			definition: &mcp.Tool{
				Name:        ToolEmailGet,
				Description: "Fetch the full record of one captured email by document id.",
				InputSchema: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"id": stringProp("Document id as returned by email_search"),
					},
					Required: []string{"id"},
				},
			},
			handler: s.handleEmailGet,
		},
	}
}

func (s *Server) handleEmailSearch(ctx context.Context, args map[string]string) (interface{}, error) {
	return s.service.Search(ctx, filter.Normalize(args))
}

func (s *Server) handleDashboardStats(ctx context.Context, args map[string]string) (interface{}, error) {
	window := &types.DateRange{
		From: filter.ParseDate(args[filter.ParamStartDate]),
		To:   filter.ParseDate(args[filter.ParamEndDate]),
	}
	if window.IsEmpty() {
		window = nil
	}
	return s.service.DashboardStats(ctx, window)
}

func (s *Server) handleEmailGet(ctx context.Context, args map[string]string) (interface{}, error) {
	id := strings.TrimSpace(args["id"])
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", errInvalidArguments)
	}
	return s.service.GetEmail(ctx, id)
}

// wrap adapts a toolHandler to the SDK: it decodes arguments, records usage,
// traces the call and turns failures into error results.
func (s *Server) wrap(name string, h toolHandler) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		ctx, span := toolTracer.Start(ctx, "mcp.tool."+name)
		defer span.End()
		span.SetAttributes(attribute.String("mcp.tool.name", name))

		s.usage.Record(ctx, metrics.EndpointMCP)

		var raw json.RawMessage
		if req != nil && req.Params != nil {
			raw = req.Params.Arguments
		}

		var value interface{}
		args, err := decodeArguments(raw)
		if err == nil {
			value, err = h(ctx, args)
		}

		errType := errorType(err)
		recordToolMetrics(ctx, name, time.Since(start), errType)

		if err != nil {
			if errType != "not_found" && errType != "invalid_arguments" {
				s.logger.Printf("Tool %s failed: %v", name, err)
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, errType)
			return errorResult(err), nil
		}

		return jsonResult(value)
	}
}

// decodeArguments flattens the JSON argument object into the string map the
// filter normalizer consumes. Numbers and booleans are rendered as text.
func decodeArguments(raw json.RawMessage) (map[string]string, error) {
	args := make(map[string]string)
	if len(raw) == 0 || string(raw) == "null" {
		return args, nil
	}

	var params map[string]interface{}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidArguments, err)
	}

	for key, value := range params {
		switch v := value.(type) {
		case nil:
		case string:
			args[key] = v
		case float64:
			args[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			args[key] = strconv.FormatBool(v)
		default:
			return nil, fmt.Errorf("%w: %s must be a string or number", errInvalidArguments, key)
		}
	}
	return args, nil
}

func errorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, errInvalidArguments):
		return "invalid_arguments"
	case errors.Is(err, search.ErrNotFound):
		return "not_found"
	case errors.Is(err, search.ErrSearchFailed):
		return "search_failed"
	default:
		return "internal"
	}
}

func errorResult(err error) *mcp.CallToolResult {
	var message string
	switch {
	case errors.Is(err, errInvalidArguments):
		message = err.Error()
	case errors.Is(err, search.ErrNotFound):
		message = "Not found"
	default:
		message = "Search failed"
		if detail := search.DetailOf(err); detail != "" {
			message += ": " + detail
		}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
		IsError: true,
	}
}

func jsonResult(value interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: string(data)}},
		StructuredContent: value,
	}, nil
}
