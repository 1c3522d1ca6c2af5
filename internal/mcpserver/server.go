// Package mcpserver exposes the email search engine as MCP tools.
package mcpserver

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/ca-srg/mailscope/internal/metrics"
	"github.com/ca-srg/mailscope/internal/types"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	defaultServerName    = "mailscope-mcp-server"
	defaultServerVersion = "1.0.0"
)

// SearchService is the query engine the tools call into
type SearchService interface {
	Search(ctx context.Context, filter types.FilterDescriptor) (*types.SearchResponse, error)
	DashboardStats(ctx context.Context, window *types.DateRange) (*types.StatsResponse, error)
	GetEmail(ctx context.Context, id string) (*types.EmailDetail, error)
}

// Options configures the MCP server
type Options struct {
	Name    string
	Version string
	Usage   *metrics.Recorder
	Logger  *log.Logger
}

// Server owns the SDK server and its tool handlers
type Server struct {
	sdkServer *mcp.Server
	service   SearchService
	usage     *metrics.Recorder
	logger    *log.Logger
}

// NewServer creates the SDK server and registers the email tools
func NewServer(service SearchService, opts Options) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("mcpserver: search service is required")
	}
	if opts.Name == "" {
		opts.Name = defaultServerName
	}
	if opts.Version == "" {
		opts.Version = defaultServerVersion
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.Writer(), "[mcp] ", log.LstdFlags)
	}

	impl := &mcp.Implementation{
		Name:    opts.Name,
		Version: opts.Version,
	}

	s := &Server{
		sdkServer: mcp.NewServer(impl, nil),
		service:   service,
		usage:     opts.Usage,
		logger:    opts.Logger,
	}
	s.registerTools()

	s.logger.Printf("MCP server initialized with implementation: %+v", impl)
	return s, nil
}

// SDKServer returns the underlying SDK server
func (s *Server) SDKServer() *mcp.Server {
	return s.sdkServer
}

// Handler serves both the streamable HTTP and the legacy SSE transports
func (s *Server) Handler() http.Handler {
	return NewDualTransportHandler(func(*http.Request) *mcp.Server { return s.sdkServer })
}

func (s *Server) registerTools() {
	for _, tool := range s.tools() {
		s.sdkServer.AddTool(tool.definition, s.wrap(tool.definition.Name, tool.handler))
		s.logger.Printf("Tool %s registered successfully", tool.definition.Name)
	}
}
