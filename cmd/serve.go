package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ca-srg/mailscope/internal/auth"
	"github.com/ca-srg/mailscope/internal/logging"
	"github.com/ca-srg/mailscope/internal/mcpserver"
	"github.com/ca-srg/mailscope/internal/metrics"
	"github.com/ca-srg/mailscope/internal/observability"
	"github.com/ca-srg/mailscope/internal/server"
)

var (
	serveHost    string
	servePort    int
	serveNoMCP   bool
	serveNoCheck bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API (and MCP tools) server",
	Long: `
Start the mailscope API server. Routes:

  GET /api/search            search captured emails
  GET /api/dashboard/stats   protocol / correlation / traffic aggregations
  GET /api/emails/{id}       full record of one email
  GET /api/me                the verified caller
  GET /healthz               OpenSearch cluster health (no auth)
  /mcp                       MCP tools (email_search, email_dashboard_stats, email_get)

Configuration is loaded from environment variables (see README for details).

Examples:
  mailscope serve                       # Listen on SERVER_HOST:SERVER_PORT
  mailscope serve --host 0.0.0.0 --port 9000
  mailscope serve --no-mcp              # API only
`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Server host address (overrides SERVER_HOST)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Server port (overrides SERVER_PORT)")
	serveCmd.Flags().BoolVar(&serveNoMCP, "no-mcp", false, "Do not mount the MCP endpoint")
	serveCmd.Flags().BoolVar(&serveNoCheck, "skip-health-check", false, "Start even if OpenSearch is unreachable")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp("server", os.Stdout)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	cfg := a.cfg
	if cmd.Flags().Changed("host") {
		cfg.ServerHost = serveHost
	}
	if cmd.Flags().Changed("port") {
		if servePort < 1 || servePort > 65535 {
			return fmt.Errorf("--port must be between 1 and 65535")
		}
		cfg.ServerPort = servePort
	}
	if serveNoMCP {
		cfg.MCPEnabled = false
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Init(ctx, cfg)
	if err != nil {
		a.logger.Printf("Warning: OpenTelemetry disabled: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			a.logger.Printf("Warning: telemetry shutdown: %v", err)
		}
	}()

	if a.usage != nil {
		reg, err := metrics.RegisterUsageGauge(a.usage)
		if err != nil {
			a.logger.Printf("Warning: failed to register usage gauge: %v", err)
		} else {
			defer func() { _ = reg.Unregister() }()
		}
	}

	if !serveNoCheck {
		healthCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		status, err := a.client.HealthCheck(healthCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("OpenSearch health check failed: %w", err)
		}
		a.logger.Printf("OpenSearch cluster status: %s", status)
	}

	verifier, err := auth.NewVerifierFromConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create token verifier: %w", err)
	}
	if verifier == nil {
		a.logger.Printf("Warning: AUTH_MODE=none, every caller is treated as %s", auth.Anonymous.Role)
	}

	authMiddleware, err := auth.NewMiddleware(auth.MiddlewareConfig{
		Verifier:       verifier,
		AllowedIPs:     cfg.AuthAllowedIPs,
		TrustedProxies: cfg.AuthTrustedProxies,
		CookieName:     cfg.AuthCookieName,
		Logger:         logging.New("auth"),
	})
	if err != nil {
		return fmt.Errorf("failed to create auth middleware: %w", err)
	}

	deps := server.Deps{
		Service:     a.service,
		Health:      a.client,
		Auth:        authMiddleware,
		Usage:       a.usage,
		HTTPMetrics: metrics.NewHTTPMetrics(a.logger),
		Logger:      a.logger,
	}

	if cfg.MCPEnabled {
		mcpServer, err := mcpserver.NewServer(a.service, mcpserver.Options{
			Usage:  a.usage,
			Logger: logging.New("mcp"),
		})
		if err != nil {
			return fmt.Errorf("failed to create MCP server: %w", err)
		}
		deps.MCP = mcpServer.Handler()
	}

	srv, err := server.NewServer(server.NewConfigFromTypes(cfg), deps)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Printf("Shutdown requested")
		return nil
	})

	return g.Wait()
}
