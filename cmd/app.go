package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"

	appconfig "github.com/ca-srg/mailscope/internal/config"
	"github.com/ca-srg/mailscope/internal/logging"
	"github.com/ca-srg/mailscope/internal/metrics"
	"github.com/ca-srg/mailscope/internal/opensearch"
	"github.com/ca-srg/mailscope/internal/search"
	"github.com/ca-srg/mailscope/internal/types"
)

// app holds the collaborators shared by every command
type app struct {
	cfg     *types.Config
	logger  *log.Logger
	client  *opensearch.Client
	service *search.Service
	usage   *metrics.Recorder
	closers []func() error
}

// newApp loads configuration, sets up logging on console and connects to
// OpenSearch. Usage tracking is opened when enabled in the config.
func newApp(component string, console io.Writer) (*app, error) {
	cfg, err := appconfig.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	closeLog, err := logging.SetupWithConsole(cfg, console)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  logging.New(component),
		closers: []func() error{closeLog},
	}

	osConfig, err := opensearch.NewConfigFromTypes(cfg)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("invalid OpenSearch configuration: %w", err)
	}
	a.client, err = opensearch.NewClient(osConfig)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to create OpenSearch client: %w", err)
	}

	a.service, err = search.NewServiceFromConfig(a.client, cfg, logging.New("search"))
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to create search service: %w", err)
	}

	if cfg.UsageTrackingEnabled {
		store, err := metrics.NewStore(cfg.UsageDBPath)
		if err != nil {
			// usage accounting never blocks the query path
			a.logger.Printf("Warning: usage tracking disabled: %v", err)
		} else {
			a.closers = append(a.closers, store.Close)
			a.usage = metrics.NewRecorder(store, logging.New("usage"))
		}
	}

	return a, nil
}

// Close releases resources in reverse order of acquisition
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
