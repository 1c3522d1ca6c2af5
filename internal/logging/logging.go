// Package logging configures the process-wide log output with optional file rotation.
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/ca-srg/mailscope/internal/types"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu     sync.RWMutex
	output io.Writer = os.Stdout
)

// Setup routes the standard logger (and every logger returned by New) to
// stdout, and additionally to a rotating file when LOG_FILE is set.
// The returned cleanup closes the file sink.
func Setup(cfg *types.Config) (func() error, error) {
	return SetupWithConsole(cfg, os.Stdout)
}

// SetupWithConsole is Setup with a caller-chosen console writer. CLI commands
// that print results on stdout log to stderr instead.
func SetupWithConsole(cfg *types.Config, console io.Writer) (func() error, error) {
	if console == nil {
		console = os.Stdout
	}
	if cfg == nil || cfg.LogFile == "" {
		setOutput(console)
		return func() error { return nil }, nil
	}

	dir := filepath.Dir(cfg.LogFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
		Compress:   true,
		LocalTime:  true,
	}

	setOutput(io.MultiWriter(console, lj))

	return func() error {
		setOutput(console)
		return lj.Close()
	}, nil
}

func setOutput(w io.Writer) {
	mu.Lock()
	output = w
	mu.Unlock()
	log.SetOutput(w)
}

// Output returns the writer currently configured by Setup
func Output() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	return output
}

// New returns a prefixed logger, e.g. New("server") logs as "[server] ...".
func New(component string) *log.Logger {
	return log.New(Output(), "["+component+"] ", log.LstdFlags)
}
