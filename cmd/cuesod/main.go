// Cuesod is the chat backend daemon. It loads a YAML configuration, connects
// the configured LLM provider to a tool executor (direct Roku ECP or a remote
// MCP server), and serves the websocket chat endpoint plus the session admin
// API over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cueso/cueso/pkg/config"
	"github.com/cueso/cueso/pkg/providers"
	"github.com/cueso/cueso/pkg/roku"
	"github.com/cueso/cueso/pkg/searchplay"
	"github.com/cueso/cueso/pkg/server"
	"github.com/cueso/cueso/pkg/session"
	"github.com/cueso/cueso/pkg/streaming"
	"github.com/cueso/cueso/pkg/tools/mcpexec"
	"github.com/cueso/cueso/pkg/tools/rokutools"
	"github.com/cueso/cueso/pkg/tools/toolbox"
	"github.com/cueso/cueso/pkg/websearch"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to configuration file")
	envFile := flag.String("env", ".env", "path to .env file (ignored if missing)")
	flag.Parse()

	if err := loadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadDotEnv loads environment variables from path. If the file does not exist
// it is silently ignored so that .env files remain optional.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func run(configPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	setupLogging(cfg.Logging.Level, cfg.App.Debug)
	slog.Info("starting",
		"app", cfg.App.Name,
		"version", cfg.App.Version,
		"env", cfg.App.Environment,
		"provider", cfg.LLM.Provider,
		"executor", cfg.Tools.Executor,
	)

	p, err := providers.New(providers.Config{
		Kind:    cfg.LLM.Provider,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		return err
	}

	device := roku.New(cfg.Roku.IP)

	exec, tools, closeExec, err := buildExecutor(ctx, cfg, device)
	if err != nil {
		return err
	}
	defer closeExec()

	srv := server.New(p, exec, tools, server.WithRokuClient(device))

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()
	slog.Info("listening", "addr", httpSrv.Addr)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		slog.Info("shutting down")
		shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutCancel()
		return httpSrv.Shutdown(shutCtx)
	}
}

// buildExecutor wires the tool executor named by the config: roku_ecp drives
// the device directly and runs searches in-process; mcp delegates every tool
// call to a remote MCP server and advertises that server's tool catalog.
func buildExecutor(ctx context.Context, cfg config.Config, device *roku.Client) (session.Executor, []toolbox.Tool, func(), error) {
	switch cfg.Tools.Executor {
	case "roku_ecp":
		var searcher searchplay.Searcher
		if cfg.Brave.APIKey != "" {
			searcher = websearch.New(cfg.Brave.APIKey)
		} else {
			slog.Warn("brave.api_key not set; web_search and find_content will report as unconfigured")
		}

		services := streaming.ActiveServices(cfg.Streaming)
		tb := rokutools.New(device, searcher, services)
		return tb, tb.Tools(), func() {}, nil

	case "mcp":
		exec, err := mcpexec.NewSSE(ctx, cfg.MCP.ServerURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect mcp server: %w", err)
		}

		tools, err := exec.ListTools(ctx)
		if err != nil {
			_ = exec.Close()
			return nil, nil, nil, fmt.Errorf("list mcp tools: %w", err)
		}

		slog.Info("connected to mcp server", "url", cfg.MCP.ServerURL, "tools", len(tools))
		return exec, tools, func() { _ = exec.Close() }, nil

	default:
		return nil, nil, nil, fmt.Errorf("unsupported tools.executor %q", cfg.Tools.Executor)
	}
}

// setupLogging installs the process-wide slog default. Debug mode forces the
// debug level regardless of the configured one.
func setupLogging(level string, debug bool) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	if debug {
		lvl = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
