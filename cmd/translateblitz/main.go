// Command translateblitz is the Translate Blitz game server.
//
// By default it serves the HTTP API and WebSocket event streams. With -mcp it
// instead serves the grading tools over MCP on stdin/stdout.
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
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/translateblitz/internal/app"
	"github.com/MrWong99/translateblitz/internal/config"
	"github.com/MrWong99/translateblitz/internal/grading"
	"github.com/MrWong99/translateblitz/internal/mcp"
	"github.com/MrWong99/translateblitz/internal/observe"
	"github.com/MrWong99/translateblitz/internal/server"
	"github.com/MrWong99/translateblitz/internal/settings"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	mcpMode := flag.Bool("mcp", false, "serve the grading tools over MCP on stdin/stdout instead of HTTP")
	flag.Parse()

	// A .env file is optional; its variables feed ${VAR} references in the
	// config.
	_ = godotenv.Load()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "translateblitz: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "translateblitz: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	// Logs always go to stderr; stdout belongs to the MCP transport.
	level := new(slog.LevelVar)
	level.Set(app.SlogLevel(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	slog.Info("translateblitz starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"grading_mode", cfg.Grading.Mode,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	tel, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	// ── Settings store and credentials ────────────────────────────────────────
	store, err := settings.Open(ctx, string(cfg.Settings.Driver), cfg.Settings.DSN)
	if err != nil {
		slog.Error("failed to open settings store", "driver", cfg.Settings.Driver, "err", err)
		return 1
	}
	defer store.Close()
	creds := settings.NewCredentials(store, cfg.Providers.LLM.APIKey)

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg, creds)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	application, err := app.New(ctx, cfg, providers,
		app.WithSettingsStore(store),
		app.WithCredentials(creds),
		app.WithMetrics(metrics),
		app.WithLevelVar(level),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := application.Shutdown(sctx); err != nil {
			slog.Error("shutdown error", "err", err)
		}
	}()

	if *mcpMode {
		return serveMCP(ctx, application)
	}

	printStartupSummary(cfg)
	return serveHTTP(ctx, application, tel.MetricsHandler(), *configPath)
}

// serveMCP serves the grading tools until the client disconnects.
func serveMCP(ctx context.Context, a *app.App) int {
	srv, err := mcp.NewServer(mcp.Config{
		NewGrader: func() (grading.Grader, error) {
			return a.NewGrader(nil)
		},
		Vocabulary:   a.Vocabulary,
		PassingScore: a.Config().Game.PassingScore,
	})
	if err != nil {
		slog.Error("failed to create MCP server", "err", err)
		return 1
	}
	slog.Info("serving grading tools over MCP on stdio")
	if err := srv.ServeStdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("mcp server error", "err", err)
		return 1
	}
	return 0
}

// serveHTTP runs the API listener, the optional metrics listener, the
// session reaper and the config watcher until ctx is done.
func serveHTTP(ctx context.Context, a *app.App, metricsHandler http.Handler, configPath string) int {
	cfg := a.Config()

	var opts []server.Option
	if len(cfg.Server.AllowedOrigins) > 0 {
		opts = append(opts, server.WithOriginPatterns(cfg.Server.AllowedOrigins...))
	}
	var metricsSrv *http.Server
	if cfg.Observe.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", metricsHandler)
		metricsSrv = &http.Server{Addr: cfg.Observe.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	} else {
		opts = append(opts, server.WithMetricsHandler(metricsHandler))
	}

	apiSrv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           server.New(a, opts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	watcher, err := config.NewWatcher(configPath, a.Reload, config.WithWatchLogger(slog.With("component", "config")))
	if err != nil {
		slog.Warn("config hot-reload disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http server listening", "addr", apiSrv.Addr, "tls", cfg.Server.TLS != nil)
		var err error
		if tls := cfg.Server.TLS; tls != nil {
			err = apiSrv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = apiSrv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	})

	if metricsSrv != nil {
		g.Go(func() error {
			slog.Info("metrics server listening", "addr", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		a.Sessions().RunReaper(gctx, 0)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping…")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := apiSrv.Shutdown(sctx)
		if metricsSrv != nil {
			err = errors.Join(err, metricsSrv.Shutdown(sctx))
		}
		return err
	})

	slog.Info("server ready, press Ctrl+C to shut down")
	if err := g.Wait(); err != nil {
		slog.Error("server error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║    Translate Blitz, startup summary   ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("LLM fallback", cfg.Providers.LLMFallback.Name, cfg.Providers.LLMFallback.Model)
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	fmt.Printf("║  Grading mode    : %-19s ║\n", cfg.Grading.Mode)
	fmt.Printf("║  Settings store  : %-19s ║\n", cfg.Settings.Driver)
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}
