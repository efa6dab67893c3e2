package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"worksheetd/internal/config"
	"worksheetd/internal/events"
	"worksheetd/internal/history"
	"worksheetd/internal/httpapi"
	"worksheetd/internal/manager"
)

func main() {
	// Flags with environment variable defaults
	defaultAddr := os.Getenv("WORKSHEETD_ADDR")
	defaultLevel := os.Getenv("WORKSHEETD_LOG_LEVEL")
	configPath := flag.String("config", os.Getenv("WORKSHEETD_CONFIG"), "Config file (.yaml, .json or .toml)")
	addr := flag.String("addr", defaultAddr, "HTTP listen address, e.g. :8080")
	dataDir := flag.String("data-dir", "", "Directory for worksheets, scratch space and history (default ~/.worksheetd)")
	interpreter := flag.String("interpreter", "", "Interpreter: python|reference")
	historyDB := flag.String("history-db", "", "History database file relative to data dir, or 'memory'")
	idleTimeout := flag.Int("idle-timeout-seconds", 0, "Stop interpreters idle for this long (negative disables)")
	logLevel := flag.String("log-level", defaultLevel, "Log level: debug|info|warn|error")
	corsOrigins := flag.String("cors-origins", "", "Comma-separated allowed CORS origins; enables CORS")
	logPretty := flag.Bool("log-pretty", false, "Human-readable console logs instead of JSON")
	flag.Parse()

	var cfg config.Config
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fatal(zerolog.New(os.Stderr), "config_error", err)
		}
	}
	// Flags override file values
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *interpreter != "" {
		cfg.Interpreter = *interpreter
	}
	if *historyDB != "" {
		cfg.HistoryDB = *historyDB
	}
	if *idleTimeout != 0 {
		cfg.IdleTimeoutSeconds = *idleTimeout
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if origins := splitCSV(*corsOrigins); len(origins) > 0 {
		cfg.CORS.Enabled = true
		cfg.CORS.Origins = origins
	}
	cfg = cfg.Defaults()

	log := newLogger(cfg.LogLevel, *logPretty)
	if err := cfg.Validate(); err != nil {
		fatal(log, "config_error", err)
	}

	mc, err := cfg.ManagerConfig()
	if err != nil {
		fatal(log, "config_error", err)
	}
	if err := os.MkdirAll(mc.DataDir, 0o755); err != nil {
		fatal(log, "data_dir_error", err)
	}
	store, err := openHistory(cfg)
	if err != nil {
		fatal(log, "history_error", err)
	}
	defer store.Close()
	mc.History = store
	mc.Logger = log.With().Str("component", "manager").Logger()
	mc.Publisher = events.LogPublisher{Logger: log.With().Str("component", "events").Logger()}
	mgr := manager.NewWithConfig(mc)

	rep := mgr.SanityCheck()
	for _, c := range rep.Checks {
		if !c.OK {
			log.Warn().Str("event", "sanity_check_failed").Str("check", c.Name).Str("message", c.Message).Msg("sanity check failed")
		}
	}

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.Origins, cfg.CORS.Methods, cfg.CORS.Headers)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go mgr.Run(ctx)

	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(mgr), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info().Str("event", "listening").Str("addr", cfg.Addr).Str("data_dir", mc.DataDir).
			Str("interpreter", cfg.Interpreter).Str("variant", mgr.Variant()).Msg("worksheetd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Str("event", "server_error").Err(err).Msg("server error")
			stop()
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Str("event", "shutdown_error").Err(err).Msg("graceful shutdown error")
	}
	mgr.Close()
	log.Info().Str("event", "stopped").Msg("worksheetd stopped")
}

func newLogger(level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	var l zerolog.Logger
	if pretty {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		l = zerolog.New(os.Stderr)
	}
	return l.Level(lvl).With().Timestamp().Logger()
}

func openHistory(cfg config.Config) (history.Store, error) {
	path, err := cfg.HistoryPath()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return history.NewMemoryStore(), nil
	}
	s, err := history.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func fatal(log zerolog.Logger, event string, err error) {
	log.Error().Str("event", event).Err(err).Msg("startup failed")
	os.Exit(1)
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
