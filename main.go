// Command userdb serves a users REST API backed by schema-validated,
// file-persisted collections.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/stevemurr/userdb/handler"
	"github.com/stevemurr/userdb/middleware"
	"github.com/stevemurr/userdb/odm"
	"github.com/stevemurr/userdb/store"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type config struct {
	httpAddr       string
	dataDir        string
	backend        string
	allowedOrigins []string
	logLevel       slog.Level
	rateLimit      float64
	rateBurst      int
}

// loadConfig parses args. Flag defaults come from the environment.
func loadConfig(args []string) (*config, error) {
	fs := flag.NewFlagSet("userdb", flag.ContinueOnError)
	httpAddr := fs.String("http", env("HTTP", "0.0.0.0:8080"), "Address to listen on")
	dataDir := fs.String("data-dir", env("DATA_DIR", "./data"), "Data directory")
	backend := fs.String("store", env("STORE_BACKEND", "json"), "Store backend ("+strings.Join(store.Backends, ", ")+")")
	origins := fs.String("allowed-origins", env("ALLOWED_ORIGINS", "*"), "Comma separated CORS origins")
	logLevel := fs.String("log-level", env("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	rateLimit := fs.String("rate-limit", env("RATE_LIMIT", "20"), "Requests per second per client, 0 disables")
	rateBurst := fs.String("rate-burst", env("RATE_BURST", "40"), "Rate limit burst size")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unknown arguments: %v", fs.Args())
	}

	cfg := &config{
		httpAddr:       *httpAddr,
		dataDir:        *dataDir,
		backend:        *backend,
		allowedOrigins: strings.Split(*origins, ","),
	}
	if err := cfg.logLevel.UnmarshalText([]byte(*logLevel)); err != nil {
		return nil, fmt.Errorf("invalid -log-level: %w", err)
	}
	var err error
	if cfg.rateLimit, err = strconv.ParseFloat(*rateLimit, 64); err != nil || cfg.rateLimit < 0 {
		return nil, fmt.Errorf("invalid -rate-limit %q", *rateLimit)
	}
	if cfg.rateBurst, err = strconv.Atoi(*rateBurst); err != nil || cfg.rateBurst < 0 {
		return nil, fmt.Errorf("invalid -rate-burst %q", *rateBurst)
	}
	return cfg, nil
}

func newLogger(w *os.File, level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(colorable.NewColorable(w), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(w.Fd()),
	}))
}

// newServer builds the full handler chain on top of s.
func newServer(cfg *config, s store.Store) (http.Handler, error) {
	h, err := handler.New(odm.NewRegistry(s), s)
	if err != nil {
		return nil, err
	}
	var limiter *middleware.Limiter
	if cfg.rateLimit > 0 {
		limiter = middleware.NewLimiter(cfg.rateLimit, cfg.rateBurst)
	}
	var wrapped http.Handler = h
	wrapped = middleware.RateLimit(wrapped, limiter)
	wrapped = middleware.CORS(wrapped, cfg.allowedOrigins)
	wrapped = middleware.RequestLog(wrapped)
	return wrapped, nil
}

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "userdb: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	slog.SetDefault(newLogger(os.Stderr, cfg.logLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	s, err := store.New(cfg.backend, cfg.dataDir)
	if err != nil {
		return fmt.Errorf("failed to create store (backend=%s): %w", cfg.backend, err)
	}
	if c, ok := s.(io.Closer); ok {
		defer func() {
			if err := c.Close(); err != nil {
				slog.Error("Failed to close store", "err", err)
			}
		}()
	}

	h, err := newServer(cfg, s)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.httpAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Serving", "addr", cfg.httpAddr, "store", cfg.backend, "data", cfg.dataDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("Shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
