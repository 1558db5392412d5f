// Command flowstore serves the flow store protocol used by the editor's
// synchronizer.
//
// Usage:
//
//	flowstore [-config flowstore.yaml]
//
// Every setting can be overridden from the environment, for example
// FLOWEDIT_SERVER_ADDR=:8080 or FLOWEDIT_SERVER_STORE=sqlite.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/flowedit/pkg/flowedit/config"
	"github.com/randalmurphal/flowedit/pkg/flowedit/server"
	"github.com/randalmurphal/flowedit/pkg/flowedit/store"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML or JSON config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, nil); err != nil {
		fmt.Fprintln(os.Stderr, "flowstore:", err)
		os.Exit(1)
	}
}

// run serves until ctx is cancelled. If ready is non-nil it receives the
// bound address once the listener is up.
func run(ctx context.Context, configPath string, ready chan<- string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	settings, err := config.ServerFromConfig(cfg)
	if err != nil {
		return err
	}

	logger, err := newLogger(settings.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	st, err := store.Open(settings.Store, settings.DSN)
	if err != nil {
		return fmt.Errorf("open %s store: %w", settings.Store, err)
	}
	defer st.Close()

	handler := server.New(st, logger,
		server.WithAllowedOrigins(settings.AllowedOrigins),
		server.WithMaxBodyBytes(settings.MaxBodyBytes),
	).Handler()

	ln, err := net.Listen("tcp", settings.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", settings.Addr, err)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting flow store",
		zap.String("address", ln.Addr().String()),
		zap.String("store", settings.Store),
		zap.Strings("backends", store.Backends()),
	)
	if ready != nil {
		ready <- ln.Addr().String()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down flow store")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
