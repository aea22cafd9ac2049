// Command server runs the torhaus gateway: it authenticates and
// authorizes every incoming request, then renders the server-side page
// for requests that pass.
//
// Configuration is loaded from a YAML file (-config flag, TORHAUS_CONFIG
// env, or ./config.yaml) with TORHAUS_* environment overrides; see
// pkg/config.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/torhaus-dev/torhaus/pkg/audit"
	auditpg "github.com/torhaus-dev/torhaus/pkg/audit/postgres"
	"github.com/torhaus-dev/torhaus/pkg/auth"
	"github.com/torhaus-dev/torhaus/pkg/config"
	"github.com/torhaus-dev/torhaus/pkg/entitlement"
	"github.com/torhaus-dev/torhaus/pkg/observability"
	"github.com/torhaus-dev/torhaus/pkg/transport"
	"github.com/torhaus-dev/torhaus/pkg/view"
)

// pagePermissions is the permission set the rendered page requires.
var pagePermissions = []string{"read"}

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Collaborator clients: process-wide, read-only.
	billing, err := entitlement.NewHTTPBillingClient(cfg.Entitlement.Billing.URL, cfg.Entitlement.Billing.Timeout)
	if err != nil {
		return fmt.Errorf("creating billing client: %w", err)
	}
	permissions, err := entitlement.NewHTTPPermissionsClient(cfg.Entitlement.Permissions.URL, cfg.Entitlement.Permissions.Timeout)
	if err != nil {
		return fmt.Errorf("creating permissions client: %w", err)
	}
	gate := entitlement.NewGate(billing, permissions)

	// Audit sink.
	sink, err := newSink(cfg)
	if err != nil {
		return fmt.Errorf("creating audit sink: %w", err)
	}
	if sink != nil {
		defer sink.Close()
	}

	// The chain every protected route declares, composed once at startup.
	pipeline := auth.NewPipeline(
		auth.LocateStage{},
		auth.VerifyStage{Verifier: auth.NewVerifier(cfg.Auth.SecretA, cfg.Auth.SecretB, cfg.Auth.ClockSkew)},
		auth.PopulateStage{Populator: auth.NewPopulator(cfg.Auth.SecretA, cfg.Auth.SecretB, cfg.Auth.ShortTokenTTL)},
		entitlement.SubscriptionStage{Gate: gate},
		entitlement.PermissionStage{Gate: gate, Required: pagePermissions},
	)

	// Build the handler stack: transport glue outside, chain inside.
	mux := http.NewServeMux()
	mux.Handle("/", view.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	if cfg.Observability.Metrics.Enabled {
		mux.Handle("GET "+cfg.Observability.Metrics.Path, promhttp.Handler())
	}

	var handler http.Handler = mux
	handler = auth.Middleware(pipeline, sink, auth.DefaultBypassEndpoints)(handler)
	handler = observability.MetricsMiddleware(handler)
	handler = transport.Logging(slog.Default())(handler)
	handler = transport.Recovery(handler)
	handler = transport.RequestID(handler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting",
			"port", cfg.Server.Port,
			"billing", cfg.Entitlement.Billing.URL,
			"permissions", cfg.Entitlement.Permissions.URL,
			"audit", cfg.Audit.Type,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// newSink builds the configured audit sink. Returns nil for audit.type
// "none".
func newSink(cfg *config.Config) (audit.Sink, error) {
	switch cfg.Audit.Type {
	case "none":
		return nil, nil
	case "memory":
		return audit.NewMemorySink(cfg.Audit.MaxRecords), nil
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return auditpg.New(ctx, auditpg.Config{
			DSN:            cfg.Audit.Postgres.DSN,
			MaxConns:       cfg.Audit.Postgres.MaxConns,
			MigrateOnStart: cfg.Audit.Postgres.MigrateOnStart,
		})
	default:
		return nil, fmt.Errorf("unknown audit type %q", cfg.Audit.Type)
	}
}
