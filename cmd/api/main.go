package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/tomkralidis/gocsw/internal/api/debug"
	"github.com/tomkralidis/gocsw/internal/api/mux"
	"github.com/tomkralidis/gocsw/internal/api/routes"
	appcatalog "github.com/tomkralidis/gocsw/internal/app/catalog"
	"github.com/tomkralidis/gocsw/internal/app/notify"
	"github.com/tomkralidis/gocsw/internal/config"
	"github.com/tomkralidis/gocsw/internal/domain/filter"
	catalogStore "github.com/tomkralidis/gocsw/internal/infra/storage/catalog/postgres"
	"github.com/tomkralidis/gocsw/pkg/common/logger"
	"github.com/tomkralidis/gocsw/pkg/common/otel"
)

var build = "develop"

const serviceType = "catalogue-api"

func main() {
	// Set the correct number of threads for the service
	_, _ = maxprocs.Set()

	hostname, err := os.Hostname()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get hostname: %v\n", err)
		os.Exit(1)
	}

	logEvents := logger.Events{
		Error: func(ctx context.Context, r logger.Record) {
			errorAttrs := map[string]any{
				"error_message": r.Message,
				"error_time":    r.Time.UTC().Format(time.RFC3339),
				"trace_id":      otel.GetTraceID(ctx),
			}

			for k, v := range r.Attributes {
				errorAttrs[k] = v
			}

			errorAttrsJSON, err := json.Marshal(errorAttrs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to marshal error attributes: %v\n", err)
				return
			}

			fmt.Fprintf(os.Stderr, "Error event: %s, details: %s\n",
				r.Message, errorAttrsJSON)
		},
	}

	traceIDFn := func(ctx context.Context) string {
		return otel.GetTraceID(ctx)
	}

	svcName := fmt.Sprintf("CATALOGUE-API-%s", hostname)
	metadata := map[string]string{
		"service":  svcName,
		"hostname": hostname,
		"app":      serviceType,
	}

	log := logger.NewWithMetadata(os.Stdout, logger.LevelInfo, svcName, traceIDFn, logEvents, metadata)

	ctx := context.Background()

	if err := run(ctx, log, hostname); err != nil {
		log.Error(ctx, "startup", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger, hostname string) error {
	// -------------------------------------------------------------------------
	// GOMAXPROCS
	log.Info(ctx, "startup", "GOMAXPROCS", runtime.GOMAXPROCS(0))

	// -------------------------------------------------------------------------
	// Configuration

	cfg, err := config.Load(os.Getenv("GOCSW_CONFIG"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// -------------------------------------------------------------------------
	// Database Support

	poolCfg, err := pgxpool.ParseConfig(cfg.Repository.DSN)
	if err != nil {
		return fmt.Errorf("parsing db config: %w", err)
	}
	poolCfg.MinConns = 5
	poolCfg.MaxConns = 25

	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("creating db pool: %w", err)
	}
	defer pool.Close()

	// -------------------------------------------------------------------------
	// Start Tracing Support

	log.Info(ctx, "startup", "status", "initializing tracing support")

	traceProvider, teardown, err := otel.InitTelemetry(log, otel.Config{
		ServiceName:      serviceType,
		ExporterEndpoint: cfg.Telemetry.Endpoint,
		ExcludedRoutes: map[string]struct{}{
			"/v1/readiness": {},
			"/v1/liveness":  {},
			"/debug":        {},
		},
		Probability: cfg.Telemetry.Probability,
		ResourceAttributes: map[string]string{
			"library.language": "go",
			"host.name":        hostname,
		},
		InsecureExporter: true,
	})
	if err != nil {
		return fmt.Errorf("starting tracing: %w", err)
	}
	defer teardown(ctx)

	tracer := traceProvider.Tracer(serviceType)

	// -------------------------------------------------------------------------
	// Catalogue Service

	var storeOpts []catalogStore.StoreOption
	if repoFilter := repositoryFilter(cfg.Repository.Filter); repoFilter != nil {
		storeOpts = append(storeOpts, catalogStore.WithRepositoryFilter(repoFilter))
	}
	store := catalogStore.NewRecordStore(pool, tracer, storeOpts...)

	var notifier notify.Notifier
	if len(cfg.Notify.Brokers) > 0 {
		kafkaNotifier, err := notify.NewKafkaNotifier(notify.KafkaConfig{
			Brokers:  cfg.Notify.Brokers,
			ClientID: serviceType,
			Topic:    cfg.Notify.Topic,
		}, log)
		if err != nil {
			return fmt.Errorf("connecting notifier: %w", err)
		}
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
	}

	catalogSvc := appcatalog.NewService(store, store, notifier, log, tracer, cfg.Repository.MaxRecords)

	log.Info(ctx, "startup", "status", "waiting for repository")
	if err := catalogSvc.AwaitRepository(ctx); err != nil {
		return err
	}

	// -------------------------------------------------------------------------
	// Start Debug Service

	go func() {
		log.Info(ctx, "startup", "status", "debug router started", "host", cfg.Server.DebugHost)

		if err := http.ListenAndServe(cfg.Server.DebugHost, debug.Mux()); err != nil {
			log.Error(ctx, "shutdown", "status", "debug router closed", "host", cfg.Server.DebugHost, "msg", err)
		}
	}()

	// -------------------------------------------------------------------------
	// Start API Service

	log.Info(ctx, "startup", "status", "initializing API support")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	cfgMux := mux.Config{
		Build:      build,
		Log:        log,
		Catalog:    catalogSvc,
		Repository: store,
		Tracer:     tracer,
	}

	webAPI := mux.WebAPI(cfgMux,
		routes.Routes(),
		mux.WithCORS(cfg.Server.CORSAllowedOrigins),
	)

	api := http.Server{
		Addr:         cfg.Server.APIHost,
		Handler:      webAPI,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     logger.NewStdLogger(log, logger.LevelError),
	}

	serverErrors := make(chan error, 1)

	go func() {
		log.Info(ctx, "startup", "status", "api router started", "host", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	// -------------------------------------------------------------------------
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Info(ctx, "shutdown", "status", "shutdown started", "signal", sig)
		defer log.Info(ctx, "shutdown", "status", "shutdown complete", "signal", sig)

		ctx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

// repositoryFilter converts the configured property=value pairs into a
// constraint ANDed into every repository query.
func repositoryFilter(pairs map[string]string) filter.Expr {
	if len(pairs) == 0 {
		return nil
	}

	exprs := make([]filter.Expr, 0, len(pairs))
	for property, value := range pairs {
		exprs = append(exprs, filter.Comparison{Property: property, Op: filter.OpEqual, Value: value})
	}
	if len(exprs) == 1 {
		return exprs[0]
	}
	return filter.And{Exprs: exprs}
}
