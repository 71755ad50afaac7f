// Command admin provides the catalogue's operational tooling: database
// setup, bulk ingest and export, and repository maintenance.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace/noop"

	appcatalog "github.com/tomkralidis/gocsw/internal/app/catalog"
	"github.com/tomkralidis/gocsw/internal/config"
	"github.com/tomkralidis/gocsw/internal/domain/catalog"
	catalogStore "github.com/tomkralidis/gocsw/internal/infra/storage/catalog/postgres"
	"github.com/tomkralidis/gocsw/pkg/common/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "admin",
	Short:        "Operational tooling for the metadata catalogue",
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("GOCSW_CONFIG"), "path to the service configuration file")

	rootCmd.AddCommand(
		setupDBCmd,
		pingCmd,
		optimizeDBCmd,
		rebuildIndexesCmd,
		loadRecordsCmd,
		exportRecordsCmd,
		deleteRecordsCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// env wires the shared dependencies of the admin commands.
type env struct {
	cfg     *config.Config
	pool    *pgxpool.Pool
	repo    catalog.RecordRepository
	maint   catalog.MaintainableRepository
	catalog *appcatalog.Service
	log     *logger.Logger
}

func (e *env) close() {
	if e.pool != nil {
		e.pool.Close()
	}
}

func newEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(os.Stdout, logger.LevelInfo, "ADMIN", nil)
	tracer := noop.NewTracerProvider().Tracer("admin")

	poolCfg, err := pgxpool.ParseConfig(cfg.Repository.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing db config: %w", err)
	}
	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating db pool: %w", err)
	}

	store := catalogStore.NewRecordStore(pool, tracer)
	svc := appcatalog.NewService(store, store, nil, log, tracer, cfg.Repository.MaxRecords)

	return &env{
		cfg:     cfg,
		pool:    pool,
		repo:    store,
		maint:   store,
		catalog: svc,
		log:     log,
	}, nil
}
