package main

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

var migrationsPath string

var setupDBCmd = &cobra.Command{
	Use:   "setup-db",
	Short: "Create or upgrade the records table and its indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := newEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close()

		db := stdlib.OpenDBFromPool(e.pool)
		defer db.Close()

		driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
		if err != nil {
			return fmt.Errorf("creating migration driver: %w", err)
		}

		m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
		if err != nil {
			return fmt.Errorf("creating migrator: %w", err)
		}

		if err := m.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				cmd.Println("database already up to date")
				return nil
			}
			return fmt.Errorf("running migrations: %w", err)
		}

		cmd.Println("database setup complete")
		return nil
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check the repository is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := newEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close()

		if err := e.maint.Ping(ctx); err != nil {
			return fmt.Errorf("repository unreachable: %w", err)
		}

		cmd.Println("repository reachable")
		return nil
	},
}

var optimizeDBCmd = &cobra.Command{
	Use:   "optimize-db",
	Short: "Reclaim dead rows and refresh planner statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := newEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close()

		if err := e.maint.Optimize(ctx); err != nil {
			return err
		}

		cmd.Println("repository optimized")
		return nil
	},
}

var rebuildIndexesCmd = &cobra.Command{
	Use:   "rebuild-indexes",
	Short: "Rebuild the indexes on the records table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := newEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close()

		if err := e.maint.Reindex(ctx); err != nil {
			return err
		}

		cmd.Println("indexes rebuilt")
		return nil
	},
}

func init() {
	setupDBCmd.Flags().StringVar(&migrationsPath, "migrations", "db/migrations", "path to the migration files")
}
