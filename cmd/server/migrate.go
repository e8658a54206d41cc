package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/prudhvinik1/fitsync/internal/config"
	"github.com/prudhvinik1/fitsync/internal/database/migrations"
	"github.com/prudhvinik1/fitsync/internal/logger"
	"github.com/spf13/cobra"
)

var databaseURL string

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Apply, roll back or inspect the embedded Postgres schema migrations.`,
	}

	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection URL")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Run all pending migrations",
			Args:  cobra.NoArgs,
			RunE:  runMigrateUp,
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back migrations (default 1)",
			Args:  cobra.MaximumNArgs(1),
			RunE:  runMigrateDown,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the current schema version",
			Args:  cobra.NoArgs,
			RunE:  runMigrateVersion,
		},
	)

	return cmd
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	if databaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	log := logger.Init(config.LoadLogConfig())

	log.Info("running up migrations")
	if err := migrateUp(databaseURL); err != nil {
		log.Error("migration failed", "error", err)
		return err
	}
	log.Info("migrations completed successfully")
	return nil
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	if databaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	steps := 1
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid steps %q", args[0])
		}
		steps = n
	}
	log := logger.Init(config.LoadLogConfig())

	db, err := migrations.Open(databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	log.Info("running down migrations", "steps", steps)
	if err := migrations.MigrateDown(db, steps); err != nil {
		log.Error("down migration failed", "error", err)
		return err
	}
	log.Info("down migration completed successfully")
	return nil
}

func runMigrateVersion(cmd *cobra.Command, args []string) error {
	if databaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	db, err := migrations.Open(databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	version, dirty, err := migrations.Version(db)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "version: %d\ndirty:   %t\n", version, dirty)
	return nil
}
