package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/frostdev-ops/home-panel-go/internal/config"
	"github.com/frostdev-ops/home-panel-go/internal/database"
	"github.com/frostdev-ops/home-panel-go/internal/database/seed"
	"github.com/frostdev-ops/home-panel-go/internal/database/sqlite"
	"github.com/frostdev-ops/home-panel-go/pkg/logger"
	"github.com/frostdev-ops/home-panel-go/pkg/version"
)

var (
	configFile string
	logLevel   = "info"
	log        *logrus.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "panelctl",
		Short:         "Maintenance tool for the Home Panel database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log = logger.New(logger.Options{Level: logLevel, Format: "text", Output: os.Stderr}).Logger
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file (defaults to ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", logLevel, "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.LoadFrom(viper.New(), configFile)
}

// openSQLite opens the configured database without migrating it
func openSQLite() (*sqlite.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Database.Backend != config.BackendSQLite {
		return nil, fmt.Errorf("migrations only apply to the sqlite backend, configured backend is %q", cfg.Database.Backend)
	}
	return sqlite.Open(sqlite.Options{
		Path:           cfg.Database.Path,
		MaxConnections: cfg.Database.MaxConnections,
	}, log)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQLite schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSQLite()
			if err != nil {
				return err
			}
			defer store.Close()
			return store.Migrate()
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSQLite()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.MigrateDown(steps); err != nil {
				return err
			}
			log.WithField("steps", steps).Info("Migrations rolled back")
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back, 0 for all")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSQLite()
			if err != nil {
				return err
			}
			defer store.Close()
			v, dirty, err := store.MigrationVersion()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
			return nil
		},
	})

	return cmd
}

func seedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate an empty database with the default household",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.Backend == config.BackendMemory {
				return fmt.Errorf("the memory backend cannot be seeded offline")
			}
			cfg.Database.AutoMigrate = true

			store, err := database.Initialize(cfg.Database, log)
			if err != nil {
				return err
			}
			defer store.Close()

			var data *seed.Data
			if file != "" {
				data, err = seed.Load(file)
			} else {
				data, err = seed.Default()
			}
			if err != nil {
				return err
			}

			result, err := seed.Apply(context.Background(), store, data, cfg.Auth.BcryptCost, log)
			if err != nil {
				return err
			}
			if !result.Applied {
				fmt.Fprintln(cmd.OutOrStdout(), "Database already populated, nothing to do")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d users, %d rooms, %d devices, %d scenes, %d automations\n",
				result.Users, result.Rooms, result.Devices, result.Scenes, result.Automations)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "YAML seed file (defaults to the built-in household)")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
		},
	}
}
