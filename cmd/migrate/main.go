package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/recall/internal/config"
	"github.com/saturnino-fabrica-de-software/recall/internal/database"
)

var (
	databaseURL  string
	databaseName string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the Recall database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env file is optional, don't fail if not found
			_ = godotenv.Load()
			if databaseURL == "" {
				databaseURL = os.Getenv("DATABASE_URL")
			}
			if databaseURL == "" {
				return fmt.Errorf("DATABASE_URL or --database-url is required")
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Postgres DSN (defaults to DATABASE_URL)")
	root.PersistentFlags().StringVar(&databaseName, "database-name", "recall", "Database name recorded by the migrator")

	root.AddCommand(upCmd(), downCmd(), versionCmd(), forceCmd())
	return root
}

func withMigrator(fn func(m *database.Migrator) error) error {
	db, err := database.OpenSQL(databaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	migrator, err := database.NewMigrator(db, databaseName)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() { _ = migrator.Close() }()

	return fn(migrator)
}

func upCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *database.Migrator) error {
				logger := config.NewLogger("cli")
				logger.Info("running migrations")
				if err := m.Up(); err != nil {
					return fmt.Errorf("migration up failed: %w", err)
				}
				logger.Info("migrations completed")
				return nil
			})
		},
	}
}

func downCmd() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *database.Migrator) error {
				logger := config.NewLogger("cli")
				logger.Info("rolling back migrations", "steps", steps)
				if err := m.Down(steps); err != nil {
					return fmt.Errorf("migration down failed: %w", err)
				}
				logger.Info("rollback completed")
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *database.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return fmt.Errorf("failed to get version: %w", err)
				}
				if dirty {
					cmd.Printf("Current version: %d (DIRTY - migration incomplete)\n", version)
				} else {
					cmd.Printf("Current version: %d\n", version)
				}
				return nil
			})
		},
	}
}

func forceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			return withMigrator(func(m *database.Migrator) error {
				if err := m.Force(version); err != nil {
					return fmt.Errorf("force migration failed: %w", err)
				}
				cmd.Printf("Forced version %d\n", version)
				return nil
			})
		},
	}
}
