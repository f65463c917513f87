package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/staffmail/staffmail/internal/config"
	"github.com/staffmail/staffmail/internal/database"
	"github.com/staffmail/staffmail/internal/logger"
)

var (
	configPath    string
	migrationsDir string
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the Employees table schema",
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Run all pending migrations",
	RunE:  runUp,
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Rollback the last migration",
	RunE:  runDown,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE:  runStatus,
}

var createCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a new migration file",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreate,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file")
	rootCmd.PersistentFlags().StringVar(&migrationsDir, "dir", "migrations", "migrations directory")

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(createCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func getMigrator(ctx context.Context) (*migrate.Migrate, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return nil, fmt.Errorf("migrations support the %s driver only, got %q", config.DriverPostgres, cfg.Database.Driver)
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	return newMigrator("file://"+filepath.ToSlash(migrationsDir), driver)
}

// newMigrator binds the migration source to driver, closing driver if that fails
func newMigrator(sourceURL string, driver migratedb.Driver) (*migrate.Migrate, error) {
	m, err := migrate.NewWithDatabaseInstance(sourceURL, config.DriverPostgres, driver)
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return m, nil
}

func runUp(cmd *cobra.Command, args []string) error {
	log := logger.New("info", "text")
	log.Info().Msg("running migrations...")

	m, err := getMigrator(cmd.Context())
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Info().Msg("migrations completed successfully")
	return nil
}

func runDown(cmd *cobra.Command, args []string) error {
	log := logger.New("info", "text")
	log.Info().Msg("rolling back last migration...")

	m, err := getMigrator(cmd.Context())
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Steps(-1); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	log.Info().Msg("rollback completed successfully")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	m, err := getMigrator(cmd.Context())
	if err != nil {
		return err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get version: %w", err)
	}

	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Println("No migrations have been applied")
	} else {
		fmt.Printf("Current version: %d\n", version)
		fmt.Printf("Dirty: %v\n", dirty)
	}

	return nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	upFile, downFile, err := createMigration(migrationsDir, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Created migration files:\n  %s\n  %s\n", upFile, downFile)
	return nil
}

// createMigration writes an empty up/down pair numbered after the existing ones
func createMigration(dir, name string) (string, string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create migrations directory: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", "", fmt.Errorf("failed to read migrations directory: %w", err)
	}

	files := 0
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".sql" {
			files++
		}
	}
	version := files/2 + 1

	upFile := filepath.Join(dir, fmt.Sprintf("%06d_%s.up.sql", version, name))
	downFile := filepath.Join(dir, fmt.Sprintf("%06d_%s.down.sql", version, name))

	if err := os.WriteFile(upFile, []byte("-- Add migration SQL here\n"), 0644); err != nil {
		return "", "", fmt.Errorf("failed to create up migration: %w", err)
	}
	if err := os.WriteFile(downFile, []byte("-- Add rollback SQL here\n"), 0644); err != nil {
		return "", "", fmt.Errorf("failed to create down migration: %w", err)
	}

	return upFile, downFile, nil
}
