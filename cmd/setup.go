package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sondrake/playfeed/internal/settings"
	"github.com/sondrake/playfeed/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config := r.loadOrCreateConfig(cmd.String("config"))

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return nil
}

// SetupConfig writes a starter config.toml, the config directory, and the
// settings template used by create.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		if !errors.Is(err, shared.ErrAlreadyExists) {
			return err
		}
		r.logger.Info("config file already exists", "path", configPath)
	} else {
		r.writePlain("Created %s\n", configPath)
	}

	config := r.loadOrCreateConfig(configPath)

	if err := os.MkdirAll(config.AutoAdder.ConfigDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := settings.WriteTemplate(config.AutoAdder.ConfigDir); err != nil {
		return err
	}
	r.writePlain("Settings template ready in %s\n", config.AutoAdder.ConfigDir)

	r.writePlain("Edit %s, then run: playfeed setup database\n", configPath)
	return nil
}

// loadOrCreateConfig loads the config file at path, creating it from the
// embedded example when missing. Falls back to defaults on any failure.
func (r *Runner) loadOrCreateConfig(path string) *shared.Config {
	if _, err := os.Stat(path); err == nil {
		if config, err := shared.LoadConfig(path); err == nil {
			return config
		}
		r.logger.Warn("failed to load config, using defaults", "path", path)
		return shared.DefaultConfig()
	}

	r.logger.Info("config file not found, creating from template", "path", path)
	if err := shared.CreateConfigFile(path); err != nil {
		r.logger.Warn("failed to create config file, using defaults", "error", err)
		return shared.DefaultConfig()
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load created config, using defaults", "error", err)
		return shared.DefaultConfig()
	}
	return config
}
