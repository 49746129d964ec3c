package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/sondrake/playfeed/internal/services"
	"github.com/sondrake/playfeed/internal/settings"
	"github.com/sondrake/playfeed/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	source services.Source
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Source services.Source
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config: opts.Config,
		source: opts.Source,
		logger: opts.Logger,
		output: opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, runCommand, createCommand, listCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// settingsPath resolves a settings filename against the configured config
// directory. Absolute paths and explicit relative paths pass through.
func (r *Runner) settingsPath(filename string) string {
	if filepath.IsAbs(filename) || filepath.Dir(filename) != "." {
		return filename
	}
	if filepath.Ext(filename) == "" {
		filename += ".json"
	}
	return filepath.Join(r.config.AutoAdder.ConfigDir, filename)
}

// retentionCap resolves the channel seen-list cap, letting the environment
// override the config file.
func (r *Runner) retentionCap() int {
	keep := r.config.AutoAdder.KeepVideoIDs
	if keep <= 0 {
		keep = settings.DefaultRetentionCap
	}
	return shared.EnvKeepVideoIDs.GetInt(keep)
}

// clientSecretPath resolves the OAuth client secret file, environment first.
func (r *Runner) clientSecretPath() string {
	return shared.EnvClientSecret.GetOr(r.config.YouTube.ClientSecretPath)
}

// tokenPath resolves the stored OAuth token file, environment first.
func (r *Runner) tokenPath() string {
	return shared.EnvClientToken.GetOr(r.config.YouTube.TokenPath)
}

// resolveSource returns the injected source when present (tests), else an
// authorized YouTube client.
func (r *Runner) resolveSource(ctx context.Context) (services.Source, error) {
	if r.source != nil {
		return r.source, nil
	}

	svc, err := services.NewAuthorizedService(ctx, r.clientSecretPath(), r.tokenPath(), r.config.YouTube.OAuthPort)
	if err != nil {
		return nil, err
	}

	return services.NewYouTubeService(svc, r.config.YouTube.RateLimit, r.logger), nil
}

// openDB opens the configured SQLite database.
func (r *Runner) openDB() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	return db, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
