package cli

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/roach88/uispec/internal/config"
	"github.com/roach88/uispec/internal/driver"
	"github.com/roach88/uispec/internal/driver/chrome"
	"github.com/roach88/uispec/internal/poll"
	"github.com/roach88/uispec/internal/runner"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	LogLevel   string // overrides config log_level when set
	LogFormat  string // overrides config log_format when set
	ConfigPath string
	EnvPath    string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Deps are the collaborators commands use to reach the outside world.
// Tests replace them to run without a browser or wall time.
type Deps struct {
	// Opener starts the page suites run against.
	Opener func(cfg *config.Config, logger zerolog.Logger) driver.Opener
	// Now anchors date helpers in suite files.
	Now func() time.Time
	// Clock drives polling. Nil means wall time.
	Clock poll.Clock
	// IDs generates run IDs. Nil means UUIDv7.
	IDs runner.IDGenerator
}

// DefaultDeps runs suites in Chrome on wall time.
func DefaultDeps() Deps {
	return Deps{
		Opener: chromeOpener,
		Now:    time.Now,
	}
}

func chromeOpener(cfg *config.Config, logger zerolog.Logger) driver.Opener {
	return chrome.Opener(chrome.Options{
		BaseURL:      cfg.BaseURL,
		Headless:     cfg.Browser.Headless,
		NoSandbox:    cfg.Browser.NoSandbox,
		ChromePath:   cfg.Browser.ChromePath,
		WindowWidth:  cfg.Browser.WindowWidth,
		WindowHeight: cfg.Browser.WindowHeight,
	}, logger)
}

// NewRootCommand creates the root command for the uispec CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(DefaultDeps())
}

func newRootCommand(deps Deps) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "uispec",
		Short: "uispec - browser end-to-end tests from suite files",
		Long: `Run declarative end-to-end suites against a web application.

Suites are YAML or CUE files describing cases, hooks and steps. Every step
polls the page until it holds or its budget runs out, so suites need no
explicit waits for asynchronous rendering.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format (console|json)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to uispec.toml")
	cmd.PersistentFlags().StringVar(&opts.EnvPath, "env-file", ".env", "path to a .env file (optional)")

	// Add subcommands
	cmd.AddCommand(NewRunCommand(opts, deps))
	cmd.AddCommand(NewValidateCommand(opts, deps))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadConfig reads the layered config and applies the global overrides.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath, opts.EnvPath)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.LogFormat = opts.LogFormat
	}
	if opts.Verbose && cfg.LogLevel == "info" {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}
