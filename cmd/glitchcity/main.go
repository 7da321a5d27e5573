package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/naveenspark/glitchcity/internal/config"
	"github.com/naveenspark/glitchcity/internal/logging"
	"github.com/naveenspark/glitchcity/internal/tui"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// flags shared by every subcommand.
type rootFlags struct {
	configPath  string
	verbose     bool
	logFile     string
	metricsAddr string
	seed        uint64
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f rootFlags
	root := &cobra.Command{
		Use:   "glitchcity",
		Short: "A neon chat server where the regulars talk back",
		Long: `Glitch City is a terminal chat client for a simulated server.
Mention a persona, reply to one, or just say hi, and the locals answer
in character.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), f)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", defaultConfigPath(), "YAML config layered over the built-in defaults")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&f.logFile, "log-file", "", "Log destination (default: ~/.glitchcity/glitchcity.log for the TUI, stderr otherwise)")
	pf.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	pf.Uint64Var(&f.seed, "seed", 0, "Random seed for targeting and jitter (0 = time based)")

	root.AddCommand(newSayCmd(&f), newPersonasCmd(&f), newVersionCmd())
	return root
}

// defaultConfigPath returns ~/.glitchcity/config.yaml, or "" if there is no home.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".glitchcity", "config.yaml")
}

// defaultLogPath keeps TUI logs off the terminal.
func defaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "glitchcity.log")
	}
	return filepath.Join(home, ".glitchcity", "glitchcity.log")
}

// setup loads config and builds the logger. logFallback is used when
// neither the flag nor the config names a log file.
func setup(f rootFlags, logFallback string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, nil, err
	}
	if f.metricsAddr != "" {
		cfg.Metrics.Addr = f.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	logFile := cfg.Logging.File
	if f.logFile != "" {
		logFile = f.logFile
	}
	if logFile == "" {
		logFile = logFallback
	}
	logger, err := logging.New(logging.Config{
		Level:   cfg.Logging.Level,
		File:    logFile,
		JSON:    cfg.Logging.JSON,
		Verbose: f.verbose,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runTUI(parent context.Context, f rootFlags) error {
	cfg, logger, err := setup(f, defaultLogPath())
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := signalContext(parent)
	defer cancel()

	w, err := build(ctx, cfg, logger, f.seed)
	if err != nil {
		return err
	}
	defer w.close() //nolint:errcheck

	app := tui.NewApp(ctx, w.session, logger)
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}
