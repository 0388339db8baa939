package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"alldaycal/internal/config"
	appLog "alldaycal/internal/log"
)

const (
	defaultConfigPath = "./config.yaml"
	envConfig         = "ALLDAYCAL_CONFIG"
	envLogLevel       = "ALLDAYCAL_LOG_LEVEL"
)

var version = "0.1.0-dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries state shared by the subcommands.
type app struct {
	configPath string
	verbose    bool
	out        io.Writer
	cfg        *config.Config
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "alldaycal",
		Short:         "Lays out all-day calendar events into rows",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to config file (.yaml or .toml; default $"+envConfig+" or "+defaultConfigPath+")")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newServeCmd(a))
	root.AddCommand(newRenderCmd(a))
	return root
}

// setup loads .env, picks the log level and loads the configuration.
func (a *app) setup() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		appLog.Warn("failed to load .env", "err", err)
	}

	level := appLog.LevelInfo
	if env := os.Getenv(envLogLevel); env != "" {
		l, err := appLog.ParseLevel(env)
		if err != nil {
			return err
		}
		level = l
	}
	if a.verbose {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)

	if a.configPath == "" {
		a.configPath = os.Getenv(envConfig)
	}
	if a.configPath == "" {
		a.configPath = defaultConfigPath
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", a.configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", a.configPath, err)
	}
	a.cfg = cfg

	appLog.Debug("effective config",
		"path", a.configPath,
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"refresh", cfg.RefreshCron,
		"horizon_days", cfg.HorizonDays,
		"visible_days", cfg.VisibleDays,
		"sources", len(cfg.Sources),
		"carry", cfg.Layout.Carry,
	)
	return nil
}
