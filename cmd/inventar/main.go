package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erazemk/inventar/internal/app"
	"github.com/erazemk/inventar/internal/config"
	"github.com/erazemk/inventar/internal/logging"
)

// cli carries state shared by every subcommand.
type cli struct {
	configPath string
	cfg        *config.Config
	log        *logging.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "inventar",
		Short:         "Inventory tracking for borrowed equipment",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if c.log != nil {
				c.log.Close()
			}
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (YAML)")

	root.AddCommand(
		newServeCmd(c),
		newInitCmd(c),
		newSeedCmd(c),
		newDueCmd(c),
		newUserCmd(c),
	)
	return root
}

// setup loads configuration and installs the global logger.
func (c *cli) setup() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger.Logger)

	c.cfg = cfg
	c.log = logger
	return nil
}

// open builds the application from the loaded config.
func (c *cli) open(ctx context.Context) (*app.App, error) {
	a, err := app.New(ctx, c.cfg, c.log.Logger)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
