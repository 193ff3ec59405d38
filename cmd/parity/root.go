package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/peter-kozarec/parity/internal/config"
	"github.com/peter-kozarec/parity/internal/dbg"
)

const Version = "0.3.0"

// app carries what every subcommand needs once the persistent flags are parsed.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "parity",
		Short:         "Model consistency regression runner",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a yaml config file")

	root.AddCommand(
		newListCmd(a),
		newRunCmd(a),
		newHistoryCmd(a),
		newDumpCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	logger, err := dbg.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("unable to build logger: %w", err)
	}
	a.cfg, a.logger = cfg, logger
	return nil
}
