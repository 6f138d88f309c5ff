// Command rollcall sends each person in an attendance sheet a WhatsApp
// message listing their absences for the period.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"rollcall/internal/config"
	"rollcall/internal/logging"
)

var version = "dev"

// app carries the state shared by the commands of one invocation.
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	cfgErr error
	log    *logging.Logger
	runID  string
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{log: logging.Nop()}

	root := &cobra.Command{
		Use:   "rollcall",
		Short: "Send attendance reports over WhatsApp Web",
		Long: `rollcall reads an attendance sheet (Google Sheets, XLSX or CSV), works out
which tracked days each person missed and sends them a WhatsApp message
through a logged-in WhatsApp Web session.

Run without a subcommand to perform a full delivery run.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE:              a.runDelivery,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "config/config.yaml", "Configuration file (YAML or JSON)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Fetch the sheet and deliver every message",
			Args:  cobra.NoArgs,
			RunE:  a.runDelivery,
		},
		newPreviewCmd(a),
		&cobra.Command{
			Use:   "login",
			Short: "Open WhatsApp Web in the saved profile and wait for the QR code scan",
			Args:  cobra.NoArgs,
			RunE:  a.runLogin,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintf(cmd.OutOrStdout(), "rollcall %s\n", version)
				return nil
			},
		},
	)
	return root, a
}

// setup reads the configuration file and builds the run logger. A config
// that fails to read is remembered; commands that need it report the error.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	a.cfg, a.cfgErr = config.Read(a.configPath)
	logCfg := config.DefaultConfig().Logging
	if a.cfgErr == nil {
		logCfg = a.cfg.Logging
	}

	level, err := logCfg.ZapLevel()
	if err != nil {
		level = zapcore.InfoLevel
	}
	if a.verbose {
		level = zapcore.DebugLevel
	}

	a.runID = uuid.NewString()
	log, err := logging.New(logging.Options{
		File:    logCfg.File,
		Level:   level,
		Console: logCfg.Console,
		Writer:  cmd.ErrOrStderr(),
		RunID:   a.runID,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.log = log
	a.log.Debug("starting", zap.String("command", cmd.CommandPath()), zap.String("config", a.configPath))
	return nil
}

// config returns the validated configuration.
func (a *app) config() (*config.Config, error) {
	if a.cfgErr != nil {
		a.log.Event(logging.StatusCritical, "Configuration error: "+a.cfgErr.Error())
		return nil, a.cfgErr
	}
	if err := a.cfg.Validate(); err != nil {
		a.log.Event(logging.StatusCritical, "Configuration error: "+err.Error())
		return nil, err
	}
	return a.cfg, nil
}

// browserConfig returns the configuration for commands that only drive the
// browser; a missing file falls back to the defaults.
func (a *app) browserConfig() (*config.Config, error) {
	if a.cfgErr == nil {
		return a.cfg, nil
	}
	if errors.Is(a.cfgErr, fs.ErrNotExist) {
		a.log.Event(logging.StatusWarning, "No configuration file, using default browser settings",
			zap.String("config", a.configPath))
		return config.DefaultConfig(), nil
	}
	a.log.Event(logging.StatusCritical, "Configuration error: "+a.cfgErr.Error())
	return nil, a.cfgErr
}

func (a *app) close() {
	_ = a.log.Close()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	root, a := newRootCmd()
	err := root.ExecuteContext(ctx)
	a.close()
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
