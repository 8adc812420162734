// Package cmd holds the inkwell command line.
package cmd

import (
	"fmt"
	"io"

	"inkwell/internal/config"
	"inkwell/internal/log"

	"github.com/spf13/cobra"
)

var version = "dev"

// options are the flags shared by every command.
type options struct {
	cfgFile string
	debug   bool
	logJSON bool
	cfg     *config.Config
}

// NewRootCmd builds the command tree. Running it without a subcommand
// starts the desktop window.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "inkwell",
		Short:         "Inkwell editor backend",
		Long:          `Inkwell keeps track of the file you are editing and serves open, save and save-as to the editor UI.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDesktop(cmd.Context(), opts.cfg)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is $HOME/.config/inkwell/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&opts.logJSON, "log-json", false, "log one JSON object per line")

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))

	return rootCmd
}

// Execute runs the command line.
func Execute() error {
	return NewRootCmd().Execute()
}

// load reads the config and sets up logging.
func (o *options) load(stderr io.Writer) error {
	var err error
	if o.cfgFile != "" {
		o.cfg, err = config.LoadConfigFile(o.cfgFile)
	} else {
		o.cfg, err = config.LoadConfig()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := o.cfg.Validate(); err != nil {
		return err
	}

	logOpts := []log.Option{log.WithOutput(stderr), log.WithLevel(o.cfg.Log.Level)}
	if o.logJSON || o.cfg.Log.JSON {
		logOpts = append(logOpts, log.WithJSON())
	}
	if o.cfg.Log.File != "" {
		logOpts = append(logOpts, log.WithFile(o.cfg.Log.File))
	}
	log.Configure(logOpts...)
	if o.debug {
		log.SetDebug(true)
	}
	return nil
}

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Open the desktop window and serve the editor UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDesktop(cmd.Context(), opts.cfg)
		},
	}
}
