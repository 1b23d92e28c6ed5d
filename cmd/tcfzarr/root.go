package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/TuSKan/tcfzarr/internal/config"
	"github.com/TuSKan/tcfzarr/store"
	"github.com/TuSKan/tcfzarr/tcf"
)

var (
	// Global flags
	cfgFile  string
	logLevel string

	cfg    *config.Config
	logger *slog.Logger

	// openContainer opens the container behind every command.
	openContainer tcf.Opener = tcf.OpenHDF5
)

var rootCmd = &cobra.Command{
	Use:   "tcfzarr",
	Short: "Read TCF containers as Zarr v2 hierarchies",
	Long: `tcfzarr is a read-only tool for tomographic cell files (TCF).

It decodes refractive-index and fluorescence frames and exposes them as a
virtual Zarr v2 / OME-NGFF v0.4 store, which can be listed, read key by key,
or exported to a bucket.

Commands:
  info      Show the series of a container
  frame     Decode one frame and print its statistics
  ls        List store keys
  get       Print the value stored under a key
  export    Copy the store into a bucket`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: tcfzarr.yaml in ., $HOME/.tcfzarr or /etc/tcfzarr)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")

	rootCmd.AddCommand(
		infoCmd,
		frameCmd,
		lsCmd,
		getCmd,
		exportCmd,
	)
}

func setup(cmd *cobra.Command, _ []string) error {
	var err error
	if cfg, err = config.Load(cfgFile); err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

func decoderOptions() []tcf.Option {
	opts := []tcf.Option{tcf.WithLogger(logger), tcf.WithOpener(openContainer)}
	if cfg.Fluorescence.CorrectedInterval {
		opts = append(opts, tcf.WithCorrectedFluorescenceInterval())
	}
	return opts
}

func openStore(path string) (*store.Store, error) {
	chunks, err := cfg.Chunks()
	if err != nil {
		return nil, err
	}
	return store.New(path,
		store.WithChunkSize(chunks),
		store.WithLogger(logger),
		store.WithDecoderOptions(decoderOptions()...),
	)
}
