// ABOUTME: Entry point for the loopcap CLI
// ABOUTME: Wires cobra subcommands to config, logging and the capture session
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hearnow/loopcap/internal/config"
	"github.com/hearnow/loopcap/internal/logging"
	"github.com/hearnow/loopcap/internal/version"
	"github.com/hearnow/loopcap/pkg/endpoint"
	"github.com/hearnow/loopcap/pkg/loopback"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "loopcap",
	Short:         "System audio loopback capture",
	Long:          `loopcap captures what the default output device is playing and serves it as 16 kHz mono PCM`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List the capture backends compiled into this build",
	Run: func(cmd *cobra.Command, args []string) {
		def := endpoint.DefaultBackend()
		for _, name := range endpoint.Backends() {
			if name == def {
				fmt.Printf("%s (default)\n", name)
				continue
			}
			fmt.Println(name)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is "+config.Path()+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(backendsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the config, applies flag overrides, validates it and builds the
// logger. Validation problems are logged as warnings once the logger exists.
// The console writer is dropped while the TUI owns the terminal.
func setup(override func(cfg *config.Config)) (*config.Config, zerolog.Logger, io.Closer, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, zerolog.Nop(), nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if override != nil {
		override(cfg)
	}
	problems := cfg.Validate()

	var opts []logging.Option
	if cfg.Server.TUI {
		opts = append(opts, logging.WithoutConsole())
	}
	log, closer, err := logging.New(cfg.Log, opts...)
	if err != nil {
		return nil, zerolog.Nop(), nil, fmt.Errorf("set up logging: %w", err)
	}
	for _, p := range problems {
		log.Warn().Err(p).Msg("config adjusted")
	}
	return cfg, log, closer, nil
}

// newSession opens the configured endpoint and wraps it in a capture session
func newSession(cfg *config.Config, log zerolog.Logger) (*loopback.Session, error) {
	ep, err := endpoint.New(cfg.EndpointConfig(), log)
	if err != nil {
		return nil, fmt.Errorf("open endpoint: %w", err)
	}
	opts := append(cfg.SessionOptions(), loopback.WithLogger(log))
	return loopback.New(ep, opts...), nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
