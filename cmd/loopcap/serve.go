// ABOUTME: serve and monitor subcommands
// ABOUTME: Run the capture session behind the websocket server or locally with a level view
package main

import (
	"fmt"

	"github.com/hearnow/loopcap/internal/config"
	"github.com/hearnow/loopcap/internal/server"
	"github.com/hearnow/loopcap/internal/version"
	"github.com/spf13/cobra"
)

var (
	servePort    int
	serveName    string
	serveNoMDNS  bool
	serveNoTUI   bool
	monitorNoTUI bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Capture system audio and serve it over websocket",
	RunE:  runServe,
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Capture locally and show levels without networking",
	RunE:  runMonitor,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "websocket port (overrides server.port)")
	serveCmd.Flags().StringVar(&serveName, "name", "", "server friendly name (overrides server.name)")
	serveCmd.Flags().BoolVar(&serveNoMDNS, "no-mdns", false, "disable mDNS advertisement")
	serveCmd.Flags().BoolVar(&serveNoTUI, "no-tui", false, "disable the TUI and log to the console")

	monitorCmd.Flags().BoolVar(&monitorNoTUI, "no-tui", false, "log levels instead of showing the TUI")
}

func serverConfig(cfg *config.Config) server.Config {
	return server.Config{
		Port:        cfg.Server.Port,
		Name:        cfg.Server.Name,
		Path:        cfg.Server.Path,
		EnableMDNS:  cfg.Server.MDNS,
		UseTUI:      cfg.Server.TUI,
		Autostart:   cfg.Capture.Autostart,
		Codec:       cfg.Stream.Codec,
		ChunkBytes:  cfg.Stream.ChunkBytes,
		Interval:    cfg.Stream.Interval,
		OpusBitrate: cfg.Stream.OpusBitrate,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, closer, err := setup(func(cfg *config.Config) {
		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if serveName != "" {
			cfg.Server.Name = serveName
		}
		if serveNoMDNS {
			cfg.Server.MDNS = false
		}
		if serveNoTUI {
			cfg.Server.TUI = false
		}
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	session, err := newSession(cfg, log)
	if err != nil {
		return err
	}
	defer session.Close()

	log.Info().
		Str("version", version.Version).
		Str("name", cfg.Server.Name).
		Int("port", cfg.Server.Port).
		Str("backend", session.EndpointName()).
		Msg("starting loopcap server")

	srv := server.New(serverConfig(cfg), session, log)

	ctx, stop := signalContext()
	defer stop()
	go func() {
		<-ctx.Done()
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, log, closer, err := setup(func(cfg *config.Config) {
		if monitorNoTUI {
			cfg.Server.TUI = false
		}
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	session, err := newSession(cfg, log)
	if err != nil {
		return err
	}
	defer session.Close()

	ctx, stop := signalContext()
	defer stop()

	mon := server.NewMonitor(cfg.Server.Name, session, cfg.Server.TUI, log)
	return mon.Run(ctx)
}
