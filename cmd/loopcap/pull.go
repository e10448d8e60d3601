// ABOUTME: pull subcommand, a websocket client for a running loopcap server
// ABOUTME: Pulls or streams chunks for a duration and optionally writes them to WAV
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hearnow/loopcap/internal/config"
	"github.com/hearnow/loopcap/internal/version"
	"github.com/hearnow/loopcap/pkg/discovery"
	"github.com/hearnow/loopcap/pkg/protocol"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const discoverTimeout = 5 * time.Second

var (
	pullServer   string
	pullCodec    string
	pullDuration time.Duration
	pullOut      string
	pullStream   bool
	pullChunk    int
	pullInterval time.Duration
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Connect to a loopcap server and receive audio",
	Long: `pull connects to a loopcap server, found via mDNS unless --server is given,
and receives 16 kHz mono audio by polling capture/pull or by subscribing to the stream.`,
	RunE: runPull,
}

func init() {
	pullCmd.Flags().StringVar(&pullServer, "server", "", "server host:port (skip mDNS)")
	pullCmd.Flags().StringVar(&pullCodec, "codec", "pcm", "wire codec (pcm, opus)")
	pullCmd.Flags().DurationVar(&pullDuration, "duration", 10*time.Second, "how long to receive; 0 runs until interrupted")
	pullCmd.Flags().StringVar(&pullOut, "out", "", "write received audio to this WAV file")
	pullCmd.Flags().BoolVar(&pullStream, "stream", false, "subscribe to the server stream instead of polling")
	pullCmd.Flags().IntVar(&pullChunk, "chunk", 0, "bytes per pull or stream chunk (0 uses the server default)")
	pullCmd.Flags().DurationVar(&pullInterval, "interval", 40*time.Millisecond, "poll or stream interval")
}

func runPull(cmd *cobra.Command, args []string) error {
	cfg, log, closer, err := setup(func(cfg *config.Config) {
		cfg.Server.TUI = false
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signalContext()
	defer stop()
	if pullDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, pullDuration)
		defer cancel()
	}

	addr, path := pullServer, cfg.Server.Path
	if addr == "" {
		dctx, cancel := context.WithTimeout(ctx, discoverTimeout)
		info, err := discovery.Discover(dctx)
		cancel()
		if err != nil {
			return fmt.Errorf("discover server: %w", err)
		}
		log.Info().Str("name", info.Name).Str("addr", info.Addr()).Msg("discovered server")
		addr, path = info.Addr(), info.Path
	}

	hostname, _ := os.Hostname()
	client := protocol.NewClient(protocol.Config{
		ServerAddr: addr,
		Path:       path,
		ClientID:   uuid.NewString(),
		Name:       hostname,
		Codec:      pullCodec,
		DeviceInfo: &protocol.DeviceInfo{
			ProductName:     version.Product,
			Manufacturer:    version.Manufacturer,
			SoftwareVersion: version.Version,
		},
		Logger: &log,
	})
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()

	hello := client.Hello()
	log.Info().
		Str("server", hello.Name).
		Str("backend", hello.Backend).
		Str("codec", hello.Format.Codec).
		Msg("connected")

	var sink *wavSink
	if pullOut != "" {
		sink, err = newWAVSink(pullOut, hello.Format.SampleRate, hello.Format.Channels)
		if err != nil {
			return err
		}
	}

	r := &receiver{client: client, sink: sink, log: log}
	runErr := r.run(ctx)

	_ = client.SendGoodbye("shutdown")
	if sink != nil {
		if err := sink.Close(); err != nil && runErr == nil {
			runErr = err
		}
		log.Info().Str("file", pullOut).Int("frames", sink.Frames()).Msg("wrote wav")
	}
	log.Info().
		Int("chunks", r.chunks).
		Int("pcm_bytes", r.pcmBytes).
		Int("wire_bytes", r.wireBytes).
		Msg("done")
	return runErr
}

// receiver drives one pull session against a connected client
type receiver struct {
	client *protocol.Client
	sink   *wavSink
	log    zerolog.Logger

	chunks    int
	pcmBytes  int
	wireBytes int
}

func (r *receiver) run(ctx context.Context) error {
	var poll <-chan time.Time
	if pullStream {
		if err := r.client.StartStream(pullChunk, pullInterval); err != nil {
			return fmt.Errorf("start stream: %w", err)
		}
		defer r.client.StopStream()
	} else {
		if err := r.client.StartCapture(); err != nil {
			return fmt.Errorf("start capture: %w", err)
		}
		ticker := time.NewTicker(pullInterval)
		defer ticker.Stop()
		poll = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.client.Done():
			return fmt.Errorf("server closed the connection")
		case <-poll:
			if err := r.client.Pull(pullChunk); err != nil {
				return fmt.Errorf("pull: %w", err)
			}
		case state := <-r.client.States:
			if !state.OK {
				return fmt.Errorf("capture failed: %s", state.Error)
			}
			r.log.Debug().Str("state", state.State).Msg("capture state")
		case serverErr := <-r.client.Errors:
			r.log.Warn().Str("code", serverErr.Error).Msg(serverErr.Message)
		case chunk := <-r.client.AudioChunks:
			if err := r.handle(chunk); err != nil {
				return err
			}
		}
	}
}

func (r *receiver) handle(chunk protocol.AudioChunk) error {
	r.chunks++
	r.pcmBytes += len(chunk.PCM)
	r.wireBytes += chunk.Encoded
	if r.sink == nil {
		return nil
	}
	return r.sink.Write(chunk.PCM)
}
