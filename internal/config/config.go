// ABOUTME: Viper-backed configuration for the loopcap command
// ABOUTME: Loads loopcap.yaml from the platform config dir or cwd with LOOPCAP_ env overrides
package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/hearnow/loopcap/pkg/audio/encode"
	"github.com/hearnow/loopcap/pkg/endpoint"
	"github.com/hearnow/loopcap/pkg/loopback"
	"github.com/spf13/viper"
)

const (
	appName    = "loopcap"
	envPrefix  = "LOOPCAP"
	configName = "loopcap"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Capture  CaptureConfig  `mapstructure:"capture"`
	Endpoint EndpointConfig `mapstructure:"endpoint"`
	Stream   StreamConfig   `mapstructure:"stream"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Name string `mapstructure:"name"`
	MDNS bool   `mapstructure:"mdns"`
	TUI  bool   `mapstructure:"tui"`
	Path string `mapstructure:"path"`
}

type CaptureConfig struct {
	BufferBytes int           `mapstructure:"buffer_bytes"`
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`
	Autostart   bool          `mapstructure:"autostart"`
}

type EndpointConfig struct {
	Backend      string          `mapstructure:"backend"`
	QueuePackets int             `mapstructure:"queue_packets"`
	Tone         ToneConfig      `mapstructure:"tone"`
	Replay       ReplayConfig    `mapstructure:"replay"`
	PortAudio    PortAudioConfig `mapstructure:"portaudio"`
}

type ToneConfig struct {
	Frequency  float64 `mapstructure:"frequency"`
	Amplitude  float64 `mapstructure:"amplitude"`
	SampleRate int     `mapstructure:"sample_rate"`
	Channels   int     `mapstructure:"channels"`
	Float      bool    `mapstructure:"float"`
}

type ReplayConfig struct {
	Path string `mapstructure:"path"`
	Loop bool   `mapstructure:"loop"`
}

type PortAudioConfig struct {
	Device string `mapstructure:"device"`
}

type StreamConfig struct {
	Codec       string        `mapstructure:"codec"`
	ChunkBytes  int           `mapstructure:"chunk_bytes"`
	Interval    time.Duration `mapstructure:"interval"`
	OpusBitrate int           `mapstructure:"opus_bitrate"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	// File is the log file path; empty uses the platform state dir and
	// "off" disables file logging
	File string `mapstructure:"file"`
}

// LogFileOff disables file logging when used as LogConfig.File
const LogFileOff = "off"

func Default() *Config {
	hostname, _ := os.Hostname()
	name := "loopcap"
	if hostname != "" {
		name = "loopcap@" + hostname
	}

	return &Config{
		Server: ServerConfig{
			Port: 8927,
			Name: name,
			MDNS: true,
			TUI:  true,
			Path: "/loopcap",
		},
		Capture: CaptureConfig{
			BufferBytes: loopback.DefaultBufferBytes,
			WaitTimeout: loopback.DefaultWaitTimeout,
		},
		Endpoint: EndpointConfig{
			Backend:      endpoint.BackendAuto,
			QueuePackets: endpoint.DefaultQueuePackets,
			Tone: ToneConfig{
				Frequency:  440,
				Amplitude:  0.5,
				SampleRate: 48000,
				Channels:   2,
				Float:      true,
			},
			Replay: ReplayConfig{Loop: true},
		},
		Stream: StreamConfig{
			Codec:      encode.CodecPCM,
			ChunkBytes: loopback.DefaultChunkBytes,
			Interval:   40 * time.Millisecond,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads cfgFile, or loopcap.yaml from the search path when cfgFile is
// empty. A missing default file is not an error.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()
	v := newViper(cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newViper returns a viper instance seeded with every key of cfg so that
// LOOPCAP_* environment variables resolve for all of them
func newViper(cfg *Config) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range settings(cfg) {
		v.SetDefault(key, value)
	}
	return v
}

func settings(cfg *Config) map[string]any {
	return map[string]any{
		"server.port":               cfg.Server.Port,
		"server.name":               cfg.Server.Name,
		"server.mdns":               cfg.Server.MDNS,
		"server.tui":                cfg.Server.TUI,
		"server.path":               cfg.Server.Path,
		"capture.buffer_bytes":      cfg.Capture.BufferBytes,
		"capture.wait_timeout":      cfg.Capture.WaitTimeout.String(),
		"capture.autostart":         cfg.Capture.Autostart,
		"endpoint.backend":          cfg.Endpoint.Backend,
		"endpoint.queue_packets":    cfg.Endpoint.QueuePackets,
		"endpoint.tone.frequency":   cfg.Endpoint.Tone.Frequency,
		"endpoint.tone.amplitude":   cfg.Endpoint.Tone.Amplitude,
		"endpoint.tone.sample_rate": cfg.Endpoint.Tone.SampleRate,
		"endpoint.tone.channels":    cfg.Endpoint.Tone.Channels,
		"endpoint.tone.float":       cfg.Endpoint.Tone.Float,
		"endpoint.replay.path":      cfg.Endpoint.Replay.Path,
		"endpoint.replay.loop":      cfg.Endpoint.Replay.Loop,
		"endpoint.portaudio.device": cfg.Endpoint.PortAudio.Device,
		"stream.codec":              cfg.Stream.Codec,
		"stream.chunk_bytes":        cfg.Stream.ChunkBytes,
		"stream.interval":           cfg.Stream.Interval.String(),
		"stream.opus_bitrate":       cfg.Stream.OpusBitrate,
		"log.level":                 cfg.Log.Level,
		"log.file":                  cfg.Log.File,
	}
}

func Save(cfg *Config) error {
	return SaveTo(cfg, "")
}

func SaveTo(cfg *Config, cfgFile string) error {
	v := viper.New()
	for key, value := range settings(cfg) {
		v.Set(key, value)
	}

	var cfgPath string
	if cfgFile != "" {
		cfgPath = cfgFile
		dir := filepath.Dir(cfgPath)
		if dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
	} else {
		cfgPath = filepath.Join(configDir(), configName+".yaml")
		if err := os.MkdirAll(configDir(), 0o755); err != nil {
			return err
		}
	}

	return v.WriteConfigAs(cfgPath)
}

// EndpointConfig converts the endpoint section to the device layer's config
func (c *Config) EndpointConfig() endpoint.Config {
	e := c.Endpoint
	return endpoint.Config{
		Backend:      e.Backend,
		QueuePackets: e.QueuePackets,
		Tone: endpoint.ToneConfig{
			Frequency:  e.Tone.Frequency,
			Amplitude:  e.Tone.Amplitude,
			SampleRate: e.Tone.SampleRate,
			Channels:   e.Tone.Channels,
			Float:      e.Tone.Float,
		},
		Replay: endpoint.ReplayConfig{
			Path: e.Replay.Path,
			Loop: e.Replay.Loop,
		},
		PortAudio: endpoint.PortAudioConfig{
			Device: e.PortAudio.Device,
		},
	}
}

// SessionOptions converts the capture section to session options
func (c *Config) SessionOptions() []loopback.Option {
	return []loopback.Option{
		loopback.WithBufferSize(c.Capture.BufferBytes),
		loopback.WithWaitTimeout(c.Capture.WaitTimeout),
	}
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), appName)
	case "darwin":
		return filepath.Join(os.Getenv("HOME"), "Library", "Application Support", appName)
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName)
		}
		return filepath.Join(os.Getenv("HOME"), ".config", appName)
	}
}

// Path returns the default config file location
func Path() string {
	return filepath.Join(configDir(), configName+".yaml")
}
