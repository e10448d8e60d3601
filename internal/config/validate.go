// ABOUTME: Config validation for the loopcap command
// ABOUTME: Clamps values that would break capture and reports each adjustment
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hearnow/loopcap/pkg/audio/encode"
	"github.com/hearnow/loopcap/pkg/endpoint"
	"github.com/hearnow/loopcap/pkg/loopback"
)

var validLogLevels = map[string]bool{
	"trace":   true,
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

const (
	minBufferBytes  = 2
	maxBufferBytes  = 16 << 20
	minWaitTimeout  = 100 * time.Millisecond
	maxWaitTimeout  = 60 * time.Second
	minInterval     = 10 * time.Millisecond
	maxInterval     = time.Second
	minQueuePackets = 4
	maxQueuePackets = 4096
	minOpusBitrate  = 6000
	maxOpusBitrate  = 510000
)

// Validate checks the config for invalid values and returns all errors found.
// Values that would break the capture pipeline are clamped to safe ones;
// the caller logs the returned errors as warnings.
func (c *Config) Validate() []error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range, using 8927", c.Server.Port))
		c.Server.Port = 8927
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		errs = append(errs, fmt.Errorf("server.path %q must start with /, using /loopcap", c.Server.Path))
		c.Server.Path = "/loopcap"
	}

	// The ring buffer holds whole 16-bit samples
	if c.Capture.BufferBytes < minBufferBytes {
		errs = append(errs, fmt.Errorf("capture.buffer_bytes %d is below minimum %d, using %d", c.Capture.BufferBytes, minBufferBytes, loopback.DefaultBufferBytes))
		c.Capture.BufferBytes = loopback.DefaultBufferBytes
	} else if c.Capture.BufferBytes > maxBufferBytes {
		errs = append(errs, fmt.Errorf("capture.buffer_bytes %d exceeds maximum %d, clamping", c.Capture.BufferBytes, maxBufferBytes))
		c.Capture.BufferBytes = maxBufferBytes
	} else if c.Capture.BufferBytes%2 != 0 {
		errs = append(errs, fmt.Errorf("capture.buffer_bytes %d is odd, rounding down", c.Capture.BufferBytes))
		c.Capture.BufferBytes--
	}

	if c.Capture.WaitTimeout < minWaitTimeout {
		errs = append(errs, fmt.Errorf("capture.wait_timeout %s is below minimum %s, clamping", c.Capture.WaitTimeout, minWaitTimeout))
		c.Capture.WaitTimeout = minWaitTimeout
	} else if c.Capture.WaitTimeout > maxWaitTimeout {
		errs = append(errs, fmt.Errorf("capture.wait_timeout %s exceeds maximum %s, clamping", c.Capture.WaitTimeout, maxWaitTimeout))
		c.Capture.WaitTimeout = maxWaitTimeout
	}

	if !endpoint.Known(c.Endpoint.Backend) {
		errs = append(errs, fmt.Errorf("unknown endpoint.backend %q (known: %s), using auto", c.Endpoint.Backend, strings.Join(endpoint.Backends(), ", ")))
		c.Endpoint.Backend = endpoint.BackendAuto
	}
	if c.Endpoint.QueuePackets < minQueuePackets {
		errs = append(errs, fmt.Errorf("endpoint.queue_packets %d is below minimum %d, clamping", c.Endpoint.QueuePackets, minQueuePackets))
		c.Endpoint.QueuePackets = minQueuePackets
	} else if c.Endpoint.QueuePackets > maxQueuePackets {
		errs = append(errs, fmt.Errorf("endpoint.queue_packets %d exceeds maximum %d, clamping", c.Endpoint.QueuePackets, maxQueuePackets))
		c.Endpoint.QueuePackets = maxQueuePackets
	}
	if c.Endpoint.Tone.Amplitude < 0 || c.Endpoint.Tone.Amplitude > 1 {
		errs = append(errs, fmt.Errorf("endpoint.tone.amplitude %g outside [0, 1], clamping", c.Endpoint.Tone.Amplitude))
		c.Endpoint.Tone.Amplitude = min(max(c.Endpoint.Tone.Amplitude, 0), 1)
	}
	if c.Endpoint.Backend == endpoint.BackendReplay && c.Endpoint.Replay.Path == "" {
		errs = append(errs, fmt.Errorf("endpoint.replay.path is required for the replay backend"))
	}

	codec := strings.ToLower(c.Stream.Codec)
	switch codec {
	case encode.CodecPCM, encode.CodecOpus:
		c.Stream.Codec = codec
	default:
		errs = append(errs, fmt.Errorf("unknown stream.codec %q, using %s", c.Stream.Codec, encode.CodecPCM))
		c.Stream.Codec = encode.CodecPCM
	}

	if c.Stream.ChunkBytes <= 0 {
		errs = append(errs, fmt.Errorf("stream.chunk_bytes %d must be positive, using %d", c.Stream.ChunkBytes, loopback.DefaultChunkBytes))
		c.Stream.ChunkBytes = loopback.DefaultChunkBytes
	} else if c.Stream.ChunkBytes%2 != 0 {
		errs = append(errs, fmt.Errorf("stream.chunk_bytes %d is odd, rounding up", c.Stream.ChunkBytes))
		c.Stream.ChunkBytes++
	}

	if c.Stream.Interval < minInterval {
		errs = append(errs, fmt.Errorf("stream.interval %s is below minimum %s, clamping", c.Stream.Interval, minInterval))
		c.Stream.Interval = minInterval
	} else if c.Stream.Interval > maxInterval {
		errs = append(errs, fmt.Errorf("stream.interval %s exceeds maximum %s, clamping", c.Stream.Interval, maxInterval))
		c.Stream.Interval = maxInterval
	}

	// Zero keeps the encoder default
	if c.Stream.OpusBitrate != 0 && (c.Stream.OpusBitrate < minOpusBitrate || c.Stream.OpusBitrate > maxOpusBitrate) {
		errs = append(errs, fmt.Errorf("stream.opus_bitrate %d outside [%d, %d], using encoder default", c.Stream.OpusBitrate, minOpusBitrate, maxOpusBitrate))
		c.Stream.OpusBitrate = 0
	}

	if c.Log.Level != "" && !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Errorf("log.level %q is not valid (use trace, debug, info, warn, error), using info", c.Log.Level))
		c.Log.Level = "info"
	}

	return errs
}
