// ABOUTME: Local capture monitor without networking
// ABOUTME: Pulls from the capture session on a fixed tick and shows levels in the TUI
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/hearnow/loopcap/internal/meter"
	"github.com/rs/zerolog"
)

// MonitorInterval is how often the monitor pulls from the session
const MonitorInterval = 40 * time.Millisecond

// Monitor drains a capture session locally and meters what it gets
type Monitor struct {
	name    string
	capture Capture
	log     zerolog.Logger
	useTUI  bool
	meter   *meter.Meter
	level   meter.Reading
	pulled  uint64
}

// NewMonitor creates a monitor; without a TUI the level is logged instead
func NewMonitor(name string, capture Capture, useTUI bool, log zerolog.Logger) *Monitor {
	return &Monitor{
		name:    name,
		capture: capture,
		log:     log.With().Str("component", "monitor").Logger(),
		useTUI:  useTUI,
		meter:   meter.New(meter.DefaultBands),
	}
}

// Run starts capture and monitors until ctx is done or the TUI quits
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.capture.Start(); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}
	defer m.capture.Stop()

	var tui *ServerTUI
	var quit <-chan struct{}
	tuiErr := make(chan error, 1)
	if m.useTUI {
		tui = NewServerTUI()
		quit = tui.QuitChan()
		go func() {
			tuiErr <- tui.Start(m.Status())
		}()
		defer tui.Stop()
	}

	ticker := time.NewTicker(MonitorInterval)
	defer ticker.Stop()

	lastLog := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-quit:
			return nil
		case err := <-tuiErr:
			return err
		case <-ticker.C:
			m.Step()
			if tui != nil {
				tui.Update(m.Status())
			} else if time.Since(lastLog) >= time.Second {
				lastLog = time.Now()
				m.log.Info().
					Float64("dbfs", m.level.DBFS).
					Float64("peak", m.level.Peak).
					Int("buffered", m.capture.Buffered()).
					Uint64("pulled", m.pulled).
					Msg("level")
			}
		}
	}
}

// Step pulls everything buffered once and updates the meter
func (m *Monitor) Step() meter.Reading {
	pcm := m.capture.PullChunk(m.capture.Buffered() &^ 1)
	if len(pcm) > 0 {
		m.pulled += uint64(len(pcm))
		m.level = m.meter.Measure(pcm)
	}
	return m.level
}

// Status returns the monitor's current view
func (m *Monitor) Status() ServerStatus {
	st := ServerStatus{
		Name:  m.name,
		Mode:  "monitor",
		Level: m.level,
	}
	captureStatus(m.capture, &st)
	return st
}
