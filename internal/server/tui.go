// ABOUTME: Server TUI for displaying capture state, levels and clients
// ABOUTME: Real-time status display using bubbletea, shared by serve and monitor
package server

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hearnow/loopcap/internal/meter"
	"github.com/hearnow/loopcap/pkg/loopback"
)

// ServerTUI manages the server TUI
type ServerTUI struct {
	program  *tea.Program
	ready    chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	updates  chan ServerStatus
	quitChan chan struct{} // Signal to stop the server
}

// ServerStatus holds server state for TUI
type ServerStatus struct {
	Name      string
	Port      int // zero in monitor mode
	Mode      string
	State     string
	Backend   string
	Format    string
	Buffered  int
	BufferCap int
	Stats     loopback.Stats
	Level     meter.Reading
	Clients   []ClientInfo
}

// ClientInfo holds client information for display
type ClientInfo struct {
	Name  string
	ID    string
	Codec string
	Mode  string
}

// tuiModel is the bubbletea model for server TUI
type tuiModel struct {
	status    ServerStatus
	startTime time.Time
	quitting  bool
	quitChan  chan struct{} // Channel to signal server stop
}

type tickMsg time.Time
type statusMsg ServerStatus

var spectrumGlyphs = []rune(" ▁▂▃▄▅▆▇█")

func (m tuiModel) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.quitting = true
			select {
			case m.quitChan <- struct{}{}:
			default:
			}
			return m, tea.Quit
		}

	case tickMsg:
		return m, tickEvery()

	case statusMsg:
		m.status = ServerStatus(msg)
		return m, nil
	}

	return m, nil
}

func (m tuiModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86"))

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250"))

	meterStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	clientHeaderStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("220"))

	st := m.status
	var b strings.Builder

	title := "Loopcap Server"
	if st.Mode == "monitor" {
		title = "Loopcap Monitor"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(headerStyle.Render(label + ": "))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}

	row("Name", st.Name)
	if st.Port > 0 {
		row("Port", fmt.Sprintf("%d", st.Port))
	}
	row("Uptime", time.Since(m.startTime).Round(time.Second).String())
	b.WriteString("\n")

	row("Capture", st.State)
	row("Backend", st.Backend)
	format := st.Format
	if format == "" {
		format = "not initialized"
	}
	row("Format", format)

	fill := 0.0
	if st.BufferCap > 0 {
		fill = float64(st.Buffered) / float64(st.BufferCap)
	}
	row("Buffer", fmt.Sprintf("%s %d/%d bytes", bar(fill, 20), st.Buffered, st.BufferCap))
	row("Packets", fmt.Sprintf("%d (%d silent, %d dropped, %d failed)",
		st.Stats.Packets, st.Stats.SilentPackets, st.Stats.DroppedPackets, st.Stats.ConversionFailures))
	row("Evicted", fmt.Sprintf("%d bytes", st.Stats.BytesEvicted))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Level: "))
	b.WriteString(meterStyle.Render(bar(levelFill(st.Level.DBFS), 30)))
	b.WriteString(valueStyle.Render(fmt.Sprintf(" %5.1f dBFS  peak %.2f", st.Level.DBFS, st.Level.Peak)))
	b.WriteString("\n")
	b.WriteString(headerStyle.Render("Spectrum: "))
	b.WriteString(meterStyle.Render(spectrum(st.Level.Bands)))
	b.WriteString("\n\n")

	if st.Mode != "monitor" {
		b.WriteString(clientHeaderStyle.Render(fmt.Sprintf("Connected Clients (%d)", len(st.Clients))))
		b.WriteString("\n\n")

		if len(st.Clients) == 0 {
			b.WriteString(valueStyle.Render("  No clients connected"))
			b.WriteString("\n")
		} else {
			for _, client := range st.Clients {
				b.WriteString(fmt.Sprintf("  • %s", client.Name))
				b.WriteString(valueStyle.Render(fmt.Sprintf(" (%s, %s)", client.Codec, client.Mode)))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(lipgloss.NewStyle().Faint(true).Render("Press 'q' or Ctrl+C to quit"))

	return b.String()
}

// bar renders fill in [0, 1] as a fixed-width bar
func bar(fill float64, width int) string {
	n := int(math.Round(math.Min(math.Max(fill, 0), 1) * float64(width)))
	return "[" + strings.Repeat("#", n) + strings.Repeat(" ", width-n) + "]"
}

// levelFill maps -60..0 dBFS to [0, 1]
func levelFill(dbfs float64) float64 {
	return (dbfs + 60) / 60
}

// spectrum renders band magnitudes as block glyphs
func spectrum(bands []float64) string {
	out := make([]rune, len(bands))
	top := len(spectrumGlyphs) - 1
	for i, v := range bands {
		idx := int(math.Round(math.Min(math.Max(v, 0), 1) * float64(top)))
		out[i] = spectrumGlyphs[idx]
	}
	return string(out)
}

// NewServerTUI creates a new server TUI
func NewServerTUI() *ServerTUI {
	return &ServerTUI{
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
		updates:  make(chan ServerStatus, 10),
		quitChan: make(chan struct{}, 1),
	}
}

// Start runs the TUI until it quits
func (t *ServerTUI) Start(initial ServerStatus) error {
	m := tuiModel{
		status:    initial,
		startTime: time.Now(),
		quitChan:  t.quitChan,
	}

	t.program = tea.NewProgram(m, tea.WithAltScreen())
	close(t.ready)

	go func() {
		for {
			select {
			case status := <-t.updates:
				t.program.Send(statusMsg(status))
			case <-t.done:
				return
			}
		}
	}()

	_, err := t.program.Run()
	return err
}

// Update sends a status update to the TUI
func (t *ServerTUI) Update(status ServerStatus) {
	select {
	case <-t.done:
	case t.updates <- status:
	default:
		// Don't block if channel is full
	}
}

// Stop stops the TUI
func (t *ServerTUI) Stop() {
	t.stopOnce.Do(func() {
		close(t.done)
		select {
		case <-t.ready:
			t.program.Quit()
		case <-time.After(time.Second):
		}
	})
}

// QuitChan returns the channel that signals when user wants to quit
func (t *ServerTUI) QuitChan() <-chan struct{} {
	return t.quitChan
}
