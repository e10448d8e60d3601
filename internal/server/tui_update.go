// ABOUTME: TUI update helpers for server
// ABOUTME: Builds status snapshots from the capture session and client list
package server

import (
	"sort"
	"time"
)

const statusInterval = 250 * time.Millisecond

// captureStatus fills the capture fields of a status snapshot
func captureStatus(capture Capture, status *ServerStatus) {
	status.State = capture.State().String()
	status.Backend = capture.EndpointName()
	if f, ok := capture.Format(); ok {
		status.Format = f.String()
	}
	status.Buffered = capture.Buffered()
	status.BufferCap = capture.BufferCap()
	status.Stats = capture.Stats()
}

// status builds the current server state for the TUI
func (s *Server) status() ServerStatus {
	st := ServerStatus{
		Name:  s.config.Name,
		Port:  s.config.Port,
		Mode:  "serve",
		Level: s.Level(),
	}
	captureStatus(s.capture, &st)

	s.clientsMu.RLock()
	st.Clients = make([]ClientInfo, 0, len(s.clients))
	for _, client := range s.clients {
		st.Clients = append(st.Clients, ClientInfo{
			Name:  client.Name,
			ID:    client.ID,
			Codec: client.Codec,
			Mode:  client.Mode(),
		})
	}
	s.clientsMu.RUnlock()

	sort.Slice(st.Clients, func(i, j int) bool {
		return st.Clients[i].Name < st.Clients[j].Name
	})
	return st
}

// updateTUI sends current server state to TUI
func (s *Server) updateTUI() {
	if s.tui == nil {
		return
	}
	s.tui.Update(s.status())
}

// statusLoop refreshes the TUI until the server stops
func (s *Server) statusLoop() {
	if s.tui == nil {
		return
	}

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.updateTUI()
		case <-s.stopChan:
			return
		}
	}
}
