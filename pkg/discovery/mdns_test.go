// ABOUTME: Tests for mDNS service discovery
// ABOUTME: Validates Manager creation, lifecycle and service entry parsing
package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/hashicorp/mdns"
)

func TestNewManager(t *testing.T) {
	config := Config{
		ServiceName: "test-service",
		Port:        8927,
		Path:        "/loopcap",
	}

	manager := NewManager(config)

	if manager == nil {
		t.Fatal("NewManager returned nil")
	}

	if manager.config.ServiceName != "test-service" {
		t.Errorf("Expected ServiceName 'test-service', got '%s'", manager.config.ServiceName)
	}

	if manager.config.Port != 8927 {
		t.Errorf("Expected Port 8927, got %d", manager.config.Port)
	}

	if manager.servers == nil {
		t.Error("servers channel should not be nil")
	}

	manager.Stop()
}

func TestManagerServersChannel(t *testing.T) {
	manager := NewManager(Config{ServiceName: "test", Port: 8927})
	defer manager.Stop()

	serversChan := manager.Servers()

	if serversChan == nil {
		t.Fatal("Servers() returned nil channel")
	}
}

func TestManagerStop(t *testing.T) {
	manager := NewManager(Config{ServiceName: "test", Port: 8927})

	manager.Stop()

	select {
	case <-manager.ctx.Done():
	case <-time.After(100 * time.Millisecond):
		t.Error("Context should be cancelled after Stop()")
	}
}

func TestGetLocalIPs(t *testing.T) {
	ips, err := getLocalIPs()
	if err != nil {
		t.Fatalf("getLocalIPs failed: %v", err)
	}

	// Environment-dependent: only check what comes back
	for _, ip := range ips {
		if ip.To4() == nil {
			t.Errorf("getLocalIPs returned non-IPv4 address: %v", ip)
		}
		if ip.IsLoopback() {
			t.Errorf("getLocalIPs returned loopback address: %v", ip)
		}
	}
}

func TestServerFromEntry(t *testing.T) {
	entry := &mdns.ServiceEntry{
		Name:       "studio._loopcap._tcp.local.",
		AddrV4:     net.IPv4(192, 168, 1, 100),
		Port:       8927,
		InfoFields: []string{"version=1", "path=/loopcap"},
	}

	server := serverFromEntry(entry)
	if server == nil {
		t.Fatal("expected server info")
	}
	if server.Name != "studio" {
		t.Errorf("Expected Name 'studio', got '%s'", server.Name)
	}
	if server.Path != "/loopcap" {
		t.Errorf("Expected Path '/loopcap', got '%s'", server.Path)
	}
	if server.Addr() != "192.168.1.100:8927" {
		t.Errorf("Expected Addr '192.168.1.100:8927', got '%s'", server.Addr())
	}
}

func TestServerFromEntrySkips(t *testing.T) {
	tests := []struct {
		name  string
		entry *mdns.ServiceEntry
	}{
		{"nil", nil},
		{"no ipv4", &mdns.ServiceEntry{Name: "x._loopcap._tcp.local.", Port: 1}},
		{"other service", &mdns.ServiceEntry{Name: "x._http._tcp.local.", AddrV4: net.IPv4(10, 0, 0, 1), Port: 80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if server := serverFromEntry(tt.entry); server != nil {
				t.Errorf("expected nil, got %+v", server)
			}
		})
	}
}

func TestTXTRecords(t *testing.T) {
	if got := txtRecords(""); got != nil {
		t.Errorf("expected no records, got %v", got)
	}
	got := txtRecords("/loopcap")
	if len(got) != 1 || got[0] != "path=/loopcap" {
		t.Errorf("unexpected records: %v", got)
	}
}
