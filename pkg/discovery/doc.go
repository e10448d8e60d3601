// ABOUTME: mDNS service discovery package
// ABOUTME: Discover and advertise loopcap servers on the local network
// Package discovery provides mDNS service discovery for loopcap servers.
//
// Servers advertise _loopcap._tcp with a path TXT record; pull clients
// browse for it when no address is given.
//
// Example:
//
//	server, err := discovery.Discover(ctx)
//	if err == nil {
//	    fmt.Printf("Found: %s at %s\n", server.Name, server.Addr())
//	}
package discovery
