// ABOUTME: Scripted fake endpoint for session tests
// ABOUTME: Queues packets and failures and records every lifecycle call
package loopback

import (
	"sync"
	"time"

	"github.com/hearnow/loopcap/pkg/audio"
	"github.com/hearnow/loopcap/pkg/endpoint"
)

// fakeEndpoint scripts packets and failures for session tests
type fakeEndpoint struct {
	mu       sync.Mutex
	format   audio.Format
	openErr  error
	startErr error
	waitErrs []error
	packets  []endpoint.Packet
	released []endpoint.Packet

	openCalls  int
	startCalls int
	stopCalls  int
	closeCalls int
	waitCalls  int

	signal chan struct{}
}

func newFakeEndpoint(f audio.Format) *fakeEndpoint {
	return &fakeEndpoint{
		format: f,
		signal: make(chan struct{}, 1),
	}
}

func (e *fakeEndpoint) Name() string { return "fake" }

func (e *fakeEndpoint) Open() (audio.Format, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.openCalls++
	if e.openErr != nil {
		return audio.Format{}, e.openErr
	}
	return e.format, nil
}

func (e *fakeEndpoint) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.startCalls++
	return e.startErr
}

func (e *fakeEndpoint) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopCalls++
	return nil
}

func (e *fakeEndpoint) Wait(timeout time.Duration) (bool, error) {
	e.mu.Lock()
	e.waitCalls++
	if len(e.waitErrs) > 0 {
		err := e.waitErrs[0]
		e.waitErrs = e.waitErrs[1:]
		e.mu.Unlock()
		return false, err
	}
	e.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-e.signal:
		return true, nil
	case <-timer.C:
		return false, nil
	}
}

func (e *fakeEndpoint) Wake() {
	select {
	case e.signal <- struct{}{}:
	default:
	}
}

func (e *fakeEndpoint) NextPacket() (endpoint.Packet, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.packets) == 0 {
		return endpoint.Packet{}, false, nil
	}
	p := e.packets[0]
	e.packets = e.packets[1:]
	return p, true, nil
}

func (e *fakeEndpoint) Release(p endpoint.Packet) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.released = append(e.released, p)
}

func (e *fakeEndpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeCalls++
	return nil
}

// deliver queues packets and signals the capture loop
func (e *fakeEndpoint) deliver(ps ...endpoint.Packet) {
	e.mu.Lock()
	e.packets = append(e.packets, ps...)
	e.mu.Unlock()
	e.Wake()
}

func (e *fakeEndpoint) counts() (open, start, stop, closed, wait int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openCalls, e.startCalls, e.stopCalls, e.closeCalls, e.waitCalls
}

func (e *fakeEndpoint) releasedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.released)
}
