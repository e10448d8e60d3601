// ABOUTME: Real-time ticker driving the synthetic backends
// ABOUTME: Calls a render function once per period until stopped
package endpoint

import "time"

// packetPeriod is the packet cadence of synthetic backends (10ms)
const packetPeriod = 10 * time.Millisecond

type pacer struct {
	stop chan struct{}
	done chan struct{}
}

// startPacer runs tick every period until halt or until tick returns false
func startPacer(period time.Duration, tick func() bool) *pacer {
	p := &pacer{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go func() {
		defer close(p.done)

		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C:
				if !tick() {
					return
				}
			}
		}
	}()

	return p
}

// halt stops the ticker goroutine and waits for it to exit
func (p *pacer) halt() {
	select {
	case <-p.stop:
	default:
		close(p.stop)
	}
	<-p.done
}
