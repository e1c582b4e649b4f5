package session

import (
	"sync"
	"time"
)

// Poller is the fallback scheduler: a recurring history re-fetch that runs
// only while the realtime channel is not connected.
//
// Each tick checks the gate; once the channel reports connected the poller
// stands down without fetching, and it resumes on the first tick after
// connectivity degrades. Fetch errors are the fetch function's problem to
// swallow; the poller retries on every eligible tick with no backoff for
// as long as it lives.
type Poller struct {
	interval time.Duration
	fetch    func()
	active   func() bool

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewPoller creates a poller that calls fetch every interval while active
// returns true.
func NewPoller(interval time.Duration, fetch func(), active func() bool) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{
		interval: interval,
		fetch:    fetch,
		active:   active,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the poller loop. Start is idempotent.
func (p *Poller) Start() {
	p.startOnce.Do(func() { go p.loop() })
}

// Stop cancels the timer and waits for the loop to exit. Stop is safe to
// call multiple times and before Start.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	// If the loop never started there is nothing to wait for.
	p.startOnce.Do(func() { close(p.doneCh) })
	<-p.doneCh
}

func (p *Poller) loop() {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			if p.active == nil || p.active() {
				p.fetch()
			}
		}
	}
}
