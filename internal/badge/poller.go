package badge

import (
	"context"
	"sync"
	"time"

	"hubdeck/internal/logger"
)

// Poller re-runs the refresh on a fixed interval.
type Poller struct {
	refresher *Refresher
	interval  time.Duration

	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

func NewPoller(r *Refresher, interval time.Duration) *Poller {
	return &Poller{refresher: r, interval: interval}
}

func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Start blocks until Stop is called or ctx ends. A non-positive interval
// makes it return immediately.
func (p *Poller) Start(ctx context.Context) {
	if p.interval <= 0 {
		logger.Badge.Info().Msg("badge polling disabled")
		return
	}
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
		close(doneCh)
	}()

	logger.Badge.Info().Dur("interval", p.interval).Msg("badge poller started")

	p.tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.tick(ctx)
		case <-stopCh:
			logger.Badge.Info().Msg("badge poller stopped")
			return
		case <-ctx.Done():
			logger.Badge.Info().Msg("badge poller stopped")
			return
		}
	}
}

// Stop ends the loop and waits for an in-flight tick to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running || p.stopCh == nil {
		p.mu.Unlock()
		return
	}
	close(p.stopCh)
	p.stopCh = nil
	doneCh := p.doneCh
	p.mu.Unlock()
	<-doneCh
}

func (p *Poller) tick(ctx context.Context) {
	if _, err := p.refresher.Refresh(ctx, TriggerPoll); err != nil {
		logger.Badge.Debug().Err(err).Msg("poll skipped")
	}
}
