package sse

import (
	"sync"
	"time"

	"github.com/FreePeak/golang-sse-sdk/internal/infrastructure/logging"
)

// KeepAliveScheduler periodically asks the registry to send a comment frame
// to every connected client so idle connections survive intermediary
// timeouts.
//
// Stopping the scheduler only stops the timer; connected clients stay
// registered and open. Disconnecting clients is a separate, explicit
// operation on the registry.
type KeepAliveScheduler struct {
	registry *Registry
	interval time.Duration
	logger   *logging.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewKeepAliveScheduler creates a scheduler ticking at the given interval.
// A non-positive interval falls back to DefaultKeepAliveInterval.
func NewKeepAliveScheduler(registry *Registry, interval time.Duration, logger *logging.Logger) *KeepAliveScheduler {
	if interval <= 0 {
		interval = DefaultKeepAliveInterval
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &KeepAliveScheduler{
		registry: registry,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the background timer goroutine.
func (k *KeepAliveScheduler) Start() {
	k.wg.Add(1)
	go k.run()
	k.logger.Debug("keep-alive scheduler started", logging.Fields{"interval": k.interval.String()})
}

// Stop halts the timer. It is idempotent and returns after the background
// goroutine has exited.
func (k *KeepAliveScheduler) Stop() {
	k.stopOnce.Do(func() {
		close(k.stopCh)
	})
	k.wg.Wait()
}

func (k *KeepAliveScheduler) run() {
	defer k.wg.Done()

	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			attempted := k.registry.SendKeepAlives()
			if attempted > 0 {
				k.logger.Debug("keep-alive sent", logging.Fields{"clients": attempted})
			}
		case <-k.stopCh:
			k.logger.Debug("keep-alive scheduler stopped")
			return
		}
	}
}
