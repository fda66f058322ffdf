package sweeper

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/harborlist/harborlist/internal/pkg/env"
)

const defaultSweepInterval = 15 * time.Minute

// Manager runs the sweeper on a fixed interval as a background task.
type Manager struct {
	sweeper  *Sweeper
	interval time.Duration
	ticker   *time.Ticker
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool

	lastMu     sync.RWMutex
	lastReport *SweepReport
}

// NewManager creates a sweep manager. The interval comes from
// SWEEP_INTERVAL_MINUTES, falling back to 15 minutes.
func NewManager(sweeper *Sweeper) *Manager {
	interval := defaultSweepInterval
	if raw := env.GetEnv("SWEEP_INTERVAL_MINUTES", ""); raw != "" {
		if minutes, err := strconv.Atoi(raw); err == nil && minutes > 0 {
			interval = time.Duration(minutes) * time.Minute
		}
	}
	return &Manager{
		sweeper:  sweeper,
		interval: interval,
	}
}

// Start begins the periodic sweep. Safe to call more than once.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate the stop channel each cycle so the manager can be restarted.
	m.stopCh = make(chan struct{})
	m.running = true
	m.ticker = time.NewTicker(m.interval)

	log.Infof("[Sweeper Manager] Starting expiration sweep every %s", m.interval)

	m.wg.Add(1)
	go m.sweepWorker()
}

// Stop halts the periodic sweep and waits for an in-flight run to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[Sweeper Manager] Stopping expiration sweep...")

	m.ticker.Stop()
	close(m.stopCh)
	m.running = false

	m.wg.Wait()
	log.Info("[Sweeper Manager] Stopped")
}

// TriggerSweep runs one sweep immediately, outside the schedule. Used by the
// administrative endpoint.
func (m *Manager) TriggerSweep(ctx context.Context) SweepReport {
	report := m.sweeper.RunSweep(ctx, time.Now())
	m.storeReport(report)
	return report
}

// LastReport returns the most recent sweep report, or nil if no sweep has
// run yet.
func (m *Manager) LastReport() *SweepReport {
	m.lastMu.RLock()
	defer m.lastMu.RUnlock()
	return m.lastReport
}

func (m *Manager) storeReport(report SweepReport) {
	m.lastMu.Lock()
	m.lastReport = &report
	m.lastMu.Unlock()
}

func (m *Manager) sweepWorker() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ticker.C:
			report := m.sweeper.RunSweep(context.Background(), time.Now())
			m.storeReport(report)
		case <-m.stopCh:
			return
		}
	}
}
