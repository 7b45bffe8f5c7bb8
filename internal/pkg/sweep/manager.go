// Package sweep runs the periodic maintenance jobs: daily credit recharge,
// expired subscription cleanup, stale usage row purging and character
// access migration. Every job is idempotent and safe to run concurrently
// with request traffic.
package sweep

import (
	"strconv"
	"sync"
	"time"

	"github.com/gabrielonicala/quillia/internal/pkg/credits"
	"github.com/gabrielonicala/quillia/internal/pkg/dailyusage"
	"github.com/gabrielonicala/quillia/internal/pkg/env"
	"github.com/gofiber/fiber/v2/log"
)

// RechargeSweeper runs the daily credit recharge across all users.
type RechargeSweeper interface {
	ProcessDailyRechargeForAllUsers() (*credits.SweepSummary, error)
}

// AccessSweeper downgrades expired subscriptions and reconciles slots.
type AccessSweeper interface {
	CleanupExpiredSubscriptions() (int, error)
	MigrateCharacterAccess() error
}

// UsageSweeper purges daily usage rows past the retention window.
type UsageSweeper interface {
	CleanupOldUsage(retentionDays int) (int64, error)
}

// Manager owns the sweep tickers and background workers.
type Manager struct {
	recharge RechargeSweeper
	access   AccessSweeper
	usage    UsageSweeper

	rechargeInterval time.Duration
	cleanupInterval  time.Duration
	retentionDays    int

	rechargeTicker *time.Ticker
	cleanupTicker  *time.Ticker
	stopCh         chan struct{}
	wg             sync.WaitGroup
	mu             sync.Mutex
	running        bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// NewManager creates a sweep manager with intervals from the environment.
func NewManager(recharge RechargeSweeper, access AccessSweeper, usage UsageSweeper) *Manager {
	return &Manager{
		recharge:         recharge,
		access:           access,
		usage:            usage,
		rechargeInterval: intervalFromEnv("RECHARGE_SWEEP_INTERVAL_MINUTES", 60),
		cleanupInterval:  intervalFromEnv("CLEANUP_SWEEP_INTERVAL_MINUTES", 360),
		retentionDays:    intFromEnv("DAILY_USAGE_RETENTION_DAYS", dailyusage.DefaultRetentionDays),
	}
}

// Initialize sets up the global sweep manager (singleton).
func Initialize(recharge RechargeSweeper, access AccessSweeper, usage UsageSweeper) *Manager {
	managerOnce.Do(func() {
		globalManager = NewManager(recharge, access, usage)
	})
	return globalManager
}

// GetManager returns the global sweep manager, or nil before Initialize.
func GetManager() *Manager {
	return globalManager
}

// Start starts the background sweep workers.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so the manager can be
	// restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[Sweep Manager] Starting background sweeps")

	m.rechargeTicker = time.NewTicker(m.rechargeInterval)
	m.wg.Add(1)
	go m.rechargeWorker()

	m.cleanupTicker = time.NewTicker(m.cleanupInterval)
	m.wg.Add(1)
	go m.cleanupWorker()

	log.Info("[Sweep Manager] Started successfully")
}

// Stop stops the background sweep workers.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[Sweep Manager] Stopping background sweeps...")

	if m.rechargeTicker != nil {
		m.rechargeTicker.Stop()
	}
	if m.cleanupTicker != nil {
		m.cleanupTicker.Stop()
	}

	close(m.stopCh)
	m.stopCh = nil
	m.running = false

	m.wg.Wait()

	log.Info("[Sweep Manager] Stopped successfully")
}

// IsRunning returns whether the manager is currently running.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) rechargeWorker() {
	defer m.wg.Done()
	log.Infof("[Sweep Manager] Started recharge worker (interval: %s)", m.rechargeInterval)

	for {
		select {
		case <-m.stopCh:
			log.Info("[Sweep Manager] Recharge worker stopping")
			return
		case <-m.rechargeTicker.C:
			m.RunRechargeSweepOnce()
		}
	}
}

func (m *Manager) cleanupWorker() {
	defer m.wg.Done()
	log.Infof("[Sweep Manager] Started cleanup worker (interval: %s)", m.cleanupInterval)

	for {
		select {
		case <-m.stopCh:
			log.Info("[Sweep Manager] Cleanup worker stopping")
			return
		case <-m.cleanupTicker.C:
			m.RunCleanupSweepOnce()
		}
	}
}

// RunRechargeSweepOnce runs a single recharge sweep. Exposed for manual
// admin triggering.
func (m *Manager) RunRechargeSweepOnce() {
	summary, err := m.recharge.ProcessDailyRechargeForAllUsers()
	if err != nil {
		log.Errorf("[Sweep Manager] Recharge sweep failed: %v", err)
		return
	}
	log.Infof("[Sweep Manager] Recharge sweep done: %d processed, %d recharged, %d errors",
		summary.Processed, summary.Recharged, len(summary.Errors))
}

// RunCleanupSweepOnce runs a single cleanup pass: expired subscription
// downgrade, access migration and stale usage purge. Each step is isolated
// so one failure does not skip the others.
func (m *Manager) RunCleanupSweepOnce() {
	if downgraded, err := m.access.CleanupExpiredSubscriptions(); err != nil {
		log.Errorf("[Sweep Manager] Subscription cleanup failed: %v", err)
	} else if downgraded > 0 {
		log.Infof("[Sweep Manager] Downgraded %d expired subscriptions", downgraded)
	}

	if err := m.access.MigrateCharacterAccess(); err != nil {
		log.Errorf("[Sweep Manager] Access migration failed: %v", err)
	}

	if deleted, err := m.usage.CleanupOldUsage(m.retentionDays); err != nil {
		log.Errorf("[Sweep Manager] Usage cleanup failed: %v", err)
	} else if deleted > 0 {
		log.Infof("[Sweep Manager] Purged %d old daily usage rows", deleted)
	}
}

func intervalFromEnv(key string, defMinutes int) time.Duration {
	return time.Duration(intFromEnv(key, defMinutes)) * time.Minute
}

func intFromEnv(key string, def int) int {
	value, err := strconv.Atoi(env.GetEnv(key, strconv.Itoa(def)))
	if err != nil || value <= 0 {
		return def
	}
	return value
}
