package jobqueue

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/FeWoHub/fewohub/internal/pkg/env"
)

// Manager manages the global job queue and background tasks
type Manager struct {
	queue       *Queue
	sweepTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	running     bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// DefaultSweepInterval is how often expired slots are collected when no
// override is configured.
const DefaultSweepInterval = 5 * time.Minute

// InitManager builds the global manager with the given processors. Must be
// called once during startup before GetManager.
func InitManager(processors *Processors) *Manager {
	managerOnce.Do(func() {
		workerCount := env.GetIntDefault("JOB_QUEUE_WORKERS", 5)
		globalManager = &Manager{
			queue:  NewQueue(workerCount, processors),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// GetManager returns the global job queue manager (singleton). Returns nil
// if InitManager has not run yet.
func GetManager() *Manager {
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	sweepInterval := DefaultSweepInterval
	if minutes := env.GetIntDefault("SLOT_SWEEP_INTERVAL_MINUTES", 0); minutes > 0 {
		sweepInterval = time.Duration(minutes) * time.Minute
	}

	m.sweepTicker = time.NewTicker(sweepInterval)
	m.wg.Add(1)
	go m.sweepWorker(sweepInterval)

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.sweepTicker != nil {
		m.sweepTicker.Stop()
	}

	close(m.stopCh)
	m.stopCh = nil
	m.running = false

	m.wg.Wait()

	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// sweepWorker periodically enqueues a slot expiry sweep so due slots are
// taken offline even when no billing traffic arrives.
func (m *Manager) sweepWorker(interval time.Duration) {
	defer m.wg.Done()
	log.Infof("[JobQueue Manager] Started slot expiry sweep worker (interval: %s)", interval)

	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Slot expiry sweep worker stopping")
			return
		case <-m.sweepTicker.C:
			payload := SlotExpirySweepJobPayload{Limit: DefaultSweepBatchSize}
			if _, err := m.queue.EnqueueJob(JobTypeSlotExpirySweep, payload.ToMap()); err != nil {
				log.Errorf("[JobQueue Manager] Error enqueueing slot expiry sweep: %v", err)
			}
		}
	}
}

// EnqueueSweepNow triggers one immediate expiry sweep (admin use).
func (m *Manager) EnqueueSweepNow(limit int) (*Job, error) {
	if limit <= 0 {
		limit = DefaultSweepBatchSize
	}
	payload := SlotExpirySweepJobPayload{Limit: limit}
	return m.queue.EnqueueJob(JobTypeSlotExpirySweep, payload.ToMap())
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
