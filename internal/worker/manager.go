package worker

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"photogram/internal/queue"
)

const (
	DefaultWorkerCount  = 2
	DefaultBatchSize    = 10
	DefaultBlockTimeout = 5 * time.Second

	// DefaultMaxAttempts is how many times an event is handled before it is acked anyway.
	DefaultMaxAttempts  = 3
	DefaultRetryBackoff = 200 * time.Millisecond
)

// EventHandler processes one stream event.
type EventHandler interface {
	HandleEvent(ctx context.Context, event queue.Event) error
}

// Sweeper runs a full reconciliation pass over every relationship.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type ManagerConfig struct {
	WorkerCount   int
	BatchSize     int64
	BlockTimeout  time.Duration // XREADGROUP block
	MaxAttempts   int
	RetryBackoff  time.Duration // doubled after each failed attempt
	SweepInterval time.Duration // 0 disables the periodic sweep
}

func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		WorkerCount:  DefaultWorkerCount,
		BatchSize:    DefaultBatchSize,
		BlockTimeout: DefaultBlockTimeout,
		MaxAttempts:  DefaultMaxAttempts,
		RetryBackoff: DefaultRetryBackoff,
	}
}

func (c ManagerConfig) withDefaults() ManagerConfig {
	d := DefaultManagerConfig()
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.BlockTimeout <= 0 {
		c.BlockTimeout = d.BlockTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = d.RetryBackoff
	}
	return c
}

// Manager runs a pool of consumers on the graph stream and, optionally, the periodic
// reconciliation sweep that catches repairs whose events were lost.
//
// An event that still fails after MaxAttempts is acked and dropped. Relationship repairs
// dropped this way are picked up by the next sweep.
type Manager struct {
	consumer queue.Consumer
	handler  EventHandler
	sweeper  Sweeper
	cfg      ManagerConfig

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewManager creates a worker manager. sweeper may be nil.
func NewManager(consumer queue.Consumer, handler EventHandler, sweeper Sweeper, cfg ManagerConfig) *Manager {
	return &Manager{
		consumer: consumer,
		handler:  handler,
		sweeper:  sweeper,
		cfg:      cfg.withDefaults(),
	}
}

// Start ensures the consumer group exists and launches the workers. Call Stop to shut down.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.consumer.EnsureGroup(ctx, queue.StreamGraph, queue.ConsumerGroupGraph); err != nil {
		return err
	}

	ctx, m.cancel = context.WithCancel(ctx)

	for i := 1; i <= m.cfg.WorkerCount; i++ {
		m.wg.Add(1)
		go m.runWorker(ctx, i)
	}
	if m.sweeper != nil && m.cfg.SweepInterval > 0 {
		m.wg.Add(1)
		go m.runSweeper(ctx)
	}

	log.Printf("[Manager] Started: workers=%d stream=%s group=%s sweep=%v",
		m.cfg.WorkerCount, queue.StreamGraph, queue.ConsumerGroupGraph, m.cfg.SweepInterval)
	return nil
}

// Stop cancels the workers and waits for in-flight events to finish.
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.wg.Wait()
	log.Printf("[Manager] Stopped")
}

func (m *Manager) runWorker(ctx context.Context, workerID int) {
	defer m.wg.Done()

	consumerName := "worker-" + strconv.Itoa(workerID)
	log.Printf("[Worker-%d] Started (consumer=%s)", workerID, consumerName)

	// Entries delivered to this consumer name before a restart are never redelivered by
	// ">", so they are drained first.
	for ctx.Err() == nil {
		messages, err := m.consumer.ReadPending(ctx, queue.StreamGraph, queue.ConsumerGroupGraph, consumerName, m.cfg.BatchSize)
		if err != nil {
			log.Printf("[Worker-%d] ReadPending FAILED: %v", workerID, err)
			break
		}
		if len(messages) == 0 {
			break
		}
		m.handleBatch(ctx, workerID, messages)
	}

	for ctx.Err() == nil {
		messages, err := m.consumer.Read(ctx, queue.StreamGraph, queue.ConsumerGroupGraph, consumerName, m.cfg.BatchSize, m.cfg.BlockTimeout)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Printf("[Worker-%d] Read FAILED: %v", workerID, err)
			sleep(ctx, time.Second)
			continue
		}
		m.handleBatch(ctx, workerID, messages)
	}

	log.Printf("[Worker-%d] Shutting down", workerID)
}

func (m *Manager) handleBatch(ctx context.Context, workerID int, messages []queue.Message) {
	for _, msg := range messages {
		if err := m.handleWithRetry(ctx, msg.Event); err != nil {
			if ctx.Err() != nil {
				// Left pending; the next start of this consumer picks it up.
				return
			}
			log.Printf("[Worker-%d] Dropping msgID=%s type=%s after %d attempts: %v",
				workerID, msg.ID, msg.Event.Type, m.cfg.MaxAttempts, err)
		}

		if err := m.consumer.Ack(ctx, queue.StreamGraph, queue.ConsumerGroupGraph, msg.ID); err != nil {
			log.Printf("[Worker-%d] Ack FAILED msgID=%s: %v", workerID, msg.ID, err)
		}
	}
}

func (m *Manager) handleWithRetry(ctx context.Context, event queue.Event) error {
	backoff := m.cfg.RetryBackoff
	var err error
	for attempt := 1; attempt <= m.cfg.MaxAttempts; attempt++ {
		if err = m.handler.HandleEvent(ctx, event); err == nil {
			return nil
		}
		if attempt < m.cfg.MaxAttempts && !sleep(ctx, backoff) {
			return ctx.Err()
		}
		backoff *= 2
	}
	return err
}

func (m *Manager) runSweeper(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			repaired, err := m.sweeper.Sweep(ctx)
			if err != nil && ctx.Err() == nil {
				log.Printf("[Sweeper] Sweep FAILED: repaired=%d err=%v", repaired, err)
			}
		}
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
