package prometheus

import (
	"context"
	"sync"
	"time"
)

// AdvancementSnapshotProvider provides current workload advancement snapshots.
type AdvancementSnapshotProvider interface {
	Waiting() int
	Processing() int
	Completed() int
}

// SnapshotPoller periodically exports pool and workload snapshots into the
// Prometheus gauges.
type SnapshotPoller struct {
	metrics  *Metrics
	interval time.Duration

	mu        sync.RWMutex
	pools     map[string]ObservablePool
	workloads map[string]AdvancementSnapshotProvider

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a poller feeding the given metrics.
func NewSnapshotPoller(metrics *Metrics, interval time.Duration) *SnapshotPoller {
	if metrics == nil {
		metrics = GetMetrics()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &SnapshotPoller{
		metrics:   metrics,
		interval:  interval,
		pools:     make(map[string]ObservablePool),
		workloads: make(map[string]AdvancementSnapshotProvider),
	}
}

// AddPool registers a pool to poll under its name.
func (p *SnapshotPoller) AddPool(pool ObservablePool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pools[pool.Name()] = pool
}

// AddWorkload registers a workload advancement to poll under a name.
func (p *SnapshotPoller) AddWorkload(name string, advancement AdvancementSnapshotProvider) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.workloads[name] = advancement
}

// Start begins polling until Stop or context cancellation.
func (p *SnapshotPoller) Start(ctx context.Context) {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if p.running {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Collect()
			}
		}
	}()
}

// Stop halts polling and waits for the poll goroutine to exit.
func (p *SnapshotPoller) Stop() {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if !p.running {
		return
	}
	p.cancel()
	<-p.done
	p.running = false
}

// Collect takes one snapshot of every registered pool and workload.
func (p *SnapshotPoller) Collect() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for name, pool := range p.pools {
		p.metrics.PoolQueuedTasks.WithLabelValues(name).Set(float64(pool.QueueSize()))
		p.metrics.PoolWorkers.WithLabelValues(name).Set(float64(pool.NumThreads()))
	}
	for name, wl := range p.workloads {
		p.metrics.WorkloadWaiting.WithLabelValues(name).Set(float64(wl.Waiting()))
		p.metrics.WorkloadProcessing.WithLabelValues(name).Set(float64(wl.Processing()))
		p.metrics.WorkloadCompleted.WithLabelValues(name).Set(float64(wl.Completed()))
	}
}
