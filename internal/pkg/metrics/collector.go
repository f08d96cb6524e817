package metrics

import (
	"runtime"
	"sync"
	"time"

	"digestCracker/internal/core/domain"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
)

// AttemptsFunc reports how many candidates a job has hashed so far.
type AttemptsFunc func() (attempts int64, activeThreads int)

type Collector struct {
	mu             sync.RWMutex
	metrics        map[string]*collection
	updateInterval time.Duration
}

type collection struct {
	current  domain.ResourceMetrics
	started  time.Time
	attempts AttemptsFunc
	stop     chan struct{}
}

func NewCollector(interval time.Duration) *Collector {
	if interval <= 0 {
		interval = time.Second
	}
	return &Collector{
		metrics:        make(map[string]*collection),
		updateInterval: interval,
	}
}

func (c *Collector) StartCollection(jobID string, attempts AttemptsFunc) {
	col := &collection{
		current:  domain.ResourceMetrics{LastUpdated: time.Now()},
		started:  time.Now(),
		attempts: attempts,
		stop:     make(chan struct{}),
	}

	c.mu.Lock()
	if prev, exists := c.metrics[jobID]; exists {
		close(prev.stop)
	}
	c.metrics[jobID] = col
	c.mu.Unlock()

	go c.collect(jobID, col)
}

// StopCollection takes a final sample and returns it.
func (c *Collector) StopCollection(jobID string) *domain.ResourceMetrics {
	c.mu.Lock()
	col, exists := c.metrics[jobID]
	if !exists {
		c.mu.Unlock()
		return nil
	}
	delete(c.metrics, jobID)
	close(col.stop)
	c.mu.Unlock()

	final := c.sample(col)
	return &final
}

func (c *Collector) GetMetrics(jobID string) *domain.ResourceMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if col, exists := c.metrics[jobID]; exists {
		snapshot := col.current
		return &snapshot
	}
	return nil
}

func (c *Collector) collect(jobID string, col *collection) {
	ticker := time.NewTicker(c.updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-col.stop:
			return
		case <-ticker.C:
		}

		sample := c.sample(col)

		c.mu.Lock()
		if current, exists := c.metrics[jobID]; exists && current == col {
			col.current = sample
		}
		c.mu.Unlock()
	}
}

func (c *Collector) sample(col *collection) domain.ResourceMetrics {
	m := col.current

	if cpuUsage, err := cpu.Percent(0, false); err == nil && len(cpuUsage) > 0 {
		m.CPUUsage = cpuUsage[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil && vm != nil {
		m.SystemMemoryPercent = vm.UsedPercent
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.MemoryUsageMB = int64(ms.Alloc / 1024 / 1024)

	if col.attempts != nil {
		attempts, active := col.attempts()
		m.TotalAttempts = attempts
		m.ActiveThreads = active
		if elapsed := time.Since(col.started).Seconds(); elapsed > 0 {
			m.AttemptsPerSec = int64(float64(attempts) / elapsed)
		}
	}
	m.LastUpdated = time.Now()
	return m
}
