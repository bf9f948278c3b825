package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector provides simple built-in metrics collection with no external dependencies
type Collector struct {
	engineMetrics     *EngineMetrics
	operationCounters map[string]*int64
	mu                sync.RWMutex
	startTime         time.Time
}

// EngineMetrics tracks binding engine activity
type EngineMetrics struct {
	// Data filling
	Fills       int64 `json:"fills"`
	FillErrors  int64 `json:"fill_errors"`
	RowsCreated int64 `json:"rows_created"`
	RowsRemoved int64 `json:"rows_removed"`

	// Event delegation
	EventsDispatched int64 `json:"events_dispatched"`
	EventsAbsorbed   int64 `json:"events_absorbed"`
	ActionsEmitted   int64 `json:"actions_emitted"`

	// States
	StateActivations int64 `json:"state_activations"`
	StateDisables    int64 `json:"state_disables"`

	// Live connections
	ActiveConnections        int64 `json:"active_connections"`
	MaxConcurrentConnections int64 `json:"max_concurrent_connections"`

	// Uptime
	StartTime time.Time     `json:"start_time"`
	Uptime    time.Duration `json:"uptime"`
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		engineMetrics: &EngineMetrics{
			StartTime: time.Now(),
		},
		operationCounters: make(map[string]*int64),
		startTime:         time.Now(),
	}
}

// IncrementFill records a data map application
func (c *Collector) IncrementFill() {
	atomic.AddInt64(&c.engineMetrics.Fills, 1)
}

// IncrementFillError records a failed data map application
func (c *Collector) IncrementFillError() {
	atomic.AddInt64(&c.engineMetrics.FillErrors, 1)
}

// AddRowsCreated records rows inserted by the reconciler
func (c *Collector) AddRowsCreated(n int) {
	atomic.AddInt64(&c.engineMetrics.RowsCreated, int64(n))
}

// AddRowsRemoved records rows removed by the reconciler
func (c *Collector) AddRowsRemoved(n int) {
	atomic.AddInt64(&c.engineMetrics.RowsRemoved, int64(n))
}

// IncrementEventDispatched records a native event handled at the root
func (c *Collector) IncrementEventDispatched() {
	atomic.AddInt64(&c.engineMetrics.EventsDispatched, 1)
}

// IncrementEventAbsorbed records a native event that matched no binding
func (c *Collector) IncrementEventAbsorbed() {
	atomic.AddInt64(&c.engineMetrics.EventsAbsorbed, 1)
}

// AddActionsEmitted records actions emitted for one event
func (c *Collector) AddActionsEmitted(n int) {
	atomic.AddInt64(&c.engineMetrics.ActionsEmitted, int64(n))
}

// IncrementStateActivation records a state activation
func (c *Collector) IncrementStateActivation() {
	atomic.AddInt64(&c.engineMetrics.StateActivations, 1)
}

// IncrementStateDisable records a state deactivation
func (c *Collector) IncrementStateDisable() {
	atomic.AddInt64(&c.engineMetrics.StateDisables, 1)
}

// IncrementConnectionOpened records a new live connection
func (c *Collector) IncrementConnectionOpened() {
	currentActive := atomic.AddInt64(&c.engineMetrics.ActiveConnections, 1)

	// Update max concurrent if needed
	for {
		max := atomic.LoadInt64(&c.engineMetrics.MaxConcurrentConnections)
		if currentActive <= max {
			break
		}
		if atomic.CompareAndSwapInt64(&c.engineMetrics.MaxConcurrentConnections, max, currentActive) {
			break
		}
	}
}

// IncrementConnectionClosed records a closed live connection
func (c *Collector) IncrementConnectionClosed() {
	atomic.AddInt64(&c.engineMetrics.ActiveConnections, -1)
}

// IncrementCustomCounter increments a custom named counter
func (c *Collector) IncrementCustomCounter(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if counter, exists := c.operationCounters[name]; exists {
		atomic.AddInt64(counter, 1)
	} else {
		var newCounter int64 = 1
		c.operationCounters[name] = &newCounter
	}
}

// GetMetrics returns current engine metrics
func (c *Collector) GetMetrics() EngineMetrics {
	c.mu.RLock()
	start := c.startTime
	c.mu.RUnlock()

	// Return a copy with current atomic values
	return EngineMetrics{
		Fills:                    atomic.LoadInt64(&c.engineMetrics.Fills),
		FillErrors:               atomic.LoadInt64(&c.engineMetrics.FillErrors),
		RowsCreated:              atomic.LoadInt64(&c.engineMetrics.RowsCreated),
		RowsRemoved:              atomic.LoadInt64(&c.engineMetrics.RowsRemoved),
		EventsDispatched:         atomic.LoadInt64(&c.engineMetrics.EventsDispatched),
		EventsAbsorbed:           atomic.LoadInt64(&c.engineMetrics.EventsAbsorbed),
		ActionsEmitted:           atomic.LoadInt64(&c.engineMetrics.ActionsEmitted),
		StateActivations:         atomic.LoadInt64(&c.engineMetrics.StateActivations),
		StateDisables:            atomic.LoadInt64(&c.engineMetrics.StateDisables),
		ActiveConnections:        atomic.LoadInt64(&c.engineMetrics.ActiveConnections),
		MaxConcurrentConnections: atomic.LoadInt64(&c.engineMetrics.MaxConcurrentConnections),
		StartTime:                start,
		Uptime:                   time.Since(start),
	}
}

// GetCustomCounters returns all custom counters
func (c *Collector) GetCustomCounters() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]int64)
	for name, counter := range c.operationCounters {
		result[name] = atomic.LoadInt64(counter)
	}
	return result
}

// Reset resets all metrics to zero
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	atomic.StoreInt64(&c.engineMetrics.Fills, 0)
	atomic.StoreInt64(&c.engineMetrics.FillErrors, 0)
	atomic.StoreInt64(&c.engineMetrics.RowsCreated, 0)
	atomic.StoreInt64(&c.engineMetrics.RowsRemoved, 0)
	atomic.StoreInt64(&c.engineMetrics.EventsDispatched, 0)
	atomic.StoreInt64(&c.engineMetrics.EventsAbsorbed, 0)
	atomic.StoreInt64(&c.engineMetrics.ActionsEmitted, 0)
	atomic.StoreInt64(&c.engineMetrics.StateActivations, 0)
	atomic.StoreInt64(&c.engineMetrics.StateDisables, 0)
	atomic.StoreInt64(&c.engineMetrics.ActiveConnections, 0)
	atomic.StoreInt64(&c.engineMetrics.MaxConcurrentConnections, 0)

	// Reset custom counters
	c.operationCounters = make(map[string]*int64)

	// Reset start time
	c.startTime = time.Now()
	c.engineMetrics.StartTime = c.startTime
}

// GetAbsorbedRate returns the share of dispatched events that matched no binding, in percent
func (c *Collector) GetAbsorbedRate() float64 {
	dispatched := atomic.LoadInt64(&c.engineMetrics.EventsDispatched)
	absorbed := atomic.LoadInt64(&c.engineMetrics.EventsAbsorbed)

	if dispatched == 0 {
		return 0.0
	}

	return float64(absorbed) / float64(dispatched) * 100.0
}
