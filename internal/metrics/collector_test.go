package metrics

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func TestNewCollector(t *testing.T) {
	collector := NewCollector()

	if collector == nil {
		t.Fatal("NewCollector() returned nil")
	}

	if collector.engineMetrics == nil {
		t.Fatal("engineMetrics not initialized")
	}

	if collector.operationCounters == nil {
		t.Fatal("operationCounters not initialized")
	}

	metrics := collector.GetMetrics()
	if metrics.Fills != 0 || metrics.EventsDispatched != 0 {
		t.Errorf("Expected zeroed counters, got %+v", metrics)
	}
}

func TestFillAndRowMetrics(t *testing.T) {
	collector := NewCollector()

	collector.IncrementFill()
	collector.IncrementFill()
	collector.IncrementFillError()
	collector.AddRowsCreated(5)
	collector.AddRowsRemoved(2)

	metrics := collector.GetMetrics()
	if metrics.Fills != 2 {
		t.Errorf("Expected 2 fills, got %d", metrics.Fills)
	}
	if metrics.FillErrors != 1 {
		t.Errorf("Expected 1 fill error, got %d", metrics.FillErrors)
	}
	if metrics.RowsCreated != 5 || metrics.RowsRemoved != 2 {
		t.Errorf("Expected 5 rows created and 2 removed, got %d and %d", metrics.RowsCreated, metrics.RowsRemoved)
	}
}

func TestEventMetrics(t *testing.T) {
	collector := NewCollector()

	if rate := collector.GetAbsorbedRate(); rate != 0.0 {
		t.Errorf("Expected absorbed rate 0 without events, got %f", rate)
	}

	for i := 0; i < 4; i++ {
		collector.IncrementEventDispatched()
	}
	collector.IncrementEventAbsorbed()
	collector.AddActionsEmitted(3)

	metrics := collector.GetMetrics()
	if metrics.ActionsEmitted != 3 {
		t.Errorf("Expected 3 actions emitted, got %d", metrics.ActionsEmitted)
	}
	if rate := collector.GetAbsorbedRate(); rate != 25.0 {
		t.Errorf("Expected absorbed rate 25, got %f", rate)
	}
}

func TestConnectionMetrics(t *testing.T) {
	collector := NewCollector()

	collector.IncrementConnectionOpened()
	collector.IncrementConnectionOpened()
	collector.IncrementConnectionOpened()
	collector.IncrementConnectionClosed()

	metrics := collector.GetMetrics()
	if metrics.ActiveConnections != 2 {
		t.Errorf("Expected 2 active connections, got %d", metrics.ActiveConnections)
	}
	if metrics.MaxConcurrentConnections != 3 {
		t.Errorf("Expected max concurrent connections 3, got %d", metrics.MaxConcurrentConnections)
	}
}

func TestCustomCountersConcurrent(t *testing.T) {
	collector := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				collector.IncrementCustomCounter("action:MOVE.UP")
			}
		}()
	}
	wg.Wait()

	counters := collector.GetCustomCounters()
	if counters["action:MOVE.UP"] != 1000 {
		t.Errorf("Expected 1000, got %d", counters["action:MOVE.UP"])
	}
}

func TestReset(t *testing.T) {
	collector := NewCollector()
	collector.IncrementFill()
	collector.IncrementStateActivation()
	collector.IncrementCustomCounter("x")

	collector.Reset()

	metrics := collector.GetMetrics()
	if metrics.Fills != 0 || metrics.StateActivations != 0 {
		t.Errorf("Expected counters reset, got %+v", metrics)
	}
	if len(collector.GetCustomCounters()) != 0 {
		t.Error("Expected custom counters cleared")
	}
}

func TestMetricsJSON(t *testing.T) {
	collector := NewCollector()
	collector.IncrementStateDisable()

	data, err := json.Marshal(collector.GetMetrics())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"state_disables":1`) {
		t.Errorf("Expected state_disables in JSON, got %s", data)
	}
}
