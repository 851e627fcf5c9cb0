package engine

import (
	"sync"
	"time"

	"github.com/wonny/breadthcore/internal/contracts"
)

// telemetryCapacity bounds the in-memory history: the newest 100 entries.
const telemetryCapacity = 100

// TelemetryEntry records one calculation for performance inspection.
type TelemetryEntry struct {
	Timestamp   time.Time               `json:"timestamp"`
	Algorithm   contracts.AlgorithmType `json:"algorithm"`
	Duration    time.Duration           `json:"duration"`
	RecordDate  time.Time               `json:"record_date,omitempty"`
	BatchSize   int                     `json:"batch_size,omitempty"`
	Records     int                     `json:"records"`
	Throughput  float64                 `json:"throughput,omitempty"` // records per second
	MemoryDelta int64                   `json:"memory_delta_bytes"`   // approximate, heap alloc delta
	Success     bool                    `json:"success"`
}

// Telemetry is a fixed-capacity ring of recent calculation entries. Oldest
// entries are evicted once the capacity is reached. Safe for concurrent use.
type Telemetry struct {
	mu      sync.Mutex
	entries []TelemetryEntry
	start   int
	count   int
}

// NewTelemetry creates an empty telemetry ring.
func NewTelemetry() *Telemetry {
	return &Telemetry{
		entries: make([]TelemetryEntry, telemetryCapacity),
	}
}

// Record appends an entry, evicting the oldest when full.
func (t *Telemetry) Record(entry TelemetryEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := (t.start + t.count) % len(t.entries)
	t.entries[idx] = entry
	if t.count < len(t.entries) {
		t.count++
	} else {
		t.start = (t.start + 1) % len(t.entries)
	}
}

// Entries returns the retained entries, oldest first.
func (t *Telemetry) Entries() []TelemetryEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]TelemetryEntry, t.count)
	for i := 0; i < t.count; i++ {
		out[i] = t.entries[(t.start+i)%len(t.entries)]
	}
	return out
}

// Len returns the number of retained entries.
func (t *Telemetry) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Clear drops all entries.
func (t *Telemetry) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.start = 0
	t.count = 0
}

// AverageDuration is the mean duration across retained entries, zero when
// empty.
func (t *Telemetry) AverageDuration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.count == 0 {
		return 0
	}
	var total time.Duration
	for i := 0; i < t.count; i++ {
		total += t.entries[(t.start+i)%len(t.entries)].Duration
	}
	return total / time.Duration(t.count)
}
