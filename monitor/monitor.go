/*Package monitor keeps a rolling window of recent pressure samples.

It backs live displays the way the acquisition GUI's pressure-vs-time
plot is backed: a fixed-capacity ring that any poller can snapshot
without touching the recording path.
*/
package monitor

import (
	"sync"

	"github.com/brandondube/ringo"

	"github.com/prim-lab/primacq/pressure"
)

// Monitor is a fixed-capacity window of (elapsed, value) pairs.
type Monitor struct {
	mu sync.Mutex
	t  ringo.CircleF64
	v  ringo.CircleF64
	n  int
}

// New creates a monitor holding up to capacity samples.
func New(capacity int) *Monitor {
	m := &Monitor{}
	m.t.Init(capacity)
	m.v.Init(capacity)
	return m
}

// Observe appends one sample to the window.
func (m *Monitor) Observe(s pressure.Sample) {
	m.mu.Lock()
	m.t.Append(s.Elapsed)
	m.v.Append(s.Value)
	m.n++
	m.mu.Unlock()
}

// Snapshot returns the buffered times and values from least to most
// recent.  The slices are copies and safe to retain.
func (m *Monitor) Snapshot() (times, values []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.n == 0 {
		return nil, nil
	}
	times = append(times, m.t.Contiguous()...)
	values = append(values, m.v.Contiguous()...)
	return times, values
}

// Latest returns the most recent (elapsed, value) pair, or zeros when
// nothing has been observed.
func (m *Monitor) Latest() (t, v float64) {
	times, values := m.Snapshot()
	if len(values) == 0 {
		return 0, 0
	}
	return times[len(times)-1], values[len(values)-1]
}

// Seen reports how many samples have passed through the window in
// total, including those already evicted.
func (m *Monitor) Seen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.n
}
