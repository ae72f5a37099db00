package pressure

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// DefaultSimRate is the tick rate of the PRIM box firmware, 10 Hz.
const DefaultSimRate = 10.0

// Waveform is the simulated pressure at elapsed time t seconds.  The
// value stays within (0, 100) mmHg for all t.
func Waveform(t float64) float64 {
	return 50 + 40*math.Sin(t*math.Pi*0.2) + 10*math.Sin(t*math.Pi*0.7)
}

// Simulator emits a deterministic sine-based sample stream as if a
// device were attached.  It satisfies the same channel contract as
// Sensor.
type Simulator struct {
	// Rate is samples per second; 0 means DefaultSimRate
	Rate float64

	// Now is the clock; tests may replace it.  nil means time.Now.
	Now func() time.Time

	samples chan Sample
	status  chan Status
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSimulator returns an unstarted simulator.
func NewSimulator(hz float64) *Simulator {
	if hz == 0 {
		hz = DefaultSimRate
	}
	return &Simulator{
		Rate:    hz,
		samples: make(chan Sample, 64),
		status:  make(chan Status, 4),
		done:    make(chan struct{}),
	}
}

// Samples is the stream of generated ticks.
func (s *Simulator) Samples() <-chan Sample { return s.samples }

// Status reports Connected once at startup and never degrades; the
// simulator cannot disconnect.
func (s *Simulator) Status() <-chan Status { return s.status }

// Start launches the generator.  It never fails; the signature matches
// Sensor.Start so the two are interchangeable to the caller.
func (s *Simulator) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.runner(ctx)
	return nil
}

// Stop terminates the generator.
func (s *Simulator) Stop() {
	s.cancel()
	<-s.done
}

func (s *Simulator) runner(ctx context.Context) {
	defer close(s.done)
	now := s.Now
	if now == nil {
		now = time.Now
	}
	start := now()
	limiter := rate.NewLimiter(rate.Limit(s.Rate), 1)
	s.status <- Status{State: Connected}
	idx := 0
	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		t := now().Sub(start).Seconds()
		smp := Sample{Index: idx, Elapsed: t, Value: Waveform(t)}
		select {
		case s.samples <- smp:
			idx++
		case <-ctx.Done():
			return
		}
	}
}
