package record

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/prim-lab/primacq/frame"
	"github.com/prim-lab/primacq/pressure"
)

var (
	// ErrNotStarted is generated when a sample arrives before Begin
	ErrNotStarted = errors.New("record: session not started")

	// ErrAlreadyStarted is generated when Begin is called twice
	ErrAlreadyStarted = errors.New("record: session already started")
)

// session states.  The zero value is idle.
type state int

const (
	idle state = iota
	waitingFirstSample
	active
	stopped
)

// Totals reports what a recording session wrote.
type Totals struct {
	Rows      int
	Pages     int
	HadErrors bool
}

// Session pairs asynchronous pressure samples with asynchronous camera
// frames and persists them in lock-step: one CSV row per sample, one
// stack page per frame, with nothing written before the first sample of
// the session arrives.
//
// All methods are safe to call from any goroutine; a single mutex
// serializes state mutation and sink writes.
type Session struct {
	mu    sync.Mutex
	state state

	dir  string
	base string

	tab   *Tabular
	stack *Stack

	frameCounter int
	last         pressure.Sample
	writeErrs    int
}

// NewSession prepares a session that will write into dir.  The file
// base name is derived from now so reruns never collide.
func NewSession(dir string, now time.Time) *Session {
	return &Session{
		dir:  dir,
		base: "recording_" + now.Format("2006-01-02_15-04-05"),
	}
}

// TabularPath is where the CSV file is (or will be) created.
func (s *Session) TabularPath() string {
	return filepath.Join(s.dir, s.base+"_pressure.csv")
}

// StackPath is where the image stack is (or will be) created.
func (s *Session) StackPath() string {
	return filepath.Join(s.dir, s.base+"_stack.fits")
}

// Begin arms the session.  No files are opened yet; that happens when
// the first sample arrives, so a session that never receives data
// leaves nothing on disk.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != idle {
		return ErrAlreadyStarted
	}
	s.state = waitingFirstSample
	return nil
}

// activate opens both sinks.  Called with the lock held, on the first
// sample.  If either open fails the partially opened sink is closed and
// the session moves to stopped.
func (s *Session) activate() error {
	tab := &Tabular{Path: s.TabularPath()}
	if err := tab.Open(); err != nil {
		s.state = stopped
		return err
	}
	stack := &Stack{Path: s.StackPath()}
	if err := stack.Open(); err != nil {
		tab.Close()
		s.state = stopped
		return err
	}
	s.tab = tab
	s.stack = stack
	s.frameCounter = 0
	s.state = active
	log.Printf("record: session active, csv=%s stack=%s", tab.Path, stack.Path)
	return nil
}

// OnSample handles one pressure tick.  The first sample of the session
// opens both sinks; every sample appends one tabular row and becomes
// the metadata attached to subsequent pages.  Row write failures are
// logged and counted, not propagated, so a slow or broken disk never
// stalls the sample source.
func (s *Session) OnSample(smp pressure.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case idle:
		return ErrNotStarted
	case stopped:
		// arrived during teardown; dropped by design
		return nil
	case waitingFirstSample:
		if err := s.activate(); err != nil {
			return fmt.Errorf("record: open sinks: %w", err)
		}
	}
	if err := s.tab.Write(smp); err != nil {
		log.Printf("record: dropping row (%d, %f, %f): %v", smp.Index, smp.Elapsed, smp.Value, err)
		s.writeErrs++
	}
	s.last = smp
	return nil
}

// OnFrame handles one camera frame.  Frames arriving before the first
// sample (or after stop) are dropped without buffering.  A page that
// fails to write is skipped but the counter still advances, keeping the
// numbering aligned with acquisition order.
func (s *Session) OnFrame(f frame.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != active {
		return
	}
	idx := s.frameCounter
	s.frameCounter++
	if err := s.stack.Write(f, idx, s.last); err != nil {
		log.Printf("record: skipping page %d: %v", idx, err)
		s.writeErrs++
	}
}

// Stop flushes and closes both sinks.  Idempotent: a second call is a
// no-op returning the same totals.
func (s *Session) Stop() (Totals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stopped {
		return s.totals(), nil
	}
	s.state = stopped
	var firstErr error
	if s.stack != nil {
		if err := s.stack.Close(); err != nil {
			log.Printf("record: closing stack: %v", err)
			s.writeErrs++
			firstErr = err
		}
	}
	if s.tab != nil {
		if err := s.tab.Close(); err != nil {
			log.Printf("record: closing csv: %v", err)
			s.writeErrs++
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return s.totals(), firstErr
}

// totals assumes the lock is held.
func (s *Session) totals() Totals {
	t := Totals{HadErrors: s.writeErrs > 0}
	if s.tab != nil {
		t.Rows = s.tab.Count()
	}
	if s.stack != nil {
		t.Pages = s.stack.Count()
	}
	return t
}

// Active reports whether the session is accepting data (armed or
// actively writing).
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == waitingFirstSample || s.state == active
}

// RowCount reports how many tabular rows have been written so far.
func (s *Session) RowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tab == nil {
		return 0
	}
	return s.tab.Count()
}

// FrameCount reports how many frames have been accepted so far.
func (s *Session) FrameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameCounter
}
