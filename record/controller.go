package record

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/prim-lab/primacq/frame"
	"github.com/prim-lab/primacq/pressure"
)

var (
	// ErrAlreadyRecording is generated when Start is called while a
	// session is active
	ErrAlreadyRecording = errors.New("record: a session is already active")

	// drainGrace bounds how long Stop waits for the pump to exit
	drainGrace = 3 * time.Second
)

// Controller owns one recording session end to end: directory layout,
// source wiring, proactive shutdown on disconnect, and final counts.
// The zero value is ready to use.
//
// Frame and sample sources deliver on channels from their own
// goroutines; a single pump goroutine consumes both, so every sink
// write happens on one goroutine and the session's mutex is never
// contended on the hot path.
type Controller struct {
	mu        sync.Mutex
	sess      *Session
	stop      chan struct{}
	done      chan struct{}
	recording bool
}

// SessionDirName derives the per-session subdirectory from a user
// label: the label sanitized to filename-safe characters plus the date.
func SessionDirName(label string, now time.Time) string {
	if label == "" {
		label = "session"
	}
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, label)
	return sanitized + "_" + now.Format("2006-01-02")
}

// Start creates the session directory, arms a new session and begins
// consuming the given streams.  status may be nil when the sample
// source has no lifecycle reporting (e.g. a replay).  Returns
// ErrAlreadyRecording if a session is active; the active session is
// untouched.
func (c *Controller) Start(outputDir, label string, frames <-chan frame.Frame, samples <-chan pressure.Sample, status <-chan pressure.Status) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recording {
		return ErrAlreadyRecording
	}
	dir := filepath.Join(outputDir, SessionDirName(label, time.Now()))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("record: create session dir: %w", err)
	}
	sess := NewSession(dir, time.Now())
	if err := sess.Begin(); err != nil {
		return err
	}
	c.sess = sess
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	c.recording = true
	go c.pump(frames, samples, status)
	log.Printf("record: session started in %s", dir)
	return nil
}

// pump is the single consumer of both streams.
func (c *Controller) pump(frames <-chan frame.Frame, samples <-chan pressure.Sample, status <-chan pressure.Status) {
	defer close(c.done)
	for {
		select {
		case <-c.stop:
			c.drain(frames, samples)
			return
		case smp, ok := <-samples:
			if !ok {
				// source closed its stream; treat like a disconnect
				c.sourceLost(pressure.Status{State: pressure.Disconnected})
				return
			}
			if err := c.sess.OnSample(smp); err != nil {
				log.Printf("record: sample rejected: %v", err)
				if !c.sess.Active() {
					// sink open failed, the session aborted itself
					c.sourceLost(pressure.Status{State: pressure.Faulted, Err: err})
					return
				}
			}
		case f, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			c.sess.OnFrame(f)
		case st, ok := <-status:
			if !ok {
				status = nil
				continue
			}
			if st.State != pressure.Connected {
				c.sourceLost(st)
				return
			}
		}
	}
}

// drain consumes whatever is already buffered in the streams, without
// blocking, so in-flight work lands before the sinks close.
func (c *Controller) drain(frames <-chan frame.Frame, samples <-chan pressure.Sample) {
	for {
		select {
		case smp, ok := <-samples:
			if !ok {
				samples = nil
				continue
			}
			if err := c.sess.OnSample(smp); err != nil {
				return
			}
		case f, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			c.sess.OnFrame(f)
		default:
			return
		}
	}
}

// sourceLost stops the session from inside the pump.  The lock-step
// invariant requires a live sample stream, so the session cannot limp
// along on frames alone.
func (c *Controller) sourceLost(st pressure.Status) {
	if st.Err != nil {
		log.Printf("record: sample source %v (%v), stopping session", st.State, st.Err)
	} else {
		log.Printf("record: sample source %v, stopping session", st.State)
	}
	c.mu.Lock()
	c.recording = false
	c.mu.Unlock()
	if _, err := c.sess.Stop(); err != nil {
		log.Printf("record: stopping after source loss: %v", err)
	}
}

// Stop ends the active session and returns the final counts.  Safe to
// call when nothing was ever started (no-op) and safe to call twice
// (same totals both times).
func (c *Controller) Stop() (Totals, error) {
	c.mu.Lock()
	if c.sess == nil {
		c.mu.Unlock()
		return Totals{}, nil
	}
	if c.recording {
		c.recording = false
		close(c.stop)
	}
	sess, done := c.sess, c.done
	c.mu.Unlock()

	select {
	case <-done:
	case <-time.After(drainGrace):
		log.Printf("record: pump did not drain within %v, closing anyway", drainGrace)
	}
	return sess.Stop()
}

// IsRecording reports whether a session is currently consuming data.
func (c *Controller) IsRecording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

// FrameCount reports frames accepted by the current (or last) session.
func (c *Controller) FrameCount() int {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()
	if sess == nil {
		return 0
	}
	return sess.FrameCount()
}

// Session exposes the current (or last) session, for path reporting.
func (c *Controller) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}
