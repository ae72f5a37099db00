package record

import (
	"encoding/csv"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/prim-lab/primacq/frame"
	"github.com/prim-lab/primacq/pressure"
)

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestControllerNoOverlap(t *testing.T) {
	c := &Controller{}
	frames := make(chan frame.Frame)
	samples := make(chan pressure.Sample)
	dir := t.TempDir()
	if err := c.Start(dir, "trial", frames, samples, nil); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()
	if !c.IsRecording() {
		t.Fatal("controller should be recording")
	}
	err := c.Start(dir, "second", frames, samples, nil)
	if !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("expected ErrAlreadyRecording, got %v", err)
	}
	if !c.IsRecording() {
		t.Fatal("failed second start disturbed the active session")
	}
}

func TestControllerStopWithoutStart(t *testing.T) {
	c := &Controller{}
	tot, err := c.Stop()
	if err != nil {
		t.Fatalf("stop without start errored: %v", err)
	}
	if tot.Rows != 0 || tot.Pages != 0 {
		t.Fatalf("expected zero totals, got %+v", tot)
	}
	if c.IsRecording() {
		t.Fatal("controller claims to be recording")
	}
}

func TestControllerEndToEnd(t *testing.T) {
	c := &Controller{}
	frames := make(chan frame.Frame, 8)
	samples := make(chan pressure.Sample, 8)
	if err := c.Start(t.TempDir(), "trial", frames, samples, nil); err != nil {
		t.Fatal(err)
	}

	samples <- pressure.Sample{Index: 0, Elapsed: 0.0, Value: 10.0}
	waitFor(t, 2*time.Second, func() bool { return c.Session().RowCount() == 1 })
	frames <- testFrame(4, 4, 0)
	samples <- pressure.Sample{Index: 1, Elapsed: 0.1, Value: 10.5}
	frames <- testFrame(4, 4, 1)
	waitFor(t, 2*time.Second, func() bool { return c.FrameCount() == 2 })

	tot, err := c.Stop()
	if err != nil {
		t.Fatal(err)
	}
	if tot.Rows != 2 {
		t.Errorf("expected 2 rows, got %d", tot.Rows)
	}
	if tot.Pages != 2 {
		t.Errorf("expected 2 pages, got %d", tot.Pages)
	}
	// second stop: same totals, no error
	again, err := c.Stop()
	if err != nil {
		t.Fatalf("second stop errored: %v", err)
	}
	if again != tot {
		t.Fatalf("stop not idempotent: %+v then %+v", tot, again)
	}
}

func TestControllerStopsOnDisconnect(t *testing.T) {
	c := &Controller{}
	frames := make(chan frame.Frame, 8)
	samples := make(chan pressure.Sample, 8)
	status := make(chan pressure.Status, 1)
	if err := c.Start(t.TempDir(), "trial", frames, samples, status); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		samples <- pressure.Sample{Index: i, Elapsed: float64(i) * 0.1, Value: 50.0}
	}
	sess := c.Session()
	waitFor(t, 2*time.Second, func() bool { return sess.RowCount() == 5 })

	status <- pressure.Status{State: pressure.Disconnected}
	waitFor(t, 2*time.Second, func() bool { return !c.IsRecording() })

	tot, err := c.Stop()
	if err != nil {
		t.Fatal(err)
	}
	if tot.Rows != 5 {
		t.Fatalf("expected exactly 5 rows, got %d", tot.Rows)
	}

	f, err := os.Open(sess.TabularPath())
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 6 {
		t.Fatalf("expected header + 5 rows on disk, got %d", len(rows))
	}
}

func TestSessionDirName(t *testing.T) {
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	got := SessionDirName("mouse 3 / trial#2", now)
	want := "mouse_3___trial_2_2024-03-09"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if SessionDirName("", now) != "session_2024-03-09" {
		t.Errorf("empty label not defaulted: %q", SessionDirName("", now))
	}
}
