package pressure

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// scriptedPort plays back canned chunks one Read at a time, then goes
// silent the way a serial port with a read timeout does.
type scriptedPort struct {
	mu     sync.Mutex
	chunks [][]byte
	closed bool
}

func (p *scriptedPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if len(p.chunks) == 0 {
		p.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		return 0, nil
	}
	chunk := p.chunks[0]
	p.chunks = p.chunks[1:]
	p.mu.Unlock()
	return copy(b, chunk), nil
}

func (p *scriptedPort) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

type failingPort struct {
	err error
}

func (p *failingPort) Read(b []byte) (int, error) { return 0, p.err }
func (p *failingPort) Close() error               { return nil }

func TestSensorSkipsMalformedAndDisconnectsOnSilence(t *testing.T) {
	port := &scriptedPort{chunks: [][]byte{
		[]byte("0,0.000,50.000\n"),
		[]byte("garbage\n1,0."),
		[]byte("100,51.200\n"),
	}}
	s := NewSensor("fake", 0)
	s.IdleTimeout = 50 * time.Millisecond
	s.conn = port
	go s.runner()

	if st := <-s.Status(); st.State != Connected {
		t.Fatalf("first status %v, expected Connected", st.State)
	}
	want := []Sample{
		{Index: 0, Elapsed: 0, Value: 50},
		{Index: 1, Elapsed: 0.1, Value: 51.2},
	}
	for i, w := range want {
		select {
		case got := <-s.Samples():
			if got != w {
				t.Errorf("sample %d: got %+v, expected %+v", i, got, w)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for sample")
		}
	}
	select {
	case st := <-s.Status():
		if st.State != Disconnected {
			t.Errorf("status after silence was %v, expected Disconnected", st.State)
		}
	case <-time.After(time.Second):
		t.Fatal("no status after idle timeout")
	}
	<-s.done
	if !port.closed {
		t.Error("port was not closed when the reader exited")
	}
}

func TestSensorFaultsOnReadError(t *testing.T) {
	boom := errors.New("device unplugged")
	s := NewSensor("fake", 0)
	s.conn = &failingPort{err: boom}
	go s.runner()

	if st := <-s.Status(); st.State != Connected {
		t.Fatalf("first status %v, expected Connected", st.State)
	}
	select {
	case st := <-s.Status():
		if st.State != Faulted {
			t.Errorf("status after read error was %v, expected Faulted", st.State)
		}
		if !errors.Is(st.Err, boom) {
			t.Errorf("status error was %v, expected %v", st.Err, boom)
		}
	case <-time.After(time.Second):
		t.Fatal("no status after read error")
	}
	<-s.done
}
