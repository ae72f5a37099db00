package pressure

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/tarm/serial"
)

const (
	// DefaultBaud matches the PRIM box firmware
	DefaultBaud = 115200

	// idleTimeout is how long the stream may be silent after the first
	// packet before we declare the device gone
	idleTimeout = 2 * time.Second
)

func makeSerConf(addr string, baud int) *serial.Config {
	return &serial.Config{
		Name:        addr,
		Baud:        baud,
		ReadTimeout: 250 * time.Millisecond}
}

// Sensor reads samples from the serial port and delivers them on a
// channel.  Create with NewSensor, then Start; Samples and Status are
// valid immediately.
type Sensor struct {
	// Port is the filesystem address of the serial device, e.g. /dev/ttyACM0
	Port string

	// Baud is the line rate; 0 means DefaultBaud
	Baud int

	// VerifyCRC requires and checks the CRC trailer on every packet
	VerifyCRC bool

	// IdleTimeout is how long the stream may be silent after the first
	// packet before the device is declared gone; 0 means the 2 second
	// default
	IdleTimeout time.Duration

	conn    io.ReadCloser
	samples chan Sample
	status  chan Status
	stop    chan struct{}
	done    chan struct{}
}

// NewSensor returns a Sensor for the given port.
func NewSensor(port string, baud int) *Sensor {
	if baud == 0 {
		baud = DefaultBaud
	}
	return &Sensor{
		Port:    port,
		Baud:    baud,
		samples: make(chan Sample, 64),
		status:  make(chan Status, 4),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Samples is the stream of decoded packets.
func (s *Sensor) Samples() <-chan Sample { return s.samples }

// Status carries lifecycle transitions; buffered so the reader loop
// never blocks on an inattentive consumer.
func (s *Sensor) Status() <-chan Status { return s.status }

// Open connects to the serial port.  The port is retried with an
// exponential backoff; Arduinos reset on open and drop the first
// connection attempt more often than not.
func (s *Sensor) Open() error {
	op := func() error {
		conn, err := serial.OpenPort(makeSerConf(s.Port, s.Baud))
		if err != nil {
			return err
		}
		s.conn = conn
		return nil
	}
	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      3 * time.Second,
		Clock:               backoff.SystemClock})
	if err != nil {
		return fmt.Errorf("pressure: could not open %s: %w", s.Port, err)
	}
	return nil
}

// Start opens the port and launches the reader.  The error mirrors
// Open; once Start returns nil the consumer owns the channels until
// Stop.
func (s *Sensor) Start() error {
	if err := s.Open(); err != nil {
		return err
	}
	go s.runner()
	return nil
}

// Stop terminates the reader and closes the port.  Effective within one
// read timeout.  Only valid after a successful Start.
func (s *Sensor) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Sensor) runner() {
	defer close(s.done)
	defer s.conn.Close()
	s.emitStatus(Status{State: Connected})
	timeout := s.IdleTimeout
	if timeout == 0 {
		timeout = idleTimeout
	}
	var (
		pending  []byte
		buf      = make([]byte, 256)
		gotFirst bool
		lastData time.Time
	)
	for {
		select {
		case <-s.stop:
			return
		default:
		}
		n, err := s.conn.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			pending = s.drainLines(pending, &gotFirst, &lastData)
		}
		if err != nil && err != io.EOF {
			log.Printf("pressure: read error on %s: %v", s.Port, err)
			s.emitStatus(Status{State: Faulted, Err: err})
			return
		}
		if gotFirst && time.Since(lastData) > timeout {
			log.Printf("pressure: %s silent for %v, assuming device stopped", s.Port, timeout)
			s.emitStatus(Status{State: Disconnected})
			return
		}
	}
}

// drainLines splits complete lines off pending and emits them, returning
// the unconsumed remainder.
func (s *Sensor) drainLines(pending []byte, gotFirst *bool, lastData *time.Time) []byte {
	for {
		nl := -1
		for i, b := range pending {
			if b == '\n' {
				nl = i
				break
			}
		}
		if nl < 0 {
			return pending
		}
		line := string(pending[:nl])
		pending = pending[nl+1:]
		smp, err := ParseLine(line, s.VerifyCRC)
		if err != nil {
			log.Printf("pressure: skipping malformed line %q: %v", line, err)
			continue
		}
		*gotFirst = true
		*lastData = time.Now()
		select {
		case s.samples <- smp:
		case <-s.stop:
			return pending
		}
	}
}

func (s *Sensor) emitStatus(st Status) {
	select {
	case s.status <- st:
	default:
		// consumer is behind; the freshest state is the one that matters
	}
}
