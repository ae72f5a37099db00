package camera

import (
	"fmt"
	"log"
	"time"

	"github.com/prim-lab/primacq/frame"
)

// Sim synthesizes frames at a fixed rate for benches with no camera.
// The image is a diagonal gradient that advances one step per frame so
// successive pages are distinguishable in the output stack.
type Sim struct {
	// Width, Height, Channels describe the synthesized geometry
	Width    int
	Height   int
	Channels int

	// FPS is the synthesis rate in frames per second
	FPS float64

	frames chan frame.Frame
	stop   chan struct{}
	done   chan struct{}
	n      int
}

// NewSim returns an unstarted simulated camera.
func NewSim(width, height, channels int, fps float64) *Sim {
	return &Sim{
		Width:    width,
		Height:   height,
		Channels: channels,
		FPS:      fps,
		frames:   make(chan frame.Frame, 8),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// SetProperty lets a Profile drive the simulation.  FrameRate adjusts
// the synthesis rate and PixelFormat the channel count; the exposure
// and gain knobs have nothing to act on and are accepted silently.
func (s *Sim) SetProperty(name string, value interface{}) error {
	switch name {
	case "FrameRate":
		if v, ok := value.(float64); ok && v > 0 {
			s.FPS = v
		}
	case "PixelFormat":
		switch value {
		case "Mono8", "Mono16":
			s.Channels = 1
		case "RGB8":
			s.Channels = 3
		}
	}
	return nil
}

// Initialize acquires the (stubbed) vendor library.
func (s *Sim) Initialize() error { return AcquireLibrary() }

// Finalize releases the vendor library.
func (s *Sim) Finalize() error { return ReleaseLibrary() }

// GetRes returns the synthesized (W, H).
func (s *Sim) GetRes() ([2]int, error) {
	return [2]int{s.Width, s.Height}, nil
}

// GetFrame synthesizes a single frame on demand.
func (s *Sim) GetFrame() (frame.Frame, error) {
	f := s.render()
	if err := f.Validate(); err != nil {
		return frame.Frame{}, err
	}
	return f, nil
}

// Frames is the stream of synthesized images.
func (s *Sim) Frames() <-chan frame.Frame { return s.frames }

// Start begins synthesis in the background.
func (s *Sim) Start() error {
	if s.FPS <= 0 {
		return fmt.Errorf("camera: sim fps must be positive, got %f", s.FPS)
	}
	if _, err := s.GetFrame(); err != nil {
		return err
	}
	go s.runner()
	return nil
}

// Stop ends synthesis.
func (s *Sim) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Sim) runner() {
	defer close(s.done)
	tick := time.NewTicker(time.Duration(float64(time.Second) / s.FPS))
	defer tick.Stop()
	dropped := 0
	for {
		select {
		case <-s.stop:
			return
		case <-tick.C:
			select {
			case s.frames <- s.render():
				if dropped > 0 {
					log.Printf("camera: sim consumer caught up, dropped %d frames", dropped)
					dropped = 0
				}
			case <-s.stop:
				return
			default:
				// consumer is saturated, drop the frame
				if dropped == 0 {
					log.Printf("camera: sim dropping frames, consumer behind")
				}
				dropped++
			}
		}
	}
}

func (s *Sim) render() frame.Frame {
	pix := make([]byte, s.Width*s.Height*s.Channels)
	i := 0
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			v := byte((x + y + s.n) % 256)
			for c := 0; c < s.Channels; c++ {
				pix[i] = v
				i++
			}
		}
	}
	s.n++
	return frame.Frame{Width: s.Width, Height: s.Height, Channels: s.Channels, Pix: pix}
}
