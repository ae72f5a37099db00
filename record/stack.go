package record

import (
	"fmt"
	"os"

	"github.com/astrogo/fitsio"

	"github.com/prim-lab/primacq/frame"
	"github.com/prim-lab/primacq/pressure"
)

// Stack is an append-only multi-page image sink.  Each page is one FITS
// image HDU whose header carries the frame's logical index and the most
// recent pressure sample.  FITS addresses >4 GiB natively, so sessions
// may run indefinitely.  Not concurrent safe; the session serializes
// access.
type Stack struct {
	// Path is where the file is created on Open
	Path string

	file   *os.File
	fits   *fitsio.File
	count  int
	closed bool
}

// Open creates the output file and the FITS container.
func (s *Stack) Open() error {
	f, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("record: create stack %s: %w", s.Path, err)
	}
	fits, err := fitsio.Create(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("record: create fits container: %w", err)
	}
	s.file = f
	s.fits = fits
	return nil
}

// Write appends one page.  The frame is collapsed to a single channel
// first; idx and last become header cards so downstream consumers can
// correlate pages with tabular rows by index.
func (s *Stack) Write(f frame.Frame, idx int, last pressure.Sample) error {
	if s.fits == nil || s.closed {
		return fmt.Errorf("record: stack sink not open")
	}
	gray, err := f.Gray()
	if err != nil {
		return fmt.Errorf("record: page %d: %w", idx, err)
	}
	// widen to int16; FITS has no unsigned 8-bit convention worth using
	buf := make([]int16, len(gray))
	for i := range gray {
		buf[i] = int16(gray[i])
	}
	im := fitsio.NewImage(16, []int{f.Width, f.Height})
	defer im.Close()
	cards := []fitsio.Card{
		{Name: "FRAMEIDX", Value: idx, Comment: "dense 0-based page index"},
		{Name: "ELAPSED", Value: last.Elapsed, Comment: "elapsed time of last sample [s]"},
		{Name: "PRESSURE", Value: last.Value, Comment: "pressure of last sample [mmHg]"},
	}
	if err := im.Header().Append(cards...); err != nil {
		return fmt.Errorf("record: page %d header: %w", idx, err)
	}
	if err := im.Write(buf); err != nil {
		return fmt.Errorf("record: page %d pixels: %w", idx, err)
	}
	if err := s.fits.Write(im); err != nil {
		return fmt.Errorf("record: page %d append: %w", idx, err)
	}
	s.count++
	return nil
}

// Close finalizes the container and closes the file.  Tolerates double
// close and close without open.
func (s *Stack) Close() error {
	if s.fits == nil || s.closed {
		return nil
	}
	s.closed = true
	ferr := s.fits.Close()
	cerr := s.file.Close()
	if ferr != nil {
		return fmt.Errorf("record: finalize fits: %w", ferr)
	}
	if cerr != nil {
		return fmt.Errorf("record: close stack: %w", cerr)
	}
	return nil
}

// Count reports pages written.
func (s *Stack) Count() int { return s.count }
