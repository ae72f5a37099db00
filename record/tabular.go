/*Package record contains the recording synchronization core: the
tabular and image-stack sinks, the pairing state machine that keeps
them in lock-step, and the session controller that owns one recording
end to end.

One recording session produces one CSV file of pressure samples and
one multi-extension FITS file of camera frames, both created lazily
when the first sample arrives and sharing a timestamped base name.
*/
package record

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/prim-lab/primacq/pressure"
)

// tabularHeader is written exactly once per file.
var tabularHeader = []string{"frame_index", "elapsed_time_s", "pressure_value"}

// Tabular is an append-only CSV sink for pressure samples.  It is not
// concurrent safe; the session serializes access to it.
type Tabular struct {
	// Path is where the file is created on Open
	Path string

	file   *os.File
	buf    *bufio.Writer
	w      *csv.Writer
	count  int
	closed bool
}

// Open creates the file, truncating prior content, and writes the
// header row.
func (t *Tabular) Open() error {
	f, err := os.Create(t.Path)
	if err != nil {
		return fmt.Errorf("record: create csv %s: %w", t.Path, err)
	}
	t.file = f
	t.buf = bufio.NewWriter(f)
	t.w = csv.NewWriter(t.buf)
	if err := t.w.Write(tabularHeader); err != nil {
		f.Close()
		t.file = nil
		return fmt.Errorf("record: write csv header: %w", err)
	}
	return nil
}

// Write appends one row.  Rows are flushed through to the OS per call
// so a crash loses at most the row in flight.
func (t *Tabular) Write(s pressure.Sample) error {
	if t.file == nil || t.closed {
		return fmt.Errorf("record: csv sink not open")
	}
	row := []string{
		strconv.Itoa(s.Index),
		strconv.FormatFloat(s.Elapsed, 'f', 6, 64),
		strconv.FormatFloat(s.Value, 'f', 6, 64),
	}
	if err := t.w.Write(row); err != nil {
		return fmt.Errorf("record: write csv row: %w", err)
	}
	t.w.Flush()
	if err := t.w.Error(); err != nil {
		return fmt.Errorf("record: flush csv row: %w", err)
	}
	if err := t.buf.Flush(); err != nil {
		return fmt.Errorf("record: flush csv buffer: %w", err)
	}
	t.count++
	return nil
}

// Close flushes and closes the file.  Tolerates double close and close
// without open.
func (t *Tabular) Close() error {
	if t.file == nil || t.closed {
		return nil
	}
	t.closed = true
	t.w.Flush()
	if err := t.buf.Flush(); err != nil {
		t.file.Close()
		return fmt.Errorf("record: final csv flush: %w", err)
	}
	if err := t.file.Close(); err != nil {
		return fmt.Errorf("record: close csv: %w", err)
	}
	return nil
}

// Count reports rows written, excluding the header.
func (t *Tabular) Count() int { return t.count }
