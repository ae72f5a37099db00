package pressure

import (
	"errors"
	"testing"
)

func TestParseLinePlain(t *testing.T) {
	s, err := ParseLine("12,1.500000,53.250000\r", false)
	if err != nil {
		t.Fatal(err)
	}
	if s.Index != 12 {
		t.Errorf("index: expected 12, got %d", s.Index)
	}
	if s.Elapsed != 1.5 {
		t.Errorf("elapsed: expected 1.5, got %f", s.Elapsed)
	}
	if s.Value != 53.25 {
		t.Errorf("value: expected 53.25, got %f", s.Value)
	}
}

func TestParseLineShort(t *testing.T) {
	_, err := ParseLine("12,1.5", false)
	if !errors.Is(err, ErrShortLine) {
		t.Fatalf("expected ErrShortLine, got %v", err)
	}
}

func TestParseLineBadField(t *testing.T) {
	_, err := ParseLine("twelve,1.5,53.25", false)
	if err == nil {
		t.Fatal("expected parse error for non-numeric index")
	}
}

func TestParseLineCRCRoundTrip(t *testing.T) {
	line := FormatLine(Sample{Index: 3, Elapsed: 0.3, Value: 61.125})
	s, err := ParseLine(line, true)
	if err != nil {
		t.Fatal(err)
	}
	if s.Index != 3 {
		t.Errorf("index: expected 3, got %d", s.Index)
	}
}

func TestParseLineCRCMismatch(t *testing.T) {
	line := FormatLine(Sample{Index: 3, Elapsed: 0.3, Value: 61.125})
	// corrupt the payload but keep the trailer
	corrupted := "4" + line[1:]
	_, err := ParseLine(corrupted, true)
	if !errors.Is(err, ErrBadChecksum) {
		t.Fatalf("expected ErrBadChecksum, got %v", err)
	}
}

func TestParseLineCRCMissing(t *testing.T) {
	_, err := ParseLine("1,0.1,50.0", true)
	if !errors.Is(err, ErrBadChecksum) {
		t.Fatalf("expected ErrBadChecksum for missing trailer, got %v", err)
	}
}

func TestStateString(t *testing.T) {
	if Connected.String() != "connected" {
		t.Error("Connected misnamed")
	}
	if Disconnected.String() != "disconnected" {
		t.Error("Disconnected misnamed")
	}
	if Faulted.String() != "faulted" {
		t.Error("Faulted misnamed")
	}
}
