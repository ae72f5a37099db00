package frame

import "testing"

func TestGrayPassthroughMono(t *testing.T) {
	pix := []byte{0, 50, 100, 150, 200, 250}
	f := Frame{Width: 3, Height: 2, Channels: 1, Pix: pix}
	gray, err := f.Gray()
	if err != nil {
		t.Fatal(err)
	}
	if len(gray) != 6 {
		t.Fatalf("expected 6 gray pixels, got %d", len(gray))
	}
	for i := range pix {
		if gray[i] != pix[i] {
			t.Errorf("pixel %d modified: %d != %d", i, gray[i], pix[i])
		}
	}
}

func TestGrayCollapsesRGB(t *testing.T) {
	// 2x1 RGB, one white pixel and one black pixel
	f := Frame{Width: 2, Height: 1, Channels: 3, Pix: []byte{255, 255, 255, 0, 0, 0}}
	gray, err := f.Gray()
	if err != nil {
		t.Fatal(err)
	}
	if len(gray) != 2 {
		t.Fatalf("expected 2 gray pixels, got %d", len(gray))
	}
	if gray[0] < 250 {
		t.Errorf("white pixel became %d", gray[0])
	}
	if gray[1] > 5 {
		t.Errorf("black pixel became %d", gray[1])
	}
}

func TestValidateRejectsShortBuffer(t *testing.T) {
	f := Frame{Width: 4, Height: 4, Channels: 1, Pix: make([]byte, 15)}
	if err := f.Validate(); err == nil {
		t.Fatal("expected error for short pixel buffer")
	}
}

func TestValidateRejectsBadChannels(t *testing.T) {
	f := Frame{Width: 2, Height: 2, Channels: 2, Pix: make([]byte, 8)}
	if err := f.Validate(); err == nil {
		t.Fatal("expected error for 2-channel frame")
	}
}
