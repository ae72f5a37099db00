// Package frame defines the in-memory image buffer handed from camera
// acquisition to the recording pipeline.
package frame

import (
	"fmt"
	"image"

	"github.com/disintegration/gift"
)

// Frame is a single camera image.  Pix is row-major with interleaved
// channels and must hold exactly Width*Height*Channels bytes.  A Frame
// handed to the recording pipeline is owned by it until written or
// discarded; producers must not mutate Pix after handoff.
type Frame struct {
	Width    int
	Height   int
	Channels int
	Pix      []byte
}

// grayscaler collapses color frames; reused across calls, the filter is
// stateless and concurrent safe per the gift documentation.
var grayscaler = gift.New(gift.Grayscale())

// Validate checks the buffer length against the stated geometry.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("frame: invalid geometry %dx%d", f.Width, f.Height)
	}
	if f.Channels != 1 && f.Channels != 3 && f.Channels != 4 {
		return fmt.Errorf("frame: unsupported channel count %d", f.Channels)
	}
	if want := f.Width * f.Height * f.Channels; len(f.Pix) != want {
		return fmt.Errorf("frame: pixel buffer is %d bytes, want %d", len(f.Pix), want)
	}
	return nil
}

// Gray collapses the frame to a single channel.  Single-channel frames
// are returned as-is; 3 and 4 channel frames are converted through a
// luminance filter.  The returned slice holds Width*Height bytes.
func (f Frame) Gray() ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if f.Channels == 1 {
		return f.Pix, nil
	}
	src := f.toNRGBA()
	dst := image.NewGray(src.Bounds())
	grayscaler.Draw(dst, src)
	return dst.Pix, nil
}

// toNRGBA wraps or expands Pix into an NRGBA image so gift can consume it.
func (f Frame) toNRGBA() *image.NRGBA {
	rect := image.Rect(0, 0, f.Width, f.Height)
	if f.Channels == 4 {
		return &image.NRGBA{Pix: f.Pix, Stride: 4 * f.Width, Rect: rect}
	}
	// 3 channel: expand with an opaque alpha
	img := image.NewNRGBA(rect)
	for i, j := 0, 0; i < len(f.Pix); i, j = i+3, j+4 {
		img.Pix[j] = f.Pix[i]
		img.Pix[j+1] = f.Pix[i+1]
		img.Pix[j+2] = f.Pix[i+2]
		img.Pix[j+3] = 0xFF
	}
	return img
}
