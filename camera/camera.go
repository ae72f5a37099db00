/*Package camera describes a standard set of interfaces for control of
GenICam / USB3 Vision cameras and provides a simulated implementation
for benches with no hardware attached.

The Minimal type contains the basics, while Streamer is the push
contract the recording pipeline consumes.

*/
package camera

import "github.com/prim-lab/primacq/frame"

// Minimal describes a minimal camera interface with only the basics.
type Minimal interface {
	// Initialize initializes the camera.  This may have myriad side effects,
	// for example the initialization of a camera driver in C,
	// the allocation of buffer(s) for holding camera frames,
	// and the programming of hardware parameters like exposure,
	// gain, or pixel format.
	Initialize() error

	// Finalize finalizes the camera, which may have myriad side effects
	// but most prominently, will typically call a similar function
	// on the camera driver
	Finalize() error

	// GetRes gets the (W, H) associated with frames produced by the camera
	GetRes() ([2]int, error)

	// GetFrame gets a single frame on demand
	GetFrame() (frame.Frame, error)
}

// Streamer delivers a continuous frame sequence on a channel.  Frames
// may arrive at an uneven rate; the consumer is responsible for
// dropping frames it cannot use.
type Streamer interface {
	// Frames is the stream of acquired images.  The channel is valid
	// from construction; values are only sent between Start and Stop.
	Frames() <-chan frame.Frame

	// Start begins acquisition
	Start() error

	// Stop ends acquisition.  It blocks until the acquisition loop has
	// exited, and must be called exactly once after a successful Start.
	Stop()
}

// PropertyWriter applies one named device property.  Vendor SDKs expose
// settings as loosely typed name to value maps; implementations narrow
// that to the properties they recognize and reject the rest.
type PropertyWriter interface {
	SetProperty(name string, value interface{}) error
}
