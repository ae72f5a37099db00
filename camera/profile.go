package camera

import "fmt"

// Profile is a typed bundle of acquisition properties for one camera
// model.  It replaces the loose name to value property maps the vendor
// SDK exposes with an explicit, enumerated set of knobs.
type Profile struct {
	// Model is the device model string, e.g. "DMK 33UX250"
	Model string `yaml:"model" koanf:"model"`

	// ExposureAuto is "Off" or "Continuous"
	ExposureAuto string `yaml:"exposure_auto" koanf:"exposure_auto"`

	// ExposureUS is the manual exposure time in microseconds
	ExposureUS float64 `yaml:"exposure_us" koanf:"exposure_us"`

	// GainDB is the analog gain in dB
	GainDB float64 `yaml:"gain_db" koanf:"gain_db"`

	// PixelFormat is the GenICam pixel format name, e.g. "Mono8"
	PixelFormat string `yaml:"pixel_format" koanf:"pixel_format"`

	// FrameRate is the acquisition rate in Hz
	FrameRate float64 `yaml:"frame_rate" koanf:"frame_rate"`
}

// supportedKeys enumerates which properties each known model honors.
// Models absent from the map fall back to the generic set.
var supportedKeys = map[string]map[string]bool{
	"DMK 33UX250": {
		"ExposureAuto": true,
		"ExposureTime": true,
		"Gain":         true,
		"PixelFormat":  true,
		"FrameRate":    true,
	},
	"DMK 33UP5000": {
		"ExposureAuto": true,
		"ExposureTime": true,
		"Gain":         true,
		"PixelFormat":  true,
		// no hardware frame rate control; paced by exposure
	},
}

var genericKeys = map[string]bool{
	"ExposureAuto": true,
	"ExposureTime": true,
	"Gain":         true,
	"PixelFormat":  true,
	"FrameRate":    true,
}

// Apply pushes the profile onto the device through w.  Properties the
// model does not support are skipped and returned in ignored; an error
// from the device aborts the application.
func (p Profile) Apply(w PropertyWriter) (ignored []string, err error) {
	keys := supportedKeys[p.Model]
	if keys == nil {
		keys = genericKeys
	}
	set := func(name string, value interface{}) error {
		if err != nil {
			return err
		}
		if !keys[name] {
			ignored = append(ignored, name)
			return nil
		}
		if e := w.SetProperty(name, value); e != nil {
			err = fmt.Errorf("camera: set %s on %s: %w", name, p.Model, e)
		}
		return err
	}
	set("ExposureAuto", p.ExposureAuto)
	set("ExposureTime", p.ExposureUS)
	set("Gain", p.GainDB)
	set("PixelFormat", p.PixelFormat)
	set("FrameRate", p.FrameRate)
	return ignored, err
}
