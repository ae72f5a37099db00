package main

import (
	"github.com/prim-lab/primacq/camera"
)

// SerialSetup holds the parameters for the pressure box link.
type SerialSetup struct {
	// Port is the serial device, e.g. /dev/ttyACM0.  Empty means simulate.
	Port string `yaml:"port" koanf:"port"`

	// Baud is the line rate; 0 uses the firmware default
	Baud int `yaml:"baud" koanf:"baud"`

	// Simulate forces the sine generator even when Port is set
	Simulate bool `yaml:"simulate" koanf:"simulate"`

	// SimRateHz is the simulated tick rate
	SimRateHz float64 `yaml:"sim_rate_hz" koanf:"sim_rate_hz"`

	// VerifyCRC requires the CRC trailer on every packet (firmware v3+)
	VerifyCRC bool `yaml:"verify_crc" koanf:"verify_crc"`
}

// CameraSetup holds the parameters for the frame source.
type CameraSetup struct {
	// Simulate synthesizes frames instead of touching hardware
	Simulate bool `yaml:"simulate" koanf:"simulate"`

	// Width and Height are the simulated geometry
	Width  int `yaml:"width" koanf:"width"`
	Height int `yaml:"height" koanf:"height"`

	// Profile is the acquisition property set to apply
	Profile camera.Profile `yaml:"profile" koanf:"profile"`
}

// Config is the primacq configuration file.
type Config struct {
	// OutputDir is the root under which session directories are created
	OutputDir string `yaml:"output_dir" koanf:"output_dir"`

	// SessionName labels the session directory
	SessionName string `yaml:"session_name" koanf:"session_name"`

	// MonitorDepth is how many recent samples the live window retains
	MonitorDepth int `yaml:"monitor_depth" koanf:"monitor_depth"`

	Serial SerialSetup `yaml:"serial" koanf:"serial"`
	Camera CameraSetup `yaml:"camera" koanf:"camera"`
}

func defaultConfig() Config {
	return Config{
		OutputDir:    "recordings",
		SessionName:  "session",
		MonitorDepth: 600,
		Serial: SerialSetup{
			Baud:      115200,
			Simulate:  true,
			SimRateHz: 10,
		},
		Camera: CameraSetup{
			Simulate: true,
			Width:    640,
			Height:   480,
			Profile: camera.Profile{
				Model:        "DMK 33UX250",
				ExposureAuto: "Continuous",
				PixelFormat:  "Mono8",
				FrameRate:    10,
			},
		},
	}
}
