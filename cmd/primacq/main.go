package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/theckman/yacspin"
	yml "gopkg.in/yaml.v2"

	"github.com/prim-lab/primacq/camera"
	"github.com/prim-lab/primacq/frame"
	"github.com/prim-lab/primacq/monitor"
	"github.com/prim-lab/primacq/pressure"
	"github.com/prim-lab/primacq/record"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "primacq.yml"
	k              = koanf.New(".")
)

func setupconfig() {
	k.Load(structs.Provider(defaultConfig(), "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
}

func root() {
	str := `primacq records synchronized camera frames and pressure samples from a
PRIM rig to a FITS image stack and a CSV log.

Usage:
	primacq <command>

Commands:
	run
	probe
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `primacq is amenable to configuration via its .yaml file.  For a primer on
YAML, see https://yaml.org/start.html

Without a configuration, the defaults record from simulated sources into
./recordings, which is useful for dry runs on a bench with no hardware.

The serial section points at the PRIM pressure box (an Arduino streaming
"index,elapsed,pressure" lines); leave the port empty or set simulate to
true to use the sum-of-sines generator instead.

The camera section selects frame geometry and an acquisition profile.
Supported profiles, by model string:
- The Imaging Source:
	> DMK 33UX250
	> DMK 33UP5000
Other model strings fall back to a generic property set.

run accepts flags that override the file:
	--output-dir          root folder for session directories
	--session-name        label for this session's folder
	--stop-after-seconds  end the recording automatically (0 = run until ^C)`
	fmt.Println(str)
}

func mkconf() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := Config{}
	k.Unmarshal("", &c)
	err := yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func probe() {
	infos, err := camera.FindU3V()
	if err != nil {
		log.Fatal(err)
	}
	if len(infos) == 0 {
		fmt.Println("no USB3 Vision devices attached")
		return
	}
	for _, info := range infos {
		fmt.Println(info)
	}
}

func run(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	outputDir := fs.String("output-dir", "", "root folder for session directories (overrides config)")
	sessionName := fs.String("session-name", "", "label for this session's folder (overrides config)")
	stopAfter := fs.Float64("stop-after-seconds", 0, "end the recording automatically, 0 runs until interrupted")
	fs.Parse(args)

	cfg := Config{}
	if err := k.Unmarshal("", &cfg); err != nil {
		log.Fatal(err)
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *sessionName != "" {
		cfg.SessionName = *sessionName
	}

	samples, status := makeSampleSource(cfg.Serial)
	frames := makeFrameSource(cfg.Camera)

	mon := monitor.New(cfg.MonitorDepth)
	teeDone := make(chan struct{})
	monitored := teeSamples(samples, mon, teeDone)

	ctl := &record.Controller{}
	if err := ctl.Start(cfg.OutputDir, cfg.SessionName, frames, monitored, status); err != nil {
		log.Fatal(err)
	}
	sess := ctl.Session()
	log.Printf("recording to %s and %s", sess.TabularPath(), sess.StackPath())

	spinner := makeSpinner()
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	var timeout <-chan time.Time
	if *stopAfter > 0 {
		timeout = time.After(time.Duration(*stopAfter * float64(time.Second)))
	}
	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()
loop:
	for {
		select {
		case <-interrupt:
			break loop
		case <-timeout:
			break loop
		case <-tick.C:
			if !ctl.IsRecording() {
				// source loss already ended the session
				break loop
			}
			if spinner != nil {
				_, v := mon.Latest()
				spinner.Message(fmt.Sprintf("%d rows, %d frames, %.2f mmHg",
					sess.RowCount(), ctl.FrameCount(), v))
			}
		}
	}
	if spinner != nil {
		spinner.Stop()
	}

	totals, err := ctl.Stop()
	close(teeDone)
	if err != nil {
		log.Printf("stopping: %v", err)
	}
	fmt.Printf("rows_written: %d\npages_written: %d\nhad_errors: %v\n",
		totals.Rows, totals.Pages, totals.HadErrors)
}

// makeSampleSource builds the live or simulated pressure stream.
func makeSampleSource(setup SerialSetup) (<-chan pressure.Sample, <-chan pressure.Status) {
	if setup.Simulate || setup.Port == "" {
		sim := pressure.NewSimulator(setup.SimRateHz)
		if err := sim.Start(); err != nil {
			log.Fatal(err)
		}
		return sim.Samples(), sim.Status()
	}
	sens := pressure.NewSensor(setup.Port, setup.Baud)
	sens.VerifyCRC = setup.VerifyCRC
	if err := sens.Start(); err != nil {
		log.Fatalf("pressure source unavailable: %v", err)
	}
	return sens.Samples(), sens.Status()
}

// makeFrameSource builds the simulated camera.  With simulate off the
// bus is probed first so a missing camera fails the start the same way
// the SDK-backed driver would.
func makeFrameSource(setup CameraSetup) <-chan frame.Frame {
	if !setup.Simulate {
		infos, err := camera.FindU3V()
		if err != nil {
			log.Fatal(err)
		}
		if len(infos) == 0 {
			log.Fatal("camera source unavailable: no USB3 Vision devices attached")
		}
		log.Printf("found USB3 Vision device %s; vendor driver is not linked in this build, synthesizing frames", infos[0])
	}
	cam := camera.NewSim(setup.Width, setup.Height, 1, setup.Profile.FrameRate)
	ignored, err := setup.Profile.Apply(cam)
	if err != nil {
		log.Fatal(err)
	}
	if len(ignored) > 0 {
		log.Printf("camera: profile keys not supported by %q: %v", setup.Profile.Model, ignored)
	}
	if cam.FPS <= 0 {
		cam.FPS = 10
	}
	if err := cam.Initialize(); err != nil {
		log.Fatal(err)
	}
	if err := cam.Start(); err != nil {
		log.Fatal(err)
	}
	return cam.Frames()
}

func makeSpinner() *yacspin.Spinner {
	cfg := yacspin.Config{
		Frequency:     100 * time.Millisecond,
		CharSet:       yacspin.CharSets[14],
		Suffix:        " recording",
		Message:       "waiting for first sample",
		StopCharacter: "done",
	}
	s, err := yacspin.New(cfg)
	if err != nil {
		return nil
	}
	if err := s.Start(); err != nil {
		return nil
	}
	return s
}

// teeSamples forwards the stream while feeding the live monitor.  Once
// done closes nothing consumes out anymore, so the forwarder gives up
// rather than block on a full buffer.
func teeSamples(in <-chan pressure.Sample, m *monitor.Monitor, done <-chan struct{}) <-chan pressure.Sample {
	out := make(chan pressure.Sample, 64)
	go func() {
		defer close(out)
		for s := range in {
			m.Observe(s)
			select {
			case out <- s:
			case <-done:
				return
			}
		}
	}()
	return out
}

func main() {
	var cmd string
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	setupconfig()
	switch cmd {
	case "run":
		run(os.Args[2:])
	case "probe":
		probe()
	case "mkconf":
		mkconf()
	case "conf":
		printconf()
	case "help":
		help()
	case "version":
		fmt.Printf("primacq version %s\n", Version)
	default:
		root()
	}
}
