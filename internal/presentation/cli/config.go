package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"webcam-colorspace/internal/domain"
)

// Config is the parsed command line.
type Config struct {
	CaptureTest bool
	ForceMatrix string
	Device      int // 1-based
	Resolution  string
	Mirror      bool
	SaveRaw     bool
	Range       string
	Backend     string
	OutputDir   string
	UploadAddr  string
	Debug       bool
}

// ParseFlags parses os.Args and exits on error, like flag.Parse.
func (c *CLI) ParseFlags() *Config {
	config, err := Parse(os.Args[0], os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	c.config = config
	return config
}

// Parse builds a Config from args. Positional arguments after the flags are
// taken as a device number or a WxH resolution.
func Parse(name string, args []string, output io.Writer) (*Config, error) {
	config := &Config{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)

	fs.BoolVar(&config.CaptureTest, "capture-test", false, "capture a frame and decode it with BT.601 and BT.709")
	fs.StringVar(&config.ForceMatrix, "force-matrix", "", "override the YUV matrix of a device: bt601 or bt709")
	fs.IntVar(&config.Device, "device", 1, "device number (1-based)")
	fs.StringVar(&config.Resolution, "resolution", "", "capture resolution WxH, default: largest available")
	fs.BoolVar(&config.Mirror, "mirror", false, "mirror the decoded images (selfie view)")
	fs.BoolVar(&config.SaveRaw, "save-raw", false, "also save the raw NV12 frame")
	fs.StringVar(&config.Range, "range", "auto", "quantization range of the frame: auto, full or limited")
	fs.StringVar(&config.Backend, "backend", getEnv("WEBCAM_COLORSPACE_BACKEND", defaultBackend()), "capture backend: v4l2 or mediadevices")
	fs.StringVar(&config.OutputDir, "output", getEnv("WEBCAM_COLORSPACE_OUTPUT", "."), "directory for the captured images")
	fs.StringVar(&config.UploadAddr, "upload", "", "also upload results to a colorspace-sink at host:port")
	fs.BoolVar(&config.Debug, "debug", false, "enable debug logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	for _, arg := range fs.Args() {
		if _, err := ParseResolution(arg); err == nil {
			config.Resolution = arg
			continue
		}
		if n, err := strconv.Atoi(arg); err == nil {
			config.Device = n
			continue
		}
		return nil, fmt.Errorf("unknown argument %q: expected a device number or WxH resolution", arg)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks values that flag parsing cannot.
func (c *Config) Validate() error {
	if _, err := c.DeviceIndex(); err != nil {
		return err
	}
	if c.Resolution != "" {
		if _, err := ParseResolution(c.Resolution); err != nil {
			return err
		}
	}
	if _, err := ParseRange(c.Range); err != nil {
		return err
	}
	if c.ForceMatrix != "" {
		if _, err := domain.ParseMatrixChoice(c.ForceMatrix); err != nil {
			return err
		}
		if c.CaptureTest {
			return errors.New("-capture-test and -force-matrix are mutually exclusive")
		}
	}
	switch c.Backend {
	case "v4l2", "mediadevices":
	default:
		return fmt.Errorf("unknown backend %q: expected v4l2 or mediadevices", c.Backend)
	}
	return nil
}

// DeviceIndex converts the 1-based device number to an index.
func (c *Config) DeviceIndex() (int, error) {
	if c.Device < 1 {
		return 0, fmt.Errorf("device number must be >= 1 (1-based index), got %d", c.Device)
	}
	return c.Device - 1, nil
}

// CaptureRequest assembles the backend request from the configuration.
func (c *Config) CaptureRequest() (domain.CaptureRequest, error) {
	index, err := c.DeviceIndex()
	if err != nil {
		return domain.CaptureRequest{}, err
	}
	mode, err := ParseRange(c.Range)
	if err != nil {
		return domain.CaptureRequest{}, err
	}
	req := domain.CaptureRequest{DeviceIndex: index, Range: mode}
	if c.Resolution != "" {
		res, err := ParseResolution(c.Resolution)
		if err != nil {
			return domain.CaptureRequest{}, err
		}
		req.Resolution = res
	}
	return req, nil
}

// ParseResolution parses "WxH" (case-insensitive x).
func ParseResolution(s string) (*domain.Resolution, error) {
	parts := strings.Split(strings.ToLower(s), "x")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid resolution %q: expected WxH", s)
	}
	w, errW := strconv.ParseUint(parts[0], 10, 32)
	h, errH := strconv.ParseUint(parts[1], 10, 32)
	if errW != nil || errH != nil || w == 0 || h == 0 {
		return nil, fmt.Errorf("invalid resolution %q: expected WxH", s)
	}
	return &domain.Resolution{Width: uint32(w), Height: uint32(h)}, nil
}

// ParseRange parses the -range flag.
func ParseRange(s string) (domain.RangeMode, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return domain.RangeAuto, nil
	case "full":
		return domain.RangeFull, nil
	case "limited":
		return domain.RangeLimited, nil
	}
	return 0, fmt.Errorf("invalid range %q: expected auto, full or limited", s)
}

func defaultBackend() string {
	if runtime.GOOS == "linux" {
		return "v4l2"
	}
	return "mediadevices"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
