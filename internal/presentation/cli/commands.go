package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"webcam-colorspace/internal/application"
	"webcam-colorspace/internal/domain"
)

// CLI is the command-line front end of the diagnostic tool.
type CLI struct {
	service *application.DiagnosticService
	host    application.HostInfo
	logger  application.Logger
	config  *Config
	out     io.Writer
}

// NewCLI creates the CLI. service and host may be nil while only flags are parsed.
func NewCLI(service *application.DiagnosticService, host application.HostInfo, logger application.Logger) *CLI {
	return &CLI{
		service: service,
		host:    host,
		logger:  logger,
		out:     os.Stdout,
	}
}

// SetConfig sets the configuration without parsing flags again
func (c *CLI) SetConfig(config *Config) {
	c.config = config
}

// SetOutput redirects the report, stdout by default.
func (c *CLI) SetOutput(w io.Writer) {
	c.out = w
}

// Run executes the command selected by the configuration.
func (c *CLI) Run(ctx context.Context) error {
	switch {
	case c.config.ForceMatrix != "":
		return c.forceMatrix()
	case c.config.CaptureTest:
		return c.captureTest(ctx)
	default:
		return c.enumerate()
	}
}

func (c *CLI) printHeader() {
	fmt.Fprintln(c.out, "webcam-colorspace: Camera Colorspace Diagnostic Tool")
	fmt.Fprintln(c.out, "======================================================")
}

func (c *CLI) enumerate() error {
	c.printHeader()
	fmt.Fprintln(c.out)
	if c.host != nil {
		fmt.Fprintf(c.out, "OS: %s\n", c.host.Describe())
	}
	fmt.Fprintln(c.out)

	devices, err := c.service.ListDevices()
	if err != nil {
		return err
	}

	if len(devices) == 0 {
		fmt.Fprintln(c.out, "No camera devices found.")
		return nil
	}

	fmt.Fprintf(c.out, "Found %d camera device(s):\n\n", len(devices))
	for i, device := range devices {
		fmt.Fprintf(c.out, "━━━ Device %d: %s ━━━\n", i+1, device.Name)
		if device.Path != "" {
			fmt.Fprintf(c.out, "    Path: %s\n", device.Path)
		}

		if len(device.Formats) == 0 {
			fmt.Fprintln(c.out, "    No formats reported.")
			continue
		}

		fmt.Fprintf(c.out, "    Formats (%d unique):\n", len(device.Formats))
		for _, f := range device.Formats {
			fmt.Fprintf(c.out, "      %s %s @ %s\n", f.PixelFormat, f.Resolution, f.FrameRate)
			fmt.Fprintf(c.out, "        Primaries: %s\n", f.Colorspace.Primaries)
			fmt.Fprintf(c.out, "        YUV Matrix: %s\n", MatrixHighlight(f.Colorspace.Matrix))
			fmt.Fprintf(c.out, "        Transfer: %s\n", f.Colorspace.Transfer)
			fmt.Fprintf(c.out, "        Range: %s\n", f.Colorspace.Range)
		}
		fmt.Fprintln(c.out)
	}

	c.printLegend()
	return nil
}

// MatrixHighlight annotates the matrix names that matter for the diagnosis.
func MatrixHighlight(matrix string) string {
	switch matrix {
	case "BT.709":
		return matrix + " <-- expected for modern OS (Win 24H2+, Linux 720p+)"
	case "BT.601":
		return matrix + " <-- legacy; may cause color shift on modern OS"
	case "Not specified":
		return matrix + " <-- OS will assume a default (check OS docs)"
	}
	return matrix
}

func (c *CLI) printLegend() {
	fmt.Fprintln(c.out, "Legend")
	fmt.Fprintln(c.out, "------")
	fmt.Fprintln(c.out, "  YUV Matrix is the key diagnostic field:")
	fmt.Fprintln(c.out, "    BT.709  = HD standard. Required by Windows 24H2+, Linux 720p+, ChromeOS.")
	fmt.Fprintln(c.out, "    BT.601  = SD standard. Legacy; causes color shift if OS expects BT.709.")
	fmt.Fprintln(c.out, "    Not specified = OS will pick a default. May vary by OS version.")
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "  If the matrix shows 'Not specified' for all formats, the camera driver")
	fmt.Fprintln(c.out, "  does not advertise colorspace info. The OS will apply its own default.")
}

func (c *CLI) captureTest(ctx context.Context) error {
	c.printHeader()
	fmt.Fprintln(c.out)

	req, err := c.config.CaptureRequest()
	if err != nil {
		return err
	}

	result, err := c.service.CaptureTest(ctx, application.CaptureOptions{
		Request:   req,
		Mirror:    c.config.Mirror,
		SaveRaw:   c.config.SaveRaw,
		OutputDir: c.config.OutputDir,
	})
	if result != nil {
		fmt.Fprintf(c.out, "Captured %s frame: %dx%d\n", result.PixelFormat, result.Width, result.Height)
		for _, path := range result.Files {
			fmt.Fprintf(c.out, "Saved: %s\n", path)
		}
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, "Compare the two images side by side:")
	fmt.Fprintln(c.out, "  - The image with correct colors reveals which matrix the firmware uses.")
	fmt.Fprintln(c.out, "  - If capture_bt601.bmp looks correct, firmware encodes BT.601.")
	fmt.Fprintln(c.out, "  - If capture_bt709.bmp looks correct, firmware encodes BT.709.")
	return nil
}

func (c *CLI) forceMatrix() error {
	c.printHeader()
	fmt.Fprintln(c.out)

	choice, err := domain.ParseMatrixChoice(c.config.ForceMatrix)
	if err != nil {
		return err
	}
	index, err := c.config.DeviceIndex()
	if err != nil {
		return err
	}

	err = c.service.ForceMatrix(index, choice)
	if errors.Is(err, domain.ErrNotSupported) {
		fmt.Fprintf(c.out, "Device %d: %s override is not supported by the %s backend.\n",
			index+1, choice, c.config.Backend)
		return err
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Device %d now reports %s.\n", index+1, choice)
	return nil
}
