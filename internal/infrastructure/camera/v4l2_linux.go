//go:build linux

package camera

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blackjack/webcam"

	"webcam-colorspace/internal/application"
	"webcam-colorspace/internal/domain"
)

// fourccNV12 is V4L2_PIX_FMT_NV12.
const fourccNV12 = webcam.PixelFormat('N' | 'V'<<8 | '1'<<16 | '2'<<24)

const frameWaitTimeout = 5 // seconds

// V4L2Backend captures raw NV12 frames straight from /dev/video* nodes.
type V4L2Backend struct {
	logger    application.Logger
	devGlob   string
	sysfsRoot string
}

// NewV4L2Backend creates the Video4Linux2 backend.
func NewV4L2Backend(logger application.Logger) *V4L2Backend {
	return &V4L2Backend{
		logger:    logger,
		devGlob:   "/dev/video*",
		sysfsRoot: "/sys/class/video4linux",
	}
}

// Name returns the backend name
func (b *V4L2Backend) Name() string {
	return "v4l2"
}

// Enumerate lists every node that opens as a capture device.
func (b *V4L2Backend) Enumerate() ([]domain.DeviceInfo, error) {
	paths, err := b.devicePaths()
	if err != nil {
		return nil, err
	}

	devices := make([]domain.DeviceInfo, 0, len(paths))
	for _, path := range paths {
		device, err := b.readDevice(path)
		if err != nil {
			b.logger.Debug("Skipping %s: %v", path, err)
			continue
		}
		devices = append(devices, device)
	}
	return devices, nil
}

func (b *V4L2Backend) devicePaths() ([]string, error) {
	paths, err := filepath.Glob(b.devGlob)
	if err != nil {
		return nil, err
	}
	sort.Slice(paths, func(i, j int) bool {
		return deviceNumber(paths[i]) < deviceNumber(paths[j])
	})
	return paths, nil
}

func deviceNumber(path string) int {
	var n int
	if _, err := fmt.Sscanf(filepath.Base(path), "video%d", &n); err != nil {
		return -1
	}
	return n
}

func (b *V4L2Backend) deviceName(path string) string {
	data, err := os.ReadFile(filepath.Join(b.sysfsRoot, filepath.Base(path), "name"))
	if err != nil {
		return filepath.Base(path)
	}
	return strings.TrimSpace(string(data))
}

func (b *V4L2Backend) readDevice(path string) (domain.DeviceInfo, error) {
	cam, err := webcam.Open(path)
	if err != nil {
		return domain.DeviceInfo{}, err
	}
	defer cam.Close()

	colorspace := domain.NotAvailable()
	if pix, err := getFormat(path); err == nil {
		colorspace = colorspaceInfo(pix)
	} else {
		b.logger.Debug("VIDIOC_G_FMT on %s failed: %v", path, err)
	}

	device := domain.DeviceInfo{
		Name: b.deviceName(path),
		Path: path,
	}

	formats := cam.GetSupportedFormats()
	codes := make([]webcam.PixelFormat, 0, len(formats))
	for code := range formats {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	for _, code := range codes {
		for _, size := range cam.GetSupportedFrameSizes(code) {
			w, h := size.MaxWidth, size.MaxHeight
			device.Formats = append(device.Formats, domain.FormatInfo{
				PixelFormat: fourccName(code),
				Resolution:  fmt.Sprintf("%dx%d", w, h),
				FrameRate:   frameRates(cam.GetSupportedFramerates(code, w, h)),
				Colorspace:  colorspace,
			})
		}
	}
	return device, nil
}

func fourccName(code webcam.PixelFormat) string {
	b := []byte{byte(code), byte(code >> 8), byte(code >> 16), byte(code >> 24)}
	return strings.TrimRight(string(b), " \x00")
}

func frameRates(rates []webcam.FrameRate) string {
	var out []string
	for _, r := range rates {
		// Frame intervals: fps is denominator/numerator.
		if r.MaxNumerator == 0 {
			continue
		}
		out = append(out, fmt.Sprintf("%.2f fps", float64(r.MaxDenominator)/float64(r.MaxNumerator)))
	}
	if len(out) == 0 {
		return "Unknown"
	}
	return strings.Join(out, ", ")
}

func (b *V4L2Backend) pathFor(index int) (string, error) {
	devices, err := b.Enumerate()
	if err != nil {
		return "", err
	}
	if len(devices) == 0 {
		return "", domain.ErrNoDevices
	}
	if index < 0 || index >= len(devices) {
		return "", &domain.DeviceIndexError{Index: index, Count: len(devices)}
	}
	return devices[index].Path, nil
}

// Capture streams from the device until one frame past warm-up arrives.
func (b *V4L2Backend) Capture(ctx context.Context, req domain.CaptureRequest) (domain.Frame, error) {
	path, err := b.pathFor(req.DeviceIndex)
	if err != nil {
		return domain.Frame{}, err
	}

	cam, err := webcam.Open(path)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer cam.Close()

	formats := cam.GetSupportedFormats()
	if _, ok := formats[fourccNV12]; !ok {
		names := make([]string, 0, len(formats))
		for code := range formats {
			names = append(names, fourccName(code))
		}
		sort.Strings(names)
		return domain.Frame{}, fmt.Errorf("%s offers %s: %w", path, strings.Join(names, ", "),
			&domain.UnsupportedFormatError{Format: domain.PixelFormatNV12})
	}

	width, height := largestSize(cam.GetSupportedFrameSizes(fourccNV12))
	if req.Resolution != nil {
		width, height = req.Resolution.Width, req.Resolution.Height
	}

	code, width, height, err := cam.SetImageFormat(fourccNV12, width, height)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("set NV12 format on %s: %w", path, err)
	}
	if code != fourccNV12 {
		return domain.Frame{}, &domain.UnsupportedFormatError{Format: domain.PixelFormat(fourccName(code))}
	}
	b.logger.Info("Capturing NV12 %dx%d from %s", width, height, path)

	stride := width
	var reported *bool
	if pix, err := getFormat(path); err == nil {
		if pix.BytesPerLine > 0 {
			stride = pix.BytesPerLine
		}
		reported = reportedRange(pix)
	}

	if err := cam.StartStreaming(); err != nil {
		return domain.Frame{}, fmt.Errorf("start streaming on %s: %w", path, err)
	}
	defer cam.StopStreaming()

	raw, err := b.readFrame(ctx, cam)
	if err != nil {
		return domain.Frame{}, err
	}

	data, err := compactNV12(raw, width, height, stride)
	if err != nil {
		return domain.Frame{}, err
	}

	return domain.Frame{
		Width:       width,
		Height:      height,
		PixelFormat: domain.PixelFormatNV12,
		FullRange:   applyRange(req.Range, reported),
		Data:        data,
	}, nil
}

func (b *V4L2Backend) readFrame(ctx context.Context, cam *webcam.Webcam) ([]byte, error) {
	for seen := 0; ; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		err := cam.WaitForFrame(frameWaitTimeout)
		var timeout *webcam.Timeout
		switch {
		case errors.As(err, &timeout):
			b.logger.Debug("Timed out waiting for a frame, retrying")
			continue
		case err != nil:
			return nil, fmt.Errorf("wait for frame: %w", err)
		}

		frame, err := cam.ReadFrame()
		if err != nil {
			return nil, fmt.Errorf("read frame: %w", err)
		}
		if len(frame) == 0 {
			continue
		}
		seen++
		if seen <= warmupFrames {
			continue
		}
		// The buffer is an mmap'd driver buffer that is requeued on the next read.
		return append([]byte(nil), frame...), nil
	}
}

func largestSize(sizes []webcam.FrameSize) (uint32, uint32) {
	var w, h uint32
	for _, s := range sizes {
		if uint64(s.MaxWidth)*uint64(s.MaxHeight) > uint64(w)*uint64(h) {
			w, h = s.MaxWidth, s.MaxHeight
		}
	}
	return w, h
}

// ForceMatrix requests a YCbCr encoding change through VIDIOC_S_FMT. Drivers
// that cannot convert leave the encoding unchanged, which is reported as
// domain.ErrNotSupported.
func (b *V4L2Backend) ForceMatrix(index int, choice domain.MatrixChoice) error {
	path, err := b.pathFor(index)
	if err != nil {
		return err
	}

	want := ycbcrEncFor(choice)
	pix, err := setYCbCrEnc(path, want)
	if err != nil {
		return fmt.Errorf("VIDIOC_S_FMT on %s: %w", path, err)
	}
	if pix.YCbCrEnc != want {
		return fmt.Errorf("%s kept YCbCr encoding %q: %w", path, ycbcrEncName(pix.YCbCrEnc), domain.ErrNotSupported)
	}
	b.logger.Info("%s now reports %s", path, ycbcrEncName(pix.YCbCrEnc))
	return nil
}
