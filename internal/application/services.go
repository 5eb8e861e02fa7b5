package application

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"webcam-colorspace/internal/domain"
	"webcam-colorspace/internal/imaging"
)

// RawFileName is the file a captured NV12 frame is dumped to with SaveRaw.
const RawFileName = "capture_raw.nv12"

// Variant pairs a transform standard with the bitmap it is decoded into.
type Variant struct {
	Standard domain.TransformStandard
	FileName string
}

// DefaultVariants decodes every capture with both supported matrices so the
// operator can tell which one the camera firmware actually uses.
var DefaultVariants = []Variant{
	{Standard: domain.BT601, FileName: "capture_bt601.bmp"},
	{Standard: domain.BT709, FileName: "capture_bt709.bmp"},
}

// CaptureOptions controls a capture test run.
type CaptureOptions struct {
	Request   domain.CaptureRequest
	Mirror    bool
	SaveRaw   bool
	OutputDir string
}

// CaptureResult summarizes a capture test run.
type CaptureResult struct {
	Width       uint32
	Height      uint32
	PixelFormat domain.PixelFormat
	FullRange   bool
	Files       []string
}

// DiagnosticService runs the colorspace diagnostics on top of a capture backend.
type DiagnosticService struct {
	backend  CaptureBackend
	uploader Uploader
	logger   Logger
	variants []Variant
}

// NewDiagnosticService creates the service. uploader may be nil.
func NewDiagnosticService(backend CaptureBackend, uploader Uploader, logger Logger) *DiagnosticService {
	return &DiagnosticService{
		backend:  backend,
		uploader: uploader,
		logger:   logger,
		variants: DefaultVariants,
	}
}

// ListDevices returns the capture devices with duplicate format entries removed.
func (s *DiagnosticService) ListDevices() ([]domain.DeviceInfo, error) {
	devices, err := s.backend.Enumerate()
	if err != nil {
		s.logger.Error("Failed to enumerate devices via %s: %v", s.backend.Name(), err)
		return nil, err
	}
	for i := range devices {
		devices[i].Formats = UniqueFormats(devices[i].Formats)
	}
	s.logger.Debug("Enumerated %d device(s) via %s", len(devices), s.backend.Name())
	return devices, nil
}

// UniqueFormats keeps the first entry of every (format, resolution, rate) combination.
func UniqueFormats(formats []domain.FormatInfo) []domain.FormatInfo {
	seen := make(map[string]struct{}, len(formats))
	unique := make([]domain.FormatInfo, 0, len(formats))
	for _, f := range formats {
		if _, ok := seen[f.Key()]; ok {
			continue
		}
		seen[f.Key()] = struct{}{}
		unique = append(unique, f)
	}
	return unique
}

// CaptureTest grabs one frame, decodes it with every variant and writes one
// bitmap per variant. All decoding happens before the first file is written.
func (s *DiagnosticService) CaptureTest(ctx context.Context, opts CaptureOptions) (*CaptureResult, error) {
	frame, err := s.backend.Capture(ctx, opts.Request)
	if err != nil {
		s.logger.Error("Capture failed: %v", err)
		return nil, err
	}
	s.logger.Info("Captured %s frame: %dx%d (full range: %t)",
		frame.PixelFormat, frame.Width, frame.Height, frame.FullRange)

	images := make([][]byte, len(s.variants))
	for i, v := range s.variants {
		s.logger.Info("Decoding with %s...", v.Standard.Name)
		rgb, err := imaging.ConvertNV12(frame, v.Standard, frame.FullRange)
		if err != nil {
			return nil, fmt.Errorf("decode with %s: %w", v.Standard.Name, err)
		}
		if opts.Mirror {
			if err := imaging.MirrorHorizontal(rgb, frame.Width, frame.Height); err != nil {
				return nil, err
			}
		}
		images[i] = rgb
	}

	result := &CaptureResult{
		Width:       frame.Width,
		Height:      frame.Height,
		PixelFormat: frame.PixelFormat,
		FullRange:   frame.FullRange,
	}

	if opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	for i, v := range s.variants {
		path := filepath.Join(opts.OutputDir, v.FileName)
		if err := imaging.WriteBMP(path, frame.Width, frame.Height, images[i]); err != nil {
			return result, err
		}
		s.logger.Debug("Wrote %s", path)
		result.Files = append(result.Files, path)
	}

	if opts.SaveRaw {
		path := filepath.Join(opts.OutputDir, RawFileName)
		if err := os.WriteFile(path, frame.Data, 0o644); err != nil {
			return result, fmt.Errorf("write raw frame %s: %w", path, err)
		}
		result.Files = append(result.Files, path)
	}

	if s.uploader != nil {
		if err := s.uploadAll(ctx, result.Files); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (s *DiagnosticService) uploadAll(ctx context.Context, files []string) error {
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s for upload: %w", path, err)
		}
		if err := s.uploader.Upload(ctx, filepath.Base(path), data); err != nil {
			s.logger.Error("Upload of %s failed: %v", path, err)
			return fmt.Errorf("upload %s: %w", filepath.Base(path), err)
		}
		s.logger.Info("Uploaded %s (%d bytes)", filepath.Base(path), len(data))
	}
	return nil
}

// ForceMatrix asks the backend to override the YUV matrix of a device.
func (s *DiagnosticService) ForceMatrix(index int, choice domain.MatrixChoice) error {
	s.logger.Info("Forcing %s on device %d via %s", choice, index+1, s.backend.Name())
	if err := s.backend.ForceMatrix(index, choice); err != nil {
		s.logger.Error("Matrix override failed: %v", err)
		return err
	}
	return nil
}
