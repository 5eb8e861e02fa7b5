//go:build !linux

package camera

import (
	"context"
	"fmt"
	"runtime"

	"webcam-colorspace/internal/application"
	"webcam-colorspace/internal/domain"
)

// V4L2Backend is only functional on Linux.
type V4L2Backend struct {
	logger application.Logger
}

// NewV4L2Backend creates the Video4Linux2 backend.
func NewV4L2Backend(logger application.Logger) *V4L2Backend {
	return &V4L2Backend{logger: logger}
}

// Name returns the backend name
func (b *V4L2Backend) Name() string {
	return "v4l2"
}

func (b *V4L2Backend) unavailable() error {
	return fmt.Errorf("v4l2 on %s: %w", runtime.GOOS, domain.ErrNotSupported)
}

func (b *V4L2Backend) Enumerate() ([]domain.DeviceInfo, error) {
	return nil, b.unavailable()
}

func (b *V4L2Backend) Capture(context.Context, domain.CaptureRequest) (domain.Frame, error) {
	return domain.Frame{}, b.unavailable()
}

func (b *V4L2Backend) ForceMatrix(int, domain.MatrixChoice) error {
	return b.unavailable()
}
