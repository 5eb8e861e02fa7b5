package application

import (
	"context"

	"webcam-colorspace/internal/domain"
)

// CaptureBackend is a platform capture implementation.
type CaptureBackend interface {
	// Name identifies the backend in logs
	Name() string

	// Enumerate returns every capture device with its advertised formats
	Enumerate() ([]domain.DeviceInfo, error)

	// Capture grabs a single frame from the selected device
	Capture(ctx context.Context, req domain.CaptureRequest) (domain.Frame, error)

	// ForceMatrix asks the device to tag its output with the given YUV matrix
	ForceMatrix(index int, choice domain.MatrixChoice) error
}

// Uploader sends produced files to a remote collector.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) error
	Close() error
}

// HostInfo describes the machine the diagnostic runs on.
type HostInfo interface {
	Describe() string
}

// Logger is the printf-style logging port used by every component.
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}
