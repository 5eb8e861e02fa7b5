package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSupported is returned when a backend cannot perform an operation.
	ErrNotSupported = errors.New("operation not supported by this backend")
	// ErrNoDevices is returned when no capture device is present.
	ErrNoDevices = errors.New("no camera devices found")
)

// UnsupportedFormatError reports a frame whose pixel layout cannot be decoded.
type UnsupportedFormatError struct {
	Format PixelFormat
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported pixel format %q: expected %s", string(e.Format), PixelFormatNV12)
}

// InsufficientBufferError reports frame data shorter than its dimensions require.
type InsufficientBufferError struct {
	Got    int
	Want   int
	Width  uint32
	Height uint32
}

func (e *InsufficientBufferError) Error() string {
	return fmt.Sprintf("buffer too small: got %d bytes, expected at least %d for NV12 %dx%d",
		e.Got, e.Want, e.Width, e.Height)
}

// DimensionMismatchError reports an RGB buffer whose length disagrees with its dimensions.
type DimensionMismatchError struct {
	Got  int
	Want int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("rgb buffer length %d does not match dimensions (want %d)", e.Got, e.Want)
}

// InvalidDimensionsError reports a zero width or height.
type InvalidDimensionsError struct {
	Width  uint32
	Height uint32
}

func (e *InvalidDimensionsError) Error() string {
	return fmt.Sprintf("invalid frame dimensions %dx%d", e.Width, e.Height)
}

// DeviceIndexError reports a device index outside the enumerated range.
type DeviceIndexError struct {
	Index int
	Count int
}

func (e *DeviceIndexError) Error() string {
	return fmt.Sprintf("device %d not found (%d device(s) available)", e.Index+1, e.Count)
}

// UnknownMatrixError reports an unrecognised matrix name.
type UnknownMatrixError struct {
	Value string
}

func (e *UnknownMatrixError) Error() string {
	return fmt.Sprintf("unknown matrix %q: expected bt601 or bt709", e.Value)
}
