package domain

import "strings"

// PixelFormat is the FourCC-style tag a backend reports for a captured frame.
type PixelFormat string

const (
	// PixelFormatNV12 is the 4:2:0 layout: luma plane followed by interleaved Cb/Cr.
	PixelFormatNV12 PixelFormat = "NV12"
)

// Frame is a single captured frame as handed over by a capture backend.
type Frame struct {
	Width       uint32
	Height      uint32
	PixelFormat PixelFormat
	FullRange   bool   // quantization range reported by the source
	Data        []byte // read-only for consumers
}

// NV12Size returns the number of bytes an NV12 frame of the given size occupies.
func NV12Size(width, height uint32) int {
	return int(width) * int(height) * 3 / 2
}

// TransformStandard describes a YCbCr family by its luma coefficients.
// Kg is derived as 1 - Kr - Kb.
type TransformStandard struct {
	Name string
	Kr   float64
	Kb   float64
}

// Kg returns the green luma coefficient.
func (s TransformStandard) Kg() float64 {
	return 1 - s.Kr - s.Kb
}

// Valid reports whether the coefficients describe a usable standard.
func (s TransformStandard) Valid() bool {
	return s.Kr > 0 && s.Kb > 0 && s.Kr < 1 && s.Kb < 1 && s.Kr+s.Kb < 1
}

var (
	// BT601 is the legacy standard-definition family.
	BT601 = TransformStandard{Name: "BT.601", Kr: 0.299, Kb: 0.114}
	// BT709 is the HD family.
	BT709 = TransformStandard{Name: "BT.709", Kr: 0.2126, Kb: 0.0722}
)

// MatrixChoice selects one of the two supported YUV matrices.
type MatrixChoice int

const (
	MatrixBT601 MatrixChoice = iota
	MatrixBT709
)

// ParseMatrixChoice accepts "bt601" or "bt709" in any case.
func ParseMatrixChoice(s string) (MatrixChoice, error) {
	switch strings.ToLower(s) {
	case "bt601":
		return MatrixBT601, nil
	case "bt709":
		return MatrixBT709, nil
	}
	return 0, &UnknownMatrixError{Value: s}
}

// Standard returns the transform standard the choice stands for.
func (m MatrixChoice) Standard() TransformStandard {
	if m == MatrixBT709 {
		return BT709
	}
	return BT601
}

func (m MatrixChoice) String() string {
	return m.Standard().Name
}

// Resolution is a requested capture size.
type Resolution struct {
	Width  uint32
	Height uint32
}

// RangeMode tells backends how to label the quantization range of a frame.
type RangeMode int

const (
	RangeAuto RangeMode = iota
	RangeFull
	RangeLimited
)

// CaptureRequest selects the device and size to capture from.
type CaptureRequest struct {
	DeviceIndex int         // 0-based
	Resolution  *Resolution // nil picks the largest advertised size
	Range       RangeMode
}

// DeviceInfo describes one capture device and the formats it advertises.
type DeviceInfo struct {
	Name    string
	Path    string
	Formats []FormatInfo
}

// FormatInfo is one advertised (format, size, rate) combination.
type FormatInfo struct {
	PixelFormat string
	Resolution  string
	FrameRate   string
	Colorspace  ColorspaceInfo
}

// Key identifies a format entry for de-duplication.
func (f FormatInfo) Key() string {
	return f.PixelFormat + "|" + f.Resolution + "|" + f.FrameRate
}

// ColorspaceInfo holds the human-readable colorimetry a device reports.
type ColorspaceInfo struct {
	Primaries string
	Matrix    string
	Transfer  string
	Range     string
}

// NotAvailable is used when a backend cannot query colorimetry.
func NotAvailable() ColorspaceInfo {
	return ColorspaceInfo{
		Primaries: "Not available",
		Matrix:    "Not available",
		Transfer:  "Not available",
		Range:     "Not available",
	}
}
