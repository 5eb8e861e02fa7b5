// Package imaging turns captured NV12 frames into RGB24 buffers and writes
// them out as uncompressed 24-bit bitmaps.
package imaging

import (
	"math"

	"webcam-colorspace/internal/domain"
)

// quantization describes how 8-bit samples map onto normalized Y'CbCr.
type quantization struct {
	yOffset float64
	yScale  float64
	cScale  float64
}

var (
	fullQuant    = quantization{yOffset: 0, yScale: 255, cScale: 255}
	limitedQuant = quantization{yOffset: 16, yScale: 219, cScale: 224}
)

// ConvertNV12 decodes an NV12 frame into a freshly allocated RGB24 buffer
// (width*height*3 bytes, row-major, top row first) using the given transform
// standard. fullRange selects 0-255 sample ranges instead of 16-235/16-240.
//
// Chroma is upsampled nearest-neighbour: both pixels of a column pair and both
// rows of a row pair share one (Cb, Cr) sample. Frames with odd dimensions
// reuse the last complete chroma pair of the plane for the unpaired edge.
func ConvertNV12(frame domain.Frame, std domain.TransformStandard, fullRange bool) ([]byte, error) {
	if frame.PixelFormat != domain.PixelFormatNV12 {
		return nil, &domain.UnsupportedFormatError{Format: frame.PixelFormat}
	}
	if frame.Width == 0 || frame.Height == 0 {
		return nil, &domain.InvalidDimensionsError{Width: frame.Width, Height: frame.Height}
	}
	want := domain.NV12Size(frame.Width, frame.Height)
	if len(frame.Data) < want {
		return nil, &domain.InsufficientBufferError{
			Got:    len(frame.Data),
			Want:   want,
			Width:  frame.Width,
			Height: frame.Height,
		}
	}

	w := int(frame.Width)
	h := int(frame.Height)
	yPlane := frame.Data[:w*h]
	uvPlane := frame.Data[w*h:]

	q := limitedQuant
	if fullRange {
		q = fullQuant
	}
	m := newMatrix(std)

	// Last complete chroma row and the start of the last complete pair in a row.
	lastRow := len(uvPlane)/w - 1
	lastPair := (w/2 - 1) * 2

	rgb := make([]byte, w*h*3)
	for row := 0; row < h; row++ {
		uvRow := min(row/2, lastRow)
		for col := 0; col < w; col++ {
			cb, cr := 0.0, 0.0
			if lastRow >= 0 && lastPair >= 0 {
				uvIdx := uvRow*w + min((col/2)*2, lastPair)
				cb = (float64(uvPlane[uvIdx]) - 128) / q.cScale
				cr = (float64(uvPlane[uvIdx+1]) - 128) / q.cScale
			}

			yIdx := row*w + col
			y := (float64(yPlane[yIdx]) - q.yOffset) / q.yScale
			r, g, b := m.apply(y, cb, cr)

			out := yIdx * 3
			rgb[out] = toByte(r)
			rgb[out+1] = toByte(g)
			rgb[out+2] = toByte(b)
		}
	}

	return rgb, nil
}

// matrix holds the precomputed Y'CbCr -> R'G'B' coefficients of a standard.
type matrix struct {
	crToR float64
	cbToG float64
	crToG float64
	cbToB float64
}

func newMatrix(std domain.TransformStandard) matrix {
	kg := std.Kg()
	return matrix{
		crToR: 2 * (1 - std.Kr),
		cbToG: 2 * (1 - std.Kb) * std.Kb / kg,
		crToG: 2 * (1 - std.Kr) * std.Kr / kg,
		cbToB: 2 * (1 - std.Kb),
	}
}

func (m matrix) apply(y, cb, cr float64) (r, g, b float64) {
	r = y + m.crToR*cr
	g = y - m.cbToG*cb - m.crToG*cr
	b = y + m.cbToB*cb
	return r, g, b
}

// toByte scales a normalized channel to 8 bits, rounding half away from zero.
func toByte(v float64) byte {
	v = math.Round(v * 255)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
