package camera

import (
	"fmt"
	"image"

	"webcam-colorspace/internal/domain"
)

// warmupFrames are discarded after streaming starts so auto-exposure settles.
const warmupFrames = 5

// frameFromImage repacks a decoded 4:2:0 image into NV12. Images in any other
// layout are passed on with an empty buffer and a descriptive format tag, so
// the converter rejects them by name.
func frameFromImage(img image.Image, fullRange bool) domain.Frame {
	b := img.Bounds()
	frame := domain.Frame{
		Width:     uint32(b.Dx()),
		Height:    uint32(b.Dy()),
		FullRange: fullRange,
	}

	ycbcr, ok := img.(*image.YCbCr)
	if !ok {
		frame.PixelFormat = domain.PixelFormat(fmt.Sprintf("%T", img))
		return frame
	}
	if ycbcr.SubsampleRatio != image.YCbCrSubsampleRatio420 {
		frame.PixelFormat = domain.PixelFormat("YCbCr " + ycbcr.SubsampleRatio.String())
		return frame
	}

	w, h := b.Dx(), b.Dy()
	data := make([]byte, domain.NV12Size(frame.Width, frame.Height))
	for y := 0; y < h; y++ {
		off := ycbcr.YOffset(b.Min.X, b.Min.Y+y)
		copy(data[y*w:(y+1)*w], ycbcr.Y[off:off+w])
	}

	uv := data[w*h:]
	rows := len(uv) / w
	for cy := 0; cy < rows; cy++ {
		for cx := 0; cx+1 < w; cx += 2 {
			off := ycbcr.COffset(b.Min.X+cx, b.Min.Y+cy*2)
			uv[cy*w+cx] = ycbcr.Cb[off]
			uv[cy*w+cx+1] = ycbcr.Cr[off]
		}
	}

	frame.PixelFormat = domain.PixelFormatNV12
	frame.Data = data
	return frame
}

// compactNV12 copies a single-plane NV12 buffer whose rows are stride bytes
// apart into a tightly packed buffer with width-byte rows.
func compactNV12(src []byte, width, height, stride uint32) ([]byte, error) {
	w, h, s := int(width), int(height), int(stride)
	if s <= w {
		return append([]byte(nil), src...), nil
	}
	chromaRows := (h + 1) / 2
	if need := s*h + s*(chromaRows-1) + w; len(src) < need {
		return nil, &domain.InsufficientBufferError{Got: len(src), Want: need, Width: width, Height: height}
	}

	dst := make([]byte, domain.NV12Size(width, height))
	for y := 0; y < h; y++ {
		copy(dst[y*w:(y+1)*w], src[y*s:y*s+w])
	}
	uv := dst[w*h:]
	for cy := 0; cy < chromaRows && cy*w < len(uv); cy++ {
		n := min(w, len(uv)-cy*w)
		copy(uv[cy*w:cy*w+n], src[s*h+cy*s:s*h+cy*s+n])
	}
	return dst, nil
}

// applyRange resolves the range label for a frame whose source reports
// reported (nil when unknown). Unknown ranges default to limited, which is
// what UVC cameras produce for uncompressed YUV.
func applyRange(mode domain.RangeMode, reported *bool) bool {
	switch mode {
	case domain.RangeFull:
		return true
	case domain.RangeLimited:
		return false
	}
	if reported != nil {
		return *reported
	}
	return false
}
