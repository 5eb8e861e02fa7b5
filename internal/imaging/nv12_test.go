package imaging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webcam-colorspace/internal/domain"
)

// createNV12Frame builds a minimal NV12 frame with constant luma and chroma.
func createNV12Frame(width, height uint32, luma, cb, cr byte) domain.Frame {
	size := domain.NV12Size(width, height)
	data := make([]byte, size)
	lumaSize := int(width * height)
	for i := 0; i < lumaSize; i++ {
		data[i] = luma
	}
	for i := lumaSize; i < size; i++ {
		if (i-lumaSize)%2 == 0 {
			data[i] = cb
		} else {
			data[i] = cr
		}
	}
	return domain.Frame{
		Width:       width,
		Height:      height,
		PixelFormat: domain.PixelFormatNV12,
		Data:        data,
	}
}

func TestConvertNV12_OutputSize(t *testing.T) {
	sizes := []struct{ w, h uint32 }{
		{2, 2}, {4, 2}, {16, 8}, {640, 480}, {3, 3}, {5, 2}, {1, 1}, {2, 1}, {7, 5},
	}
	extremes := [][3]byte{
		{0, 0, 0}, {255, 255, 255}, {0, 255, 0}, {255, 0, 255}, {128, 128, 128},
	}

	for _, sz := range sizes {
		for _, ex := range extremes {
			for _, full := range []bool{true, false} {
				frame := createNV12Frame(sz.w, sz.h, ex[0], ex[1], ex[2])
				for _, std := range []domain.TransformStandard{domain.BT601, domain.BT709} {
					rgb, err := ConvertNV12(frame, std, full)
					require.NoError(t, err, "%dx%d %v", sz.w, sz.h, ex)
					assert.Len(t, rgb, int(sz.w*sz.h*3))
				}
			}
		}
	}
}

func TestConvertNV12_NeutralGray(t *testing.T) {
	for _, std := range []domain.TransformStandard{domain.BT601, domain.BT709} {
		t.Run(std.Name, func(t *testing.T) {
			frame := createNV12Frame(8, 4, 128, 128, 128)
			rgb, err := ConvertNV12(frame, std, true)
			require.NoError(t, err)
			for i, v := range rgb {
				assert.InDelta(t, 128, int(v), 1, "byte %d", i)
			}
		})
	}
}

func TestConvertNV12_LimitedRangeEndpoints(t *testing.T) {
	tests := []struct {
		name string
		luma byte
		want byte
	}{
		{name: "black", luma: 16, want: 0},
		{name: "white", luma: 235, want: 255},
		{name: "below black clamps", luma: 0, want: 0},
		{name: "above white clamps", luma: 255, want: 255},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := createNV12Frame(2, 2, tt.luma, 128, 128)
			rgb, err := ConvertNV12(frame, domain.BT709, false)
			require.NoError(t, err)
			assert.Equal(t, bytes.Repeat([]byte{tt.want}, 12), rgb)
		})
	}
}

func TestConvertNV12_PureRed(t *testing.T) {
	// Full-range BT.601 encoding of (255, 0, 0).
	frame := createNV12Frame(2, 2, 76, 85, 255)
	rgb, err := ConvertNV12(frame, domain.BT601, true)
	require.NoError(t, err)

	assert.InDelta(t, 255, int(rgb[0]), 2)
	assert.InDelta(t, 0, int(rgb[1]), 2)
	assert.InDelta(t, 0, int(rgb[2]), 2)
}

func TestConvertNV12_StandardsDiffer(t *testing.T) {
	frame := createNV12Frame(4, 4, 100, 90, 200)

	rgb601, err := ConvertNV12(frame, domain.BT601, false)
	require.NoError(t, err)
	rgb709, err := ConvertNV12(frame, domain.BT709, false)
	require.NoError(t, err)

	assert.NotEqual(t, rgb601, rgb709)
}

func TestConvertNV12_Deterministic(t *testing.T) {
	frame := createNV12Frame(6, 4, 0, 0, 0)
	for i := range frame.Data {
		frame.Data[i] = byte(i * 37)
	}
	original := append([]byte(nil), frame.Data...)

	first, err := ConvertNV12(frame, domain.BT709, true)
	require.NoError(t, err)
	second, err := ConvertNV12(frame, domain.BT709, true)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, original, frame.Data, "input must not be modified")
}

func TestConvertNV12_ChromaSharedAcrossBlock(t *testing.T) {
	// 4x2 frame: left block neutral, right block strongly red.
	frame := domain.Frame{
		Width:       4,
		Height:      2,
		PixelFormat: domain.PixelFormatNV12,
		Data: []byte{
			128, 128, 128, 128,
			128, 128, 128, 128,
			128, 128, 128, 255,
		},
	}
	rgb, err := ConvertNV12(frame, domain.BT601, true)
	require.NoError(t, err)

	pixel := func(x, y int) []byte {
		i := (y*4 + x) * 3
		return rgb[i : i+3]
	}
	for y := 0; y < 2; y++ {
		assert.Equal(t, pixel(0, 0), pixel(1, y))
		assert.Equal(t, pixel(2, 0), pixel(3, y))
	}
	assert.NotEqual(t, pixel(0, 0), pixel(2, 0))
	assert.Greater(t, pixel(2, 0)[0], pixel(0, 0)[0])
}

func TestConvertNV12_OddWidthReusesLastPair(t *testing.T) {
	// 3x2 frame: 6 luma bytes + 3 chroma bytes. Only one complete pair fits
	// in the chroma row, so column 2 shares it with columns 0 and 1.
	frame := domain.Frame{
		Width:       3,
		Height:      2,
		PixelFormat: domain.PixelFormatNV12,
		Data: []byte{
			128, 128, 128,
			128, 128, 128,
			60, 200, 0,
		},
	}
	rgb, err := ConvertNV12(frame, domain.BT709, true)
	require.NoError(t, err)
	require.Len(t, rgb, 18)

	for px := 1; px < 6; px++ {
		assert.Equal(t, rgb[0:3], rgb[px*3:px*3+3], "pixel %d", px)
	}
}

func TestConvertNV12_OddHeightReusesLastRow(t *testing.T) {
	// 2x3 frame: 6 luma bytes + 3 chroma bytes; the third luma row has no
	// complete chroma row of its own.
	frame := domain.Frame{
		Width:       2,
		Height:      3,
		PixelFormat: domain.PixelFormatNV12,
		Data: []byte{
			50, 50,
			50, 50,
			50, 50,
			90, 170, 33,
		},
	}
	rgb, err := ConvertNV12(frame, domain.BT601, false)
	require.NoError(t, err)
	assert.Equal(t, rgb[0:6], rgb[12:18])
}

func TestConvertNV12_SinglePixel(t *testing.T) {
	frame := domain.Frame{Width: 1, Height: 1, PixelFormat: domain.PixelFormatNV12, Data: []byte{235}}
	rgb, err := ConvertNV12(frame, domain.BT601, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{255, 255, 255}, rgb)
}

func TestConvertNV12_Errors(t *testing.T) {
	t.Run("unsupported format", func(t *testing.T) {
		frame := createNV12Frame(4, 4, 0, 0, 0)
		frame.PixelFormat = "YUYV"

		_, err := ConvertNV12(frame, domain.BT601, true)
		var fmtErr *domain.UnsupportedFormatError
		require.ErrorAs(t, err, &fmtErr)
		assert.Equal(t, domain.PixelFormat("YUYV"), fmtErr.Format)
		assert.Contains(t, err.Error(), "YUYV")
	})

	t.Run("one byte short", func(t *testing.T) {
		frame := createNV12Frame(640, 480, 0, 0, 0)
		frame.Data = frame.Data[:len(frame.Data)-1]

		_, err := ConvertNV12(frame, domain.BT709, false)
		var bufErr *domain.InsufficientBufferError
		require.ErrorAs(t, err, &bufErr)
		assert.Equal(t, 640*480*3/2-1, bufErr.Got)
		assert.Equal(t, 640*480*3/2, bufErr.Want)
	})

	t.Run("zero dimensions", func(t *testing.T) {
		frame := domain.Frame{Width: 0, Height: 4, PixelFormat: domain.PixelFormatNV12}

		_, err := ConvertNV12(frame, domain.BT601, true)
		var dimErr *domain.InvalidDimensionsError
		assert.ErrorAs(t, err, &dimErr)
	})
}

func TestConvertNV12_ArbitraryStandard(t *testing.T) {
	// BT.2020 coefficients: gray stays gray for any valid standard.
	std := domain.TransformStandard{Name: "BT.2020", Kr: 0.2627, Kb: 0.0593}
	require.True(t, std.Valid())

	frame := createNV12Frame(2, 2, 128, 128, 128)
	rgb, err := ConvertNV12(frame, std, true)
	require.NoError(t, err)
	for _, v := range rgb {
		assert.InDelta(t, 128, int(v), 1)
	}
}
