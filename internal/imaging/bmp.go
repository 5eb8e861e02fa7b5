package imaging

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"webcam-colorspace/internal/domain"
)

const (
	fileHeaderSize = 14
	infoHeaderSize = 40
	// PixelDataOffset is where the pixel array starts in every file EncodeBMP writes.
	PixelDataOffset = fileHeaderSize + infoHeaderSize

	pixelsPerMeter = 2835 // ~72 DPI
)

// FileHeader is the 14-byte BITMAPFILEHEADER.
type FileHeader struct {
	Type      [2]byte // "BM"
	Size      uint32  // whole file, in bytes
	Reserved1 uint16
	Reserved2 uint16
	OffBits   uint32 // offset of the pixel array
}

// InfoHeader is the 40-byte BITMAPINFOHEADER.
type InfoHeader struct {
	Size            uint32
	Width           int32
	Height          int32 // negative for top-down rows
	Planes          uint16
	BitCount        uint16
	Compression     uint32
	SizeImage       uint32
	XPixelsPerM     int32
	YPixelsPerM     int32
	ColorsUsed      uint32
	ColorsImportant uint32
}

// RowStride returns the padded size of one 24-bit pixel row.
func RowStride(width uint32) uint32 {
	return (width*3 + 3) &^ 3
}

// EncodeBMP serializes an RGB24 buffer as a top-down, uncompressed 24-bit
// bitmap. Pixels are stored blue-green-red and each row is zero-padded to a
// multiple of four bytes.
func EncodeBMP(width, height uint32, rgb []byte) ([]byte, error) {
	if width > math.MaxInt32 || height > math.MaxInt32 {
		return nil, &domain.InvalidDimensionsError{Width: width, Height: height}
	}
	if want := int(width) * int(height) * 3; len(rgb) != want {
		return nil, &domain.DimensionMismatchError{Got: len(rgb), Want: want}
	}

	stride := RowStride(width)
	imageSize := stride * height
	fileSize := PixelDataOffset + imageSize

	buf := bytes.NewBuffer(make([]byte, 0, fileSize))

	fh := FileHeader{
		Type:    [2]byte{'B', 'M'},
		Size:    fileSize,
		OffBits: PixelDataOffset,
	}
	ih := InfoHeader{
		Size:        infoHeaderSize,
		Width:       int32(width),
		Height:      -int32(height),
		Planes:      1,
		BitCount:    24,
		SizeImage:   imageSize,
		XPixelsPerM: pixelsPerMeter,
		YPixelsPerM: pixelsPerMeter,
	}
	// Writes into a bytes.Buffer cannot fail.
	_ = binary.Write(buf, binary.LittleEndian, &fh)
	_ = binary.Write(buf, binary.LittleEndian, &ih)

	w := int(width)
	row := make([]byte, stride)
	for y := 0; y < int(height); y++ {
		src := rgb[y*w*3 : (y+1)*w*3]
		for x := 0; x < w; x++ {
			row[x*3] = src[x*3+2]
			row[x*3+1] = src[x*3+1]
			row[x*3+2] = src[x*3]
		}
		buf.Write(row)
	}

	return buf.Bytes(), nil
}

// WriteBMP encodes rgb and writes it to path in a single write. Nothing is
// written when the buffer does not match the dimensions.
func WriteBMP(path string, width, height uint32, rgb []byte) error {
	data, err := EncodeBMP(width, height, rgb)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write bitmap %s: %w", path, err)
	}
	return nil
}

// ReadBMPHeader parses the file and info headers at the start of r and checks
// that they describe an uncompressed 24-bit bitmap.
func ReadBMPHeader(r io.Reader) (FileHeader, InfoHeader, error) {
	var fh FileHeader
	var ih InfoHeader
	if err := binary.Read(r, binary.LittleEndian, &fh); err != nil {
		return fh, ih, fmt.Errorf("read file header: %w", err)
	}
	if fh.Type != [2]byte{'B', 'M'} {
		return fh, ih, fmt.Errorf("bad bitmap signature %q", fh.Type[:])
	}
	if err := binary.Read(r, binary.LittleEndian, &ih); err != nil {
		return fh, ih, fmt.Errorf("read info header: %w", err)
	}
	if ih.Size != infoHeaderSize || ih.BitCount != 24 || ih.Compression != 0 {
		return fh, ih, fmt.Errorf("unsupported bitmap: header %d bytes, %d bpp, compression %d",
			ih.Size, ih.BitCount, ih.Compression)
	}
	return fh, ih, nil
}
