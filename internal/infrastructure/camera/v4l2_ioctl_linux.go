//go:build linux

package camera

import (
	"encoding/binary"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"webcam-colorspace/internal/domain"
)

// struct v4l2_format is a u32 type followed by a 200-byte union that is
// pointer-aligned (it contains struct v4l2_window).
const (
	fmtUnionSize   = 200
	fmtUnionOffset = unsafe.Sizeof(uintptr(0))
	fmtStructSize  = fmtUnionOffset + fmtUnionSize

	bufTypeVideoCapture = 1

	pixFmtFlagSetCSC = 0x00000002
)

var (
	vidiocGFmt = iowr('V', 4, fmtStructSize)
	vidiocSFmt = iowr('V', 5, fmtStructSize)
)

func iowr(typ, nr, size uintptr) uintptr {
	const (
		dirRead  = 2
		dirWrite = 1
	)
	return (dirRead|dirWrite)<<30 | size<<16 | typ<<8 | nr
}

// pixFormat mirrors the leading fields of struct v4l2_pix_format.
type pixFormat struct {
	Width        uint32
	Height       uint32
	PixelFormat  uint32
	Field        uint32
	BytesPerLine uint32
	SizeImage    uint32
	Colorspace   uint32
	Priv         uint32
	Flags        uint32
	YCbCrEnc     uint32
	Quantization uint32
	XferFunc     uint32
}

type v4l2Format [fmtStructSize]byte

func (f *v4l2Format) pix() pixFormat {
	var p pixFormat
	u := f[fmtUnionOffset:]
	fields := []*uint32{
		&p.Width, &p.Height, &p.PixelFormat, &p.Field, &p.BytesPerLine, &p.SizeImage,
		&p.Colorspace, &p.Priv, &p.Flags, &p.YCbCrEnc, &p.Quantization, &p.XferFunc,
	}
	for i, dst := range fields {
		*dst = binary.NativeEndian.Uint32(u[i*4:])
	}
	return p
}

func (f *v4l2Format) setPix(p pixFormat) {
	u := f[fmtUnionOffset:]
	values := []uint32{
		p.Width, p.Height, p.PixelFormat, p.Field, p.BytesPerLine, p.SizeImage,
		p.Colorspace, p.Priv, p.Flags, p.YCbCrEnc, p.Quantization, p.XferFunc,
	}
	for i, v := range values {
		binary.NativeEndian.PutUint32(u[i*4:], v)
	}
}

func ioctlFormat(fd uintptr, req uintptr, f *v4l2Format) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(unsafe.Pointer(&f[0])))
	if errno != 0 {
		return errno
	}
	return nil
}

// getFormat runs VIDIOC_G_FMT on a separate descriptor of the device.
func getFormat(path string) (pixFormat, error) {
	file, err := os.OpenFile(path, os.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return pixFormat{}, err
	}
	defer file.Close()
	return getFormatFd(file.Fd())
}

func getFormatFd(fd uintptr) (pixFormat, error) {
	var f v4l2Format
	binary.NativeEndian.PutUint32(f[:], bufTypeVideoCapture)
	if err := ioctlFormat(fd, vidiocGFmt, &f); err != nil {
		return pixFormat{}, err
	}
	return f.pix(), nil
}

// setYCbCrEnc asks the driver to convert its output to the given encoding.
// Only drivers advertising V4L2_FMT_FLAG_CSC_YCBCR_ENC honour the request;
// the format read back afterwards tells whether it took effect.
func setYCbCrEnc(path string, enc uint32) (pixFormat, error) {
	file, err := os.OpenFile(path, os.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return pixFormat{}, err
	}
	defer file.Close()

	cur, err := getFormatFd(file.Fd())
	if err != nil {
		return pixFormat{}, err
	}
	cur.Flags |= pixFmtFlagSetCSC
	cur.YCbCrEnc = enc

	var f v4l2Format
	binary.NativeEndian.PutUint32(f[:], bufTypeVideoCapture)
	f.setPix(cur)
	if err := ioctlFormat(file.Fd(), vidiocSFmt, &f); err != nil {
		return pixFormat{}, err
	}
	return getFormatFd(file.Fd())
}

// V4L2 enum values (linux/videodev2.h).
const (
	ycbcrEncDefault = 0
	ycbcrEnc601     = 1
	ycbcrEnc709     = 2

	quantDefault = 0
	quantFull    = 1
	quantLimited = 2

	colorspaceJPEG = 7
)

func ycbcrEncFor(choice domain.MatrixChoice) uint32 {
	if choice == domain.MatrixBT709 {
		return ycbcrEnc709
	}
	return ycbcrEnc601
}

// reportedRange returns the range the driver reports, nil when unknown.
// Default quantization is full range only for the JPEG colorspace.
func reportedRange(p pixFormat) *bool {
	full := false
	switch p.Quantization {
	case quantFull:
		full = true
	case quantLimited:
	case quantDefault:
		full = p.Colorspace == colorspaceJPEG
	default:
		return nil
	}
	return &full
}

func colorspaceInfo(p pixFormat) domain.ColorspaceInfo {
	primaries, matrix := colorspaceNames(p.Colorspace)
	if enc := ycbcrEncName(p.YCbCrEnc); enc != "" {
		matrix = enc
	}
	return domain.ColorspaceInfo{
		Primaries: primaries,
		Matrix:    matrix,
		Transfer:  transferName(p.XferFunc),
		Range:     rangeName(p.Quantization),
	}
}

func colorspaceNames(cs uint32) (primaries, matrix string) {
	switch cs {
	case 1:
		return "SMPTE 170M", "BT.601"
	case 2:
		return "SMPTE 240M", "SMPTE 240M"
	case 3:
		return "BT.709", "BT.709"
	case 5:
		return "NTSC", "BT.601"
	case 6:
		return "EBU Tech 3213", "BT.601"
	case colorspaceJPEG:
		return "BT.601", "BT.601 (JPEG)"
	case 8:
		return "sRGB", "sRGB"
	case 9:
		return "opRGB", "opRGB"
	case 10:
		return "BT.2020", "BT.2020"
	case 11:
		return "Raw", "None"
	case 12:
		return "DCI-P3", "DCI-P3"
	}
	return "Default", "Not specified"
}

func ycbcrEncName(enc uint32) string {
	switch enc {
	case ycbcrEnc601:
		return "BT.601"
	case ycbcrEnc709:
		return "BT.709"
	case 3:
		return "xvYCC 601"
	case 4:
		return "xvYCC 709"
	case 6:
		return "BT.2020"
	case 7:
		return "BT.2020 (constant luminance)"
	case 8:
		return "SMPTE 240M"
	}
	return ""
}

func transferName(tf uint32) string {
	switch tf {
	case 1:
		return "BT.709"
	case 2:
		return "sRGB"
	case 3:
		return "opRGB"
	case 4:
		return "SMPTE 240M"
	case 5:
		return "None (linear)"
	case 6:
		return "DCI-P3"
	case 7:
		return "SMPTE 2084 (PQ)"
	}
	return "Default"
}

func rangeName(q uint32) string {
	switch q {
	case quantFull:
		return "Full (0-255)"
	case quantLimited:
		return "Limited (16-235)"
	}
	return "Default"
}
