package imaging

import "webcam-colorspace/internal/domain"

// MirrorHorizontal flips an RGB24 buffer left-to-right in place. The middle
// column of an odd-width image stays where it is; applying the flip twice
// restores the original buffer.
func MirrorHorizontal(rgb []byte, width, height uint32) error {
	w := int(width)
	rowBytes := w * 3
	if want := rowBytes * int(height); len(rgb) != want {
		return &domain.DimensionMismatchError{Got: len(rgb), Want: want}
	}

	for row := 0; row < int(height); row++ {
		line := rgb[row*rowBytes : (row+1)*rowBytes]
		for col := 0; col < w/2; col++ {
			l := col * 3
			r := (w - 1 - col) * 3
			line[l], line[r] = line[r], line[l]
			line[l+1], line[r+1] = line[r+1], line[l+1]
			line[l+2], line[r+2] = line[r+2], line[l+2]
		}
	}
	return nil
}
