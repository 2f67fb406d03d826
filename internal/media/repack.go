package media

import (
	"errors"
	"fmt"
)

var (
	// ErrStrideTooSmall is returned when a plane's row stride is shorter than
	// the row it has to carry.
	ErrStrideTooSmall = errors.New("plane stride smaller than row width")

	// ErrZeroHeight is returned for frames with no rows.
	ErrZeroHeight = errors.New("frame height is zero")

	// ErrShortPlane is returned when a plane buffer ends before its last row.
	ErrShortPlane = errors.New("plane buffer shorter than stride*rows")
)

// Repack copies the visible rows of a strided frame into tightly packed
// planes. Validation happens before any allocation, so a rejected frame costs
// nothing beyond the checks.
func Repack(f RawFrame) (PackedFrame, error) {
	width := int(f.Width)
	height := int(f.Height)
	chromaWidth := width / 2

	yStride := absStride(f.YStride)
	uStride := absStride(f.UStride)
	vStride := absStride(f.VStride)

	if yStride < width || uStride < chromaWidth || vStride < chromaWidth {
		return PackedFrame{}, fmt.Errorf("%w: width=%d y=%d u=%d v=%d",
			ErrStrideTooSmall, width, yStride, uStride, vStride)
	}
	if height == 0 {
		return PackedFrame{}, ErrZeroHeight
	}

	chromaRows := height / 2
	if err := checkPlane("y", f.Y, yStride, width, height); err != nil {
		return PackedFrame{}, err
	}
	if err := checkPlane("u", f.U, uStride, chromaWidth, chromaRows); err != nil {
		return PackedFrame{}, err
	}
	if err := checkPlane("v", f.V, vStride, chromaWidth, chromaRows); err != nil {
		return PackedFrame{}, err
	}

	out := PackedFrame{
		Width:  f.Width,
		Height: f.Height,
		Y:      make([]byte, width*height),
		U:      make([]byte, width*height/2),
		V:      make([]byte, width*height/2),
	}

	for row := 0; row < height; row++ {
		copy(out.Y[row*width:(row+1)*width], f.Y[row*yStride:row*yStride+width])
	}
	for row := 0; row < chromaRows; row++ {
		copy(out.U[row*chromaWidth:(row+1)*chromaWidth], f.U[row*uStride:row*uStride+chromaWidth])
		copy(out.V[row*chromaWidth:(row+1)*chromaWidth], f.V[row*vStride:row*vStride+chromaWidth])
	}

	return out, nil
}

func absStride(s int32) int {
	if s < 0 {
		return -int(s)
	}
	return int(s)
}

// checkPlane makes sure the last row read from buf is in bounds.
func checkPlane(name string, buf []byte, stride, rowWidth, rows int) error {
	if rows == 0 || rowWidth == 0 {
		return nil
	}
	need := (rows-1)*stride + rowWidth
	if len(buf) < need {
		return fmt.Errorf("%w: plane %s has %d bytes, need %d", ErrShortPlane, name, len(buf), need)
	}
	return nil
}
