// Package media holds the audio and video frame types exchanged with the call
// engine, and the relay that repacks strided picture planes before they are
// sent back out.
package media

// RawFrame is a decoded YUV420 picture as delivered by the call engine.
//
// Plane rows may be padded: each row of Y starts YStride bytes after the
// previous one, and likewise for U and V. A negative stride marks bottom-up
// row order in the source; only its magnitude is used for copying.
type RawFrame struct {
	Width  uint16
	Height uint16

	Y []byte
	U []byte
	V []byte

	YStride int32
	UStride int32
	VStride int32
}

// PackedFrame is a YUV420 picture with no row padding. Y holds exactly
// Width*Height bytes and U and V hold Width*Height/2 bytes each (stride equals
// the row width of the plane).
type PackedFrame struct {
	Width  uint16
	Height uint16

	Y []byte
	U []byte
	V []byte
}

// AudioFrame is a block of interleaved signed 16-bit PCM samples.
type AudioFrame struct {
	PCM          []int16
	SampleCount  int
	Channels     uint8
	SamplingRate uint32
}
