package compression

import (
	"bytes"
	"testing"
)

// FuzzTY6DecodeLine feeds arbitrary byte streams to the line decoder.
// Corrupt input must surface as an error, never as a panic or a read
// outside the source slice.
func FuzzTY6DecodeLine(f *testing.F) {
	f.Add([]byte{127}, 1)
	f.Add([]byte{132, 128, 125, 129}, 4)
	f.Add([]byte{130, 0x00}, 17)
	f.Add([]byte{255, 0xA0, 0x86, 0x01, 0x00}, 1)
	f.Add([]byte{254, 0x2C}, 1) // short escape cut in half
	f.Add([]byte{}, 0)
	f.Add(bytes.Repeat([]byte{0xFF}, 64), 33)

	f.Fuzz(func(t *testing.T, src []byte, w int) {
		if w < 0 {
			w = 0
		}
		if w > 4096 {
			w = 4096 // Limit allocation
		}

		dst := make([]int32, w)
		_ = TY6DecodeLine(src, dst)
	})
}

// FuzzTY6DecodeImage exercises the offset-table walk with arbitrary
// tables.
func FuzzTY6DecodeImage(f *testing.F) {
	f.Add([]byte{127, 127}, uint32(0), uint32(1))
	f.Add([]byte{132, 128, 125, 129}, uint32(0), uint32(4))
	f.Add([]byte{}, uint32(5), uint32(0))

	f.Fuzz(func(t *testing.T, linedata []byte, off0, off1 uint32) {
		_, _ = TY6DecodeImage(linedata, []uint32{off0, off1}, 2, 1)
	})
}
