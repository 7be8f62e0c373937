// Package compression provides the line-compression codecs used by
// Rigaku Oxford Diffraction detector image files.
//
// The only scheme found in the wild is TY6: each scanline is compressed
// independently as a delta chain with variable bit-width packed blocks and
// explicit 16-bit and 32-bit escape fields for deltas that do not fit the
// compact representation.
package compression

import (
	"encoding/binary"
	"errors"
)

// TY6 stream errors
var (
	ErrTY6Truncated = errors.New("compression: truncated TY6 line data")
	ErrTY6Trailing  = errors.New("compression: trailing bytes after TY6 line")
)

// TY6 constants
const (
	// ty6SubBlockSize is the number of pixels in one packed sub-block.
	// A full block holds two sub-blocks, 16 pixels.
	ty6SubBlockSize = 8

	// ty6ShortOverflow and ty6LongOverflow are the raw byte values marking
	// escapes in the byte-wise encoding used for the first pixel and the
	// tail remainder. All byte-wise values carry a constant bias of 127.
	ty6ShortOverflow = 254
	ty6LongOverflow  = 255

	// The same thresholds after the bias has been removed, used when
	// resolving escapes on unpacked sub-block values.
	ty6ShortOverflowSigned = ty6ShortOverflow - 127
	ty6LongOverflowSigned  = ty6LongOverflow - 127
)

// ty6ReadEscaped decodes one byte-wise TY6 value starting at src[pos].
// A byte below 254 decodes directly (biased by 127); 254 and 255 announce
// an explicit little-endian int16 or int32 field. Returns the decoded
// value and the new stream position.
func ty6ReadEscaped(src []byte, pos int) (int32, int, error) {
	if pos >= len(src) {
		return 0, pos, ErrTY6Truncated
	}
	px := src[pos]
	pos++
	switch {
	case px < ty6ShortOverflow:
		return int32(px) - 127, pos, nil
	case px == ty6LongOverflow:
		if pos+4 > len(src) {
			return 0, pos, ErrTY6Truncated
		}
		v := int32(binary.LittleEndian.Uint32(src[pos:]))
		return v, pos + 4, nil
	default: // ty6ShortOverflow
		if pos+2 > len(src) {
			return 0, pos, ErrTY6Truncated
		}
		v := int32(int16(binary.LittleEndian.Uint16(src[pos:])))
		return v, pos + 2, nil
	}
}

// ty6Field extracts the nbit-bit field at index j from a packed sub-block.
// Fields are packed least-significant-bit first, concatenated in byte order.
// nbit is at most 15, so a field spans at most three bytes and always fits
// a uint32 gather window.
func ty6Field(sub []byte, nbit, j int) uint32 {
	bitpos := nbit * j
	base := bitpos >> 3
	shift := uint(bitpos & 7)
	var v uint32
	for k := 0; k < 4 && base+k < len(sub); k++ {
		v |= uint32(sub[base+k]) << (8 * uint(k))
	}
	return (v >> shift) & (1<<uint(nbit) - 1)
}

// TY6DecodeLine decodes one TY6-compressed scanline into dst. The line
// width is len(dst). The whole of src must be consumed by the decode:
// running out of bytes mid-line returns ErrTY6Truncated, and bytes left
// over after the last pixel return ErrTY6Trailing. On error the contents
// of dst are unspecified.
//
// The layout of a line is: one byte-wise value for the first pixel
// (absolute), then (w-1)/16 packed blocks of 16 deltas, then (w-1)%16
// byte-wise deltas. Each block starts with a bit-type byte whose low and
// high nibbles give the bit widths of its two 8-pixel sub-blocks; unpacked
// sub-block values at or above 127 are escape markers resolved from
// explicit int16/int32 fields following the packed data, in pixel order.
func TY6DecodeLine(src []byte, dst []int32) error {
	w := len(dst)
	if w == 0 {
		if len(src) != 0 {
			return ErrTY6Trailing
		}
		return nil
	}

	nblock := (w - 1) / (2 * ty6SubBlockSize)
	nrest := (w - 1) % (2 * ty6SubBlockSize)

	// First pixel is absolute, not a delta.
	first, ipos, err := ty6ReadEscaped(src, 0)
	if err != nil {
		return err
	}
	dst[0] = first
	opos := 1

	for k := 0; k < nblock; k++ {
		if ipos >= len(src) {
			return ErrTY6Truncated
		}
		bittype := src[ipos]
		ipos++
		nbits := [2]int{int(bittype & 15), int(bittype>>4) & 15}

		for _, nbit := range nbits {
			if nbit == 0 {
				// All eight deltas are zero; no payload bytes.
				for j := 0; j < ty6SubBlockSize; j++ {
					dst[opos] = 0
					opos++
				}
				continue
			}
			var zeroAt int32
			if nbit > 1 {
				zeroAt = int32(1)<<(nbit-1) - 1
			}
			if ipos+nbit > len(src) {
				return ErrTY6Truncated
			}
			sub := src[ipos : ipos+nbit]
			ipos += nbit
			for j := 0; j < ty6SubBlockSize; j++ {
				dst[opos] = int32(ty6Field(sub, nbit, j)) - zeroAt
				opos++
			}
		}

		// Resolve escapes and convert deltas to absolutes, in pixel order.
		for i := opos - 2*ty6SubBlockSize; i < opos; i++ {
			offset := dst[i]
			if offset >= ty6ShortOverflowSigned {
				if offset >= ty6LongOverflowSigned {
					if ipos+4 > len(src) {
						return ErrTY6Truncated
					}
					offset = int32(binary.LittleEndian.Uint32(src[ipos:]))
					ipos += 4
				} else {
					if ipos+2 > len(src) {
						return ErrTY6Truncated
					}
					offset = int32(int16(binary.LittleEndian.Uint16(src[ipos:])))
					ipos += 2
				}
			}
			dst[i] = dst[i-1] + offset
		}
	}

	// Tail pixels after the last full block, byte-wise deltas.
	for i := 0; i < nrest; i++ {
		delta, pos, err := ty6ReadEscaped(src, ipos)
		if err != nil {
			return err
		}
		ipos = pos
		dst[opos] = dst[opos-1] + delta
		opos++
	}

	if ipos != len(src) {
		return ErrTY6Trailing
	}
	return nil
}

// TY6DecodeImage decodes a whole TY6-compressed image sequentially.
// linedata is the packed line-data region and offsets holds the byte
// position of each line's start within it; line i ends where line i+1
// starts, and the last line ends at the end of the region. Offsets must
// be non-decreasing and within the region. The result is a row-major
// ny*nx grid.
//
// Callers that want per-line error attribution or concurrent decoding
// drive TY6DecodeLine themselves.
func TY6DecodeImage(linedata []byte, offsets []uint32, ny, nx int) ([]int32, error) {
	if len(offsets) != ny {
		return nil, errors.New("compression: offset table length mismatch")
	}
	pix := make([]int32, nx*ny)
	for iy := 0; iy < ny; iy++ {
		start := int(offsets[iy])
		end := len(linedata)
		if iy+1 < ny {
			end = int(offsets[iy+1])
		}
		if start > end || end > len(linedata) {
			return nil, errors.New("compression: line offset out of range")
		}
		if err := TY6DecodeLine(linedata[start:end], pix[iy*nx:(iy+1)*nx]); err != nil {
			return nil, err
		}
	}
	return pix, nil
}
