package rod

import (
	"io"
	"os"
	"strings"

	"github.com/mrjoshuak/go-rodhypix/compression"
	"github.com/mrjoshuak/go-rodhypix/internal/xdr"
)

// Image is a decoded detector frame: a Height x Width grid of signed
// 32-bit pixel intensities in row-major order. Values are not clamped to
// any physical range; overflow handling is the caller's concern. The grid
// never aliases the input byte buffer.
type Image struct {
	Width  int
	Height int
	Pix    []int32
}

// Row returns the y-th scanline of the image. The returned slice shares
// storage with Pix.
func (m *Image) Row(y int) []int32 {
	return m.Pix[y*m.Width : (y+1)*m.Width]
}

// At returns the pixel intensity at (x, y).
func (m *Image) At(x, y int) int32 {
	return m.Pix[y*m.Width+x]
}

// DecodeHeader parses the ASCII and binary headers from a complete file
// buffer without touching the pixel payload.
func DecodeHeader(data []byte) (*Header, error) {
	th, err := parseTextHeader(data)
	if err != nil {
		return nil, err
	}
	bh, err := parseBinaryHeader(data)
	if err != nil {
		return nil, err
	}

	if th.NX <= 0 || th.NY <= 0 {
		return nil, formatErrorf("non-positive image dimensions %dx%d", th.NX, th.NY)
	}
	// NHEADER declares where the payload starts; the headers parsed above
	// must fit in front of it.
	if th.NHeader < BinaryHeaderEnd {
		return nil, formatErrorf("declared header length %d smaller than header block %d",
			th.NHeader, BinaryHeaderEnd)
	}
	if th.NHeader > len(data) {
		return nil, formatErrorf("declared header length %d exceeds file size %d",
			th.NHeader, len(data))
	}

	return &Header{Text: *th, Binary: *bh}, nil
}

// Decode decodes a complete RODHyPix file held in memory and returns the
// pixel grid together with the parsed header. It fails with a *FormatError
// when the container does not parse and with a *DecodeError when the
// compressed payload is internally inconsistent. On failure no image is
// returned; a grid either decodes completely or not at all.
func Decode(data []byte) (*Image, *Header, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return nil, nil, err
	}

	comp := strings.TrimSpace(h.Text.Compression)
	if !strings.HasPrefix(comp, "TY6") {
		return nil, nil, decodeErrorf(-1, "unsupported compression scheme %q", comp)
	}

	img, err := decodeTY6Payload(data[h.Text.NHeader:], h.Text.NX, h.Text.NY)
	if err != nil {
		return nil, nil, err
	}
	return img, h, nil
}

// DecodeFile reads and decodes the RODHyPix file at path.
func DecodeFile(path string) (*Image, *Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return Decode(data)
}

// DecodeReader reads r to EOF and decodes the contents. The format is
// read in a single pass, so streaming decode would buy nothing; the whole
// file is buffered up front.
func DecodeReader(r io.Reader) (*Image, *Header, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	return Decode(data)
}

// decodeTY6Payload slices the compressed region into per-line chunks using
// the trailing offset table and decodes the lines, concurrently when the
// image is large enough to be worth it. Lines are independent: each input
// slice and output row is disjoint, and the line codec keeps no state
// across calls, so scheduling order cannot change the result.
func decodeTY6Payload(payload []byte, nx, ny int) (*Image, error) {
	r := xdr.NewReader(payload)

	packedLen, err := r.ReadInt32()
	if err != nil {
		return nil, decodeErrorf(-1, "payload truncated before length prefix")
	}
	if packedLen < 0 {
		return nil, decodeErrorf(-1, "negative packed data length %d", packedLen)
	}
	if int(packedLen) > r.Len()-4*ny {
		return nil, decodeErrorf(-1, "packed data length %d plus offset table exceeds payload size %d",
			packedLen, len(payload))
	}
	linedata := payload[r.Pos() : r.Pos()+int(packedLen)]
	if err := r.Skip(int(packedLen)); err != nil {
		return nil, decodeErrorf(-1, "payload truncated inside packed data")
	}

	offsets := make([]int, ny)
	for i := range offsets {
		off, err := r.ReadUint32()
		if err != nil {
			return nil, decodeErrorf(i, "payload truncated inside line offset table")
		}
		offsets[i] = int(off)
		if offsets[i] > len(linedata) {
			return nil, decodeErrorf(i, "line offset %d beyond packed data size %d",
				offsets[i], len(linedata))
		}
		if i > 0 && offsets[i] < offsets[i-1] {
			return nil, decodeErrorf(i, "line offsets not non-decreasing (%d after %d)",
				offsets[i], offsets[i-1])
		}
	}

	img := &Image{
		Width:  nx,
		Height: ny,
		Pix:    make([]int32, nx*ny),
	}

	err = ParallelForWithError(ny, func(i int) error {
		start := offsets[i]
		end := len(linedata)
		if i+1 < ny {
			end = offsets[i+1]
		}
		if err := compression.TY6DecodeLine(linedata[start:end], img.Row(i)); err != nil {
			return &DecodeError{Line: i, Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}
