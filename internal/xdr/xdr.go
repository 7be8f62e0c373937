// Package xdr provides little-endian binary encoding and decoding utilities
// for reading RODHyPix file data.
//
// Rigaku Oxford Diffraction files use little-endian byte order for all
// multi-byte values: the fixed-offset binary header fields, the compressed
// payload length prefix, the line offset table, and the escape payloads
// inside TY6 line data. This package provides bounds-checked readers and
// writers for the primitive types involved.
package xdr

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

var (
	// ErrShortBuffer is returned when a read or write operation cannot complete
	// because there isn't enough space in the buffer.
	ErrShortBuffer = errors.New("xdr: buffer too short")

	// ErrNegativeSize is returned when a size parameter is negative.
	ErrNegativeSize = errors.New("xdr: negative size")
)

// ByteOrder is the byte order used by RODHyPix files.
var ByteOrder = binary.LittleEndian

// Reader provides little-endian binary reading from a byte slice.
// It maintains a read position and bounds-checks every operation.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a Reader from a byte slice.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	if r.pos >= len(r.data) {
		return 0
	}
	return len(r.data) - r.pos
}

// Pos returns the current read position.
func (r *Reader) Pos() int {
	return r.pos
}

// SetPos sets the read position. Returns an error if the position is out of bounds.
func (r *Reader) SetPos(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return ErrShortBuffer
	}
	r.pos = pos
	return nil
}

// Skip advances the read position by n bytes.
func (r *Reader) Skip(n int) error {
	if n < 0 {
		return ErrNegativeSize
	}
	if r.pos+n > len(r.data) {
		return ErrShortBuffer
	}
	r.pos += n
	return nil
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, ErrShortBuffer
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadBytes reads n bytes into a new slice.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeSize
	}
	if r.pos+n > len(r.data) {
		return nil, ErrShortBuffer
	}
	result := make([]byte, n)
	copy(result, r.data[r.pos:r.pos+n])
	r.pos += n
	return result, nil
}

// ReadUint16 reads an unsigned 16-bit integer in little-endian order.
func (r *Reader) ReadUint16() (uint16, error) {
	if r.pos+2 > len(r.data) {
		return 0, ErrShortBuffer
	}
	v := ByteOrder.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadInt16 reads a signed 16-bit integer in little-endian order.
func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

// ReadUint32 reads an unsigned 32-bit integer in little-endian order.
func (r *Reader) ReadUint32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, ErrShortBuffer
	}
	v := ByteOrder.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadInt32 reads a signed 32-bit integer in little-endian order.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadUint64 reads an unsigned 64-bit integer in little-endian order.
func (r *Reader) ReadUint64() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, ErrShortBuffer
	}
	v := ByteOrder.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadFloat64 reads a 64-bit IEEE 754 floating-point number.
func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// Writer provides little-endian binary writing to a fixed-size byte slice.
// It maintains a write position and bounds-checks every operation.
type Writer struct {
	data []byte
	pos  int
}

// NewWriter creates a Writer over a byte slice.
func NewWriter(data []byte) *Writer {
	return &Writer{data: data}
}

// Pos returns the current write position.
func (w *Writer) Pos() int {
	return w.pos
}

// SetPos sets the write position. Returns an error if the position is out of bounds.
func (w *Writer) SetPos(pos int) error {
	if pos < 0 || pos > len(w.data) {
		return ErrShortBuffer
	}
	w.pos = pos
	return nil
}

// WriteByte writes a single byte.
func (w *Writer) WriteByte(b byte) error {
	if w.pos >= len(w.data) {
		return ErrShortBuffer
	}
	w.data[w.pos] = b
	w.pos++
	return nil
}

// WriteBytes writes a byte slice.
func (w *Writer) WriteBytes(b []byte) error {
	if w.pos+len(b) > len(w.data) {
		return ErrShortBuffer
	}
	copy(w.data[w.pos:], b)
	w.pos += len(b)
	return nil
}

// WriteUint16 writes an unsigned 16-bit integer in little-endian order.
func (w *Writer) WriteUint16(v uint16) error {
	if w.pos+2 > len(w.data) {
		return ErrShortBuffer
	}
	ByteOrder.PutUint16(w.data[w.pos:], v)
	w.pos += 2
	return nil
}

// WriteInt16 writes a signed 16-bit integer in little-endian order.
func (w *Writer) WriteInt16(v int16) error {
	return w.WriteUint16(uint16(v))
}

// WriteUint32 writes an unsigned 32-bit integer in little-endian order.
func (w *Writer) WriteUint32(v uint32) error {
	if w.pos+4 > len(w.data) {
		return ErrShortBuffer
	}
	ByteOrder.PutUint32(w.data[w.pos:], v)
	w.pos += 4
	return nil
}

// WriteInt32 writes a signed 32-bit integer in little-endian order.
func (w *Writer) WriteInt32(v int32) error {
	return w.WriteUint32(uint32(v))
}

// WriteUint64 writes an unsigned 64-bit integer in little-endian order.
func (w *Writer) WriteUint64(v uint64) error {
	if w.pos+8 > len(w.data) {
		return ErrShortBuffer
	}
	ByteOrder.PutUint64(w.data[w.pos:], v)
	w.pos += 8
	return nil
}

// WriteFloat64 writes a 64-bit IEEE 754 floating-point number.
func (w *Writer) WriteFloat64(v float64) error {
	return w.WriteUint64(math.Float64bits(v))
}

// BufferWriter provides a growing buffer for writing binary data.
// Unlike Writer, it automatically expands to accommodate writes.
type BufferWriter struct {
	buf []byte
}

// NewBufferWriter creates a BufferWriter with an initial capacity.
func NewBufferWriter(capacity int) *BufferWriter {
	return &BufferWriter{buf: make([]byte, 0, capacity)}
}

// Len returns the number of bytes written.
func (w *BufferWriter) Len() int {
	return len(w.buf)
}

// Bytes returns the written data as a byte slice.
// The returned slice is valid until the next write operation.
func (w *BufferWriter) Bytes() []byte {
	return w.buf
}

// Reset clears the buffer.
func (w *BufferWriter) Reset() {
	w.buf = w.buf[:0]
}

// WriteByte writes a single byte.
func (w *BufferWriter) WriteByte(b byte) {
	w.buf = append(w.buf, b)
}

// WriteBytes writes a byte slice.
func (w *BufferWriter) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteUint16 writes an unsigned 16-bit integer in little-endian order.
func (w *BufferWriter) WriteUint16(v uint16) {
	w.buf = append(w.buf, byte(v), byte(v>>8))
}

// WriteInt16 writes a signed 16-bit integer in little-endian order.
func (w *BufferWriter) WriteInt16(v int16) {
	w.WriteUint16(uint16(v))
}

// WriteUint32 writes an unsigned 32-bit integer in little-endian order.
func (w *BufferWriter) WriteUint32(v uint32) {
	w.buf = append(w.buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// WriteInt32 writes a signed 32-bit integer in little-endian order.
func (w *BufferWriter) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

// StreamReader wraps an io.Reader for little-endian binary reading.
type StreamReader struct {
	r   io.Reader
	buf [8]byte
}

// NewStreamReader creates a StreamReader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{r: r}
}

// ReadBytesInto reads bytes into the provided slice.
func (r *StreamReader) ReadBytesInto(dst []byte) error {
	_, err := io.ReadFull(r.r, dst)
	return err
}

// ReadUint32 reads an unsigned 32-bit integer in little-endian order.
func (r *StreamReader) ReadUint32() (uint32, error) {
	_, err := io.ReadFull(r.r, r.buf[:4])
	if err != nil {
		return 0, err
	}
	return ByteOrder.Uint32(r.buf[:4]), nil
}

// ReadInt32 reads a signed 32-bit integer in little-endian order.
func (r *StreamReader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// StreamWriter wraps an io.Writer for little-endian binary writing.
type StreamWriter struct {
	w   io.Writer
	buf [8]byte
}

// NewStreamWriter creates a StreamWriter from an io.Writer.
func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{w: w}
}

// WriteBytes writes a byte slice.
func (w *StreamWriter) WriteBytes(b []byte) error {
	_, err := w.w.Write(b)
	return err
}

// WriteUint32 writes an unsigned 32-bit integer in little-endian order.
func (w *StreamWriter) WriteUint32(v uint32) error {
	ByteOrder.PutUint32(w.buf[:4], v)
	_, err := w.w.Write(w.buf[:4])
	return err
}

// WriteInt32 writes a signed 32-bit integer in little-endian order.
func (w *StreamWriter) WriteInt32(v int32) error {
	return w.WriteUint32(uint32(v))
}
