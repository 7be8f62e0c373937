package rodutil

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mrjoshuak/go-rodhypix/internal/xdr"
	"github.com/mrjoshuak/go-rodhypix/rod"
)

// Absolute byte offsets of the binary header fields the fixture needs,
// per the vendor layout.
const (
	fixImNpxX       = 282
	fixNumPoints    = 292
	fixExposureTime = 1248
	fixDetectorType = 1316
	fixRealPxSizeX  = 1336
	fixAlpha1       = 2104
	fixDistanceMm   = 2248
)

// buildTestFile assembles a small valid RODHyPix file: a 4x2 frame whose
// first row counts 5, 6, 4, 6 and whose second row is all zeros.
func buildTestFile(t *testing.T) []byte {
	t.Helper()

	lines := [][]byte{
		{132, 128, 125, 129},
		{127, 127, 127, 127},
	}

	ascii := fmt.Sprintf(
		"OD SAPPHIRE 2.3\nCOMPRESSION=TY6\nNX=4 NY=2 NHEADER=%d\nNSUPPLEMENT=0\nNG=0\nTIME=31-Aug-2025 12:00:00\x1a\n",
		rod.BinaryHeaderEnd)

	payload := xdr.NewBufferWriter(64)
	total := 0
	for _, l := range lines {
		total += len(l)
	}
	payload.WriteInt32(int32(total))
	off := uint32(0)
	for _, l := range lines {
		payload.WriteBytes(l)
	}
	for _, l := range lines {
		payload.WriteUint32(off)
		off += uint32(len(l))
	}

	data := make([]byte, rod.BinaryHeaderEnd+payload.Len())
	for i := 0; i < rod.AsciiHeaderSize; i++ {
		data[i] = ' '
	}
	copy(data, ascii)

	w := xdr.NewWriter(data)
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(w.SetPos(fixImNpxX))
	must(w.WriteInt16(4))
	must(w.WriteInt16(2))
	must(w.SetPos(fixNumPoints))
	must(w.WriteUint32(8))
	must(w.SetPos(fixExposureTime))
	must(w.WriteFloat64(0.5))
	must(w.SetPos(fixDetectorType))
	must(w.WriteInt32(7))
	must(w.SetPos(fixRealPxSizeX))
	must(w.WriteFloat64(0.1))
	must(w.WriteFloat64(0.1))
	must(w.SetPos(fixAlpha1))
	must(w.WriteFloat64(0.0251))
	must(w.SetPos(fixDistanceMm))
	must(w.WriteFloat64(660.0))

	copy(data[rod.BinaryHeaderEnd:], payload.Bytes())
	return data
}

func testImage() *rod.Image {
	return &rod.Image{
		Width:  4,
		Height: 2,
		Pix:    []int32{5, 6, 4, 6, 0, 0, 0, 0},
	}
}

func TestGetFileInfo(t *testing.T) {
	data := buildTestFile(t)
	path := filepath.Join(t.TempDir(), "frame.rodhypix")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := GetFileInfo(path)
	if err != nil {
		t.Fatalf("GetFileInfo: %v", err)
	}
	if info.Width != 4 || info.Height != 2 {
		t.Errorf("dimensions: got %dx%d", info.Width, info.Height)
	}
	if info.Compression != "TY6" {
		t.Errorf("Compression: got %q", info.Compression)
	}
	if info.Version != 2.3 {
		t.Errorf("Version: got %g", info.Version)
	}
	if info.PixelSizeX != 0.1 || info.PixelSizeY != 0.1 {
		t.Errorf("pixel pitch: got %g x %g", info.PixelSizeX, info.PixelSizeY)
	}
	if info.DistanceMm != 660.0 {
		t.Errorf("DistanceMm: got %g", info.DistanceMm)
	}
	if info.Wavelength != 0.0251 {
		t.Errorf("Wavelength: got %g", info.Wavelength)
	}
	if info.ExposureTimeSec != 0.5 {
		t.Errorf("ExposureTimeSec: got %g", info.ExposureTimeSec)
	}
	if info.DetectorType != 7 {
		t.Errorf("DetectorType: got %d", info.DetectorType)
	}
	if info.FileSize != int64(len(data)) {
		t.Errorf("FileSize: got %d, want %d", info.FileSize, len(data))
	}
	if info.Time != "31-Aug-2025 12:00:00" {
		t.Errorf("Time: got %q", info.Time)
	}
}

func TestFixtureDecodes(t *testing.T) {
	img, _, err := rod.Decode(buildTestFile(t))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !ImagesEqual(img, testImage()) {
		t.Errorf("decoded pixels: got %v", img.Pix)
	}
}

func TestImageStats(t *testing.T) {
	s := ImageStats(testImage(), 0)
	if s.Min != 0 || s.Max != 6 {
		t.Errorf("Min/Max: got %d/%d", s.Min, s.Max)
	}
	if s.Mean != 21.0/8.0 {
		t.Errorf("Mean: got %g", s.Mean)
	}
	if s.Overflowed != 0 {
		t.Errorf("Overflowed with zero threshold: got %d", s.Overflowed)
	}

	s = ImageStats(testImage(), 5)
	if s.Overflowed != 3 {
		t.Errorf("Overflowed at threshold 5: got %d, want 3", s.Overflowed)
	}

	s = ImageStats(&rod.Image{}, 0)
	if s.Min != 0 || s.Max != 0 || s.Mean != 0 {
		t.Errorf("empty image stats: %+v", s)
	}
}

func TestRawRoundTrip(t *testing.T) {
	img := testImage()

	var buf bytes.Buffer
	if err := WriteRaw(&buf, img); err != nil {
		t.Fatalf("WriteRaw: %v", err)
	}
	if buf.Len() != 8+4*len(img.Pix) {
		t.Errorf("dump size: got %d, want %d", buf.Len(), 8+4*len(img.Pix))
	}

	got, err := ReadRaw(&buf)
	if err != nil {
		t.Fatalf("ReadRaw: %v", err)
	}
	if !ImagesEqual(img, got) {
		t.Errorf("round trip mismatch: got %v", got.Pix)
	}
}

func TestReadRawBadHeader(t *testing.T) {
	var buf bytes.Buffer
	sw := xdr.NewStreamWriter(&buf)
	sw.WriteInt32(-4)
	sw.WriteInt32(2)

	if _, err := ReadRaw(&buf); !errors.Is(err, ErrRawBadHeader) {
		t.Errorf("got %v, want ErrRawBadHeader", err)
	}
}

func TestReadRawTruncated(t *testing.T) {
	img := testImage()
	var buf bytes.Buffer
	if err := WriteRaw(&buf, img); err != nil {
		t.Fatal(err)
	}
	short := buf.Bytes()[:buf.Len()-6]

	if _, err := ReadRaw(bytes.NewReader(short)); err == nil {
		t.Error("expected error for truncated dump")
	}
}

func TestRawZstdRoundTrip(t *testing.T) {
	img := &rod.Image{Width: 64, Height: 32, Pix: make([]int32, 64*32)}
	for i := range img.Pix {
		img.Pix[i] = int32(i % 7)
	}

	var buf bytes.Buffer
	if err := WriteRawZstd(&buf, img); err != nil {
		t.Fatalf("WriteRawZstd: %v", err)
	}
	if buf.Len() >= 8+4*len(img.Pix) {
		t.Errorf("compressed dump not smaller than raw: %d bytes", buf.Len())
	}

	got, err := ReadRawZstd(&buf)
	if err != nil {
		t.Fatalf("ReadRawZstd: %v", err)
	}
	if !ImagesEqual(img, got) {
		t.Error("zstd round trip mismatch")
	}
}

func TestImagesEqual(t *testing.T) {
	a := testImage()
	if !ImagesEqual(a, testImage()) {
		t.Error("identical images reported unequal")
	}

	b := testImage()
	b.Pix[3] = 99
	if ImagesEqual(a, b) {
		t.Error("differing pixels reported equal")
	}

	c := testImage()
	c.Width, c.Height = 2, 4
	if ImagesEqual(a, c) {
		t.Error("differing dimensions reported equal")
	}
}
