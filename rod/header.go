package rod

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mrjoshuak/go-rodhypix/internal/xdr"
)

// Binary header layout. The block sits directly after the ASCII preamble
// and consists of three fixed-size sections. Field offsets are relative to
// the start of their section and were reverse-engineered from vendor
// files; several fields' physical meaning is not independently confirmed
// and is flagged below. Offsets and sizes must not drift: a wrong offset
// silently misreads geometry instead of failing.
const (
	binaryHeaderOffset = AsciiHeaderSize // 256

	generalSectionSize = 512
	specialSectionSize = 768
	gonioSectionSize   = 1024

	specialSectionOffset = binaryHeaderOffset + generalSectionSize   // 768
	gonioSectionOffset   = specialSectionOffset + specialSectionSize // 1536

	// BinaryHeaderEnd is the first byte past the binary header block.
	BinaryHeaderEnd = gonioSectionOffset + gonioSectionSize // 2560
)

// General section fields.
const (
	offBinX      = binaryHeaderOffset + 0  // int16
	offBinY      = binaryHeaderOffset + 2  // int16
	offChipNpxX  = binaryHeaderOffset + 22 // int16
	offChipNpxY  = binaryHeaderOffset + 24 // int16
	offImNpxX    = binaryHeaderOffset + 26 // int16
	offImNpxY    = binaryHeaderOffset + 28 // int16
	offNumPoints = binaryHeaderOffset + 36 // uint32
)

// Special section fields.
const (
	offGain                       = specialSectionOffset + 56  // float64
	offOverflowFlag               = specialSectionOffset + 464 // int16
	offOverflowAfterRemeasureFlag = specialSectionOffset + 466 // int16
	offOverflowThreshold          = specialSectionOffset + 472 // int32
	offExposureTimeSec            = specialSectionOffset + 480 // float64
	offOverflowTimeSec            = specialSectionOffset + 488 // float64
	offDetectorType               = specialSectionOffset + 548 // int32
	offRealPxSizeX                = specialSectionOffset + 568 // float64, mm
	offRealPxSizeY                = specialSectionOffset + 576 // float64, mm
)

// Goniometer section fields.
const (
	offStartAnglesSteps  = gonioSectionOffset + 284 // [10]int32
	offEndAnglesSteps    = gonioSectionOffset + 324 // [10]int32
	offStepToRad         = gonioSectionOffset + 368 // [10]float64
	offBeamRotnAroundE2  = gonioSectionOffset + 552 // float64, meaning unconfirmed
	offBeamRotnAroundE3  = gonioSectionOffset + 560 // float64, meaning unconfirmed
	offAlpha1Wavelength  = gonioSectionOffset + 568 // float64, Angstrom
	offAlpha2Wavelength  = gonioSectionOffset + 576 // float64, Angstrom
	offAlpha12Wavelength = gonioSectionOffset + 584 // float64, Angstrom
	offDetectorRotns     = gonioSectionOffset + 640 // [3]float64, deg about e1..e3
	offOriginPxX         = gonioSectionOffset + 664 // float64, unconfirmed
	offOriginPxY         = gonioSectionOffset + 672 // float64, unconfirmed
	offAnglesInDeg       = gonioSectionOffset + 680 // [4]float64: alpha, beta, gamma, delta
	offDistanceMm        = gonioSectionOffset + 712 // float64, mm
)

// TextHeader holds the key/value pairs declared by the 256-byte ASCII
// preamble. It is immutable once parsed.
type TextHeader struct {
	// Version is the trailing float token of the signature line.
	Version float64
	// Compression is the declared payload compression tag, e.g. "TY6".
	Compression string
	// NX and NY are the image width and height in pixels.
	NX, NY int
	// NHeader is the byte offset at which the compressed payload starts.
	NHeader int
	// Time is the acquisition timestamp string.
	Time string
	// Extra holds every KEY=INT pair found on lines 3-5, including the
	// ones mirrored into the typed fields above.
	Extra map[string]int
}

// TextHeader keys required for decoding.
const (
	keyNX      = "NX"
	keyNY      = "NY"
	keyNHeader = "NHEADER"
)

// BinaryHeader holds the fixed-offset binary metadata block. It is
// immutable once parsed. Fields marked unconfirmed carry values read
// verbatim from their documented offsets; their physical interpretation
// has not been independently verified.
type BinaryHeader struct {
	BinX, BinY                 int16
	ChipNpxX, ChipNpxY         int16
	ImNpxX, ImNpxY             int16
	NumPoints                  uint32
	Gain                       float64
	OverflowFlag               int16
	OverflowAfterRemeasureFlag int16
	OverflowThreshold          int32
	ExposureTimeSec            float64
	OverflowTimeSec            float64
	DetectorType               int32
	RealPxSizeX, RealPxSizeY   float64 // pixel pitch, mm

	StartAnglesSteps [10]int32
	EndAnglesSteps   [10]int32
	StepToRad        [10]float64

	BeamRotnAroundE2 float64 // unconfirmed
	BeamRotnAroundE3 float64 // unconfirmed

	Alpha1Wavelength  float64 // Angstrom
	Alpha2Wavelength  float64 // Angstrom
	Alpha12Wavelength float64 // Angstrom

	DetectorRotns        [3]float64 // deg, about e1, e2, e3
	OriginPxX, OriginPxY float64    // direct beam position at zero angles, unconfirmed
	AnglesInDeg          [4]float64 // alpha, beta, gamma, delta
	DistanceMm           float64    // sample-to-detector distance, mm
}

// Header is the parsed metadata of a RODHyPix file.
type Header struct {
	Text   TextHeader
	Binary BinaryHeader
}

// Width returns the image width in pixels.
func (h *Header) Width() int { return h.Text.NX }

// Height returns the image height in pixels.
func (h *Header) Height() int { return h.Text.NY }

// headerDefn matches one KEY=INT declaration on header lines 3-5.
var headerDefn = regexp.MustCompile(`[A-Z]+=[ 0-9]+`)

// parseTextHeader parses the 256-byte ASCII preamble.
func parseTextHeader(head []byte) (*TextHeader, error) {
	if len(head) < AsciiHeaderSize {
		return nil, formatErrorf("file shorter than %d-byte ASCII header", AsciiHeaderSize)
	}
	head = head[:AsciiHeaderSize]
	for _, b := range head {
		if b > 0x7F {
			return nil, formatErrorf("ASCII header contains non-ASCII byte 0x%02x", b)
		}
	}

	lines := splitHeaderLines(string(head))
	if len(lines) < 6 {
		return nil, formatErrorf("ASCII header has %d lines, want at least 6", len(lines))
	}

	vers := strings.Fields(lines[0])
	if len(vers) < 2 || vers[0] != signatureVendor || vers[1] != signatureModel {
		return nil, formatErrorf("missing %s %s signature", signatureVendor, signatureModel)
	}
	version, err := strconv.ParseFloat(vers[len(vers)-1], 64)
	if err != nil {
		return nil, formatErrorf("malformed version token %q", vers[len(vers)-1])
	}

	compression := strings.SplitN(lines[1], "=", 2)
	if len(compression) < 2 || compression[0] != "COMPRESSION" {
		return nil, formatErrorf("missing COMPRESSION declaration")
	}

	th := &TextHeader{
		Version:     version,
		Compression: compression[1],
		Extra:       make(map[string]int),
	}

	for _, line := range lines[2:5] {
		for _, defn := range headerDefn.FindAllString(line, -1) {
			eq := strings.IndexByte(defn, '=')
			name := defn[:eq]
			value, err := strconv.Atoi(strings.TrimSpace(defn[eq+1:]))
			if err != nil {
				return nil, formatErrorf("malformed header field %q", defn)
			}
			th.Extra[name] = value
		}
	}

	for _, key := range []string{keyNX, keyNY, keyNHeader} {
		if _, ok := th.Extra[key]; !ok {
			return nil, formatErrorf("required header field %s missing", key)
		}
	}
	th.NX = th.Extra[keyNX]
	th.NY = th.Extra[keyNY]
	th.NHeader = th.Extra[keyNHeader]

	// Acquisition timestamp, stripped of the trailing SUB control byte
	// that vendor software pads with.
	time := lines[5]
	if i := strings.Index(time, "TIME="); i >= 0 {
		time = time[i+len("TIME="):]
	}
	time = strings.Trim(time, "\x1a")
	time = strings.TrimRight(time, " \t")
	th.Time = time

	return th, nil
}

// parseBinaryHeader parses the fixed-offset binary metadata block from the
// whole-file buffer. The buffer must extend at least to BinaryHeaderEnd.
func parseBinaryHeader(data []byte) (*BinaryHeader, error) {
	if len(data) < BinaryHeaderEnd {
		return nil, formatErrorf("file shorter than %d-byte binary header", BinaryHeaderEnd)
	}

	bh := &BinaryHeader{}
	r := xdr.NewReader(data[:BinaryHeaderEnd])

	// The reads below cannot fail once the length check above has passed;
	// errors are still propagated so an offset-table mistake cannot pass
	// silently.
	if err := readBinaryFields(r, bh); err != nil {
		return nil, formatErrorf("binary header: %v", err)
	}

	if bh.NumPoints != uint32(int32(bh.ImNpxX))*uint32(int32(bh.ImNpxY)) {
		return nil, formatErrorf("binary header point count %d does not match %dx%d image",
			bh.NumPoints, bh.ImNpxX, bh.ImNpxY)
	}

	return bh, nil
}

func readBinaryFields(r *xdr.Reader, bh *BinaryHeader) error {
	var err error
	seek := func(pos int) {
		if err == nil {
			err = r.SetPos(pos)
		}
	}
	i16 := func(dst *int16) {
		if err == nil {
			*dst, err = r.ReadInt16()
		}
	}
	i32 := func(dst *int32) {
		if err == nil {
			*dst, err = r.ReadInt32()
		}
	}
	u32 := func(dst *uint32) {
		if err == nil {
			*dst, err = r.ReadUint32()
		}
	}
	f64 := func(dst *float64) {
		if err == nil {
			*dst, err = r.ReadFloat64()
		}
	}

	// General section.
	seek(offBinX)
	i16(&bh.BinX)
	i16(&bh.BinY)
	seek(offChipNpxX)
	i16(&bh.ChipNpxX)
	i16(&bh.ChipNpxY)
	i16(&bh.ImNpxX)
	i16(&bh.ImNpxY)
	seek(offNumPoints)
	u32(&bh.NumPoints)

	// Special section.
	seek(offGain)
	f64(&bh.Gain)
	seek(offOverflowFlag)
	i16(&bh.OverflowFlag)
	i16(&bh.OverflowAfterRemeasureFlag)
	seek(offOverflowThreshold)
	i32(&bh.OverflowThreshold)
	seek(offExposureTimeSec)
	f64(&bh.ExposureTimeSec)
	f64(&bh.OverflowTimeSec)
	seek(offDetectorType)
	i32(&bh.DetectorType)
	seek(offRealPxSizeX)
	f64(&bh.RealPxSizeX)
	f64(&bh.RealPxSizeY)

	// Goniometer section.
	seek(offStartAnglesSteps)
	for i := range bh.StartAnglesSteps {
		i32(&bh.StartAnglesSteps[i])
	}
	for i := range bh.EndAnglesSteps {
		i32(&bh.EndAnglesSteps[i])
	}
	seek(offStepToRad)
	for i := range bh.StepToRad {
		f64(&bh.StepToRad[i])
	}
	seek(offBeamRotnAroundE2)
	f64(&bh.BeamRotnAroundE2)
	f64(&bh.BeamRotnAroundE3)
	f64(&bh.Alpha1Wavelength)
	f64(&bh.Alpha2Wavelength)
	f64(&bh.Alpha12Wavelength)
	seek(offDetectorRotns)
	for i := range bh.DetectorRotns {
		f64(&bh.DetectorRotns[i])
	}
	f64(&bh.OriginPxX)
	f64(&bh.OriginPxY)
	for i := range bh.AnglesInDeg {
		f64(&bh.AnglesInDeg[i])
	}
	seek(offDistanceMm)
	f64(&bh.DistanceMm)

	return err
}

// Info returns the merged header metadata as a mapping. The key names are
// stable and consumed by downstream calibration; do not rename them.
func (h *Header) Info() map[string]any {
	info := make(map[string]any, len(h.Text.Extra)+32)
	for k, v := range h.Text.Extra {
		info[k] = v
	}
	info["version"] = h.Text.Version
	info["compression"] = h.Text.Compression
	info["time"] = h.Text.Time

	b := &h.Binary
	info["bin_x"] = b.BinX
	info["bin_y"] = b.BinY
	info["chip_npx_x"] = b.ChipNpxX
	info["chip_npx_y"] = b.ChipNpxY
	info["im_npx_x"] = b.ImNpxX
	info["im_npx_y"] = b.ImNpxY
	info["num_points"] = b.NumPoints
	info["gain"] = b.Gain
	info["overflow_flag"] = b.OverflowFlag
	info["overflow_after_remeasure_flag"] = b.OverflowAfterRemeasureFlag
	info["overflow_threshold"] = b.OverflowThreshold
	info["exposure_time_sec"] = b.ExposureTimeSec
	info["overflow_time_sec"] = b.OverflowTimeSec
	info["detector_type"] = b.DetectorType
	info["real_px_size_x"] = b.RealPxSizeX
	info["real_px_size_y"] = b.RealPxSizeY
	info["start_angles_steps"] = b.StartAnglesSteps
	info["end_angles_steps"] = b.EndAnglesSteps
	info["step_to_rad"] = b.StepToRad
	info["beam_rotn_around_e2"] = b.BeamRotnAroundE2
	info["beam_rotn_around_e3"] = b.BeamRotnAroundE3
	info["alpha1_wavelength"] = b.Alpha1Wavelength
	info["alpha2_wavelength"] = b.Alpha2Wavelength
	info["alpha12_wavelength"] = b.Alpha12Wavelength
	info["detector_rotns"] = b.DetectorRotns
	info["origin_px_x"] = b.OriginPxX
	info["origin_px_y"] = b.OriginPxY
	info["angles_in_deg"] = b.AnglesInDeg
	info["distance_mm"] = b.DistanceMm
	return info
}
