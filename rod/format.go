// Package rod provides reading of Rigaku Oxford Diffraction detector
// image files (RODHyPix format).
//
// A RODHyPix file is a 256-byte ASCII preamble, a fixed-layout binary
// metadata block, and a compressed pixel payload. The only documented
// payload compression is the TY6 line scheme implemented in the
// compression package. Decoding produces a rectangular grid of signed
// 32-bit pixel intensities plus the parsed header, from which geometric
// calibration (pixel pitch, detector distance, wavelength) is derivable
// via the rodmeta package.
package rod

import "strings"

// Container layout constants.
const (
	// AsciiHeaderSize is the size of the ASCII preamble in bytes.
	AsciiHeaderSize = 256

	// Signature tokens expected on the first header line.
	signatureVendor = "OD"
	signatureModel  = "SAPPHIRE"
)

// Understand reports whether head looks like the start of a RODHyPix file.
// It inspects only the first 256 bytes: they must be ASCII, the first line
// must begin with the "OD SAPPHIRE" signature, and the second line must be
// a COMPRESSION=... declaration. Understand never panics and reports false
// for any input it cannot positively identify, including short reads.
func Understand(head []byte) bool {
	if len(head) < AsciiHeaderSize {
		return false
	}
	head = head[:AsciiHeaderSize]
	for _, b := range head {
		if b > 0x7F {
			return false
		}
	}

	lines := splitHeaderLines(string(head))
	if len(lines) < 2 {
		return false
	}

	vers := strings.Fields(lines[0])
	if len(vers) < 2 || vers[0] != signatureVendor || vers[1] != signatureModel {
		return false
	}

	compression := strings.SplitN(lines[1], "=", 2)
	if len(compression) < 2 || compression[0] != "COMPRESSION" {
		return false
	}

	return true
}

// splitHeaderLines splits the ASCII preamble into lines, accepting LF,
// CRLF and bare CR terminators.
func splitHeaderLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(s, "\n")
}
