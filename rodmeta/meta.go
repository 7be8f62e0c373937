// Package rodmeta provides typed accessors for RODHyPix header metadata.
//
// This package offers a discoverable API for the calibration-relevant
// fields of a parsed header without bloating the core rod.Header type.
// All functions operate on *rod.Header.
//
// Example usage:
//
//	_, h, _ := rod.DecodeFile("frame_0001.rodhypix")
//	px, py := rodmeta.PixelSize(h)
//	fmt.Printf("pitch %.4f x %.4f mm at %.1f mm\n", px, py, rodmeta.Distance(h))
package rodmeta

import (
	"fmt"

	"github.com/mrjoshuak/go-rodhypix/rod"
)

// Goniometer axis indices within the start/end angle and step-to-radian
// arrays. Only the first six slots are named by the vendor; the remaining
// four are unused in files seen so far.
const (
	AxisOmega = 0
	AxisTheta = 1
	AxisKappa = 2 // also called CHI
	AxisPhi   = 3
	// AxisOmegaPrime is also called DETECTOR_AXIS; its meaning is not
	// independently confirmed.
	AxisOmegaPrime = 4
	AxisThetaPrime = 5

	// NumAxes is the number of goniometer axis slots in the header.
	NumAxes = 10
)

// PixelSize returns the detector pixel pitch along x and y in millimeters.
func PixelSize(h *rod.Header) (x, y float64) {
	return h.Binary.RealPxSizeX, h.Binary.RealPxSizeY
}

// Distance returns the sample-to-detector distance in millimeters.
func Distance(h *rod.Header) float64 {
	return h.Binary.DistanceMm
}

// Wavelength returns the incident alpha1 wavelength in Angstrom.
func Wavelength(h *rod.Header) float64 {
	return h.Binary.Alpha1Wavelength
}

// ExposureTime returns the exposure time in seconds.
func ExposureTime(h *rod.Header) float64 {
	return h.Binary.ExposureTimeSec
}

// OverflowThreshold returns the pixel intensity above which the detector
// reports an overflow.
func OverflowThreshold(h *rod.Header) int32 {
	return h.Binary.OverflowThreshold
}

// Gain returns the detector gain.
func Gain(h *rod.Header) float64 {
	return h.Binary.Gain
}

// DetectorType returns the raw detector type code from the header.
func DetectorType(h *rod.Header) int32 {
	return h.Binary.DetectorType
}

// BeamCenter returns the direct beam position in pixels when all
// goniometer angles are zero. The field's interpretation is not
// independently confirmed; treat it as a starting estimate.
func BeamCenter(h *rod.Header) (x, y float64) {
	return h.Binary.OriginPxX, h.Binary.OriginPxY
}

// ScanAngles returns the goniometer start and end angles in radians,
// converted from the raw step counts using the per-axis step size.
func ScanAngles(h *rod.Header) (start, end [NumAxes]float64) {
	for i := 0; i < NumAxes; i++ {
		start[i] = float64(h.Binary.StartAnglesSteps[i]) * h.Binary.StepToRad[i]
		end[i] = float64(h.Binary.EndAnglesSteps[i]) * h.Binary.StepToRad[i]
	}
	return start, end
}

// RealSpacePixelSize returns the real-space periodicity sampled by one
// detector pixel in Angstrom, using the small-angle approximation
// lambda * L / pitch. For electron diffraction frames this is the value
// acquisition software uses to auto-calibrate scale bars (divide by 10
// for nanometers). Returns 0 when the header lacks pitch, distance or
// wavelength.
func RealSpacePixelSize(h *rod.Header) float64 {
	px, _ := PixelSize(h)
	if px == 0 || h.Binary.DistanceMm == 0 || h.Binary.Alpha1Wavelength == 0 {
		return 0
	}
	return h.Binary.Alpha1Wavelength * h.Binary.DistanceMm / px
}

// Describe returns a short human-readable summary of the calibration
// fields, in the order downstream tooling usually wants them.
func Describe(h *rod.Header) string {
	px, py := PixelSize(h)
	return fmt.Sprintf("%dx%d px, pitch %.6g x %.6g mm, distance %.6g mm, lambda %.6g A, exposure %.6g s",
		h.Width(), h.Height(), px, py, Distance(h), Wavelength(h), ExposureTime(h))
}
