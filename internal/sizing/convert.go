package sizing

import "math"

// CmPerInch is exact by definition.
const CmPerInch = 2.54

// PxToCm converts a pixel count printed at dpi into centimetres.
func PxToCm(px, dpi int) float64 {
	return (float64(px) / float64(dpi)) * CmPerInch
}

// CmToPx converts centimetres at dpi into a pixel count, rounded half away
// from zero.
func CmToPx(cm float64, dpi int) int {
	return int(math.Round((cm / CmPerInch) * float64(dpi)))
}

// DPIForLength returns the resolution that prints px pixels over cm
// centimetres, rounded half away from zero.
func DPIForLength(px int, cm float64) int {
	return int(math.Round(float64(px) / (cm / CmPerInch)))
}
