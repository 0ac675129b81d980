// Package sizing reconciles pixel dimensions, physical dimensions and print
// resolution. Everything here is pure and deterministic.
package sizing

import (
	"math"

	"github.com/histopathai/print-resize-service/internal/domain/model"
	"github.com/histopathai/print-resize-service/pkg/errors"
)

// CheckMode verifies that the centimetre fields required by mode are
// positive. It needs no image, so a batch can be rejected before any
// payload is decoded.
func CheckMode(mode model.SizeMode, in model.OperatorInputs) error {
	switch mode {
	case model.SizeModeDirectDPI:
		return nil
	case model.SizeModeWidthCm:
		if !(in.WidthCm > 0) {
			return errors.NewInvalidInputError("width_cm must be greater than 0 in width_cm mode").
				WithContext("mode", mode).
				WithContext("width_cm", in.WidthCm)
		}
		return nil
	case model.SizeModeHeightCm:
		if !(in.HeightCm > 0) {
			return errors.NewInvalidInputError("height_cm must be greater than 0 in height_cm mode").
				WithContext("mode", mode).
				WithContext("height_cm", in.HeightCm)
		}
		return nil
	case model.SizeModeWidthHeightCmDPI:
		if !(in.WidthCm > 0) || !(in.HeightCm > 0) {
			return errors.NewInvalidInputError("width_cm and height_cm must both be greater than 0 in width_height_cm_dpi mode").
				WithContext("mode", mode).
				WithContext("width_cm", in.WidthCm).
				WithContext("height_cm", in.HeightCm)
		}
		return nil
	default:
		return errors.NewInvalidInputError("unknown size mode").
			WithContext("mode", mode)
	}
}

// MaxJPEGDPI is the largest density a JFIF APP0 segment can carry.
const MaxJPEGDPI = math.MaxUint16

// maxSidePx bounds a single resolved side before it is converted to int.
const maxSidePx = math.MaxInt32

// TargetPixels is the output pixel count mode produces before any image is
// seen. It is zero for modes that keep the original pixel grid.
func TargetPixels(mode model.SizeMode, in model.OperatorInputs) float64 {
	if mode != model.SizeModeWidthHeightCmDPI {
		return 0
	}
	return targetSide(in.WidthCm, in.DPI) * targetSide(in.HeightCm, in.DPI)
}

// CheckPixelBudget rejects inputs whose resampled output would exceed
// maxPixels. A non-positive maxPixels disables the limit.
func CheckPixelBudget(mode model.SizeMode, in model.OperatorInputs, maxPixels int64) error {
	if maxPixels <= 0 {
		return nil
	}
	if target := TargetPixels(mode, in); target > float64(maxPixels) {
		return errors.NewInvalidInputError("requested output size exceeds the pixel limit").
			WithContext("mode", mode).
			WithContext("width_cm", in.WidthCm).
			WithContext("height_cm", in.HeightCm).
			WithContext("dpi", in.DPI).
			WithContext("target_pixels", target).
			WithContext("max_pixels", maxPixels)
	}
	return nil
}

func targetSide(cm float64, dpi int) float64 {
	return math.Round((cm / CmPerInch) * float64(dpi))
}

// Resolve maps an original pixel size and the operator inputs onto the
// output pixel size, output DPI and whether pixels must be resampled.
func Resolve(originalW, originalH int, mode model.SizeMode, in model.OperatorInputs) (model.ResolvedSize, error) {
	if originalW <= 0 || originalH <= 0 {
		return model.ResolvedSize{}, errors.NewInvalidInputError("original pixel size must be positive").
			WithContext("width", originalW).
			WithContext("height", originalH)
	}
	if err := CheckMode(mode, in); err != nil {
		return model.ResolvedSize{}, err
	}

	var resolved model.ResolvedSize
	switch mode {
	case model.SizeModeDirectDPI:
		resolved = model.ResolvedSize{Width: originalW, Height: originalH, DPI: in.DPI}
	case model.SizeModeWidthCm:
		if err := checkDerivedDPI(mode, originalW, in.WidthCm); err != nil {
			return model.ResolvedSize{}, err
		}
		resolved = model.ResolvedSize{Width: originalW, Height: originalH, DPI: DPIForLength(originalW, in.WidthCm)}
	case model.SizeModeHeightCm:
		if err := checkDerivedDPI(mode, originalH, in.HeightCm); err != nil {
			return model.ResolvedSize{}, err
		}
		resolved = model.ResolvedSize{Width: originalW, Height: originalH, DPI: DPIForLength(originalH, in.HeightCm)}
	case model.SizeModeWidthHeightCmDPI:
		if w, h := targetSide(in.WidthCm, in.DPI), targetSide(in.HeightCm, in.DPI); w > maxSidePx || h > maxSidePx {
			return model.ResolvedSize{}, errors.NewInvalidInputError("requested output size is too large").
				WithContext("mode", mode).
				WithContext("width", w).
				WithContext("height", h)
		}
		resolved = model.ResolvedSize{
			Width:     CmToPx(in.WidthCm, in.DPI),
			Height:    CmToPx(in.HeightCm, in.DPI),
			DPI:       in.DPI,
			Resampled: true,
		}
	}

	if resolved.Width <= 0 || resolved.Height <= 0 || resolved.DPI <= 0 {
		return model.ResolvedSize{}, errors.NewInvalidInputError("inputs resolve to an empty image or zero resolution").
			WithContext("mode", mode).
			WithContext("width", resolved.Width).
			WithContext("height", resolved.Height).
			WithContext("dpi", resolved.DPI)
	}
	if in.Format == model.FormatJPEG && resolved.DPI > MaxJPEGDPI {
		return model.ResolvedSize{}, errors.NewInvalidInputError("resolution is too high to record in a JPEG file").
			WithContext("mode", mode).
			WithContext("dpi", resolved.DPI).
			WithContext("max_dpi", MaxJPEGDPI)
	}
	return resolved, nil
}

func checkDerivedDPI(mode model.SizeMode, px int, cm float64) error {
	if dpi := float64(px) / (cm / CmPerInch); dpi > maxSidePx {
		return errors.NewInvalidInputError("physical size is too small for the pixel count").
			WithContext("mode", mode).
			WithContext("dpi", dpi)
	}
	return nil
}

// Physical reports the printed size of a pixel grid at dpi, rounded to 0.1 cm.
func Physical(width, height, dpi int) model.PhysicalSize {
	return model.PhysicalSize{
		WidthCm:  model.RoundTenth(PxToCm(width, dpi)),
		HeightCm: model.RoundTenth(PxToCm(height, dpi)),
	}
}
