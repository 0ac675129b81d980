package model

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/histopathai/print-resize-service/pkg/errors"
)

// SizeMode selects which operator inputs are authoritative when resolving
// output size and resolution.
type SizeMode string

const (
	// SizeModeDirectDPI keeps pixels and stamps the operator DPI.
	SizeModeDirectDPI SizeMode = "direct_dpi"
	// SizeModeWidthCm keeps pixels and derives DPI from the physical width.
	SizeModeWidthCm SizeMode = "width_cm"
	// SizeModeHeightCm keeps pixels and derives DPI from the physical height.
	SizeModeHeightCm SizeMode = "height_cm"
	// SizeModeWidthHeightCmDPI resamples to the physical size at the operator DPI.
	SizeModeWidthHeightCmDPI SizeMode = "width_height_cm_dpi"
)

func (m SizeMode) IsValid() bool {
	switch m {
	case SizeModeDirectDPI, SizeModeWidthCm, SizeModeHeightCm, SizeModeWidthHeightCmDPI:
		return true
	}
	return false
}

func (m SizeMode) String() string {
	return string(m)
}

// ParseSizeMode maps a mode token onto a SizeMode. Tokens are matched
// case-insensitively and '-' is accepted in place of '_'.
func ParseSizeMode(token string) (SizeMode, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(token)), "-", "_")
	mode := SizeMode(normalized)
	if !mode.IsValid() {
		return "", errors.NewInvalidInputError("unknown size mode").
			WithContext("mode", token)
	}
	return mode, nil
}

const (
	MinDPI            = 50
	MaxDPI            = 1200
	MinMaxOutputWidth = 500
)

// OperatorInputs are the per-batch numeric fields entered by the operator.
type OperatorInputs struct {
	DPI            int          `json:"dpi" firestore:"dpi" validate:"min=50,max=1200"`
	WidthCm        float64      `json:"width_cm" firestore:"width_cm" validate:"gte=0"`
	HeightCm       float64      `json:"height_cm" firestore:"height_cm" validate:"gte=0"`
	MaxOutputWidth int          `json:"max_output_width" firestore:"max_output_width" validate:"min=500"`
	Format         OutputFormat `json:"format" firestore:"format" validate:"oneof=jpeg png"`
	Prefix         string       `json:"prefix" firestore:"prefix" validate:"required,max=64,excludesall=/\\"`
}

var validate = validator.New()

// Validate checks field ranges. Mode-specific requirements on the
// centimetre fields are enforced by the size resolver.
func (in OperatorInputs) Validate() error {
	if err := validate.Struct(in); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return errors.NewInvalidInputError(fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())).
				WithContext("field", fe.Field()).
				WithContext("rule", fe.Tag()).
				WithContext("param", fe.Param()).
				WithContext("value", fe.Value())
		}
		return errors.WrapInvalidInputError(err, "operator inputs are invalid")
	}
	return nil
}

// ResolvedSize is the outcome of size resolution for one image.
type ResolvedSize struct {
	Width     int  `json:"width" firestore:"width"`
	Height    int  `json:"height" firestore:"height"`
	DPI       int  `json:"dpi" firestore:"dpi"`
	Resampled bool `json:"resampled" firestore:"resampled"`
}

// BatchConfig carries everything a batch run needs besides the images.
type BatchConfig struct {
	Mode   SizeMode       `json:"mode" firestore:"mode"`
	Inputs OperatorInputs `json:"inputs" firestore:"inputs"`
}
