package inpaint

import "errors"

var (
	// ErrDimensionMismatch is returned when the mask and source sizes differ.
	ErrDimensionMismatch = errors.New("mask dimensions do not match source image")

	// ErrNoReferenceSample is returned when the ring around the masked region
	// holds no unmasked pixel, so no reference color can be estimated.
	ErrNoReferenceSample = errors.New("cannot estimate reference color: no unmasked pixels around the mask")

	// ErrEmptyImage is returned for a zero-sized source image.
	ErrEmptyImage = errors.New("source image is empty")
)
