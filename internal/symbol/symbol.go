// Package symbol defines the boundary to the optical codec subsystem.
// Rendering a payload into a scannable code and recovering payloads from a
// scanned image live outside this repo; the pipeline only depends on these
// interfaces.
package symbol

import "image"

type ErrorCorrection string

const (
	ErrorCorrectionL ErrorCorrection = "L"
	ErrorCorrectionM ErrorCorrection = "M"
	ErrorCorrectionQ ErrorCorrection = "Q"
	ErrorCorrectionH ErrorCorrection = "H"
)

type Options struct {
	BoxSize         int
	Border          int
	ErrorCorrection ErrorCorrection
}

// SheetLayout describes how symbols are composed onto a printable sheet.
// Composition itself is a collaborator concern.
type SheetLayout struct {
	PerSheet int
	Columns  int
	Padding  int
}

// Encoder renders one wire record payload into a scannable image.
type Encoder interface {
	EncodeSymbol(payload string, opts Options) (image.Image, error)
}

// Decoder recovers zero or more payload strings from a scanned image.
// Order is unspecified; callers must not assume scan order reflects chunk
// order.
type Decoder interface {
	DecodeSymbols(img image.Image) ([]string, error)
}
