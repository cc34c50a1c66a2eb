// Package ocr defines the contract for pluggable text recognition engines.
// Implementations live in subpackages so callers that only need the contract
// (handlers, tests) do not link the native Tesseract library.
package ocr

import (
	"context"
	"image"
	"unicode/utf8"
)

// Engine converts a decoded raster into plain text.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// Options tune recognition. Zero values keep the engine defaults.
type Options struct {
	// Languages are trained-data names such as "eng" or "deu".
	Languages []string
	// PageSegMode is the Tesseract PSM (1-13).
	PageSegMode int
	// DPI overrides the resolution hint for images without metadata.
	DPI int
}

// EngineFunc adapts a plain function to Engine.
type EngineFunc func(ctx context.Context, img image.Image) (string, error)

func (f EngineFunc) Name() string { return "func" }

func (f EngineFunc) Recognize(ctx context.Context, img image.Image) (string, error) {
	return f(ctx, img)
}

// TextLength counts characters (code points), not bytes.
func TextLength(text string) int {
	return utf8.RuneCountInString(text)
}
