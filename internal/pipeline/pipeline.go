// Package pipeline sequences the delegated capabilities: decode, recognize,
// render. Each operation is a straight line with no partial results; the first
// failing step ends it with a stage-tagged *Error.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ymehili/quick-demo/internal/imaging"
	"github.com/ymehili/quick-demo/internal/ocr"
	"github.com/ymehili/quick-demo/internal/render"
)

const (
	DefaultGeneratedTitle = "Generated Document"
	DefaultOCRTitle       = "OCR Document"
	GeneratedFilename     = "generated_document.pdf"

	// fallbackStem names outputs for uploads whose filename has no usable stem.
	fallbackStem = "document"
)

// Upload is one request-scoped uploaded file.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// DocumentRenderer is the rendering capability.
type DocumentRenderer interface {
	Render(ctx context.Context, doc render.Document, w io.Writer) error
}

// Pipeline composes an OCR engine and a renderer.
type Pipeline struct {
	engine   ocr.Engine
	renderer DocumentRenderer
}

// New creates a Pipeline.
func New(engine ocr.Engine, renderer DocumentRenderer) *Pipeline {
	return &Pipeline{engine: engine, renderer: renderer}
}

// EngineName reports the configured OCR engine.
func (p *Pipeline) EngineName() string {
	return p.engine.Name()
}

// ExtractText decodes an uploaded image and runs OCR on it.
func (p *Pipeline) ExtractText(ctx context.Context, data []byte) (string, error) {
	img, _, err := imaging.Decode(data)
	if err != nil {
		return "", wrap(StageDecode, err)
	}
	if err := ctx.Err(); err != nil {
		return "", wrap(StageOCR, err)
	}
	text, err := p.engine.Recognize(ctx, img)
	if err != nil {
		return "", wrap(StageOCR, err)
	}
	return text, nil
}

// GeneratePDF renders text under title. An empty title gets the default.
func (p *Pipeline) GeneratePDF(ctx context.Context, title, text string, w io.Writer) error {
	if title == "" {
		title = DefaultGeneratedTitle
	}
	doc := render.Document{Title: title, Body: text}
	return wrap(StageRender, p.renderer.Render(ctx, doc, w))
}

// ImageToPDF extracts text from an image and renders it with an attribution
// line naming the source file.
func (p *Pipeline) ImageToPDF(ctx context.Context, filename, title string, data []byte, w io.Writer) error {
	text, err := p.ExtractText(ctx, data)
	if err != nil {
		return err
	}
	if title == "" {
		title = DefaultOCRTitle
	}
	doc := render.Document{
		Title:       title,
		Attribution: fmt.Sprintf("Extracted from: %s", filename),
		Body:        text,
	}
	return wrap(StageRender, p.renderer.Render(ctx, doc, w))
}

// Stem returns the part of filename before its first '.', so "scan.report.png"
// yields "scan". Names with no usable stem (".png", "") fall back to "document".
func Stem(filename string) string {
	stem, _, _ := strings.Cut(filename, ".")
	if stem == "" {
		return fallbackStem
	}
	return stem
}

// OCRFilename names the PDF produced from an uploaded image.
func OCRFilename(filename string) string {
	return "ocr_" + Stem(filename) + ".pdf"
}
