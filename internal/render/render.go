// Package render lays out simple text documents as PDF using go-pdf/fpdf.
//
// A document is a vertical story: a centered bold title, a fixed spacer, an
// optional italic attribution line followed by a second spacer, and the body
// paragraph. Wrapping and pagination are left to fpdf.
package render

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/go-pdf/fpdf"
)

// Document is the content of one generated PDF.
type Document struct {
	Title       string
	Attribution string // omitted when empty
	Body        string
}

// Config controls page geometry and output encoding.
type Config struct {
	PageSize string // fpdf size name: Letter, A4, ...
	Compress bool
	Creator  string
}

// Style sizes in points. They follow the classic sample stylesheet: 18/22
// bold centered titles, 10/12 body text, one-inch page margins.
const (
	margin      = 72.0
	spacer      = 12.0
	titleSize   = 18.0
	titleLead   = 22.0
	bodySize    = 10.0
	bodyLead    = 12.0
	titleAfter  = 6.0
	fontFamily  = "Helvetica"
	defaultSize = "Letter"
)

// Renderer renders Documents. It holds no per-document state and is safe for
// concurrent use.
type Renderer struct {
	cfg Config
}

// NewRenderer constructs a Renderer.
func NewRenderer(cfg Config) *Renderer {
	if cfg.PageSize == "" {
		cfg.PageSize = defaultSize
	}
	return &Renderer{cfg: cfg}
}

// Render writes doc to w as a complete PDF.
func (r *Renderer) Render(ctx context.Context, doc Document, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	pdf := fpdf.New("P", "pt", r.cfg.PageSize, "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetCompression(r.cfg.Compress)
	pdf.SetTitle(doc.Title, true)
	if r.cfg.Creator != "" {
		pdf.SetCreator(r.cfg.Creator, true)
	}

	// Core fonts are cp1252; translate UTF-8 input before drawing.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()

	pdf.SetFont(fontFamily, "B", titleSize)
	pdf.MultiCell(0, titleLead, tr(normalize(doc.Title)), "", "C", false)
	pdf.Ln(titleAfter + spacer)

	if doc.Attribution != "" {
		pdf.SetFont(fontFamily, "I", bodySize)
		pdf.MultiCell(0, bodyLead, tr(normalize(doc.Attribution)), "", "L", false)
		pdf.Ln(spacer)
	}

	pdf.SetFont(fontFamily, "", bodySize)
	pdf.MultiCell(0, bodyLead, tr(normalize(doc.Body)), "", "L", false)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// normalize keeps line breaks and drops the control characters OCR output
// tends to carry (form feeds, carriage returns, NULs).
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n':
			return r
		case r == '\t':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
}
