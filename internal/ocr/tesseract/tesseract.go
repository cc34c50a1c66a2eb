// Package tesseract implements ocr.Engine on top of libtesseract via gosseract.
package tesseract

import (
	"context"
	"fmt"
	"image"
	"strconv"

	"github.com/otiai10/gosseract/v2"

	"github.com/ymehili/quick-demo/internal/imaging"
	"github.com/ymehili/quick-demo/internal/ocr"
)

// Engine runs Tesseract with a fresh client per call; gosseract clients are not
// safe for concurrent use and requests are served concurrently.
type Engine struct {
	opts      ocr.Options
	newClient func() *gosseract.Client
}

// New constructs a Tesseract-backed engine.
func New(opts ocr.Options) *Engine {
	return &Engine{opts: opts, newClient: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract" }

// Version reports the linked libtesseract version.
func (e *Engine) Version() string { return gosseract.Version() }

// Recognize returns the raw Tesseract text for img, whitespace untouched.
func (e *Engine) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := imaging.EncodePNG(img)
	if err != nil {
		return "", err
	}

	c := e.newClient()
	defer c.Close()

	if err := e.configure(c); err != nil {
		return "", err
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}

func (e *Engine) configure(c *gosseract.Client) error {
	if len(e.opts.Languages) > 0 {
		if err := c.SetLanguage(e.opts.Languages...); err != nil {
			return fmt.Errorf("set languages: %w", err)
		}
	}
	if e.opts.PageSegMode > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(e.opts.PageSegMode)); err != nil {
			return fmt.Errorf("set page segmentation mode: %w", err)
		}
	}
	if e.opts.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(e.opts.DPI)); err != nil {
			return fmt.Errorf("set dpi: %w", err)
		}
	}
	return nil
}
