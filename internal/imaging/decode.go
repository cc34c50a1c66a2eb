// Package imaging turns uploaded bytes into rasters for the OCR engine.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"mime"
	"strings"

	// Registered decoders. image.Decode picks one by sniffing the header.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// IsImageContentType reports whether a declared MIME type is in the image/* family.
// Parameters such as "; charset=" are ignored.
func IsImageContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "image/")
}

// Decode decodes data into a raster. The declared content type is not consulted;
// a PNG declared as image/jpeg still decodes, and garbage declared as image/png
// fails here.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("image: empty upload")
	}
	return image.Decode(bytes.NewReader(data))
}

// EncodePNG re-encodes a raster as PNG, the one format every Tesseract build reads.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
