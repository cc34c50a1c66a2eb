package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ymehili/quick-demo/internal/imaging"
	"github.com/ymehili/quick-demo/internal/observability"
	"github.com/ymehili/quick-demo/internal/ocr"
	"github.com/ymehili/quick-demo/internal/pipeline"
)

// Prefixes for processing-error details, one per endpoint.
const (
	errOCR         = "Error processing image"
	errGeneratePDF = "Error generating PDF"
	errOCRToPDF    = "Error processing image to PDF"
)

type Handler struct {
	MaxUploadBytes int64
	TempDir        string
	ServiceName    string
	Pipeline       *pipeline.Pipeline
	logger         *observability.Logger
}

// Options carries the per-deployment handler settings.
type Options struct {
	MaxUploadBytes int64
	TempDir        string
	ServiceName    string
}

func NewHandler(p *pipeline.Pipeline, opts Options, logger *observability.Logger) *Handler {
	maxBytes := opts.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}
	tempDir := opts.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Handler{
		MaxUploadBytes: maxBytes,
		TempDir:        tempDir,
		ServiceName:    opts.ServiceName,
		Pipeline:       p,
		logger:         logger,
	}
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, RootResponse{Message: rootMessage})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Service:   h.ServiceName,
		OCREngine: h.Pipeline.EngineName(),
	})
}

// ExtractText handles POST /ocr/.
func (h *Handler) ExtractText(w http.ResponseWriter, r *http.Request) {
	log := h.requestLogger(r, "ocr")

	if !h.parseForm(w, r) {
		return
	}
	defer removeMultipart(r)

	upload, ok := h.imageUpload(w, r, log, errOCR)
	if !ok {
		return
	}

	text, err := h.Pipeline.ExtractText(r.Context(), upload.Data)
	if err != nil {
		h.processingError(w, log, errOCR, err)
		return
	}

	resp := OCRResponse{
		Filename:      upload.Filename,
		ExtractedText: text,
		TextLength:    ocr.TextLength(text),
	}
	log.Info().
		Str("filename", upload.Filename).
		Int("size_bytes", len(upload.Data)).
		Int("text_length", resp.TextLength).
		Msg("extracted text")

	h.writeJSON(w, http.StatusOK, resp)
}

// GeneratePDF handles POST /generate-pdf/.
func (h *Handler) GeneratePDF(w http.ResponseWriter, r *http.Request) {
	log := h.requestLogger(r, "generate-pdf")

	if !h.parseForm(w, r) {
		return
	}
	defer removeMultipart(r)

	if _, ok := r.PostForm["text"]; !ok {
		h.writeError(w, http.StatusUnprocessableEntity, "field required: text")
		return
	}
	text := r.PostFormValue("text")
	title := r.PostFormValue("title")

	h.servePDF(w, r, log, pipeline.GeneratedFilename, errGeneratePDF, func(out io.Writer) error {
		return h.Pipeline.GeneratePDF(r.Context(), title, text, out)
	})
}

// ImageToPDF handles POST /ocr-to-pdf/.
func (h *Handler) ImageToPDF(w http.ResponseWriter, r *http.Request) {
	log := h.requestLogger(r, "ocr-to-pdf")

	if !h.parseForm(w, r) {
		return
	}
	defer removeMultipart(r)

	upload, ok := h.imageUpload(w, r, log, errOCRToPDF)
	if !ok {
		return
	}
	title := r.PostFormValue("title")

	h.servePDF(w, r, log, pipeline.OCRFilename(upload.Filename), errOCRToPDF, func(out io.Writer) error {
		return h.Pipeline.ImageToPDF(r.Context(), upload.Filename, title, upload.Data, out)
	})
}

// parseForm bounds the body and parses multipart or urlencoded forms.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)

	err := r.ParseMultipartForm(h.MaxUploadBytes)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		h.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("parse form")
		maxMB := h.MaxUploadBytes / (1024 * 1024)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("file too large (max %dMB) or invalid form", maxMB))
		return false
	}
	return true
}

// imageUpload reads the "file" part and rejects non-image content types before
// any decoding happens.
func (h *Handler) imageUpload(w http.ResponseWriter, r *http.Request, log *observability.Logger, errPrefix string) (pipeline.Upload, bool) {
	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			h.writeError(w, http.StatusUnprocessableEntity, "field required: file")
			return pipeline.Upload{}, false
		}
		h.writeError(w, http.StatusBadRequest, "invalid form")
		return pipeline.Upload{}, false
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !imaging.IsImageContentType(contentType) {
		h.writeError(w, http.StatusBadRequest, "File must be an image")
		return pipeline.Upload{}, false
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.processingError(w, log, errPrefix, pipeline.Tag(pipeline.StageIO, err))
		return pipeline.Upload{}, false
	}

	return pipeline.Upload{
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
	}, true
}

func (h *Handler) processingError(w http.ResponseWriter, log *observability.Logger, prefix string, err error) {
	log.Error().
		Err(err).
		Str("stage", string(pipeline.StageOf(err))).
		Msg(prefix)
	h.writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s: %s", prefix, err.Error()))
}

func (h *Handler) requestLogger(r *http.Request, op string) *observability.Logger {
	return h.logger.WithOperation(op).WithRequestID(chimiddleware.GetReqID(r.Context()))
}

// removeMultipart deletes spilled multipart files. The server only cleans up
// the original request, not the copies middleware hands to handlers.
func removeMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}
