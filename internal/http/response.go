package http

import (
	"encoding/json"
	"net/http"
)

const rootMessage = "OCR + PDF Generation Demo"

type RootResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	OCREngine string `json:"ocr_engine"`
}

// OCRResponse is returned by POST /ocr/. TextLength counts characters.
type OCRResponse struct {
	Filename      string `json:"filename"`
	ExtractedText string `json:"extracted_text"`
	TextLength    int    `json:"text_length"`
}

// ErrorResponse is returned for any failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Int("status", status).Msg("encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, detail string) {
	h.writeJSON(w, status, ErrorResponse{Detail: detail})
}
