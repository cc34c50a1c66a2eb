package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ymehili/quick-demo/internal/observability"
)

func NewRouter(handler *Handler, logger *observability.Logger, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(allowedOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handler.writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handler.writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/", handler.Root)
	r.Get("/health", handler.Health)

	// Each endpoint answers with and without the trailing slash.
	for _, p := range []string{"/ocr/", "/ocr"} {
		r.Post(p, handler.ExtractText)
	}
	for _, p := range []string{"/generate-pdf/", "/generate-pdf"} {
		r.Post(p, handler.GeneratePDF)
	}
	for _, p := range []string{"/ocr-to-pdf/", "/ocr-to-pdf"} {
		r.Post(p, handler.ImageToPDF)
	}

	return r
}
