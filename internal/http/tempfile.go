package http

import (
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ymehili/quick-demo/internal/observability"
	"github.com/ymehili/quick-demo/internal/pipeline"
)

// servePDF renders into a request-owned temporary file, streams it as an
// attachment and removes it once the response body has been written. Nothing
// reaches the client until rendering has fully succeeded.
func (h *Handler) servePDF(w http.ResponseWriter, r *http.Request, log *observability.Logger, filename, errPrefix string, renderFn func(io.Writer) error) {
	id := uuid.New()
	path := filepath.Join(h.TempDir, id.String()+".pdf")

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		h.processingError(w, log, errPrefix, pipeline.Tag(pipeline.StageIO, err))
		return
	}
	defer func() {
		f.Close()
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("remove temporary pdf")
		}
	}()

	if err := renderFn(f); err != nil {
		h.processingError(w, log, errPrefix, err)
		return
	}

	info, err := f.Stat()
	if err != nil {
		h.processingError(w, log, errPrefix, pipeline.Tag(pipeline.StageIO, err))
		return
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		h.processingError(w, log, errPrefix, pipeline.Tag(pipeline.StageIO, err))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	http.ServeContent(w, r, filename, time.Time{}, f)

	log.Info().
		Str("file_id", id.String()).
		Str("filename", filename).
		Int64("size_bytes", info.Size()).
		Msg("served pdf")
}
