package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymehili/quick-demo/internal/observability"
	"github.com/ymehili/quick-demo/internal/ocr"
	"github.com/ymehili/quick-demo/internal/pipeline"
	"github.com/ymehili/quick-demo/internal/render"
)

type countingEngine struct {
	text  string
	err   error
	calls int
}

func (e *countingEngine) Name() string { return "fake" }

func (e *countingEngine) Recognize(context.Context, image.Image) (string, error) {
	e.calls++
	return e.text, e.err
}

type countingRenderer struct {
	inner pipeline.DocumentRenderer
	err   error
	calls int
}

func (r *countingRenderer) Render(ctx context.Context, doc render.Document, w io.Writer) error {
	r.calls++
	if r.err != nil {
		return r.err
	}
	return r.inner.Render(ctx, doc, w)
}

type testEnv struct {
	router   http.Handler
	engine   *countingEngine
	renderer *countingRenderer
	tempDir  string
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	env := &testEnv{
		engine:   &countingEngine{text: "HELLO\n"},
		renderer: &countingRenderer{inner: render.NewRenderer(render.Config{Compress: true})},
		tempDir:  t.TempDir(),
	}
	opts.TempDir = env.tempDir
	opts.ServiceName = "ocr-pdf"
	h := NewHandler(pipeline.New(env.engine, env.renderer), opts, observability.Nop())
	env.router = NewRouter(h, observability.Nop(), []string{"http://localhost:3000"})
	return env
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) assertTempDirEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(env.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary pdf files must be removed after the response")
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 16, 16))))
	return buf.Bytes()
}

// uploadRequest builds a multipart request with one file part and optional fields.
func uploadRequest(t *testing.T, path, filename, contentType string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if filename != "" {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
		hdr.Set("Content-Type", contentType)
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func formRequest(path string, fields url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(fields.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Detail
}

func attachmentName(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	disposition, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "attachment", disposition)
	return params["filename"]
}

func pdfText(t *testing.T, data []byte) string {
	t.Helper()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	rd, err := r.GetPlainText()
	require.NoError(t, err)
	text, err := io.ReadAll(rd)
	require.NoError(t, err)
	return string(text)
}

func TestRoot(t *testing.T) {
	env := newTestEnv(t, Options{})
	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"OCR + PDF Generation Demo"}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, Options{})
	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"ocr-pdf","ocr_engine":"fake"}`, rec.Body.String())
}

func TestNonImageUploadsAreRejected(t *testing.T) {
	paths := []string{"/ocr/", "/ocr-to-pdf/"}
	contentTypes := []string{"text/plain", "application/pdf", "application/octet-stream"}

	for _, path := range paths {
		for _, ct := range contentTypes {
			t.Run(path+" "+ct, func(t *testing.T) {
				env := newTestEnv(t, Options{})
				rec := env.do(uploadRequest(t, path, "scan.png", ct, pngBytes(t), nil))

				assert.Equal(t, http.StatusBadRequest, rec.Code)
				assert.Equal(t, "File must be an image", decodeError(t, rec))
				assert.Zero(t, env.engine.calls)
				assert.Zero(t, env.renderer.calls)
				env.assertTempDirEmpty(t)
			})
		}
	}
}

func TestExtractText_Success(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.engine.text = "héllo wörld\n"

	rec := env.do(uploadRequest(t, "/ocr/", "scan.png", "image/png", pngBytes(t), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp OCRResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "scan.png", resp.Filename)
	assert.Equal(t, "héllo wörld\n", resp.ExtractedText)
	assert.Equal(t, 12, resp.TextLength)
	assert.Equal(t, ocr.TextLength(resp.ExtractedText), resp.TextLength)
	assert.Equal(t, 1, env.engine.calls)
}

func TestExtractText_WithoutTrailingSlash(t *testing.T) {
	env := newTestEnv(t, Options{})
	rec := env.do(uploadRequest(t, "/ocr", "scan.png", "image/png", pngBytes(t), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExtractText_CorruptImageIsServerError(t *testing.T) {
	env := newTestEnv(t, Options{})
	rec := env.do(uploadRequest(t, "/ocr/", "broken.png", "image/png", []byte("not really a png"), nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	detail := decodeError(t, rec)
	assert.True(t, strings.HasPrefix(detail, "Error processing image: "), detail)
	assert.Contains(t, detail, image.ErrFormat.Error())
	assert.Zero(t, env.engine.calls)
}

func TestExtractText_OCRFailure(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.engine.err = errors.New("failed loading language 'eng'")

	rec := env.do(uploadRequest(t, "/ocr/", "scan.png", "image/png", pngBytes(t), nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error processing image: failed loading language 'eng'", decodeError(t, rec))
}

func TestExtractText_MissingFile(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.do(uploadRequest(t, "/ocr/", "", "", nil, map[string]string{"title": "x"}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "field required: file", decodeError(t, rec))

	rec = env.do(formRequest("/ocr/", url.Values{"title": {"x"}}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestExtractText_UploadTooLarge(t *testing.T) {
	env := newTestEnv(t, Options{MaxUploadBytes: 1024})
	big := bytes.Repeat([]byte{0x89}, 8*1024)

	rec := env.do(uploadRequest(t, "/ocr/", "big.png", "image/png", big, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec), "file too large")
	assert.Zero(t, env.engine.calls)
}

func TestGeneratePDF_DefaultTitle(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.do(formRequest("/generate-pdf/", url.Values{"text": {"Hello world"}}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "generated_document.pdf", attachmentName(t, rec))
	require.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	text := pdfText(t, rec.Body.Bytes())
	assert.Contains(t, text, "Generated Document")
	assert.Contains(t, text, "Hello world")
	env.assertTempDirEmpty(t)
}

func TestGeneratePDF_CustomTitleMultipart(t *testing.T) {
	env := newTestEnv(t, Options{})

	req := uploadRequest(t, "/generate-pdf/", "", "", nil, map[string]string{"text": "Quarterly numbers", "title": "Report"})
	rec := env.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	text := pdfText(t, rec.Body.Bytes())
	assert.Contains(t, text, "Report")
	assert.NotContains(t, text, "Generated Document")
	env.assertTempDirEmpty(t)
}

func TestGeneratePDF_MissingText(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.do(formRequest("/generate-pdf/", url.Values{"title": {"Report"}}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "field required: text", decodeError(t, rec))
	assert.Zero(t, env.renderer.calls)
}

func TestGeneratePDF_RenderFailure(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.renderer.err = errors.New("font not found")

	rec := env.do(formRequest("/generate-pdf/", url.Values{"text": {"x"}}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error generating PDF: font not found", decodeError(t, rec))
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
	env.assertTempDirEmpty(t)
}

func TestImageToPDF_Success(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.engine.text = "recognized words"

	rec := env.do(uploadRequest(t, "/ocr-to-pdf/", "scan.report.png", "image/png", pngBytes(t), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ocr_scan.pdf", attachmentName(t, rec))

	text := pdfText(t, rec.Body.Bytes())
	assert.Contains(t, text, "OCR Document")
	assert.Contains(t, text, "Extracted from: scan.report.png")
	assert.Contains(t, text, "recognized words")
	assert.Equal(t, 1, env.engine.calls)
	env.assertTempDirEmpty(t)
}

func TestImageToPDF_CustomTitle(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.do(uploadRequest(t, "/ocr-to-pdf", "receipt.jpg", "image/jpeg", pngBytes(t), map[string]string{"title": "Receipt"}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ocr_receipt.pdf", attachmentName(t, rec))
	assert.Contains(t, pdfText(t, rec.Body.Bytes()), "Receipt")
}

func TestImageToPDF_FailuresAreServerErrors(t *testing.T) {
	t.Run("decode", func(t *testing.T) {
		env := newTestEnv(t, Options{})
		rec := env.do(uploadRequest(t, "/ocr-to-pdf/", "x.png", "image/png", []byte("garbage"), nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, decodeError(t, rec), "Error processing image to PDF: ")
		assert.Zero(t, env.renderer.calls)
		env.assertTempDirEmpty(t)
	})

	t.Run("ocr", func(t *testing.T) {
		env := newTestEnv(t, Options{})
		env.engine.err = errors.New("engine crashed")
		rec := env.do(uploadRequest(t, "/ocr-to-pdf/", "x.png", "image/png", pngBytes(t), nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Error processing image to PDF: engine crashed", decodeError(t, rec))
		assert.Zero(t, env.renderer.calls)
	})

	t.Run("render", func(t *testing.T) {
		env := newTestEnv(t, Options{})
		env.renderer.err = errors.New("page overflow")
		rec := env.do(uploadRequest(t, "/ocr-to-pdf/", "x.png", "image/png", pngBytes(t), nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Error processing image to PDF: page overflow", decodeError(t, rec))
		env.assertTempDirEmpty(t)
	})
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, Options{})

	req := httptest.NewRequest(http.MethodOptions, "/ocr/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := env.do(req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/ocr/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = env.do(req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t, Options{})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", decodeError(t, rec))

	rec = env.do(httptest.NewRequest(http.MethodGet, "/ocr/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
