package httpapi

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/dualaccess"

	"go.uber.org/zap"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadBody = 10 << 20

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// HeaderDataPath names the backend path (remote or local) that served the request.
	HeaderDataPath = "X-Data-Path"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// markPath copies the path recorded by the dual-access runner into the response.
func markPath(w http.ResponseWriter, r *http.Request) {
	if p, ok := dualaccess.PathFromContext(r.Context()); ok {
		w.Header().Set(HeaderDataPath, string(p))
	}
}

func respond[T any](w http.ResponseWriter, r *http.Request, result T) {
	markPath(w, r)
	writeJSON(w, http.StatusOK, Ok(result))
}

// statusFor maps an error kind to the HTTP status it is reported with.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindBusinessRule:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(apperr.KindOf(err))
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", fields...)
	} else {
		h.logger.Warn(op+" rejected", fields...)
	}
	markPath(w, r)
	writeJSON(w, status, Fail(apperr.Message(err)))
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(s))
	return b
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return apperr.Validation("cannot read body: %v", err)
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperr.Validation("invalid body: %v", err)
	}
	return nil
}

// readUpload returns the uploaded spreadsheet: the "file" part of a multipart
// form, or the raw request body.
func readUpload(r *http.Request) (io.Reader, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return io.LimitReader(r.Body, maxUploadBody), func() {}, nil
	}
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		return nil, nil, apperr.Validation("invalid upload: %v", err)
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, nil, apperr.Validation("upload needs a file field: %v", err)
	}
	return file, func() { file.Close() }, nil
}

func writeSpreadsheet(w http.ResponseWriter, r *http.Request, filename string, body []byte) {
	markPath(w, r)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
