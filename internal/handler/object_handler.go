package handler

import (
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tidecloud/tide-storage/internal/service"
)

// ObjectHandler handles object-level requests.
type ObjectHandler struct {
	objects *service.ObjectService
	logger  zerolog.Logger
}

// NewObjectHandler creates a new ObjectHandler.
func NewObjectHandler(objects *service.ObjectService, logger zerolog.Logger) *ObjectHandler {
	return &ObjectHandler{
		objects: objects,
		logger:  logger.With().Str("component", "object_handler").Logger(),
	}
}

// Put handles PUT /{bucket}/{key}.
func (h *ObjectHandler) Put(w http.ResponseWriter, r *http.Request, bucket, key string, payload []byte) {
	out, err := h.objects.PutObject(r.Context(), service.PutObjectInput{
		Bucket: bucket,
		Key:    key,
		Body:   payload,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("ETag", out.ETag)
	w.WriteHeader(http.StatusOK)
}

// Get handles GET /{bucket}/{key}.
func (h *ObjectHandler) Get(w http.ResponseWriter, r *http.Request, bucket, key string) {
	out, err := h.objects.GetObject(r.Context(), bucket, key)
	if err != nil {
		writeError(w, err)
		return
	}
	defer out.Body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(out.Size, 10))
	w.Header().Set("ETag", out.ETag)
	w.Header().Set("Last-Modified", formatHTTPTime(out.LastModified))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, out.Body); err != nil {
		h.logger.Warn().Err(err).Str("bucket", bucket).Str("key", key).Msg("response write failed")
	}
}

// Head handles HEAD /{bucket}/{key}.
func (h *ObjectHandler) Head(w http.ResponseWriter, r *http.Request, bucket, key string) {
	out, err := h.objects.HeadObject(r.Context(), bucket, key)
	if err != nil {
		// HEAD responses carry no body.
		w.WriteHeader(statusForCode[codeForError(err)])
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(out.Size, 10))
	w.Header().Set("ETag", out.ETag)
	w.Header().Set("Last-Modified", formatHTTPTime(out.LastModified))
	w.WriteHeader(http.StatusOK)
}

// Delete handles DELETE /{bucket}/{key}.
func (h *ObjectHandler) Delete(w http.ResponseWriter, r *http.Request, bucket, key string) {
	if err := h.objects.DeleteObject(r.Context(), bucket, key); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Copy handles PUT /{bucket}/{key} with an x-amz-copy-source header.
// The source is "/srcBucket/srcKey", possibly URL-encoded.
func (h *ObjectHandler) Copy(w http.ResponseWriter, r *http.Request, bucket, key, source string) {
	if decoded, err := url.PathUnescape(source); err == nil {
		source = decoded
	}
	source = strings.TrimPrefix(source, "/")
	parts := strings.SplitN(source, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		writeErrorCode(w, "InvalidRequest")
		return
	}

	out, err := h.objects.CopyObject(r.Context(), service.CopyObjectInput{
		SourceBucket: parts[0],
		SourceKey:    parts[1],
		DestBucket:   bucket,
		DestKey:      key,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeXML(w, http.StatusOK, CopyObjectResult{
		LastModified: formatISO8601(out.LastModified),
		ETag:         out.ETag,
	})
}
