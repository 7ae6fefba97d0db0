package handler

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/tidecloud/tide-storage/internal/service"
)

// MultipartHandler handles multipart upload requests.
type MultipartHandler struct {
	multipart *service.MultipartService
	logger    zerolog.Logger
}

// NewMultipartHandler creates a new MultipartHandler.
func NewMultipartHandler(multipart *service.MultipartService, logger zerolog.Logger) *MultipartHandler {
	return &MultipartHandler{
		multipart: multipart,
		logger:    logger.With().Str("component", "multipart_handler").Logger(),
	}
}

// Contains reports whether an upload session exists.
func (h *MultipartHandler) Contains(uploadID string) bool {
	return h.multipart.ContainsUpload(uploadID)
}

// Initiate handles POST /{bucket}/{key}?uploads.
func (h *MultipartHandler) Initiate(w http.ResponseWriter, r *http.Request, bucket, key string) {
	uploadID, err := h.multipart.InitiateUpload(r.Context(), bucket, key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeXML(w, http.StatusOK, InitiateMultipartUploadResult{
		Bucket:   bucket,
		Key:      key,
		UploadID: uploadID,
	})
}

// UploadPart handles PUT /{bucket}/{key}?uploadId=...&partNumber=N.
func (h *MultipartHandler) UploadPart(w http.ResponseWriter, r *http.Request, uploadID string, payload []byte) {
	partNumberStr := r.URL.Query().Get("partNumber")
	if partNumberStr == "" {
		writeErrorCode(w, "MissingParameter")
		return
	}
	partNumber, err := strconv.Atoi(partNumberStr)
	if err != nil {
		writeErrorCode(w, "InvalidPart")
		return
	}

	tag, err := h.multipart.UploadPart(r.Context(), service.UploadPartInput{
		UploadID:   uploadID,
		PartNumber: partNumber,
		Body:       payload,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("ETag", tag)
	w.WriteHeader(http.StatusOK)
}

// Complete handles POST /{bucket}/{key}?uploadId=...
func (h *MultipartHandler) Complete(w http.ResponseWriter, r *http.Request, bucket, key, uploadID string) {
	out, err := h.multipart.CompleteUpload(r.Context(), uploadID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeXML(w, http.StatusOK, CompleteMultipartUploadResult{
		Location: "/" + bucket + "/" + key,
		Bucket:   bucket,
		Key:      key,
		ETag:     out.ETag,
	})
}

// Abort handles DELETE /{bucket}/{key}?uploadId=...
func (h *MultipartHandler) Abort(w http.ResponseWriter, r *http.Request, uploadID string) {
	if err := h.multipart.AbortUpload(r.Context(), uploadID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
