package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/tidecloud/tide-storage/internal/auth"
	"github.com/tidecloud/tide-storage/internal/service"
)

// maxPolicyUploadMemory bounds the in-memory portion of a parsed
// multipart form; larger files spill to disk.
const maxPolicyUploadMemory = 32 << 20

// PostHandler handles the POST endpoints: presigned URL generation and
// browser policy uploads.
type PostHandler struct {
	presign       *service.PresignService
	objects       *service.ObjectService
	authenticator *auth.Authenticator
	logger        zerolog.Logger
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(presign *service.PresignService, objects *service.ObjectService, authenticator *auth.Authenticator, logger zerolog.Logger) *PostHandler {
	return &PostHandler{
		presign:       presign,
		objects:       objects,
		authenticator: authenticator,
		logger:        logger.With().Str("component", "post_handler").Logger(),
	}
}

// PresignedURL handles POST /?presigned-url. The form carries method,
// path, accessKey and an optional expiration in seconds.
func (h *PostHandler) PresignedURL(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeErrorCode(w, "InvalidRequest")
		return
	}

	method := r.PostForm.Get("method")
	path := r.PostForm.Get("path")
	accessKey := r.PostForm.Get("accessKey")
	if method == "" || path == "" || accessKey == "" {
		writeErrorCode(w, "MissingParameter")
		return
	}

	var expires int64
	if expiration := r.PostForm.Get("expiration"); expiration != "" {
		parsed, err := strconv.ParseInt(expiration, 10, 64)
		if err != nil {
			writeErrorCode(w, "InvalidRequest")
			return
		}
		expires = parsed
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	signed, err := h.presign.GeneratePresignedURL(service.GeneratePresignedURLInput{
		Method:    method,
		Path:      path,
		AccessKey: accessKey,
		Expires:   expires,
		Host:      r.Host,
		Scheme:    scheme,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(signed))
}

// PolicyUpload handles POST /{bucket} with multipart/form-data.
// The policy document signature authorizes the upload in place of a
// request signature.
func (h *PostHandler) PolicyUpload(w http.ResponseWriter, r *http.Request, bucket string) {
	if err := r.ParseMultipartForm(maxPolicyUploadMemory); err != nil {
		writeErrorCode(w, "InvalidRequest")
		return
	}

	policy := r.FormValue("policy")
	credential := r.FormValue("x-amz-credential")
	signature := r.FormValue("x-amz-signature")
	key := r.FormValue("key")
	if policy == "" || credential == "" || signature == "" || key == "" {
		writeErrorCode(w, "MissingParameter")
		return
	}

	if err := h.authenticator.VerifyPolicy(credential, policy, signature); err != nil {
		h.logger.Debug().Err(err).Str("bucket", bucket).Msg("policy verification failed")
		writeErrorCode(w, authErrorCode(err))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeErrorCode(w, "MissingParameter")
		return
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	if err != nil {
		writeErrorCode(w, "InvalidRequest")
		return
	}

	out, err := h.objects.PutObject(r.Context(), service.PutObjectInput{
		Bucket: bucket,
		Key:    key,
		Body:   body,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeXML(w, http.StatusCreated, PostUploadResult{
		Location: "/" + bucket + "/" + key,
		Bucket:   bucket,
		Key:      key,
		ETag:     out.ETag,
	})
}
