package handler

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/tidecloud/tide-storage/internal/auth"
	"github.com/tidecloud/tide-storage/internal/metrics"
)

// Router dispatches S3 API requests. Authentication happens here
// because signature verification needs the buffered request body.
type Router struct {
	authenticator    *auth.Authenticator
	bucketHandler    *BucketHandler
	objectHandler    *ObjectHandler
	multipartHandler *MultipartHandler
	postHandler      *PostHandler
	metrics          *metrics.Metrics
	maxBodySize      int64
	logger           zerolog.Logger
}

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	Authenticator    *auth.Authenticator
	BucketHandler    *BucketHandler
	ObjectHandler    *ObjectHandler
	MultipartHandler *MultipartHandler
	PostHandler      *PostHandler
	Metrics          *metrics.Metrics
	MaxBodySize      int64
	Logger           zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(config RouterConfig) *Router {
	return &Router{
		authenticator:    config.Authenticator,
		bucketHandler:    config.BucketHandler,
		objectHandler:    config.ObjectHandler,
		multipartHandler: config.MultipartHandler,
		postHandler:      config.PostHandler,
		metrics:          config.Metrics,
		maxBodySize:      config.MaxBodySize,
		logger:           config.Logger.With().Str("component", "router").Logger(),
	}
}

// Handler returns the main HTTP handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if rt.metrics != nil {
		r.Use(rt.metrics.Middleware)
	}

	r.Get("/health", rt.handleHealth)
	if rt.metrics != nil {
		r.Handle("/metrics", rt.metrics.Handler())
	}

	r.HandleFunc("/", rt.handleS3Request)
	r.HandleFunc("/*", rt.handleS3Request)

	return r
}

func (rt *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// handleS3Request authenticates and routes S3 API requests.
func (rt *Router) handleS3Request(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	bucket, key := splitPath(r.URL.Path)

	// Browser form uploads authenticate through the policy signature
	// instead of a request signature.
	if r.Method == http.MethodPost && bucket != "" && key == "" &&
		strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		rt.postHandler.PolicyUpload(w, r, bucket)
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, rt.maxBodySize))
	if err != nil {
		writeErrorCode(w, "InvalidRequest")
		return
	}
	r.Body.Close()
	// Handlers that parse forms still need a readable body.
	r.Body = io.NopCloser(bytes.NewReader(payload))

	if err := rt.authenticator.Authenticate(r, payload); err != nil {
		rt.logger.Debug().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("authentication failed")
		writeErrorCode(w, authErrorCode(err))
		return
	}

	if bucket == "" {
		rt.handleRootRequest(w, r)
		return
	}
	if key == "" {
		rt.handleBucketRequest(w, r, bucket, payload)
		return
	}
	rt.handleObjectRequest(w, r, bucket, key, payload)
}

// handleRootRequest routes service-level requests.
func (rt *Router) handleRootRequest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if r.Method == http.MethodPost {
		if _, ok := query["presigned-url"]; ok {
			rt.postHandler.PresignedURL(w, r)
			return
		}
		writeErrorCode(w, "MethodNotAllowed")
		return
	}

	if r.Method == http.MethodGet {
		rt.bucketHandler.ListBuckets(w, r)
		return
	}
	writeErrorCode(w, "MethodNotAllowed")
}

// handleBucketRequest routes bucket-level requests.
func (rt *Router) handleBucketRequest(w http.ResponseWriter, r *http.Request, bucket string, payload []byte) {
	switch r.Method {
	case http.MethodGet:
		rt.bucketHandler.ListObjects(w, r, bucket)
	case http.MethodPost:
		if _, ok := r.URL.Query()["delete"]; ok {
			rt.bucketHandler.DeleteObjects(w, r, bucket, payload)
			return
		}
		writeErrorCode(w, "MethodNotAllowed")
	case http.MethodPut:
		rt.bucketHandler.CreateBucket(w, r, bucket)
	case http.MethodDelete:
		rt.bucketHandler.DeleteBucket(w, r, bucket)
	case http.MethodHead:
		rt.bucketHandler.HeadBucket(w, r, bucket)
	default:
		writeErrorCode(w, "MethodNotAllowed")
	}
}

// handleObjectRequest routes object-level requests, including the
// multipart sub-resources.
func (rt *Router) handleObjectRequest(w http.ResponseWriter, r *http.Request, bucket, key string, payload []byte) {
	query := r.URL.Query()

	if _, ok := query["uploads"]; ok && r.Method == http.MethodPost {
		rt.multipartHandler.Initiate(w, r, bucket, key)
		return
	}

	if uploadID := query.Get("uploadId"); uploadID != "" {
		if !rt.multipartHandler.Contains(uploadID) {
			writeErrorCode(w, "NoSuchUpload")
			return
		}
		switch r.Method {
		case http.MethodPut:
			rt.multipartHandler.UploadPart(w, r, uploadID, payload)
		case http.MethodPost:
			rt.multipartHandler.Complete(w, r, bucket, key, uploadID)
		case http.MethodDelete:
			rt.multipartHandler.Abort(w, r, uploadID)
		default:
			writeErrorCode(w, "MethodNotAllowed")
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		rt.objectHandler.Get(w, r, bucket, key)
	case http.MethodHead:
		rt.objectHandler.Head(w, r, bucket, key)
	case http.MethodPut:
		if source := r.Header.Get("x-amz-copy-source"); source != "" {
			rt.objectHandler.Copy(w, r, bucket, key, source)
			return
		}
		rt.objectHandler.Put(w, r, bucket, key, payload)
	case http.MethodDelete:
		rt.objectHandler.Delete(w, r, bucket, key)
	default:
		writeErrorCode(w, "MethodNotAllowed")
	}
}

// splitPath extracts the bucket and key from a request path.
func splitPath(p string) (bucket, key string) {
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "", ""
	}
	parts := strings.SplitN(p, "/", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return parts[0], ""
}

// authErrorCode maps authentication failures to S3 error codes.
// Signature mismatches surface as XAmzContentSHA256Mismatch.
func authErrorCode(err error) string {
	code := codeForError(err)
	if code == "SignatureDoesNotMatch" {
		return "XAmzContentSHA256Mismatch"
	}
	if code == "InternalError" {
		return "AccessDenied"
	}
	return code
}
