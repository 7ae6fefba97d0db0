package handler

import (
	"context"
	"encoding/xml"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/tidecloud/tide-storage/internal/domain"
	"github.com/tidecloud/tide-storage/internal/service"
)

// BucketHandler handles bucket-level requests.
type BucketHandler struct {
	buckets *service.BucketService
	objects *service.ObjectService
	logger  zerolog.Logger
}

// NewBucketHandler creates a new BucketHandler.
func NewBucketHandler(buckets *service.BucketService, objects *service.ObjectService, logger zerolog.Logger) *BucketHandler {
	return &BucketHandler{
		buckets: buckets,
		objects: objects,
		logger:  logger.With().Str("component", "bucket_handler").Logger(),
	}
}

// ListBuckets handles GET /.
func (h *BucketHandler) ListBuckets(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.buckets.ListBuckets(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	result := ListAllMyBucketsResult{
		Owner: Owner{ID: "tide", DisplayName: "tide"},
	}
	for _, b := range buckets {
		result.Buckets.Bucket = append(result.Buckets.Bucket, Bucket{
			Name:         b.Name,
			CreationDate: formatISO8601(b.CreationDate),
		})
	}
	writeXML(w, http.StatusOK, result)
}

// CreateBucket handles PUT /{bucket}.
func (h *BucketHandler) CreateBucket(w http.ResponseWriter, r *http.Request, bucket string) {
	if err := h.buckets.CreateBucket(r.Context(), bucket); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/"+bucket)
	w.WriteHeader(http.StatusOK)
}

// DeleteBucket handles DELETE /{bucket}.
func (h *BucketHandler) DeleteBucket(w http.ResponseWriter, r *http.Request, bucket string) {
	if err := h.buckets.DeleteBucket(r.Context(), bucket); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HeadBucket handles HEAD /{bucket}.
func (h *BucketHandler) HeadBucket(w http.ResponseWriter, r *http.Request, bucket string) {
	exists, err := h.buckets.BucketExists(r.Context(), bucket)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if !exists {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// DeleteObjects handles POST /{bucket}?delete. Deleting an absent key
// counts as success, matching client retry expectations.
func (h *BucketHandler) DeleteObjects(w http.ResponseWriter, r *http.Request, bucket string, payload []byte) {
	var req DeleteRequest
	if err := xml.Unmarshal(payload, &req); err != nil {
		writeErrorCode(w, "MalformedXML")
		return
	}

	exists, err := h.buckets.BucketExists(r.Context(), bucket)
	if err != nil {
		writeError(w, err)
		return
	}
	if !exists {
		writeErrorCode(w, "NoSuchBucket")
		return
	}

	var result DeleteResult
	for _, obj := range req.Objects {
		err := h.objects.DeleteObject(r.Context(), bucket, obj.Key)
		if err != nil && !errors.Is(err, domain.ErrObjectNotFound) {
			code := codeForError(err)
			result.Error = append(result.Error, DeleteError{
				Key:     obj.Key,
				Code:    code,
				Message: errorMessages[code],
			})
			continue
		}
		if !req.Quiet {
			result.Deleted = append(result.Deleted, DeletedObject{Key: obj.Key})
		}
	}

	writeXML(w, http.StatusOK, result)
}

// ListObjects handles GET /{bucket}, both V1 and list-type=2.
func (h *BucketHandler) ListObjects(w http.ResponseWriter, r *http.Request, bucket string) {
	query := r.URL.Query()

	req := domain.ListObjectsRequest{
		Bucket:    bucket,
		Prefix:    query.Get("prefix"),
		Delimiter: query.Get("delimiter"),
		IsV2:      query.Get("list-type") == "2",
	}
	if maxKeysStr := query.Get("max-keys"); maxKeysStr != "" {
		maxKeys, err := strconv.Atoi(maxKeysStr)
		if err != nil {
			writeErrorCode(w, "InvalidRequest")
			return
		}
		req.MaxKeys = maxKeys
	}
	if req.IsV2 {
		req.ContinuationToken = query.Get("continuation-token")
	} else {
		req.ContinuationToken = query.Get("marker")
	}

	result, err := h.buckets.ListObjects(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	contents := h.buildContents(r.Context(), bucket, result)
	prefixes := make([]CommonPrefix, 0, len(result.CommonPrefixes))
	for _, p := range result.CommonPrefixes {
		prefixes = append(prefixes, CommonPrefix{Prefix: p})
	}

	if result.IsV2 {
		writeXML(w, http.StatusOK, ListBucketV2Result{
			Name:                  result.Bucket,
			Prefix:                result.Prefix,
			MaxKeys:               result.MaxKeys,
			Delimiter:             result.Delimiter,
			KeyCount:              result.KeyCount(),
			IsTruncated:           result.IsTruncated(),
			ContinuationToken:     req.ContinuationToken,
			NextContinuationToken: result.NextContinuationToken,
			Contents:              contents,
			CommonPrefixes:        prefixes,
		})
		return
	}

	writeXML(w, http.StatusOK, ListBucketResult{
		Name:           result.Bucket,
		Prefix:         result.Prefix,
		Marker:         req.ContinuationToken,
		NextMarker:     result.NextContinuationToken,
		MaxKeys:        result.MaxKeys,
		Delimiter:      result.Delimiter,
		IsTruncated:    result.IsTruncated(),
		Contents:       contents,
		CommonPrefixes: prefixes,
	})
}

// buildContents renders listing entries, attaching each object's tag.
func (h *BucketHandler) buildContents(ctx context.Context, bucket string, result *domain.ListObjectsResult) []Contents {
	contents := make([]Contents, 0, len(result.Objects))
	for _, obj := range result.Objects {
		entry := Contents{
			Key:          obj.Key,
			LastModified: formatISO8601(obj.LastModified),
			Size:         obj.Size,
			StorageClass: "STANDARD",
		}
		if head, err := h.objects.HeadObject(ctx, bucket, obj.Key); err == nil {
			entry.ETag = head.ETag
		}
		contents = append(contents, entry)
	}
	return contents
}
