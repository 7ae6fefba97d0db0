package handler

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tidecloud/tide-storage/internal/auth"
	"github.com/tidecloud/tide-storage/internal/cache"
	"github.com/tidecloud/tide-storage/internal/credential"
	"github.com/tidecloud/tide-storage/internal/lock"
	"github.com/tidecloud/tide-storage/internal/service"
	"github.com/tidecloud/tide-storage/internal/storage"
)

const (
	testAccessKey = "AKIDEXAMPLE"
	testSecretKey = "test-secret-key"
	testRegion    = "us-east-1"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := credential.NewStaticStore([]credential.Credentials{
		{AccessKey: testAccessKey, SecretKey: testSecretKey, Region: testRegion},
	})
	logger := zerolog.Nop()
	backend := storage.NewMemoryBackend()
	locker := lock.NewMemoryLocker()

	authenticator := auth.NewAuthenticator(store, testRegion, logger)
	buckets := service.NewBucketService(backend, locker, logger)
	etags := cache.NewETagCache(time.Minute)
	t.Cleanup(etags.Stop)
	objects := service.NewObjectService(backend, locker, etags, logger)
	multipart := service.NewMultipartService(backend, service.NewMemorySessionStore(), locker, logger)
	presign := service.NewPresignService(authenticator, 900, logger)

	router := NewRouter(RouterConfig{
		Authenticator:    authenticator,
		BucketHandler:    NewBucketHandler(buckets, objects, logger),
		ObjectHandler:    NewObjectHandler(objects, logger),
		MultipartHandler: NewMultipartHandler(multipart, logger),
		PostHandler:      NewPostHandler(presign, objects, authenticator, logger),
		MaxBodySize:      64 << 20,
		Logger:           logger,
	})

	ts := httptest.NewServer(router.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// signedRequest builds and signs a request the way an S3 client would.
func signedRequest(t *testing.T, method, rawURL string, payload []byte) *http.Request {
	t.Helper()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	r, err := http.NewRequest(method, rawURL, body)
	require.NoError(t, err)
	r.Host = r.URL.Host

	now := time.Now().UTC()
	amzDate := now.Format(auth.ISO8601BasicFormat)
	r.Header.Set(auth.XAmzDateHeader, amzDate)

	scope := auth.CredentialScope{
		DateStamp: now.Format(auth.YYYYMMDD),
		Region:    testRegion,
		Service:   auth.ServiceS3,
	}
	signedHeaders := []string{"host", "x-amz-date"}
	canonicalRequest := auth.CanonicalRequest(r, signedHeaders, auth.PayloadHash(r, payload))
	stringToSign := auth.StringToSign(amzDate, scope, canonicalRequest)
	signature := auth.Sign(auth.SigningKey(testSecretKey, scope.DateStamp, scope.Region, scope.Service), stringToSign)

	r.Header.Set(auth.AuthorizationHeader, fmt.Sprintf(
		"%s Credential=%s/%s, SignedHeaders=host;x-amz-date, Signature=%s",
		auth.SignV4Algorithm, testAccessKey, scope.String(), signature,
	))
	return r
}

func do(t *testing.T, r *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.DefaultClient.Do(r)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, body
}

func requireErrorCode(t *testing.T, body []byte, code string) {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, xml.Unmarshal(body, &e))
	require.Equal(t, code, e.Code)
	require.NotEmpty(t, e.Message)
}

// =============================================================================
// Tests
// =============================================================================

func TestObjectRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := do(t, signedRequest(t, http.MethodPut, ts.URL+"/testbucket", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, signedRequest(t, http.MethodPut, ts.URL+"/testbucket/hello.txt", []byte("hello")))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, `"XUFAKrxLKna5cZ2REBfFkg=="`, resp.Header.Get("ETag"))

	resp, body := do(t, signedRequest(t, http.MethodGet, ts.URL+"/testbucket/hello.txt", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "hello", string(body))
	require.Equal(t, `"XUFAKrxLKna5cZ2REBfFkg=="`, resp.Header.Get("ETag"))

	lastModified := resp.Header.Get("Last-Modified")
	_, err := time.Parse(timeFormatHTTP, lastModified)
	require.NoError(t, err, "Last-Modified %q", lastModified)

	resp, _ = do(t, signedRequest(t, http.MethodHead, ts.URL+"/testbucket/hello.txt", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "5", resp.Header.Get("Content-Length"))

	resp, _ = do(t, signedRequest(t, http.MethodDelete, ts.URL+"/testbucket/hello.txt", nil))
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = do(t, signedRequest(t, http.MethodGet, ts.URL+"/testbucket/hello.txt", nil))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	requireErrorCode(t, body, "NoSuchKey")
}

func TestListBuckets(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := do(t, signedRequest(t, http.MethodPut, ts.URL+"/alpha", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = do(t, signedRequest(t, http.MethodPut, ts.URL+"/beta", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, signedRequest(t, http.MethodGet, ts.URL+"/", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result ListAllMyBucketsResult
	require.NoError(t, xml.Unmarshal(body, &result))
	require.Len(t, result.Buckets.Bucket, 2)
	require.Equal(t, "alpha", result.Buckets.Bucket[0].Name)
	require.Equal(t, "beta", result.Buckets.Bucket[1].Name)
}

func TestListObjectsV1AndV2(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := do(t, signedRequest(t, http.MethodPut, ts.URL+"/bkt", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, key := range []string{"a", "b", "c"} {
		resp, _ := do(t, signedRequest(t, http.MethodPut, ts.URL+"/bkt/"+key, []byte(key)))
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	t.Run("v1", func(t *testing.T) {
		resp, body := do(t, signedRequest(t, http.MethodGet, ts.URL+"/bkt?max-keys=2", nil))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, string(body), "<ListBucketResult>")

		var result ListBucketResult
		require.NoError(t, xml.Unmarshal(body, &result))
		require.Len(t, result.Contents, 2)
		require.True(t, result.IsTruncated)
		require.Equal(t, "c", result.NextMarker)

		// Resuming with the returned marker yields the remaining keys,
		// starting at the marker key itself.
		resp, body = do(t, signedRequest(t, http.MethodGet, ts.URL+"/bkt?max-keys=2&marker="+result.NextMarker, nil))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		// xml.Unmarshal appends to a non-empty slice, so reset before reuse.
		result = ListBucketResult{}
		require.NoError(t, xml.Unmarshal(body, &result))
		require.Len(t, result.Contents, 1)
		require.Equal(t, "c", result.Contents[0].Key)
		require.False(t, result.IsTruncated)
	})

	t.Run("v2", func(t *testing.T) {
		resp, body := do(t, signedRequest(t, http.MethodGet, ts.URL+"/bkt?list-type=2", nil))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, string(body), "<ListBucketV2Result>")

		var result ListBucketV2Result
		require.NoError(t, xml.Unmarshal(body, &result))
		require.Equal(t, 3, result.KeyCount)
		require.Len(t, result.Contents, 3)
		require.False(t, result.IsTruncated)
	})
}

func TestBucketErrors(t *testing.T) {
	ts := newTestServer(t)

	resp, body := do(t, signedRequest(t, http.MethodGet, ts.URL+"/missing", nil))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	requireErrorCode(t, body, "NoSuchBucket")

	// Object operations against a missing bucket report the bucket,
	// not the key.
	resp, body = do(t, signedRequest(t, http.MethodGet, ts.URL+"/missing/key", nil))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	requireErrorCode(t, body, "NoSuchBucket")

	resp, _ = do(t, signedRequest(t, http.MethodPut, ts.URL+"/dup", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = do(t, signedRequest(t, http.MethodPut, ts.URL+"/dup", nil))
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	requireErrorCode(t, body, "BucketAlreadyExists")

	resp, _ = do(t, signedRequest(t, http.MethodPut, ts.URL+"/dup/obj", []byte("x")))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = do(t, signedRequest(t, http.MethodDelete, ts.URL+"/dup", nil))
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	requireErrorCode(t, body, "BucketNotEmpty")
}

func TestHeadBucket(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := do(t, signedRequest(t, http.MethodHead, ts.URL+"/nope", nil))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, signedRequest(t, http.MethodPut, ts.URL+"/yep", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = do(t, signedRequest(t, http.MethodHead, ts.URL+"/yep", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthFailures(t *testing.T) {
	ts := newTestServer(t)

	t.Run("anonymous", func(t *testing.T) {
		r, err := http.NewRequest(http.MethodGet, ts.URL+"/", nil)
		require.NoError(t, err)
		resp, body := do(t, r)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		requireErrorCode(t, body, "InvalidAccessKeyId")
	})

	t.Run("tampered signature", func(t *testing.T) {
		r := signedRequest(t, http.MethodGet, ts.URL+"/", nil)
		header := r.Header.Get(auth.AuthorizationHeader)
		r.Header.Set(auth.AuthorizationHeader, strings.Replace(header, "Signature=", "Signature=0", 1)[:len(header)])
		resp, body := do(t, r)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		requireErrorCode(t, body, "XAmzContentSHA256Mismatch")
	})

	t.Run("options needs no auth", func(t *testing.T) {
		r, err := http.NewRequest(http.MethodOptions, ts.URL+"/bucket/key", nil)
		require.NoError(t, err)
		resp, _ := do(t, r)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("health needs no auth", func(t *testing.T) {
		r, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
		require.NoError(t, err)
		resp, body := do(t, r)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, string(body), "healthy")
	})
}

func TestMultipartFlow(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := do(t, signedRequest(t, http.MethodPut, ts.URL+"/bkt", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, signedRequest(t, http.MethodPost, ts.URL+"/bkt/big.bin?uploads", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var initiated InitiateMultipartUploadResult
	require.NoError(t, xml.Unmarshal(body, &initiated))
	require.NotEmpty(t, initiated.UploadID)
	uploadID := url.QueryEscape(initiated.UploadID)

	for i, data := range []string{"part-one-", "part-two"} {
		u := fmt.Sprintf("%s/bkt/big.bin?uploadId=%s&partNumber=%d", ts.URL, uploadID, i+1)
		resp, _ := do(t, signedRequest(t, http.MethodPut, u, []byte(data)))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotEmpty(t, resp.Header.Get("ETag"))
	}

	resp, body = do(t, signedRequest(t, http.MethodPost, ts.URL+"/bkt/big.bin?uploadId="+uploadID, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var completed CompleteMultipartUploadResult
	require.NoError(t, xml.Unmarshal(body, &completed))
	require.True(t, strings.HasSuffix(completed.ETag, `-2"`), "etag %q", completed.ETag)

	resp, body = do(t, signedRequest(t, http.MethodGet, ts.URL+"/bkt/big.bin", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "part-one-part-two", string(body))

	// The session is gone once completed.
	resp, body = do(t, signedRequest(t, http.MethodPost, ts.URL+"/bkt/big.bin?uploadId="+uploadID, nil))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	requireErrorCode(t, body, "NoSuchUpload")
}

func TestMultipartAbort(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := do(t, signedRequest(t, http.MethodPut, ts.URL+"/bkt", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, signedRequest(t, http.MethodPost, ts.URL+"/bkt/tmp.bin?uploads", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var initiated InitiateMultipartUploadResult
	require.NoError(t, xml.Unmarshal(body, &initiated))

	u := ts.URL + "/bkt/tmp.bin?uploadId=" + url.QueryEscape(initiated.UploadID)
	resp, _ = do(t, signedRequest(t, http.MethodDelete, u, nil))
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = do(t, signedRequest(t, http.MethodGet, ts.URL+"/bkt/tmp.bin", nil))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	requireErrorCode(t, body, "NoSuchKey")
}

func TestCopyObject(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := do(t, signedRequest(t, http.MethodPut, ts.URL+"/bkt", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = do(t, signedRequest(t, http.MethodPut, ts.URL+"/bkt/src", []byte("copy me")))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	r := signedRequest(t, http.MethodPut, ts.URL+"/bkt/dst", nil)
	r.Header.Set("x-amz-copy-source", "/bkt/src")
	resp, body := do(t, r)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result CopyObjectResult
	require.NoError(t, xml.Unmarshal(body, &result))
	require.NotEmpty(t, result.ETag)

	resp, body = do(t, signedRequest(t, http.MethodGet, ts.URL+"/bkt/dst", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "copy me", string(body))
}

func TestPresignedURLEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := do(t, signedRequest(t, http.MethodPut, ts.URL+"/bkt", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = do(t, signedRequest(t, http.MethodPut, ts.URL+"/bkt/secret.txt", []byte("presigned")))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	form := url.Values{}
	form.Set("method", "GET")
	form.Set("path", "/bkt/secret.txt")
	form.Set("accessKey", testAccessKey)
	form.Set("expiration", "600")
	payload := []byte(form.Encode())

	r := signedRequest(t, http.MethodPost, ts.URL+"/?presigned-url", payload)
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, body := do(t, r)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	signedURL := string(body)
	require.Contains(t, signedURL, "X-Amz-Signature=")

	// The returned URL works without any further credentials.
	plain, err := http.NewRequest(http.MethodGet, signedURL, nil)
	require.NoError(t, err)
	resp, body = do(t, plain)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "presigned", string(body))
}

func TestDeleteObjectsBatch(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := do(t, signedRequest(t, http.MethodPut, ts.URL+"/bkt", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, key := range []string{"one", "two"} {
		resp, _ := do(t, signedRequest(t, http.MethodPut, ts.URL+"/bkt/"+key, []byte(key)))
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	payload := []byte(`<Delete><Object><Key>one</Key></Object><Object><Key>two</Key></Object><Object><Key>never-existed</Key></Object></Delete>`)
	resp, body := do(t, signedRequest(t, http.MethodPost, ts.URL+"/bkt?delete", payload))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result DeleteResult
	require.NoError(t, xml.Unmarshal(body, &result))
	require.Len(t, result.Deleted, 3)
	require.Empty(t, result.Error)

	resp, body = do(t, signedRequest(t, http.MethodGet, ts.URL+"/bkt/one", nil))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	requireErrorCode(t, body, "NoSuchKey")

	t.Run("malformed body", func(t *testing.T) {
		resp, body := do(t, signedRequest(t, http.MethodPost, ts.URL+"/bkt?delete", []byte("<Delete><Object>")))
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		requireErrorCode(t, body, "MalformedXML")
	})
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	resp, body := do(t, signedRequest(t, http.MethodDelete, ts.URL+"/", nil))
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	requireErrorCode(t, body, "MethodNotAllowed")
}
