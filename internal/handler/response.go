package handler

import (
	"encoding/xml"
	"errors"
	"net/http"

	"github.com/tidecloud/tide-storage/internal/auth"
	"github.com/tidecloud/tide-storage/internal/domain"
)

// errorMessages maps S3 error codes to their canonical messages.
var errorMessages = map[string]string{
	"InvalidAccessKeyId":        "The AWS access key ID that you provided does not exist in our records.",
	"SignatureDoesNotMatch":     "The request signature that the server calculated does not match the signature that you provided.",
	"XAmzContentSHA256Mismatch": "The provided 'x-amz-content-sha256' header does not match what was computed.",
	"AccessDenied":              "Access Denied.",
	"NoSuchBucket":              "The specified bucket does not exist.",
	"NoSuchKey":                 "The specified key does not exist.",
	"NoSuchUpload":              "The specified multipart upload does not exist. The upload ID might be invalid, or the multipart upload might have been aborted or completed.",
	"BucketAlreadyExists":       "The requested bucket name is not available. The bucket namespace is shared by all users of the system. Select a different name and try again.",
	"BucketNotEmpty":            "The bucket that you tried to delete is not empty.",
	"InvalidRequest":            "Invalid Request.",
	"MalformedXML":              "The XML you provided was not well-formed or did not validate against our published schema.",
	"InvalidPart":               "One or more of the specified parts could not be found. The part might not have been uploaded, or the specified ETag might not have matched the uploaded part's ETag.",
	"MissingParameter":          "A required parameter was missing.",
	"MethodNotAllowed":          "The specified method is not allowed against this resource.",
	"InternalError":             "An internal error occurred. Try again.",
}

// statusForCode maps S3 error codes to HTTP status codes.
var statusForCode = map[string]int{
	"InvalidAccessKeyId":        http.StatusForbidden,
	"SignatureDoesNotMatch":     http.StatusForbidden,
	"XAmzContentSHA256Mismatch": http.StatusForbidden,
	"AccessDenied":              http.StatusForbidden,
	"NoSuchBucket":              http.StatusNotFound,
	"NoSuchKey":                 http.StatusNotFound,
	"NoSuchUpload":              http.StatusNotFound,
	"BucketAlreadyExists":       http.StatusConflict,
	"BucketNotEmpty":            http.StatusConflict,
	"InvalidRequest":            http.StatusBadRequest,
	"MalformedXML":              http.StatusBadRequest,
	"InvalidPart":               http.StatusBadRequest,
	"MissingParameter":          http.StatusBadRequest,
	"MethodNotAllowed":          http.StatusMethodNotAllowed,
	"InternalError":             http.StatusInternalServerError,
}

// writeXML marshals v as the response body with an XML declaration.
func writeXML(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	w.Write([]byte(xml.Header))
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	enc.Encode(v)
}

// writeErrorCode sends the XML error body for an S3 error code.
func writeErrorCode(w http.ResponseWriter, code string) {
	status, ok := statusForCode[code]
	if !ok {
		status = http.StatusInternalServerError
		code = "InternalError"
	}
	writeXML(w, status, ErrorResponse{
		Code:    code,
		Message: errorMessages[code],
	})
}

// codeForError translates service and auth errors to S3 error codes.
func codeForError(err error) string {
	switch {
	case errors.Is(err, domain.ErrBucketNotFound):
		return "NoSuchBucket"
	case errors.Is(err, domain.ErrObjectNotFound):
		return "NoSuchKey"
	case errors.Is(err, domain.ErrUploadNotFound):
		return "NoSuchUpload"
	case errors.Is(err, domain.ErrBucketAlreadyExists):
		return "BucketAlreadyExists"
	case errors.Is(err, domain.ErrBucketNotEmpty):
		return "BucketNotEmpty"
	case errors.Is(err, domain.ErrInvalidPartNumber):
		return "InvalidPart"
	case errors.Is(err, domain.ErrInvalidRequest):
		return "InvalidRequest"
	case errors.Is(err, auth.ErrInvalidAccessKeyID), errors.Is(err, auth.ErrMissingAccessKey):
		return "InvalidAccessKeyId"
	case errors.Is(err, auth.ErrSignatureDoesNotMatch):
		return "SignatureDoesNotMatch"
	case errors.Is(err, auth.ErrPresignedURLExpired):
		return "AccessDenied"
	default:
		return "InternalError"
	}
}

// writeError translates an error and sends the XML error body.
func writeError(w http.ResponseWriter, err error) {
	writeErrorCode(w, codeForError(err))
}
