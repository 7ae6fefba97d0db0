// Package auth provides AWS Signature Version 4 authentication for Tide Storage.
// This implementation follows the AWS v4 signature specification for S3 compatibility.
package auth

// =============================================================================
// Constants
// =============================================================================

const (
	// SignV4Algorithm is the algorithm identifier for AWS Signature Version 4.
	SignV4Algorithm = "AWS4-HMAC-SHA256"

	// ISO8601BasicFormat is the timestamp format used in AWS v4 signatures.
	ISO8601BasicFormat = "20060102T150405Z"

	// YYYYMMDD is the short date format used in credential scope.
	YYYYMMDD = "20060102"

	// ServiceS3 is the only service name accepted in credential scope.
	ServiceS3 = "s3"

	// AWS4Request is the termination string for credential scope.
	AWS4Request = "aws4_request"
)

// =============================================================================
// Authorization Header Constants
// =============================================================================

const (
	// AuthorizationHeader is the HTTP header for authorization.
	AuthorizationHeader = "Authorization"

	// XAmzDateHeader is the AWS date header and query parameter.
	XAmzDateHeader = "X-Amz-Date"

	// XAmzContentSHA256Header is the content hash header.
	XAmzContentSHA256Header = "X-Amz-Content-Sha256"

	// XAmzAlgorithmHeader is the algorithm query parameter (presigned URLs).
	XAmzAlgorithmHeader = "X-Amz-Algorithm"

	// XAmzCredentialHeader is the credential query parameter (presigned URLs).
	XAmzCredentialHeader = "X-Amz-Credential"

	// XAmzExpiresHeader is the expiration query parameter (presigned URLs).
	XAmzExpiresHeader = "X-Amz-Expires"

	// XAmzSignedHeadersHeader is the signed headers query parameter.
	XAmzSignedHeadersHeader = "X-Amz-SignedHeaders"

	// XAmzSignatureHeader is the signature query parameter (presigned URLs).
	XAmzSignatureHeader = "X-Amz-Signature"
)

// =============================================================================
// Special Content Hash Values
// =============================================================================

const (
	// UnsignedPayload indicates the payload is not included in the signature.
	UnsignedPayload = "UNSIGNED-PAYLOAD"

	// EmptyStringSHA256 is the SHA-256 hash of an empty string.
	EmptyStringSHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
)
