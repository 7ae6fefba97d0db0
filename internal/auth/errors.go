// Package auth provides AWS Signature Version 4 authentication for Tide Storage.
package auth

import "errors"

// Authentication and signature errors.
var (
	// ErrMissingAccessKey indicates no access key could be extracted from the request.
	ErrMissingAccessKey = errors.New("no access key in request")

	// ErrInvalidAccessKeyID indicates the access key ID is not found in the credential store.
	ErrInvalidAccessKeyID = errors.New("the access key ID you provided does not exist in our records")

	// ErrInvalidAuthorizationHeader indicates the Authorization header is malformed.
	ErrInvalidAuthorizationHeader = errors.New("invalid authorization header")

	// ErrInvalidPresignedURL indicates the presigned URL is malformed or invalid.
	ErrInvalidPresignedURL = errors.New("invalid presigned URL")

	// ErrScopeMismatch indicates the credential scope region or service does not
	// match the resolved credential.
	ErrScopeMismatch = errors.New("credential scope does not match")

	// ErrPresignedURLExpired indicates the presigned URL has expired.
	ErrPresignedURLExpired = errors.New("request has expired")

	// ErrSignatureDoesNotMatch indicates the calculated signature doesn't match.
	ErrSignatureDoesNotMatch = errors.New("the request signature we calculated does not match the signature you provided")
)
