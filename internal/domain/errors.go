// Package domain contains the core business entities for Tide Storage.
package domain

import "errors"

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (filesystem, network, etc.).

var (
	// ===========================================
	// Bucket Errors
	// ===========================================

	// ErrBucketNotFound indicates the requested bucket does not exist.
	ErrBucketNotFound = errors.New("the specified bucket does not exist")

	// ErrBucketAlreadyExists indicates a bucket with the same name exists.
	ErrBucketAlreadyExists = errors.New("the requested bucket name is not available")

	// ErrBucketNotEmpty indicates the bucket contains objects and cannot be deleted.
	ErrBucketNotEmpty = errors.New("the bucket you tried to delete is not empty")

	// ===========================================
	// Object Errors
	// ===========================================

	// ErrObjectNotFound indicates the requested object does not exist.
	ErrObjectNotFound = errors.New("the specified key does not exist")

	// ===========================================
	// Multipart Upload Errors
	// ===========================================

	// ErrUploadNotFound indicates the upload ID was never issued or is terminal.
	ErrUploadNotFound = errors.New("the specified multipart upload does not exist")

	// ErrInvalidPartNumber indicates the part number is not a positive integer.
	ErrInvalidPartNumber = errors.New("part number must be a positive integer")

	// ===========================================
	// Request Errors
	// ===========================================

	// ErrInvalidRequest indicates malformed request parameters.
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrInternal indicates an unexpected failure while processing a request.
	ErrInternal = errors.New("internal error")
)
