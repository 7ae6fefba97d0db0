// Package auth provides AWS Signature Version 4 authentication for Tide Storage.
package auth

// =============================================================================
// Credential Types
// =============================================================================

// CredentialScope represents the scope portion of AWS credentials.
// Format: {date}/{region}/{service}/aws4_request
type CredentialScope struct {
	// DateStamp is the date portion of the scope (YYYYMMDD).
	DateStamp string

	// Region is the AWS region (e.g., "us-east-1").
	Region string

	// Service is the AWS service; only "s3" is accepted.
	Service string
}

// String returns the credential scope as a string.
func (cs CredentialScope) String() string {
	return cs.DateStamp + "/" + cs.Region + "/" + cs.Service + "/" + AWS4Request
}

// CredentialHeader represents parsed AWS credentials from a request.
type CredentialHeader struct {
	// AccessKey is the access key ID.
	AccessKey string

	// Scope is the credential scope.
	Scope CredentialScope
}

// String returns the credential as a string.
// Format: {access_key}/{scope}
func (ch CredentialHeader) String() string {
	return ch.AccessKey + "/" + ch.Scope.String()
}

// =============================================================================
// Signature Types
// =============================================================================

// SignedValues represents the signature components parsed from either the
// Authorization header or presigned query parameters.
type SignedValues struct {
	// Credential contains the access key and scope.
	Credential CredentialHeader

	// SignedHeaders is the list of headers included in the signature.
	SignedHeaders []string

	// Signature is the provided signature (hex-encoded).
	Signature string
}

// AuthType represents the type of authentication used in a request.
type AuthType int

const (
	// AuthTypeUnknown indicates an unrecognized auth type.
	AuthTypeUnknown AuthType = iota

	// AuthTypeAnonymous indicates no authentication material at all.
	AuthTypeAnonymous

	// AuthTypeSignedV4 indicates AWS Signature Version 4 in the Authorization header.
	AuthTypeSignedV4

	// AuthTypePresignedV4 indicates AWS Signature Version 4 in query parameters.
	AuthTypePresignedV4
)

// String returns the string representation of the auth type.
func (at AuthType) String() string {
	switch at {
	case AuthTypeAnonymous:
		return "Anonymous"
	case AuthTypeSignedV4:
		return "SignedV4"
	case AuthTypePresignedV4:
		return "PresignedV4"
	default:
		return "Unknown"
	}
}
