// Package auth provides AWS Signature Version 4 authentication for Tide Storage.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// =============================================================================
// Signing Key Generation
// =============================================================================

// SigningKey derives the signing key for AWS v4 signatures.
// This implements the key derivation:
// HMAC(HMAC(HMAC(HMAC("AWS4"+secret, date), region), service), "aws4_request")
func SigningKey(secretKey, dateStamp, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), []byte(dateStamp))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(service))
	return hmacSHA256(kService, []byte(AWS4Request))
}

// Sign calculates the hex-encoded signature over stringToSign.
func Sign(signingKey []byte, stringToSign string) string {
	return hex.EncodeToString(hmacSHA256(signingKey, []byte(stringToSign)))
}

// hmacSHA256 computes HMAC-SHA256.
func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// =============================================================================
// String to Sign
// =============================================================================

// StringToSign builds the string to sign from the request timestamp, the
// credential scope and the canonical request.
func StringToSign(amzDate string, scope CredentialScope, canonicalRequest string) string {
	return SignV4Algorithm + "\n" +
		amzDate + "\n" +
		scope.String() + "\n" +
		sha256Hex([]byte(canonicalRequest))
}

// sha256Hex returns the hex-encoded SHA-256 digest of data.
func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// =============================================================================
// Signature Comparison
// =============================================================================

// SignaturesEqual compares a calculated and a provided signature.
// Uses a constant-time comparison as a hardening measure.
func SignaturesEqual(calculated, provided string) bool {
	return hmac.Equal([]byte(calculated), []byte(provided))
}
