// Package auth provides AWS Signature Version 4 authentication for Tide Storage.
package auth

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// =============================================================================
// Authorization Header Parsing
// =============================================================================

// Regular expressions for parsing the AWS v4 authorization header.
var (
	// credentialRegex matches Credential=accessKey/date/region/service/aws4_request
	credentialRegex = regexp.MustCompile(`Credential=([^/,]+)/(\d{8})/([^/]+)/([^/,]+)/` + AWS4Request)

	// signedHeadersRegex matches SignedHeaders=header1;header2;header3
	signedHeadersRegex = regexp.MustCompile(`SignedHeaders=([^,\s]+)`)

	// signatureRegex matches Signature=hexstring
	signatureRegex = regexp.MustCompile(`Signature=([a-f0-9]{64})`)
)

// GetAuthType determines the authentication type carried by a request.
func GetAuthType(r *http.Request) AuthType {
	if authHeader := r.Header.Get(AuthorizationHeader); authHeader != "" {
		if strings.HasPrefix(authHeader, SignV4Algorithm) {
			return AuthTypeSignedV4
		}
		return AuthTypeUnknown
	}

	if r.URL.Query().Get(XAmzAlgorithmHeader) == SignV4Algorithm {
		return AuthTypePresignedV4
	}

	return AuthTypeAnonymous
}

// ExtractAccessKey pulls the access key from either auth path.
// Presigned requests carry it as the first "/"-delimited segment of
// X-Amz-Credential; header-based requests carry it in the Authorization
// header and must also present an X-Amz-Date header.
func ExtractAccessKey(r *http.Request) (string, bool) {
	if GetAuthType(r) == AuthTypePresignedV4 {
		credential := r.URL.Query().Get(XAmzCredentialHeader)
		if credential == "" {
			return "", false
		}
		return strings.SplitN(credential, "/", 2)[0], true
	}

	authHeader := r.Header.Get(AuthorizationHeader)
	if authHeader == "" || r.Header.Get(XAmzDateHeader) == "" {
		return "", false
	}
	match := credentialRegex.FindStringSubmatch(authHeader)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// ParseSignV4 parses an AWS v4 Authorization header.
// Format: AWS4-HMAC-SHA256 Credential=key/date/region/service/aws4_request, SignedHeaders=..., Signature=...
func ParseSignV4(authHeader string) (*SignedValues, error) {
	if !strings.HasPrefix(authHeader, SignV4Algorithm+" ") {
		return nil, ErrInvalidAuthorizationHeader
	}

	credentialMatch := credentialRegex.FindStringSubmatch(authHeader)
	if credentialMatch == nil {
		return nil, fmt.Errorf("%w: invalid credential format", ErrInvalidAuthorizationHeader)
	}

	signedHeadersMatch := signedHeadersRegex.FindStringSubmatch(authHeader)
	if signedHeadersMatch == nil {
		return nil, fmt.Errorf("%w: missing signed headers", ErrInvalidAuthorizationHeader)
	}
	signedHeaders := strings.Split(signedHeadersMatch[1], ";")

	signatureMatch := signatureRegex.FindStringSubmatch(authHeader)
	if signatureMatch == nil {
		return nil, fmt.Errorf("%w: missing or invalid signature", ErrInvalidAuthorizationHeader)
	}

	return &SignedValues{
		Credential: CredentialHeader{
			AccessKey: credentialMatch[1],
			Scope: CredentialScope{
				DateStamp: credentialMatch[2],
				Region:    credentialMatch[3],
				Service:   credentialMatch[4],
			},
		},
		SignedHeaders: signedHeaders,
		Signature:     signatureMatch[1],
	}, nil
}

// =============================================================================
// Presigned URL Parsing
// =============================================================================

// ParsePresignedV4 parses presigned URL query parameters.
// Returns the signed values plus the expiry window in seconds.
func ParsePresignedV4(query url.Values) (*SignedValues, int64, error) {
	if query.Get(XAmzAlgorithmHeader) != SignV4Algorithm {
		return nil, 0, ErrInvalidPresignedURL
	}

	credential := query.Get(XAmzCredentialHeader)
	if credential == "" {
		return nil, 0, fmt.Errorf("%w: missing credential", ErrInvalidPresignedURL)
	}
	parts := strings.Split(credential, "/")
	if len(parts) != 5 || parts[4] != AWS4Request {
		return nil, 0, fmt.Errorf("%w: invalid credential format", ErrInvalidPresignedURL)
	}

	signedHeadersStr := query.Get(XAmzSignedHeadersHeader)
	if signedHeadersStr == "" {
		return nil, 0, fmt.Errorf("%w: missing signed headers", ErrInvalidPresignedURL)
	}
	signedHeaders := strings.Split(signedHeadersStr, ";")

	signature := query.Get(XAmzSignatureHeader)
	if signature == "" {
		return nil, 0, fmt.Errorf("%w: missing signature", ErrInvalidPresignedURL)
	}

	expiresStr := query.Get(XAmzExpiresHeader)
	if expiresStr == "" {
		return nil, 0, fmt.Errorf("%w: missing expires", ErrInvalidPresignedURL)
	}
	expires, err := strconv.ParseInt(expiresStr, 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: invalid expires value", ErrInvalidPresignedURL)
	}

	return &SignedValues{
		Credential: CredentialHeader{
			AccessKey: parts[0],
			Scope: CredentialScope{
				DateStamp: parts[1],
				Region:    parts[2],
				Service:   parts[3],
			},
		},
		SignedHeaders: signedHeaders,
		Signature:     signature,
	}, expires, nil
}
