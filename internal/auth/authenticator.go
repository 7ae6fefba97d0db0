package auth

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tidecloud/tide-storage/internal/credential"
)

// Authenticator verifies AWS v4 request signatures against a credential
// store and generates presigned URLs.
type Authenticator struct {
	creds  credential.Store
	region string
	logger zerolog.Logger
	now    func() time.Time
}

// NewAuthenticator creates an Authenticator backed by the given
// credential store. Requests signed for a different region or service
// are rejected.
func NewAuthenticator(creds credential.Store, region string, logger zerolog.Logger) *Authenticator {
	return &Authenticator{
		creds:  creds,
		region: region,
		logger: logger.With().Str("service", "auth").Logger(),
		now:    time.Now,
	}
}

// Authenticate verifies the request signature. The payload must contain
// the full request body, which the caller is expected to have buffered.
func (a *Authenticator) Authenticate(r *http.Request, payload []byte) error {
	switch GetAuthType(r) {
	case AuthTypeSignedV4:
		return a.verifySignedHeader(r, payload)
	case AuthTypePresignedV4:
		return a.verifyPresigned(r)
	case AuthTypeAnonymous:
		return ErrMissingAccessKey
	default:
		return ErrInvalidAuthorizationHeader
	}
}

// Credentials returns the stored credentials for the request's access key.
func (a *Authenticator) Credentials(r *http.Request) (credential.Credentials, error) {
	accessKey, ok := ExtractAccessKey(r)
	if !ok {
		return credential.Credentials{}, ErrMissingAccessKey
	}
	creds, ok := a.creds.Lookup(accessKey)
	if !ok {
		return credential.Credentials{}, ErrInvalidAccessKeyID
	}
	return creds, nil
}

func (a *Authenticator) verifySignedHeader(r *http.Request, payload []byte) error {
	signedValues, err := ParseSignV4(r.Header.Get(AuthorizationHeader))
	if err != nil {
		return err
	}

	creds, ok := a.creds.Lookup(signedValues.Credential.AccessKey)
	if !ok {
		a.logger.Warn().Str("access_key", signedValues.Credential.AccessKey).Msg("unknown access key")
		return ErrInvalidAccessKeyID
	}

	if err := a.validateScope(signedValues.Credential.Scope, creds); err != nil {
		return err
	}

	amzDate := r.Header.Get(XAmzDateHeader)
	if amzDate == "" {
		return fmt.Errorf("%w: missing %s header", ErrInvalidAuthorizationHeader, XAmzDateHeader)
	}

	payloadHash := PayloadHash(r, payload)
	canonicalRequest := CanonicalRequest(r, signedValues.SignedHeaders, payloadHash)
	stringToSign := StringToSign(amzDate, signedValues.Credential.Scope, canonicalRequest)
	signingKey := SigningKey(creds.SecretKey, signedValues.Credential.Scope.DateStamp, signedValues.Credential.Scope.Region, signedValues.Credential.Scope.Service)
	calculated := Sign(signingKey, stringToSign)

	if !SignaturesEqual(calculated, signedValues.Signature) {
		a.logger.Debug().
			Str("access_key", signedValues.Credential.AccessKey).
			Str("canonical_request", canonicalRequest).
			Msg("signature mismatch")
		return ErrSignatureDoesNotMatch
	}
	return nil
}

func (a *Authenticator) verifyPresigned(r *http.Request) error {
	query := r.URL.Query()

	signedValues, expires, err := ParsePresignedV4(query)
	if err != nil {
		return err
	}

	creds, ok := a.creds.Lookup(signedValues.Credential.AccessKey)
	if !ok {
		a.logger.Warn().Str("access_key", signedValues.Credential.AccessKey).Msg("unknown access key")
		return ErrInvalidAccessKeyID
	}

	if err := a.validateScope(signedValues.Credential.Scope, creds); err != nil {
		return err
	}

	amzDate := query.Get(XAmzDateHeader)
	if amzDate == "" {
		return fmt.Errorf("%w: missing date", ErrInvalidPresignedURL)
	}
	signedAt, err := time.Parse(ISO8601BasicFormat, amzDate)
	if err != nil {
		return fmt.Errorf("%w: invalid date", ErrInvalidPresignedURL)
	}
	if a.now().After(signedAt.Add(time.Duration(expires) * time.Second)) {
		return ErrPresignedURLExpired
	}

	// Objects uploaded through a presigned URL are signed as GET;
	// clients issue the actual upload with PUT.
	method := r.Method
	if method == http.MethodPut {
		method = http.MethodGet
	}

	// Server-side request URLs carry only the path; fill in the
	// authority so the host header canonicalizes like it did at
	// generation time.
	u := *r.URL
	if u.Host == "" {
		u.Host = r.Host
	}
	if u.Scheme == "" {
		u.Scheme = "http"
		if r.TLS != nil {
			u.Scheme = "https"
		}
	}

	canonicalRequest := PresignedCanonicalRequest(method, &u, query, signedValues.SignedHeaders)
	stringToSign := StringToSign(amzDate, signedValues.Credential.Scope, canonicalRequest)
	signingKey := SigningKey(creds.SecretKey, signedValues.Credential.Scope.DateStamp, signedValues.Credential.Scope.Region, signedValues.Credential.Scope.Service)
	calculated := Sign(signingKey, stringToSign)

	if !SignaturesEqual(calculated, signedValues.Signature) {
		a.logger.Debug().
			Str("access_key", signedValues.Credential.AccessKey).
			Str("canonical_request", canonicalRequest).
			Msg("presigned signature mismatch")
		return ErrSignatureDoesNotMatch
	}
	return nil
}

// VerifyPolicy checks a browser upload policy signature. The string to
// sign is the Base64 policy document itself.
func (a *Authenticator) VerifyPolicy(credentialStr, policy, signature string) error {
	parts := strings.Split(credentialStr, "/")
	if len(parts) != 5 || parts[4] != AWS4Request {
		return fmt.Errorf("%w: invalid credential format", ErrInvalidAuthorizationHeader)
	}
	scope := CredentialScope{DateStamp: parts[1], Region: parts[2], Service: parts[3]}

	creds, ok := a.creds.Lookup(parts[0])
	if !ok {
		return ErrInvalidAccessKeyID
	}
	if err := a.validateScope(scope, creds); err != nil {
		return err
	}

	signingKey := SigningKey(creds.SecretKey, scope.DateStamp, scope.Region, scope.Service)
	calculated := Sign(signingKey, policy)
	if !SignaturesEqual(calculated, signature) {
		return ErrSignatureDoesNotMatch
	}
	return nil
}

// validateScope checks the scope against the region the credential is
// bound to. Credentials without an explicit region fall back to the
// server region.
func (a *Authenticator) validateScope(scope CredentialScope, creds credential.Credentials) error {
	region := creds.Region
	if region == "" {
		region = a.region
	}
	if scope.Region != region || scope.Service != ServiceS3 {
		return fmt.Errorf("%w: got %s/%s, want %s/%s", ErrScopeMismatch, scope.Region, scope.Service, region, ServiceS3)
	}
	return nil
}

// =============================================================================
// Presigned URL Generation
// =============================================================================

// PresignURLInput describes a presigned URL to generate.
type PresignURLInput struct {
	Method    string
	Path      string
	AccessKey string
	Expires   int64
	Host      string
	Scheme    string
}

// PresignURL builds a presigned URL for the given method and path.
// The returned URL verifies under the same rules verifyPresigned applies.
func (a *Authenticator) PresignURL(input PresignURLInput) (string, error) {
	creds, ok := a.creds.Lookup(input.AccessKey)
	if !ok {
		return "", ErrInvalidAccessKeyID
	}

	now := a.now().UTC()
	amzDate := now.Format(ISO8601BasicFormat)
	scope := CredentialScope{
		DateStamp: now.Format(YYYYMMDD),
		Region:    creds.Region,
		Service:   ServiceS3,
	}

	query := url.Values{}
	query.Set(XAmzAlgorithmHeader, SignV4Algorithm)
	query.Set(XAmzCredentialHeader, input.AccessKey+"/"+scope.String())
	query.Set(XAmzDateHeader, amzDate)
	query.Set(XAmzExpiresHeader, strconv.FormatInt(input.Expires, 10))
	query.Set(XAmzSignedHeadersHeader, "host")

	u := &url.URL{
		Scheme: input.Scheme,
		Host:   input.Host,
		Path:   input.Path,
	}

	canonicalRequest := PresignedCanonicalRequest(input.Method, u, query, []string{"host"})
	stringToSign := StringToSign(amzDate, scope, canonicalRequest)
	signingKey := SigningKey(creds.SecretKey, scope.DateStamp, scope.Region, scope.Service)
	signature := Sign(signingKey, stringToSign)

	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pairs []string
	for _, k := range keys {
		pairs = append(pairs, uriEncode(k)+"="+uriEncode(query.Get(k)))
	}
	pairs = append(pairs, XAmzSignatureHeader+"="+signature)

	u.RawQuery = strings.Join(pairs, "&")
	return u.String(), nil
}
