package service

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tidecloud/tide-storage/internal/auth"
	"github.com/tidecloud/tide-storage/internal/domain"
)

// PresignService generates presigned URLs for object access.
type PresignService struct {
	authenticator *auth.Authenticator
	defaultExpiry int64
	logger        zerolog.Logger
}

// NewPresignService creates a new PresignService. defaultExpiry is the
// validity window in seconds applied when a request does not specify one.
func NewPresignService(authenticator *auth.Authenticator, defaultExpiry int64, logger zerolog.Logger) *PresignService {
	return &PresignService{
		authenticator: authenticator,
		defaultExpiry: defaultExpiry,
		logger:        logger.With().Str("service", "presign").Logger(),
	}
}

// GeneratePresignedURLInput describes a presigned URL request.
type GeneratePresignedURLInput struct {
	Method    string
	Path      string
	AccessKey string
	Expires   int64
	Host      string
	Scheme    string
}

// GeneratePresignedURL validates the request and builds a signed URL.
func (s *PresignService) GeneratePresignedURL(input GeneratePresignedURLInput) (string, error) {
	method := strings.ToUpper(input.Method)
	switch method {
	case http.MethodGet, http.MethodPut, http.MethodHead, http.MethodDelete:
	default:
		return "", fmt.Errorf("%w: unsupported method %q", domain.ErrInvalidRequest, input.Method)
	}

	if input.Path == "" || input.Path == "/" {
		return "", fmt.Errorf("%w: missing object path", domain.ErrInvalidRequest)
	}
	if !strings.HasPrefix(input.Path, "/") {
		input.Path = "/" + input.Path
	}

	expires := input.Expires
	if expires <= 0 {
		expires = s.defaultExpiry
	}

	signed, err := s.authenticator.PresignURL(auth.PresignURLInput{
		Method:    method,
		Path:      input.Path,
		AccessKey: input.AccessKey,
		Expires:   expires,
		Host:      input.Host,
		Scheme:    input.Scheme,
	})
	if err != nil {
		return "", err
	}

	s.logger.Debug().
		Str("method", method).
		Str("path", input.Path).
		Int64("expires", expires).
		Msg("presigned url generated")
	return signed, nil
}
