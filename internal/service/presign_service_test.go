package service

import (
	"net/url"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tidecloud/tide-storage/internal/auth"
	"github.com/tidecloud/tide-storage/internal/credential"
	"github.com/tidecloud/tide-storage/internal/domain"
)

func newPresignFixture(t *testing.T) *PresignService {
	t.Helper()
	store := credential.NewStaticStore([]credential.Credentials{
		{AccessKey: "AKIDEXAMPLE", SecretKey: "secret", Region: "us-east-1"},
	})
	authenticator := auth.NewAuthenticator(store, "us-east-1", zerolog.Nop())
	return NewPresignService(authenticator, 900, zerolog.Nop())
}

func TestGeneratePresignedURL(t *testing.T) {
	svc := newPresignFixture(t)

	signed, err := svc.GeneratePresignedURL(GeneratePresignedURLInput{
		Method:    "get",
		Path:      "bkt/file.txt",
		AccessKey: "AKIDEXAMPLE",
		Host:      "localhost:9000",
		Scheme:    "http",
	})
	require.NoError(t, err)

	u, err := url.Parse(signed)
	require.NoError(t, err)
	require.Equal(t, "http", u.Scheme)
	require.Equal(t, "localhost:9000", u.Host)
	require.Equal(t, "/bkt/file.txt", u.Path)

	query := u.Query()
	require.Equal(t, auth.SignV4Algorithm, query.Get("X-Amz-Algorithm"))
	require.NotEmpty(t, query.Get("X-Amz-Signature"))

	// Default expiry applies when none is given.
	expires, err := strconv.ParseInt(query.Get("X-Amz-Expires"), 10, 64)
	require.NoError(t, err)
	require.Equal(t, int64(900), expires)
}

func TestGeneratePresignedURL_Invalid(t *testing.T) {
	svc := newPresignFixture(t)

	tests := []struct {
		name  string
		input GeneratePresignedURLInput
	}{
		{
			name: "unsupported method",
			input: GeneratePresignedURLInput{
				Method: "PATCH", Path: "/bkt/k", AccessKey: "AKIDEXAMPLE",
				Host: "localhost:9000", Scheme: "http",
			},
		},
		{
			name: "missing path",
			input: GeneratePresignedURLInput{
				Method: "GET", Path: "", AccessKey: "AKIDEXAMPLE",
				Host: "localhost:9000", Scheme: "http",
			},
		},
		{
			name: "root path",
			input: GeneratePresignedURLInput{
				Method: "GET", Path: "/", AccessKey: "AKIDEXAMPLE",
				Host: "localhost:9000", Scheme: "http",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GeneratePresignedURL(tt.input)
			require.ErrorIs(t, err, domain.ErrInvalidRequest)
		})
	}
}

func TestGeneratePresignedURL_UnknownAccessKey(t *testing.T) {
	svc := newPresignFixture(t)

	_, err := svc.GeneratePresignedURL(GeneratePresignedURLInput{
		Method: "GET", Path: "/bkt/k", AccessKey: "AKIDUNKNOWN",
		Host: "localhost:9000", Scheme: "http",
	})
	require.ErrorIs(t, err, auth.ErrInvalidAccessKeyID)
}
