// Package credential provides access-key lookup for request authentication.
// Credentials are loaded once at startup and held in a read-only mapping for
// the lifetime of the server.
package credential

// Credentials holds one access key and its signing material.
type Credentials struct {
	// AccessKey is the public identifier carried in requests.
	AccessKey string

	// SecretKey is the shared secret used to derive SigV4 signing keys.
	SecretKey string

	// Region is the single region this credential is scoped to.
	Region string
}

// Store resolves an access key to its credentials.
type Store interface {
	// Lookup returns the credentials for accessKey, or false when unknown.
	Lookup(accessKey string) (Credentials, bool)
}

// StaticStore is a Store backed by an immutable map.
type StaticStore struct {
	creds map[string]Credentials
}

// NewStaticStore builds a StaticStore from a credential list. Later entries
// with a duplicate access key replace earlier ones.
func NewStaticStore(creds []Credentials) *StaticStore {
	m := make(map[string]Credentials, len(creds))
	for _, c := range creds {
		m[c.AccessKey] = c
	}
	return &StaticStore{creds: m}
}

// Lookup implements Store.
func (s *StaticStore) Lookup(accessKey string) (Credentials, bool) {
	c, ok := s.creds[accessKey]
	return c, ok
}

var _ Store = (*StaticStore)(nil)
