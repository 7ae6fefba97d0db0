// Package etag computes object entity tags.
//
// Single-part tags are the base64 encoding of the MD5 digest of the
// object bytes, wrapped in double quotes. Multipart tags are the digest
// of the concatenated decoded part digests, suffixed with the part
// count. Computation never fails; unreadable input yields a fixed
// placeholder tag.
package etag

import (
	"crypto/md5"
	"encoding/base64"
	"io"
	"strconv"
)

// Fallback is returned when tag computation cannot complete.
const Fallback = `"dummy-etag"`

// FromBytes computes the entity tag for a complete object body.
func FromBytes(data []byte) string {
	sum := md5.Sum(data)
	return quote(base64.StdEncoding.EncodeToString(sum[:]))
}

// FromReader computes the entity tag by streaming the reader.
func FromReader(r io.Reader) string {
	h := md5.New()
	if _, err := io.Copy(h, r); err != nil {
		return Fallback
	}
	return quote(base64.StdEncoding.EncodeToString(h.Sum(nil)))
}

// Composite computes the multipart entity tag from the per-part tags in
// ascending part-number order. Each part tag is unquoted, base64-decoded
// and the raw digests are concatenated before hashing.
func Composite(partTags []string) string {
	h := md5.New()
	for _, tag := range partTags {
		digest, err := base64.StdEncoding.DecodeString(Unquote(tag))
		if err != nil {
			return Fallback
		}
		h.Write(digest)
	}
	return quote(base64.StdEncoding.EncodeToString(h.Sum(nil)) + "-" + strconv.Itoa(len(partTags)))
}

// Unquote strips surrounding double quotes from a tag if present.
func Unquote(tag string) string {
	if len(tag) >= 2 && tag[0] == '"' && tag[len(tag)-1] == '"' {
		return tag[1 : len(tag)-1]
	}
	return tag
}

func quote(s string) string {
	return `"` + s + `"`
}
