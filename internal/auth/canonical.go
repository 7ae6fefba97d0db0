// Package auth provides AWS Signature Version 4 authentication for Tide Storage.
package auth

import (
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// =============================================================================
// Canonical Request Building
// =============================================================================

// buildCanonicalRequest assembles the six canonical request components.
func buildCanonicalRequest(method, uri, queryString, headers, signedHeaders, payloadHash string) string {
	return method + "\n" +
		uri + "\n" +
		queryString + "\n" +
		headers + "\n" +
		signedHeaders + "\n" +
		payloadHash
}

// CanonicalRequest builds the canonical request string for header-based
// verification. Headers are filtered to the signed-header list from the
// Authorization header.
func CanonicalRequest(r *http.Request, signedHeaders []string, payloadHash string) string {
	return buildCanonicalRequest(
		r.Method,
		CanonicalURI(r.URL.Path),
		CanonicalQueryString(r.URL.Query()),
		canonicalRequestHeaders(r, signedHeaders),
		strings.Join(signedHeaders, ";"),
		payloadHash,
	)
}

// PresignedCanonicalRequest builds the canonical request for a presigned URL.
// The query string excludes X-Amz-Signature; canonical headers are limited to
// the declared signed-header set, with host derived from the URL authority.
func PresignedCanonicalRequest(method string, u *url.URL, query url.Values, signedHeaders []string) string {
	var headers strings.Builder
	for _, name := range signedHeaders {
		lower := strings.ToLower(name)
		var value string
		if lower == "host" {
			value = canonicalHost(u)
		} else {
			value = strings.TrimSpace(query.Get("X-Amz-" + name))
		}
		headers.WriteString(lower)
		headers.WriteString(":")
		headers.WriteString(value)
		headers.WriteString("\n")
	}

	return buildCanonicalRequest(
		method,
		CanonicalURI(u.Path),
		CanonicalQueryString(query),
		headers.String(),
		strings.Join(signedHeaders, ";"),
		UnsignedPayload,
	)
}

// CanonicalURI returns the request path, guaranteed to start with "/".
func CanonicalURI(path string) string {
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		return "/" + path
	}
	return path
}

// CanonicalQueryString returns the sorted, URI-encoded query string.
// X-Amz-Signature is always excluded since the signature cannot sign itself.
func CanonicalQueryString(query url.Values) string {
	if len(query) == 0 {
		return ""
	}

	pairs := make([]string, 0, len(query))
	for key, values := range query {
		if key == XAmzSignatureHeader {
			continue
		}
		encKey := uriEncode(key)
		sorted := make([]string, len(values))
		copy(sorted, values)
		sort.Strings(sorted)
		for _, value := range sorted {
			pairs = append(pairs, encKey+"="+uriEncode(value))
		}
	}
	sort.Strings(pairs)

	return strings.Join(pairs, "&")
}

// canonicalRequestHeaders builds the canonical headers string from the actual
// request, restricted to the signed-header list.
//
// Accept-Encoding is always canonicalized to "identity": intermediary proxies
// rewrite this header in flight, so the value the client signed cannot be
// trusted to survive.
func canonicalRequestHeaders(r *http.Request, signedHeaders []string) string {
	var canonical strings.Builder

	for _, name := range signedHeaders {
		lower := strings.ToLower(name)

		var value string
		switch lower {
		case "host":
			value = r.Host
		case "accept-encoding":
			value = "identity"
		case "content-length":
			value = r.Header.Get(name)
			if value == "" && r.ContentLength >= 0 {
				value = strconv.FormatInt(r.ContentLength, 10)
			}
		default:
			value = r.Header.Get(name)
		}

		value = strings.TrimSpace(value)
		value = strings.Join(strings.Fields(value), " ")

		canonical.WriteString(lower)
		canonical.WriteString(":")
		canonical.WriteString(value)
		canonical.WriteString("\n")
	}

	return canonical.String()
}

// canonicalHost returns the lower-cased URL authority, with the port kept
// only when it is not the scheme default.
func canonicalHost(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == "" {
		return host
	}
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		return host
	}
	return host + ":" + port
}

// uriEncode percent-encodes value per RFC 3986 as AWS requires:
// spaces become %20 and "~" stays unescaped.
func uriEncode(value string) string {
	encoded := url.QueryEscape(value)
	encoded = strings.ReplaceAll(encoded, "+", "%20")
	encoded = strings.ReplaceAll(encoded, "%7E", "~")
	return encoded
}

// =============================================================================
// Payload Hash Resolution
// =============================================================================

// PayloadHash resolves the payload-hash token for a request: the client's
// UNSIGNED-PAYLOAD declaration wins, then the SHA-256 of the actual body,
// then the well-known empty-body hash.
func PayloadHash(r *http.Request, payload []byte) string {
	if r.Header.Get(XAmzContentSHA256Header) == UnsignedPayload {
		return UnsignedPayload
	}
	if len(payload) > 0 {
		return sha256Hex(payload)
	}
	return EmptyStringSHA256
}
