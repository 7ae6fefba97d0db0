package etag

import (
	"bytes"
	"crypto/md5"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromBytes(t *testing.T) {
	// MD5("hello") = 5d41402abc4b2a76b9719d911017c592
	require.Equal(t, `"XUFAKrxLKna5cZ2REBfFkg=="`, FromBytes([]byte("hello")))
}

func TestFromBytes_Empty(t *testing.T) {
	sum := md5.Sum(nil)
	want := `"` + base64.StdEncoding.EncodeToString(sum[:]) + `"`
	require.Equal(t, want, FromBytes(nil))
}

func TestFromReader_MatchesFromBytes(t *testing.T) {
	data := []byte("some object body")
	require.Equal(t, FromBytes(data), FromReader(bytes.NewReader(data)))
}

func TestComposite(t *testing.T) {
	part1 := FromBytes([]byte("part one"))
	part2 := FromBytes([]byte("part two"))

	got := Composite([]string{part1, part2})

	require.True(t, strings.HasPrefix(got, `"`))
	require.True(t, strings.HasSuffix(got, `-2"`))

	// The composite digest covers the concatenated raw part digests.
	h := md5.New()
	for _, tag := range []string{part1, part2} {
		raw, err := base64.StdEncoding.DecodeString(Unquote(tag))
		require.NoError(t, err)
		h.Write(raw)
	}
	want := `"` + base64.StdEncoding.EncodeToString(h.Sum(nil)) + `-2"`
	require.Equal(t, want, got)
}

func TestComposite_OrderSensitive(t *testing.T) {
	a := FromBytes([]byte("a"))
	b := FromBytes([]byte("b"))
	require.NotEqual(t, Composite([]string{a, b}), Composite([]string{b, a}))
}

func TestComposite_InvalidPartTag(t *testing.T) {
	require.Equal(t, Fallback, Composite([]string{`"not base64!!"`}))
}

func TestUnquote(t *testing.T) {
	require.Equal(t, "abc", Unquote(`"abc"`))
	require.Equal(t, "abc", Unquote("abc"))
	require.Equal(t, `"`, Unquote(`"`))
}
