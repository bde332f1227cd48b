package http

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWWWAuthenticate(t *testing.T) {
	params := ParseWWWAuthenticate(`Digest realm="test realm", qop="auth,auth-int", nonce="abc", Opaque="xyz", algorithm=MD5`)

	assert.Equal(t, "test realm", params["realm"])
	assert.Equal(t, "auth,auth-int", params["qop"])
	assert.Equal(t, "abc", params["nonce"])
	assert.Equal(t, "xyz", params["opaque"])
	assert.Equal(t, "MD5", params["algorithm"])
}

func TestParseWWWAuthenticate_WithoutScheme(t *testing.T) {
	params := ParseWWWAuthenticate(`realm="r", nonce="n"`)

	assert.Equal(t, "r", params["realm"])
	assert.Equal(t, "n", params["nonce"])
}

func TestComputeDigestResponse_RFC2617(t *testing.T) {
	d := &DigestAuth{
		Username: "Mufasa",
		Password: "Circle Of Life",
		Realm:    "testrealm@host.com",
		Nonce:    "dcd98b7102dd2f0e8b11d0f600bfb0c093",
		URI:      "/dir/index.html",
		Qop:      "auth",
		Nc:       "00000001",
		Cnonce:   "0a4f113b",
		Method:   "GET",
	}

	assert.Equal(t, "6629fae49393a05397450978507c4ef1", d.ComputeDigestResponse())
}

func TestComputeDigestResponse_Algorithms(t *testing.T) {
	base := DigestAuth{
		Username: "u", Password: "p", Realm: "r", Nonce: "n",
		URI: "/", Qop: "auth", Nc: "00000001", Cnonce: "c", Method: "GET",
	}

	md5 := base
	sha := base
	sha.Algorithm = "SHA-256"
	sess := base
	sess.Algorithm = "MD5-sess"

	assert.Len(t, md5.ComputeDigestResponse(), 32)
	assert.Len(t, sha.ComputeDigestResponse(), 64)
	assert.NotEqual(t, md5.ComputeDigestResponse(), sess.ComputeDigestResponse())
}

func TestNewDigestAuth(t *testing.T) {
	params := map[string]string{"realm": "r", "nonce": "n", "qop": "auth-int, auth", "opaque": "o"}

	d, err := newDigestAuth(params, "user", "pass", "POST", "/x?y=1")
	require.NoError(t, err)

	assert.Equal(t, "auth", d.Qop)
	assert.Equal(t, "00000001", d.Nc)
	assert.Len(t, d.Cnonce, 16)

	header := d.BuildAuthorizationHeader()
	assert.True(t, strings.HasPrefix(header, "Digest "))
	assert.Contains(t, header, `username="user"`)
	assert.Contains(t, header, `uri="/x?y=1"`)
	assert.Contains(t, header, "qop=auth")
	assert.Contains(t, header, `opaque="o"`)
}

func TestNewDigestAuth_UnsupportedQop(t *testing.T) {
	_, err := newDigestAuth(map[string]string{"qop": "auth-int"}, "u", "p", "GET", "/")
	assert.Error(t, err)
	assert.False(t, digestSupported(map[string]string{"qop": "auth-int"}))
	assert.True(t, digestSupported(map[string]string{}))
}

func TestNewDigestAuth_WithoutQop(t *testing.T) {
	d, err := newDigestAuth(map[string]string{"realm": "r", "nonce": "n"}, "u", "p", "GET", "/")
	require.NoError(t, err)

	assert.Empty(t, d.Cnonce)
	assert.NotContains(t, d.BuildAuthorizationHeader(), "qop=")
}
