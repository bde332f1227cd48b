package http

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestBuilder_Defaults(t *testing.T) {
	b := NewRequestBuilder()

	assert.Equal(t, MethodGet, b.Method())
	assert.Equal(t, "GET", b.MethodName())
	assert.False(t, b.IsSSLVerify())
	assert.True(t, b.IsSafeUpload())
	assert.True(t, b.IsReturnTransfer())
	assert.True(t, b.IsNoSignal())
	assert.False(t, b.IsFailOnError())
	assert.True(t, b.IsFetchBody())
	assert.False(t, b.IsIncludeHeader())
	assert.True(t, b.IsFollowRedirects())
	assert.Equal(t, UnlimitedRedirects, b.MaxRedirects())
	assert.Equal(t, 0, b.ConnectTimeoutMs())
	assert.Equal(t, 0, b.TimeoutMs())
	assert.Equal(t, "", b.Encoding())
	assert.Equal(t, AuthBasic, b.HTTPAuthScheme())
	assert.Empty(t, b.Headers())
	assert.Empty(t, b.Cookies())
	assert.Empty(t, b.PostFields())
	assert.False(t, b.IsClosed())
}

func TestRequestBuilder_Chaining(t *testing.T) {
	b := NewRequestBuilder().
		SetURL("http://example.com").
		AddHeader("Accept", "text/plain").
		AddCookie("a", "1").
		EnableFailOnError().
		DisableFollowRedirects().
		SetMaxRedirects(3).
		SetTimeout(5)

	assert.Equal(t, "http://example.com", b.URL())
	assert.True(t, b.IsFailOnError())
	assert.False(t, b.IsFollowRedirects())
	assert.Equal(t, 3, b.MaxRedirects())
	assert.Equal(t, 5, b.Timeout())
	assert.Equal(t, 5000, b.TimeoutMs())
}

func TestRequestBuilder_EnablePost(t *testing.T) {
	b := NewRequestBuilder().EnablePost(map[string]string{"b": "2", "a": "1"})

	assert.True(t, b.IsPost())
	assert.Equal(t, "POST", b.MethodName())
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, b.PostFields())
	assert.Equal(t, "a=1&b=2", string(b.PostBody()))
	assert.Contains(t, b.Headers(), Header{Name: "Content-Length", Value: "7"})
}

func TestRequestBuilder_EnablePostWithoutFields(t *testing.T) {
	b := NewRequestBuilder().EnablePost(nil)

	assert.True(t, b.IsPost())
	assert.Empty(t, b.PostBody())
	assert.Equal(t, []Header{{Name: "Content-Length", Value: "0"}}, b.Headers())
}

func TestRequestBuilder_AddPostFieldsKeepsExisting(t *testing.T) {
	b := NewRequestBuilder().
		EnablePost(map[string]string{"a": "1"}).
		AddPostFields(map[string]string{"a": "override", "c": "3"})

	assert.Equal(t, map[string]string{"a": "1", "c": "3"}, b.PostFields())
	assert.Equal(t, "a=1&c=3", string(b.PostBody()))
	assert.Contains(t, b.Headers(), Header{Name: "Content-Length", Value: "7"})
}

func TestRequestBuilder_SetPostFieldsReplaces(t *testing.T) {
	b := NewRequestBuilder().
		EnablePost(map[string]string{"a": "1"}).
		SetPostFields(map[string]string{"z": "26"})

	assert.Equal(t, map[string]string{"z": "26"}, b.PostFields())
	assert.Equal(t, "z=26", string(b.PostBody()))
}

func TestRequestBuilder_ClearPostFields(t *testing.T) {
	b := NewRequestBuilder().
		EnablePost(map[string]string{"a": "1"}).
		ClearPostFields()

	assert.Empty(t, b.PostFields())
	assert.Empty(t, b.PostBody())
	assert.Contains(t, b.Headers(), Header{Name: "Content-Length", Value: "0"})
	assert.True(t, b.IsPost())
}

func TestRequestBuilder_FormEncodingEscapes(t *testing.T) {
	b := NewRequestBuilder().EnablePost(map[string]string{"q": "a b&c"})

	assert.Equal(t, "q=a+b%26c", string(b.PostBody()))
}

func TestRequestBuilder_JSONPostFields(t *testing.T) {
	b := NewRequestBuilder().
		AddHeader("Content-Type", "application/json").
		EnablePost(map[string]string{"name": "test", "id": "7"})

	assert.JSONEq(t, `{"id":"7","name":"test"}`, string(b.PostBody()))
	assert.Equal(t, `{"id":"7","name":"test"}`, string(b.PostBody()))
}

func TestRequestBuilder_EnableGetClearsPostFields(t *testing.T) {
	b := NewRequestBuilder().
		EnablePost(map[string]string{"a": "1"}).
		EnableGet()

	assert.True(t, b.IsGet())
	assert.Empty(t, b.PostFields())
	assert.Equal(t, "GET", b.MethodName())
}

func TestRequestBuilder_SetCustomMethod(t *testing.T) {
	b := NewRequestBuilder().
		EnablePost(map[string]string{"a": "1"}).
		SetCustomMethod("PUT")

	assert.Equal(t, MethodCustom, b.Method())
	assert.Equal(t, "PUT", b.CustomMethod())
	assert.Equal(t, "PUT", b.MethodName())
	assert.Empty(t, b.PostFields())
	assert.False(t, b.IsPost())
	assert.False(t, b.IsGet())
}

func TestRequestBuilder_MethodName(t *testing.T) {
	tests := []struct {
		name  string
		build func(*RequestBuilder)
		want  string
	}{
		{"default", func(b *RequestBuilder) {}, "GET"},
		{"post", func(b *RequestBuilder) { b.EnablePost(nil) }, "POST"},
		{"no body", func(b *RequestBuilder) { b.DisableFetchBody() }, "HEAD"},
		{"post without body", func(b *RequestBuilder) { b.EnablePost(nil).DisableFetchBody() }, "HEAD"},
		{"custom without body", func(b *RequestBuilder) { b.SetCustomMethod("DELETE").DisableFetchBody() }, "DELETE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewRequestBuilder()
			tt.build(b)
			assert.Equal(t, tt.want, b.MethodName())
		})
	}
}

func TestRequestBuilder_AddHeaderReplacesSameName(t *testing.T) {
	b := NewRequestBuilder().
		AddHeader("X-Token", "one").
		AddHeader("Accept", "*/*").
		AddHeader("x-token", "two")

	assert.Equal(t, []Header{
		{Name: "X-Token", Value: "two"},
		{Name: "Accept", Value: "*/*"},
	}, b.Headers())
}

func TestRequestBuilder_SetHeadersAndClear(t *testing.T) {
	b := NewRequestBuilder().AddHeader("X-Old", "1")
	b.SetHeaders([]Header{{Name: "A", Value: "1"}, {Name: "B", Value: "2"}})

	assert.Equal(t, []Header{{Name: "A", Value: "1"}, {Name: "B", Value: "2"}}, b.Headers())
	assert.Equal(t, "A: 1", b.Headers()[0].String())

	b.ClearHeaders()
	assert.Empty(t, b.Headers())
}

func TestRequestBuilder_Cookies(t *testing.T) {
	b := NewRequestBuilder().
		AddCookie("a", "1").
		AddCookie("b", "2").
		AddCookie("a", "3")

	assert.Equal(t, map[string]string{"a": "3", "b": "2"}, b.Cookies())
	assert.Equal(t, "a=3; b=2", b.CookieHeader())

	b.SetCookies(map[string]string{"z": "9", "y": "8"})
	assert.Equal(t, "y=8; z=9", b.CookieHeader())

	b.ClearCookies()
	assert.Empty(t, b.Cookies())
	assert.Equal(t, "", b.CookieHeader())
}

func TestRequestBuilder_EnableCookieJar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	b := NewRequestBuilder().EnableCookieJar(path)

	assert.Equal(t, path, b.CookieJar())
	value, ok := b.Cookies()[path]
	assert.True(t, ok)
	assert.Equal(t, "", value)
}

func TestRequestBuilder_Timeouts(t *testing.T) {
	b := NewRequestBuilder().SetConnectTimeoutMs(1500).SetTimeoutMs(999)

	assert.Equal(t, 1500, b.ConnectTimeoutMs())
	assert.Equal(t, 1, b.ConnectTimeout())
	assert.Equal(t, 999, b.TimeoutMs())
	assert.Equal(t, 0, b.Timeout())

	b.SetConnectTimeout(3)
	assert.Equal(t, 3000, b.ConnectTimeoutMs())
}

func TestRequestBuilder_NegativeTimeoutsMeanNoLimit(t *testing.T) {
	b := NewRequestBuilder().SetConnectTimeoutMs(-1).SetTimeoutMs(-250)
	assert.Equal(t, 0, b.ConnectTimeoutMs())
	assert.Equal(t, 0, b.TimeoutMs())

	b.SetTimeout(-3).SetConnectTimeout(-3)
	assert.Equal(t, 0, b.TimeoutMs())
	assert.Equal(t, 0, b.ConnectTimeoutMs())
}

func TestRequestBuilder_RemoveCookie(t *testing.T) {
	b := NewRequestBuilder().AddCookie("a", "1").AddCookie("b", "2").AddCookie("c", "3")
	b.RemoveCookie("b").RemoveCookie("missing")
	assert.Equal(t, "a=1; c=3", b.CookieHeader())
}

func TestRequestBuilder_SetPostBody(t *testing.T) {
	b := NewRequestBuilder().EnablePost(map[string]string{"a": "1"})
	b.SetPostBody([]byte("a=1&a=2"))

	assert.Empty(t, b.PostFields())
	assert.Equal(t, "a=1&a=2", string(b.PostBody()))
	length, ok := b.header("Content-Length")
	assert.True(t, ok)
	assert.Equal(t, "7", length)

	b.SetCustomMethod("PUT")
	assert.Empty(t, b.PostBody())
}

func TestRequestBuilder_SetEncoding(t *testing.T) {
	b := NewRequestBuilder()

	for _, enc := range Encodings {
		require.NoError(t, b.SetEncoding(enc))
		assert.Equal(t, enc, b.Encoding())
	}

	require.NoError(t, b.SetEncoding("gzip"))
	err := b.SetEncoding("br")
	assert.ErrorIs(t, err, ErrInvalidEncoding)
	assert.Contains(t, err.Error(), `"br"`)
	assert.Equal(t, "gzip", b.Encoding())
}

func TestRequestBuilder_SetHTTPAuthScheme(t *testing.T) {
	b := NewRequestBuilder()

	for _, scheme := range AuthSchemes {
		require.NoError(t, b.SetHTTPAuthScheme(scheme))
		assert.Equal(t, scheme, b.HTTPAuthScheme())
	}

	require.NoError(t, b.SetHTTPAuthScheme(AuthDigest))
	err := b.SetHTTPAuthScheme("kerberos")
	assert.ErrorIs(t, err, ErrInvalidAuthScheme)
	assert.Equal(t, AuthDigest, b.HTTPAuthScheme())
}

func TestRequestBuilder_SetCredentials(t *testing.T) {
	b := NewRequestBuilder()
	_, _, ok := b.credentials()
	assert.False(t, ok)

	b.SetCredentials("user", "p:ss")
	assert.Equal(t, "user:p:ss", b.Credentials())

	user, pass, ok := b.credentials()
	assert.True(t, ok)
	assert.Equal(t, "user", user)
	assert.Equal(t, "p:ss", pass)
}

func TestRequestBuilder_SafeUploadKeepsAtValues(t *testing.T) {
	b := NewRequestBuilder().EnablePost(map[string]string{"file": "@/does/not/exist"})

	assert.Equal(t, "file=%40%2Fdoes%2Fnot%2Fexist", string(b.PostBody()))
}

func TestRequestBuilder_DisableSafeUploadBuildsMultipart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload.txt")
	require.NoError(t, os.WriteFile(path, []byte("file contents"), 0644))

	b := NewRequestBuilder().
		EnablePost(map[string]string{"file": "@" + path, "name": "doc"}).
		DisableSafeUpload()

	body := string(b.PostBody())
	assert.Contains(t, body, "file contents")
	assert.Contains(t, body, `filename="upload.txt"`)
	assert.True(t, strings.HasPrefix(b.postContentType, "multipart/form-data"))
	assert.NoError(t, b.postErr)

	b.EnableSafeUpload()
	assert.NotContains(t, string(b.PostBody()), "file contents")
}

func TestRequestBuilder_MissingUploadFileFailsAtExecute(t *testing.T) {
	b := NewRequestBuilder().
		SetURL("http://127.0.0.1:1").
		DisableSafeUpload().
		EnablePost(map[string]string{"file": "@" + filepath.Join(t.TempDir(), "missing.txt")})

	body, err := b.Execute(context.Background())

	require.NoError(t, err)
	assert.Nil(t, body)
	assert.Equal(t, CodeReadError, b.ErrorCode())
	assert.Contains(t, b.ErrorMessage(), "missing.txt")
}

func TestRequestBuilder_Renew(t *testing.T) {
	b := NewRequestBuilder().
		SetURL("http://example.com").
		EnablePost(map[string]string{"a": "1"}).
		AddHeader("X-A", "1").
		AddCookie("c", "1").
		EnableSSLVerify().
		EnableIncludeHeader().
		SetMaxRedirects(2).
		SetTimeout(9).
		SetCredentials("u", "p")
	require.NoError(t, b.SetEncoding("gzip"))
	require.NoError(t, b.SetHTTPAuthScheme(AuthNTLM))

	b.Renew()

	defaults := NewRequestBuilder()
	assert.Equal(t, defaults.settings, b.settings)
	assert.False(t, b.IsClosed())
	assert.Equal(t, CodeOK, b.ErrorCode())
	assert.Nil(t, b.ResponseBody())
}

func TestRequestBuilder_Close(t *testing.T) {
	b := NewRequestBuilder()

	require.NoError(t, b.Close())
	assert.True(t, b.IsClosed())
	require.NoError(t, b.Close())

	_, err := b.Execute(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	b.Renew()
	assert.False(t, b.IsClosed())
}

func TestRequestBuilder_GettersBeforeExecute(t *testing.T) {
	b := NewRequestBuilder()

	assert.Nil(t, b.ResponseBody())
	assert.Equal(t, CodeOK, b.ErrorCode())
	assert.Equal(t, "", b.ErrorMessage())
	assert.Empty(t, b.ResponseInfo())
}
