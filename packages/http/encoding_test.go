package http

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidEncoding(t *testing.T) {
	for _, enc := range []string{"", "identity", "deflate", "gzip"} {
		assert.True(t, IsValidEncoding(enc), enc)
	}
	for _, enc := range []string{"br", "GZIP", "compress"} {
		assert.False(t, IsValidEncoding(enc), enc)
	}
}

func TestDecodeBody(t *testing.T) {
	var zlibBuf bytes.Buffer
	zw := zlib.NewWriter(&zlibBuf)
	_, _ = zw.Write([]byte("zlib body"))
	require.NoError(t, zw.Close())

	var rawBuf bytes.Buffer
	fw, err := flate.NewWriter(&rawBuf, flate.DefaultCompression)
	require.NoError(t, err)
	_, _ = fw.Write([]byte("raw deflate body"))
	require.NoError(t, fw.Close())

	tests := []struct {
		name     string
		encoding string
		raw      []byte
		want     string
	}{
		{"gzip", "gzip", gzipped(t, "gzip body"), "gzip body"},
		{"zlib deflate", "deflate", zlibBuf.Bytes(), "zlib body"},
		{"raw deflate", "deflate", rawBuf.Bytes(), "raw deflate body"},
		{"identity", "identity", []byte("plain"), "plain"},
		{"no encoding", "", []byte("plain"), "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := decodeBody(tt.encoding, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestDecodeBody_Corrupt(t *testing.T) {
	_, err := decodeBody("gzip", []byte("not gzip"))

	var encErr *contentEncodingError
	require.ErrorAs(t, err, &encErr)
	code, _ := classifyError(err)
	assert.Equal(t, CodeBadContentEncoding, code)
}

func TestEncodeForm(t *testing.T) {
	fields := []Field{{Name: "b", Value: "x y"}, {Name: "a", Value: "1&2"}}
	assert.Equal(t, "b=x+y&a=1%262", encodeForm(fields))
	assert.Equal(t, "", encodeForm(nil))
}

func TestEncodeJSON(t *testing.T) {
	fields := []Field{{Name: "b", Value: `say "hi"`}, {Name: "a", Value: "1"}}
	assert.Equal(t, `{"b":"say \"hi\"","a":"1"}`, string(encodeJSON(fields)))
	assert.Equal(t, "{}", string(encodeJSON(nil)))
}
