package http

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Encodings lists the values SetEncoding accepts
var Encodings = []string{"", "identity", "deflate", "gzip"}

// acceptAllEncodings is sent when the encoding is set to ""
const acceptAllEncodings = "deflate, gzip"

func IsValidEncoding(value string) bool {
	return slices.Contains(Encodings, value)
}

// decodeBody undoes the response Content-Encoding.
func decodeBody(contentEncoding string, raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return raw, nil
	}

	enc := strings.ToLower(strings.TrimSpace(contentEncoding))
	switch enc {
	case "gzip", "x-gzip":
		r, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, &contentEncodingError{encoding: enc, err: err}
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, &contentEncodingError{encoding: enc, err: err}
		}
		return out, nil
	case "deflate":
		// Servers disagree on zlib-wrapped versus raw deflate.
		if r, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
			defer r.Close()
			out, err := io.ReadAll(r)
			if err != nil {
				return nil, &contentEncodingError{encoding: enc, err: err}
			}
			return out, nil
		}
		r := flate.NewReader(bytes.NewReader(raw))
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, &contentEncodingError{encoding: enc, err: err}
		}
		return out, nil
	default:
		return raw, nil
	}
}

// encodeForm renders fields as application/x-www-form-urlencoded, keeping
// field order.
func encodeForm(fields []Field) string {
	var sb strings.Builder
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(f.Name))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(f.Value))
	}
	return sb.String()
}

// encodeJSON renders fields as a flat JSON object, keeping field order.
func encodeJSON(fields []Field) []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, _ := json.Marshal(f.Name)
		value, _ := json.Marshal(f.Value)
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

func hasFileFields(fields []Field) bool {
	for _, f := range fields {
		if strings.HasPrefix(f.Value, "@") {
			return true
		}
	}
	return false
}

// buildMultipartBody creates a multipart form body. Values of the form
// "@path" are uploaded as files.
func buildMultipartBody(fields []Field) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for _, field := range fields {
		path, isFile := strings.CutPrefix(field.Value, "@")
		if !isFile {
			if err := writer.WriteField(field.Name, field.Value); err != nil {
				return nil, "", err
			}
			continue
		}

		file, err := os.Open(path)
		if err != nil {
			return nil, "", &localReadError{err: err}
		}

		part, err := writer.CreateFormFile(field.Name, filepath.Base(path))
		if err != nil {
			file.Close()
			return nil, "", err
		}

		_, err = io.Copy(part, file)
		file.Close()
		if err != nil {
			return nil, "", &localReadError{err: err}
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}
