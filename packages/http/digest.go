package http

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"
)

// DigestAuth holds one digest challenge answer
type DigestAuth struct {
	Username  string
	Password  string
	Realm     string
	Nonce     string
	URI       string
	Qop       string
	Nc        string
	Cnonce    string
	Opaque    string
	Method    string
	Algorithm string
}

// ParseWWWAuthenticate parses the key="value" parameters of a challenge
func ParseWWWAuthenticate(header string) map[string]string {
	result := make(map[string]string)

	header = strings.TrimSpace(header)
	if name, rest, ok := strings.Cut(header, " "); ok && !strings.Contains(name, "=") {
		header = rest
	}

	for _, part := range splitChallengeParams(header) {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		result[strings.ToLower(strings.TrimSpace(key))] = strings.Trim(strings.TrimSpace(value), `"`)
	}

	return result
}

// splitChallengeParams splits on commas outside quoted strings, so
// qop="auth,auth-int" survives as one parameter.
func splitChallengeParams(s string) []string {
	var parts []string
	var current strings.Builder
	inQuote := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
			current.WriteRune(r)
		case r == ',' && !inQuote:
			parts = append(parts, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, strings.TrimSpace(current.String()))
	}
	return parts
}

// newDigestAuth answers a digest challenge for one request
func newDigestAuth(params map[string]string, username, password, method, uri string) (*DigestAuth, error) {
	auth := &DigestAuth{
		Username:  username,
		Password:  password,
		Realm:     params["realm"],
		Nonce:     params["nonce"],
		Opaque:    params["opaque"],
		Algorithm: params["algorithm"],
		URI:       uri,
		Method:    method,
	}

	if qop := params["qop"]; qop != "" {
		for _, q := range strings.Split(qop, ",") {
			if strings.TrimSpace(q) == "auth" {
				auth.Qop = "auth"
				break
			}
		}
		if auth.Qop == "" {
			return nil, fmt.Errorf("unsupported digest qop %q", qop)
		}
		auth.Nc = "00000001"
		cnonce, err := GenerateCnonce()
		if err != nil {
			return nil, err
		}
		auth.Cnonce = cnonce
	}

	return auth, nil
}

func (d *DigestAuth) newHash() func() hash.Hash {
	switch strings.ToUpper(d.Algorithm) {
	case "SHA-256", "SHA-256-SESS":
		return sha256.New
	default:
		return md5.New
	}
}

// ComputeDigestResponse calculates the response hash (RFC 7616)
func (d *DigestAuth) ComputeDigestResponse() string {
	h := d.newHash()

	ha1 := hexHash(h, fmt.Sprintf("%s:%s:%s", d.Username, d.Realm, d.Password))
	if strings.HasSuffix(strings.ToLower(d.Algorithm), "-sess") {
		ha1 = hexHash(h, fmt.Sprintf("%s:%s:%s", ha1, d.Nonce, d.Cnonce))
	}
	ha2 := hexHash(h, fmt.Sprintf("%s:%s", d.Method, d.URI))

	if d.Qop == "auth" {
		return hexHash(h, fmt.Sprintf("%s:%s:%s:%s:%s:%s", ha1, d.Nonce, d.Nc, d.Cnonce, d.Qop, ha2))
	}
	return hexHash(h, fmt.Sprintf("%s:%s:%s", ha1, d.Nonce, ha2))
}

// BuildAuthorizationHeader renders the Authorization header value
func (d *DigestAuth) BuildAuthorizationHeader() string {
	parts := []string{
		fmt.Sprintf(`username="%s"`, d.Username),
		fmt.Sprintf(`realm="%s"`, d.Realm),
		fmt.Sprintf(`nonce="%s"`, d.Nonce),
		fmt.Sprintf(`uri="%s"`, d.URI),
		fmt.Sprintf(`response="%s"`, d.ComputeDigestResponse()),
	}

	if d.Algorithm != "" {
		parts = append(parts, "algorithm="+d.Algorithm)
	}
	if d.Qop != "" {
		parts = append(parts, "qop="+d.Qop, "nc="+d.Nc, fmt.Sprintf(`cnonce="%s"`, d.Cnonce))
	}
	if d.Opaque != "" {
		parts = append(parts, fmt.Sprintf(`opaque="%s"`, d.Opaque))
	}

	return "Digest " + strings.Join(parts, ", ")
}

// GenerateCnonce generates a random client nonce
func GenerateCnonce() (string, error) {
	b := make([]byte, 8)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hexHash(newHash func() hash.Hash, s string) string {
	h := newHash()
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}
