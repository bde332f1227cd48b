package http

import (
	"slices"
	"strings"
)

// AuthScheme selects how credentials are presented to the server
type AuthScheme string

const (
	AuthBasic     AuthScheme = "basic"
	AuthDigest    AuthScheme = "digest"
	AuthNegotiate AuthScheme = "negotiate"
	AuthNTLM      AuthScheme = "ntlm"
	// AuthAny picks the strongest scheme the server offers
	AuthAny AuthScheme = "any"
	// AuthAnySafe is AuthAny without Basic
	AuthAnySafe AuthScheme = "anysafe"
)

// AuthSchemes lists every accepted scheme
var AuthSchemes = []AuthScheme{AuthBasic, AuthDigest, AuthNegotiate, AuthNTLM, AuthAny, AuthAnySafe}

func (s AuthScheme) IsValid() bool {
	return slices.Contains(AuthSchemes, s)
}

// ParseAuthScheme maps a case-insensitive name to a scheme
func ParseAuthScheme(name string) (AuthScheme, error) {
	scheme := AuthScheme(strings.ToLower(strings.TrimSpace(name)))
	if !scheme.IsValid() {
		return "", invalidAuthScheme(AuthScheme(name))
	}
	return scheme, nil
}

// challenge is one scheme offered in a WWW-Authenticate header
type challenge struct {
	scheme AuthScheme
	params map[string]string
}

// parseChallenges reads the schemes offered in WWW-Authenticate values.
// Each header value is treated as one challenge.
func parseChallenges(values []string) []challenge {
	var out []challenge
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		name, rest, _ := strings.Cut(v, " ")
		var scheme AuthScheme
		switch strings.ToLower(name) {
		case "basic":
			scheme = AuthBasic
		case "digest":
			scheme = AuthDigest
		case "negotiate":
			scheme = AuthNegotiate
		case "ntlm":
			scheme = AuthNTLM
		default:
			continue
		}
		out = append(out, challenge{scheme: scheme, params: ParseWWWAuthenticate(rest)})
	}
	return out
}

// authPreference orders schemes from strongest to weakest
var authPreference = []AuthScheme{AuthNegotiate, AuthNTLM, AuthDigest, AuthBasic}

// pickChallenge chooses the challenge to answer for the configured scheme.
func pickChallenge(challenges []challenge, configured AuthScheme) (challenge, bool) {
	allowed := func(s AuthScheme) bool {
		switch configured {
		case AuthAny:
			return true
		case AuthAnySafe:
			return s != AuthBasic
		case AuthNegotiate, AuthNTLM:
			return s == AuthNegotiate || s == AuthNTLM
		default:
			return s == configured
		}
	}

	for _, want := range authPreference {
		if !allowed(want) {
			continue
		}
		for _, c := range challenges {
			if c.scheme == want {
				return c, true
			}
		}
	}
	return challenge{}, false
}
