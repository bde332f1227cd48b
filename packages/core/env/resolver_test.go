package env

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestResolverResolve(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		variables map[string]any
		captures  map[string]string
		expected  string
	}{
		{
			name:     "no placeholders",
			input:    "https://example.com",
			expected: "https://example.com",
		},
		{
			name:      "simple variable",
			input:     "https://{{host}}/users",
			variables: map[string]any{"host": "api.example.com"},
			expected:  "https://api.example.com/users",
		},
		{
			name:      "multiple variables",
			input:     "{{scheme}}://{{host}}:{{port}}",
			variables: map[string]any{"scheme": "http", "host": "localhost", "port": 8080},
			expected:  "http://localhost:8080",
		},
		{
			name:      "whitespace inside braces",
			input:     "{{ host }}",
			variables: map[string]any{"host": "h"},
			expected:  "h",
		},
		{
			name:     "capture",
			input:    "Bearer {{token}}",
			captures: map[string]string{"token": "abc"},
			expected: "Bearer abc",
		},
		{
			name:      "capture wins over variable",
			input:     "{{token}}",
			variables: map[string]any{"token": "variable"},
			captures:  map[string]string{"token": "captured"},
			expected:  "captured",
		},
		{
			name:     "unresolved stays as-is",
			input:    "hello {{unknown}}",
			expected: "hello {{unknown}}",
		},
		{
			name:     "unknown function stays as-is",
			input:    "{{nope()}}",
			expected: "{{nope()}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver()
			if tt.variables != nil {
				r.SetVariables(tt.variables)
			}
			for k, v := range tt.captures {
				r.SetCapture("login", k, v)
			}

			got := r.Resolve(tt.input)
			if got != tt.expected {
				t.Errorf("Resolve(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestResolverEnvironment(t *testing.T) {
	t.Setenv("HITCURL_TEST_TOKEN", "from-env")
	r := NewResolver()

	if got := r.Resolve("{{$HITCURL_TEST_TOKEN}}"); got != "from-env" {
		t.Errorf("Resolve() = %q, want %q", got, "from-env")
	}
	if got := r.Resolve("{{$HITCURL_TEST_MISSING}}"); got != "{{$HITCURL_TEST_MISSING}}" {
		t.Errorf("Resolve() = %q, want placeholder kept", got)
	}
}

func TestResolverFunctions(t *testing.T) {
	r := NewResolver()

	got := r.Resolve("{{basicAuth('user', 'pass')}}")
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("user:pass"))
	if got != want {
		t.Errorf("basicAuth = %q, want %q", got, want)
	}

	if got := r.Resolve("{{uuid()}}"); len(got) != 36 {
		t.Errorf("uuid() = %q, want 36 characters", got)
	}

	r.Functions().Register("upper", func(args []string) (string, error) {
		return strings.ToUpper(args[0]), nil
	})
	if got := r.Resolve("{{upper(abc)}}"); got != "ABC" {
		t.Errorf("upper(abc) = %q, want %q", got, "ABC")
	}
}

func TestResolverWarnFunc(t *testing.T) {
	r := NewResolver()
	var warnings []string
	r.SetWarnFunc(func(format string, args ...any) {
		warnings = append(warnings, format)
	})

	r.Resolve("{{a}} {{b}}")
	if len(warnings) != 2 {
		t.Errorf("got %d warnings, want 2", len(warnings))
	}
}

func TestResolverGetUnresolvedVariables(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		variables map[string]any
		expected  []string
	}{
		{
			name:     "no placeholders",
			input:    "hello world",
			expected: nil,
		},
		{
			name:      "resolved variable",
			input:     "{{foo}}",
			variables: map[string]any{"foo": "bar"},
			expected:  nil,
		},
		{
			name:     "multiple unresolved variables",
			input:    "{{foo}} and {{bar}}",
			expected: []string{"foo", "bar"},
		},
		{
			name:      "mixed resolved and unresolved",
			input:     "{{foo}} and {{bar}} and {{baz}}",
			variables: map[string]any{"bar": "middle"},
			expected:  []string{"foo", "baz"},
		},
		{
			name:     "functions resolve",
			input:    "{{timestamp()}}",
			expected: nil,
		},
		{
			name:     "namespaced capture unresolved",
			input:    "{{login.token}}/tasks",
			expected: []string{"login.token"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver()
			if tt.variables != nil {
				r.SetVariables(tt.variables)
			}

			got := r.GetUnresolvedVariables(tt.input)
			if tt.expected == nil {
				if got != nil {
					t.Errorf("GetUnresolvedVariables(%q) = %v, want nil", tt.input, got)
				}
				if r.HasUnresolvedVariables(tt.input) {
					t.Errorf("HasUnresolvedVariables(%q) = true, want false", tt.input)
				}
				return
			}

			if len(got) != len(tt.expected) {
				t.Fatalf("GetUnresolvedVariables(%q) returned %d vars, want %d", tt.input, len(got), len(tt.expected))
			}
			for i, v := range tt.expected {
				if got[i] != v {
					t.Errorf("GetUnresolvedVariables(%q)[%d] = %q, want %q", tt.input, i, got[i], v)
				}
			}
		})
	}
}

func TestResolverNamespacedCapture(t *testing.T) {
	r := NewResolver()
	r.SetCapture("login", "token", "abc")

	if got := r.Resolve("{{login.token}}"); got != "abc" {
		t.Errorf("Resolve() = %q, want %q", got, "abc")
	}
	if !r.HasVariable("token") {
		t.Error("HasVariable(token) = false, want true")
	}
}

func TestResolverClone(t *testing.T) {
	r := NewResolver()
	r.SetStringVariables(map[string]string{"a": "1"})

	clone := r.Clone()
	clone.SetVariable("a", "2")

	if got, _ := r.GetVariable("a"); got != "1" {
		t.Errorf("original variable = %v, want 1", got)
	}
	if got, _ := clone.GetVariable("a"); got != "2" {
		t.Errorf("clone variable = %v, want 2", got)
	}
}

func TestFunctionsCall(t *testing.T) {
	f := NewFunctions()

	if _, err := f.Call("missing()"); !errors.Is(err, ErrUnknownFunction) {
		t.Errorf("Call(missing()) error = %v, want ErrUnknownFunction", err)
	}
	if _, err := f.Call("base64()"); err == nil {
		t.Error("Call(base64()) expected argument error")
	}
	if got, err := f.Call(`urlEncode("a b")`); err != nil || got != "a+b" {
		t.Errorf("Call(urlEncode) = %q, %v", got, err)
	}
	got, err := f.Call("random(5, 5)")
	if err != nil || got != "5" {
		t.Errorf("Call(random(5, 5)) = %q, %v", got, err)
	}
	if _, err := f.Call("random(9, 1)"); err == nil {
		t.Error("Call(random(9, 1)) expected range error")
	}
	if got, err := f.Call("randomString(12)"); err != nil || len(got) != 12 {
		t.Errorf("Call(randomString(12)) = %q, %v", got, err)
	}
}
