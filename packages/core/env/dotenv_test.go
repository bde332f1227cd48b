package env

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDotEnv(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected map[string]string
	}{
		{
			name:     "simple key-value",
			content:  "API_KEY=secret123",
			expected: map[string]string{"API_KEY": "secret123"},
		},
		{
			name:    "multiple keys",
			content: "KEY1=value1\nKEY2=value2\nKEY3=value3",
			expected: map[string]string{
				"KEY1": "value1",
				"KEY2": "value2",
				"KEY3": "value3",
			},
		},
		{
			name:     "double quoted value",
			content:  `API_KEY="secret with spaces"`,
			expected: map[string]string{"API_KEY": "secret with spaces"},
		},
		{
			name:     "double quoted escapes",
			content:  `CERT="line1\nline2"`,
			expected: map[string]string{"CERT": "line1\nline2"},
		},
		{
			name:     "single quoted value is literal",
			content:  `RAW='a\nb'`,
			expected: map[string]string{"RAW": `a\nb`},
		},
		{
			name:     "export prefix",
			content:  "export TOKEN=abc",
			expected: map[string]string{"TOKEN": "abc"},
		},
		{
			name:     "comments and blank lines are skipped",
			content:  "# comment\n\nAPI_KEY=secret\n\n",
			expected: map[string]string{"API_KEY": "secret"},
		},
		{
			name:     "whitespace trimmed",
			content:  "  API_KEY  =  secret  ",
			expected: map[string]string{"API_KEY": "secret"},
		},
		{
			name:     "value with equals sign",
			content:  "BASE_URL=https://api.example.com/v1?debug=true",
			expected: map[string]string{"BASE_URL": "https://api.example.com/v1?debug=true"},
		},
		{
			name:     "lines without equals are ignored",
			content:  "garbage\nKEY=v",
			expected: map[string]string{"KEY": "v"},
		},
		{
			name:     "inline comment kept",
			content:  "API_KEY=secret # this is included",
			expected: map[string]string{"API_KEY": "secret # this is included"},
		},
		{
			name:     "empty file",
			content:  "",
			expected: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envFile := filepath.Join(t.TempDir(), ".env")
			if err := os.WriteFile(envFile, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write temp file: %v", err)
			}

			result, err := LoadDotEnv(envFile)
			if err != nil {
				t.Fatalf("LoadDotEnv() error = %v", err)
			}

			if len(result) != len(tt.expected) {
				t.Errorf("LoadDotEnv() returned %d keys, want %d", len(result), len(tt.expected))
			}
			for k, v := range tt.expected {
				if got, ok := result[k]; !ok {
					t.Errorf("LoadDotEnv() missing key %q", k)
				} else if got != v {
					t.Errorf("LoadDotEnv()[%q] = %q, want %q", k, got, v)
				}
			}
		})
	}
}

func TestLoadDotEnvFileNotFound(t *testing.T) {
	_, err := LoadDotEnv("/nonexistent/path/.env")
	if err == nil {
		t.Error("LoadDotEnv() expected error for non-existent file")
	}
}

func TestParseDotEnvReader(t *testing.T) {
	vars, err := ParseDotEnv(strings.NewReader("A=1\nB='2'"))
	if err != nil {
		t.Fatalf("ParseDotEnv() error = %v", err)
	}
	if vars["A"] != "1" || vars["B"] != "2" {
		t.Errorf("ParseDotEnv() = %v", vars)
	}
}

func TestLoadAndExportDotEnv(t *testing.T) {
	t.Setenv("HITCURL_TEST_EXISTING", "keep")
	envFile := filepath.Join(t.TempDir(), ".env")
	content := "HITCURL_TEST_EXISTING=replace\nHITCURL_TEST_NEW=added"
	if err := os.WriteFile(envFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("HITCURL_TEST_NEW") })

	if _, err := LoadAndExportDotEnv(envFile); err != nil {
		t.Fatalf("LoadAndExportDotEnv() error = %v", err)
	}

	if got := os.Getenv("HITCURL_TEST_EXISTING"); got != "keep" {
		t.Errorf("existing variable = %q, want %q", got, "keep")
	}
	if got := os.Getenv("HITCURL_TEST_NEW"); got != "added" {
		t.Errorf("new variable = %q, want %q", got, "added")
	}
}

func TestLoadVariables(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("HOST=example.com\nTOKEN=base"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env.local"), []byte("TOKEN=local"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HITCURL_VAR_REGION", "eu")

	vars, err := LoadVariables(dir)
	if err != nil {
		t.Fatalf("LoadVariables() error = %v", err)
	}

	expected := map[string]string{"HOST": "example.com", "TOKEN": "local", "REGION": "eu"}
	for k, v := range expected {
		if vars[k] != v {
			t.Errorf("LoadVariables()[%q] = %q, want %q", k, vars[k], v)
		}
	}
}

func TestLoadVariablesWithoutFiles(t *testing.T) {
	vars, err := LoadVariables(t.TempDir())
	if err != nil {
		t.Fatalf("LoadVariables() error = %v", err)
	}
	if vars == nil {
		t.Error("LoadVariables() returned nil map")
	}
}
