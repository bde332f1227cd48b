package env

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DotEnvFiles are read in order by LoadVariables; later files win
var DotEnvFiles = []string{".env", ".env.local"}

// VariablePrefix marks process environment variables exposed as {{name}}
const VariablePrefix = "HITCURL_VAR_"

// LoadVariables collects the variables for a working directory: the dotenv
// files in dir, then HITCURL_VAR_* from the process environment.
func LoadVariables(dir string) (map[string]string, error) {
	sources := make([]map[string]string, 0, len(DotEnvFiles)+1)
	for _, name := range DotEnvFiles {
		vars, err := LoadDotEnv(filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		sources = append(sources, vars)
	}
	sources = append(sources, LoadSystemEnv(VariablePrefix))
	return MergeVariables(sources...), nil
}

func MergeVariables(sources ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, src := range sources {
		for k, v := range src {
			result[k] = v
		}
	}
	return result
}

// LoadSystemEnv returns the process environment. With a prefix only the
// matching variables are returned, with the prefix stripped.
func LoadSystemEnv(prefix string) map[string]string {
	result := make(map[string]string)
	for _, e := range os.Environ() {
		key, value, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}
		if prefix == "" {
			result[key] = value
			continue
		}
		if name, found := strings.CutPrefix(key, prefix); found && name != "" {
			result[name] = value
		}
	}
	return result
}
