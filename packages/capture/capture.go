package capture

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/abdul-hamid-achik/hitcurl/packages/http"
)

// ErrInvalidSpec is returned by ParseSpec for malformed capture expressions
var ErrInvalidSpec = errors.New("invalid capture")

// Source selects which part of a transfer a capture reads
type Source string

const (
	SourceBody     Source = "body"
	SourceHeader   Source = "header"
	SourceStatus   Source = "status"
	SourceDuration Source = "duration"
	SourceInfo     Source = "info"
)

func (s Source) IsValid() bool {
	switch s {
	case SourceBody, SourceHeader, SourceStatus, SourceDuration, SourceInfo:
		return true
	}
	return false
}

// Spec names a value to extract. Path is a gjson path for body captures, a
// header name for header captures and an Info key for info captures.
type Spec struct {
	Name   string `yaml:"name" json:"name"`
	Source Source `yaml:"source" json:"source"`
	Path   string `yaml:"path,omitempty" json:"path,omitempty"`
}

// ParseSpec parses "name=source:path", for example "id=body:data.id" or
// "took=duration".
func ParseSpec(expr string) (Spec, error) {
	name, rest, ok := strings.Cut(expr, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return Spec{}, fmt.Errorf("%w: %q (want name=source[:path])", ErrInvalidSpec, expr)
	}

	source, path, _ := strings.Cut(strings.TrimSpace(rest), ":")
	spec := Spec{Name: name, Source: Source(strings.ToLower(source)), Path: path}
	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

func (s Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidSpec)
	}
	if !s.Source.IsValid() {
		return fmt.Errorf("%w: %s: unknown source %q", ErrInvalidSpec, s.Name, s.Source)
	}
	if (s.Source == SourceHeader || s.Source == SourceInfo) && s.Path == "" {
		return fmt.Errorf("%w: %s: %s capture needs a path", ErrInvalidSpec, s.Name, s.Source)
	}
	return nil
}

type Extractor struct {
	result   *http.Result
	bodyJSON gjson.Result
	isJSON   bool
}

func NewExtractor(result *http.Result) *Extractor {
	e := &Extractor{result: result}
	if result.IsJSON() || gjson.ValidBytes(result.Body) {
		e.bodyJSON = gjson.ParseBytes(result.Body)
		e.isJSON = e.bodyJSON.Exists()
	}
	return e
}

func (e *Extractor) Extract(spec Spec) (any, bool) {
	switch spec.Source {
	case SourceBody:
		return e.extractFromBody(spec.Path)
	case SourceHeader:
		return e.extractFromHeader(spec.Path)
	case SourceStatus:
		return e.result.StatusCode, true
	case SourceDuration:
		return e.result.DurationMs(), true
	case SourceInfo:
		v, ok := e.result.Info[spec.Path]
		return v, ok
	default:
		return nil, false
	}
}

func (e *Extractor) extractFromBody(path string) (any, bool) {
	if !e.isJSON {
		if path == "" {
			return e.result.BodyString(), true
		}
		return nil, false
	}

	if path == "" {
		return e.bodyJSON.Value(), true
	}

	value := e.bodyJSON.Get(path)
	if !value.Exists() {
		return nil, false
	}
	return value.Value(), true
}

func (e *Extractor) extractFromHeader(name string) (any, bool) {
	value := e.result.Header(name)
	if value == "" {
		return nil, false
	}
	return value, true
}

// ExtractAll runs every spec against result. Specs that match nothing are
// left out of the returned map.
func ExtractAll(result *http.Result, specs []Spec) map[string]any {
	extractor := NewExtractor(result)
	values := make(map[string]any)

	for _, s := range specs {
		if value, ok := extractor.Extract(s); ok {
			values[s.Name] = value
		}
	}

	return values
}
