package env

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
)

var variablePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// WarnFunc is a function type for handling warnings
type WarnFunc func(format string, args ...any)

// Resolver expands {{name}} placeholders in request profiles and command
// arguments. Lookups go to captures from earlier transfers, then variables.
// {{$NAME}} reads the process environment and {{fn(args)}} calls a template
// function.
type Resolver struct {
	mu        sync.RWMutex
	variables map[string]any
	captures  map[string]any
	funcs     *Functions
	warnFunc  WarnFunc
}

func NewResolver() *Resolver {
	return &Resolver{
		variables: make(map[string]any),
		captures:  make(map[string]any),
		funcs:     NewFunctions(),
	}
}

// SetWarnFunc sets a function to be called when a placeholder stays unresolved
func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnFunc = fn
}

func (r *Resolver) warn(format string, args ...any) {
	r.mu.RLock()
	fn := r.warnFunc
	r.mu.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}

// Functions exposes the function registry so callers can add their own
func (r *Resolver) Functions() *Functions {
	return r.funcs
}

func (r *Resolver) SetVariables(vars map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range vars {
		r.variables[k] = v
	}
}

// SetStringVariables is SetVariables for string maps such as .env contents
func (r *Resolver) SetStringVariables(vars map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range vars {
		r.variables[k] = v
	}
}

func (r *Resolver) SetVariable(name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variables[name] = value
}

// SetCapture stores a captured value under both "source.name" and "name".
func (r *Resolver) SetCapture(source, name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captures[source+"."+name] = value
	r.captures[name] = value
}

func (r *Resolver) GetCapture(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.captures[name]
	return v, ok
}

// lookup resolves a single placeholder expression
func (r *Resolver) lookup(expr string) (string, bool) {
	if name, ok := strings.CutPrefix(expr, "$"); ok {
		if val, set := os.LookupEnv(name); set {
			return val, true
		}
		return "", false
	}

	if strings.Contains(expr, "(") {
		result, err := r.funcs.Call(expr)
		if err != nil {
			return "", false
		}
		return result, true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if val, ok := r.captures[expr]; ok {
		return fmt.Sprintf("%v", val), true
	}
	if val, ok := r.variables[expr]; ok {
		return fmt.Sprintf("%v", val), true
	}
	return "", false
}

// Resolve expands every placeholder it can. Unresolved placeholders are
// left in place.
func (r *Resolver) Resolve(input string) string {
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-2])
		if val, ok := r.lookup(expr); ok {
			return val
		}
		r.warn("unresolved placeholder: %s", expr)
		return match
	})
}

func (r *Resolver) ResolveAll(values map[string]string) map[string]string {
	result := make(map[string]string, len(values))
	for k, v := range values {
		result[k] = r.Resolve(v)
	}
	return result
}

// HasUnresolvedVariables reports whether input holds a placeholder that
// cannot be resolved
func (r *Resolver) HasUnresolvedVariables(input string) bool {
	return len(r.GetUnresolvedVariables(input)) > 0
}

// GetUnresolvedVariables lists the unresolvable placeholders in input, in
// order of appearance. It returns nil when everything resolves.
func (r *Resolver) GetUnresolvedVariables(input string) []string {
	var unresolved []string
	for _, m := range variablePattern.FindAllStringSubmatch(input, -1) {
		expr := strings.TrimSpace(m[1])
		if _, ok := r.lookup(expr); !ok {
			unresolved = append(unresolved, expr)
		}
	}
	return unresolved
}

func (r *Resolver) HasVariable(name string) bool {
	_, ok := r.GetVariable(name)
	return ok
}

func (r *Resolver) GetVariable(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.captures[name]; ok {
		return v, true
	}
	if v, ok := r.variables[name]; ok {
		return v, true
	}
	return nil, false
}

// Clone copies variables and captures. The clone shares the function registry.
func (r *Resolver) Clone() *Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := NewResolver()
	clone.funcs = r.funcs
	clone.warnFunc = r.warnFunc
	for k, v := range r.variables {
		clone.variables[k] = v
	}
	for k, v := range r.captures {
		clone.captures[k] = v
	}
	return clone
}
