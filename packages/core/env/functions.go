package env

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownFunction is returned by Call for names not in the registry
var ErrUnknownFunction = errors.New("unknown function")

// Func is a template function. Arguments arrive unquoted.
type Func func(args []string) (string, error)

// Functions is the registry behind {{fn(args)}} placeholders
type Functions struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

func NewFunctions() *Functions {
	f := &Functions{funcs: make(map[string]Func)}
	f.registerDefaults()
	return f
}

func (f *Functions) registerDefaults() {
	f.funcs["uuid"] = funcUUID
	f.funcs["now"] = funcNow
	f.funcs["timestamp"] = funcTimestamp
	f.funcs["timestampMs"] = funcTimestampMs
	f.funcs["date"] = funcDate
	f.funcs["random"] = funcRandom
	f.funcs["randomString"] = funcRandomString
	f.funcs["base64"] = funcBase64
	f.funcs["basicAuth"] = funcBasicAuth
	f.funcs["urlEncode"] = funcURLEncode
}

func (f *Functions) Register(name string, fn Func) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.funcs[name] = fn
}

var funcCallPattern = regexp.MustCompile(`^(\w+)\((.*)\)$`)

// Call evaluates an expression such as base64('user:pass')
func (f *Functions) Call(expr string) (string, error) {
	matches := funcCallPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if matches == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownFunction, expr)
	}

	f.mu.RLock()
	fn, ok := f.funcs[matches[1]]
	f.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownFunction, matches[1])
	}

	var args []string
	if matches[2] != "" {
		args = parseArgs(matches[2])
	}
	return fn(args)
}

func parseArgs(s string) []string {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := byte(0)

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case !inQuote && (ch == '"' || ch == '\''):
			inQuote = true
			quoteChar = ch
		case inQuote && ch == quoteChar:
			inQuote = false
		case !inQuote && ch == ',':
			args = append(args, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}

	if current.Len() > 0 {
		args = append(args, strings.TrimSpace(current.String()))
	}

	return args
}

func requireArgs(name string, args []string, n int) error {
	if len(args) < n {
		return fmt.Errorf("%s() needs %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func funcUUID(_ []string) (string, error) {
	return uuid.NewString(), nil
}

func funcNow(_ []string) (string, error) {
	return time.Now().UTC().Format(time.RFC3339), nil
}

func funcTimestamp(_ []string) (string, error) {
	return strconv.FormatInt(time.Now().Unix(), 10), nil
}

func funcTimestampMs(_ []string) (string, error) {
	return strconv.FormatInt(time.Now().UnixMilli(), 10), nil
}

func funcDate(args []string) (string, error) {
	format := "2006-01-02"
	if len(args) >= 1 {
		format = args[0]
	}
	return time.Now().UTC().Format(format), nil
}

func funcRandom(args []string) (string, error) {
	lo, hi := 0, 100
	if len(args) >= 2 {
		var err error
		if lo, err = strconv.Atoi(args[0]); err != nil {
			return "", fmt.Errorf("random() min %q is not an integer", args[0])
		}
		if hi, err = strconv.Atoi(args[1]); err != nil {
			return "", fmt.Errorf("random() max %q is not an integer", args[1])
		}
	}
	if hi < lo {
		return "", fmt.Errorf("random() max %d is below min %d", hi, lo)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(hi-lo+1)))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+int64(lo), 10), nil
}

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func funcRandomString(args []string) (string, error) {
	length := 16
	if len(args) >= 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 0 {
			return "", fmt.Errorf("randomString() length %q is not a valid integer", args[0])
		}
		length = v
	}

	out := make([]byte, length)
	max := big.NewInt(int64(len(alphanumeric)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphanumeric[n.Int64()]
	}
	return string(out), nil
}

func funcBase64(args []string) (string, error) {
	if err := requireArgs("base64", args, 1); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString([]byte(args[0])), nil
}

// funcBasicAuth renders a full Basic Authorization header value
func funcBasicAuth(args []string) (string, error) {
	if err := requireArgs("basicAuth", args, 2); err != nil {
		return "", err
	}
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(args[0]+":"+args[1])), nil
}

func funcURLEncode(args []string) (string, error) {
	if err := requireArgs("urlEncode", args, 1); err != nil {
		return "", err
	}
	return url.QueryEscape(args[0]), nil
}
