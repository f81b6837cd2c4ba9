package builtin

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Func is a generator function callable from variable bindings.
type Func func(args ...any) (any, error)

// Registry maps symbolic names to functions. One registry lives for the
// duration of a run; module imports and Register calls extend it in place.
type Registry struct {
	funcs   map[string]Func
	modules map[string]bool
}

func NewRegistry() *Registry {
	r := &Registry{
		funcs:   make(map[string]Func),
		modules: make(map[string]bool),
	}
	// the core module is always available
	for name, fn := range moduleTable["core"] {
		r.funcs[name] = fn
	}
	r.modules["core"] = true
	return r
}

// Import loads a feature module's functions into the registry. Importing
// an already-loaded module is a no-op.
func (r *Registry) Import(module string) error {
	if r.modules[module] {
		return nil
	}
	fns, ok := moduleTable[module]
	if !ok {
		return fmt.Errorf("unknown module %q", module)
	}
	for name, fn := range fns {
		r.funcs[name] = fn
	}
	r.modules[module] = true
	return nil
}

// Imported reports whether a module has been loaded.
func (r *Registry) Imported(module string) bool {
	return r.modules[module]
}

// Register adds or replaces a function under the given name.
func (r *Registry) Register(name string, fn Func) {
	r.funcs[name] = fn
}

// Lookup returns the function bound under name.
func (r *Registry) Lookup(name string) (Func, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

// Call invokes the named function.
func (r *Registry) Call(name string, args ...any) (any, error) {
	fn, ok := r.funcs[name]
	if !ok {
		return nil, fmt.Errorf("unknown function %q", name)
	}
	return fn(args...)
}

var bindExprPattern = regexp.MustCompile(`^(\w+)(?:\((.*)\))?$`)

// Bind resolves a binding expression to a callable. The expression is
// either a bare function name ("sha256") or a name with leading bound
// arguments ("random_string(8)"); bound arguments are prepended to the
// arguments of each later call.
func (r *Registry) Bind(expr string) (Func, error) {
	matches := bindExprPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if matches == nil {
		return nil, fmt.Errorf("invalid binding expression %q", expr)
	}
	name := matches[1]
	fn, ok := r.funcs[name]
	if !ok {
		return nil, fmt.Errorf("unknown function %q", name)
	}
	if matches[2] == "" {
		return fn, nil
	}
	bound := parseArgs(matches[2])
	return func(args ...any) (any, error) {
		return fn(append(append([]any{}, bound...), args...)...)
	}, nil
}

// parseArgs splits a comma-separated argument list, honoring single and
// double quotes, and coerces unquoted literals to int/float/bool.
func parseArgs(s string) []any {
	var args []any
	var current strings.Builder
	inQuote := false
	quoted := false
	quoteChar := byte(0)

	flush := func() {
		raw := strings.TrimSpace(current.String())
		current.Reset()
		wasQuoted := quoted
		quoted = false
		if raw == "" && !wasQuoted {
			return
		}
		if wasQuoted {
			args = append(args, raw)
			return
		}
		args = append(args, coerceLiteral(raw))
	}

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case !inQuote && (ch == '"' || ch == '\''):
			inQuote = true
			quoted = true
			quoteChar = ch
		case inQuote && ch == quoteChar:
			inQuote = false
			quoteChar = 0
		case !inQuote && ch == ',':
			flush()
		default:
			current.WriteByte(ch)
		}
	}
	flush()
	return args
}

func coerceLiteral(raw string) any {
	if v, err := strconv.Atoi(raw); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseBool(raw); err == nil {
		return v
	}
	return raw
}

var moduleTable = map[string]map[string]Func{
	"core": {
		"env":    funcEnv,
		"concat": funcConcat,
		"upper":  funcUpper,
		"lower":  funcLower,
	},
	"random": {
		"random_string": funcRandomString,
		"random_int":    funcRandomInt,
		"uuid":          funcUUID,
	},
	"hash": {
		"md5":         funcMD5,
		"sha256":      funcSHA256,
		"hmac_sha256": funcHMACSHA256,
	},
	"encode": {
		"base64":        funcBase64,
		"base64_decode": funcBase64Decode,
		"url_encode":    funcURLEncode,
		"url_decode":    funcURLDecode,
	},
	"time": {
		"timestamp":    funcTimestamp,
		"timestamp_ms": funcTimestampMs,
		"now":          funcNow,
		"date":         funcDate,
	},
}

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func argString(args []any, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("missing argument %d", i+1)
	}
	switch v := args[i].(type) {
	case string:
		return v, nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

func argInt(args []any, i int) (int, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing argument %d", i+1)
	}
	switch v := args[i].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("argument %d: %q is not an integer", i+1, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("argument %d: %T is not an integer", i+1, args[i])
	}
}

func joinArgs(args []any) string {
	var b strings.Builder
	for _, a := range args {
		fmt.Fprintf(&b, "%v", a)
	}
	return b.String()
}

func funcEnv(args ...any) (any, error) {
	name, err := argString(args, 0)
	if err != nil {
		return nil, err
	}
	return os.Getenv(name), nil
}

func funcConcat(args ...any) (any, error) {
	return joinArgs(args), nil
}

func funcUpper(args ...any) (any, error) {
	s, err := argString(args, 0)
	if err != nil {
		return nil, err
	}
	return strings.ToUpper(s), nil
}

func funcLower(args ...any) (any, error) {
	s, err := argString(args, 0)
	if err != nil {
		return nil, err
	}
	return strings.ToLower(s), nil
}

func funcRandomString(args ...any) (any, error) {
	length, err := argInt(args, 0)
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, fmt.Errorf("length must be non-negative, got %d", length)
	}
	result := make([]byte, length)
	for i := range result {
		result[i] = alphanumeric[rand.Intn(len(alphanumeric))]
	}
	return string(result), nil
}

func funcRandomInt(args ...any) (any, error) {
	min, err := argInt(args, 0)
	if err != nil {
		return nil, err
	}
	max, err := argInt(args, 1)
	if err != nil {
		return nil, err
	}
	if max < min {
		return nil, fmt.Errorf("invalid range [%d, %d]", min, max)
	}
	return rand.Intn(max-min+1) + min, nil
}

func funcUUID(...any) (any, error) {
	return uuid.New().String(), nil
}

func funcMD5(args ...any) (any, error) {
	sum := md5.Sum([]byte(joinArgs(args)))
	return hex.EncodeToString(sum[:]), nil
}

func funcSHA256(args ...any) (any, error) {
	sum := sha256.Sum256([]byte(joinArgs(args)))
	return hex.EncodeToString(sum[:]), nil
}

func funcHMACSHA256(args ...any) (any, error) {
	key, err := argString(args, 0)
	if err != nil {
		return nil, err
	}
	message, err := argString(args, 1)
	if err != nil {
		return nil, err
	}
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func funcBase64(args ...any) (any, error) {
	s, err := argString(args, 0)
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.EncodeToString([]byte(s)), nil
}

func funcBase64Decode(args ...any) (any, error) {
	s, err := argString(args, 0)
	if err != nil {
		return nil, err
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding base64: %w", err)
	}
	return string(decoded), nil
}

func funcURLEncode(args ...any) (any, error) {
	s, err := argString(args, 0)
	if err != nil {
		return nil, err
	}
	return url.QueryEscape(s), nil
}

func funcURLDecode(args ...any) (any, error) {
	s, err := argString(args, 0)
	if err != nil {
		return nil, err
	}
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return nil, fmt.Errorf("decoding url: %w", err)
	}
	return decoded, nil
}

func funcTimestamp(...any) (any, error) {
	return time.Now().Unix(), nil
}

func funcTimestampMs(...any) (any, error) {
	return time.Now().UnixMilli(), nil
}

func funcNow(...any) (any, error) {
	return time.Now().UTC().Format(time.RFC3339), nil
}

func funcDate(args ...any) (any, error) {
	layout := "2006-01-02"
	if len(args) >= 1 {
		s, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		layout = s
	}
	return time.Now().UTC().Format(layout), nil
}
