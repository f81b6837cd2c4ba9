// Package template substitutes ${name} placeholders inside arbitrarily
// nested request descriptions. Resolution never mutates its input and
// performs no I/O; resolving an already-resolved value returns an equal
// copy.
package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/restflow/packages/core/fault"
	"github.com/mohae/deepcopy"
)

var placeholderPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Resolve walks value depth-first and returns a structurally identical
// deep copy with every placeholder replaced from vars. A string that is
// exactly one placeholder takes the variable's native value; a string
// with surrounding text gets the value stringified inline. A placeholder
// naming a variable absent from vars yields a VariableNotFound fault
// identifying the name and the containing path.
func Resolve(value any, vars map[string]any) (any, error) {
	return resolve(value, vars, "$")
}

// ResolveString resolves placeholders in a single string value.
func ResolveString(s string, vars map[string]any) (any, error) {
	return resolve(s, vars, "$")
}

func resolve(value any, vars map[string]any, path string) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, elem := range v {
			resolved, err := resolve(elem, vars, path+"."+key)
			if err != nil {
				return nil, err
			}
			out[key] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			resolved, err := resolve(elem, vars, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	case string:
		return resolveStr(v, vars, path)
	default:
		// number, bool, nil: nothing to substitute
		return v, nil
	}
}

func resolveStr(s string, vars map[string]any, path string) (any, error) {
	// exact single placeholder keeps the variable's native type; the
	// value is copied so resolved output never aliases the variable table
	if name, ok := exactPlaceholder(s); ok {
		val, ok := vars[name]
		if !ok {
			return nil, fault.New(fault.VariableNotFound, "variable %q not bound (at %s)", name, path)
		}
		return deepcopy.Copy(val), nil
	}

	var missing string
	replaced := placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-1])
		val, ok := vars[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return match
		}
		return fmt.Sprintf("%v", val)
	})
	if missing != "" {
		return nil, fault.New(fault.VariableNotFound, "variable %q not bound (at %s)", missing, path)
	}
	return replaced, nil
}

func exactPlaceholder(s string) (string, bool) {
	loc := placeholderPattern.FindStringIndex(s)
	if loc == nil || loc[0] != 0 || loc[1] != len(s) {
		return "", false
	}
	return strings.TrimSpace(s[2 : len(s)-1]), true
}
