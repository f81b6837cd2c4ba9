// Package validate evaluates declared validators against a response and
// produces one diff record per validator.
package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/restflow/packages/core/model"
	"github.com/abdul-hamid-achik/restflow/packages/core/template"
	"github.com/abdul-hamid-achik/restflow/packages/extract"
	"github.com/abdul-hamid-achik/restflow/packages/http"
	"github.com/xeipuuv/gojsonschema"
)

// Diff is the outcome of one validator: what was checked, what was
// expected, what the response actually held.
type Diff struct {
	Check      string `json:"check"`
	Comparator string `json:"comparator"`
	Expect     any    `json:"expect"`
	Actual     any    `json:"actual"`
	Passed     bool   `json:"passed"`
	Message    string `json:"message,omitempty"`
}

// Validate runs every validator in order. Expected values may contain
// ${name} placeholders resolved against vars before comparison. The
// returned success flag is true when all diffs passed and, unless a
// status_code validator was declared, the response status is a success
// class.
func Validate(resp *http.Response, validators []model.Validator, vars map[string]any) (bool, []Diff, error) {
	extractor := extract.NewExtractor(resp)
	diffs := make([]Diff, 0, len(validators))

	success := true
	statusChecked := false

	for _, v := range validators {
		expect, err := template.Resolve(v.Expect, vars)
		if err != nil {
			return false, diffs, err
		}

		diff := Diff{
			Check:      v.Check,
			Comparator: v.Comparator,
			Expect:     expect,
		}

		actual, err := extractor.Extract(v.Check)
		if err != nil {
			diff.Passed = false
			diff.Message = err.Error()
		} else {
			diff.Actual = actual
			diff.Passed, diff.Message = compare(actual, v.Comparator, expect)
		}

		if v.Check == "status_code" {
			statusChecked = true
		}
		if !diff.Passed {
			success = false
		}
		diffs = append(diffs, diff)
	}

	if !statusChecked && !resp.IsSuccess() {
		success = false
	}

	return success, diffs, nil
}

func compare(actual any, comparator string, expect any) (bool, string) {
	switch comparator {
	case "eq", "equals", "":
		return equals(actual, expect)
	case "ne", "not_equals":
		passed, _ := equals(actual, expect)
		if passed {
			return false, fmt.Sprintf("expected not to equal %v", expect)
		}
		return true, ""
	case "gt":
		return compareNumeric(actual, expect, ">")
	case "gte":
		return compareNumeric(actual, expect, ">=")
	case "lt":
		return compareNumeric(actual, expect, "<")
	case "lte":
		return compareNumeric(actual, expect, "<=")
	case "len_eq":
		return lengthEquals(actual, expect)
	case "contains":
		return contains(actual, expect)
	case "contained_by":
		return contains(expect, actual)
	case "startswith":
		return startsWith(actual, expect)
	case "endswith":
		return endsWith(actual, expect)
	case "regex":
		return matches(actual, expect)
	case "type":
		return typeCheck(actual, expect)
	case "in":
		return in(actual, expect)
	case "json_schema":
		return schema(actual, expect)
	default:
		return false, fmt.Sprintf("unknown comparator: %q", comparator)
	}
}

func equals(actual, expect any) (bool, string) {
	if reflect.DeepEqual(actual, expect) {
		return true, ""
	}

	actualNum, aOk := toFloat64(actual)
	expectNum, eOk := toFloat64(expect)
	if aOk && eOk && actualNum == expectNum {
		return true, ""
	}

	return false, fmt.Sprintf("expected %v, got %v", expect, actual)
}

func compareNumeric(actual, expect any, op string) (bool, string) {
	actualNum, aOk := toFloat64(actual)
	expectNum, eOk := toFloat64(expect)
	if !aOk || !eOk {
		return false, fmt.Sprintf("cannot compare %T %s %T numerically", actual, op, expect)
	}

	var passed bool
	switch op {
	case ">":
		passed = actualNum > expectNum
	case ">=":
		passed = actualNum >= expectNum
	case "<":
		passed = actualNum < expectNum
	case "<=":
		passed = actualNum <= expectNum
	}
	if !passed {
		return false, fmt.Sprintf("expected %v %s %v", actualNum, op, expectNum)
	}
	return true, ""
}

func lengthEquals(actual, expect any) (bool, string) {
	expectLen, ok := toFloat64(expect)
	if !ok {
		return false, fmt.Sprintf("len_eq expects a number, got %T", expect)
	}

	var actualLen int
	switch v := actual.(type) {
	case string:
		actualLen = len(v)
	case []any:
		actualLen = len(v)
	case map[string]any:
		actualLen = len(v)
	case nil:
		actualLen = 0
	default:
		return false, fmt.Sprintf("cannot take length of %T", actual)
	}

	if float64(actualLen) != expectLen {
		return false, fmt.Sprintf("expected length %v, got %d", expect, actualLen)
	}
	return true, ""
}

func contains(haystack, needle any) (bool, string) {
	switch h := haystack.(type) {
	case string:
		if strings.Contains(h, stringify(needle)) {
			return true, ""
		}
	case []any:
		for _, elem := range h {
			if passed, _ := equals(elem, needle); passed {
				return true, ""
			}
		}
	case map[string]any:
		if _, ok := h[stringify(needle)]; ok {
			return true, ""
		}
	}
	return false, fmt.Sprintf("%v does not contain %v", haystack, needle)
}

func startsWith(actual, expect any) (bool, string) {
	if strings.HasPrefix(stringify(actual), stringify(expect)) {
		return true, ""
	}
	return false, fmt.Sprintf("%v does not start with %v", actual, expect)
}

func endsWith(actual, expect any) (bool, string) {
	if strings.HasSuffix(stringify(actual), stringify(expect)) {
		return true, ""
	}
	return false, fmt.Sprintf("%v does not end with %v", actual, expect)
}

func matches(actual, expect any) (bool, string) {
	pattern, ok := expect.(string)
	if !ok {
		return false, fmt.Sprintf("regex comparator expects a string pattern, got %T", expect)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Sprintf("invalid pattern: %v", err)
	}
	if re.MatchString(stringify(actual)) {
		return true, ""
	}
	return false, fmt.Sprintf("%v does not match %q", actual, pattern)
}

func typeCheck(actual, expect any) (bool, string) {
	want, ok := expect.(string)
	if !ok {
		return false, fmt.Sprintf("type comparator expects a type name, got %T", expect)
	}

	var got string
	switch actual.(type) {
	case string:
		got = "string"
	case float64, int, int64:
		got = "number"
	case bool:
		got = "boolean"
	case []any:
		got = "array"
	case map[string]any:
		got = "object"
	case nil:
		got = "null"
	default:
		got = fmt.Sprintf("%T", actual)
	}

	if got != want {
		return false, fmt.Sprintf("expected type %s, got %s", want, got)
	}
	return true, ""
}

func in(actual, expect any) (bool, string) {
	options, ok := expect.([]any)
	if !ok {
		return false, fmt.Sprintf("in comparator expects a list, got %T", expect)
	}
	for _, option := range options {
		if passed, _ := equals(actual, option); passed {
			return true, ""
		}
	}
	return false, fmt.Sprintf("%v is not in %v", actual, options)
}

func schema(actual, expect any) (bool, string) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(expect),
		gojsonschema.NewGoLoader(actual),
	)
	if err != nil {
		return false, fmt.Sprintf("schema validation: %v", err)
	}
	if result.Valid() {
		return true, ""
	}
	var issues []string
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return false, strings.Join(issues, "; ")
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
