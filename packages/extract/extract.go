// Package extract derives named variables from a response so later
// testcases can reference them.
//
// Extraction paths:
//   - "status_code": the numeric status code
//   - "headers.<Name>": a response header (case-insensitive)
//   - "body": the raw body string
//   - "content.<path>": a value inside a JSON body, gjson path syntax
package extract

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/restflow/packages/http"
	"github.com/tidwall/gjson"
)

type Extractor struct {
	response *http.Response
	bodyJSON gjson.Result
}

func NewExtractor(resp *http.Response) *Extractor {
	e := &Extractor{
		response: resp,
	}
	if resp.IsJSON() {
		e.bodyJSON = gjson.ParseBytes(resp.Body)
	}
	return e
}

// Extract resolves one extraction path against the response.
func (e *Extractor) Extract(path string) (any, error) {
	switch {
	case path == "status_code":
		return e.response.StatusCode, nil
	case path == "body":
		return e.response.BodyString(), nil
	case strings.HasPrefix(path, "headers."):
		name := strings.TrimPrefix(path, "headers.")
		value := e.response.Header(name)
		if value == "" {
			return nil, fmt.Errorf("header %q not present", name)
		}
		return value, nil
	case strings.HasPrefix(path, "content."):
		return e.extractFromContent(strings.TrimPrefix(path, "content."))
	case path == "content":
		return e.extractFromContent("")
	default:
		return nil, fmt.Errorf("invalid extraction path %q", path)
	}
}

func (e *Extractor) extractFromContent(path string) (any, error) {
	if !e.bodyJSON.Exists() {
		return nil, fmt.Errorf("response body is not JSON")
	}
	if path == "" {
		return e.bodyJSON.Value(), nil
	}
	result := e.bodyJSON.Get(path)
	if !result.Exists() {
		return nil, fmt.Errorf("content path %q not found", path)
	}
	return result.Value(), nil
}

// ExtractAll resolves every name→path binding. Any failed path fails the
// whole extraction; partial results are not returned.
func ExtractAll(resp *http.Response, binds map[string]string) (map[string]any, error) {
	extractor := NewExtractor(resp)
	results := make(map[string]any, len(binds))

	for name, path := range binds {
		value, err := extractor.Extract(path)
		if err != nil {
			return nil, fmt.Errorf("extracting %q: %w", name, err)
		}
		results[name] = value
	}

	return results, nil
}
