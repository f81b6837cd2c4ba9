package http

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

type Request struct {
	Method      string
	URL         string
	Headers     map[string]string
	QueryParams map[string]string
	Body        string
	Timeout     time.Duration
	BasicAuth   *BasicAuthCredentials
}

// BasicAuthCredentials holds credentials for HTTP basic auth.
type BasicAuthCredentials struct {
	Username string
	Password string
}

func NewRequest(method, requestURL string) *Request {
	return &Request{
		Method:      method,
		URL:         requestURL,
		Headers:     make(map[string]string),
		QueryParams: make(map[string]string),
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

func (r *Request) SetBody(body string) *Request {
	r.Body = body
	return r
}

func (r *Request) SetTimeout(d time.Duration) *Request {
	r.Timeout = d
	return r
}

func (r *Request) SetQueryParam(key, value string) *Request {
	r.QueryParams[key] = value
	return r
}

func (r *Request) BuildURL() string {
	if len(r.QueryParams) == 0 {
		return r.URL
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}

	q := u.Query()
	for k, v := range r.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (r *Request) ApplyAuth() {
	if r.BasicAuth == nil {
		return
	}
	creds := r.BasicAuth.Username + ":" + r.BasicAuth.Password
	encoded := base64.StdEncoding.EncodeToString([]byte(creds))
	r.Headers["Authorization"] = "Basic " + encoded
}

// BuildRequest maps a fully resolved request mapping onto a Request.
// The mapping must carry "url" and "method"; recognized optional keys
// are "headers", "params", "body", "json", "timeout" (milliseconds) and
// "auth" ({username, password}). Any other key is rejected so that a
// typo fails the testcase instead of being silently dropped.
func BuildRequest(resolved map[string]any) (*Request, error) {
	requestURL, _ := resolved["url"].(string)
	method, _ := resolved["method"].(string)
	r := NewRequest(method, requestURL)

	for key, value := range resolved {
		switch key {
		case "url", "method":
		case "headers":
			headers, ok := value.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("headers must be a mapping, got %T", value)
			}
			for k, v := range headers {
				r.SetHeader(k, stringify(v))
			}
		case "params":
			params, ok := value.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("params must be a mapping, got %T", value)
			}
			for k, v := range params {
				r.SetQueryParam(k, stringify(v))
			}
		case "body":
			r.SetBody(stringify(value))
		case "json":
			encoded, err := json.Marshal(value)
			if err != nil {
				return nil, fmt.Errorf("encoding json body: %w", err)
			}
			r.SetBody(string(encoded))
			if r.Headers["Content-Type"] == "" {
				r.SetHeader("Content-Type", "application/json")
			}
		case "timeout":
			ms, ok := toMillis(value)
			if !ok {
				return nil, fmt.Errorf("timeout must be a number of milliseconds, got %T", value)
			}
			r.SetTimeout(time.Duration(ms) * time.Millisecond)
		case "auth":
			auth, ok := value.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("auth must be a mapping, got %T", value)
			}
			r.BasicAuth = &BasicAuthCredentials{
				Username: stringify(auth["username"]),
				Password: stringify(auth["password"]),
			}
			r.ApplyAuth()
		default:
			return nil, fmt.Errorf("unsupported request key %q", key)
		}
	}

	r.URL = r.BuildURL()
	r.QueryParams = make(map[string]string)
	return r, nil
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toMillis(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
