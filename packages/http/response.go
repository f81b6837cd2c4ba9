package http

import (
	"strings"
	"time"
)

// Response is the flattened outcome of one dispatched request: status,
// single-valued headers, the raw body bytes and the observed latency.
// Extraction and validation read it; nothing downstream needs the
// underlying net/http response.
type Response struct {
	StatusCode int
	Status     string
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
}

// Header looks up a header value by case-insensitive name. Missing
// headers return the empty string.
func (r *Response) Header(key string) string {
	for name, value := range r.Headers {
		if strings.EqualFold(name, key) {
			return value
		}
	}
	return ""
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

// IsJSON reports whether the Content-Type declares a JSON body, charset
// parameters included.
func (r *Response) IsJSON() bool {
	return strings.Contains(r.Header("Content-Type"), "application/json")
}

// IsSuccess reports whether the status is in the 2xx class. It is the
// default pass criterion when no status_code validator is declared.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
