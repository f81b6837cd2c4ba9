package extract

import (
	"testing"

	"github.com/abdul-hamid-achik/restflow/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonResponse(t *testing.T, body string) *http.Response {
	t.Helper()
	return &http.Response{
		StatusCode: 200,
		Status:     "200 OK",
		Headers: map[string]string{
			"Content-Type": "application/json",
			"X-Request-Id": "req-42",
		},
		Body: []byte(body),
	}
}

func TestExtract_StatusCode(t *testing.T) {
	resp := jsonResponse(t, `{}`)
	value, err := NewExtractor(resp).Extract("status_code")
	require.NoError(t, err)
	assert.Equal(t, 200, value)
}

func TestExtract_Body(t *testing.T) {
	resp := jsonResponse(t, `{"a": 1}`)
	value, err := NewExtractor(resp).Extract("body")
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, value)
}

func TestExtract_Header(t *testing.T) {
	resp := jsonResponse(t, `{}`)
	e := NewExtractor(resp)

	value, err := e.Extract("headers.X-Request-Id")
	require.NoError(t, err)
	assert.Equal(t, "req-42", value)

	// header lookup is case-insensitive
	value, err = e.Extract("headers.x-request-id")
	require.NoError(t, err)
	assert.Equal(t, "req-42", value)

	_, err = e.Extract("headers.X-Missing")
	assert.Error(t, err)
}

func TestExtract_Content(t *testing.T) {
	resp := jsonResponse(t, `{"user": {"id": 7, "name": "ada"}, "tags": ["a", "b"]}`)
	e := NewExtractor(resp)

	value, err := e.Extract("content.user.name")
	require.NoError(t, err)
	assert.Equal(t, "ada", value)

	// JSON numbers come back as float64
	value, err = e.Extract("content.user.id")
	require.NoError(t, err)
	assert.Equal(t, float64(7), value)

	value, err = e.Extract("content.tags.1")
	require.NoError(t, err)
	assert.Equal(t, "b", value)

	value, err = e.Extract("content")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"user": map[string]any{"id": float64(7), "name": "ada"},
		"tags": []any{"a", "b"},
	}, value)

	_, err = e.Extract("content.user.missing")
	assert.Error(t, err)
}

func TestExtract_ContentOnNonJSONBody(t *testing.T) {
	resp := &http.Response{
		StatusCode: 200,
		Headers:    map[string]string{"Content-Type": "text/plain"},
		Body:       []byte("hello"),
	}
	_, err := NewExtractor(resp).Extract("content.a")
	assert.Error(t, err)
}

func TestExtract_InvalidPath(t *testing.T) {
	resp := jsonResponse(t, `{}`)
	_, err := NewExtractor(resp).Extract("cookies.session")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid extraction path")
}

func TestExtractAll(t *testing.T) {
	resp := jsonResponse(t, `{"token": "abc", "count": 3}`)

	values, err := ExtractAll(resp, map[string]string{
		"token":  "content.token",
		"count":  "content.count",
		"status": "status_code",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"token":  "abc",
		"count":  float64(3),
		"status": 200,
	}, values)
}

func TestExtractAll_AnyFailurePoisonsAll(t *testing.T) {
	resp := jsonResponse(t, `{"token": "abc"}`)

	values, err := ExtractAll(resp, map[string]string{
		"token":   "content.token",
		"missing": "content.nope",
	})
	require.Error(t, err)
	assert.Nil(t, values)
}

func TestExtractAll_EmptyBinds(t *testing.T) {
	resp := jsonResponse(t, `{}`)
	values, err := ExtractAll(resp, nil)
	require.NoError(t, err)
	assert.Empty(t, values)
}
