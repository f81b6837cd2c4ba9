package runner

import (
	"encoding/json"
	"fmt"
	stdhttp "net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/abdul-hamid-achik/restflow/packages/core/context"
	"github.com/abdul-hamid-achik/restflow/packages/core/fault"
	"github.com/abdul-hamid-achik/restflow/packages/core/model"
	"github.com/abdul-hamid-achik/restflow/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer replies with a JSON document describing the request it saw.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		headers := make(map[string]string)
		for k := range r.Header {
			headers[k] = r.Header.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"method":  r.Method,
			"path":    r.URL.Path,
			"query":   r.URL.RawQuery,
			"headers": headers,
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestRunner() *Runner {
	return NewRunner(context.New(), &Config{FollowRedirect: true, ValidateSSL: true})
}

func TestRunTest_EndToEnd(t *testing.T) {
	server := echoServer(t)
	r := newTestRunner()

	// suite config binds H and declares a header default referencing it
	require.NoError(t, r.ApplyConfig(model.Config{
		VariableBinds: []map[string]any{{"H": "abc"}},
		Request: map[string]any{
			"headers": map[string]any{"A": "${H}"},
		},
	}, LevelTestSet))

	result, err := r.RunTest(model.TestCase{
		Name:    "get",
		Request: map[string]any{"url": server.URL + "/y", "method": "GET"},
		Validators: []model.Validator{
			{Check: "status_code", Comparator: "eq", Expect: 200},
			{Check: "content.headers.A", Comparator: "eq", Expect: "abc"},
			{Check: "content.path", Comparator: "eq", Expect: "/y"},
		},
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	for _, d := range result.Diffs {
		assert.True(t, d.Passed, "diff %s: %s", d.Check, d.Message)
	}
}

func TestRunTest_OverridePrecedence(t *testing.T) {
	server := echoServer(t)
	r := newTestRunner()

	require.NoError(t, r.ApplyConfig(model.Config{
		Request: map[string]any{
			"url":     server.URL,
			"method":  "GET",
			"headers": map[string]any{"X-Suite": "1", "X-Kept": "keep"},
		},
	}, LevelTestSet))

	result, err := r.RunTest(model.TestCase{
		Name: "override",
		Request: map[string]any{
			"headers": map[string]any{"X-Suite": "2"},
		},
		Validators: []model.Validator{
			{Check: "content.headers.X-Suite", Comparator: "eq", Expect: "2"},
		},
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestRunTest_SuiteDefaultsNotAliased(t *testing.T) {
	server := echoServer(t)
	r := newTestRunner()

	require.NoError(t, r.ApplyConfig(model.Config{
		Request: map[string]any{
			"url":     server.URL,
			"method":  "GET",
			"headers": map[string]any{"X-Mode": "default"},
		},
	}, LevelTestSet))

	first, err := r.RunTest(model.TestCase{
		Name: "case1 overrides",
		Request: map[string]any{
			"headers": map[string]any{"X-Mode": "special"},
		},
		Validators: []model.Validator{
			{Check: "content.headers.X-Mode", Comparator: "eq", Expect: "special"},
		},
	})
	require.NoError(t, err)
	assert.True(t, first.Success)

	// the sibling must still see the original suite default
	second, err := r.RunTest(model.TestCase{
		Name:    "case2 inherits",
		Request: map[string]any{},
		Validators: []model.Validator{
			{Check: "content.headers.X-Mode", Comparator: "eq", Expect: "default"},
		},
	})
	require.NoError(t, err)
	assert.True(t, second.Success)
}

func TestRunTest_MissingMethodIsParamsError(t *testing.T) {
	r := newTestRunner()

	_, err := r.RunTest(model.TestCase{
		Name:    "no method",
		Request: map[string]any{"url": "http://example.com"},
	})

	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.Params))
	assert.Contains(t, err.Error(), "URL or METHOD missed")
}

func TestRunTest_RequiredFieldsCheckedAfterResolution(t *testing.T) {
	server := echoServer(t)
	r := newTestRunner()

	// url and method arrive only through suite defaults and templates
	require.NoError(t, r.ApplyConfig(model.Config{
		VariableBinds: []map[string]any{{"base": server.URL}},
		Request: map[string]any{
			"url":    "${base}/inherited",
			"method": "GET",
		},
	}, LevelTestSet))

	result, err := r.RunTest(model.TestCase{
		Name:    "inherited url",
		Request: map[string]any{},
		Validators: []model.Validator{
			{Check: "content.path", Comparator: "eq", Expect: "/inherited"},
		},
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestRunTest_UnresolvedPlaceholderFails(t *testing.T) {
	r := newTestRunner()

	_, err := r.RunTest(model.TestCase{
		Name: "bad placeholder",
		Request: map[string]any{
			"url":    "http://example.com/${missing}",
			"method": "GET",
		},
	})

	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.VariableNotFound))
}

func TestRunTestSet_ExtractionAccretesAcrossTestcases(t *testing.T) {
	var mu sync.Mutex
	var seenAuth string
	server := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/login":
			fmt.Fprint(w, `{"token": "tok-123"}`)
		default:
			mu.Lock()
			seenAuth = r.Header.Get("Authorization")
			mu.Unlock()
			fmt.Fprint(w, `{"ok": true}`)
		}
	}))
	defer server.Close()

	r := newTestRunner()
	results, err := r.RunTestSet(model.TestSet{
		Name: "login flow",
		TestCases: []model.TestCase{
			{
				Name:         "login",
				Request:      map[string]any{"url": server.URL + "/login", "method": "POST"},
				ExtractBinds: map[string]string{"token": "content.token"},
			},
			{
				Name: "use token",
				Request: map[string]any{
					"url":     server.URL + "/private",
					"method":  "GET",
					"headers": map[string]any{"Authorization": "Bearer ${token}"},
				},
			},
		},
	})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success)
	assert.Equal(t, map[string]any{"token": "tok-123"}, results[0].Extracted)
	assert.Equal(t, "Bearer tok-123", seenAuth)
}

func TestRunTestSets_ContextAccretesAcrossTestsets(t *testing.T) {
	server := echoServer(t)
	r := newTestRunner()

	results, err := r.RunTestSets([]model.TestSet{
		{
			Name: "first",
			Config: model.Config{
				VariableBinds: []map[string]any{{"shared": "from-first"}},
			},
			TestCases: []model.TestCase{
				{Name: "noop", Request: map[string]any{"url": server.URL, "method": "GET"}},
			},
		},
		{
			Name: "second",
			TestCases: []model.TestCase{
				{
					Name: "sees first's variable",
					Request: map[string]any{
						"url":     server.URL,
						"method":  "GET",
						"headers": map[string]any{"X-Shared": "${shared}"},
					},
					Validators: []model.Validator{
						{Check: "content.headers.X-Shared", Comparator: "eq", Expect: "from-first"},
					},
				},
			},
		},
	})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[1][0].Success)
}

func TestRunTestSets_SecondTestsetRequestReplacesSnapshot(t *testing.T) {
	server := echoServer(t)
	r := newTestRunner()

	results, err := r.RunTestSets([]model.TestSet{
		{
			Name: "first",
			Config: model.Config{
				Request: map[string]any{"headers": map[string]any{"X-Set": "one"}},
			},
			TestCases: []model.TestCase{
				{
					Name:    "one",
					Request: map[string]any{"url": server.URL, "method": "GET"},
					Validators: []model.Validator{
						{Check: "content.headers.X-Set", Comparator: "eq", Expect: "one"},
					},
				},
			},
		},
		{
			Name: "second",
			Config: model.Config{
				Request: map[string]any{"headers": map[string]any{"X-Set": "two"}},
			},
			TestCases: []model.TestCase{
				{
					Name:    "two",
					Request: map[string]any{"url": server.URL, "method": "GET"},
					Validators: []model.Validator{
						{Check: "content.headers.X-Set", Comparator: "eq", Expect: "two"},
					},
				},
			},
		},
	})

	require.NoError(t, err)
	assert.True(t, results[0][0].Success)
	assert.True(t, results[1][0].Success)
}

func TestRunTestSet_ErrorRecordedAndRunContinues(t *testing.T) {
	server := echoServer(t)
	r := newTestRunner()

	results, err := r.RunTestSet(model.TestSet{
		Name: "mixed",
		TestCases: []model.TestCase{
			{Name: "broken", Request: map[string]any{"url": "http://example.com"}},
			{Name: "fine", Request: map[string]any{"url": server.URL, "method": "GET"}},
		},
	})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.True(t, fault.IsKind(results[0].Err, fault.Params))
	assert.True(t, results[1].Success)
}

func TestRunTestSet_BailStopsOnError(t *testing.T) {
	server := echoServer(t)
	r := NewRunner(context.New(), &Config{FollowRedirect: true, ValidateSSL: true, Bail: true})

	results, err := r.RunTestSet(model.TestSet{
		Name: "bail",
		TestCases: []model.TestCase{
			{Name: "broken", Request: map[string]any{"url": "http://example.com"}},
			{Name: "never runs", Request: map[string]any{"url": server.URL, "method": "GET"}},
		},
	})

	require.Error(t, err)
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
}

func TestRunTest_ValidatorFailureIsNotAnError(t *testing.T) {
	server := echoServer(t)
	r := newTestRunner()

	result, err := r.RunTest(model.TestCase{
		Name:    "failing validator",
		Request: map[string]any{"url": server.URL, "method": "GET"},
		Validators: []model.Validator{
			{Check: "status_code", Comparator: "eq", Expect: 418},
		},
	})

	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Diffs, 1)
	assert.False(t, result.Diffs[0].Passed)
	assert.Equal(t, 200, result.Diffs[0].Actual)
}

func TestNewRunner_WithClient(t *testing.T) {
	server := echoServer(t)

	shared := http.NewClient(http.WithDefaultHeader("X-Pool", "shared"))
	r := NewRunner(context.New(), &Config{FollowRedirect: true, ValidateSSL: true}, WithClient(shared))

	result, err := r.RunTest(model.TestCase{
		Name:    "uses injected client",
		Request: map[string]any{"url": server.URL, "method": "GET"},
		Validators: []model.Validator{
			{Check: "content.headers.X-Pool", Comparator: "eq", Expect: "shared"},
		},
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestRunTest_TestcaseBindingsOverrideTestset(t *testing.T) {
	server := echoServer(t)
	r := newTestRunner()

	require.NoError(t, r.ApplyConfig(model.Config{
		VariableBinds: []map[string]any{{"who": "suite"}},
	}, LevelTestSet))

	result, err := r.RunTest(model.TestCase{
		Name:          "case overrides",
		VariableBinds: []map[string]any{{"who": "case"}},
		Request: map[string]any{
			"url":     server.URL,
			"method":  "GET",
			"headers": map[string]any{"X-Who": "${who}"},
		},
		Validators: []model.Validator{
			{Check: "content.headers.X-Who", Comparator: "eq", Expect: "case"},
		},
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
}
