package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/restflow/packages/core/model"
	"github.com/abdul-hamid-achik/restflow/packages/core/runner"
	"github.com/abdul-hamid-achik/restflow/packages/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *Report {
	return BuildReport(
		[]model.TestSet{{Name: "auth"}, {Name: "users"}},
		[][]*runner.Result{
			{
				{Name: "login", Success: true, Duration: 12 * time.Millisecond},
				{
					Name:    "bad password",
					Success: false,
					Diffs: []validate.Diff{{
						Check:      "status_code",
						Comparator: "eq",
						Expect:     401,
						Actual:     200,
						Passed:     false,
						Message:    "expected 401, got 200",
					}},
				},
			},
			{
				{Name: "list", Err: errors.New("params: URL or METHOD missed")},
			},
		},
		150*time.Millisecond,
	)
}

func TestBuildReport_AlignsNames(t *testing.T) {
	report := sampleReport()
	require.Len(t, report.Sets, 2)
	assert.Equal(t, "auth", report.Sets[0].Name)
	assert.Equal(t, "users", report.Sets[1].Name)
	assert.Equal(t, 150*time.Millisecond, report.Duration)
}

func TestBuildReport_AbortedRun(t *testing.T) {
	// fewer result slices than testsets: aborted sets are left out
	report := BuildReport(
		[]model.TestSet{{Name: "a"}, {Name: "b"}, {Name: "c"}},
		[][]*runner.Result{{{Name: "only", Success: true}}},
		0,
	)
	require.Len(t, report.Sets, 1)
	assert.Equal(t, "a", report.Sets[0].Name)
}

func TestCounts(t *testing.T) {
	passed, failed, errored := sampleReport().Counts()
	assert.Equal(t, 1, passed)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, errored)
}

func TestConsoleFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))
	f.FormatReport(sampleReport())

	out := buf.String()
	assert.Contains(t, out, "auth")
	assert.Contains(t, out, "login")
	assert.Contains(t, out, "bad password")
	assert.Contains(t, out, "expected 401, got 200")
	assert.Contains(t, out, "URL or METHOD missed")
	assert.Contains(t, out, "1 passed")
	assert.Contains(t, out, "1 failed")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(WithJSONWriter(&buf))
	require.NoError(t, f.FormatReport(sampleReport()))

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, 3, out.Summary.Total)
	assert.Equal(t, 1, out.Summary.Passed)
	assert.Equal(t, 1, out.Summary.Failed)
	assert.Equal(t, 1, out.Summary.Errored)

	require.Len(t, out.TestSets, 2)
	assert.Equal(t, "auth", out.TestSets[0].Name)
	require.Len(t, out.TestSets[0].TestCases, 2)
	assert.True(t, out.TestSets[0].TestCases[0].Success)
	assert.Equal(t, "params: URL or METHOD missed", out.TestSets[1].TestCases[0].Error)
}

func TestJUnitFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJUnitFormatter(WithJUnitWriter(&buf))
	require.NoError(t, f.FormatReport(sampleReport()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, xml.Header))
	assert.Contains(t, out, `name="auth"`)
	assert.Contains(t, out, `name="login"`)
	assert.Contains(t, out, "<failure")
	assert.Contains(t, out, "<error")

	// well-formed XML
	var doc struct {
		XMLName xml.Name `xml:"testsuites"`
	}
	assert.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))
}
