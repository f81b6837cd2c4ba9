package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/restflow/packages/validate"
)

// JSONOutput is the root of the machine-readable report.
type JSONOutput struct {
	Summary  JSONSummary   `json:"summary"`
	TestSets []JSONTestSet `json:"testsets"`
	Duration float64       `json:"duration"`
	Time     string        `json:"time"`
}

type JSONSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
}

type JSONTestSet struct {
	Name      string     `json:"name"`
	TestCases []JSONTest `json:"testcases"`
}

type JSONTest struct {
	Name      string          `json:"name"`
	Success   bool            `json:"success"`
	Duration  float64         `json:"duration"`
	Status    int             `json:"status,omitempty"`
	Error     string          `json:"error,omitempty"`
	Diffs     []validate.Diff `json:"diffs,omitempty"`
	Extracted map[string]any  `json:"extracted,omitempty"`
}

type JSONFormatter struct {
	writer io.Writer
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func WithJSONWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatReport(report *Report) error {
	passed, failed, errored := report.Counts()
	out := JSONOutput{
		Summary: JSONSummary{
			Total:   passed + failed + errored,
			Passed:  passed,
			Failed:  failed,
			Errored: errored,
		},
		Duration: report.Duration.Seconds(),
		Time:     time.Now().UTC().Format(time.RFC3339),
	}

	for _, set := range report.Sets {
		jsonSet := JSONTestSet{Name: set.Name}
		for _, r := range set.Results {
			test := JSONTest{
				Name:      r.Name,
				Success:   r.Success,
				Duration:  r.Duration.Seconds(),
				Diffs:     r.Diffs,
				Extracted: r.Extracted,
			}
			if r.Response != nil {
				test.Status = r.Response.StatusCode
			}
			if r.Err != nil {
				test.Error = r.Err.Error()
			}
			jsonSet.TestCases = append(jsonSet.TestCases, test)
		}
		out.TestSets = append(out.TestSets, jsonSet)
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
