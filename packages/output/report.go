package output

import (
	"time"

	"github.com/abdul-hamid-achik/restflow/packages/core/model"
	"github.com/abdul-hamid-achik/restflow/packages/core/runner"
)

// SetResult pairs a testset with its per-testcase results.
type SetResult struct {
	Name    string
	Results []*runner.Result
}

// Report is one whole run, ready for formatting.
type Report struct {
	Sets     []SetResult
	Duration time.Duration
}

// BuildReport aligns runner output with the testsets that produced it.
// The two slices are index-aligned by construction; a short results
// slice (aborted run) leaves the remaining testsets out of the report.
func BuildReport(testsets []model.TestSet, results [][]*runner.Result, duration time.Duration) *Report {
	report := &Report{Duration: duration}
	for i, setResults := range results {
		name := ""
		if i < len(testsets) {
			name = testsets[i].Name
		}
		report.Sets = append(report.Sets, SetResult{Name: name, Results: setResults})
	}
	return report
}

// Counts tallies passed, failed and errored testcases.
func (r *Report) Counts() (passed, failed, errored int) {
	for _, set := range r.Sets {
		for _, result := range set.Results {
			switch {
			case result.Err != nil:
				errored++
			case result.Success:
				passed++
			default:
				failed++
			}
		}
	}
	return passed, failed, errored
}
