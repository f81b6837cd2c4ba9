// Package runner orchestrates testset execution.
//
// For each testset it applies the suite configuration to the Context and
// snapshots the suite request defaults; for each testcase it applies the
// case configuration, merges the case request over a copy of the suite
// defaults, resolves templates, dispatches the request, extracts
// response values back into the Context and runs the validators.
//
// Execution is strictly sequential: later testcases depend on variables
// bound or extracted by earlier ones. One Runner must not be shared
// across goroutines.
package runner
