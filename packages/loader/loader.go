// Package loader reads testset definitions from YAML files into the
// model shapes consumed by the runner. The engine itself is agnostic to
// serialization; this package is the file-based front door used by the
// CLI.
package loader

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/abdul-hamid-achik/restflow/packages/core/model"
	"gopkg.in/yaml.v3"
)

// LoadFile parses one YAML file into testsets. A file may hold a single
// testset document, a sequence of testsets, or multiple documents
// separated by ---; all forms concatenate in order.
func LoadFile(path string) ([]model.TestSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	testsets, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return testsets, nil
}

// LoadFiles concatenates the testsets of several files in input order.
func LoadFiles(paths []string) ([]model.TestSet, error) {
	var all []model.TestSet
	for _, path := range paths {
		testsets, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		all = append(all, testsets...)
	}
	return all, nil
}

// Decode reads every YAML document from r.
func Decode(r io.Reader) ([]model.TestSet, error) {
	var all []model.TestSet
	decoder := yaml.NewDecoder(r)

	for {
		var doc yaml.Node
		if err := decoder.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}

		// the decoder hands back a document node wrapping the real root
		root := &doc
		if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
			root = root.Content[0]
		}

		switch root.Kind {
		case yaml.SequenceNode:
			var testsets []model.TestSet
			if err := root.Decode(&testsets); err != nil {
				return nil, err
			}
			all = append(all, testsets...)
		default:
			var ts model.TestSet
			if err := root.Decode(&ts); err != nil {
				return nil, err
			}
			all = append(all, ts)
		}
	}

	return all, nil
}

// Check lints loaded testsets: every testcase needs a request mapping,
// and validators need a check and a comparator the engine knows how to
// resolve at least syntactically (non-empty). It reports all problems,
// not just the first.
func Check(testsets []model.TestSet) []error {
	var problems []error
	for i, ts := range testsets {
		name := ts.Name
		if name == "" {
			name = fmt.Sprintf("testset[%d]", i)
		}
		if len(ts.TestCases) == 0 {
			problems = append(problems, fmt.Errorf("%s: no testcases", name))
		}
		for j, tc := range ts.TestCases {
			caseName := tc.Name
			if caseName == "" {
				caseName = fmt.Sprintf("testcase[%d]", j)
			}
			if len(tc.Request) == 0 && len(ts.Config.Request) == 0 {
				problems = append(problems, fmt.Errorf("%s/%s: no request", name, caseName))
			}
			for k, v := range tc.Validators {
				if v.Check == "" {
					problems = append(problems, fmt.Errorf("%s/%s: validator[%d] has no check", name, caseName, k))
				}
			}
		}
	}
	return problems
}
