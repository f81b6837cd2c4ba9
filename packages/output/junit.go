package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// JUnitTestSuites is the root element
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	Timestamp  string           `xml:"timestamp,attr,omitempty"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite represents one testset
type JUnitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Time      float64         `xml:"time,attr"`
	TestCases []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase represents a single testcase
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
}

type JUnitFailure struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

type JUnitError struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// JUnitFormatter formats run results as JUnit XML
type JUnitFormatter struct {
	writer io.Writer
}

type JUnitOption func(*JUnitFormatter)

func NewJUnitFormatter(opts ...JUnitOption) *JUnitFormatter {
	f := &JUnitFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func WithJUnitWriter(w io.Writer) JUnitOption {
	return func(f *JUnitFormatter) {
		f.writer = w
	}
}

func (f *JUnitFormatter) FormatReport(report *Report) error {
	root := JUnitTestSuites{
		Name:      "restflow",
		Time:      report.Duration.Seconds(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	for _, set := range report.Sets {
		suite := JUnitTestSuite{Name: set.Name}
		for _, r := range set.Results {
			tc := JUnitTestCase{
				Name:      r.Name,
				ClassName: set.Name,
				Time:      r.Duration.Seconds(),
			}
			switch {
			case r.Err != nil:
				tc.Error = &JUnitError{
					Message: r.Err.Error(),
					Type:    "error",
				}
				suite.Errors++
			case !r.Success:
				var lines []string
				for _, d := range r.Diffs {
					if !d.Passed {
						lines = append(lines, fmt.Sprintf("%s %s: expected %v, got %v", d.Check, d.Comparator, d.Expect, d.Actual))
					}
				}
				tc.Failure = &JUnitFailure{
					Message: "validation failed",
					Type:    "failure",
					Content: strings.Join(lines, "\n"),
				}
				suite.Failures++
			}
			suite.Tests++
			suite.Time += r.Duration.Seconds()
			suite.TestCases = append(suite.TestCases, tc)
		}
		root.Tests += suite.Tests
		root.Failures += suite.Failures
		root.Errors += suite.Errors
		root.TestSuites = append(root.TestSuites, suite)
	}

	if _, err := io.WriteString(f.writer, xml.Header); err != nil {
		return err
	}
	encoder := xml.NewEncoder(f.writer)
	encoder.Indent("", "  ")
	if err := encoder.Encode(root); err != nil {
		return err
	}
	_, err := io.WriteString(f.writer, "\n")
	return err
}
