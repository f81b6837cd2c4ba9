package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// formatValue formats a value for display, truncating or summarizing large values
func formatValue(v any, maxLen int) string {
	switch val := v.(type) {
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		return fmt.Sprintf("{object with %d keys}", len(val))
	}
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatReport(report *Report) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	for _, set := range report.Sets {
		name := set.Name
		if name == "" {
			name = "(unnamed testset)"
		}
		fmt.Fprintf(f.writer, "\n%s\n\n", bold("Testset: "+name))

		for _, r := range set.Results {
			if r.Err != nil {
				fmt.Fprintf(f.writer, "  %s %s %s\n", red("x"), r.Name, red(fmt.Sprintf("(%v)", r.Err)))
				continue
			}

			symbol := green("✓")
			if !r.Success {
				symbol = red("✗")
			}

			fmt.Fprintf(f.writer, "  %s %s %s\n", symbol, r.Name, cyan(fmt.Sprintf("(%dms)", r.Duration.Milliseconds())))

			if f.verbose && r.Response != nil {
				fmt.Fprintf(f.writer, "    Status: %d\n", r.Response.StatusCode)
			}

			if !r.Success {
				for _, d := range r.Diffs {
					if d.Passed {
						continue
					}
					fmt.Fprintf(f.writer, "    %s %s %s\n", red("→"), d.Check, d.Comparator)
					fmt.Fprintf(f.writer, "      Expected: %s\n", formatValue(d.Expect, 100))
					fmt.Fprintf(f.writer, "      Actual:   %s\n", formatValue(d.Actual, 100))
					if d.Message != "" {
						fmt.Fprintf(f.writer, "      %s\n", d.Message)
					}
				}
			}

			if f.verbose && len(r.Extracted) > 0 {
				fmt.Fprintf(f.writer, "    Extracted:\n")
				for name, value := range r.Extracted {
					fmt.Fprintf(f.writer, "      %s = %v\n", name, value)
				}
			}
		}
	}

	passed, failed, errored := report.Counts()
	fmt.Fprintf(f.writer, "\nTests: ")
	if passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", passed)))
	}
	if failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", failed)))
	}
	if errored > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d errored", errored)))
	}
	fmt.Fprintf(f.writer, "%d total\n", passed+failed+errored)
	fmt.Fprintf(f.writer, "Time:  %dms\n\n", report.Duration.Milliseconds())
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("restflow"), version)
}
