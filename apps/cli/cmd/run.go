package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	enginectx "github.com/abdul-hamid-achik/restflow/packages/core/context"
	"github.com/abdul-hamid-achik/restflow/packages/core/env"
	"github.com/abdul-hamid-achik/restflow/packages/core/runner"
	"github.com/abdul-hamid-achik/restflow/packages/history"
	"github.com/abdul-hamid-achik/restflow/packages/loader"
	"github.com/abdul-hamid-achik/restflow/packages/output"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <file|directory>...",
	Short: "Run API tests from YAML testset files",
	Long: `Run API tests defined in YAML testset files.

Examples:
  restflow run api.yml
  restflow run ./tests/ --bail
  restflow run api.yml --var HOST=staging.example.com
  restflow run api.yml --output json --output-file results.json
  restflow run ./tests/ --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	verboseFlag    bool
	quietFlag      bool
	bailFlag       bool
	timeoutFlag    string
	noColorFlag    bool
	outputFlag     string
	outputFileFlag string
	watchFlag      bool
	proxyFlag      string
	insecureFlag   bool
	historyFlag    string
	varFlags       []string
	envFileFlag    string
)

func init() {
	runCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Verbose output")
	runCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", getEnvBool("RESTFLOW_QUIET", false), "Suppress all output except errors (env: RESTFLOW_QUIET)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("RESTFLOW_NO_COLOR", false), "Disable colored output (env: RESTFLOW_NO_COLOR)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("RESTFLOW_OUTPUT", "console"), "Output format: console, json, junit (env: RESTFLOW_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("RESTFLOW_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: RESTFLOW_OUTPUT_FILE)")
	runCmd.Flags().BoolVar(&bailFlag, "bail", getEnvBool("RESTFLOW_BAIL", false), "Stop on first failure (env: RESTFLOW_BAIL)")
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("RESTFLOW_TIMEOUT", "30s"), "Request timeout (e.g., 30s, 1m) (env: RESTFLOW_TIMEOUT)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch files for changes and re-run tests")
	runCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("RESTFLOW_PROXY", ""), "Proxy URL for HTTP requests (env: RESTFLOW_PROXY)")
	runCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("RESTFLOW_INSECURE", false), "Disable SSL certificate validation (env: RESTFLOW_INSECURE)")
	runCmd.Flags().StringVar(&historyFlag, "history", getEnvString("RESTFLOW_HISTORY", ""), "Record run summary into a SQLite history database (env: RESTFLOW_HISTORY)")
	runCmd.Flags().StringArrayVar(&varFlags, "var", nil, "Seed a context variable (KEY=VALUE, repeatable)")
	runCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("RESTFLOW_ENV_FILE", ""), "Load a .env file and seed its variables (env: RESTFLOW_ENV_FILE)")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func runCommand(cmd *cobra.Command, args []string) error {
	var outWriter *os.File
	var err error
	if outputFileFlag != "" {
		outWriter, err = os.Create(outputFileFlag)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer outWriter.Close()
	}

	console := newConsole(outWriter)

	files, err := collectFiles(args)
	if err != nil {
		console.FormatError(err)
		return err
	}
	if len(files) == 0 {
		err := fmt.Errorf("no .yml or .yaml files found")
		console.FormatError(err)
		return err
	}

	timeout, err := time.ParseDuration(timeoutFlag)
	if err != nil {
		return fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", timeoutFlag, err)
	}

	seed := make(map[string]any)
	if envFileFlag != "" {
		fileVars, err := env.LoadAndExport(envFileFlag)
		if err != nil {
			return err
		}
		for key, value := range fileVars {
			seed[key] = value
		}
	}
	flagVars, err := parseVarFlags(varFlags)
	if err != nil {
		return err
	}
	// --var wins over the env file
	for key, value := range flagVars {
		seed[key] = value
	}

	cfg := &runner.Config{
		Timeout:        timeout,
		FollowRedirect: true,
		ValidateSSL:    !insecureFlag,
		Proxy:          proxyFlag,
		Bail:           bailFlag,
	}

	runOnce := func() (*output.Report, error) {
		testsets, err := loader.LoadFiles(files)
		if err != nil {
			return nil, err
		}

		ctx := enginectx.New()
		ctx.UpdateVariables(seed)
		r := runner.NewRunner(ctx, cfg)

		start := time.Now()
		results, runErr := r.RunTestSets(testsets)
		report := output.BuildReport(testsets, results, time.Since(start))
		return report, runErr
	}

	report, runErr := runOnce()
	if report != nil {
		if err := emit(report, outWriter); err != nil {
			return err
		}
		if historyFlag != "" {
			if err := record(report); err != nil {
				fmt.Fprintf(os.Stderr, "warning: recording history: %v\n", err)
			}
		}
	}
	if runErr != nil {
		console.FormatError(runErr)
	}

	if !watchFlag {
		if runErr != nil {
			os.Exit(ExitConfigError)
		}
		if report != nil {
			if _, failed, errored := report.Counts(); failed+errored > 0 {
				os.Exit(ExitTestFailure)
			}
		}
		return nil
	}

	return watch(cmd, files, func() {
		report, runErr := runOnce()
		if report != nil {
			if err := emit(report, outWriter); err != nil {
				console.FormatError(err)
				return
			}
			if historyFlag != "" {
				if err := record(report); err != nil {
					fmt.Fprintf(os.Stderr, "warning: recording history: %v\n", err)
				}
			}
		}
		if runErr != nil {
			console.FormatError(runErr)
		}
	})
}

func newConsole(outWriter *os.File) *output.ConsoleFormatter {
	opts := []output.ConsoleOption{
		output.WithVerbose(verboseFlag),
		output.WithNoColor(noColorFlag || quietFlag),
	}
	if outWriter != nil {
		opts = append(opts, output.WithWriter(outWriter))
	}
	return output.NewConsoleFormatter(opts...)
}

func emit(report *output.Report, outWriter *os.File) error {
	switch strings.ToLower(outputFlag) {
	case "json":
		opts := []output.JSONOption{}
		if outWriter != nil {
			opts = append(opts, output.WithJSONWriter(outWriter))
		}
		return output.NewJSONFormatter(opts...).FormatReport(report)
	case "junit":
		opts := []output.JUnitOption{}
		if outWriter != nil {
			opts = append(opts, output.WithJUnitWriter(outWriter))
		}
		return output.NewJUnitFormatter(opts...).FormatReport(report)
	default: // console
		if !quietFlag {
			newConsole(outWriter).FormatReport(report)
		}
		return nil
	}
}

func record(report *output.Report) error {
	store, err := history.Open(historyFlag)
	if err != nil {
		return err
	}
	defer store.Close()
	_, err = store.RecordRun(report)
	return err
}

func parseVarFlags(flags []string) (map[string]any, error) {
	vars := make(map[string]any, len(flags))
	for _, flag := range flags {
		key, value, found := strings.Cut(flag, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --var %q (use KEY=VALUE)", flag)
		}
		vars[key] = value
	}
	return vars, nil
}

func collectFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && isTestSetFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func isTestSetFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yml" || ext == ".yaml"
}

func watch(cmd *cobra.Command, files []string, rerun func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	watchedDirs := make(map[string]bool)
	for _, file := range files {
		dir := filepath.Dir(file)
		if !watchedDirs[dir] {
			if err := watcher.Add(dir); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to watch %s: %v\n", dir, err)
			}
			watchedDirs[dir] = true
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	var debounceTimer *time.Timer
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) && isTestSetFile(event.Name) {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
					fmt.Fprintf(cmd.OutOrStdout(), "\nFile changed: %s\nRe-running tests...\n\n", event.Name)
					rerun()
				})
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		}
	}
}
