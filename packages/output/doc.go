// Package output renders run results for humans and machines. The
// console formatter is the default; JSON and JUnit formatters serve CI
// pipelines.
package output
