// Package output formats remediation reports for display or machine
// consumption.
//
// Three formats are supported:
//   - text     human-readable terminal output, colorized unless NO_COLOR is set (default)
//   - json     the full structured report
//   - markdown pull-request comment body
//
// Use [GetWriter] to obtain a [Writer] for a format string, or
// [WriteReport] to write to a file or stdout.
package output
