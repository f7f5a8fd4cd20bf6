// Package logs reads back the PostPilot log file.
//
// Last returns the trailing lines of a log, optionally narrowed to one
// workflow, and Follow polls for lines appended after a given offset. Both
// understand the console and JSON formats written by internal/logging.
package logs
