// Package log provides the logging interface used by the decisionflow
// packages, with a standard-library default implementation and a
// kataras/golog backed implementation for structured, leveled output.
package log
