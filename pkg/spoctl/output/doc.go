// Package output renders command results as text, tables, JSON or YAML and
// styles the error line.
package output
