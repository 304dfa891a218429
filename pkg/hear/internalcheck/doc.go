// Package internalcheck holds static AST-based checks over pkg/hear that
// go beyond what the compiler enforces, in the same spirit as the example
// pack's constant-time byte-comparison check: load the package with
// golang.org/x/tools/go/packages, walk its syntax trees, and fail the test
// if a forbidden pattern shows up.
package internalcheck
