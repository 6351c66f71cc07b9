// Package gqltest holds small fixture helpers shared by the selection,
// graph and operation test suites so each doesn't reinvent query parsing.
package gqltest

import (
	"testing"

	language "github.com/hanpama/cachegraph/internal/language"
)

// MustParseQuery parses q and fails the test on error, mirroring the
// mustParseQuery helper used throughout the executor package's tests.
func MustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	doc, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return doc
}

// Operation returns the named operation, or the sole operation when name is
// empty and the document defines exactly one.
func Operation(t *testing.T, doc *language.QueryDocument, name string) *language.OperationDefinition {
	t.Helper()
	if name == "" && len(doc.Operations) == 1 {
		return doc.Operations[0]
	}
	op := doc.Operations.ForName(name)
	if op == nil {
		t.Fatalf("operation %q not found", name)
	}
	return op
}
