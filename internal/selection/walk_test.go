package selection_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hanpama/cachegraph/internal/gqltest"
	language "github.com/hanpama/cachegraph/internal/language"
	selection "github.com/hanpama/cachegraph/internal/selection"
)

func collectNames(t *testing.T, set language.SelectionSet, fragments language.FragmentDefinitionList) []string {
	t.Helper()
	seq, err := selection.WalkSelections(set, fragments)
	if err != nil {
		t.Fatalf("WalkSelections: %v", err)
	}
	var names []string
	for f := range seq {
		names = append(names, f.Name)
	}
	return names
}

// Pattern: Result comparison
func TestWalkSelections_FlatFields(t *testing.T) {
	doc := gqltest.MustParseQuery(t, "{ a b c }")
	op := gqltest.Operation(t, doc, "")

	got := collectNames(t, op.SelectionSet, doc.Fragments)
	want := []string{"a", "b", "c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("selection order mismatch (-want +got):\n%s", diff)
	}
}

// Pattern: Result comparison
func TestWalkSelections_InlineFragmentIsTransparent(t *testing.T) {
	doc := gqltest.MustParseQuery(t, "{ a ... on Whatever { b c } }")
	op := gqltest.Operation(t, doc, "")

	got := collectNames(t, op.SelectionSet, doc.Fragments)
	want := []string{"a", "b", "c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("inline fragment fields should flatten in (-want +got):\n%s", diff)
	}
}

// Pattern: Result comparison
func TestWalkSelections_FragmentSpreadResolves(t *testing.T) {
	doc := gqltest.MustParseQuery(t, `
		{ a ...Rest }
		fragment Rest on Whatever { b c }
	`)
	op := gqltest.Operation(t, doc, "")

	got := collectNames(t, op.SelectionSet, doc.Fragments)
	want := []string{"a", "b", "c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("fragment spread fields should flatten in (-want +got):\n%s", diff)
	}
}

// Pattern: Error message/type
func TestWalkSelections_MissingFragment_Errors(t *testing.T) {
	doc := gqltest.MustParseQuery(t, "{ a ...Missing }")
	op := gqltest.Operation(t, doc, "")

	_, err := selection.WalkSelections(op.SelectionSet, doc.Fragments)
	if err == nil {
		t.Fatalf("expected MissingFragmentError, got nil")
	}
	var mfe *selection.MissingFragmentError
	if !errorsAs(err, &mfe) {
		t.Fatalf("expected *selection.MissingFragmentError, got %T: %v", err, err)
	}
	if mfe.Name != "Missing" {
		t.Fatalf("expected fragment name %q, got %q", "Missing", mfe.Name)
	}
}

// Pattern: Result comparison
func TestWalkSelections_RepeatedFragmentSpreadExpandsOnce(t *testing.T) {
	doc := gqltest.MustParseQuery(t, `
		{ ...Rest ...Rest }
		fragment Rest on Whatever { a }
	`)
	op := gqltest.Operation(t, doc, "")

	got := collectNames(t, op.SelectionSet, doc.Fragments)
	want := []string{"a"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("repeated fragment spread should only expand once (-want +got):\n%s", diff)
	}
}

func errorsAs(err error, target **selection.MissingFragmentError) bool {
	if e, ok := err.(*selection.MissingFragmentError); ok {
		*target = e
		return true
	}
	return false
}
