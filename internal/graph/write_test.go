package graph_test

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hanpama/cachegraph/internal/gqltest"
	"github.com/hanpama/cachegraph/internal/graph"
)

// Pattern: Result comparison
func TestWrite_ScalarFields(t *testing.T) {
	doc := gqltest.MustParseQuery(t, `{ a b c }`)
	op := gqltest.Operation(t, doc, "")

	s := graph.New()
	_, err := s.Write(graph.WriteInput{
		Selections: op.SelectionSet,
		Fragments:  doc.Fragments,
		Data:       map[string]any{"a": 1, "b": 2, "c": 3},
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	result, err := s.Read(graph.ReadInput{Selections: op.SelectionSet, Fragments: doc.Fragments})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := map[string]any{"a": 1, "b": 2, "c": 3}
	if diff := cmp.Diff(want, result.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
	if result.Stale {
		t.Fatalf("expected fresh read")
	}
}

// Pattern: Result comparison
func TestWrite_NestedEntityWithHostID(t *testing.T) {
	doc := gqltest.MustParseQuery(t, `{ foo { id a b c } }`)
	op := gqltest.Operation(t, doc, "")

	s := graph.New(graph.WithDataIDFunc(func(obj map[string]any) string {
		if id, ok := obj["id"]; ok {
			return fmt.Sprintf("(%v)", id)
		}
		return ""
	}))

	_, err := s.Write(graph.WriteInput{
		Selections: op.SelectionSet,
		Fragments:  doc.Fragments,
		Data: map[string]any{
			"foo": map[string]any{"id": 1, "a": "A", "b": "B", "c": "C"},
		},
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	result, err := s.Read(graph.ReadInput{Selections: op.SelectionSet, Fragments: doc.Fragments})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := map[string]any{
		"foo": map[string]any{"id": 1, "a": "A", "b": "B", "c": "C"},
	}
	if diff := cmp.Diff(want, result.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

// Pattern: Result comparison
func TestWrite_MissingDataField_IsShapeError(t *testing.T) {
	doc := gqltest.MustParseQuery(t, `{ a b }`)
	op := gqltest.Operation(t, doc, "")

	s := graph.New()
	_, err := s.Write(graph.WriteInput{
		Selections: op.SelectionSet,
		Fragments:  doc.Fragments,
		Data:       map[string]any{"a": 1},
	})
	if _, ok := err.(*graph.WriteShapeError); !ok {
		t.Fatalf("expected *graph.WriteShapeError, got %v", err)
	}
}

// Pattern: Result comparison
func TestWrite_ListOfEntities(t *testing.T) {
	doc := gqltest.MustParseQuery(t, `{ items { id name } }`)
	op := gqltest.Operation(t, doc, "")

	s := graph.New(graph.WithDataIDFunc(func(obj map[string]any) string {
		if id, ok := obj["id"]; ok {
			return fmt.Sprintf("Item:%v", id)
		}
		return ""
	}))

	_, err := s.Write(graph.WriteInput{
		Selections: op.SelectionSet,
		Fragments:  doc.Fragments,
		Data: map[string]any{
			"items": []any{
				map[string]any{"id": 1, "name": "one"},
				map[string]any{"id": 2, "name": "two"},
			},
		},
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	result, err := s.Read(graph.ReadInput{Selections: op.SelectionSet, Fragments: doc.Fragments})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := map[string]any{
		"items": []any{
			map[string]any{"id": 1, "name": "one"},
			map[string]any{"id": 2, "name": "two"},
		},
	}
	if diff := cmp.Diff(want, result.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

// Pattern: Result comparison
func TestWrite_UnchangedValue_NotJournaled(t *testing.T) {
	doc := gqltest.MustParseQuery(t, `{ a b }`)
	op := gqltest.Operation(t, doc, "")

	s := graph.New()
	input := graph.WriteInput{
		Selections: op.SelectionSet,
		Fragments:  doc.Fragments,
		Data:       map[string]any{"a": 1, "b": 2},
	}
	if _, err := s.Write(input); err != nil {
		t.Fatalf("first write: %v", err)
	}

	result, err := s.Write(input)
	if err != nil {
		t.Fatalf("second write: %v", err)
	}
	if len(result.ChangedEntities) != 0 {
		t.Fatalf("expected no changed entities on a re-assertion of identical data, got %v", result.ChangedEntities)
	}
}
