package selection

import (
	"errors"
	"fmt"
	"iter"

	language "github.com/hanpama/cachegraph/internal/language"
)

// MissingFragmentError is returned when a fragment spread names a fragment
// absent from the supplied fragment map.
type MissingFragmentError struct {
	Name string
}

func (e *MissingFragmentError) Error() string {
	return fmt.Sprintf("unknown fragment %q", e.Name)
}

// IsMissingFragment reports whether err is (or wraps) a
// *MissingFragmentError.
func IsMissingFragment(err error) bool {
	var target *MissingFragmentError
	return errors.As(err, &target)
}

// WalkSelections flattens set into its effective field selections,
// resolving inline fragments and fragment spreads against fragments. Type
// conditions are transparent here: the graph store holds no type tag (see
// the data model's entity node), so fragment type conditions are not
// checked against anything. Each fragment is expanded at most once per walk
// to tolerate (harmless) repeated spreads of the same fragment.
//
// The iterator stops early and yields the encountered error via the second
// return value of the Seq2 form is not used here to keep call sites simple;
// instead WalkSelections returns the error eagerly, before any field is
// yielded, since a missing fragment can be discovered by a cheap pre-walk.
func WalkSelections(set language.SelectionSet, fragments language.FragmentDefinitionList) (iter.Seq[*language.Field], error) {
	if err := validateFragments(set, fragments, map[string]bool{}); err != nil {
		return nil, err
	}
	return func(yield func(*language.Field) bool) {
		walk(set, fragments, map[string]bool{}, yield)
	}, nil
}

// validateFragments pre-walks set purely to surface MissingFragmentError
// without requiring callers to drain the iterator to observe it.
func validateFragments(set language.SelectionSet, fragments language.FragmentDefinitionList, visited map[string]bool) error {
	for _, sel := range set {
		switch s := sel.(type) {
		case *language.Field:
			if s.SelectionSet != nil {
				if err := validateFragments(s.SelectionSet, fragments, visited); err != nil {
					return err
				}
			}
		case *language.InlineFragment:
			if err := validateFragments(s.SelectionSet, fragments, visited); err != nil {
				return err
			}
		case *language.FragmentSpread:
			if visited[s.Name] {
				continue
			}
			visited[s.Name] = true
			def := fragments.ForName(s.Name)
			if def == nil {
				return &MissingFragmentError{Name: s.Name}
			}
			if err := validateFragments(def.SelectionSet, fragments, visited); err != nil {
				return err
			}
		}
	}
	return nil
}

func walk(set language.SelectionSet, fragments language.FragmentDefinitionList, visited map[string]bool, yield func(*language.Field) bool) bool {
	for _, sel := range set {
		switch s := sel.(type) {
		case *language.Field:
			if !yield(s) {
				return false
			}
		case *language.InlineFragment:
			if !walk(s.SelectionSet, fragments, visited, yield) {
				return false
			}
		case *language.FragmentSpread:
			if visited[s.Name] {
				continue
			}
			visited[s.Name] = true
			def := fragments.ForName(s.Name)
			if def == nil {
				// Already surfaced by validateFragments; treat as empty here.
				continue
			}
			if !walk(def.SelectionSet, fragments, visited, yield) {
				return false
			}
		}
	}
	return true
}
