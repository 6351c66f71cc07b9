// Package selection implements the pure, schema-unaware AST utilities the
// graph store is built on: canonical field storage keys and a
// fragment-resolving walk over a selection set. Grounded on
// internal/executor's field-collection and argument-coercion logic
// (collectFieldsImpl, astValueToGo, valueFromASTWithVars in the teacher's
// fields.go/values.go), generalized here to produce storage keys instead of
// driving resolution.
package selection

import (
	"sort"
	"strconv"
	"strings"

	language "github.com/hanpama/cachegraph/internal/language"
)

// ResponseKey is the key a field occupies in a response/data object: its
// alias if aliased, else its field name. Distinct from the storage key,
// which two differently-aliased selections of the same field+args share.
func ResponseKey(field *language.Field) string {
	if field.Alias != "" {
		return field.Alias
	}
	return field.Name
}

// FieldStorageKey canonicalizes field's arguments into the entity node's
// storage-key form: the bare field name if there are no arguments, else
// "name(k1:v1,k2:v2,...)" with argument names sorted and variable
// references substituted from variables. Two selections with structurally
// equal substituted arguments produce the same storage key.
func FieldStorageKey(field *language.Field, variables map[string]any) string {
	if len(field.Arguments) == 0 {
		return field.Name
	}

	names := make([]string, 0, len(field.Arguments))
	values := make(map[string]any, len(field.Arguments))
	for _, arg := range field.Arguments {
		names = append(names, arg.Name)
		values[arg.Name] = resolveValue(arg.Value, variables)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(field.Name)
	b.WriteByte('(')
	for i, name := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(name)
		b.WriteByte(':')
		writeCanonicalValue(&b, values[name])
	}
	b.WriteByte(')')
	return b.String()
}

// resolveValue converts an AST argument value to a Go value, substituting
// variable references. Mirrors executor.valueFromASTWithVars.
func resolveValue(value *language.Value, variables map[string]any) any {
	if value == nil {
		return nil
	}
	if value.Kind == language.Variable {
		return variables[value.Raw]
	}
	return astValueToGo(value, variables)
}

// astValueToGo converts a non-variable AST value to a Go value. Mirrors
// executor.astValueToGo, extended to resolve nested variable references
// inside list/object literals.
func astValueToGo(value *language.Value, variables map[string]any) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case language.IntValue:
		iv, _ := strconv.Atoi(value.Raw)
		return iv
	case language.FloatValue:
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case language.StringValue, language.BlockValue:
		return value.Raw
	case language.BooleanValue:
		return value.Raw == "true"
	case language.NullValue:
		return nil
	case language.EnumValue:
		return value.Raw
	case language.ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			out[i] = resolveValue(c.Value, variables)
		}
		return out
	case language.ObjectValue:
		m := make(map[string]any, len(value.Children))
		for _, f := range value.Children {
			m[f.Name] = resolveValue(f.Value, variables)
		}
		return m
	default:
		return nil
	}
}

// writeCanonicalValue writes v in the canonical form used inside a storage
// key: strings quoted, composite values recursed into with object keys
// sorted so equal arguments always produce identical text regardless of the
// order they were written in the source document.
func writeCanonicalValue(b *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		if val {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case int:
		b.WriteString(strconv.Itoa(val))
	case float64:
		b.WriteString(strconv.FormatFloat(val, 'g', -1, 64))
	case string:
		b.WriteString(strconv.Quote(val))
	case []any:
		b.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonicalValue(b, item)
		}
		b.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(k)
			b.WriteByte(':')
			writeCanonicalValue(b, val[k])
		}
		b.WriteByte('}')
	default:
		b.WriteString(strconv.Quote(stringify(val)))
	}
}

func stringify(v any) string {
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return ""
}
