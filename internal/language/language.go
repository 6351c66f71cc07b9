package language

import (
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// ParseQuery parses operation/fragment source text into a QueryDocument.
// Query parsing is the one piece of AST handling this module still performs
// itself; everything past parsing (validation, schema awareness) is out of
// scope and left to the caller.
func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}
