// Package graphqlerr defines the GraphQLError shape shared by the graph
// store and the observable operation, so neither package has to import the
// other just to talk about execution errors.
package graphqlerr

// Location points at a line/column in the originating GraphQL document.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// GraphQLError is the exported error shape consumed from executor results
// and surfaced on OperationState.Errors.
type GraphQLError struct {
	Message   string     `json:"message"`
	Locations []Location `json:"locations,omitempty"`
	Path      []any      `json:"path,omitempty"`
}

func (e GraphQLError) Error() string { return e.Message }
