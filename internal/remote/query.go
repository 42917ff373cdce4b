package remote

import (
	"encoding/json"
)

// Query is one clause of the document query language, serialized as a JSON string
// in a repeated queries[] parameter.
type Query struct {
	Method    string `json:"method"`
	Attribute string `json:"attribute,omitempty"`
	Values    []any  `json:"values,omitempty"`
}

// Equal filters documents whose attribute equals any of values.
func Equal(attribute string, values ...any) Query {
	return Query{Method: "equal", Attribute: attribute, Values: values}
}

// OrderDesc sorts by attribute, newest/largest first.
func OrderDesc(attribute string) Query {
	return Query{Method: "orderDesc", Attribute: attribute}
}

// OrderAsc sorts by attribute, oldest/smallest first.
func OrderAsc(attribute string) Query {
	return Query{Method: "orderAsc", Attribute: attribute}
}

// Limit caps the page size.
func Limit(n int) Query {
	return Query{Method: "limit", Values: []any{n}}
}

// Offset skips n documents.
func Offset(n int) Query {
	return Query{Method: "offset", Values: []any{n}}
}

// String renders the query in its wire form.
func (q Query) String() string {
	b, err := json.Marshal(q)
	if err != nil {
		return ""
	}
	return string(b)
}

// ParseQuery decodes the wire form of a query.
func ParseQuery(raw string) (Query, error) {
	var q Query
	err := json.Unmarshal([]byte(raw), &q)
	return q, err
}
