package model

import (
	"sort"

	"github.com/gcbaptista/go-book-indexer/internal/tokenizer"
)

// Document is a flexible map representing a JSON document, e.g. {"title": ..., "text": ...}.
// A document has no ID field of its own: it is identified by its position in the
// collection it was loaded with.
type Document map[string]interface{}

// FieldText returns the text of a single field. Arrays are flattened depth-first and
// joined with spaces, skipping any objects inside them; scalars are rendered as text.
// A field holding an object has no text.
func (d Document) FieldText(field string) (string, bool) {
	val, ok := d[field]
	if !ok {
		return "", false
	}
	if _, isObject := val.(map[string]interface{}); isObject {
		return "", false
	}
	return tokenizer.FromField(val).String(), true
}

// OrderedFields returns the document's field names, listing the ones in order first
// (when present) and then the remaining fields in lexical order.
func (d Document) OrderedFields(order []string) []string {
	fields := make([]string, 0, len(d))
	listed := make(map[string]struct{}, len(order))
	for _, f := range order {
		listed[f] = struct{}{}
		if _, ok := d[f]; ok {
			fields = append(fields, f)
		}
	}

	rest := make([]string, 0, len(d))
	for f := range d {
		if _, ok := listed[f]; !ok {
			rest = append(rest, f)
		}
	}
	sort.Strings(rest)
	return append(fields, rest...)
}

// Text concatenates all fields of the document in the given field order.
func (d Document) Text(order []string) string {
	parts := make([]tokenizer.Query, 0, len(d))
	for _, f := range d.OrderedFields(order) {
		if text, ok := d.FieldText(f); ok {
			parts = append(parts, tokenizer.Text(text))
		}
	}
	return tokenizer.Collection(parts...).String()
}
