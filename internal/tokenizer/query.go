package tokenizer

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tells which variant a Query holds.
type Kind int

const (
	KindWord Kind = iota
	KindPhrase
	KindCollection
)

func (k Kind) String() string {
	switch k {
	case KindWord:
		return "word"
	case KindPhrase:
		return "phrase"
	case KindCollection:
		return "collection"
	default:
		return "unknown"
	}
}

// Query is one argument of a lookup: a single word, a multi-word phrase, or an
// ordered (possibly nested) collection of further queries.
// The zero value is an empty word.
type Query struct {
	kind  Kind
	text  string
	items []Query
}

// Word builds a single-word query.
func Word(w string) Query { return Query{kind: KindWord, text: w} }

// Phrase builds a multi-word query. Its words are matched independently.
func Phrase(p string) Query { return Query{kind: KindPhrase, text: p} }

// Collection groups queries, preserving their order.
func Collection(items ...Query) Query { return Query{kind: KindCollection, items: items} }

// Strings builds a collection query from plain strings.
func Strings(values ...string) Query {
	items := make([]Query, len(values))
	for i, v := range values {
		items[i] = Text(v)
	}
	return Collection(items...)
}

// Text picks Word or Phrase depending on whether s contains whitespace.
func Text(s string) Query {
	if len(strings.Fields(s)) > 1 {
		return Phrase(s)
	}
	return Word(s)
}

// Kind returns the variant held by q.
func (q Query) Kind() Kind { return q.kind }

// String returns the raw text of a word or phrase, or the space-joined
// flattening of a collection.
func (q Query) String() string {
	if q.kind == KindCollection {
		return strings.Join(Flatten(q), " ")
	}
	return q.text
}

// Flatten walks the queries depth-first and returns every text leaf in order.
func Flatten(queries ...Query) []string {
	atoms := make([]string, 0, len(queries))
	for _, q := range queries {
		atoms = q.appendAtoms(atoms)
	}
	return atoms
}

func (q Query) appendAtoms(atoms []string) []string {
	if q.kind != KindCollection {
		return append(atoms, q.text)
	}
	for _, item := range q.items {
		atoms = item.appendAtoms(atoms)
	}
	return atoms
}

// FromValue converts a decoded JSON value (or any Go value of a similar shape)
// into a Query. Strings become words or phrases, slices become collections and
// scalars are treated as text. Objects are rejected.
func FromValue(v interface{}) (Query, error) {
	switch val := v.(type) {
	case nil:
		return Collection(), nil
	case Query:
		return val, nil
	case string:
		return Text(val), nil
	case []string:
		return Strings(val...), nil
	case []interface{}:
		items := make([]Query, 0, len(val))
		for i, item := range val {
			q, err := FromValue(item)
			if err != nil {
				return Query{}, fmt.Errorf("element %d: %w", i, err)
			}
			items = append(items, q)
		}
		return Collection(items...), nil
	case bool:
		return Word(strconv.FormatBool(val)), nil
	case float64:
		return Word(strconv.FormatFloat(val, 'f', -1, 64)), nil
	case int:
		return Word(strconv.Itoa(val)), nil
	case int64:
		return Word(strconv.FormatInt(val, 10)), nil
	case fmt.Stringer:
		return Text(val.String()), nil
	default:
		return Query{}, fmt.Errorf("unsupported query value of type %T", v)
	}
}

// FromField converts a document field value into a Query. Unlike FromValue it
// never fails: objects, at any depth, are skipped and the remaining leaves kept.
func FromField(v interface{}) Query {
	switch val := v.(type) {
	case []interface{}:
		items := make([]Query, 0, len(val))
		for _, item := range val {
			if q, ok := fieldItem(item); ok {
				items = append(items, q)
			}
		}
		return Collection(items...)
	default:
		if q, ok := fieldItem(v); ok {
			return q
		}
		return Collection()
	}
}

func fieldItem(v interface{}) (Query, bool) {
	if _, isArray := v.([]interface{}); isArray {
		return FromField(v), true
	}
	q, err := FromValue(v)
	return q, err == nil
}
