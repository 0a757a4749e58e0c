package store

import (
	"github.com/gcbaptista/go-book-indexer/model"
)

// Collection is the ordered, immutable set of documents an index was built from.
// A document's position in the collection is its permanent ID.
type Collection struct {
	docs []model.Document
}

// NewCollection copies docs into a new Collection so later changes to the
// caller's slice or maps are not observed.
func NewCollection(docs []model.Document) *Collection {
	copied := make([]model.Document, len(docs))
	for i, doc := range docs {
		copied[i] = copyDocument(doc)
	}
	return &Collection{docs: copied}
}

func copyDocument(doc model.Document) model.Document {
	c := make(model.Document, len(doc))
	for k, v := range doc {
		c[k] = v
	}
	return c
}

// Len returns the number of documents. A nil collection is empty.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.docs)
}

// Get returns a copy of the document with the given ID.
func (c *Collection) Get(docID int) (model.Document, bool) {
	if docID < 0 || docID >= c.Len() {
		return nil, false
	}
	return copyDocument(c.docs[docID]), true
}

// Each calls fn for every document in order.
func (c *Collection) Each(fn func(docID int, doc model.Document)) {
	if c == nil {
		return
	}
	for i, doc := range c.docs {
		fn(i, doc)
	}
}
