package index

import (
	"sort"
)

// InvertedIndex maps a term to the list of documents containing that term.
// It is filled once by the indexing service and treated as read-only afterwards,
// so it carries no lock of its own.
type InvertedIndex struct {
	postings map[string]PostingList
}

// NewInvertedIndex returns an empty index.
func NewInvertedIndex() *InvertedIndex {
	return &InvertedIndex{postings: make(map[string]PostingList)}
}

// Add records that term occurs in docID.
// Documents must be added in ascending ID order; repeated calls for the same
// term and document are no-ops.
func (ii *InvertedIndex) Add(term string, docID int) {
	list := ii.postings[term]
	if n := len(list); n > 0 && list[n-1] >= docID {
		if list[n-1] == docID {
			return
		}
		// Out-of-order insert, keep the list sorted
		if list.Contains(docID) {
			return
		}
		i := sort.SearchInts(list, docID)
		list = append(list, 0)
		copy(list[i+1:], list[i:])
		list[i] = docID
		ii.postings[term] = list
		return
	}
	ii.postings[term] = append(list, docID)
}

// Lookup returns the posting list for term.
// The returned slice is shared with the index and must not be modified.
func (ii *InvertedIndex) Lookup(term string) (PostingList, bool) {
	list, ok := ii.postings[term]
	return list, ok
}

// Len returns the number of distinct terms.
func (ii *InvertedIndex) Len() int {
	return len(ii.postings)
}

// Terms returns all terms in lexical order.
func (ii *InvertedIndex) Terms() []string {
	terms := make([]string, 0, len(ii.postings))
	for term := range ii.postings {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// Map returns a copy of the whole term -> posting list mapping.
func (ii *InvertedIndex) Map() map[string]PostingList {
	out := make(map[string]PostingList, len(ii.postings))
	for term, list := range ii.postings {
		out[term] = list.Clone()
	}
	return out
}

// ForDocument returns every term whose posting list contains docID, each mapped
// to its full posting list. Unknown IDs yield an empty map.
func (ii *InvertedIndex) ForDocument(docID int) map[string]PostingList {
	out := make(map[string]PostingList)
	for term, list := range ii.postings {
		if list.Contains(docID) {
			out[term] = list.Clone()
		}
	}
	return out
}
