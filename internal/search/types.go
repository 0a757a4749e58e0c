package search

import (
	"encoding/json"

	"github.com/gcbaptista/go-book-indexer/index"
)

// Match is the outcome of looking up one term: either the documents that
// contain it or NotFound.
type Match struct {
	found     bool
	documents index.PostingList
}

// Found returns a match over documents. The list is copied.
func Found(documents index.PostingList) Match {
	return Match{found: true, documents: documents.Clone()}
}

// NotFound returns the match for a term absent from the index.
func NotFound() Match {
	return Match{}
}

// IsFound reports whether the term is in the index.
func (m Match) IsFound() bool { return m.found }

// Documents returns the posting list, nil for NotFound.
func (m Match) Documents() index.PostingList {
	if !m.found {
		return nil
	}
	return m.documents.Clone()
}

func (m Match) String() string {
	if !m.found {
		return "not found"
	}
	b, _ := json.Marshal([]int(m.documents))
	return string(b)
}

type matchJSON struct {
	Found     bool  `json:"found"`
	Documents []int `json:"documents"`
}

// MarshalJSON encodes the match as {"found": bool, "documents": [...]}.
// NotFound always carries an empty document array.
func (m Match) MarshalJSON() ([]byte, error) {
	docs := []int(m.documents)
	if docs == nil {
		docs = []int{}
	}
	return json.Marshal(matchJSON{Found: m.found, Documents: docs})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (m *Match) UnmarshalJSON(data []byte) error {
	var raw matchJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !raw.Found {
		*m = NotFound()
		return nil
	}
	*m = Found(raw.Documents)
	return nil
}

// Result holds one Match per distinct query term.
type Result struct {
	// Terms lists the distinct normalized terms in query order.
	Terms   []string         `json:"terms"`
	Matches map[string]Match `json:"results"`
}

// Len returns the number of distinct terms.
func (r Result) Len() int { return len(r.Terms) }

// Counts returns how many terms were found and not found.
func (r Result) Counts() (found, notFound int) {
	for _, m := range r.Matches {
		if m.found {
			found++
		} else {
			notFound++
		}
	}
	return found, notFound
}

func (r Result) clone() Result {
	out := Result{
		Terms:   append([]string{}, r.Terms...),
		Matches: make(map[string]Match, len(r.Matches)),
	}
	for term, m := range r.Matches {
		if m.found {
			m = Found(m.documents)
		}
		out.Matches[term] = m
	}
	return out
}

func emptyResult() Result {
	return Result{Terms: []string{}, Matches: map[string]Match{}}
}
