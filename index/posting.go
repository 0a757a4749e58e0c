package index

import "sort"

// PostingList holds the IDs of every document containing a term.
// IDs are zero-based document positions, ascending and without duplicates.
type PostingList []int

// Contains reports whether docID is in the list.
func (pl PostingList) Contains(docID int) bool {
	i := sort.SearchInts(pl, docID)
	return i < len(pl) && pl[i] == docID
}

// Clone returns a copy that does not share storage with pl.
func (pl PostingList) Clone() PostingList {
	out := make(PostingList, len(pl))
	copy(out, pl)
	return out
}
