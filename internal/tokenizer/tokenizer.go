// Package tokenizer turns raw text and structured query input into normalized terms.
package tokenizer

import (
	"strings"
)

// punctuationReplacer strips the characters that never take part in a term.
var punctuationReplacer = strings.NewReplacer(
	",", "", ".", "", ";", "", ":", "", "!", "", "@", "", "#", "", "$", "",
	"%", "", "^", "", "&", "", "*", "", "(", "", ")", "",
)

// Normalize converts text into an ordered slice of terms.
// It lowercases the text, removes punctuation, splits on whitespace and drops
// stop words. Duplicates are kept; callers dedupe where they need to.
func Normalize(text string) []string {
	cleaned := punctuationReplacer.Replace(strings.ToLower(text))

	terms := make([]string, 0) // Initialize as empty slice, not nil
	for _, word := range strings.Fields(cleaned) {
		if IsStopWord(word) {
			continue
		}
		terms = append(terms, word)
	}
	return terms
}

// NormalizeAll flattens the given queries and normalizes every atom.
// The result keeps the order in which atoms appear, duplicates included.
func NormalizeAll(queries ...Query) []string {
	terms := make([]string, 0)
	for _, atom := range Flatten(queries...) {
		terms = append(terms, Normalize(atom)...)
	}
	return terms
}

// Unique returns terms with repeated entries removed, first occurrence wins.
func Unique(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	result := make([]string, 0, len(terms))
	for _, term := range terms {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		result = append(result, term)
	}
	return result
}
