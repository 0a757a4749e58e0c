// Package config provides configuration structures for the book indexer.
// It defines per-index settings and the application configuration loaded from YAML.
package config

import (
	"strings"
)

// DefaultFields is the field order used when an index does not specify one.
var DefaultFields = []string{"title", "text"}

// IndexSettings contains the configuration of a single index.
//
// Fields order matters: a document's fields are concatenated in this order before
// tokenization. Fields present in a document but not listed here are appended
// afterwards in lexical order.
type IndexSettings struct {
	Name   string   `json:"name" yaml:"name"`     // Unique name for the index
	Fields []string `json:"fields" yaml:"fields"` // Field concatenation order (e.g., ["title", "text"])
}

// Validate checks the settings for basic requirements and returns one message per problem.
func (settings *IndexSettings) Validate() []string {
	var problems []string

	if strings.TrimSpace(settings.Name) == "" {
		problems = append(problems, "Index name cannot be empty or whitespace-only")
	} else if strings.TrimSpace(settings.Name) != settings.Name {
		problems = append(problems, "Index name cannot have leading or trailing whitespace")
	}

	problems = append(problems, checkDuplicates("fields", settings.Fields)...)
	for _, field := range settings.Fields {
		if strings.TrimSpace(field) == "" {
			problems = append(problems, "Field name cannot be empty or whitespace-only")
		}
	}

	return problems
}

// checkDuplicates checks for duplicate values in a slice and returns error messages
func checkDuplicates(fieldName string, fields []string) []string {
	var errors []string
	seen := make(map[string]bool)

	for _, field := range fields {
		if seen[field] {
			errors = append(errors, "Duplicate field '"+field+"' found in "+fieldName)
		}
		seen[field] = true
	}

	return errors
}

// ApplyDefaults applies default values to the index settings
func (settings *IndexSettings) ApplyDefaults() {
	if len(settings.Fields) == 0 {
		settings.Fields = append([]string(nil), DefaultFields...)
	}
}
