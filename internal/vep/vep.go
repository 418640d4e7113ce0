// Package vep decodes VEP-style annotations: several named sub-fields packed
// into one INFO value with a secondary separator, whose names are declared in
// the INFO header Description (e.g. "... Format: Allele|Consequence|SYMBOL").
package vep

import (
	"slices"
	"strings"
)

// Default annotation INFO key and sub-field separator used by Ensembl VEP.
const (
	DefaultKey       = "CSQ"
	DefaultSeparator = "|"
)

// Annotation maps sub-field names to values. A nil value means the sub-field
// was present but empty. Names beyond the number of encoded tokens are not
// present in the map at all.
type Annotation map[string]*string

// Get returns the value of a sub-field and whether it is set.
func (a Annotation) Get(field string) (string, bool) {
	v := a[field]
	if v == nil {
		return "", false
	}
	return *v, true
}

// Value returns the value of a sub-field, or "" if it is unset.
func (a Annotation) Value(field string) string {
	v, _ := a.Get(field)
	return v
}

// Parser decodes one annotation INFO key.
type Parser struct {
	key       string
	sep       string
	variables []string
}

// New creates a Parser from the Description of the annotation's INFO line.
// The field names are the last whitespace-separated token of description,
// split by sep. Empty key and sep fall back to DefaultKey and DefaultSeparator.
func New(description, key, sep string) *Parser {
	if key == "" {
		key = DefaultKey
	}
	if sep == "" {
		sep = DefaultSeparator
	}

	var variables []string
	if words := strings.Fields(description); len(words) > 0 {
		last := strings.Trim(words[len(words)-1], `"'`)
		variables = strings.Split(last, sep)
	}

	return &Parser{key: key, sep: sep, variables: variables}
}

// Key returns the INFO key this parser decodes.
func (p *Parser) Key() string {
	return p.key
}

// Separator returns the sub-field separator.
func (p *Parser) Separator() string {
	return p.sep
}

// Variables returns the declared sub-field names in order.
func (p *Parser) Variables() []string {
	return p.variables
}

// Has reports whether name is a declared sub-field.
func (p *Parser) Has(name string) bool {
	return slices.Contains(p.variables, name)
}

// Decode extracts the annotation from a variant's INFO map. It returns nil
// when the key is absent. Tokens are matched to variables positionally and
// extra tokens are dropped. A flag-valued key decodes as a single empty token.
func (p *Parser) Decode(info map[string]any) Annotation {
	raw, ok := info[p.key]
	if !ok {
		return nil
	}
	s, _ := raw.(string)

	tokens := strings.Split(s, p.sep)
	n := min(len(tokens), len(p.variables))

	ann := make(Annotation, n)
	for i := 0; i < n; i++ {
		if tokens[i] == "" {
			ann[p.variables[i]] = nil
			continue
		}
		tok := tokens[i]
		ann[p.variables[i]] = &tok
	}
	return ann
}
