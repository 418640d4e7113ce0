package vcf

import (
	"fmt"
	"slices"
	"strings"
)

// Metadata holds the attributes shared by every structured meta-line.
type Metadata struct {
	ID          string
	Description string // surrounding quotes stripped
}

// FormatMetadata describes a ##FORMAT header line.
type FormatMetadata struct {
	Metadata
	Type   string
	Number string // cardinality code: digits, A, G, R or .
}

// InfoMetadata describes a ##INFO header line.
type InfoMetadata struct {
	Metadata
	Type    string
	Number  string
	Source  string // optional, "" when absent
	Version string // optional, "" when absent
}

var (
	formatKeys = []string{"ID", "Description", "Type", "Number"}
	infoKeys   = []string{"ID", "Description", "Type", "Number", "Source", "Version"}
)

// ParseFormat parses the attribute string of a ##FORMAT line, e.g.
// <ID=GT,Number=1,Type=String,Description="Genotype">.
// When strict is set, keys outside the FORMAT attribute set are rejected.
func ParseFormat(attrs string, strict bool) (*FormatMetadata, error) {
	m, err := parseAttributes(attrs, formatKeys, strict)
	if err != nil {
		return nil, err
	}
	return &FormatMetadata{
		Metadata: newMetadata(m["ID"], m["Description"]),
		Type:     m["Type"],
		Number:   m["Number"],
	}, nil
}

// ParseInfo parses the attribute string of a ##INFO line.
// When strict is set, keys outside the INFO attribute set are rejected.
func ParseInfo(attrs string, strict bool) (*InfoMetadata, error) {
	m, err := parseAttributes(attrs, infoKeys, strict)
	if err != nil {
		return nil, err
	}
	return &InfoMetadata{
		Metadata: newMetadata(m["ID"], m["Description"]),
		Type:     m["Type"],
		Number:   m["Number"],
		Source:   unquote(m["Source"]),
		Version:  unquote(m["Version"]),
	}, nil
}

func newMetadata(id, description string) Metadata {
	return Metadata{ID: id, Description: unquote(description)}
}

// parseAttributes splits <K=V,K=V,...> into a map. The first four entries of
// known are required.
func parseAttributes(attrs string, known []string, strict bool) (map[string]string, error) {
	attrs = strings.TrimRight(strings.TrimLeft(attrs, "<"), ">")

	m := make(map[string]string, len(known))
	for _, tok := range SplitUnquoted(attrs, ',') {
		key, value, ok := CutUnquoted(tok, '=')
		if !ok {
			return nil, fmt.Errorf("attribute %q has no value: %w", tok, ErrMalformedHeader)
		}
		if !slices.Contains(known, key) {
			if strict {
				return nil, fmt.Errorf("attribute %q: %w", key, ErrUnknownAttribute)
			}
			continue
		}
		m[key] = value
	}

	for _, key := range known[:4] {
		if _, ok := m[key]; !ok {
			return nil, fmt.Errorf("attribute %q: %w", key, ErrMissingRequiredAttribute)
		}
	}
	return m, nil
}

func unquote(s string) string {
	return strings.Trim(s, `"'`)
}
