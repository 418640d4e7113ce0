package vcf

// VariantReader is the interface for sources that yield variants one at a
// time. *Parser implements it.
type VariantReader interface {
	// Next reads the next variant.
	// Returns nil, nil when there are no more variants.
	Next() (*Variant, error)

	// Close closes the reader and releases resources.
	Close() error

	// LineNumber returns the current line number being processed.
	LineNumber() int
}

var _ VariantReader = (*Parser)(nil)
