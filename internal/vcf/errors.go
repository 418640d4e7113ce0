package vcf

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedHeader is returned when the version line, a FORMAT/INFO
	// meta-line or the #CHROM line cannot be parsed.
	ErrMalformedHeader = errors.New("malformed header")

	// ErrMalformedVariant is returned for data lines that cannot be turned
	// into a Variant.
	ErrMalformedVariant = errors.New("malformed variant")

	// ErrMissingRequiredAttribute is returned when a meta-line lacks ID,
	// Description, Type or Number.
	ErrMissingRequiredAttribute = errors.New("missing required attribute")

	// ErrUnknownAttribute is returned when a meta-line carries a key outside
	// the recognized set and strict metadata parsing is enabled.
	ErrUnknownAttribute = errors.New("unknown attribute")

	// ErrKeyNotFound is returned for lookups of unknown sample names,
	// FORMAT keys or standard field names.
	ErrKeyNotFound = errors.New("key not found")
)

// ParseError represents an error during VCF parsing with line context.
type ParseError struct {
	Line    int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}

// Unwrap returns the sentinel error describing the failure class.
func (e *ParseError) Unwrap() error {
	return e.Err
}
