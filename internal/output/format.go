package output

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// Formats lists the supported output formats.
var Formats = []string{"tab", "json"}

// ErrUnknownFormat is returned for an output format not in Formats.
var ErrUnknownFormat = errors.New("unknown output format")

// CheckFormat returns an error unless format is one of Formats.
func CheckFormat(format string) error {
	if !slices.Contains(Formats, format) {
		return fmt.Errorf("%w %q (choose from %s)", ErrUnknownFormat, format, strings.Join(Formats, ", "))
	}
	return nil
}

// NewWriter returns the writer for format.
func NewWriter(format string, w io.Writer, fields, annFields []string) (VariantWriter, error) {
	switch format {
	case "tab":
		return NewTabWriter(w, fields, annFields), nil
	case "json":
		return NewJSONWriter(w, fields, annFields), nil
	}
	return nil, CheckFormat(format)
}
