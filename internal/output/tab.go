// Package output provides extracted-annotation output formatters.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/inodb/vibe-csq/internal/vcf"
)

// VariantWriter defines the interface for writing extracted variants.
type VariantWriter interface {
	WriteHeader() error
	Write(v *vcf.Variant) error
	Flush() error
}

// TabWriter writes one tab-delimited row per variant: the selected VCF
// columns followed by the selected annotation sub-fields.
type TabWriter struct {
	w         *bufio.Writer
	fields    []string
	annFields []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer, fields, annFields []string) *TabWriter {
	return &TabWriter{
		w:         bufio.NewWriter(w),
		fields:    fields,
		annFields: annFields,
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	columns := make([]string, 0, len(tw.fields)+len(tw.annFields))
	columns = append(columns, tw.fields...)
	columns = append(columns, tw.annFields...)
	_, err := tw.w.WriteString(strings.Join(columns, "\t") + "\n")
	return err
}

// Write writes a single variant. Unset annotation sub-fields are written as
// empty strings.
func (tw *TabWriter) Write(v *vcf.Variant) error {
	values := make([]string, 0, len(tw.fields)+len(tw.annFields))
	for _, f := range tw.fields {
		s, err := v.FieldString(f)
		if err != nil {
			return fmt.Errorf("format %s:%d: %w", v.Chrom, v.Pos, err)
		}
		values = append(values, s)
	}
	for _, f := range tw.annFields {
		values = append(values, v.Annotation.Value(f))
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}
