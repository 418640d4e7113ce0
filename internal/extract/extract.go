// Package extract drives a VCF parser into an output writer, selecting VCF
// columns and annotation sub-fields.
package extract

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-csq/internal/output"
	"github.com/inodb/vibe-csq/internal/vcf"
	"github.com/inodb/vibe-csq/internal/vep"
)

// DefaultFields are the VCF columns written when none are requested.
var DefaultFields = []string{"CHROM", "POS", "REF", "ALT"}

var (
	// ErrNoAnnotations is returned when the VCF header declares no INFO line
	// for the annotation key.
	ErrNoAnnotations = errors.New("no annotations found")

	// ErrUnknownField is returned for a VCF column or annotation sub-field
	// that cannot be extracted.
	ErrUnknownField = errors.New("unknown field")
)

// NormalizeFields upper-cases VCF column names and checks them against
// vcf.StandardFields. An empty list yields DefaultFields.
func NormalizeFields(fields []string) ([]string, error) {
	if len(fields) == 0 {
		return slices.Clone(DefaultFields), nil
	}
	out := make([]string, len(fields))
	for i, f := range fields {
		u := strings.ToUpper(f)
		if !slices.Contains(vcf.StandardFields, u) {
			return nil, fmt.Errorf("vcf field %q (choose from %s): %w",
				f, strings.Join(vcf.StandardFields, ", "), ErrUnknownField)
		}
		out[i] = u
	}
	return out, nil
}

// ResolveAnnotationFields checks requested sub-fields against the parser's
// declared variables. An empty request selects every variable.
func ResolveAnnotationFields(p *vep.Parser, requested []string) ([]string, error) {
	if p == nil {
		return nil, ErrNoAnnotations
	}
	if len(requested) == 0 {
		return slices.Clone(p.Variables()), nil
	}
	for _, f := range requested {
		if !p.Has(f) {
			return nil, fmt.Errorf("annotation field not found: %s: %w", f, ErrUnknownField)
		}
	}
	return requested, nil
}

// Stats summarizes one extraction run.
type Stats struct {
	Variants    int // variants read
	Written     int // variants written
	Unannotated int // variants skipped for lacking an annotation
}

// Extractor copies annotated variants from a reader to a writer.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates a new extractor.
func NewExtractor() *Extractor {
	return &Extractor{logger: zap.NewNop()}
}

// SetLogger sets the logger for warning and info messages.
func (e *Extractor) SetLogger(l *zap.Logger) {
	e.logger = l
}

// Run writes the header and then every variant that carries an annotation.
// Variants without one are skipped with a warning. A read error stops the run.
func (e *Extractor) Run(r vcf.VariantReader, w output.VariantWriter) (Stats, error) {
	var stats Stats

	if err := w.WriteHeader(); err != nil {
		return stats, fmt.Errorf("write header: %w", err)
	}

	for {
		v, err := r.Next()
		if err != nil {
			return stats, fmt.Errorf("read variant: %w", err)
		}
		if v == nil {
			break
		}
		stats.Variants++

		if v.Annotation == nil {
			stats.Unannotated++
			e.logger.Warn("no annotations for variant",
				zap.String("chrom", v.Chrom),
				zap.Int64("pos", v.Pos),
				zap.Int("line", r.LineNumber()))
			continue
		}

		if err := w.Write(v); err != nil {
			return stats, fmt.Errorf("write variant: %w", err)
		}
		stats.Written++
	}

	if stats.Variants == 0 {
		e.logger.Info("0 variants processed")
	}

	if err := w.Flush(); err != nil {
		return stats, fmt.Errorf("flush output: %w", err)
	}
	return stats, nil
}
