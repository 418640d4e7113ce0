// Package vcf provides VCF file parsing functionality.
package vcf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/inodb/vibe-csq/internal/vep"
)

// StandardFields lists the canonical names of the fixed VCF columns that
// can be read through Variant.Field.
var StandardFields = []string{"CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER"}

// minColumns is the 8 fixed columns plus FORMAT and at least one sample.
const minColumns = 10

// Variant represents a single data line of a VCF file.
type Variant struct {
	Chrom      string         // Chromosome name (e.g., "12", "chr12")
	Pos        int64          // 1-based genomic position
	ID         string         // Variant identifier, "." if absent
	Ref        string         // Reference allele
	Alt        []string       // Alternate alleles, comma-split
	Qual       *float64       // Quality score, nil for "."
	Filter     string         // Filter status (PASS or filter name)
	Info       map[string]any // INFO key to string value, or true for flags
	Format     []string       // FORMAT keys in column order
	Samples    SampleList
	Annotation vep.Annotation // nil without a sub-parser or when the key is absent
}

// ParseVariant parses one tab-separated data line. samples are the names
// from the #CHROM line; ann may be nil.
func ParseVariant(line string, samples []string, ann *vep.Parser) (*Variant, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < minColumns {
		return nil, fmt.Errorf("expected at least %d columns, found %d: %w",
			minColumns, len(fields), ErrMalformedVariant)
	}

	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid position %q: %w", fields[1], ErrMalformedVariant)
	}

	var qual *float64
	if fields[5] != "." {
		q, err := strconv.ParseFloat(fields[5], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid quality %q: %w", fields[5], ErrMalformedVariant)
		}
		qual = &q
	}

	v := &Variant{
		Chrom:  fields[0],
		Pos:    pos,
		ID:     fields[2],
		Ref:    fields[3],
		Alt:    strings.Split(fields[4], ","),
		Qual:   qual,
		Filter: fields[6],
		Info:   parseInfo(fields[7]),
		Format: strings.Split(fields[8], ":"),
	}
	v.Samples = parseSamples(v.Format, fields[9:], samples)

	if ann != nil {
		v.Annotation = ann.Decode(v.Info)
	}

	return v, nil
}

// parseInfo parses the INFO column into a map. Keys without a value are
// flags and map to true.
func parseInfo(info string) map[string]any {
	result := make(map[string]any)
	if info == "" || info == "." {
		return result
	}

	for _, kv := range SplitUnquoted(info, ';') {
		if kv == "" {
			continue
		}
		if key, value, ok := CutUnquoted(kv, '='); ok {
			result[key] = value
		} else {
			result[kv] = true
		}
	}

	return result
}

// parseSamples pairs sample columns with header names positionally.
func parseSamples(format, columns, names []string) SampleList {
	n := min(len(columns), len(names))
	samples := make([]Sample, n)
	for i := 0; i < n; i++ {
		values := strings.Split(columns[i], ":")
		m := make(map[string]string, len(format))
		for j := 0; j < min(len(format), len(values)); j++ {
			m[format[j]] = values[j]
		}
		samples[i] = Sample{name: names[i], fields: m}
	}
	return newSampleList(samples)
}

// Field returns a fixed column by its canonical name, case-insensitively.
// POS is returned as int64, ALT as []string and QUAL as *float64.
func (v *Variant) Field(name string) (any, error) {
	switch strings.ToUpper(name) {
	case "CHROM":
		return v.Chrom, nil
	case "POS":
		return v.Pos, nil
	case "ID":
		return v.ID, nil
	case "REF":
		return v.Ref, nil
	case "ALT":
		return v.Alt, nil
	case "QUAL":
		return v.Qual, nil
	case "FILTER":
		return v.Filter, nil
	}
	return nil, fmt.Errorf("field %q: %w", name, ErrKeyNotFound)
}

// FieldString returns a fixed column formatted as it appears in the file.
func (v *Variant) FieldString(name string) (string, error) {
	switch strings.ToUpper(name) {
	case "POS":
		return strconv.FormatInt(v.Pos, 10), nil
	case "ALT":
		return strings.Join(v.Alt, ","), nil
	case "QUAL":
		if v.Qual == nil {
			return ".", nil
		}
		return strconv.FormatFloat(*v.Qual, 'f', -1, 64), nil
	}
	f, err := v.Field(name)
	if err != nil {
		return "", err
	}
	return f.(string), nil
}
