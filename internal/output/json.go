package output

import (
	"bufio"
	"fmt"
	"io"
	"slices"

	json "github.com/goccy/go-json"

	"github.com/inodb/vibe-csq/internal/vcf"
)

// collisionPrefix is prepended to an annotation sub-field whose name equals a
// selected VCF column.
const collisionPrefix = "annotation."

// JSONWriter writes one JSON object per line, keys in selection order: VCF
// columns first, then annotation sub-fields. VCF columns keep their native
// types (POS as a number, ALT as an array, missing QUAL as null); unset
// annotation sub-fields are null.
type JSONWriter struct {
	w         *bufio.Writer
	fields    []string
	annFields []string
	annKeys   [][]byte
	colKeys   [][]byte
}

// NewJSONWriter creates a new JSON lines writer.
func NewJSONWriter(w io.Writer, fields, annFields []string) *JSONWriter {
	jw := &JSONWriter{
		w:         bufio.NewWriter(w),
		fields:    fields,
		annFields: annFields,
	}
	for _, f := range fields {
		jw.colKeys = append(jw.colKeys, encodeKey(f))
	}
	for _, f := range annFields {
		name := f
		if slices.Contains(fields, f) {
			name = collisionPrefix + f
		}
		jw.annKeys = append(jw.annKeys, encodeKey(name))
	}
	return jw
}

func encodeKey(name string) []byte {
	b, _ := json.Marshal(name)
	return append(b, ':')
}

// WriteHeader is a no-op; each record carries its own keys.
func (jw *JSONWriter) WriteHeader() error {
	return nil
}

// Write writes a single variant as a JSON object.
func (jw *JSONWriter) Write(v *vcf.Variant) error {
	jw.w.WriteByte('{')
	for i, f := range jw.fields {
		val, err := v.Field(f)
		if err != nil {
			return fmt.Errorf("format %s:%d: %w", v.Chrom, v.Pos, err)
		}
		if err := jw.writeMember(i, jw.colKeys[i], val); err != nil {
			return err
		}
	}
	for i, f := range jw.annFields {
		var val any
		if s, ok := v.Annotation.Get(f); ok {
			val = s
		}
		if err := jw.writeMember(len(jw.fields)+i, jw.annKeys[i], val); err != nil {
			return err
		}
	}
	jw.w.WriteString("}\n")
	return nil
}

func (jw *JSONWriter) writeMember(i int, key []byte, val any) error {
	b, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if i > 0 {
		jw.w.WriteByte(',')
	}
	jw.w.Write(key)
	_, err = jw.w.Write(b)
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (jw *JSONWriter) Flush() error {
	return jw.w.Flush()
}
