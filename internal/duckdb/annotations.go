package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-csq/internal/vcf"
)

// defaultBatchSize is the number of buffered rows that triggers an append.
const defaultBatchSize = 10000

// AnnotationRow is one annotation sub-field of one variant.
type AnnotationRow struct {
	Source string
	Chrom  string
	Pos    int64
	ID     string
	Ref    string
	Alt    string   // comma-joined alternate alleles
	Qual   *float64 // nil when missing
	Filter string
	Field  string
	Value  *string // nil when the sub-field was empty
}

// AnnotationWriter buffers decoded annotations and appends them to the
// annotations table in batches. It implements output.VariantWriter.
type AnnotationWriter struct {
	store     *Store
	source    string
	fields    []string
	batchSize int
	pending   []AnnotationRow
	written   int
}

// NewAnnotationWriter creates a writer exporting the given annotation
// sub-fields of variants read from source.
func (s *Store) NewAnnotationWriter(source string, fields []string) *AnnotationWriter {
	return &AnnotationWriter{
		store:     s,
		source:    source,
		fields:    fields,
		batchSize: defaultBatchSize,
	}
}

// SetBatchSize sets the number of buffered rows that triggers an append.
// Values below 1 are ignored.
func (aw *AnnotationWriter) SetBatchSize(n int) {
	if n > 0 {
		aw.batchSize = n
	}
}

// WriteHeader is a no-op; the schema is created when the store is opened.
func (aw *AnnotationWriter) WriteHeader() error {
	return nil
}

// Write buffers one row per selected sub-field present in the annotation.
func (aw *AnnotationWriter) Write(v *vcf.Variant) error {
	alt := strings.Join(v.Alt, ",")
	for _, f := range aw.fields {
		value, ok := v.Annotation[f]
		if !ok {
			continue
		}
		aw.pending = append(aw.pending, AnnotationRow{
			Source: aw.source,
			Chrom:  v.Chrom,
			Pos:    v.Pos,
			ID:     v.ID,
			Ref:    v.Ref,
			Alt:    alt,
			Qual:   v.Qual,
			Filter: v.Filter,
			Field:  f,
			Value:  value,
		})
	}

	if len(aw.pending) >= aw.batchSize {
		return aw.Flush()
	}
	return nil
}

// Flush appends all buffered rows.
func (aw *AnnotationWriter) Flush() error {
	if err := aw.store.WriteAnnotations(aw.pending); err != nil {
		return err
	}
	aw.written += len(aw.pending)
	aw.pending = aw.pending[:0]
	return nil
}

// Written returns the number of rows appended so far.
func (aw *AnnotationWriter) Written() int {
	return aw.written
}

// WriteAnnotations batch-inserts rows into DuckDB using the Appender API.
func (s *Store) WriteAnnotations(rows []AnnotationRow) error {
	if len(rows) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "annotations")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, r := range rows {
		var qual, value driver.Value
		if r.Qual != nil {
			qual = *r.Qual
		}
		if r.Value != nil {
			value = *r.Value
		}
		if err := appender.AppendRow(
			r.Source, r.Chrom, r.Pos, r.ID, r.Ref, r.Alt,
			qual, r.Filter, r.Field, value,
		); err != nil {
			return fmt.Errorf("append annotation: %w", err)
		}
	}

	return appender.Flush()
}

// CountRows returns the number of exported annotation rows.
func (s *Store) CountRows() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT count(*) FROM annotations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count annotations: %w", err)
	}
	return n, nil
}

// LookupVariant returns the exported sub-fields of the variants at a position.
func (s *Store) LookupVariant(chrom string, pos int64) ([]AnnotationRow, error) {
	rows, err := s.db.Query(`SELECT
		source, chrom, pos, id, ref, alt, qual, filter, field, value
		FROM annotations
		WHERE chrom=? AND pos=?
		ORDER BY source, alt, field`, chrom, pos)
	if err != nil {
		return nil, fmt.Errorf("query variant: %w", err)
	}
	defer rows.Close()

	return scanAnnotationRows(rows)
}

// SearchByValue returns rows whose sub-field equals value, e.g.
// ("SYMBOL", "KRAS").
func (s *Store) SearchByValue(field, value string) ([]AnnotationRow, error) {
	rows, err := s.db.Query(`SELECT
		source, chrom, pos, id, ref, alt, qual, filter, field, value
		FROM annotations
		WHERE field=? AND value=?
		ORDER BY chrom, pos`, field, value)
	if err != nil {
		return nil, fmt.Errorf("query by value: %w", err)
	}
	defer rows.Close()

	return scanAnnotationRows(rows)
}

// scanAnnotationRows scans rows into AnnotationRow slices.
func scanAnnotationRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]AnnotationRow, error) {
	var results []AnnotationRow
	for rows.Next() {
		var r AnnotationRow
		if err := rows.Scan(
			&r.Source, &r.Chrom, &r.Pos, &r.ID, &r.Ref, &r.Alt,
			&r.Qual, &r.Filter, &r.Field, &r.Value,
		); err != nil {
			return nil, fmt.Errorf("scan annotation row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate annotation rows: %w", err)
	}
	return results, nil
}
