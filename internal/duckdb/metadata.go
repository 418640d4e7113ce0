package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Decoding identifies how annotations were decoded from a file. Exported
// rows are only reusable when it matches the current run.
type Decoding struct {
	Key       string
	Separator string
}

// SourceCurrent reports whether fp was already exported with the same
// decoding and the file has not changed since.
func (s *Store) SourceCurrent(fp FileFingerprint, dec Decoding) (bool, error) {
	var (
		size    int64
		modTime time.Time
		stored  Decoding
	)
	err := s.db.QueryRow(`SELECT size, mod_time, annotation_key, separator FROM sources WHERE path=?`, fp.Path).
		Scan(&size, &modTime, &stored.Key, &stored.Separator)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query source: %w", err)
	}
	return size == fp.Size &&
		modTime.Equal(fp.ModTime.UTC().Truncate(time.Microsecond)) &&
		stored == dec, nil
}

// RecordSource stores the fingerprint of an exported file, replacing any
// previous record for the same path.
func (s *Store) RecordSource(fp FileFingerprint, version string, dec Decoding) error {
	if _, err := s.db.Exec(`DELETE FROM sources WHERE path=?`, fp.Path); err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	if _, err := s.db.Exec(`INSERT INTO sources VALUES (?, ?, ?, ?, ?, ?)`,
		fp.Path, fp.Size, fp.ModTime.UTC().Truncate(time.Microsecond), version, dec.Key, dec.Separator); err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	return nil
}

// ClearSource removes all annotation rows and the fingerprint for path.
func (s *Store) ClearSource(path string) error {
	if _, err := s.db.Exec(`DELETE FROM annotations WHERE source=?`, path); err != nil {
		return fmt.Errorf("delete annotations: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM sources WHERE path=?`, path); err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	return nil
}
