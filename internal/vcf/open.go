package vcf

import (
	"bufio"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// IsGzipped reports whether the buffered stream starts with the gzip magic
// number (0x1f, 0x8b). It does not consume any input.
func IsGzipped(r *bufio.Reader) bool {
	magic, err := r.Peek(2)
	if err != nil {
		return false
	}
	return magic[0] == 0x1f && magic[1] == 0x8b
}

// openStream wraps r in a line reader, transparently decompressing gzip
// (and BGZF) input. The returned gzip reader is nil for plain text.
func openStream(r io.Reader) (*bufio.Reader, *gzip.Reader, error) {
	br := bufio.NewReader(r)
	if !IsGzipped(br) {
		return br, nil, nil
	}

	gz, err := gzip.NewReader(br)
	if err != nil {
		return nil, nil, fmt.Errorf("create gzip reader: %w", err)
	}
	return bufio.NewReader(gz), gz, nil
}
