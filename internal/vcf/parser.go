package vcf

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"unicode"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/inodb/vibe-csq/internal/vep"
)

const (
	fileFormatPrefix = "##fileformat="
	metaPrefix       = "##"
	columnHeader     = "#CHROM"
)

// Options configure header interpretation.
type Options struct {
	// AnnotationKey is the INFO key holding VEP-style annotations.
	// Defaults to vep.DefaultKey.
	AnnotationKey string
	// AnnotationSep separates annotation sub-fields. Defaults to vep.DefaultSeparator.
	AnnotationSep string
	// LenientMetadata ignores unknown attributes in FORMAT/INFO lines instead
	// of rejecting the header.
	LenientMetadata bool
	// Logger receives debug messages about the header. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Parser reads a VCF stream: the header eagerly on construction, then
// variants one line at a time.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
	opts       Options
	logger     *zap.Logger
	done       bool

	version     string
	header      []string
	sampleNames []string
	info        map[string]*InfoMetadata
	format      map[string]*FormatMetadata
	annotations *vep.Parser
}

// NewParser opens the VCF file at path and parses its header.
// Supports both plain VCF and gzipped VCF (.vcf.gz) files; "-" reads stdin.
func NewParser(path string, opts Options) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin, opts)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}

	p, err := newParser(file, opts)
	if err != nil {
		file.Close()
		return nil, err
	}
	p.file = file
	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader (e.g., stdin).
// The caller keeps ownership of r; Close only releases the gzip reader.
func NewParserFromReader(r io.Reader, opts Options) (*Parser, error) {
	return newParser(r, opts)
}

func newParser(r io.Reader, opts Options) (*Parser, error) {
	if opts.AnnotationKey == "" {
		opts.AnnotationKey = vep.DefaultKey
	}
	if opts.AnnotationSep == "" {
		opts.AnnotationSep = vep.DefaultSeparator
	}

	p := &Parser{
		opts:   opts,
		logger: opts.Logger,
		info:   make(map[string]*InfoMetadata),
		format: make(map[string]*FormatMetadata),
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}

	var err error
	p.reader, p.gzipReader, err = openStream(r)
	if err != nil {
		return nil, err
	}

	if err := p.parseHeader(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// readLine returns the next physical line without its line terminator.
// A final line lacking a newline is still returned; io.EOF follows it.
func (p *Parser) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err == io.EOF && line == "" {
		return "", io.EOF
	}
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read line %d: %w", p.lineNumber+1, err)
	}
	p.lineNumber++
	return strings.TrimRight(line, "\r\n"), nil
}

func (p *Parser) headerError(msg string, err error) error {
	return &ParseError{Line: p.lineNumber, Message: msg, Err: err}
}

// parseHeader consumes the version line, the meta-lines and the #CHROM line.
// Header lines are trimmed of surrounding whitespace.
func (p *Parser) parseHeader() error {
	line, err := p.readLine()
	if err == io.EOF {
		return p.headerError("empty file", ErrMalformedHeader)
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, fileFormatPrefix) {
		return p.headerError("expected "+fileFormatPrefix+" line", ErrMalformedHeader)
	}
	p.version = strings.TrimSpace(strings.TrimPrefix(line, fileFormatPrefix))
	p.header = append(p.header, line)

	for {
		line, err := p.readLine()
		if err == io.EOF {
			return p.headerError("no #CHROM header line found", ErrMalformedHeader)
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		line = strings.TrimSpace(line)
		p.header = append(p.header, line)

		if strings.HasPrefix(line, metaPrefix) {
			if err := p.parseMetaLine(line); err != nil {
				return err
			}
			continue
		}

		if !strings.HasPrefix(line, columnHeader) {
			return p.headerError("expected #CHROM header line", ErrMalformedHeader)
		}
		// Extract sample names from columns after FORMAT (index 9+)
		if fields := strings.Fields(line); len(fields) > 9 {
			p.sampleNames = fields[9:]
		}
		return nil
	}
}

// parseMetaLine handles one ##TAG=value line. Only FORMAT and INFO are
// interpreted.
func (p *Parser) parseMetaLine(line string) error {
	tag, attrs, _ := CutUnquoted(line, '=')
	strict := !p.opts.LenientMetadata

	switch tag {
	case "##FORMAT":
		m, err := ParseFormat(attrs, strict)
		if err != nil {
			return p.metaError("FORMAT", err)
		}
		p.format[m.ID] = m
	case "##INFO":
		m, err := ParseInfo(attrs, strict)
		if err != nil {
			return p.metaError("INFO", err)
		}
		p.info[m.ID] = m
		if m.ID == p.opts.AnnotationKey {
			p.annotations = vep.New(m.Description, p.opts.AnnotationKey, p.opts.AnnotationSep)
			p.logger.Debug("found annotation header",
				zap.String("key", m.ID),
				zap.Int("fields", len(p.annotations.Variables())))
		}
	default:
		p.logger.Debug("ignoring meta-line",
			zap.String("tag", strings.TrimPrefix(tag, metaPrefix)),
			zap.Int("line", p.lineNumber))
	}
	return nil
}

func (p *Parser) metaError(kind string, err error) error {
	return p.headerError(fmt.Sprintf("invalid %s line: %v", kind, err),
		fmt.Errorf("%w: %w", ErrMalformedHeader, err))
}

// Next reads the next variant from the VCF file.
// Returns nil, nil when there are no more variants. A malformed line is
// reported once and ends the stream.
func (p *Parser) Next() (*Variant, error) {
	for !p.done {
		line, err := p.readLine()
		if err != nil {
			p.done = true
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("read variant line: %w", err)
		}

		line = strings.TrimRightFunc(line, unicode.IsSpace)
		if line == "" {
			continue // Skip empty lines
		}

		v, err := ParseVariant(line, p.sampleNames, p.annotations)
		if err != nil {
			p.done = true
			return nil, &ParseError{Line: p.lineNumber, Message: err.Error(), Err: err}
		}
		return v, nil
	}
	return nil, nil
}

// Variants returns a single-pass sequence over the remaining variants. It
// shares the parser's cursor, so ranging over it again after it is
// exhausted yields nothing.
func (p *Parser) Variants() iter.Seq2[*Variant, error] {
	return func(yield func(*Variant, error) bool) {
		for {
			v, err := p.Next()
			if err != nil {
				yield(nil, err)
				return
			}
			if v == nil {
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// Version returns the file format version, e.g. "VCFv4.2".
func (p *Parser) Version() string {
	return p.version
}

// Header returns the VCF header lines, including the #CHROM line.
func (p *Parser) Header() []string {
	return p.header
}

// SampleNames returns sample names from the #CHROM header line.
// Returns nil if no sample columns are present.
func (p *Parser) SampleNames() []string {
	return p.sampleNames
}

// Info returns the ##INFO declarations keyed by ID.
func (p *Parser) Info() map[string]*InfoMetadata {
	return p.info
}

// Format returns the ##FORMAT declarations keyed by ID.
func (p *Parser) Format() map[string]*FormatMetadata {
	return p.format
}

// Annotations returns the annotation sub-parser, or nil when the header has
// no INFO line for the annotation key.
func (p *Parser) Annotations() *vep.Parser {
	return p.annotations
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	p.done = true
	if p.gzipReader != nil {
		p.gzipReader.Close()
		p.gzipReader = nil
	}
	if p.file != nil {
		err := p.file.Close()
		p.file = nil
		return err
	}
	return nil
}
