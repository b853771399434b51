// Package datanorm decodes semicolon-delimited DATANORM catalog files.
// Only article (A) and graduated price (Z) records are interpreted.
package datanorm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// DefaultInputEncoding is the charset DATANORM files are usually written in.
const DefaultInputEncoding = "latin-1"

const maxLineSize = 1 << 20

// Common spellings that are not registered IANA names.
var encodingAliases = map[string]string{
	"latin-1": "ISO-8859-1",
	"latin_1": "ISO-8859-1",
	"cp1252":  "windows-1252",
	"utf8":    "UTF-8",
}

// LookupEncoding resolves a charset name such as "latin-1", "cp1252" or
// "utf-8".
func LookupEncoding(name string) (encoding.Encoding, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := encodingAliases[key]; ok {
		key = alias
	}
	enc, err := ianaindex.IANA.Encoding(key)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc, nil
}

// Line is one non-empty source line.
type Line struct {
	No  int
	Raw string
}

// Reader streams the non-empty lines of a DATANORM source, decoded to UTF-8.
type Reader struct {
	scanner *bufio.Scanner
	lineNo  int
}

// NewReader decodes r with the named charset.
func NewReader(r io.Reader, encodingName string) (*Reader, error) {
	enc, err := LookupEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	scanner := bufio.NewScanner(transform.NewReader(r, enc.NewDecoder()))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{scanner: scanner}, nil
}

// Next returns the next non-empty line. It returns false at end of input
// or on a read error; check Err afterwards.
func (r *Reader) Next() (Line, bool) {
	for r.scanner.Scan() {
		r.lineNo++
		raw := strings.TrimRight(r.scanner.Text(), "\r\n")
		if raw == "" {
			continue
		}
		return Line{No: r.lineNo, Raw: raw}, true
	}
	return Line{}, false
}

// Err returns the first read error.
func (r *Reader) Err() error {
	if err := r.scanner.Err(); err != nil {
		return fmt.Errorf("failed to read line %d: %w", r.lineNo+1, err)
	}
	return nil
}

// OpenFile opens a DATANORM file. The caller closes the returned file.
func OpenFile(path, encodingName string) (*Reader, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open datanorm file: %w", err)
	}
	r, err := NewReader(f, encodingName)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return r, f, nil
}
