package datanorm

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, r *Reader) []Line {
	t.Helper()
	var lines []Line
	for {
		line, ok := r.Next()
		if !ok {
			break
		}
		lines = append(lines, line)
	}
	require.NoError(t, r.Err())
	return lines
}

func TestReader_SkipsEmptyLinesAndKeepsNumbering(t *testing.T) {
	input := "V 050;Header\r\n\r\nA;N;ART001;First\r\n\nZ;N;ART001;01;;Step\n"
	r, err := NewReader(strings.NewReader(input), "utf-8")
	require.NoError(t, err)

	lines := collect(t, r)
	assert.Equal(t, []Line{
		{No: 1, Raw: "V 050;Header"},
		{No: 3, Raw: "A;N;ART001;First"},
		{No: 5, Raw: "Z;N;ART001;01;;Step"},
	}, lines)
}

func TestReader_DecodesLatin1(t *testing.T) {
	raw := []byte("A;N;ART003;Gr\xfc\xdfe;;St\xfcck;;1;12,50\n")
	r, err := NewReader(bytes.NewReader(raw), DefaultInputEncoding)
	require.NoError(t, err)

	lines := collect(t, r)
	require.Len(t, lines, 1)
	assert.Equal(t, "A;N;ART003;Grüße;;Stück;;1;12,50", lines[0].Raw)

	rec, err := ParseLine(lines[0].Raw)
	require.NoError(t, err)
	assert.Equal(t, "Grüße", rec.Article.Name)
	assert.Equal(t, "12.5", rec.Article.ListPrice.Decimal.String())
}

func TestLookupEncoding(t *testing.T) {
	for _, name := range []string{"latin-1", "LATIN_1", "iso-8859-1", "cp1252", "utf8", "UTF-8"} {
		enc, err := LookupEncoding(name)
		require.NoError(t, err, name)
		assert.NotNil(t, enc, name)
	}

	_, err := LookupEncoding("klingon-7")
	assert.Error(t, err)
}

func TestNewReader_UnknownEncoding(t *testing.T) {
	_, err := NewReader(strings.NewReader("A;N;X"), "no-such-charset")
	assert.Error(t, err)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "DATANORM.001")
	require.NoError(t, os.WriteFile(path, []byte("A;N;ART001;Name;;PCS;;1;1\n"), 0o644))

	r, f, err := OpenFile(path, DefaultInputEncoding)
	require.NoError(t, err)
	defer f.Close()

	lines := collect(t, r)
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].No)

	_, _, err = OpenFile(filepath.Join(t.TempDir(), "missing"), DefaultInputEncoding)
	assert.Error(t, err)
}
