// Package dataset reads tabular data files into rows for the engine.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/bfv/rulecheck/internal/engine"
)

// ErrNoHeader is returned for a file without a header line.
var ErrNoHeader = errors.New("csv has no header row")

// CSVSource reads a CSV file with a header line. It implements engine.RowSource.
type CSVSource struct {
	reader   *csv.Reader
	closer   io.Closer
	header   []string
	encoding Encoding
}

// OpenCSV opens path on fs. The caller must Close the source.
func OpenCSV(fs afero.Fs, path string, enc Encoding) (*CSVSource, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening csv %q: %w", path, err)
	}
	src, err := NewCSVSource(f, enc)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading csv %q: %w", path, err)
	}
	src.closer = f
	log.Debug().Str("path", path).Str("encoding", string(src.encoding)).Strs("columns", src.header).Msg("csv opened")
	return src, nil
}

// NewCSVSource reads the header from r and prepares row iteration.
func NewCSVSource(r io.Reader, enc Encoding) (*CSVSource, error) {
	text, used, err := decode(r, enc)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(text)
	cr.FieldsPerRecord = -1 // ragged rows are a data problem, not a read error
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	seen := make(map[string]bool, len(header))
	for _, name := range header {
		if seen[name] {
			log.Warn().Str("column", name).Msg("duplicate column name; the first occurrence wins")
		}
		seen[name] = true
	}

	return &CSVSource{reader: cr, header: header, encoding: used}, nil
}

// Columns returns the header in file order.
func (s *CSVSource) Columns() []string {
	return s.header
}

// Encoding reports the encoding used to read the file.
func (s *CSVSource) Encoding() Encoding {
	return s.encoding
}

// Next returns the next data row. Short rows simply lack the trailing
// columns; extra fields beyond the header are ignored.
func (s *CSVSource) Next() (engine.Row, error) {
	record, err := s.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading csv row: %w", err)
	}

	if len(record) > len(s.header) {
		line, _ := s.reader.FieldPos(0)
		log.Debug().Int("line", line).Int("fields", len(record)).Msg("row has more fields than the header")
	}

	row := make(engine.Row, len(s.header))
	for i, name := range s.header {
		if i >= len(record) {
			break
		}
		if _, dup := row[name]; dup {
			continue
		}
		row[name] = record[i]
	}
	return row, nil
}

// Close releases the underlying file, if any.
func (s *CSVSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
