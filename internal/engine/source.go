package engine

import "io"

// Row maps column names to raw cell values. A column absent from the map is
// missing for that row.
type Row map[string]string

// RowSource supplies rows in order. Next returns io.EOF once exhausted; any
// other error aborts the evaluation.
type RowSource interface {
	Columns() []string
	Next() (Row, error)
}

// SliceSource serves rows from memory.
type SliceSource struct {
	Header []string
	Rows   []Row
	pos    int
}

// NewSliceSource returns a source over rows with the given header.
func NewSliceSource(header []string, rows ...Row) *SliceSource {
	return &SliceSource{Header: header, Rows: rows}
}

func (s *SliceSource) Columns() []string {
	return s.Header
}

func (s *SliceSource) Next() (Row, error) {
	if s.pos >= len(s.Rows) {
		return nil, io.EOF
	}
	row := s.Rows[s.pos]
	s.pos++
	return row, nil
}

// Reset rewinds the source so it can be evaluated again.
func (s *SliceSource) Reset() {
	s.pos = 0
}
