package gaze

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteDelimited writes the series as a header row of Columns followed by one
// row per sample.
func (s Series) WriteDelimited(w io.Writer, delimiter rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delimiter
	if err := cw.Write(s.Columns()); err != nil {
		return err
	}
	record := make([]string, 0, 1+2*len(s.Tracks))
	for i := 0; i < s.Len(); i++ {
		record = record[:0]
		for _, v := range s.Row(i) {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
