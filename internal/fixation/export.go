package fixation

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "fixations"

// Record returns the row's values in Columns order.
func (r Row) Record() []string {
	return []string{
		formatFloat(r.StartTime),
		formatFloat(r.EndTime),
		formatFloat(r.Duration),
		formatFloat(r.XPos),
		formatFloat(r.YPos),
		strconv.FormatBool(r.FlankedByDataLoss),
		formatFloat(r.FractionInterpolated),
		formatFloat(r.WeightCutoff),
		formatFloat(r.RMSxy),
		formatFloat(r.BCEA),
		formatFloat(r.RangeX),
		formatFloat(r.RangeY),
		r.Participant,
		r.Trial,
	}
}

func (r Row) cells() []any {
	return []any{
		r.StartTime, r.EndTime, r.Duration, r.XPos, r.YPos,
		r.FlankedByDataLoss, r.FractionInterpolated, r.WeightCutoff,
		r.RMSxy, r.BCEA, r.RangeX, r.RangeY,
		r.Participant, r.Trial,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteDelimited writes the header and every row using delimiter.
func (t *Table) WriteDelimited(w io.Writer, delimiter rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delimiter
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.Rows() {
		if err := cw.Write(row.Record()); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX saves the table as a single-sheet workbook at path.
func (t *Table) WriteXLSX(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	header := make([]any, len(Columns))
	for i, col := range Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.Rows() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row.cells()
		if err := f.SetSheetRow(xlsxSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
