package fixation_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/xuri/excelize/v2"

	"gazefix/internal/fixation"
)

func events(start float64, n int) []fixation.Event {
	out := make([]fixation.Event, n)
	for i := range out {
		s := start + float64(i)*100
		out[i] = fixation.Event{StartTime: s, EndTime: s + 80, Duration: 80, XPos: float64(i), YPos: float64(i) * 2}
	}
	return out
}

func TestAppendPreservesFileAndFixationOrder(t *testing.T) {
	table := fixation.NewTable()
	idA := fixation.Identity{Participant: "01", Trial: "trialA"}
	idB := fixation.Identity{Participant: "02", Trial: "trialB"}
	a := events(0, 3)
	b := events(1000, 2)

	table.Append(idA, a)
	table.Append(idB, b)

	rows := table.Rows()
	if len(rows) != len(a)+len(b) {
		t.Fatalf("expected %d rows, got %d", len(a)+len(b), len(rows))
	}
	for i, ev := range a {
		if rows[i].Event != ev || rows[i].Identity != idA {
			t.Fatalf("row %d = %+v, want %+v from A", i, rows[i], ev)
		}
	}
	for i, ev := range b {
		row := rows[len(a)+i]
		if row.Event != ev || row.Identity != idB {
			t.Fatalf("row %d = %+v, want %+v from B", len(a)+i, row, ev)
		}
	}
}

func TestAppendEmptyAddsNothing(t *testing.T) {
	table := fixation.NewTable()
	table.Append(fixation.Identity{Participant: "01", Trial: "t1"}, events(0, 2))
	table.Append(fixation.Identity{Participant: "01", Trial: "t2"}, nil)
	table.Append(fixation.Identity{Participant: "01", Trial: "t3"}, events(0, 1))
	if table.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", table.Len())
	}
	for _, row := range table.Rows() {
		if row.Trial == "t2" {
			t.Fatal("file without fixations must not appear")
		}
	}
}

func TestConcurrentAppendKeepsFilesContiguous(t *testing.T) {
	table := fixation.NewTable()
	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			table.Append(fixation.Identity{Participant: string(rune('a' + p))}, events(0, 5))
		}(p)
	}
	wg.Wait()

	rows := table.Rows()
	if len(rows) != 40 {
		t.Fatalf("expected 40 rows, got %d", len(rows))
	}
	for i := 0; i < len(rows); i += 5 {
		for j := 0; j < 5; j++ {
			if rows[i+j].Participant != rows[i].Participant {
				t.Fatalf("rows for %s interleaved at %d", rows[i].Participant, i+j)
			}
			if rows[i+j].StartTime != float64(j)*100 {
				t.Fatalf("fixation order broken at %d", i+j)
			}
		}
	}
}

func TestWriteDelimitedColumnOrder(t *testing.T) {
	table := fixation.NewTable()
	ev := fixation.Event{
		StartTime: 10, EndTime: 110.5, Duration: 100.5, XPos: 960, YPos: 540,
		FlankedByDataLoss: true, FractionInterpolated: 0.25, WeightCutoff: 0.4,
		RMSxy: 0.1, BCEA: 0.02, RangeX: 12, RangeY: 8,
	}
	table.Append(fixation.Identity{Participant: "07", Trial: "trial3"}, []fixation.Event{ev})

	var buf bytes.Buffer
	if err := table.WriteDelimited(&buf, '\t'); err != nil {
		t.Fatalf("WriteDelimited: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %q", buf.String())
	}
	wantHeader := "FixStart\tFixEnd\tFixDur\tXPos\tYPos\tFlankedByDataLoss\tFractionInterpolated\tWeightCutoff\tRMSxy\tBCEA\tFixRangeX\tFixRangeY\tParticipant\tTrial"
	if lines[0] != wantHeader {
		t.Fatalf("header = %q", lines[0])
	}
	wantRow := "10\t110.5\t100.5\t960\t540\ttrue\t0.25\t0.4\t0.1\t0.02\t12\t8\t07\ttrial3"
	if lines[1] != wantRow {
		t.Fatalf("row = %q, want %q", lines[1], wantRow)
	}
}

func TestWriteXLSX(t *testing.T) {
	table := fixation.NewTable()
	table.Append(fixation.Identity{Participant: "01", Trial: "t1"}, events(0, 2))

	path := filepath.Join(t.TempDir(), "fixations.xlsx")
	if err := table.WriteXLSX(path); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("fixations")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "FixStart" || rows[0][13] != "Trial" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[2][12] != "01" || rows[2][13] != "t1" {
		t.Fatalf("unexpected identity cells %v", rows[2])
	}
}
