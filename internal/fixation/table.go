package fixation

import "sync"

// Columns is the exported column order of the fixation table.
var Columns = []string{
	"FixStart", "FixEnd", "FixDur", "XPos", "YPos",
	"FlankedByDataLoss", "FractionInterpolated", "WeightCutoff",
	"RMSxy", "BCEA", "FixRangeX", "FixRangeY",
	"Participant", "Trial",
}

// Table accumulates fixation rows across recordings. It is safe for
// concurrent Append calls; rows from one Append stay contiguous and ordered.
type Table struct {
	mu   sync.Mutex
	rows []Row
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// Append adds one row per fixation, in the given order, tagged with id.
func (t *Table) Append(id Identity, fixations []Event) {
	if len(fixations) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ev := range fixations {
		t.rows = append(t.rows, Row{Event: ev, Identity: id})
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rows)
}

// Rows returns a copy of the rows in insertion order.
func (t *Table) Rows() []Row {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Row, len(t.rows))
	copy(out, t.rows)
	return out
}
