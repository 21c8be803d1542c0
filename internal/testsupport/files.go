package testsupport

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"gazefix/internal/config"
)

// BinocularHeader is the column header of a binocular recording using the
// default column names.
var BinocularHeader = []string{"RelTimestamp", "LGazePos2dx", "LGazePos2dy", "LValidity", "RGazePos2dx", "RGazePos2dy", "RValidity"}

// WriteRecording writes a tab-delimited recording for participant folder and
// trial below the configured data directory and returns its path.
func WriteRecording(t testing.TB, cfg *config.Config, folder, trial string, header []string, rows [][]float64) string {
	t.Helper()

	path := filepath.Join(cfg.Paths.DataDir, folder, trial+".tsv")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}

	var b strings.Builder
	b.WriteString(strings.Join(header, "\t"))
	b.WriteByte('\n')
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		b.WriteString(strings.Join(cells, "\t"))
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
