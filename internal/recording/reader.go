package recording

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"gazefix/internal/gaze"
)

// invalidCode is assigned to an eye whose position cell is empty or NaN so the
// validity rule treats it as missing.
const invalidCode = 4

// ErrMissingTimeColumn indicates the recording lacks the configured timestamp column.
var ErrMissingTimeColumn = errors.New("time column not found")

// Columns names the header of each field of interest. Empty names are ignored.
type Columns struct {
	Time          string
	LeftX         string
	LeftY         string
	LeftValidity  string
	RightX        string
	RightY        string
	RightValidity string
	AverageX      string
	AverageY      string
}

// Options controls how a recording is parsed.
type Options struct {
	Columns Columns
	// Normalized positions are multiplied by ResX/ResY to obtain pixels.
	Normalized bool
	ResX       float64
	ResY       float64
}

// Recording is a parsed recording file.
type Recording struct {
	Samples  []gaze.RawSample
	HasLeft  bool
	HasRight bool
	// Average is nil unless the file carries both average columns.
	Average []gaze.Point
}

// Load parses a delimited (.tsv, .txt, .csv) or workbook (.xlsx) recording.
func Load(path string, opts Options) (*Recording, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	return parseRows(rows, opts)
}

func readRows(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readWorkbook(path)
	case ".csv":
		return readDelimited(path, ',')
	default:
		return readDelimited(path, '\t')
	}
}

func readDelimited(path string, delimiter rune) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read recording: %w", err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

type columnIndex struct {
	time, lx, ly, lv, rx, ry, rv, ax, ay int
}

func locate(header []string, cols Columns) columnIndex {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, seen := pos[name]; !seen {
			pos[name] = i
		}
	}
	find := func(name string) int {
		name = strings.TrimSpace(name)
		if name == "" {
			return -1
		}
		if i, ok := pos[name]; ok {
			return i
		}
		return -1
	}
	return columnIndex{
		time: find(cols.Time),
		lx:   find(cols.LeftX),
		ly:   find(cols.LeftY),
		lv:   find(cols.LeftValidity),
		rx:   find(cols.RightX),
		ry:   find(cols.RightY),
		rv:   find(cols.RightValidity),
		ax:   find(cols.AverageX),
		ay:   find(cols.AverageY),
	}
}

func parseRows(rows [][]string, opts Options) (*Recording, error) {
	if len(rows) == 0 {
		return &Recording{}, nil
	}
	idx := locate(rows[0], opts.Columns)
	if idx.time < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingTimeColumn, opts.Columns.Time)
	}

	rec := &Recording{
		HasLeft:  idx.lx >= 0 && idx.ly >= 0,
		HasRight: idx.rx >= 0 && idx.ry >= 0,
	}
	hasAverage := idx.ax >= 0 && idx.ay >= 0
	if hasAverage {
		rec.Average = make([]gaze.Point, 0, len(rows)-1)
	}

	scaleX, scaleY := 1.0, 1.0
	if opts.Normalized {
		scaleX, scaleY = opts.ResX, opts.ResY
	}

	rec.Samples = make([]gaze.RawSample, 0, len(rows)-1)
	for n, row := range rows[1:] {
		line := n + 2
		if blankRow(row) {
			continue
		}
		t, err := parseFloat(cell(row, idx.time))
		if err != nil {
			return nil, fmt.Errorf("line %d: time: %w", line, err)
		}
		sample := gaze.RawSample{Time: t}
		if rec.HasLeft {
			if sample.Left, err = parseEye(row, idx.lx, idx.ly, idx.lv, scaleX, scaleY); err != nil {
				return nil, fmt.Errorf("line %d: left eye: %w", line, err)
			}
		}
		if rec.HasRight {
			if sample.Right, err = parseEye(row, idx.rx, idx.ry, idx.rv, scaleX, scaleY); err != nil {
				return nil, fmt.Errorf("line %d: right eye: %w", line, err)
			}
		}
		if hasAverage {
			avg, err := parseEye(row, idx.ax, idx.ay, -1, scaleX, scaleY)
			if err != nil {
				return nil, fmt.Errorf("line %d: average: %w", line, err)
			}
			rec.Average = append(rec.Average, avg.Point())
		}
		rec.Samples = append(rec.Samples, sample)
	}
	return rec, nil
}

func parseEye(row []string, xi, yi, vi int, scaleX, scaleY float64) (gaze.Eye, error) {
	x, xMissing, err := parseCoord(cell(row, xi))
	if err != nil {
		return gaze.Eye{}, fmt.Errorf("x: %w", err)
	}
	y, yMissing, err := parseCoord(cell(row, yi))
	if err != nil {
		return gaze.Eye{}, fmt.Errorf("y: %w", err)
	}
	eye := gaze.Eye{X: x * scaleX, Y: y * scaleY}
	if vi >= 0 {
		code, err := parseCode(cell(row, vi))
		if err != nil {
			return gaze.Eye{}, fmt.Errorf("validity: %w", err)
		}
		eye.Validity = code
	}
	if xMissing || yMissing {
		// Keep the eye atomic: the validity rule blanks both coordinates.
		eye = gaze.Eye{X: math.Inf(-1), Y: math.Inf(-1), Validity: invalidCode}
	}
	return eye, nil
}

func parseCoord(value string) (float64, bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, true, nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false, err
	}
	if math.IsNaN(v) {
		return 0, true, nil
	}
	return v, false, nil
}

func parseCode(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return invalidCode, nil
	}
	if code, err := strconv.Atoi(value); err == nil {
		return code, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) {
		return 0, fmt.Errorf("invalid validity code %q", value)
	}
	// Anything outside the valid 0..1 range is invalid; converting a huge
	// float to int is not well defined.
	if f < 0 || f > 1 {
		return invalidCode, nil
	}
	return int(f), nil
}

func parseFloat(value string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(value), 64)
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
