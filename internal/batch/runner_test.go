package batch_test

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"gazefix/internal/batch"
	"gazefix/internal/config"
	"gazefix/internal/fixation"
	"gazefix/internal/gaze"
	"gazefix/internal/metrics"
	"gazefix/internal/services"
	"gazefix/internal/testsupport"
)

var leftOnlyHeader = []string{"RelTimestamp", "LGazePos2dx", "LGazePos2dy", "LValidity"}

// scriptedClassifier answers per trial name and records every series it sees.
type scriptedClassifier struct {
	mu        sync.Mutex
	fixations map[string][]fixation.Event
	failures  map[string]error
	params    map[string]any
	seen      map[string]gaze.Series
}

func newScriptedClassifier() *scriptedClassifier {
	return &scriptedClassifier{
		fixations: make(map[string][]fixation.Event),
		failures:  make(map[string]error),
		seen:      make(map[string]gaze.Series),
	}
}

func (c *scriptedClassifier) Classify(ctx context.Context, series gaze.Series, _ fixation.Options) (fixation.Result, error) {
	participant, trial, _ := services.RecordingFromContext(ctx)
	key := participant + "/" + trial

	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[key] = series
	if err := c.failures[key]; err != nil {
		return fixation.Result{}, err
	}
	return fixation.Result{Fixations: c.fixations[key], Params: c.params}, nil
}

func (c *scriptedClassifier) series(key string) (gaze.Series, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.seen[key]
	return s, ok
}

func fix(start, end float64) fixation.Event {
	return fixation.Event{
		StartTime:    start,
		EndTime:      end,
		Duration:     end - start,
		XPos:         960,
		YPos:         540,
		WeightCutoff: 0.4,
	}
}

func binocularRows(n int) [][]float64 {
	rows := make([][]float64, n)
	for i := range rows {
		t := float64(i) * 3.33
		rows[i] = []float64{t, 900 + float64(i), 500, 0, 905 + float64(i), 505, 0}
	}
	return rows
}

func readTable(t *testing.T, cfg *config.Config) [][]string {
	t.Helper()
	file, err := os.Open(cfg.TablePath())
	if err != nil {
		t.Fatalf("open table: %v", err)
	}
	defer file.Close()
	reader := csv.NewReader(file)
	reader.Comma = cfg.DelimiterRune()
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	if len(records) == 0 {
		t.Fatal("table missing header")
	}
	if strings.Join(records[0], ",") != strings.Join(fixation.Columns, ",") {
		t.Fatalf("unexpected header %v", records[0])
	}
	return records[1:]
}

func identities(rows [][]string) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = row[len(row)-2] + "/" + row[len(row)-1]
	}
	return out
}

func newRunner(t *testing.T, cfg *config.Config, classifier fixation.Classifier, opts ...batch.Option) *batch.Runner {
	t.Helper()
	runner, err := batch.NewRunner(cfg, classifier, opts...)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return runner
}

func TestNewRunnerRequiresDependencies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := batch.NewRunner(nil, newScriptedClassifier()); err == nil {
		t.Fatal("expected error without config")
	}
	if _, err := batch.NewRunner(cfg, nil); err == nil {
		t.Fatal("expected error without classifier")
	}
}

func TestRunCleansInvalidSampleBeforeClassification(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteRecording(t, cfg, "P01", "trial1", leftOnlyHeader, [][]float64{
		{0, 100, 200, 0},
		{3.33, 110, 210, 1},
		{6.67, 120, 220, 2},
		{10, 130, 230, 0},
		{13.33, 140, 240, 0},
	})

	classifier := newScriptedClassifier()
	classifier.fixations["01/trial1"] = []fixation.Event{fix(0, 13.33)}

	summary, err := newRunner(t, cfg, classifier).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != 1 || summary.Fixations != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	series, ok := classifier.series("01/trial1")
	if !ok {
		t.Fatal("classifier never received the series")
	}
	if series.Layout != gaze.LayoutLeftOnly || series.Len() != 5 || len(series.Tracks) != 1 {
		t.Fatalf("unexpected series layout=%v len=%d tracks=%d", series.Layout, series.Len(), len(series.Tracks))
	}
	points := series.Tracks[0].Points
	if points[2].X != -1920 || points[2].Y != -1080 {
		t.Fatalf("sample 3 not replaced by sentinel: %+v", points[2])
	}
	want := []gaze.Point{{X: 100, Y: 200}, {X: 110, Y: 210}, {}, {X: 130, Y: 230}, {X: 140, Y: 240}}
	for _, i := range []int{0, 1, 3, 4} {
		if points[i] != want[i] {
			t.Fatalf("sample %d changed: got %+v want %+v", i+1, points[i], want[i])
		}
	}
}

func TestRunSkipsRecordingWithoutFixations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteRecording(t, cfg, "P01", "a", testsupport.BinocularHeader, binocularRows(6))
	testsupport.WriteRecording(t, cfg, "P01", "b", testsupport.BinocularHeader, binocularRows(6))
	testsupport.WriteRecording(t, cfg, "P02", "a", testsupport.BinocularHeader, binocularRows(6))

	classifier := newScriptedClassifier()
	classifier.fixations["01/a"] = []fixation.Event{fix(0, 5), fix(6, 12)}
	classifier.fixations["02/a"] = []fixation.Event{fix(1, 9)}

	summary, err := newRunner(t, cfg, classifier).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Files != 3 || summary.Processed != 2 || summary.Skipped[services.OutcomeNoFixations] != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	rows := readTable(t, cfg)
	got := strings.Join(identities(rows), " ")
	if got != "01/a 01/a 02/a" {
		t.Fatalf("unexpected table rows: %s", got)
	}
	if rows[1][0] != "6" || rows[1][1] != "12" {
		t.Fatalf("fixation order not preserved: %v", rows[1])
	}
}

func TestRunSkipsClassifierFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteRecording(t, cfg, "P01", "a", testsupport.BinocularHeader, binocularRows(4))
	testsupport.WriteRecording(t, cfg, "P01", "b", testsupport.BinocularHeader, binocularRows(4))

	classifier := newScriptedClassifier()
	classifier.fixations["01/b"] = []fixation.Event{fix(0, 9)}
	classifier.failures["01/a"] = errors.New("exit status 1")

	summary, err := newRunner(t, cfg, classifier).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	first := summary.Results[0]
	if first.Outcome != services.OutcomeClassificationFailed {
		t.Fatalf("expected classification failure, got %s", first.Outcome)
	}
	if !errors.Is(first.Err, services.ErrClassification) {
		t.Fatalf("error not tagged as classification failure: %v", first.Err)
	}
	if got := identities(readTable(t, cfg)); len(got) != 1 || got[0] != "01/b" {
		t.Fatalf("unexpected table rows %v", got)
	}
}

func TestRunClassifiesEmptyAndInvalidRecordings(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteRecording(t, cfg, "P01", "empty", testsupport.BinocularHeader, nil)
	testsupport.WriteRecording(t, cfg, "P01", "nochannels", []string{"RelTimestamp", "Pupil"}, [][]float64{{0, 3}, {1, 3}})
	bad := filepath.Join(cfg.Paths.DataDir, "P01", "broken.tsv")
	if err := os.WriteFile(bad, []byte("Stamp\tLGazePos2dx\n1\t2\n"), 0o644); err != nil {
		t.Fatalf("write broken recording: %v", err)
	}

	summary, err := newRunner(t, cfg, newScriptedClassifier()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	outcomes := make(map[string]services.Outcome)
	for _, res := range summary.Results {
		outcomes[res.File.Identity.Trial] = res.Outcome
	}
	want := map[string]services.Outcome{
		"broken":     services.OutcomeInvalid,
		"empty":      services.OutcomeEmpty,
		"nochannels": services.OutcomeEmpty,
	}
	for trial, outcome := range want {
		if outcomes[trial] != outcome {
			t.Errorf("%s: outcome %q, want %q", trial, outcomes[trial], outcome)
		}
	}
	if rows := readTable(t, cfg); len(rows) != 0 {
		t.Fatalf("expected header-only table, got %d rows", len(rows))
	}
}

func TestRunParallelKeepsDiscoveryOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(4))
	classifier := newScriptedClassifier()
	var want []string
	for _, folder := range []string{"P01", "P02", "P03"} {
		for _, trial := range []string{"t1", "t2", "t3"} {
			testsupport.WriteRecording(t, cfg, folder, trial, testsupport.BinocularHeader, binocularRows(3))
			key := strings.TrimPrefix(folder, "P") + "/" + trial
			classifier.fixations[key] = []fixation.Event{fix(0, 1)}
			want = append(want, key)
		}
	}

	summary, err := newRunner(t, cfg, classifier).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Processed != len(want) {
		t.Fatalf("expected %d processed, got %d", len(want), summary.Processed)
	}
	if got := strings.Join(identities(readTable(t, cfg)), " "); got != strings.Join(want, " ") {
		t.Fatalf("rows out of order:\n got %s\nwant %s", got, strings.Join(want, " "))
	}
}

func TestRunWritesArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPlots())
	cfg.Output.ParamsSidecar = true
	cfg.Output.ExportXLSX = true
	testsupport.WriteRecording(t, cfg, "P07", "trial2", testsupport.BinocularHeader, binocularRows(8))

	classifier := newScriptedClassifier()
	classifier.fixations["07/trial2"] = []fixation.Event{fix(0, 10), fix(12, 20)}
	classifier.params = map[string]any{"maxMergeDist": 30.5, "downsamples": []any{2.0, 5.0, 10.0}}

	summary, err := newRunner(t, cfg, classifier).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	figure := filepath.Join(cfg.Paths.OutputDir, "P07", "trial2.png")
	if summary.Results[0].Figure != figure {
		t.Fatalf("unexpected figure path %q", summary.Results[0].Figure)
	}
	data, err := os.ReadFile(figure)
	if err != nil {
		t.Fatalf("read figure: %v", err)
	}
	if !strings.HasPrefix(string(data), "\x89PNG") {
		t.Fatal("figure is not a PNG")
	}

	raw, err := os.ReadFile(filepath.Join(cfg.Paths.OutputDir, "P07", "trial2.params.yaml"))
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}
	var sidecar struct {
		Participant string         `yaml:"participant"`
		Trial       string         `yaml:"trial"`
		Layout      string         `yaml:"layout"`
		Fixations   int            `yaml:"fixations"`
		Params      map[string]any `yaml:"params"`
	}
	if err := yaml.Unmarshal(raw, &sidecar); err != nil {
		t.Fatalf("decode sidecar: %v", err)
	}
	if sidecar.Participant != "07" || sidecar.Trial != "trial2" || sidecar.Fixations != 2 {
		t.Fatalf("unexpected sidecar %+v", sidecar)
	}
	if sidecar.Params["maxMergeDist"] != 30.5 {
		t.Fatalf("params not carried: %+v", sidecar.Params)
	}

	if summary.WorkbookPath == "" {
		t.Fatal("expected workbook path")
	}
	if _, err := os.Stat(summary.WorkbookPath); err != nil {
		t.Fatalf("workbook missing: %v", err)
	}
}

func TestRunPersistsHistoryAndMetrics(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Metrics.TextfilePath = filepath.Join(testsupport.BaseDir(cfg), "metrics", "gazefix.prom")
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.WriteRecording(t, cfg, "P01", "a", testsupport.BinocularHeader, binocularRows(4))
	testsupport.WriteRecording(t, cfg, "P01", "b", testsupport.BinocularHeader, nil)

	classifier := newScriptedClassifier()
	classifier.fixations["01/a"] = []fixation.Event{fix(0, 3), fix(4, 9)}

	m := metrics.New()
	summary, err := newRunner(t, cfg, classifier, batch.WithStore(store), batch.WithMetrics(m)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	ctx := context.Background()
	run, err := store.GetRun(ctx, summary.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Files != 2 || run.Processed != 1 || run.Fixations != 2 {
		t.Fatalf("unexpected stored run %+v", run)
	}
	files, err := store.RunFiles(ctx, summary.RunID)
	if err != nil {
		t.Fatalf("RunFiles: %v", err)
	}
	if len(files) != 2 || files[1].Outcome != services.OutcomeEmpty {
		t.Fatalf("unexpected stored outcomes %+v", files)
	}
	rows, err := store.RunFixations(ctx, summary.RunID)
	if err != nil {
		t.Fatalf("RunFixations: %v", err)
	}
	if len(rows) != 2 || rows[0].Trial != "a" {
		t.Fatalf("unexpected stored fixations %+v", rows)
	}

	prom, err := os.ReadFile(cfg.Metrics.TextfilePath)
	if err != nil {
		t.Fatalf("read metrics textfile: %v", err)
	}
	if !strings.Contains(string(prom), `gazefix_recordings_total{outcome="processed"} 1`) {
		t.Fatalf("metrics textfile missing processed count:\n%s", prom)
	}
}

func TestRunRefusesLockedOutputDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.OutputDir, 0o755); err != nil {
		t.Fatalf("mkdir output: %v", err)
	}
	held := flock.New(filepath.Join(cfg.Paths.OutputDir, ".gazefix.lock"))
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("pre-lock output dir: ok=%v err=%v", ok, err)
	}
	t.Cleanup(func() { _ = held.Unlock() })

	_, err = newRunner(t, cfg, newScriptedClassifier()).Run(context.Background())
	if !errors.Is(err, batch.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteRecording(t, cfg, "P01", "a", testsupport.BinocularHeader, binocularRows(4))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newRunner(t, cfg, newScriptedClassifier()).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, statErr := os.Stat(cfg.TablePath()); !os.IsNotExist(statErr) {
		t.Fatalf("table should not be written for a cancelled run: %v", statErr)
	}
}
