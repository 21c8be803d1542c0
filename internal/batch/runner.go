package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"gazefix/internal/config"
	"gazefix/internal/fileutil"
	"gazefix/internal/fixation"
	"gazefix/internal/gaze"
	"gazefix/internal/logging"
	"gazefix/internal/metrics"
	"gazefix/internal/plot"
	"gazefix/internal/recording"
	"gazefix/internal/results"
	"gazefix/internal/services"
)

const (
	lockFileName = ".gazefix.lock"

	stageLoad     = "load"
	stageClean    = "clean"
	stageClassify = "classify"
	stagePlot     = "plot"
	stageExport   = "export"
)

// ErrLocked indicates another run holds the output directory.
var ErrLocked = errors.New("output directory is locked by another run")

// FileResult captures what happened to one recording.
type FileResult struct {
	File      recording.File
	Outcome   services.Outcome
	Err       error
	Layout    gaze.Layout
	Samples   int
	Fixations []fixation.Event
	Figure    string
	Elapsed   time.Duration
}

// Summary describes a completed run.
type Summary struct {
	RunID        string
	Folders      int
	Files        int
	Processed    int
	Skipped      map[services.Outcome]int
	Fixations    int
	TablePath    string
	WorkbookPath string
	StartedAt    time.Time
	FinishedAt   time.Time
	Results      []FileResult
}

// SkippedTotal returns how many recordings did not contribute rows.
func (s *Summary) SkippedTotal() int {
	total := 0
	for _, n := range s.Skipped {
		total += n
	}
	return total
}

// Option customizes a Runner.
type Option func(*Runner)

// WithStore persists run history to the results database.
func WithStore(store *results.Store) Option {
	return func(r *Runner) {
		r.store = store
	}
}

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records batch counters into m.
func WithMetrics(m *metrics.Batch) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithClock overrides the runner's time source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// Runner executes the pipeline over every recording below the data directory.
type Runner struct {
	cfg        *config.Config
	classifier fixation.Classifier
	store      *results.Store
	metrics    *metrics.Batch
	logger     *slog.Logger
	now        func() time.Time
}

// NewRunner constructs a runner. The store and metrics are optional.
func NewRunner(cfg *config.Config, classifier fixation.Classifier, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("batch runner requires config")
	}
	if classifier == nil {
		return nil, errors.New("batch runner requires a classifier")
	}
	r := &Runner{
		cfg:        cfg,
		classifier: classifier,
		logger:     logging.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "batch")
	return r, nil
}

// Run processes every discovered recording and writes the fixation table.
// Per-recording failures are reported in the summary; the returned error is
// reserved for failures that abort the whole run.
func (r *Runner) Run(ctx context.Context) (summary *Summary, err error) {
	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "batch", "prepare directories", "", err)
	}

	lockPath := filepath.Join(r.cfg.Paths.OutputDir, lockFileName)
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, lockPath)
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			r.logger.Warn("failed to release output lock", logging.Error(unlockErr))
		}
	}()

	folders, err := recording.Discover(r.cfg.Paths.DataDir, r.cfg.Tracker.Extensions)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "batch", "discover recordings", "", err)
	}
	files := recording.Flatten(folders)

	summary = &Summary{
		Folders:   len(folders),
		Files:     len(files),
		Skipped:   make(map[services.Outcome]int),
		StartedAt: r.now(),
	}
	if r.store != nil {
		run, err := r.store.BeginRun(ctx, r.cfg.Paths.DataDir, r.cfg.Paths.OutputDir)
		if err != nil {
			return nil, fmt.Errorf("record run start: %w", err)
		}
		summary.RunID = run.ID
	} else {
		summary.RunID = uuid.NewString()
	}

	ctx = services.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, r.logger)
	defer func() {
		r.finish(ctx, logger, summary, err)
	}()

	logger.Info("batch started",
		logging.String("data_dir", r.cfg.Paths.DataDir),
		logging.String("output_dir", r.cfg.Paths.OutputDir),
		logging.Int("folders", len(folders)),
		logging.Int("recordings", len(files)),
		logging.Int("workers", r.workers()),
	)

	fileResults, err := r.processAll(ctx, files, len(folders))
	if err != nil {
		return summary, err
	}

	table := fixation.NewTable()
	for _, res := range fileResults {
		if res.Outcome == services.OutcomeProcessed {
			table.Append(res.File.Identity, res.Fixations)
			summary.Processed++
			summary.Fixations += len(res.Fixations)
		} else {
			summary.Skipped[res.Outcome]++
		}
		r.metrics.ObserveFile(res.Outcome, res.Samples, len(res.Fixations))
		r.recordOutcome(ctx, logger, summary.RunID, res)
	}
	summary.Results = fileResults

	if err := r.export(ctx, logger, summary, table); err != nil {
		return summary, err
	}
	return summary, nil
}

func (r *Runner) workers() int {
	if r.cfg.Batch.Workers < 1 {
		return 1
	}
	return r.cfg.Batch.Workers
}

// processAll runs the per-recording pipeline with bounded parallelism. Results
// keep discovery order regardless of completion order.
func (r *Runner) processAll(ctx context.Context, files []recording.File, folders int) ([]FileResult, error) {
	out := make([]FileResult, len(files))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.workers())
	for i, file := range files {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			out[i] = r.processFile(groupCtx, file, folders)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Runner) processFile(ctx context.Context, file recording.File, folders int) FileResult {
	started := r.now()
	ctx = services.WithRecording(ctx, file.Identity.Participant, file.Identity.Trial)
	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldFile, file.Path))
	logger.Info("processing recording",
		logging.String("folder", fmt.Sprintf("%d of %d", file.FolderIndex, folders)),
		logging.String("recording", fmt.Sprintf("%d of %d", file.FileIndex, file.FolderFiles)),
	)

	res := FileResult{File: file}
	err := r.analyze(ctx, logger, &res)
	res.Err = err
	res.Outcome = services.OutcomeFor(err)
	res.Elapsed = r.now().Sub(started)
	if err != nil {
		res.Fixations = nil
		logging.WarnWithContext(logger, "recording skipped", eventTypeFor(res.Outcome),
			logging.String("outcome", string(res.Outcome)),
			logging.String(logging.FieldErrorHint, hintFor(res.Outcome)),
			logging.Error(err),
		)
		return res
	}
	logger.Info("recording processed",
		logging.String("layout", res.Layout.String()),
		logging.Int("samples", res.Samples),
		logging.Int("fixations", len(res.Fixations)),
		logging.Duration("elapsed", res.Elapsed),
	)
	return res
}

func (r *Runner) analyze(ctx context.Context, logger *slog.Logger, res *FileResult) error {
	rec, err := recording.Load(res.File.Path, r.cfg.RecordingOptions())
	if err != nil {
		return services.Wrap(services.ErrValidation, stageLoad, "parse recording", "", err)
	}
	res.Samples = len(rec.Samples)
	if len(rec.Samples) == 0 {
		return services.Wrap(services.ErrEmptyFileData, stageLoad, "read samples", "recording has no data rows", nil)
	}

	opts := r.cfg.GazeOptions()
	stats := gaze.Summarize(rec.Samples, opts)
	logger.Debug("samples cleaned",
		logging.Int("samples", stats.Samples),
		logging.Int("left_missing", stats.LeftMissing),
		logging.Int("right_missing", stats.RightMissing),
		logging.Int("both_missing", stats.BothMissing),
	)

	series, err := gaze.Reconcile(gaze.Input{
		Samples:  gaze.CleanAll(rec.Samples, opts),
		HasLeft:  rec.HasLeft,
		HasRight: rec.HasRight,
		Average:  gaze.CleanPoints(rec.Average, opts),
	})
	if errors.Is(err, gaze.ErrNoChannels) {
		return services.Wrap(services.ErrEmptyFileData, stageClean, "reconcile channels", "no usable gaze channel", err)
	}
	if err != nil {
		return services.Wrap(services.ErrValidation, stageClean, "reconcile channels", "", err)
	}
	res.Layout = series.Layout

	classifyStarted := r.now()
	result, err := r.classifier.Classify(services.WithStage(ctx, stageClassify), series, r.cfg.ClassifierOptions())
	r.metrics.ObserveClassify(r.now().Sub(classifyStarted))
	if err != nil {
		if services.OutcomeFor(err) != services.OutcomeClassificationFailed {
			err = services.Wrap(services.ErrClassification, stageClassify, "run classifier", "", err)
		}
		return err
	}
	if result.Empty() {
		return services.Wrap(services.ErrNoFixations, stageClassify, "", "classifier found no fixations", nil)
	}
	res.Fixations = result.Fixations

	r.writeArtifacts(logger, res, series, result)
	return nil
}

// writeArtifacts saves the overlay figure and parameter sidecar. Failures are
// logged; the recording still contributes its rows.
func (r *Runner) writeArtifacts(logger *slog.Logger, res *FileResult, series gaze.Series, result fixation.Result) {
	dir := filepath.Join(r.cfg.Paths.OutputDir, filepath.Base(res.File.Folder))
	trial := res.File.Identity.Trial

	if r.cfg.Output.Plots {
		path := filepath.Join(dir, trial+".png")
		fig := plot.Build(series, result.Fixations, plot.Resolution{Width: r.cfg.Tracker.ResX, Height: r.cfg.Tracker.ResY})
		render := plot.RenderOptions{Width: r.cfg.Output.PlotWidth, Height: r.cfg.Output.PlotHeight}
		err := fileutil.WriteFile(path, func(w io.Writer) error {
			return fig.Render(w, render)
		})
		if err != nil {
			logging.WarnWithContext(logger, "figure not written", "plot_failed",
				logging.String(logging.FieldStage, stagePlot),
				logging.String(logging.FieldImpact, "fixation rows kept without a figure"),
				logging.Error(err),
			)
		} else {
			res.Figure = path
		}
	}

	if r.cfg.Output.ParamsSidecar {
		path := filepath.Join(dir, trial+".params.yaml")
		if err := writeSidecar(path, res, result); err != nil {
			logging.WarnWithContext(logger, "parameter sidecar not written", "sidecar_failed",
				logging.String(logging.FieldStage, stageExport),
				logging.String(logging.FieldImpact, "fixation rows kept without a parameter record"),
				logging.Error(err),
			)
		}
	}
}

type sidecar struct {
	Participant string         `yaml:"participant"`
	Trial       string         `yaml:"trial"`
	Source      string         `yaml:"source"`
	Layout      string         `yaml:"layout"`
	Fixations   int            `yaml:"fixations"`
	Params      map[string]any `yaml:"params"`
}

func writeSidecar(path string, res *FileResult, result fixation.Result) error {
	payload, err := yaml.Marshal(sidecar{
		Participant: res.File.Identity.Participant,
		Trial:       res.File.Identity.Trial,
		Source:      res.File.Path,
		Layout:      res.Layout.String(),
		Fixations:   len(result.Fixations),
		Params:      result.Params,
	})
	if err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}
	return fileutil.WriteFile(path, func(w io.Writer) error {
		_, err := w.Write(payload)
		return err
	})
}

func (r *Runner) recordOutcome(ctx context.Context, logger *slog.Logger, runID string, res FileResult) {
	if r.store == nil {
		return
	}
	outcome := results.FileOutcome{
		Path:        res.File.Path,
		Participant: res.File.Identity.Participant,
		Trial:       res.File.Identity.Trial,
		Samples:     res.Samples,
		Outcome:     res.Outcome,
		Fixations:   len(res.Fixations),
		Elapsed:     res.Elapsed,
	}
	if res.Layout != 0 {
		outcome.Layout = res.Layout.String()
	}
	if res.Err != nil {
		outcome.Detail = res.Err.Error()
	}
	if err := r.store.RecordFile(ctx, runID, outcome); err != nil {
		logging.WarnWithContext(logger, "recording outcome not persisted", "store_write_failed",
			logging.String(logging.FieldFile, res.File.Path),
			logging.String(logging.FieldImpact, "run history incomplete"),
			logging.Error(err),
		)
	}
}

func (r *Runner) export(ctx context.Context, logger *slog.Logger, summary *Summary, table *fixation.Table) error {
	summary.TablePath = r.cfg.TablePath()
	err := fileutil.WriteFile(summary.TablePath, func(w io.Writer) error {
		return table.WriteDelimited(w, r.cfg.DelimiterRune())
	})
	if err != nil {
		return services.Wrap(services.ErrConfiguration, stageExport, "write fixation table", summary.TablePath, err)
	}
	logger.Info("fixation table written",
		logging.String("path", summary.TablePath),
		logging.Int("rows", table.Len()),
	)

	if r.cfg.Output.ExportXLSX {
		summary.WorkbookPath = fileutil.ReplaceExt(summary.TablePath, ".xlsx")
		if err := table.WriteXLSX(summary.WorkbookPath); err != nil {
			return services.Wrap(services.ErrConfiguration, stageExport, "write fixation workbook", summary.WorkbookPath, err)
		}
	}

	if r.store != nil {
		if err := r.store.SaveFixations(ctx, summary.RunID, table.Rows()); err != nil {
			logging.WarnWithContext(logger, "fixation rows not persisted", "store_write_failed",
				logging.String(logging.FieldImpact, "run history lacks fixation rows"),
				logging.Error(err),
			)
		}
	}
	return nil
}

// finish closes out the run record, metrics, and the closing log line.
func (r *Runner) finish(ctx context.Context, logger *slog.Logger, summary *Summary, runErr error) {
	summary.FinishedAt = r.now()
	if r.store != nil {
		// The run context may already be cancelled; the final status must still land.
		if err := r.store.FinishRun(context.WithoutCancel(ctx), summary.RunID, runErr); err != nil {
			logger.Warn("failed to record run completion", logging.Error(err))
		}
	}
	r.metrics.Finish(summary.StartedAt, summary.FinishedAt)
	if err := r.metrics.WriteTextfile(r.cfg.Metrics.TextfilePath); err != nil {
		logger.Warn("failed to write metrics textfile", logging.String("path", r.cfg.Metrics.TextfilePath), logging.Error(err))
	}

	if runErr != nil {
		logging.ErrorWithContext(logger, "batch failed", "batch_failed",
			logging.String(logging.FieldErrorHint, "check output directory permissions and configuration"),
			logging.Error(runErr),
		)
		return
	}
	logger.Info("batch completed",
		logging.Int("processed", summary.Processed),
		logging.Int("skipped", summary.SkippedTotal()),
		logging.Int("fixations", summary.Fixations),
		logging.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)
}

func eventTypeFor(outcome services.Outcome) string {
	switch outcome {
	case services.OutcomeEmpty:
		return "empty_file_data"
	case services.OutcomeNoFixations:
		return "no_fixations_found"
	case services.OutcomeClassificationFailed:
		return "classification_failed"
	case services.OutcomeInvalid:
		return "recording_invalid"
	default:
		return "recording_failed"
	}
}

func hintFor(outcome services.Outcome) string {
	switch outcome {
	case services.OutcomeEmpty:
		return "check the recording has data rows and gaze columns"
	case services.OutcomeNoFixations:
		return "inspect the recording quality or relax classifier thresholds"
	case services.OutcomeClassificationFailed:
		return "run the classifier command by hand on this recording"
	case services.OutcomeInvalid:
		return "check column names and numeric formatting"
	default:
		return "check logs for details"
	}
}
