package i2mc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gazefix/internal/fixation"
	"gazefix/internal/gaze"
	"gazefix/internal/services"
)

const (
	samplesFile = "samples.tsv"
	optionsFile = "options.json"
	resultFile  = "result.json"

	// stderrTail bounds how many trailing output lines are kept for error messages.
	stderrTail = 20
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithScratchDir places per-call working directories under dir instead of the
// system temp directory.
func WithScratchDir(dir string) Option {
	return func(c *Client) {
		c.scratchDir = strings.TrimSpace(dir)
	}
}

// Client runs the classifier command once per series.
type Client struct {
	binary     string
	args       []string
	timeout    time.Duration
	scratchDir string
	exec       Executor
}

// New constructs a classifier client. args are passed before the
// --input/--options/--output flags.
func New(binary string, args []string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("classifier command required")
	}
	client := &Client{
		binary:  binary,
		args:    append([]string(nil), args...),
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

var _ fixation.Classifier = (*Client)(nil)

// Classify writes the series and options, runs the classifier, and decodes
// its result. All failures carry services.ErrClassification or
// services.ErrTimeout.
func (c *Client) Classify(ctx context.Context, series gaze.Series, opts fixation.Options) (fixation.Result, error) {
	if series.Len() == 0 {
		return fixation.Result{}, services.Wrap(services.ErrClassification, "classify", "prepare", "empty series", nil)
	}

	workDir, err := os.MkdirTemp(c.scratchDir, "gazefix-i2mc-")
	if err != nil {
		return fixation.Result{}, services.Wrap(services.ErrClassification, "classify", "prepare", "create work dir", err)
	}
	defer os.RemoveAll(workDir)

	inputPath := filepath.Join(workDir, samplesFile)
	optionsPath := filepath.Join(workDir, optionsFile)
	outputPath := filepath.Join(workDir, resultFile)

	if err := writeSamples(inputPath, series); err != nil {
		return fixation.Result{}, services.Wrap(services.ErrClassification, "classify", "write samples", "", err)
	}
	if err := writeOptions(optionsPath, opts); err != nil {
		return fixation.Result{}, services.Wrap(services.ErrClassification, "classify", "write options", "", err)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := append(append([]string(nil), c.args...),
		"--input", inputPath,
		"--options", optionsPath,
		"--output", outputPath,
	)
	tail := newLineTail(stderrTail)
	if err := c.exec.Run(runCtx, c.binary, args, tail.add); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return fixation.Result{}, services.Wrap(services.ErrTimeout, "classify", c.binary, fmt.Sprintf("exceeded %s", c.timeout), err)
		}
		return fixation.Result{}, services.Wrap(services.ErrClassification, "classify", c.binary, tail.String(), err)
	}

	result, err := readResult(outputPath)
	if err != nil {
		return fixation.Result{}, services.Wrap(services.ErrClassification, "classify", "decode result", "", err)
	}
	return result, nil
}

func writeSamples(path string, series gaze.Series) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := series.WriteDelimited(file, '\t'); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func writeOptions(path string, opts fixation.Options) error {
	data, err := json.MarshalIndent(opts, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		scanErr error
		once    sync.Once
	)
	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if onOutput != nil {
				mu.Lock()
				onOutput(scanner.Text())
				mu.Unlock()
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}

// lineTail keeps the last n lines of command output.
type lineTail struct {
	n     int
	lines []string
}

func newLineTail(n int) *lineTail {
	return &lineTail{n: n}
}

func (t *lineTail) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.lines = append(t.lines, line)
	if len(t.lines) > t.n {
		t.lines = t.lines[len(t.lines)-t.n:]
	}
}

func (t *lineTail) String() string {
	return strings.Join(t.lines, "; ")
}
