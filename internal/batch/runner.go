package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"sublift/internal/config"
	"sublift/internal/logging"
	"sublift/internal/media"
	"sublift/internal/pipeline"
	"sublift/internal/services"
)

// Options control one batch run.
type Options struct {
	// Process applies to every video in the batch.
	Process pipeline.Options
	// Workers bounds the pool; 0 falls back to the configured value, then
	// to one worker per CPU.
	Workers int
}

type videoProcessor interface {
	ProcessVideo(ctx context.Context, path string, opts pipeline.Options) (*pipeline.Result, error)
}

// Runner fans a library scan out over a bounded worker pool. A flock file
// under the output directory keeps two runs from processing one library at
// the same time.
type Runner struct {
	cfg      *config.Config
	base     *slog.Logger
	logger   *slog.Logger
	procOpts []pipeline.ProcessorOption
	factory  func(logger *slog.Logger) videoProcessor
}

// RunnerOption customizes runner construction.
type RunnerOption func(*Runner)

// WithPipelineOptions forwards construction options to the per-run processor.
func WithPipelineOptions(opts ...pipeline.ProcessorOption) RunnerOption {
	return func(r *Runner) {
		r.procOpts = append(r.procOpts, opts...)
	}
}

// WithProcessorFactory swaps processor construction (tests).
func WithProcessorFactory(factory func(logger *slog.Logger) videoProcessor) RunnerOption {
	return func(r *Runner) {
		if factory != nil {
			r.factory = factory
		}
	}
}

// NewRunner builds a batch runner.
func NewRunner(cfg *config.Config, logger *slog.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:    cfg,
		base:   logger,
		logger: logging.NewComponentLogger(logger, "batch"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.factory == nil {
		r.factory = func(runLogger *slog.Logger) videoProcessor {
			return pipeline.NewProcessor(r.cfg, runLogger, r.procOpts...)
		}
	}
	return r
}

// Run scans root for video files and processes each one through the
// pipeline. One video's failure never aborts the others; cancellation stops
// dispatch and reports in-flight videos as incomplete.
func (r *Runner) Run(ctx context.Context, root string, opts Options) (*Report, error) {
	started := time.Now()
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, services.Wrap(services.ErrValidation, "batch", "run", "No library root supplied", nil)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "batch", "run", fmt.Sprintf("Cannot access %q", root), err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "batch", "run", fmt.Sprintf("%q is not a directory", root), nil)
	}

	unlock, err := r.acquireLock(opts)
	if err != nil {
		return nil, err
	}
	defer unlock()

	runID := uuid.NewString()
	runLogger := r.base
	if runLogger != nil {
		runLogger = runLogger.With(logging.String(logging.FieldCorrelationID, runID))
	}
	logger := logging.NewComponentLogger(runLogger, "batch")
	processor := r.factory(runLogger)

	videos, err := r.scan(root, logger)
	if err != nil {
		return nil, err
	}
	report := &Report{RunID: runID, Root: root, Scanned: len(videos)}
	if len(videos) == 0 {
		report.Elapsed = time.Since(started)
		logger.Info("no videos found", logging.String("root", root))
		return report, nil
	}

	workers := r.workerCount(opts)
	logger.Info("batch started",
		logging.String("root", root),
		logging.Int("videos", len(videos)),
		logging.Int("workers", workers),
	)

	jobs := make(chan string)
	results := make(chan VideoResult)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				results <- r.processOne(ctx, processor, path, opts.Process)
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, path := range videos {
			select {
			case jobs <- path:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	for result := range results {
		report.Videos = append(report.Videos, result)
		switch result.Status {
		case StatusSucceeded:
			report.Succeeded++
		case StatusIncomplete:
			report.Incomplete++
		default:
			report.Failed++
		}
	}
	sort.Slice(report.Videos, func(i, j int) bool { return report.Videos[i].Path < report.Videos[j].Path })
	report.Skipped = report.Scanned - len(report.Videos)
	report.Elapsed = time.Since(started)

	logger.Info("batch finished",
		logging.Int("succeeded", report.Succeeded),
		logging.Int("failed", report.Failed),
		logging.Int("incomplete", report.Incomplete),
		logging.Int("skipped", report.Skipped),
		logging.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

func (r *Runner) processOne(ctx context.Context, processor videoProcessor, path string, opts pipeline.Options) VideoResult {
	started := time.Now()
	result, err := processor.ProcessVideo(ctx, path, opts)
	outcome := VideoResult{Path: path, Duration: time.Since(started)}
	switch {
	case err == nil:
		outcome.Status = StatusSucceeded
		outcome.Title = strings.TrimSpace(result.Metadata.Title)
		if outcome.Title == "" {
			outcome.Title = strings.TrimSpace(result.Candidate.Title)
		}
		outcome.Artifacts = len(result.Artifacts)
		outcome.Degradations = len(result.Errors)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		outcome.Status = StatusIncomplete
		outcome.Err = err
	default:
		outcome.Status = StatusFailed
		outcome.Err = err
	}
	return outcome
}

// acquireLock takes the library lock under the output directory. The
// returned func releases it.
func (r *Runner) acquireLock(opts Options) (func(), error) {
	dir := opts.Process.OutputDir
	if dir == "" && r.cfg != nil {
		dir = r.cfg.Paths.OutputDir
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "batch", "run",
			fmt.Sprintf("Cannot create output directory %q", dir), err)
	}
	lockPath := filepath.Join(dir, "sublift.lock")
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire batch lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrTransient, "batch", "run",
			fmt.Sprintf("Another run already holds %q", lockPath), nil)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release batch lock", logging.Error(err))
		}
	}, nil
}

// scan walks root collecting supported video files. Unreadable entries are
// skipped with a warning instead of aborting the walk.
func (r *Runner) scan(root string, logger *slog.Logger) ([]string, error) {
	var videos []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("skipping unreadable entry",
				logging.String("path", path),
				logging.Error(err),
			)
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		if media.IsVideoFile(path) {
			videos = append(videos, path)
		}
		return nil
	})
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "batch", "scan",
			fmt.Sprintf("Cannot scan %q", root), err)
	}
	sort.Strings(videos)
	return videos, nil
}

func (r *Runner) workerCount(opts Options) int {
	if opts.Workers > 0 {
		return opts.Workers
	}
	if r.cfg != nil && r.cfg.Batch.Workers > 0 {
		return r.cfg.Batch.Workers
	}
	return runtime.NumCPU()
}
