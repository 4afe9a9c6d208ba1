// Package batch walks an input tree and normalizes every recognized image,
// isolating per-file failures so one bad file never aborts the run.
package batch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jaeyongpark0121/product-normalizer/internal/model"
)

// ErrInputDirNotFound is returned when the input root does not exist.
// The run does no work in that case; nothing panics.
var ErrInputDirNotFound = errors.New("input directory not found")

// processor runs the per-file transform.
type processor interface {
	Process(ctx context.Context, task model.Task, removeBackground bool) error
}

// publisher emits per-file result events.
type publisher interface {
	Publish(ctx context.Context, res model.Result) error
}

// Options control traversal and scheduling.
type Options struct {
	Extensions             []string // lowercase, with the leading dot
	UseAIBackgroundRemoval bool
	Workers                int // values below 1 run sequentially
}

// Runner is the batch entry point. The output root is owned by the sink the
// processor was built with; the logger is injected so tests can capture output.
type Runner struct {
	opts      Options
	proc      processor
	publisher publisher // nil when events are disabled
	log       zerolog.Logger
	exts      map[string]struct{}
}

// New creates a Runner. pub may be nil when result events are disabled.
func New(opts Options, proc processor, pub publisher, log zerolog.Logger) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = struct{}{}
	}

	return &Runner{
		opts:      opts,
		proc:      proc,
		publisher: pub,
		log:       log,
		exts:      exts,
	}
}

// Run recursively enumerates inputRoot, processes every regular file whose
// lowercased extension is recognized, and returns the aggregated report.
// Per-file failures are logged and counted, never propagated; only a missing
// input root short-circuits the run.
func (r *Runner) Run(ctx context.Context, inputRoot string) (model.Report, error) {
	report := model.Report{RunID: uuid.New()}

	if _, err := os.Stat(inputRoot); err != nil {
		r.log.Error().Err(err).Str("input", inputRoot).Msg("input directory not found")
		return report, ErrInputDirNotFound
	}

	tasks := make(chan model.Task)

	var wg sync.WaitGroup
	var mu sync.Mutex // guards report counters

	for i := 0; i < r.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				res := r.handle(ctx, task)

				mu.Lock()
				if res.Status == model.StatusProcessed {
					report.Processed++
				} else {
					report.Failed++
				}
				mu.Unlock()
			}
		}()
	}

	walkErr := filepath.WalkDir(inputRoot, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return fs.SkipAll
		}
		if err != nil {
			// Unreadable entries are skipped like any other per-entry failure.
			r.log.Error().Err(err).Str("path", path).Msg("failed to read directory entry")
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if _, ok := r.exts[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}

		rel, err := filepath.Rel(inputRoot, path)
		if err != nil {
			r.log.Error().Err(err).Str("path", path).Msg("failed to compute relative path")
			return nil
		}

		tasks <- model.Task{
			ID:         uuid.New(),
			SourcePath: path,
			RelPath:    rel,
			DestRel:    strings.TrimSuffix(rel, filepath.Ext(rel)) + ".png",
		}
		return nil
	})

	close(tasks)
	wg.Wait()

	if walkErr != nil {
		r.log.Error().Err(walkErr).Msg("traversal aborted")
	}

	r.log.Info().
		Str("run_id", report.RunID.String()).
		Int("processed", report.Processed).
		Int("failed", report.Failed).
		Msg("run complete")

	return report, nil
}

// handle processes one task and emits its log line and optional result event.
func (r *Runner) handle(ctx context.Context, task model.Task) model.Result {
	res := model.Result{Task: task, Status: model.StatusProcessed}

	if err := r.proc.Process(ctx, task, r.opts.UseAIBackgroundRemoval); err != nil {
		res.Status = model.StatusFailed
		res.Kind = model.FailureKindOf(err)
		res.Error = err.Error()

		r.log.Error().Err(err).
			Str("file", filepath.Base(task.SourcePath)).
			Str("kind", string(res.Kind)).
			Msg("failed to process image")
	} else {
		r.log.Info().
			Str("file", task.RelPath).
			Str("dest", task.DestRel).
			Msg("image processed")
	}

	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, res); err != nil {
			// Event publication is best effort; it never fails the file.
			r.log.Error().Err(err).Str("file", task.RelPath).Msg("failed to publish result event")
		}
	}

	return res
}
