// Package pipeline runs vocabulary words through the five enrichment stages,
// persisting per-word progress so repeated runs only do missing work.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/japaniel/ankivocab/pkg/db"
	"github.com/japaniel/ankivocab/pkg/images"
	"github.com/japaniel/ankivocab/pkg/llm"
	"github.com/japaniel/ankivocab/pkg/vocab"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
)

// Deps are the collaborators a Pipeline calls.
type Deps struct {
	Chat   llm.Chatter
	Images images.Generator
	Photos images.Searcher
	Media  images.Media
	Store  db.Store
	Log    *slog.Logger
	// Sleep waits between Stage-5 items. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Options tune batching and concurrency.
type Options struct {
	Model         string
	BatchSize     int
	MaxParallel   int
	PromptWorkers int
	ImagePause    time.Duration
	PhotoCount    int
	// AssumePriorStages pre-sets earlier stage flags when a stage completes
	// for a word that has no stored record yet.
	AssumePriorStages bool
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		Model:             "gpt-4-turbo",
		BatchSize:         20,
		MaxParallel:       5,
		PromptWorkers:     3,
		ImagePause:        3 * time.Second,
		PhotoCount:        3,
		AssumePriorStages: true,
	}
}

// Pipeline is safe for one Process call at a time.
type Pipeline struct {
	deps     Deps
	opts     Options
	governor *Governor
	log      *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
	locks    keyLocks
}

// New validates deps and opts.
func New(deps Deps, opts Options) (*Pipeline, error) {
	if deps.Chat == nil {
		return nil, errors.New("pipeline: chat client required")
	}
	if deps.Store == nil {
		return nil, errors.New("pipeline: store required")
	}
	if deps.Images == nil || deps.Photos == nil || deps.Media == nil {
		return nil, errors.New("pipeline: image generator, photo searcher and media dir required")
	}
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("pipeline: batch size must be positive, got %d", opts.BatchSize)
	}
	if opts.PromptWorkers <= 0 {
		opts.PromptWorkers = 3
	}
	if opts.PhotoCount <= 0 {
		opts.PhotoCount = 3
	}
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	sleep := deps.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	return &Pipeline{
		deps:     deps,
		opts:     opts,
		governor: NewGovernor(opts.MaxParallel),
		log:      log.With("component", "pipeline"),
		sleep:    sleep,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// run carries the per-call settings through the stages.
type run struct {
	*Pipeline
	log         *slog.Logger
	force       bool
	temperature *float64
}

// Process enriches words and returns one result per input word, in input order.
// The first failing batch aborts the run; stage progress already persisted is kept.
func (p *Pipeline) Process(ctx context.Context, words []string, force bool, temperature float64) ([]vocab.ProcessingResult, error) {
	r := &run{
		Pipeline:    p,
		log:         p.log.With("run_id", ulid.Make().String()),
		force:       force,
		temperature: &temperature,
	}
	entries := vocab.NewEntries(words)
	batches := chunk(entries, p.opts.BatchSize)
	r.log.Info("starting run", slog.Int("words", len(entries)), slog.Int("batches", len(batches)), slog.Bool("force", force))

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			return r.runBatch(gctx, r.log.With("batch", i), batch)
		})
	}
	if err := g.Wait(); err != nil {
		r.log.Error("run failed", slog.Any("error", err))
		return nil, err
	}

	results := make([]vocab.ProcessingResult, 0, len(entries))
	for _, e := range entries {
		res := vocab.ProcessingResult{Word: e}
		if e.CanonicalForm != "" {
			rec, err := p.deps.Store.Get(ctx, e.CanonicalForm)
			switch {
			case err == nil:
				res.StageStatus = rec.Status
			case errors.Is(err, db.ErrNotFound):
			default:
				return nil, fmt.Errorf("read final status for %q: %w", e.CanonicalForm, err)
			}
		}
		results = append(results, res)
	}
	r.log.Info("run completed", slog.Int("words", len(results)), slog.Duration("elapsed", time.Since(start)))
	return results, nil
}

func chunk(entries []*vocab.WordEntry, size int) [][]*vocab.WordEntry {
	var out [][]*vocab.WordEntry
	for size < len(entries) {
		entries, out = entries[size:], append(out, entries[:size:size])
	}
	if len(entries) > 0 {
		out = append(out, entries)
	}
	return out
}

// runBatch runs every stage over one batch, strictly in order.
func (r *run) runBatch(ctx context.Context, log *slog.Logger, batch []*vocab.WordEntry) error {
	if err := r.runBulkStage(ctx, log, vocab.StageMetadata, batch); err != nil {
		return err
	}
	var complex []*vocab.WordEntry
	for _, e := range batch {
		if e.IsComplex() {
			complex = append(complex, e)
		}
	}
	if len(complex) > 0 {
		if err := r.runBulkStage(ctx, log, vocab.StageDefinition, complex); err != nil {
			return err
		}
		if err := r.runBulkStage(ctx, log, vocab.StageExamples, complex); err != nil {
			return err
		}
		if err := r.runImagePrompts(ctx, log, complex); err != nil {
			return err
		}
	} else {
		log.Debug("no complex words in batch, skipping definition, examples and image prompts")
	}
	return r.runImages(ctx, log, batch)
}

// complete records stage as done for e under its canonical form.
func (r *run) complete(ctx context.Context, stage vocab.Stage, e *vocab.WordEntry) error {
	key := e.CanonicalForm
	if key == "" {
		return fmt.Errorf("no canonical form for %q", e.Original)
	}
	unlock := r.locks.lock(key)
	defer unlock()

	rec, err := r.deps.Store.Get(ctx, key)
	switch {
	case err == nil:
	case errors.Is(err, db.ErrNotFound):
		rec = db.Record{}
		if r.opts.AssumePriorStages {
			rec.Status = vocab.AssumedStatus(stage)
			if stage > vocab.StageMetadata {
				r.log.Warn("no stored status, assuming earlier stages completed",
					slog.String("word", key), slog.String("stage", stage.String()))
			}
		}
		for prior := vocab.StageMetadata; prior < stage; prior++ {
			rec.Entry.CopyStageFields(prior, *e)
		}
	default:
		return fmt.Errorf("read status for %q: %w", key, err)
	}

	rec.Status.Mark(stage)
	rec.Entry.Original = e.Original
	rec.Entry.CopyStageFields(stage, *e)
	if rec.Status.CompletedAt == nil && rec.Status.Complete(rec.Entry.WordType) {
		now := time.Now().UTC()
		rec.Status.CompletedAt = &now
	}
	rec.UpdatedAt = time.Time{}
	if err := r.deps.Store.Put(ctx, key, rec); err != nil {
		return fmt.Errorf("write status for %q: %w", key, err)
	}
	return nil
}

// keyLocks serialises read-modify-write cycles on the same canonical form.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
