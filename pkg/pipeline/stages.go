package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/japaniel/ankivocab/pkg/images"
	"github.com/japaniel/ankivocab/pkg/llm"
	"github.com/japaniel/ankivocab/pkg/vocab"
)

func (r *run) filter() Filter {
	return Filter{Store: r.deps.Store, Force: r.force}
}

// partition filters entries for stage and restores the outputs of done ones.
func (r *run) partition(ctx context.Context, log *slog.Logger, stage vocab.Stage, entries []*vocab.WordEntry) ([]Candidate, error) {
	todo, done, err := r.filter().Partition(ctx, stage, entries)
	if err != nil {
		return nil, &StageError{Stage: stage, Err: err}
	}
	Restore(stage, done)
	if len(done) > 0 {
		skipped := make([]string, len(done))
		for i, c := range done {
			skipped[i] = Key(stage, c.Entry)
		}
		log.Info("skipping completed words", slog.String("stage", stage.String()), slog.Any("words", skipped))
	}
	return todo, nil
}

// runBulkStage issues one JSON-array request for the batch and merges the
// answer back by original word.
func (r *run) runBulkStage(ctx context.Context, log *slog.Logger, stage vocab.Stage, entries []*vocab.WordEntry) error {
	todo, err := r.partition(ctx, log, stage, entries)
	if err != nil {
		return err
	}
	if len(todo) == 0 {
		return nil
	}
	pending := entriesOf(todo)
	log.Info("stage started", slog.String("stage", stage.String()), slog.Int("count", len(pending)))

	var items []json.RawMessage
	start := time.Now()
	err = r.governor.Do(ctx, func(ctx context.Context) error {
		var err error
		items, err = llm.ChatJSON(ctx, r.deps.Chat, llm.UserRequest(r.opts.Model, BulkPrompt(stage, pending), r.temperature))
		return err
	})
	if err != nil {
		log.Error("bulk request failed", slog.String("stage", stage.String()), slog.String("words", wordList(pending)), slog.Any("error", err))
		return &StageError{Stage: stage, Err: err}
	}
	log.Debug("bulk request finished", slog.String("stage", stage.String()), slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))

	merged := 0
	for _, raw := range items {
		item, err := decodeItem(stage, raw)
		if err != nil {
			log.Warn("dropping invalid response item", slog.String("stage", stage.String()), slog.Any("error", err))
			continue
		}
		e := findByOriginal(pending, item.Word)
		if e == nil {
			log.Debug("ignoring response item for unrequested word", slog.String("stage", stage.String()), slog.String("word", item.Word))
			continue
		}
		item.apply(stage, e)
		if err := r.complete(ctx, stage, e); err != nil {
			return &StageError{Stage: stage, Word: e.Original, Err: err}
		}
		merged++
	}
	if merged < len(pending) {
		log.Warn("response did not cover every word", slog.String("stage", stage.String()),
			slog.Int("requested", len(pending)), slog.Int("merged", merged))
	}
	log.Info("stage completed", slog.String("stage", stage.String()), slog.Int("count", merged))
	return nil
}

func findByOriginal(entries []*vocab.WordEntry, word string) *vocab.WordEntry {
	for _, e := range entries {
		if e.Original == word {
			return e
		}
	}
	return nil
}

// runImagePrompts asks for one image prompt per word on a pool local to this call.
func (r *run) runImagePrompts(ctx context.Context, log *slog.Logger, entries []*vocab.WordEntry) error {
	const stage = vocab.StageImagePrompt
	todo, err := r.partition(ctx, log, stage, entries)
	if err != nil {
		return err
	}
	if len(todo) == 0 {
		return nil
	}
	log.Info("stage started", slog.String("stage", stage.String()), slog.Int("count", len(todo)))

	pool := NewWorkerPool(r.opts.PromptWorkers, len(todo))
	pool.Start(ctx)
	for _, c := range todo {
		e := c.Entry
		err := pool.Submit(func(ctx context.Context) error {
			text, err := r.deps.Chat.Chat(ctx, llm.UserRequest(r.opts.Model, ImagePromptRequest(e), r.temperature))
			if err != nil {
				log.Error("image prompt generation failed", slog.String("word", e.Original), slog.Any("error", err))
				return &StageError{Stage: stage, Word: e.Original, Err: err}
			}
			e.ImagePrompt = strings.TrimSpace(text)
			log.Info("image prompt generated", slog.String("word", e.Original), slog.String("prompt", e.ImagePrompt))
			if err := r.complete(ctx, stage, e); err != nil {
				return &StageError{Stage: stage, Word: e.Original, Err: err}
			}
			return nil
		})
		if err != nil {
			pool.Close()
			return &StageError{Stage: stage, Word: e.Original, Err: err}
		}
	}
	if err := pool.Wait(); err != nil {
		return err
	}
	log.Info("stage completed", slog.String("stage", stage.String()), slog.Int("count", len(todo)))
	return nil
}

// runImages acquires images one word at a time with a pause between words.
func (r *run) runImages(ctx context.Context, log *slog.Logger, entries []*vocab.WordEntry) error {
	const stage = vocab.StageImageGeneration
	todo, err := r.partition(ctx, log, stage, entries)
	if err != nil {
		return err
	}
	if len(todo) == 0 {
		return nil
	}
	log.Info("stage started", slog.String("stage", stage.String()), slog.Int("count", len(todo)))

	for i, c := range todo {
		e := c.Entry
		files, err := r.acquire(ctx, log, e)
		if err != nil {
			log.Error("image processing failed", slog.String("word", e.Original), slog.Any("error", err))
			return &StageError{Stage: stage, Word: e.Original, Err: err}
		}
		if len(files) > 0 {
			e.ImageFiles = files
			if err := r.complete(ctx, stage, e); err != nil {
				return &StageError{Stage: stage, Word: e.Original, Err: err}
			}
			log.Info("images stored", slog.String("word", e.Original), slog.Int("count", len(files)))
		} else {
			log.Warn("no images produced", slog.String("word", e.Original), slog.String("word_type", string(e.WordType)))
		}
		if i < len(todo)-1 {
			if err := r.sleep(ctx, r.opts.ImagePause); err != nil {
				return &StageError{Stage: stage, Word: e.Original, Err: err}
			}
		}
	}
	return nil
}

// acquire returns the local files for e. Simple words use stock photos,
// everything else a generated image.
func (r *run) acquire(ctx context.Context, log *slog.Logger, e *vocab.WordEntry) ([]string, error) {
	if e.WordType == vocab.Simple {
		if e.Translation == "" {
			log.Warn("no translation to search photos with", slog.String("word", e.Original))
			return nil, nil
		}
		urls, err := r.deps.Photos.Search(ctx, e.Translation, r.opts.PhotoCount)
		if err != nil {
			return nil, err
		}
		var files []string
		for i, u := range urls {
			path, err := r.deps.Media.Download(ctx, u, images.FileName(e.CanonicalForm, i, ".jpg"))
			if err != nil {
				log.Warn("photo download failed", slog.String("word", e.Original), slog.String("url", u), slog.Any("error", err))
				continue
			}
			files = append(files, path)
		}
		return files, nil
	}

	if e.ImagePrompt == "" {
		log.Warn("no image prompt to generate from", slog.String("word", e.Original))
		return nil, nil
	}
	data, err := r.deps.Images.Generate(ctx, e.ImagePrompt)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	path, err := r.deps.Media.Save(images.FileName(e.CanonicalForm, 0, ".png"), data)
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}
