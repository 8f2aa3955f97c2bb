package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/japaniel/ankivocab/pkg/db"
	"github.com/japaniel/ankivocab/pkg/vocab"
)

// Candidate is an entity together with its stored record, if any.
type Candidate struct {
	Entry  *vocab.WordEntry
	Record db.Record
	Found  bool
}

// Filter splits entities into those that need a stage and those already done.
type Filter struct {
	Store db.Store
	Force bool
}

// Key returns the identity key an entity is checked under for stage.
// Metadata is keyed by the original spelling, later stages by canonical form.
func Key(stage vocab.Stage, e *vocab.WordEntry) string {
	if stage == vocab.StageMetadata {
		return e.Original
	}
	return e.CanonicalForm
}

// Partition returns (to-process, already-done). Entities without a key for
// stage are in neither list. Store errors other than db.ErrNotFound are returned.
func (f Filter) Partition(ctx context.Context, stage vocab.Stage, entries []*vocab.WordEntry) (todo, done []Candidate, err error) {
	for _, e := range entries {
		key := Key(stage, e)
		if key == "" {
			continue
		}
		if f.Force {
			todo = append(todo, Candidate{Entry: e})
			continue
		}
		rec, err := f.Store.Get(ctx, key)
		switch {
		case err == nil:
		case errors.Is(err, db.ErrNotFound):
			todo = append(todo, Candidate{Entry: e})
			continue
		default:
			return nil, nil, fmt.Errorf("read status for %q: %w", key, err)
		}
		c := Candidate{Entry: e, Record: rec, Found: true}
		if isDone(stage, rec) {
			done = append(done, c)
		} else {
			todo = append(todo, c)
		}
	}
	return todo, done, nil
}

func isDone(stage vocab.Stage, rec db.Record) bool {
	if !rec.Status.Done(stage) {
		return false
	}
	// metadata cannot be restored without a snapshot, so it has to run again
	if stage == vocab.StageMetadata && rec.Entry.CanonicalForm == "" {
		return false
	}
	return true
}

// Restore copies the stage's stored outputs onto each done entity.
func Restore(stage vocab.Stage, done []Candidate) {
	for _, c := range done {
		c.Entry.CopyStageFields(stage, c.Record.Entry)
	}
}

func entriesOf(cs []Candidate) []*vocab.WordEntry {
	out := make([]*vocab.WordEntry, len(cs))
	for i, c := range cs {
		out[i] = c.Entry
	}
	return out
}
