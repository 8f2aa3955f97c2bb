package pipeline

import (
	"fmt"

	"github.com/japaniel/ankivocab/pkg/vocab"
)

// StageError identifies the stage and, when known, the word that failed.
type StageError struct {
	Stage vocab.Stage
	Word  string
	Err   error
}

func (e *StageError) Error() string {
	if e.Word == "" {
		return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("stage %s (word %q): %v", e.Stage, e.Word, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
