package vocab

import "time"

// WordType decides which branch a word takes through the later stages.
type WordType string

const (
	// Simple words are concrete objects; they get stock photos and no definition cards.
	Simple WordType = "SIMPLE"
	// Complex words are abstract concepts, actions or qualities.
	Complex WordType = "COMPLEX"
)

// WordEntry is one word's accumulated state for the current run.
// Empty strings and nil slices mean "not set".
type WordEntry struct {
	Original         string   `json:"original"`
	CanonicalForm    string   `json:"canonical_form,omitempty"`
	PartOfSpeech     string   `json:"part_of_speech,omitempty"`
	WordType         WordType `json:"word_type,omitempty"`
	Translation      string   `json:"translation,omitempty"`
	Definition       string   `json:"definition,omitempty"`
	ExampleSentences []string `json:"example_sentences,omitempty"`
	ImagePrompt      string   `json:"image_prompt,omitempty"`
	ImageFiles       []string `json:"image_files,omitempty"`
}

// NewEntries maps raw input words to fresh entries.
func NewEntries(words []string) []*WordEntry {
	entries := make([]*WordEntry, len(words))
	for i, w := range words {
		entries[i] = &WordEntry{Original: w}
	}
	return entries
}

// IsComplex reports whether the definition, example and image prompt stages apply.
func (e *WordEntry) IsComplex() bool {
	return e.WordType == Complex
}

// CopyStageFields copies the fields owned by stage from src onto e.
// Original is never touched.
func (e *WordEntry) CopyStageFields(stage Stage, src WordEntry) {
	switch stage {
	case StageMetadata:
		e.CanonicalForm = src.CanonicalForm
		e.PartOfSpeech = src.PartOfSpeech
		e.WordType = src.WordType
		e.Translation = src.Translation
	case StageDefinition:
		e.Definition = src.Definition
	case StageExamples:
		e.ExampleSentences = cloneStrings(src.ExampleSentences)
	case StageImagePrompt:
		e.ImagePrompt = src.ImagePrompt
	case StageImageGeneration:
		e.ImageFiles = cloneStrings(src.ImageFiles)
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

// StageStatus records which stages have completed for one canonical form.
type StageStatus struct {
	Metadata        bool       `json:"metadata"`
	Definition      bool       `json:"definition"`
	Examples        bool       `json:"examples"`
	ImagePrompt     bool       `json:"image_prompt"`
	ImageGeneration bool       `json:"image_generation"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// Done reports whether the flag for stage is set.
func (s StageStatus) Done(stage Stage) bool {
	switch stage {
	case StageMetadata:
		return s.Metadata
	case StageDefinition:
		return s.Definition
	case StageExamples:
		return s.Examples
	case StageImagePrompt:
		return s.ImagePrompt
	case StageImageGeneration:
		return s.ImageGeneration
	}
	return false
}

// Mark sets the flag for stage.
func (s *StageStatus) Mark(stage Stage) {
	switch stage {
	case StageMetadata:
		s.Metadata = true
	case StageDefinition:
		s.Definition = true
	case StageExamples:
		s.Examples = true
	case StageImagePrompt:
		s.ImagePrompt = true
	case StageImageGeneration:
		s.ImageGeneration = true
	}
}

// AssumedStatus returns a status with every stage before stage marked done.
// It assumes the stages ran in order; nothing verifies that they did.
func AssumedStatus(stage Stage) StageStatus {
	var s StageStatus
	for prior := StageMetadata; prior < stage; prior++ {
		s.Mark(prior)
	}
	return s
}

// Complete reports whether every stage that applies to a word of type t is done.
func (s StageStatus) Complete(t WordType) bool {
	if !s.Metadata || !s.ImageGeneration {
		return false
	}
	if t != Complex {
		return true
	}
	return s.Definition && s.Examples && s.ImagePrompt
}

// ProcessingResult pairs an entry with its persisted status snapshot.
type ProcessingResult struct {
	Word        *WordEntry  `json:"word"`
	StageStatus StageStatus `json:"stage_status"`
	Error       string      `json:"error,omitempty"`
}
