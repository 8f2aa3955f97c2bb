package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/japaniel/ankivocab/pkg/llm"
	"github.com/japaniel/ankivocab/pkg/vocab"
	"github.com/xeipuuv/gojsonschema"
)

const maxExampleSentences = 3

const metadataSchema = `{
  "type": "object",
  "required": ["word", "canonical_form", "part_of_speech", "word_type", "translation"],
  "properties": {
    "word": {"type": "string", "pattern": "\\S"},
    "canonical_form": {"type": "string", "pattern": "\\S"},
    "part_of_speech": {"type": "string"},
    "word_type": {"type": "string", "enum": ["SIMPLE", "COMPLEX"]},
    "translation": {"type": "string"}
  }
}`

const definitionSchema = `{
  "type": "object",
  "required": ["word", "definition"],
  "properties": {
    "word": {"type": "string", "pattern": "\\S"},
    "definition": {"type": "string", "pattern": "\\S"}
  }
}`

const examplesSchema = `{
  "type": "object",
  "required": ["word", "example_sentences"],
  "properties": {
    "word": {"type": "string", "pattern": "\\S"},
    "example_sentences": {"type": "array", "items": {"type": "string"}}
  }
}`

// responseItem is the union of the bulk response shapes.
type responseItem struct {
	Word             string         `json:"word"`
	CanonicalForm    string         `json:"canonical_form"`
	PartOfSpeech     string         `json:"part_of_speech"`
	WordType         vocab.WordType `json:"word_type"`
	Translation      string         `json:"translation"`
	Definition       string         `json:"definition"`
	ExampleSentences []string       `json:"example_sentences"`
}

var stageSchemas = map[vocab.Stage]*gojsonschema.Schema{
	vocab.StageMetadata:   mustSchema(metadataSchema),
	vocab.StageDefinition: mustSchema(definitionSchema),
	vocab.StageExamples:   mustSchema(examplesSchema),
}

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("pipeline: invalid response schema: %v", err))
	}
	return s
}

// decodeItem validates raw against the stage's schema and decodes it.
// Failures wrap llm.ErrMalformedResponse.
func decodeItem(stage vocab.Stage, raw json.RawMessage) (responseItem, error) {
	schema, ok := stageSchemas[stage]
	if !ok {
		return responseItem{}, fmt.Errorf("no response schema for stage %s", stage)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return responseItem{}, fmt.Errorf("%w: %v", llm.ErrMalformedResponse, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return responseItem{}, fmt.Errorf("%w: %s", llm.ErrMalformedResponse, strings.Join(msgs, "; "))
	}
	var item responseItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return responseItem{}, fmt.Errorf("%w: %v", llm.ErrMalformedResponse, err)
	}
	item.Word = strings.TrimSpace(item.Word)
	item.CanonicalForm = strings.TrimSpace(item.CanonicalForm)
	if len(item.ExampleSentences) > maxExampleSentences {
		item.ExampleSentences = item.ExampleSentences[:maxExampleSentences]
	}
	return item, nil
}

// apply writes the fields owned by stage onto e.
func (it responseItem) apply(stage vocab.Stage, e *vocab.WordEntry) {
	switch stage {
	case vocab.StageMetadata:
		e.CanonicalForm = it.CanonicalForm
		e.PartOfSpeech = it.PartOfSpeech
		e.WordType = it.WordType
		e.Translation = it.Translation
	case vocab.StageDefinition:
		e.Definition = it.Definition
	case vocab.StageExamples:
		e.ExampleSentences = append([]string(nil), it.ExampleSentences...)
	}
}
