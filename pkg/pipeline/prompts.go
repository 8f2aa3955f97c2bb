package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/japaniel/ankivocab/pkg/vocab"
)

const jsonArrayInstructions = `Return your output as a single **JSON array**, one object per word.
Your response must be *only* the JSON array. It must start with ` + "`[`" + ` and end with ` + "`]`" + `.
Do not include any other text, explanations, or markdown formatting before or after the JSON array.`

const metadataPrompt = `
You'll receive a list of BCS words (may contain misspellings).
For each word in the input list, return a JSON object containing
the original ` + "`word`" + ` and the following fields: ` + "`canonical_form`, `part_of_speech`, `word_type`" + `, and ` + "`translation`" + `.

1.  **word**: The original word from the input list.
2.  **canonical_form**: Correct spelling, lowercase unless it's a proper noun. Use the dictionary base form:
    *   Noun → nominative singular
    *   Verb → infinitive
    *   Adjective → masculine nominative singular
    *   Other → standard dictionary form
3.  **part_of_speech**: Classify into one of:
    "imenica", "glagol", "pridjev", "prilog", "zamjenica", "prijedlog", "veznik", "uzvik"
4.  **word_type**: This decides the image strategy. Classify the word as:
    *   "SIMPLE": a clearly visible, concrete object likely to yield useful photo results (e.g., "jabuka", "kuća").
    *   "COMPLEX": an abstract concept, action, quality, or emotion better suited to symbolic or AI-generated imagery (e.g., "ljubav", "misliti", "sloboda").
    If unsure, choose "COMPLEX".
5.  **translation**: Translate the core meaning of the word into English. Use only one or two words, the most relevant translation for a language learner.

---

%s

**Example Output Format:**
[
  {"word": "prodrijes", "canonical_form": "prodrijeti", "part_of_speech": "glagol", "word_type": "COMPLEX", "translation": "penetrate"},
  {"word": "vrijedan", "canonical_form": "vrijedan", "part_of_speech": "pridjev", "word_type": "COMPLEX", "translation": "valuable"}
]

Word list: %s
`

const definitionPrompt = `
You'll receive a list of BCS words. For each word in the input list, return a JSON object containing the original ` + "`word`" + ` and its ` + "`definition`" + `.

1.  **word**: The original word from the input list.
2.  **definition**:
    *   Write a definition suitable for language learners using Anki. It should be short and clear.
    *   If the word has multiple distinct senses, list them separately using numbered entries like "1. ...", "2. ...".
        Do not force multiple senses if only one is appropriate.
    *   Use natural, conversational language. Avoid overly academic phrasing.
    *   Start the definition with the word in cloze brackets: {{c1::word}}. If the word appears multiple times in the definition, use cloze brackets for each instance.
    *   Include key grammatical info in parentheses within the definition:
        *   Verbs: (glagol, [aspect], {{c1::1st person present}})
        *   Nouns: (imenica); add gender only if irregular, and note if uncountable
        *   Adjectives: (pridjev, [degree])
    *   If regional usage is notable (e.g. only in Croatia, archaic, dialectal), briefly mention it at the end.
    *   Use standard ijekavian.

---

%s

**Example Definitions:**
- {{c1::Blagostanje}} (imenica, nebrojivo) označava stanje u kojem osoba ili zajednica ima dovoljno sredstava za udoban, siguran i zadovoljavajući život.
- {{c1::Ćuprija}} (imenica, turcizam) označava most; riječ je arhaična i danas se uglavnom koristi u Bosni.

**Example Output Format:**
[
  {"word": "vrijedan", "definition": "{{c1::Vrijedan}} (pridjev, pozitivan) može imati više značenja: 1. Opisuje osobu koja marljivo i odgovorno radi. 2. Označava nešto što ima visoku vrijednost ili važnost."}
]

Word list: %s
`

const examplesPrompt = `
You'll receive a list of BCS words. For each word in the input list, return a JSON object containing the original ` + "`word`" + ` and a list of three ` + "`example_sentences`" + `.

1.  **word**: The original word from the input list.
2.  **example_sentences**:
    *   Generate exactly 3 example sentences in BCS (ijekavian variant) using the target word.
    *   Use different grammatical forms of the word (for verbs vary tense, person, or mood; for nouns vary case or number).
    *   Wrap all inflected forms of the word in cloze brackets: {{c1::...}}
    *   Each sentence should be about 10 words for easy memorization.
    *   Use vivid imagery or strong emotional content to make the sentence memorable.
    *   Use a positive or life-affirming tone when appropriate.

---

%s

**Example Output Format:**
[
  {"word": "vrijedan", "example_sentences": [
    "Tvoj savjet bio je {{c1::vrijedan}} svakog truda i vremena.",
    "Ona je {{c1::vrijedna}} djevojka koja stalno pomaže drugima.",
    "Na sastanku je predložio {{c1::vrijednu}} i praktičnu ideju."
  ]}
]

Word list: %s
`

const imagePromptPrompt = `
You will receive a vocabulary word, its part of speech, and a short list of its core definitions or senses.
Your task is to generate a prompt for an AI image generation model that will produce a pedagogically useful image
for a language learning flashcard.

The image should visually communicate the meaning(s) of the word **without any text**, and must be suitable for learners
to infer meaning from context.

Instructions for image generation prompt:
- If the word has multiple distinct meanings, depict them using separate comic panels or a single symbolic integration.
- Be specific and concrete about the visual scenes or scenarios that should appear.
- Choose a visual style appropriate to the word (e.g., cartoon for verbs and actions, diagram or metaphor for abstract nouns, photorealistic for common objects).
- Focus on clarity and pedagogical usefulness.

Return only the image generation prompt as a string. Do not include any extra text, comments, or formatting.

Example input:
{"word": "spring", "pos": "noun", "definitions": ["a season between winter and summer", "a coiled object that bounces back when compressed", "a natural source of water coming from the ground"]}

Expected output (image generation prompt):
A three-panel cartoon showing: (1) blooming trees and people enjoying warm weather, (2) a hand pressing a metal coil that rebounds, and (3) water bubbling out of a rocky hillside in a forest. No text or labels. Clear, educational style suitable for language learning flashcards.

Now generate the image prompt for the following word:
%s
`

// wordList renders originals as a JSON array.
func wordList(entries []*vocab.WordEntry) string {
	words := make([]string, len(entries))
	for i, e := range entries {
		words[i] = e.Original
	}
	b, _ := json.Marshal(words)
	return string(b)
}

// BulkPrompt builds the batch prompt for one of the JSON-array stages.
func BulkPrompt(stage vocab.Stage, entries []*vocab.WordEntry) string {
	var tmpl string
	switch stage {
	case vocab.StageMetadata:
		tmpl = metadataPrompt
	case vocab.StageDefinition:
		tmpl = definitionPrompt
	case vocab.StageExamples:
		tmpl = examplesPrompt
	default:
		panic(fmt.Sprintf("pipeline: no bulk prompt for stage %s", stage))
	}
	return strings.TrimSpace(fmt.Sprintf(tmpl, jsonArrayInstructions, wordList(entries)))
}

type imagePromptInput struct {
	Word        string   `json:"word"`
	POS         string   `json:"pos"`
	Definitions []string `json:"definitions"`
}

// ImagePromptRequest builds the per-word image prompt request.
func ImagePromptRequest(e *vocab.WordEntry) string {
	in := imagePromptInput{Word: e.CanonicalForm, POS: e.PartOfSpeech, Definitions: []string{}}
	if e.Definition != "" {
		in.Definitions = append(in.Definitions, e.Definition)
	}
	b, _ := json.Marshal(in)
	return strings.TrimSpace(fmt.Sprintf(imagePromptPrompt, b))
}
