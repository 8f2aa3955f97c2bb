package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/japaniel/ankivocab/pkg/db"
	"github.com/japaniel/ankivocab/pkg/llm"
	"github.com/japaniel/ankivocab/pkg/vocab"
	"github.com/stretchr/testify/require"
)

type lexeme struct {
	canonical, pos, translation string
	wordType                    vocab.WordType
}

var lexicon = map[string]lexeme{
	"jabuka":   {"jabuka", "imenica", "apple", vocab.Simple},
	"kuća":     {"kuća", "imenica", "house", vocab.Simple},
	"stol":     {"stol", "imenica", "table", vocab.Simple},
	"ljubav":   {"ljubav", "imenica", "love", vocab.Complex},
	"ljubavi":  {"ljubav", "imenica", "love", vocab.Complex},
	"sloboda":  {"sloboda", "imenica", "freedom", vocab.Complex},
	"misliti":  {"misliti", "glagol", "think", vocab.Complex},
	"nada":     {"nada", "imenica", "hope", vocab.Complex},
	"radost":   {"radost", "imenica", "joy", vocab.Complex},
	"tuga":     {"tuga", "imenica", "sadness", vocab.Complex},
	"mir":      {"mir", "imenica", "peace", vocab.Complex},
	"hrabrost": {"hrabrost", "imenica", "courage", vocab.Complex},
	"snaga":    {"snaga", "imenica", "strength", vocab.Complex},
	"prazno":   {"   ", "pridjev", "empty", vocab.Simple},
}

// fakeChat answers every stage prompt from lexicon and counts calls per stage.
type fakeChat struct {
	mu       sync.Mutex
	calls    map[vocab.Stage]int
	requests map[vocab.Stage][][]string
	omit     map[string]bool
	extra    string
	fail     map[vocab.Stage]error
	// onImagePrompt runs outside the lock for every image prompt request.
	onImagePrompt func()
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		calls:    map[vocab.Stage]int{},
		requests: map[vocab.Stage][][]string{},
		omit:     map[string]bool{},
		fail:     map[vocab.Stage]error{},
	}
}

func stageOf(prompt string) vocab.Stage {
	switch {
	case strings.Contains(prompt, "Now generate the image prompt"):
		return vocab.StageImagePrompt
	case strings.Contains(prompt, "**word_type**"):
		return vocab.StageMetadata
	case strings.Contains(prompt, "**definition**:"):
		return vocab.StageDefinition
	case strings.Contains(prompt, "**example_sentences**:"):
		return vocab.StageExamples
	}
	return 0
}

func wordsIn(prompt string) []string {
	const marker = "Word list: "
	idx := strings.LastIndex(prompt, marker)
	if idx < 0 {
		return nil
	}
	var words []string
	_ = json.Unmarshal([]byte(strings.TrimSpace(prompt[idx+len(marker):])), &words)
	return words
}

func (f *fakeChat) Chat(ctx context.Context, req llm.Request) (string, error) {
	prompt := req.Messages[len(req.Messages)-1].Content
	stage := stageOf(prompt)

	f.mu.Lock()
	f.calls[stage]++
	words := wordsIn(prompt)
	f.requests[stage] = append(f.requests[stage], words)
	failErr := f.fail[stage]
	hook := f.onImagePrompt
	f.mu.Unlock()

	if stage == vocab.StageImagePrompt && hook != nil {
		hook()
	}
	if failErr != nil {
		return "", failErr
	}
	if stage == vocab.StageImagePrompt {
		var in imagePromptInput
		start := strings.Index(prompt, "{\"word\":\"")
		_ = json.Unmarshal([]byte(strings.TrimSpace(prompt[start:])), &in)
		return "  A symbolic picture of " + in.Word + "\n", nil
	}

	var items []map[string]any
	for _, w := range words {
		if f.omit[w] {
			continue
		}
		items = append(items, f.item(stage, w))
	}
	if f.extra != "" {
		items = append(items, f.item(stage, f.extra))
	}
	b, _ := json.Marshal(items)
	return "```json\n" + string(b) + "\n```", nil
}

func (f *fakeChat) item(stage vocab.Stage, w string) map[string]any {
	lx, ok := lexicon[w]
	if !ok {
		lx = lexeme{w, "imenica", w, vocab.Complex}
	}
	switch stage {
	case vocab.StageMetadata:
		return map[string]any{"word": w, "canonical_form": lx.canonical, "part_of_speech": lx.pos,
			"word_type": string(lx.wordType), "translation": lx.translation}
	case vocab.StageDefinition:
		return map[string]any{"word": w, "definition": fmt.Sprintf("{{c1::%s}} (%s) je riječ.", lx.canonical, lx.pos)}
	default:
		return map[string]any{"word": w, "example_sentences": []string{
			"{{c1::" + w + "}} jedan.", "{{c1::" + w + "}} dva.", "{{c1::" + w + "}} tri.", "{{c1::" + w + "}} četiri.",
		}}
	}
}

func (f *fakeChat) count(stage vocab.Stage) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[stage]
}

func (f *fakeChat) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// fakeImages implements Generator, Searcher and Media.
type fakeImages struct {
	mu        sync.Mutex
	dir       string
	photos    int
	searches  []string
	generated []string
	saved     []string
	genErr    error
	failURL   string
}

func (f *fakeImages) Generate(ctx context.Context, prompt string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generated = append(f.generated, prompt)
	if f.genErr != nil {
		return nil, f.genErr
	}
	return []byte("png"), nil
}

func (f *fakeImages) Search(ctx context.Context, query string, count int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, query)
	n := f.photos
	if n > count {
		n = count
	}
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://images.test/%s/%d.jpg", query, i)
	}
	return urls, nil
}

func (f *fakeImages) Download(ctx context.Context, url, filename string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if url == f.failURL {
		return "", errors.New("download: status 404")
	}
	p := filepath.Join(f.dir, filename)
	f.saved = append(f.saved, p)
	return p, nil
}

func (f *fakeImages) Save(filename string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := filepath.Join(f.dir, filename)
	f.saved = append(f.saved, p)
	return p, nil
}

func (f *fakeImages) counts() (searches, generated int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searches), len(f.generated)
}

// sleepRecorder replaces the Stage-5 pause.
type sleepRecorder struct {
	mu     sync.Mutex
	pauses []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.pauses = append(s.pauses, d)
	s.mu.Unlock()
	return nil
}

func (s *sleepRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pauses)
}

type harness struct {
	p      *Pipeline
	chat   *fakeChat
	images *fakeImages
	store  db.Store
	sleeps *sleepRecorder
}

func newHarness(t *testing.T, store db.Store, tweak func(*Options)) *harness {
	t.Helper()
	if store == nil {
		store = db.NewMemoryStore()
	}
	h := &harness{
		chat:   newFakeChat(),
		images: &fakeImages{dir: t.TempDir(), photos: 3},
		store:  store,
		sleeps: &sleepRecorder{},
	}
	opts := DefaultOptions()
	opts.Model = "test-model"
	if tweak != nil {
		tweak(&opts)
	}
	p, err := New(Deps{
		Chat:   h.chat,
		Images: h.images,
		Photos: h.images,
		Media:  h.images,
		Store:  store,
		Sleep:  h.sleeps.Sleep,
	}, opts)
	require.NoError(t, err)
	h.p = p
	return h
}

// failingStore fails every read.
type failingStore struct {
	db.Store
	err error
}

func (s *failingStore) Get(ctx context.Context, key string) (db.Record, error) {
	return db.Record{}, s.err
}
