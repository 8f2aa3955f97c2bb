// Package input loads the words to enrich, from a word list file or from the
// readable text of a web article.
package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"
)

// LoadWords reads one word per line from path, skipping blank lines and
// lines starting with '#'.
func LoadWords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word list: %w", err)
	}
	defer f.Close()
	return ReadWords(f)
}

// ReadWords is LoadWords over an arbitrary reader.
func ReadWords(r io.Reader) ([]string, error) {
	var words []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		w := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		words = append(words, w)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read word list: %w", err)
	}
	return words, nil
}

const minWordLen = 2

// ExtractWords returns unique lower-cased letter-only tokens of at least two
// letters, in order of first appearance.
func ExtractWords(text string) []string {
	seen := make(map[string]bool)
	var words []string
	fields := strings.FieldsFunc(text, func(r rune) bool { return !unicode.IsLetter(r) })
	for _, f := range fields {
		w := strings.ToLower(f)
		if utf8.RuneCountInString(w) < minWordLen || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	return words
}
