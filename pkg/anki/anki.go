// Package anki renders enriched words as an Anki import file and writes the
// helper script that copies card media into a collection.
package anki

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/japaniel/ankivocab/pkg/vocab"
)

// DefaultMediaDir is the collection media folder used when
// ANKI_COLLECTION_FILE_PATH is unset.
const DefaultMediaDir = "$HOME/Anki/User 1/collection.media/"

// Note types in the first column.
const (
	NoteCloze = "Cloze"
	NoteBasic = "Basic"
)

// Rows returns the note rows for entries. Words without a canonical form are skipped.
func Rows(entries []*vocab.WordEntry) [][]string {
	var rows [][]string
	for _, e := range entries {
		if e == nil || e.CanonicalForm == "" {
			continue
		}
		if e.Definition != "" {
			rows = append(rows, []string{NoteCloze, e.Definition, ""})
		}
		for _, s := range e.ExampleSentences {
			rows = append(rows, []string{NoteCloze, s, ""})
		}
		for _, f := range e.ImageFiles {
			img := fmt.Sprintf(`<img src="%s">`, filepath.Base(f))
			rows = append(rows,
				[]string{NoteBasic, e.CanonicalForm, img},
				[]string{NoteBasic, img, e.CanonicalForm},
			)
		}
	}
	return rows
}

// WriteCSV writes a semicolon separated Anki import file to path and returns
// the number of note rows written.
func WriteCSV(path string, entries []*vocab.WordEntry) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	// file headers are directives, not records
	for _, h := range []string{"#separator:;", "#html:true", "#notetype column:0"} {
		if _, err := bw.WriteString(h + "\n"); err != nil {
			return 0, err
		}
	}
	rows := Rows(entries)
	w := csv.NewWriter(bw)
	w.Comma = ';'
	if err := w.WriteAll(rows); err != nil {
		return 0, fmt.Errorf("write csv: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	return len(rows), f.Close()
}

// shellQuote single-quotes s so bash reads it literally.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// destEscaper escapes what would close the double-quoted default; $HOME still expands.
var destEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`")

// WriteCopyScript writes an executable bash script that rsyncs imageDir into
// the Anki media folder. defaultDest is used when ANKI_COLLECTION_FILE_PATH is unset.
func WriteCopyScript(path, imageDir, defaultDest string) error {
	if defaultDest == "" {
		defaultDest = DefaultMediaDir
	}
	abs, err := filepath.Abs(imageDir)
	if err != nil {
		return err
	}
	var sb strings.Builder
	sb.WriteString("#!/usr/bin/env bash\n")
	sb.WriteString("# Copy generated images to the Anki collection media folder\n")
	sb.WriteString("set -euo pipefail\n")
	fmt.Fprintf(&sb, "DEST=\"${ANKI_COLLECTION_FILE_PATH:-%s}\"\n", destEscaper.Replace(defaultDest))
	fmt.Fprintf(&sb, "rsync -av %s \"$DEST\"\n", shellQuote(strings.TrimRight(abs, "/")+"/"))
	sb.WriteString("echo \"Images copied to Anki collection media folder: $DEST\"\n")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0755); err != nil {
		return fmt.Errorf("write copy script: %w", err)
	}
	// WriteFile keeps the mode of an existing file
	return os.Chmod(path, 0755)
}
