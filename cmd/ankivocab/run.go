package main

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/japaniel/ankivocab/pkg/anki"
	"github.com/japaniel/ankivocab/pkg/images"
	"github.com/japaniel/ankivocab/pkg/input"
	"github.com/japaniel/ankivocab/pkg/pipeline"
	"github.com/japaniel/ankivocab/pkg/vocab"
	"github.com/spf13/cobra"
)

// Output file names under the output directory.
const (
	csvFileName    = "anki_import.csv"
	scriptFileName = "copy_images.sh"
)

// dryRunPreview is how many words a dry run logs.
const dryRunPreview = 10

type runFlags struct {
	input       string
	url         string
	model       string
	batchSize   int
	maxParallel int
	temperature float64
	force       bool
	dryRun      bool
}

func newRunCmd(a *app) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Enrich a word list and write the Anki import file",
		Example: `  ankivocab run -i words.txt
  ankivocab run --url https://example.com/clanak --dry-run
  ankivocab run -i words.txt --force --temperature 0.3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.applyRunFlags(cmd, f); err != nil {
				return err
			}
			return a.run(cmd, f)
		},
	}

	cmd.Flags().StringVarP(&f.input, "input", "i", "", "Path to a word list, one word per line")
	cmd.Flags().StringVar(&f.url, "url", "", "Article URL to extract words from")
	cmd.Flags().StringVar(&f.model, "model", "", "Chat model (overrides MODEL_NAME)")
	cmd.Flags().IntVar(&f.batchSize, "batch-size", 0, "Words per batch (overrides BATCH_SIZE)")
	cmd.Flags().IntVar(&f.maxParallel, "max-parallel", 0, "Concurrent bulk requests (overrides MAX_PARALLEL_REQUESTS)")
	cmd.Flags().Float64Var(&f.temperature, "temperature", 0, "Sampling temperature (overrides TEMPERATURE)")
	cmd.Flags().BoolVar(&f.force, "force", false, "Reprocess every stage regardless of history")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Load the input and exit without calling any provider")
	cmd.MarkFlagsMutuallyExclusive("input", "url")
	cmd.MarkFlagsOneRequired("input", "url")
	return cmd
}

// applyRunFlags overrides the loaded configuration and validates the result.
func (a *app) applyRunFlags(cmd *cobra.Command, f *runFlags) error {
	flags := cmd.Flags()
	if flags.Changed("model") {
		a.cfg.Providers.Model = f.model
	}
	if flags.Changed("batch-size") {
		a.cfg.Pipeline.BatchSize = f.batchSize
	}
	if flags.Changed("max-parallel") {
		a.cfg.Pipeline.MaxParallel = f.maxParallel
	}
	if flags.Changed("temperature") {
		a.cfg.Pipeline.Temperature = f.temperature
	}
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

func (a *app) loadWords(cmd *cobra.Command, f *runFlags) ([]string, error) {
	if f.input != "" {
		return input.LoadWords(f.input)
	}
	article, err := input.NewFetcher().LoadArticle(cmd.Context(), f.url)
	if err != nil {
		return nil, err
	}
	a.log.Info("article loaded", slog.String("title", article.Title), slog.Int("words", len(article.Words)))
	return article.Words, nil
}

func (a *app) run(cmd *cobra.Command, f *runFlags) error {
	ctx := cmd.Context()
	words, err := a.loadWords(cmd, f)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return errors.New("no words found in input")
	}

	if f.dryRun {
		preview := words
		if len(preview) > dryRunPreview {
			preview = preview[:dryRunPreview]
		}
		a.log.Info("dry run, no providers called",
			slog.Int("words", len(words)),
			slog.Any("preview", preview))
		fmt.Fprintf(cmd.OutOrStdout(), "Dry run: %d words loaded\n", len(words))
		return nil
	}

	if err := a.cfg.ValidateCredentials(); err != nil {
		return err
	}
	chat, err := buildChat(a.cfg, a.log)
	if err != nil {
		return err
	}
	gen, err := buildGenerator(ctx, a.cfg, a.log)
	if err != nil {
		return err
	}
	media, err := images.NewMediaDir(a.cfg.Paths.ImageDir, a.log)
	if err != nil {
		return err
	}
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	p, err := pipeline.New(pipeline.Deps{
		Chat:   chat,
		Images: gen,
		Photos: images.NewPexels(a.cfg.Providers.PexelsAPIKey, a.cfg.Retry.Policy(), a.log.With("component", "pexels")),
		Media:  media,
		Store:  store,
		Log:    a.log,
	}, a.cfg.PipelineOptions())
	if err != nil {
		return err
	}

	results, err := p.Process(ctx, words, f.force, a.cfg.Pipeline.Temperature)
	if err != nil {
		return err
	}

	entries := make([]*vocab.WordEntry, 0, len(results))
	complete := 0
	for _, r := range results {
		if r.Word == nil || r.Word.CanonicalForm == "" {
			continue
		}
		entries = append(entries, r.Word)
		if r.StageStatus.Complete(r.Word.WordType) {
			complete++
		}
	}
	if len(entries) == 0 {
		return errors.New("no words were processed successfully")
	}

	csvPath := filepath.Join(a.cfg.Paths.OutputDir, csvFileName)
	rows, err := anki.WriteCSV(csvPath, entries)
	if err != nil {
		return fmt.Errorf("write anki csv: %w", err)
	}
	scriptPath := filepath.Join(a.cfg.Paths.OutputDir, scriptFileName)
	if err := anki.WriteCopyScript(scriptPath, a.cfg.Paths.ImageDir, a.cfg.Paths.AnkiMediaDir); err != nil {
		return fmt.Errorf("write copy script: %w", err)
	}

	a.log.Info("export written",
		slog.String("csv", csvPath),
		slog.String("script", scriptPath),
		slog.Int("rows", rows))
	fmt.Fprintf(cmd.OutOrStdout(), "Processed %d/%d words (%d complete), %d cards written to %s\n",
		len(entries), len(words), complete, rows, csvPath)
	return nil
}
