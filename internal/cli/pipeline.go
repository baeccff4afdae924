package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"msg-translator/internal/config"
	"msg-translator/internal/corpus"
	"msg-translator/internal/filewalker"
	"msg-translator/internal/graph"
	"msg-translator/internal/parser"
	"msg-translator/internal/worker"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Exchange file names inside the texts directory.
const (
	textsFile              = "texts.json"
	textsTranslatedFile    = "texts_translated.json"
	speakersFile           = "speakers.json"
	speakersTranslatedFile = "speakers_translated.json"
)

func batchExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch-extract [manifest] [base] [output]",
		Short: "Tokenize every .msg listed in a files.json manifest into one bundle",
		Long: `Reads the files.json manifest, parses every .msg it lists under the
extraction base directory and writes all documents into one bundle keyed by
file name without extension. Without a manifest, base is walked for .msg files.`,
		Args: cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			manifest, base, output := cfg.FilesJSON, cfg.ExtractionBase, cfg.JSONFile
			for i, dst := range []*string{&manifest, &base, &output} {
				if i < len(args) {
					*dst = args[i]
				}
			}
			encoding, _ := cmd.Flags().GetString("encoding")
			return runBatchExtract(cfg, manifest, base, output, encoding)
		},
	}

	cmd.Flags().String("encoding", "", "Source encoding: utf-8 or shift_jis (default SOURCE_ENCODING)")

	return cmd
}

func extractTextsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract-texts [bundle] [output-dir]",
		Short: "Write texts.json and speakers.json from a bundle",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			bundlePath, outputDir := cfg.JSONFile, cfg.TextsDir
			if len(args) > 0 {
				bundlePath = args[0]
			}
			if len(args) > 1 {
				outputDir = args[1]
			}
			return runExtractTexts(cfg, bundlePath, outputDir)
		},
	}
}

func updateJSONCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update-json",
		Short: "Fold translated texts and speakers into a copy of the bundle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			bundlePath, _ := cmd.Flags().GetString("json")
			textsDir, _ := cmd.Flags().GetString("texts")
			output, _ := cmd.Flags().GetString("output")
			noTranslated, _ := cmd.Flags().GetBool("no-translated")

			if bundlePath == "" {
				bundlePath = cfg.JSONFile
			}
			if textsDir == "" {
				textsDir = cfg.TextsDir
			}
			if output == "" {
				output = filepath.Join(filepath.Dir(bundlePath), filepath.Base(cfg.JSONTranslatedFile))
			}
			return runUpdateJSON(bundlePath, textsDir, output, !noTranslated)
		},
	}

	cmd.Flags().String("json", "", "Source bundle (default JSON_FILE)")
	cmd.Flags().String("texts", "", "Directory holding the texts and speakers files (default TEXTS_DIR)")
	cmd.Flags().String("output", "", "Output bundle (default all_translated.json next to the source)")
	cmd.Flags().Bool("no-translated", false, "Read texts.json instead of texts_translated.json")

	return cmd
}

func batchRebuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch-rebuild",
		Short: "Rebuild every document of a bundle into .msg files",
		Long: `Serializes every document of the bundle into OUTPUT_DIR, naming files after
the manifest entries, and copies each companion .script file from the
extraction base directory next to its rebuilt script.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			bundlePath, _ := cmd.Flags().GetString("json")
			outputDir, _ := cmd.Flags().GetString("output")
			manifest, _ := cmd.Flags().GetString("config")
			extraction, _ := cmd.Flags().GetString("extraction")
			encoding, _ := cmd.Flags().GetString("encoding")

			if bundlePath == "" {
				bundlePath = defaultRebuildBundle(cfg)
			}
			if outputDir == "" {
				outputDir = cfg.OutputDir
			}
			if manifest == "" {
				manifest = cfg.FilesJSON
			}
			if extraction == "" {
				extraction = cfg.ExtractionBase
			}
			return runBatchRebuild(cfg, bundlePath, outputDir, manifest, extraction, encoding)
		},
	}

	cmd.Flags().String("json", "", "Bundle to rebuild (default JSON_TRANSLATED_FILE if present, else JSON_FILE)")
	cmd.Flags().String("output", "", "Output directory (default OUTPUT_DIR)")
	cmd.Flags().String("config", "", "files.json manifest (default FILES_JSON)")
	cmd.Flags().String("extraction", "", "Extraction base directory for .script files (default EXTRACTION_BASE)")
	cmd.Flags().String("encoding", "", "Output encoding: utf-8 or shift_jis (default SOURCE_ENCODING)")

	return cmd
}

// defaultRebuildBundle prefers the translated bundle when it exists.
func defaultRebuildBundle(cfg *config.Config) string {
	if _, err := os.Stat(cfg.JSONTranslatedFile); err == nil {
		log.Info().Str("path", cfg.JSONTranslatedFile).Msg("Using translated bundle")
		return cfg.JSONTranslatedFile
	}
	log.Info().Str("path", cfg.JSONFile).Msg("Using original bundle")
	return cfg.JSONFile
}

// runBatchExtract handles the `batch-extract` command.
func runBatchExtract(cfg *config.Config, manifestPath, base, output, encoding string) error {
	ctx, cancel := setupContext()
	defer cancel()

	enc, err := resolveEncoding(encoding, cfg)
	if err != nil {
		return err
	}
	w := filewalker.NewWalker(parser.NewMsgParser(enc))

	var entries []filewalker.FileEntry
	manifest, err := filewalker.LoadManifest(manifestPath)
	switch {
	case err == nil:
		entries, _ = w.FromManifest(manifest, base)
	case errors.Is(err, fs.ErrNotExist):
		log.Warn().Str("manifest", manifestPath).Msg("Manifest not found, walking base directory")
		if entries, err = w.Walk(base); err != nil {
			return fmt.Errorf("walk input directory: %w", err)
		}
	default:
		return err
	}
	filewalker.SortEntries(entries)

	log.Info().Int("files", len(entries)).Msg("Starting extraction")

	parsePool := worker.NewPool[filewalker.FileEntry, *parser.ParseResult](cfg.WorkerCount,
		func(ctx context.Context, entry filewalker.FileEntry) (*parser.ParseResult, error) {
			return w.ParseFile(entry)
		},
	)

	bundle := make(corpus.Bundle, len(entries))
	failed := 0
	for _, pr := range parsePool.Execute(ctx, entries) {
		if pr.Err != nil {
			log.Error().Err(pr.Err).Str("file", pr.Input.Key).Msg("Parse failed")
			failed++
			continue
		}
		if !pr.Done {
			continue
		}
		if _, dup := bundle[pr.Input.Key]; dup {
			log.Warn().Str("file", pr.Input.Key).Str("path", pr.Input.Path).Msg("Duplicate file key, keeping the first")
			continue
		}
		warnDuplicateNames(pr.Input.Path, pr.Result.Document)
		bundle[pr.Input.Key] = pr.Result.Document
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("extraction interrupted: %w", err)
	}

	if err := bundle.Save(output); err != nil {
		return fmt.Errorf("save bundle: %w", err)
	}

	log.Info().
		Int("extracted", len(bundle)).
		Int("failed", failed).
		Str("output", output).
		Msg("Extraction complete")
	return nil
}

// runExtractTexts handles the `extract-texts` command.
func runExtractTexts(cfg *config.Config, bundlePath, outputDir string) error {
	ctx, cancel := setupContext()
	defer cancel()

	bundle, err := corpus.LoadBundle(bundlePath)
	if err != nil {
		return fmt.Errorf("load bundle: %w", err)
	}

	texts, speakers := corpus.Extract(bundle)
	if err := corpus.WriteJSON(filepath.Join(outputDir, speakersFile), speakers); err != nil {
		return fmt.Errorf("save speakers: %w", err)
	}
	if err := corpus.WriteJSON(filepath.Join(outputDir, textsFile), texts); err != nil {
		return fmt.Errorf("save texts: %w", err)
	}

	log.Info().
		Int("files", len(texts)).
		Int("dialogues", texts.Count()).
		Int("speakers", len(speakers)).
		Str("output", outputDir).
		Msg("Text extraction complete")

	if cfg.Neo4jURI == "" {
		return nil
	}
	deps, err := initDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close(ctx)

	graphBuilder := graph.NewGraphBuilder(deps.neo4jDriver)
	if err := graphBuilder.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure graph schema: %w", err)
	}
	if err := graphBuilder.LinkScripts(ctx, graph.SpeakerScripts(texts)); err != nil {
		return err
	}
	return nil
}

// runUpdateJSON handles the `update-json` command.
func runUpdateJSON(bundlePath, textsDir, output string, useTranslated bool) error {
	textsPath := filepath.Join(textsDir, textsFile)
	if useTranslated {
		translated := filepath.Join(textsDir, textsTranslatedFile)
		if _, err := os.Stat(translated); err == nil {
			textsPath = translated
		} else {
			log.Info().Str("path", translated).Msg("Translated texts not found, using original texts")
		}
	}

	texts, err := corpus.LoadTexts(textsPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warn().Str("path", textsPath).Msg("Texts file not found, dialogue is left untranslated")
		texts = corpus.Texts{}
	case err != nil:
		return fmt.Errorf("load texts: %w", err)
	default:
		log.Info().Int("files", len(texts)).Str("path", textsPath).Msg("Loaded texts")
	}

	translatedSpeakers, err := loadSpeakerTranslations(textsDir)
	if err != nil {
		return err
	}
	speakers := corpus.SpeakerMap(texts, translatedSpeakers)

	bundle, err := corpus.LoadBundle(bundlePath)
	if err != nil {
		return fmt.Errorf("load bundle: %w", err)
	}
	updated := corpus.Apply(bundle, texts, speakers)
	if err := updated.Save(output); err != nil {
		return fmt.Errorf("save bundle: %w", err)
	}

	log.Info().
		Int("files", len(updated)).
		Int("speakers_translated", translatedSpeakers.Translated()).
		Str("output", output).
		Msg("Bundle updated")
	return nil
}

// loadSpeakerTranslations reads speakers_translated.json, falling back to
// speakers.json. Neither existing yields an empty map.
func loadSpeakerTranslations(textsDir string) (corpus.Speakers, error) {
	for _, name := range []string{speakersTranslatedFile, speakersFile} {
		path := filepath.Join(textsDir, name)
		speakers, err := corpus.LoadSpeakers(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load speakers: %w", err)
		}
		log.Info().Int("translated", speakers.Translated()).Str("path", path).Msg("Loaded speaker translations")
		return speakers, nil
	}
	return corpus.Speakers{}, nil
}

// runBatchRebuild handles the `batch-rebuild` command.
func runBatchRebuild(cfg *config.Config, bundlePath, outputDir, manifestPath, extraction, encoding string) error {
	ctx, cancel := setupContext()
	defer cancel()

	enc, err := resolveEncoding(encoding, cfg)
	if err != nil {
		return err
	}
	bundle, err := corpus.LoadBundle(bundlePath)
	if err != nil {
		return fmt.Errorf("load bundle: %w", err)
	}

	msgNames := map[string]string{}
	scripts := map[string]string{}
	manifest, err := filewalker.LoadManifest(manifestPath)
	switch {
	case err == nil:
		msgNames, scripts = manifest.MsgNames(), manifest.Scripts()
	case errors.Is(err, fs.ErrNotExist):
		log.Warn().Str("manifest", manifestPath).Msg("Manifest not found, .script files are not copied")
	default:
		return err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p := parser.NewMsgParser(enc)
	keys := bundle.Keys()
	results := make([]rebuildResult, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, cfg.WorkerCount))
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = rebuildOne(p, key, bundle, msgNames, scripts, outputDir, extraction)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("rebuild interrupted: %w", err)
	}

	rebuilt, failed, copied := 0, 0, 0
	for _, r := range results {
		if r.err != nil {
			failed++
		} else {
			rebuilt++
		}
		if r.copied {
			copied++
		}
	}

	log.Info().
		Int("rebuilt", rebuilt).
		Int("failed", failed).
		Int("scripts_copied", copied).
		Str("output", outputDir).
		Msg("Rebuild complete")
	return nil
}

type rebuildResult struct {
	err    error
	copied bool
}

// rebuildOne writes the script for key and copies its companion .script.
// Failures are logged and reported in the result.
func rebuildOne(p *parser.MsgParser, key string, bundle corpus.Bundle, msgNames, scripts map[string]string, outputDir, extraction string) rebuildResult {
	name := msgNames[key]
	if name == "" {
		name = key + ".msg"
	}
	target := filepath.Join(outputDir, name)

	data, err := p.Reconstruct(&parser.ParseResult{FilePath: target, Document: bundle[key]}, nil)
	if err == nil {
		err = os.WriteFile(target, data, 0o644)
	}
	if err != nil {
		log.Error().Err(err).Str("file", key).Msg("Rebuild failed")
		return rebuildResult{err: err}
	}
	log.Debug().Str("file", key).Str("path", target).Msg("Rebuilt script")

	scriptPath, ok := scripts[key]
	if !ok {
		return rebuildResult{}
	}
	source := filepath.Join(extraction, scriptPath)
	if err := copyFile(source, filepath.Join(outputDir, key+".script")); err != nil {
		log.Warn().Err(err).Str("file", key).Str("source", source).Msg("Failed to copy script file")
		return rebuildResult{}
	}
	return rebuildResult{copied: true}
}

// copyFile copies src to dst, keeping the modification time.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create target: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close target: %w", err)
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
