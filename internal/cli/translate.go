package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"msg-translator/internal/cache"
	"msg-translator/internal/config"
	"msg-translator/internal/glossary"
	"msg-translator/internal/graph"
	"msg-translator/internal/translation"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type translateFlags struct {
	texts       string
	output      string
	progress    string
	apiKey      string
	dryRun      bool
	workers     int
	maxTasks    int
	noResume    bool
	retryFailed bool
}

func translateCmd() *cobra.Command {
	var f translateFlags
	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate texts.json and speakers.json through the chat endpoint",
		Long: `Translates speaker names first, then every dialogue item of texts.json with
surrounding lines as context and the relevant glossary terms. Progress is
saved periodically so an interrupted run resumes where it stopped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(f)
		},
	}

	cmd.Flags().StringVar(&f.texts, "texts", "", "texts.json to translate (default TEXTS_DIR/texts.json)")
	cmd.Flags().StringVar(&f.output, "output", "", "Output file (default texts_translated.json next to the input)")
	cmd.Flags().StringVar(&f.progress, "progress", "", "Progress file (default translate_progress.json next to the input)")
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "API key (default API_KEY or API_KEY_FILE)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Report what would be translated without calling the API")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Concurrent translation workers (default WORKER_COUNT)")
	cmd.Flags().IntVar(&f.maxTasks, "max-tasks", 0, "Translate at most this many items (0 for all)")
	cmd.Flags().BoolVar(&f.noResume, "no-resume", false, "Ignore saved progress and start over")
	cmd.Flags().BoolVar(&f.retryFailed, "retry-failed", false, "Only retry items that failed previously")

	return cmd
}

// runTranslate handles the `translate` command.
func runTranslate(f translateFlags) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg := config.Load()
	if f.apiKey != "" {
		cfg.APIKey = f.apiKey
	}
	if f.workers > 0 {
		cfg.WorkerCount = f.workers
	}
	if f.texts == "" {
		f.texts = filepath.Join(cfg.TextsDir, textsFile)
	}

	var client translation.Completer
	if !f.dryRun {
		apiKey, err := cfg.ResolveAPIKey()
		if err != nil {
			return err
		}
		client = translation.NewChatClient(cfg, apiKey)
	}

	deps, err := initDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close(context.Background())

	terms, err := glossary.Load(cfg.TermsFile)
	if err != nil {
		return fmt.Errorf("load glossary: %w", err)
	}
	var graphBuilder *graph.GraphBuilder
	if deps.neo4jDriver != nil {
		graphBuilder = graph.NewGraphBuilder(deps.neo4jDriver)
		if err := graphBuilder.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure graph schema: %w", err)
		}
		graphTerms, err := graph.NewGraphQuerier(deps.neo4jDriver).AllTerms(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load terminology from graph")
		} else {
			terms.Add(graphTerms)
		}
	}
	log.Info().Int("terms", len(terms)).Msg("Glossary ready")

	translationCache := cache.NewTranslationCache(deps.pgPool, cfg.TargetLang)
	if err := translationCache.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure cache schema: %w", err)
	}
	if err := translationCache.Preload(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to preload cache")
	}

	translator := translation.NewTranslator(cfg, client, terms, translationCache)
	sum, err := translator.Run(ctx, translation.Options{
		TextsFile:    f.texts,
		OutputFile:   f.output,
		ProgressFile: f.progress,
		Resume:       !f.noResume,
		RetryFailed:  f.retryFailed,
		DryRun:       f.dryRun,
		MaxTasks:     f.maxTasks,
		Workers:      cfg.WorkerCount,
	})
	if err != nil {
		return err
	}

	if graphBuilder != nil && !f.dryRun {
		// The run context may already be cancelled; terminology is small
		// enough to store regardless.
		storeCtx := context.WithoutCancel(ctx)
		if err := graphBuilder.UpsertTerms(storeCtx, graph.SpeakerTerms(sum.Speakers)); err != nil {
			log.Warn().Err(err).Msg("Failed to store speaker terms")
		}
		if err := graphBuilder.UpsertTerms(storeCtx, graph.GlossaryTerms(terms)); err != nil {
			log.Warn().Err(err).Msg("Failed to store glossary terms")
		}
	}

	log.Info().Int("cached", translationCache.Len()).Msg("Translation memory size")

	if sum.Interrupted {
		return fmt.Errorf("translation interrupted: %w", ctx.Err())
	}
	return nil
}
