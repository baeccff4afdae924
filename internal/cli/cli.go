package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"msg-translator/internal/config"
	"msg-translator/internal/corpus"
	"msg-translator/internal/graph"
	"msg-translator/internal/msgscript"
	"msg-translator/internal/parser"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var verbose bool
	rootCmd := &cobra.Command{
		Use:   "msg-translator",
		Short: "Extract, translate and rebuild tag-annotated .msg dialogue scripts",
		Long: `Converts .msg dialogue scripts into a round-trippable JSON structure,
extracts plain strings for translation, translates them through an
OpenAI-compatible chat endpoint and rebuilds valid scripts from the result.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(rebuildCmd())
	rootCmd.AddCommand(batchExtractCmd())
	rootCmd.AddCommand(extractTextsCmd())
	rootCmd.AddCommand(translateCmd())
	rootCmd.AddCommand(updateJSONCmd())
	rootCmd.AddCommand(batchRebuildCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <input.msg> <output.json>",
		Short: "Tokenize one .msg script into its structural JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			encoding, _ := cmd.Flags().GetString("encoding")
			textsPath, _ := cmd.Flags().GetString("texts")
			return runExtract(args[0], args[1], encoding, textsPath)
		},
	}

	cmd.Flags().String("encoding", "", "Source encoding: utf-8 or shift_jis (default SOURCE_ENCODING)")
	cmd.Flags().String("texts", "", "Also write the per-message translation list to this path")

	return cmd
}

func rebuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebuild <input.json> <output.msg> [translated.json]",
		Short: "Serialize a structural JSON back into a .msg script",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			encoding, _ := cmd.Flags().GetString("encoding")
			translated := ""
			if len(args) == 3 {
				translated = args[2]
			}
			return runRebuild(args[0], args[1], translated, encoding)
		},
	}

	cmd.Flags().String("encoding", "", "Output encoding: utf-8 or shift_jis (default SOURCE_ENCODING)")

	return cmd
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			log.Warn().Msg("Received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// dependencies holds the optional stores. A nil field means the store is
// not configured.
type dependencies struct {
	pgPool      *pgxpool.Pool
	neo4jDriver neo4j.DriverWithContext
}

func (d *dependencies) Close(ctx context.Context) {
	if d.pgPool != nil {
		d.pgPool.Close()
	}
	if d.neo4jDriver != nil {
		d.neo4jDriver.Close(ctx)
	}
}

// initDependencies connects to PostgreSQL and Neo4j when they are configured.
func initDependencies(ctx context.Context, cfg *config.Config) (*dependencies, error) {
	deps := &dependencies{}

	if cfg.DatabaseURL != "" {
		pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect PostgreSQL: %w", err)
		}
		if err := pgPool.Ping(ctx); err != nil {
			pgPool.Close()
			return nil, fmt.Errorf("ping PostgreSQL: %w", err)
		}
		deps.pgPool = pgPool
		log.Info().Msg("Connected to PostgreSQL")
	}

	if cfg.Neo4jURI != "" {
		driver, err := graph.Connect(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
		if err != nil {
			deps.Close(ctx)
			return nil, err
		}
		deps.neo4jDriver = driver
		log.Info().Msg("Connected to Neo4j")
	}

	return deps, nil
}

// resolveEncoding returns the flag value if set, else SOURCE_ENCODING.
func resolveEncoding(flag string, cfg *config.Config) (parser.Encoding, error) {
	if flag == "" {
		flag = cfg.SourceEncoding
	}
	return parser.ParseEncoding(flag)
}

// runExtract handles the `extract` command.
func runExtract(inputPath, outputPath, encoding, textsPath string) error {
	cfg := config.Load()
	enc, err := resolveEncoding(encoding, cfg)
	if err != nil {
		return err
	}

	log.Info().Str("input", inputPath).Str("output", outputPath).Msg("Extracting script")

	result, err := parser.NewMsgParser(enc).Parse(inputPath)
	if err != nil {
		return err
	}
	warnDuplicateNames(inputPath, result.Document)
	if err := corpus.WriteJSON(outputPath, result.Document); err != nil {
		return fmt.Errorf("write structure: %w", err)
	}

	if textsPath != "" {
		f, err := os.Create(textsPath)
		if err != nil {
			return fmt.Errorf("create texts file: %w", err)
		}
		defer f.Close()
		if err := msgscript.WriteTexts(f, msgscript.ExtractTexts(result.Document)); err != nil {
			return fmt.Errorf("write texts: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close texts file: %w", err)
		}
	}

	speakers := 0
	for _, et := range result.Texts {
		if et.IsSpeaker() {
			speakers++
		}
	}
	log.Info().
		Int("messages", len(result.Document.Order)).
		Int("speakers", speakers).
		Int("dialogue_texts", len(result.Texts)-speakers).
		Msg("Extraction complete")
	return nil
}

// warnDuplicateNames logs message names that repeat within one script. Only
// the last block under such a name survives extraction.
func warnDuplicateNames(path string, doc *msgscript.Document) {
	if dups := doc.DuplicateNames(); len(dups) > 0 {
		log.Warn().Str("file", path).Strs("messages", dups).Msg("Duplicate message names, later blocks replace earlier ones")
	}
}

// runRebuild handles the `rebuild` command.
func runRebuild(inputPath, outputPath, translatedPath, encoding string) error {
	cfg := config.Load()
	enc, err := resolveEncoding(encoding, cfg)
	if err != nil {
		return err
	}

	log.Info().Str("input", inputPath).Str("output", outputPath).Msg("Rebuilding script")

	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open structure: %w", err)
	}
	doc, err := msgscript.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decode %s: %w", inputPath, err)
	}

	var tr msgscript.Translations
	if translatedPath != "" {
		tr, err = readTranslations(translatedPath)
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn().Str("path", translatedPath).Msg("Translation file not found, rebuilding original text")
		} else if err != nil {
			return err
		}
	}

	p := parser.NewMsgParser(enc)
	data, err := p.Reconstruct(&parser.ParseResult{FilePath: outputPath, Encoding: enc, Document: doc}, tr)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("write script: %w", err)
	}

	log.Info().Int("translations", len(tr)).Msg("Rebuild complete")
	return nil
}

func readTranslations(path string) (msgscript.Translations, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open translations: %w", err)
	}
	defer f.Close()

	tr, err := msgscript.ReadTranslations(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return tr, nil
}
