package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tradelaw/internal/config"
	"tradelaw/internal/console"
	"tradelaw/internal/conversation"
	"tradelaw/internal/llm"
	"tradelaw/internal/logging"
	"tradelaw/internal/prompt"
	"tradelaw/internal/storage"
	"tradelaw/internal/tui"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code. Failures
// are logged to stderr before the configured logger exists, so they use the
// default console format.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	logger, _ := logging.New(config.LoggingConfig{}, stderr)
	root := newRootCmd()
	root.SetArgs(args)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error().Err(err).Msg("tradelaw failed")
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	chat := newChatCmd(&cfgPath)
	root := &cobra.Command{
		Use:           "tradelaw",
		Short:         "Ask about importing and exporting goods between two jurisdictions",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          chat.RunE,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/tradelaw/config.yaml if not provided)")
	root.Flags().AddFlagSet(chat.Flags())
	root.AddCommand(chat, newIngestCmd(&cfgPath))
	return root
}

func loadConfig(path string) (*config.AppConfig, error) {
	var cfg *config.AppConfig
	var err error
	if path == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newChatCmd(cfgPath *string) *cobra.Command {
	var useTUI, freshTopics bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start a conversation (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if freshTopics {
				cfg.Assistant.RetainHistoryAcrossTopics = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging, os.Stderr)
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), cfg, logger, useTUI)
		},
	}
	cmd.Flags().BoolVar(&useTUI, "tui", false, "Use the full-screen terminal interface")
	cmd.Flags().BoolVar(&freshTopics, "fresh-topics", false, "Forget earlier turns when a new topic starts")
	return cmd
}

func runChat(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger, useTUI bool) error {
	retriever, err := buildRetriever(ctx, cfg, logger)
	if err != nil {
		return err
	}
	generator, err := llm.New(ctx, cfg.Generator)
	if err != nil {
		return err
	}

	sessCfg := conversation.Config{
		Retriever: retriever,
		Generator: generator,
		Composer:  prompt.NewComposer(cfg.Assistant.Origin, cfg.Assistant.Destination),
		Policy:    conversation.Policy{RetainHistoryAcrossTopics: cfg.Assistant.RetainHistoryAcrossTopics},
		Logger:    logger,
	}
	if cfg.Transcript.Path != "" {
		rec, err := storage.NewFileRecorder(cfg.Transcript.Path)
		if err != nil {
			return err
		}
		sessCfg.Recorder = rec
	}
	sess, err := conversation.New(sessCfg)
	if err != nil {
		return err
	}
	logger.Info().
		Str("session", sess.ID()).
		Str("retriever", cfg.Retriever.Type).
		Str("generator", cfg.Generator.Type).
		Bool("retain_history", cfg.Assistant.RetainHistoryAcrossTopics).
		Msg("conversation started")

	if useTUI {
		m := tui.New(ctx, sess, cfg.Assistant.Origin, cfg.Assistant.Destination)
		final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
		if err != nil {
			return err
		}
		return final.(tui.Model).Err()
	}

	fmt.Printf("Trade law assistant: %s to %s. Press Enter on an empty line to exit.\n\n",
		cfg.Assistant.Origin, cfg.Assistant.Destination)
	err = sess.Run(ctx, console.NewLineReader(os.Stdin, os.Stdout), console.NewWriter(os.Stdout))
	if errors.Is(err, context.Canceled) {
		fmt.Println()
		fmt.Println(conversation.NoticeGoodbye)
		return nil
	}
	return err
}

func newIngestCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [paths...]",
		Short: "Index law documents and print a summary (defaults to knowledge.paths)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			paths := args
			if len(paths) == 0 {
				paths = cfg.Knowledge.Paths
			}
			kb, err := buildKnowledgeBase(cfg.Knowledge)
			if err != nil {
				return err
			}
			report, err := kb.IngestPaths(cmd.Context(), paths)
			if err != nil {
				return fmt.Errorf("ingest failed: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Indexed %d documents into %d chunks.\n", report.Documents, report.Chunks)
			if report.Summary != "" {
				fmt.Fprintf(out, "\nSummary:\n%s\n", report.Summary)
			}
			return nil
		},
	}
}
