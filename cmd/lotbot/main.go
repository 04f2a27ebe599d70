package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"lotbot/internal/channel"
	"lotbot/internal/config"
	"lotbot/internal/domain"
	"lotbot/internal/ingest"
	"lotbot/internal/ledger"
	"lotbot/internal/metrics"
	"lotbot/internal/section"
	"lotbot/internal/sheets"

	"github.com/spf13/cobra"
)

var (
	version    = "0.3.1"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "lotbot",
		Short: "lotbot: production log bot for Telegram and Google Sheets",
		Long:  "lotbot parses production messages from one Telegram group and appends structured rows to a Google Sheets log, exactly once per message.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.lotbot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(runCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(backupCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config and an example section mapping",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := resolveConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}

			mappingPath := config.ExpandPath(cfg.Sections.MappingFile)
			if _, err := os.Stat(mappingPath); os.IsNotExist(err) {
				if err := os.WriteFile(mappingPath, []byte(exampleSections), 0o644); err != nil {
					return err
				}
			}

			logger.Info("initialized", "config", cfgPath, "sections", mappingPath)
			return nil
		},
	}
}

const exampleSections = `# Maps each message origin to a production section.
# An entry without topicId matches messages posted outside any topic.
sections:
  - chatId: -100123
    topicId: 12
    name: maszyna
  - chatId: -100123
    topicId: 34
    name: pakowanie
  - chatId: -100123
    topicId: 56
    name: kontrola_wagi
  - chatId: -100123
    topicId: 78
    name: laba
`

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot (poll Telegram, append rows)",
		Long:  "Connects to Telegram, rebuilds the dedup ledger and category cache, and processes messages until interrupted.",
		RunE:  runBot,
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.ValidateRuntime(cfg); err != nil {
		return err
	}

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.General.LogLevel),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	resolver, err := section.Load(cfg.Sections.MappingFile, logger)
	if err != nil {
		return err
	}

	sink, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID:   cfg.Sheet.SpreadsheetID,
		SheetName:       cfg.Sheet.SheetName,
		CredentialsFile: cfg.Sheet.CredentialsFile,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	registry := metrics.New("lotbot")

	pipeline, err := ingest.Build(ctx, ingest.BootstrapConfig{
		Sink:          sink,
		Ledger:        store,
		Resolver:      resolver,
		Authoritative: cfg.Sections.Authoritative,
		Timezone:      cfg.General.Timezone,
		Logger:        logger,
		Metrics:       registry,
	})
	if err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr, registry)
	}

	telegram := channel.NewTelegram(channel.TelegramConfig{
		Token:  cfg.Telegram.Token,
		ChatID: cfg.Telegram.ChatID,
		Logger: logger,
	})

	logger.Info("bot started", "version", version, "chat_id", cfg.Telegram.ChatID)
	return telegram.Start(ctx, pipeline)
}

func openLedger(cfg *config.Config) (domain.DedupStore, error) {
	switch cfg.Ledger.Driver {
	case "sqlite":
		return ledger.NewSQLite(cfg.Ledger.Path, logger)
	default:
		return ledger.NewJSONL(cfg.Ledger.Path, logger), nil
	}
}

func serveMetrics(addr string, registry *metrics.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())
	logger.Info("metrics listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server error", "err", err)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
