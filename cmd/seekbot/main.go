package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"seekbot/internal/action"
	"seekbot/internal/agent"
	"seekbot/internal/bus"
	"seekbot/internal/channel"
	"seekbot/internal/config"
	"seekbot/internal/dispatcher"
	"seekbot/internal/metrics"
	"seekbot/internal/mrc"
	"seekbot/internal/retrieval"
	"seekbot/internal/selector"
	"seekbot/internal/speech"
	"seekbot/internal/store"

	"github.com/spf13/cobra"
)

var (
	version    = "0.3.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "seekbot",
		Short: "seekbot: conversational document search assistant",
		Long:  "seekbot answers questions over an indexed document collection through Telegram, the terminal, or batch files.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.seekbot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(gatewayCmd())
	root.AddCommand(batchCmd())
	root.AddCommand(indexCmd())
	root.AddCommand(configCmd())
	root.AddCommand(doctorCmd())

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

func setupLogger(cfg *config.Config) error {
	level := slog.LevelInfo
	switch cfg.General.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var w io.Writer = os.Stderr
	if cfg.General.LogFile != "" {
		f, err := os.OpenFile(cfg.General.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("cannot open log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, f)
	}
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return nil
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
}

// pipeline bundles everything a running channel needs, plus cleanup.
type pipeline struct {
	bus     *bus.InMemoryBus
	handler *agent.Handler
	loop    *agent.Loop
	close   func()
}

// buildPipeline wires the turn-processing core from config: interaction
// store, retrieval engine, actions, dispatcher, selector, and loop.
func buildPipeline(cfg *config.Config) (*pipeline, error) {
	messageBus := bus.New(100, logger)
	events := bus.NewEventBus(logger)

	interactions, err := store.NewSQLiteStore(cfg.Store.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("interaction store: %w", err)
	}

	var engine retrieval.Engine
	var index *retrieval.SQLiteIndex
	switch cfg.Retrieval.Engine {
	case "duckduckgo":
		engine = retrieval.NewDuckDuckGo()
	default:
		index, err = retrieval.OpenSQLiteIndex(cfg.Retrieval.IndexPath, logger)
		if err != nil {
			interactions.Close()
			return nil, fmt.Errorf("retrieval index: %w", err)
		}
		if len(cfg.Retrieval.CorpusPaths) > 0 {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			n, err := retrieval.LoadCorpus(ctx, index, cfg.Retrieval.CorpusPaths, logger)
			cancel()
			if err != nil {
				logger.Warn("corpus load incomplete", "indexed", n, "err", err)
			}
		}
		engine = index
	}

	disp := dispatcher.New(dispatcher.Config{
		Timeout: time.Duration(cfg.General.TimeoutSeconds) * time.Second,
		Events:  events,
		Logger:  logger,
	})

	query := retrieval.SimpleQueryGeneration{HistoryTurns: cfg.Retrieval.HistoryTurns}
	retrievalAction := action.NewRetrieval(engine, query, cfg.Retrieval.ResultsRequested)
	disp.Register(retrievalAction)

	if cfg.MRC.Enabled {
		model := mrc.NewClient(mrc.ClientConfig{
			Endpoint: cfg.MRC.Endpoint,
			TopK:     cfg.MRC.ResultsRequested,
			Logger:   logger,
		})
		disp.Register(action.NewQA(retrievalAction, model, cfg.MRC.ResultsRequested))
	}
	disp.RegisterCommand(action.NewGetDoc(engine))

	handler := agent.NewHandler(agent.HandlerConfig{
		Store:           interactions,
		Dispatcher:      disp,
		Selector:        selector.New(logger, nil),
		Events:          events,
		Logger:          logger,
		Strict:          cfg.General.Strict,
		HistoryMaxAge:   time.Duration(cfg.Store.HistoryMaxAgeMins) * time.Minute,
		HistoryMaxCount: cfg.Store.HistoryMaxMessages,
	})

	return &pipeline{
		bus:     messageBus,
		handler: handler,
		loop:    agent.NewLoop(handler, messageBus, logger),
		close: func() {
			messageBus.Close()
			interactions.Close()
			if index != nil {
				index.Close()
			}
		},
	}, nil
}

func loadConfigOrDefaults() *config.Config {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
	}
	return cfg
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive terminal session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrDefaults()
			if err := setupLogger(cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p, err := buildPipeline(cfg)
			if err != nil {
				return err
			}
			defer p.close()

			go func() {
				if err := p.loop.Run(ctx); err != nil {
					logger.Error("turn loop error", "err", err)
					stop()
				}
			}()

			term := channel.NewStdio(channel.StdioConfig{Logger: logger})
			return term.Start(ctx, p.bus)
		},
	}
}

func gatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Start all enabled channels and the turn loop",
		Long:  "Starts the enabled channels (Telegram, metrics endpoint) and the turn loop. Press Ctrl+C to stop.",
		RunE:  runGateway,
	}
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := setupLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	go func() {
		if err := p.loop.Run(ctx); err != nil {
			logger.Error("turn loop error", "err", err)
			stop()
		}
	}()

	var telegramCh *channel.Telegram
	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token != "" {
		var recognizer speech.Recognizer
		var synth speech.Synthesizer
		if cfg.Speech.Enabled {
			recognizer = speech.NewASRClient(speech.ASRConfig{
				APIBase: cfg.Speech.APIBase,
				APIKey:  cfg.Speech.APIKey,
				Model:   cfg.Speech.ASRModel,
				Logger:  logger,
			})
			synth = speech.NewTTSClient(speech.TTSConfig{
				APIBase: cfg.Speech.APIBase,
				APIKey:  cfg.Speech.APIKey,
				Model:   cfg.Speech.TTSModel,
				Voice:   cfg.Speech.TTSVoice,
				Logger:  logger,
			})
		}
		telegramCh = channel.NewTelegram(channel.TelegramConfig{
			Token:      cfg.Channels.Telegram.Token,
			AllowFrom:  cfg.Channels.Telegram.AllowFrom,
			ParseMode:  cfg.Channels.Telegram.ParseMode,
			Recognizer: recognizer,
			Synth:      synth,
			Logger:     logger,
		})
		go func() {
			if err := telegramCh.Start(ctx, p.bus); err != nil {
				logger.Error("telegram channel error", "err", err)
			}
		}()
		logger.Info("telegram channel enabled")
	} else {
		logger.Info("telegram channel disabled")
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.HandleFunc("/metrics", metrics.Collector.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.Listen, Handler: mux}
		go func() {
			logger.Info("metrics endpoint listening", "addr", cfg.Metrics.Listen)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "err", err)
			}
		}()
	}

	logger.Info("gateway started. Press Ctrl+C to stop.")
	<-ctx.Done()
	logger.Info("shutting down gateway...")

	const shutdownTimeout = 10 * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		if telegramCh != nil {
			telegramCh.Stop()
		}
		if metricsSrv != nil {
			metricsSrv.Shutdown(shutdownCtx)
		}
		p.close()
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timed out, forcing exit")
		shutdownErr = fmt.Errorf("shutdown timed out")
	}
	return shutdownErr
}

func batchCmd() *cobra.Command {
	var inputPath, outputPath, format string
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Process a file of queries offline",
		Long:  "Reads qid<TAB>query lines from the input file and writes one reply per line to the output file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrDefaults()
			if err := setupLogger(cfg); err != nil {
				return err
			}

			fc := cfg.Channels.Fileio
			if inputPath != "" {
				fc.InputPath = inputPath
			}
			if outputPath != "" {
				fc.OutputPath = outputPath
			}
			if format != "" {
				fc.OutputFormat = format
			}
			if fc.InputPath == "" || fc.OutputPath == "" {
				return fmt.Errorf("input and output paths are required (flags or channels.fileio config)")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p, err := buildPipeline(cfg)
			if err != nil {
				return err
			}
			defer p.close()

			go func() {
				if err := p.loop.Run(ctx); err != nil {
					logger.Error("turn loop error", "err", err)
					stop()
				}
			}()

			batch := channel.NewFileio(channel.FileioConfig{
				InputPath:  fc.InputPath,
				OutputPath: fc.OutputPath,
				Format:     fc.OutputFormat,
				RunID:      fc.RunID,
				Logger:     logger,
			})
			return batch.Start(ctx, p.bus)
		},
	}
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "input file (qid<TAB>query per line)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: text or trec")
	return cmd
}

func indexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index [paths...]",
		Short: "Index document collections into the retrieval database",
		Long:  "Loads YAML document files (or directories of them) into the full-text index. With no arguments, indexes retrieval.corpusPaths from the config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfigOrDefaults()
			if err := setupLogger(cfg); err != nil {
				return err
			}

			paths := args
			if len(paths) == 0 {
				paths = cfg.Retrieval.CorpusPaths
			}
			if len(paths) == 0 {
				return fmt.Errorf("no corpus paths given (arguments or retrieval.corpusPaths config)")
			}

			index, err := retrieval.OpenSQLiteIndex(cfg.Retrieval.IndexPath, logger)
			if err != nil {
				return err
			}
			defer index.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			n, err := retrieval.LoadCorpus(ctx, index, paths, logger)
			if err != nil {
				return err
			}
			total, _ := index.Count(ctx)
			logger.Info("indexing complete", "added", n, "total", total)
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. retrieval.engine)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. retrieval.engine duckduckgo)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			data, _ := json.MarshalIndent(config.Sanitize(cfg), "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
