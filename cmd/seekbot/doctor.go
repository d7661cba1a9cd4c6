package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"seekbot/internal/config"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your seekbot installation",
		Long: `Verifies that seekbot's configuration, databases, and channels are
correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("seekbot doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config file exists
			if _, err := os.Stat(cfgPath); err != nil {
				printFail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				fmt.Printf("\nRun 'seekbot init' to create a default configuration.\n")
				return nil
			}
			printPass("Config file", cfgPath)
			passed++

			// 2. Config loads and validates
			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				failed++
				fmt.Printf("\n%d passed, %d failed\n", passed, failed)
				return nil
			}
			printPass("Config validation", "valid")
			passed++

			// 3. Interaction database writable
			if err := checkDatabase(cfg.Store.DBPath); err != nil {
				printFail("Interaction store", err.Error())
				failed++
			} else {
				printPass("Interaction store", cfg.Store.DBPath)
				passed++
			}

			// 4. Retrieval engine
			switch cfg.Retrieval.Engine {
			case "sqlite":
				if err := checkDatabase(cfg.Retrieval.IndexPath); err != nil {
					printFail("Retrieval index", err.Error())
					failed++
				} else {
					printPass("Retrieval index", cfg.Retrieval.IndexPath)
					passed++
				}
				for _, p := range cfg.Retrieval.CorpusPaths {
					if _, err := os.Stat(p); err != nil {
						printWarn("Corpus path", fmt.Sprintf("not found: %s", p))
						warned++
					} else {
						printPass("Corpus path", p)
						passed++
					}
				}
			case "duckduckgo":
				printPass("Retrieval engine", "duckduckgo (no local index)")
				passed++
			}

			// 5. MRC endpoint configured
			if cfg.MRC.Enabled {
				if cfg.MRC.Endpoint == "" {
					printFail("MRC endpoint", "enabled but not configured")
					failed++
				} else {
					printPass("MRC endpoint", cfg.MRC.Endpoint)
					passed++
				}
			}

			// 6. Telegram token present when enabled
			if cfg.Channels.Telegram.Enabled {
				if cfg.Channels.Telegram.Token == "" {
					printFail("Telegram", "enabled but no token configured")
					failed++
				} else {
					printPass("Telegram", "token configured")
					passed++
				}
			}

			// 7. Speech credentials when enabled
			if cfg.Speech.Enabled && cfg.Speech.APIKey == "" {
				printWarn("Speech", "enabled but no API key configured")
				warned++
			}

			// 8. Metrics listen address free
			if cfg.Metrics.Enabled {
				if err := checkListen(cfg.Metrics.Listen); err != nil {
					printWarn("Metrics", fmt.Sprintf("%s may be in use: %v", cfg.Metrics.Listen, err))
					warned++
				} else {
					printPass("Metrics", cfg.Metrics.Listen+" available")
					passed++
				}
			}

			// 9. Log file writable
			if cfg.General.LogFile != "" {
				if err := os.MkdirAll(filepath.Dir(cfg.General.LogFile), 0o755); err != nil {
					printWarn("Log file", fmt.Sprintf("cannot create log directory: %v", err))
					warned++
				} else {
					printPass("Log file", cfg.General.LogFile)
					passed++
				}
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running seekbot.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nseekbot should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! seekbot is ready to run.\n")
			}
			return nil
		},
	}
}

func checkDatabase(dbPath string) error {
	if dbPath == "" {
		return fmt.Errorf("path not configured")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("cannot create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("cannot open: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("cannot ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS _doctor_test (id INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	db.ExecContext(ctx, "DROP TABLE IF EXISTS _doctor_test")
	return nil
}

func checkListen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
