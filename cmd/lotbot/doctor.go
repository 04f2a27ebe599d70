package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"lotbot/internal/config"
	"lotbot/internal/ingest"
	"lotbot/internal/ledger"
	"lotbot/internal/section"
	"lotbot/internal/sheets"

	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	var online bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your lotbot installation",
		Long: `Verifies that lotbot's configuration, section mapping, ledger, and
destination sheet are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("lotbot Doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config file exists
			if _, err := os.Stat(cfgPath); err != nil {
				printFail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				fmt.Printf("\nRun 'lotbot init' to create a default configuration.\n")
				return nil
			}
			printPass("Config file", cfgPath)
			passed++

			// 2. Config loads and validates
			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				fmt.Printf("\n1 passed, 1 failed\n")
				return nil
			}
			printPass("Config validation", "valid")
			passed++

			// 3. Runtime credentials present
			if err := config.ValidateRuntime(cfg); err != nil {
				printWarn("Credentials", err.Error())
				warned++
			} else {
				printPass("Credentials", "token, chat id, and spreadsheet id set")
				passed++
			}

			// 4. Timezone resolvable
			if _, err := time.LoadLocation(cfg.General.Timezone); err != nil {
				printFail("Timezone", fmt.Sprintf("unknown zone %q", cfg.General.Timezone))
				failed++
			} else {
				printPass("Timezone", cfg.General.Timezone)
				passed++
			}

			// 5. Section mapping loads
			resolver, err := section.Load(cfg.Sections.MappingFile, logger)
			if err != nil {
				printFail("Section mapping", err.Error())
				failed++
			} else {
				printPass("Section mapping", cfg.Sections.MappingFile)
				passed++
			}

			// 6. Ledger readable
			if err := checkLedger(cfg); err != nil {
				printFail("Dedup ledger", err.Error())
				failed++
			} else {
				printPass("Dedup ledger", fmt.Sprintf("%s (%s)", cfg.Ledger.Path, cfg.Ledger.Driver))
				passed++
			}

			// 7. Destination sheet reachable and complete (network)
			if online && resolver != nil {
				if err := checkSheet(cfg, resolver); err != nil {
					printFail("Destination sheet", err.Error())
					failed++
				} else {
					printPass("Destination sheet", cfg.Sheet.SheetName)
					passed++
				}
			} else if !online {
				printWarn("Destination sheet", "skipped (use --online to verify the sheet)")
				warned++
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running lotbot.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nlotbot should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! lotbot is ready to run.\n")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&online, "online", false, "also verify the destination sheet over the network")
	return cmd
}

func checkLedger(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch cfg.Ledger.Driver {
	case "sqlite":
		store, err := ledger.NewSQLite(cfg.Ledger.Path, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		_, err = store.Load(ctx)
		return err
	default:
		store := ledger.NewJSONL(cfg.Ledger.Path, logger)
		_, err := store.Load(ctx)
		return err
	}
}

// checkSheet runs the same startup sequence as run: header validation and
// cache seeding against the live spreadsheet.
func checkSheet(cfg *config.Config, resolver *section.Resolver) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sink, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID:   cfg.Sheet.SpreadsheetID,
		SheetName:       cfg.Sheet.SheetName,
		CredentialsFile: cfg.Sheet.CredentialsFile,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	store := ledger.NewJSONL(cfg.Ledger.Path, logger)
	_, err = ingest.Build(ctx, ingest.BootstrapConfig{
		Sink:          sink,
		Ledger:        store,
		Resolver:      resolver,
		Authoritative: cfg.Sections.Authoritative,
		Timezone:      cfg.General.Timezone,
		Logger:        logger,
	})
	return err
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
