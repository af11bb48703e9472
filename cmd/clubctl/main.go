// Command clubctl is the Courtside operations CLI.
//
// Usage:
//
//	clubctl migrate
//	clubctl token issue --email coach@club.org --role coach
//	clubctl import template --out roster.xlsx
//	clubctl import parse roster.xlsx
//	clubctl import preview roster.xlsx
//	clubctl import execute roster.xlsx
//	clubctl outbox flush
//	clubctl maintenance run
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/courtside/internal/auth"
	"github.com/albapepper/courtside/internal/config"
	"github.com/albapepper/courtside/internal/db"
	"github.com/albapepper/courtside/internal/documents"
	"github.com/albapepper/courtside/internal/maintenance"
	"github.com/albapepper/courtside/internal/notifications"
	"github.com/albapepper/courtside/internal/payments"
	"github.com/albapepper/courtside/internal/roster"
	"github.com/albapepper/courtside/internal/schedule"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:          "clubctl",
		Short:        "Courtside club operations CLI",
		SilenceUsage: true,
	}

	root.AddCommand(migrateCmd())
	root.AddCommand(tokenCmd())
	root.AddCommand(importCmd())
	root.AddCommand(outboxCmd())
	root.AddCommand(maintenanceCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// migrate command
// --------------------------------------------------------------------------

func migrateCmd() *cobra.Command {
	var printOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if printOnly {
				_, err := io.WriteString(cmd.OutOrStdout(), db.Schema())
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			start := time.Now()
			if err := db.Migrate(ctx, cfg.DatabaseURL); err != nil {
				return err
			}
			logger.Info("Schema applied", "duration", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the schema instead of applying it")
	return cmd
}

// --------------------------------------------------------------------------
// token command
// --------------------------------------------------------------------------

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage session tokens",
	}
	cmd.AddCommand(tokenIssueCmd())
	return cmd
}

func tokenIssueCmd() *cobra.Command {
	var (
		email, role, name string
		ttl               time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a session token for a club member",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			r, err := auth.ParseRole(role)
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if ttl == 0 {
				ttl = cfg.SessionTTL
			}
			tok, err := auth.NewService(cfg.SessionSecret, cfg.SessionTTL).IssueTTL(email, r, name, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Member email (token subject)")
	cmd.Flags().StringVar(&role, "role", "parent", "Role (admin, coach, parent)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default SESSION_TTL_HOURS)")
	return cmd
}

// --------------------------------------------------------------------------
// import command
// --------------------------------------------------------------------------

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk roster import from a spreadsheet",
	}
	cmd.AddCommand(importTemplateCmd())
	cmd.AddCommand(importParseCmd())
	cmd.AddCommand(importPreviewCmd())
	cmd.AddCommand(importExecuteCmd())
	return cmd
}

func importTemplateCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write the blank roster workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := roster.Template()
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			logger.Info("Template written", "file", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", roster.TemplateFilename, "Output file")
	return cmd
}

func importParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>",
		Short: "Validate a roster spreadsheet without touching the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := parseFile(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func importPreviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview <file>",
		Short: "Classify spreadsheet rows against stored data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseFile(args[0])
			if err != nil {
				return err
			}
			return runWithDB(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				res, err := roster.NewReconciler(roster.NewPostgresStore(pool.Pool), logger).Preview(ctx, parsed.Rows)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func importExecuteCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "execute <file>",
		Short: "Import a roster spreadsheet",
		Long:  "Parses and previews the file, then applies every valid row. Refuses to run when the preview has error rows unless --force is set.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseFile(args[0])
			if err != nil {
				return err
			}
			return runWithDB(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				store := roster.NewPostgresStore(pool.Pool)
				preview, err := roster.NewReconciler(store, logger).Preview(ctx, parsed.Rows)
				if err != nil {
					return err
				}
				if preview.HasErrors() && !force {
					return fmt.Errorf("preview found %d error rows; fix them or pass --force", preview.Summary.Error)
				}

				start := time.Now()
				res, err := roster.NewExecutor(store, logger).Execute(ctx, parsed.Rows)
				if err != nil {
					return err
				}
				logger.Info("Import finished",
					"file", filepath.Base(args[0]),
					"duration", time.Since(start).Round(time.Millisecond),
					"summary", res.Summary())
				for _, e := range res.RowErrors {
					logger.Error("import row failed", "row", e.Row, "error", e.Message)
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Import valid rows even when the preview reports errors")
	return cmd
}

func parseFile(path string) (roster.ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return roster.ParseResult{}, err
	}
	res, err := roster.ParseUpload(filepath.Base(path), data)
	if err != nil {
		return roster.ParseResult{}, err
	}
	logger.Info("Parsed roster",
		"file", filepath.Base(path),
		"total", res.Summary.Total, "valid", res.Summary.Valid,
		"errors", res.Summary.Error, "warnings", res.Summary.Warnings)
	return res, nil
}

// --------------------------------------------------------------------------
// outbox command
// --------------------------------------------------------------------------

func outboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Email outbox operations",
	}
	cmd.AddCommand(outboxFlushCmd())
	return cmd
}

func outboxFlushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Deliver every due email now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithDB(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				var sender notifications.Sender = notifications.LogSender{Logger: logger}
				if sg := notifications.NewSendGridSender(cfg.SendGridAPIKey, cfg.EmailFromName, cfg.EmailFromAddr); sg != nil {
					sender = sg
				}
				docs := documents.NewService(
					documents.NewPostgresSource(pool.Pool, payments.NewPostgresStore(pool.Pool), schedule.NewPostgresStore(pool.Pool)),
					documents.Club{Name: cfg.ClubName, Address: cfg.ClubAddress, Email: cfg.ClubEmail},
				)
				dispatcher := notifications.NewDispatcher(
					notifications.NewPostgresQueue(pool.Pool, cfg.EmailMaxTries), sender, docs, logger)

				sent, failed, err := dispatcher.Flush(ctx)
				logger.Info("Outbox flushed", "sent", sent, "failed", failed)
				return err
			})
		},
	}
}

// --------------------------------------------------------------------------
// maintenance command
// --------------------------------------------------------------------------

func maintenanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Database housekeeping",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Requeue stuck emails, expire stale payments and purge old rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithDB(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				affected, err := maintenance.RunAll(ctx, pool.Pool, logger)
				if perr := printJSON(cmd.OutOrStdout(), affected); perr != nil {
					return perr
				}
				return err
			})
		},
	})
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// runWithDB handles config loading, DB connection, and context cancellation.
func runWithDB(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
