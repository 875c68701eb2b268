package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/awnumar/memguard"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raulshma/uniarr-sub005/internal/backup"
	"github.com/raulshma/uniarr-sub005/internal/config"
	"github.com/raulshma/uniarr-sub005/internal/storage"
)

func newBackupCommand(deps *commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export and restore application state",
	}
	cmd.AddCommand(
		newBackupCreateCommand(deps),
		newBackupRestoreCommand(deps),
		newBackupEventsCommand(deps),
	)
	return cmd
}

func newBackupCreateCommand(deps *commandDeps) *cobra.Command {
	var (
		output      string
		password    string
		noEncrypt   bool
		confirm     bool
		skip        []string
		noServices  bool
		noWidgets   bool
		noProfiles  bool
		noSettings  bool
		noServCreds bool
		noConfCreds bool
		noBagCreds  bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Export selected state to a backup document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("backup create does not accept positional arguments")
			}
			for _, name := range skip {
				switch name {
				case "services":
					noServices = true
				case "widgets":
					noWidgets = true
				case "profiles":
					noProfiles = true
				case "settings":
					noSettings = true
				case "service-credentials":
					noServCreds = true
				case "widget-config-credentials":
					noConfCreds = true
				case "widget-credentials":
					noBagCreds = true
				default:
					return usageErrorf("unknown --skip category %q", name)
				}
			}

			return withStore(cmd.Context(), deps, func(ctx context.Context, cfg config.Config, logger *slog.Logger, store *storage.Store) error {
				opts := backup.DefaultExportOptions()
				opts.IncludeServices = !noServices
				opts.IncludeServiceCredentials = !noServCreds
				opts.IncludeWidgetLayout = !noWidgets
				opts.IncludeWidgetConfigCredentials = !noConfCreds
				opts.IncludeWidgetProfiles = !noProfiles
				opts.IncludeWidgetCredentials = !noBagCreds
				opts.IncludeSettings = !noSettings

				encrypt := cfg.Backup.EncryptByDefault && !noEncrypt
				if noEncrypt && !confirm {
					return usageErrorf("unencrypted backups require --yes confirmation")
				}
				if encrypt {
					pw, err := resolvePassword(password, true)
					if err != nil {
						return err
					}
					defer memguard.WipeBytes(pw)
					opts.EncryptSensitive = true
					opts.Password = pw
				}

				path := output
				if path == "" {
					name := fmt.Sprintf("uniarr-backup-%s.json", time.Now().UTC().Format("20060102-150405"))
					path = filepath.Join(cfg.Backup.OutputDir, name)
				}

				exporter := backup.NewExporter(storesFrom(store), producerString(deps.build), logger, store.Events)
				raw, manifest, err := exporter.Export(ctx, opts)
				if err != nil {
					return err
				}

				if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
					return fmt.Errorf("create backup directory: %w", err)
				}
				if err := os.WriteFile(path, raw, 0o600); err != nil {
					return fmt.Errorf("write backup document: %w", err)
				}

				if !opts.EncryptSensitive {
					color.New(color.FgYellow).Fprintln(deps.out, "warning: sensitive fields are stored in plaintext")
				}
				fmt.Fprintf(deps.out, "backup written to %s (version %d, created %s)\n", path, manifest.Version, manifest.CreatedAt)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "out", "o", "", "Output path for the backup document")
	cmd.Flags().StringVar(&password, "password", "", "Encryption password (prompted when omitted)")
	cmd.Flags().BoolVar(&noEncrypt, "no-encrypt", false, "Export sensitive fields in plaintext")
	cmd.Flags().BoolVar(&confirm, "yes", false, "Confirm an unencrypted export")
	cmd.Flags().StringSliceVar(&skip, "skip", nil, "Categories to exclude (services|widgets|profiles|settings|service-credentials|widget-config-credentials|widget-credentials)")
	return cmd
}

func newBackupRestoreCommand(deps *commandDeps) *cobra.Command {
	var (
		input    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore application state from a backup document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("backup restore does not accept positional arguments")
			}
			if strings.TrimSpace(input) == "" {
				return usageErrorf("backup restore requires --in")
			}

			return withStore(cmd.Context(), deps, func(ctx context.Context, cfg config.Config, logger *slog.Logger, store *storage.Store) error {
				raw, err := os.ReadFile(input)
				if err != nil {
					return fmt.Errorf("read backup document: %w", err)
				}

				restorer := backup.NewRestorer(storesFrom(store), logger, store.Events)

				var pw []byte
				if password != "" {
					pw = []byte(password)
				}
				result, err := restorer.Restore(ctx, raw, pw)
				if errors.Is(err, backup.ErrPasswordRequired) {
					prompted, promptErr := resolvePassword("", false)
					if promptErr != nil {
						return promptErr
					}
					defer memguard.WipeBytes(prompted)
					result, err = restorer.Restore(ctx, raw, prompted)
				}
				if err != nil {
					return err
				}

				names := make([]string, 0, len(result.Restored))
				for _, category := range result.Restored {
					names = append(names, string(category))
				}
				fmt.Fprintf(deps.out, "restored categories: %s\n", strings.Join(names, ", "))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&input, "in", "i", "", "Path to the backup document")
	cmd.Flags().StringVar(&password, "password", "", "Decryption password (prompted when required)")
	return cmd
}

func newBackupEventsCommand(deps *commandDeps) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent backup and restore events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), deps, func(ctx context.Context, _ config.Config, _ *slog.Logger, store *storage.Store) error {
				events, err := store.Events.List(ctx, limit)
				if err != nil {
					return err
				}
				for _, event := range events {
					fmt.Fprintf(deps.out, "%s  %-8s %-8s %s\n", event.CreatedAt.Format(time.RFC3339), event.Action, event.Result, event.Detail)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of events to show")
	return cmd
}

func storesFrom(store *storage.Store) backup.Stores {
	return backup.Stores{
		Services:    store.Services,
		Widgets:     store.Widgets,
		Profiles:    store.Profiles,
		Credentials: store.Credentials,
		Settings:    store.Settings,
	}
}

// resolvePassword returns the flag value when set, otherwise prompts on the
// terminal. Export prompts twice to catch typos; restore prompts once.
func resolvePassword(flagValue string, confirm bool) ([]byte, error) {
	if flagValue != "" {
		return []byte(flagValue), nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, usageErrorf("no terminal available; pass --password")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	if len(first) == 0 {
		return nil, usageErrorf("password must not be empty")
	}
	if !confirm {
		return first, nil
	}

	fmt.Fprint(os.Stderr, "Confirm password: ")
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("read password confirmation: %w", err)
	}
	if string(first) != string(second) {
		memguard.WipeBytes(first)
		memguard.WipeBytes(second)
		return nil, usageErrorf("passwords do not match")
	}
	memguard.WipeBytes(second)
	return first, nil
}
