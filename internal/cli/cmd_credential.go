package cli

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raulshma/uniarr-sub005/internal/config"
	"github.com/raulshma/uniarr-sub005/internal/storage"
)

func newCredentialCommand(deps *commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Per-widget credential bags",
	}
	cmd.AddCommand(
		newCredentialSetCommand(deps),
		newCredentialShowCommand(deps),
		newCredentialRemoveCommand(deps),
	)
	return cmd
}

func newCredentialSetCommand(deps *commandDeps) *cobra.Command {
	var entries []string

	cmd := &cobra.Command{
		Use:   "set <widget-id>",
		Short: "Store a widget's credential bag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(entries) == 0 {
				return usageErrorf("credential set requires at least one --entry key=value")
			}

			bag := storage.CredentialBag{}
			for _, entry := range entries {
				key, value, ok := strings.Cut(entry, "=")
				if !ok || key == "" {
					return usageErrorf("invalid --entry %q, expected key=value", entry)
				}
				bag[key] = value
			}

			return withStore(cmd.Context(), deps, func(ctx context.Context, _ config.Config, _ *slog.Logger, store *storage.Store) error {
				if err := store.Credentials.Set(ctx, args[0], bag); err != nil {
					return err
				}
				if err := store.Widgets.InvalidateCachedData(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(deps.out, "credentials stored for widget %s (%d entries)\n", args[0], len(bag))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&entries, "entry", nil, "Credential entry as key=value (repeatable)")
	return cmd
}

func newCredentialShowCommand(deps *commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "show <widget-id>",
		Short: "Show the stored credential keys for a widget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), deps, func(ctx context.Context, _ config.Config, _ *slog.Logger, store *storage.Store) error {
				bag, err := store.Credentials.Get(ctx, args[0])
				if err != nil {
					return err
				}
				keys := make([]string, 0, len(bag))
				for key := range bag {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				fmt.Fprintf(deps.out, "widget %s: %s\n", args[0], strings.Join(keys, ", "))
				return nil
			})
		},
	}
}

func newCredentialRemoveCommand(deps *commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <widget-id>",
		Short: "Remove a widget's credential bag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), deps, func(ctx context.Context, _ config.Config, _ *slog.Logger, store *storage.Store) error {
				if err := store.Credentials.Remove(ctx, args[0]); err != nil {
					return err
				}
				if err := store.Widgets.InvalidateCachedData(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(deps.out, "credentials removed for widget %s\n", args[0])
				return nil
			})
		},
	}
}
