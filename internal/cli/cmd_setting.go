package cli

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"github.com/raulshma/uniarr-sub005/internal/config"
	"github.com/raulshma/uniarr-sub005/internal/storage"
)

func newSettingCommand(deps *commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setting",
		Short: "User preferences",
	}
	cmd.AddCommand(
		newSettingSetCommand(deps),
		newSettingGetCommand(deps),
		newSettingListCommand(deps),
	)
	return cmd
}

func newSettingSetCommand(deps *commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a preference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), deps, func(ctx context.Context, _ config.Config, _ *slog.Logger, store *storage.Store) error {
				if err := store.Settings.Set(ctx, args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(deps.out, "%s=%s\n", args[0], args[1])
				return nil
			})
		},
	}
}

func newSettingGetCommand(deps *commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a preference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), deps, func(ctx context.Context, _ config.Config, _ *slog.Logger, store *storage.Store) error {
				value, err := store.Settings.Get(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(deps.out, value)
				return nil
			})
		},
	}
}

func newSettingListCommand(deps *commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), deps, func(ctx context.Context, _ config.Config, _ *slog.Logger, store *storage.Store) error {
				settings, err := store.Settings.List(ctx)
				if err != nil {
					return err
				}
				keys := make([]string, 0, len(settings))
				for key := range settings {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				for _, key := range keys {
					fmt.Fprintf(deps.out, "%s=%s\n", key, settings[key])
				}
				return nil
			})
		},
	}
}
