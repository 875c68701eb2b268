package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raulshma/uniarr-sub005/internal/config"
	"github.com/raulshma/uniarr-sub005/internal/storage"
)

func newProfileCommand(deps *commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Named widget layout profiles",
	}
	cmd.AddCommand(
		newProfileSaveCommand(deps),
		newProfileListCommand(deps),
		newProfileApplyCommand(deps),
		newProfileRenameCommand(deps),
		newProfileDeleteCommand(deps),
	)
	return cmd
}

func newProfileSaveCommand(deps *commandDeps) *cobra.Command {
	var (
		name        string
		description string
	)

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save the current layout as a named profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(name) == "" {
				return usageErrorf("profile save requires --name")
			}

			return withStore(cmd.Context(), deps, func(ctx context.Context, _ config.Config, _ *slog.Logger, store *storage.Store) error {
				widgets, err := store.Widgets.List(ctx)
				if err != nil {
					return err
				}
				profile, err := store.Profiles.Save(ctx, name, widgets, description)
				if err != nil {
					return err
				}
				fmt.Fprintf(deps.out, "profile %s saved (%s, %d widgets)\n", profile.Name, profile.ID, len(profile.Widgets))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Profile name")
	cmd.Flags().StringVar(&description, "description", "", "Profile description")
	return cmd
}

func newProfileListCommand(deps *commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), deps, func(ctx context.Context, _ config.Config, _ *slog.Logger, store *storage.Store) error {
				profiles, err := store.Profiles.List(ctx)
				if err != nil {
					return err
				}
				for _, profile := range profiles {
					fmt.Fprintf(deps.out, "%s  %-20s %3d widgets  %s\n", profile.ID, profile.Name, len(profile.Widgets), profile.Description)
				}
				return nil
			})
		},
	}
}

func newProfileApplyCommand(deps *commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <id>",
		Short: "Replace the live layout with a saved profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), deps, func(ctx context.Context, _ config.Config, _ *slog.Logger, store *storage.Store) error {
				profile, err := store.Profiles.Load(ctx, args[0])
				if err != nil {
					return err
				}
				if err := store.Widgets.ReplaceAll(ctx, profile.Widgets); err != nil {
					return err
				}
				if err := store.Widgets.InvalidateAllCachedData(ctx); err != nil {
					return err
				}
				fmt.Fprintf(deps.out, "profile %s applied (%d widgets)\n", profile.Name, len(profile.Widgets))
				return nil
			})
		},
	}
}

func newProfileRenameCommand(deps *commandDeps) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "rename <id>",
		Short: "Rename a saved profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(name) == "" {
				return usageErrorf("profile rename requires --name")
			}
			return withStore(cmd.Context(), deps, func(ctx context.Context, _ config.Config, _ *slog.Logger, store *storage.Store) error {
				if err := store.Profiles.Rename(ctx, args[0], name); err != nil {
					return err
				}
				fmt.Fprintf(deps.out, "profile %s renamed to %s\n", args[0], name)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New profile name")
	return cmd
}

func newProfileDeleteCommand(deps *commandDeps) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a saved profile, or all profiles with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return usageErrorf("profile delete takes either an id or --all, not both")
			}
			if !all && len(args) == 0 {
				return usageErrorf("profile delete requires an id or --all")
			}
			return withStore(cmd.Context(), deps, func(ctx context.Context, _ config.Config, _ *slog.Logger, store *storage.Store) error {
				if all {
					if err := store.Profiles.DeleteAll(ctx); err != nil {
						return err
					}
					fmt.Fprintln(deps.out, "all profiles deleted")
					return nil
				}
				if err := store.Profiles.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(deps.out, "profile %s deleted\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Delete every saved profile")
	return cmd
}
