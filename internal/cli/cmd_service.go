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

func newServiceCommand(deps *commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Service connection profiles",
	}
	cmd.AddCommand(
		newServiceAddCommand(deps),
		newServiceListCommand(deps),
		newServiceRemoveCommand(deps),
	)
	return cmd
}

func newServiceAddCommand(deps *commandDeps) *cobra.Command {
	var (
		svcType  string
		name     string
		url      string
		apiKey   string
		disabled bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a service connection profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(name) == "" {
				return usageErrorf("service add requires --name")
			}
			if strings.TrimSpace(url) == "" {
				return usageErrorf("service add requires --url")
			}

			return withStore(cmd.Context(), deps, func(ctx context.Context, _ config.Config, _ *slog.Logger, store *storage.Store) error {
				svc := &storage.ServiceConfig{
					Type:    storage.ServiceType(svcType),
					Name:    name,
					URL:     url,
					APIKey:  apiKey,
					Enabled: !disabled,
				}
				if err := store.Services.Create(ctx, svc); err != nil {
					return err
				}
				fmt.Fprintf(deps.out, "service %s added (%s)\n", svc.Name, svc.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&svcType, "type", string(storage.ServiceTypeOther), "Service type (sonarr|radarr|prowlarr|jellyfin|other)")
	cmd.Flags().StringVar(&name, "name", "", "Service name")
	cmd.Flags().StringVar(&url, "url", "", "Service base URL")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Service API key")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Register the service disabled")
	return cmd
}

func newServiceListCommand(deps *commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List service connection profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), deps, func(ctx context.Context, _ config.Config, _ *slog.Logger, store *storage.Store) error {
				configs, err := store.Services.List(ctx)
				if err != nil {
					return err
				}
				for _, svc := range configs {
					state := "enabled"
					if !svc.Enabled {
						state = "disabled"
					}
					fmt.Fprintf(deps.out, "%s  %-10s %-20s %s (%s)\n", svc.ID, svc.Type, svc.Name, svc.URL, state)
				}
				return nil
			})
		},
	}
}

func newServiceRemoveCommand(deps *commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a service connection profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), deps, func(ctx context.Context, _ config.Config, _ *slog.Logger, store *storage.Store) error {
				if err := store.Services.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(deps.out, "service %s removed\n", args[0])
				return nil
			})
		},
	}
}
