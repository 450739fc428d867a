package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/princekumarofficial/portfolio-studio/internal/events"
	"github.com/princekumarofficial/portfolio-studio/internal/files"
	"github.com/princekumarofficial/portfolio-studio/internal/portfolio"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path>",
		Short: "Check a file against the upload rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			policy := policyFromConfig(cfg)

			f, err := files.Open(args[0])
			if err != nil {
				return err
			}

			outcome := policy.Validate(f)
			out := cmd.OutOrStdout()
			if !outcome.OK() {
				fmt.Fprintf(out, "rejected: %s\n", outcome.Reason)
				return outcome.Err()
			}
			fmt.Fprintf(out, "ok: %s (%s, %d bytes)\n", f.Name, f.Type, f.Size)
			return nil
		},
	}
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "probe <path>",
		Short: "Show the metadata derived for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app) error {
				f, err := files.Open(args[0])
				if err != nil {
					return err
				}

				base, updates := a.prober.Probe(cmd.Context(), f)
				metadata := base
				for u := range updates {
					if u.Err != nil {
						a.logger.Warn("metadata probe failed", "file", f.Name, "error", u.Err.Error())
					}
					metadata = metadata.Merge(u)
				}

				if asJSON {
					return writeJSON(cmd.OutOrStdout(), metadata)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, metadataRows(f.Name, metadata), nil))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print metadata as JSON")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the saved portfolio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app) error {
				store := portfolio.NewStore(a.cfg.UserID, a.remote, events.NewLogPublisher(a.logger), a.logger)
				result, err := store.LoadPortfolio(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, store.Items())
				}
				if result.Empty {
					fmt.Fprintln(out, "No saved portfolio yet.")
					return nil
				}
				fmt.Fprintln(out, renderItems(store.Items()))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print items as JSON")
	return cmd
}

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the metadata cache",
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show probe cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app) error {
				if a.cache == nil {
					return errors.New("probe cache disabled: redis is not configured or unreachable")
				}
				stats := a.cache.Stats(cmd.Context())
				rows := [][]string{
					{"Connected", fmt.Sprintf("%t", stats.RedisConnected)},
					{"Entries", itoa(stats.KeyCount)},
				}
				for _, key := range stats.CacheKeys {
					rows = append(rows, []string{"Sample key", key})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Stat", "Value"}, rows, nil))
				return nil
			})
		},
	})

	return cacheCmd
}
