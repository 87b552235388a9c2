package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ochairo/binscope/internal/domain-adapters/gateways"
)

func newCacheCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the report cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every cached report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := global.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.CacheDir == "" {
				return fmt.Errorf("no cache directory configured (use --cache-dir or cache_dir)")
			}

			store, err := gateways.NewReportStore(cfg.CacheDir)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			n, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached reports\n", n)
			return err
		},
	})

	return cmd
}
