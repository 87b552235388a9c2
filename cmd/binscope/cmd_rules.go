package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ochairo/binscope/internal/domain/signatures"
)

func newRulesCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect packer signature rules",
	}

	cmd.AddCommand(newRulesListCmd(global))
	cmd.AddCommand(newRulesVerifyCmd(global))

	return cmd
}

func newRulesListCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List packer signatures in evaluation order",
		Long: `List the built-in packer modules followed by the rules loaded from the
rules directory. When two signatures report the same confidence the one
listed first wins.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := global.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := global.newLogger(cfg)

			registry, err := buildRegistry(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			builtin := make(map[string]bool)
			for _, m := range signatures.Builtins() {
				builtin[m.ID()] = true
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ORDER\tID\tSOURCE")
			for i, m := range registry.Modules() {
				source := "rule"
				if builtin[m.ID()] {
					source = "built-in"
				}
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, m.ID(), source)
			}
			_, _ = fmt.Fprintf(tw, "\nFingerprint: %s\n", registry.Fingerprint())
			return tw.Flush()
		},
	}
}

func newRulesVerifyCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that every rule file parses and is signed",
		Long: `Parse every rule file in the rules directory and, with a keyring, check
its detached signature (<file>.asc). Exits non-zero if any file fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := global.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.RulesDir == "" {
				return fmt.Errorf("no rules directory configured (use --rules-dir or rules_dir)")
			}
			// Verification reports unsigned files as failures.
			cfg.RequireSignedRules = cfg.KeyringPath != ""
			logger := global.newLogger(cfg)

			repo, err := newRuleRepository(cfg, logger)
			if err != nil {
				return err
			}
			files, err := repo.LoadFiles(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			seen := make(map[string]string)
			for _, f := range files {
				switch {
				case f.Err != nil:
					failed++
					_, _ = fmt.Fprintf(out, "FAIL  %s: %v\n", f.Path, f.Err)
				case seen[f.Rule.ID] != "":
					failed++
					_, _ = fmt.Fprintf(out, "FAIL  %s: duplicate id %q (first in %s)\n", f.Path, f.Rule.ID, seen[f.Rule.ID])
				default:
					seen[f.Rule.ID] = f.Path
					status := []string{"parsed"}
					if f.Rule.Signed {
						status = append(status, "signed")
					}
					_, _ = fmt.Fprintf(out, "OK    %s: %s (%s)\n", f.Path, f.Rule.ID, strings.Join(status, ", "))
				}
			}

			if failed > 0 {
				return &exitError{msg: fmt.Sprintf("%d of %d rule files failed", failed, len(files))}
			}
			_, _ = fmt.Fprintf(out, "%d rule files verified\n", len(files))
			return nil
		},
	}
}
