package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ochairo/binscope/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/binscope/internal/domain-orchestrators"
	"github.com/ochairo/binscope/internal/domain/entities"
	"github.com/ochairo/binscope/internal/domain/interfaces"
	domainGateways "github.com/ochairo/binscope/internal/domain/interfaces/gateways"
	"github.com/ochairo/binscope/internal/domain/services"
)

type analyzeOptions struct {
	json         bool
	expectSHA256 string
	recursive    bool
}

func newAnalyzeCmd(global *globalOptions) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <file>...",
		Short: "Analyze one or more executables",
		Long: `Analyze ELF and PE executables.

Each file is analyzed independently. The exit status is non-zero when any
file is missing, has an unsupported format or fails --expect-sha256.
Arguments may be glob patterns; with --recursive, directories are replaced
by the regular files beneath them.`,
		Example: `  binscope analyze /bin/ls
  binscope analyze --json app.exe lib.so
  binscope analyze --expect-sha256 3b1f... release.bin
  binscope analyze --recursive --json ./dist`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, global, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.json, "json", false, "Print reports as JSON")
	cmd.Flags().StringVar(&opts.expectSHA256, "expect-sha256", "", "Fail unless every file has this SHA-256 digest")
	cmd.Flags().BoolVarP(&opts.recursive, "recursive", "r", false, "Analyze every regular file under directory arguments")

	return cmd
}

func runAnalyze(cmd *cobra.Command, global *globalOptions, opts *analyzeOptions, args []string) error {
	ctx := cmd.Context()
	cfg, err := global.loadConfig(cmd)
	if err != nil {
		return err
	}
	paths, err := gateways.NewTargetFinder().Expand(args, opts.recursive)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files found in %s", strings.Join(args, ", "))
	}
	logger := global.newLogger(cfg)

	registry, err := buildRegistry(ctx, cfg, logger)
	if err != nil {
		return err
	}
	gateway := gateways.NewCompositeAnalysisGateway()
	service := services.NewAnalysisService(cfg, registry, gateway, logger)

	var store domainGateways.ReportStore
	if cfg.CacheDir != "" {
		s, err := gateways.NewReportStore(cfg.CacheDir)
		if err != nil {
			logger.Warn("report cache disabled", interfaces.F("error", err.Error()))
		} else {
			defer func() { _ = s.Close() }()
			store = s
		}
	}

	orchestrator := orchestrators.NewAnalysisOrchestrator(service, gateway, store, cfg, logger)
	results, err := orchestrator.AnalyzeAll(ctx, paths)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	failed := 0
	reports := make([]*entities.AnalysisReport, 0, len(results))

	for _, res := range results {
		if res.Err != nil {
			failed++
			_, _ = fmt.Fprintf(errOut, "Error: %s: %v\n", res.Path, describeError(res.Err))
		}
		if res.Report == nil {
			continue
		}
		if opts.expectSHA256 != "" {
			if err := res.Report.File.Digests.VerifySHA256(opts.expectSHA256); err != nil {
				failed++
				_, _ = fmt.Fprintf(errOut, "Error: %s: %v\n", res.Path, err)
			}
		}
		reports = append(reports, res.Report)
	}

	if err := writeReports(out, reports, opts.json, len(paths) > 1); err != nil {
		return err
	}

	if failed > 0 {
		return &exitError{msg: fmt.Sprintf("%d of %d files failed", failed, len(paths))}
	}
	return nil
}

func describeError(err error) error {
	switch {
	case errors.Is(err, entities.ErrFileNotFound):
		return entities.ErrFileNotFound
	case errors.Is(err, entities.ErrUnsupportedFormat):
		return fmt.Errorf("%w (only ELF and PE are analyzed)", entities.ErrUnsupportedFormat)
	default:
		return err
	}
}

// writeReports prints one JSON object for a single path, or an array for
// several
func writeReports(w io.Writer, reports []*entities.AnalysisReport, asJSON, batch bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if batch {
			return enc.Encode(reports)
		}
		if len(reports) == 0 {
			return nil
		}
		return enc.Encode(reports[0])
	}

	for i, r := range reports {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := renderText(w, r); err != nil {
			return err
		}
	}
	return nil
}
