// Package orchestrators coordinates domain services and gateways into use cases.
package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ochairo/binscope/internal/domain/entities"
	"github.com/ochairo/binscope/internal/domain/interfaces"
	"github.com/ochairo/binscope/internal/domain/interfaces/gateways"
	"github.com/ochairo/binscope/internal/domain/interfaces/services"
)

// cacheSchema changes whenever the stored report layout changes
const cacheSchema = "v1"

// AnalysisOrchestrator runs every analysis of one file and aggregates the
// results. Format detection gates the header, security and packer stages;
// hashing, string counting and entropy run for every readable file.
type AnalysisOrchestrator struct {
	service services.AnalysisService
	gateway gateways.AnalysisGateway
	store   gateways.ReportStore
	cfg     entities.Config
	logger  interfaces.Logger
}

// NewAnalysisOrchestrator creates a new analysis orchestrator.
// store may be nil to disable the report cache.
func NewAnalysisOrchestrator(
	service services.AnalysisService,
	gateway gateways.AnalysisGateway,
	store gateways.ReportStore,
	cfg entities.Config,
	logger interfaces.Logger,
) *AnalysisOrchestrator {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &AnalysisOrchestrator{
		service: service,
		gateway: gateway,
		store:   store,
		cfg:     cfg,
		logger:  interfaces.OrNoOp(logger),
	}
}

// BatchResult is the outcome for one path of AnalyzeAll
type BatchResult struct {
	Path   string
	Report *entities.AnalysisReport
	Err    error
}

// AnalyzeAll analyzes each path independently, in order
func (o *AnalysisOrchestrator) AnalyzeAll(ctx context.Context, paths []string) ([]BatchResult, error) {
	results := make([]BatchResult, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		report, err := o.Analyze(ctx, p)
		results = append(results, BatchResult{Path: p, Report: report, Err: err})
	}
	return results, nil
}

// analysisRun holds the per-component results while stages run concurrently.
// Each stage writes only its own fields.
type analysisRun struct {
	path   string
	size   int64
	data   []byte
	whole  bool // data holds the entire file
	format entities.Format

	digests entities.Digests

	stringsCount entities.Known[int]
	entropy      entities.EntropyProfile
	packer       *entities.PackerMatch

	header   entities.HeaderInfo
	security entities.SecurityProfile
	elfInfo  *entities.ELFIntrospection
	peInfo   *entities.PEIntrospection

	mu       sync.Mutex
	degraded bool // a transient failure made some field Unknown
}

func (r *analysisRun) markDegraded() {
	r.mu.Lock()
	r.degraded = true
	r.mu.Unlock()
}

// Analyze produces the report for one file. Only a missing or unreadable
// file fails without a report. An unsupported format returns the limited
// report together with ErrUnsupportedFormat.
func (o *AnalysisOrchestrator) Analyze(ctx context.Context, path string) (*entities.AnalysisReport, error) {
	size, err := o.gateway.Stat(ctx, path)
	if err != nil {
		return nil, err
	}
	data, err := o.gateway.ReadHead(ctx, path, o.cfg.MaxFileSize)
	if err != nil {
		return nil, err
	}

	run := &analysisRun{
		path:   path,
		size:   size,
		data:   data,
		whole:  int64(len(data)) >= size,
		format: o.service.DetectFormat(data),
	}

	o.computeDigests(ctx, run)

	cacheKey := o.cacheKey(run)
	if cached := o.lookup(ctx, cacheKey); cached != nil {
		cached.File.Path = path
		return cached, formatError(run)
	}

	if err := o.runStages(ctx, run); err != nil {
		return nil, err
	}

	report := assemble(run)
	if !run.degraded && run.format != entities.FormatUnknown {
		o.save(ctx, cacheKey, report)
	}
	return report, formatError(run)
}

func formatError(run *analysisRun) error {
	if run.format == entities.FormatUnknown {
		return fmt.Errorf("%w: %s", entities.ErrUnsupportedFormat, run.path)
	}
	return nil
}

func (o *AnalysisOrchestrator) computeDigests(ctx context.Context, run *analysisRun) {
	d, err := o.gateway.ComputeDigests(ctx, run.path, o.cfg.ChunkSize)
	if err != nil {
		o.warn("hash", run.path, err)
		run.markDegraded()
		d = entities.Digests{}
	}
	// The fuzzy hash needs the whole file in memory.
	if run.whole {
		if fuzzy, err := o.gateway.FuzzyHash(run.data); err == nil {
			d.SSDeep = entities.Some(fuzzy)
		}
	}
	run.digests = d
}

// runStages runs the independent analyses on a bounded pool. Stage errors
// are recorded as Unknown fields; only cancellation stops the run.
func (o *AnalysisOrchestrator) runStages(ctx context.Context, run *analysisRun) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)

	g.Go(func() error {
		counter := o.service.NewStringCounter()
		if err := o.feed(gctx, run, counter); err != nil {
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			o.warn("strings", run.path, err)
			run.markDegraded()
			return nil
		}
		run.stringsCount = entities.Some(counter.Count())
		return nil
	})

	// Packer scoring needs the entropy value, so both share one stage.
	g.Go(func() error {
		acc := o.service.NewEntropyAccumulator()
		if err := o.feed(gctx, run, acc); err != nil {
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			// The head window alone says nothing about whole-file entropy.
			o.warn("entropy", run.path, err)
			run.markDegraded()
			run.entropy = entities.UnknownEntropy()
		} else {
			run.entropy = acc.Profile()
		}
		if run.format != entities.FormatUnknown {
			// Unknown entropy scores as 0, below every entropy bonus.
			run.packer = o.service.DetectPacker(run.data, run.format, run.entropy.Measured().OrElse(0))
		}
		return nil
	})

	if run.format == entities.FormatUnknown {
		run.header = entities.HeaderInfo{Format: entities.FormatUnknown}
		run.security = entities.NewSecurityProfile()
		return g.Wait()
	}

	g.Go(func() error {
		header, err := o.service.ParseHeader(run.data, run.size, run.format)
		if err != nil {
			// ParseErrors are properties of the file, not transient.
			o.warn("header", run.path, err)
		}
		run.header = header
		run.security, run.elfInfo = o.service.ProfileSecurity(gctx, run.data, header)
		if run.format == entities.FormatELF && run.elfInfo == nil {
			run.markDegraded()
		}
		return nil
	})

	if run.format == entities.FormatPE {
		g.Go(func() error {
			ictx, cancel := context.WithTimeout(gctx, o.cfg.InspectorTimeout)
			defer cancel()
			info, err := o.gateway.InspectPE(ictx, run.path)
			if err != nil {
				o.warn("pe", run.path, fmt.Errorf("%w: %w", entities.ErrToolUnavailable, err))
				run.markDegraded()
				return nil
			}
			run.peInfo = info
			return nil
		})
	}

	return g.Wait()
}

// feed writes the file content into w: from memory when the whole file was
// read, streamed otherwise.
func (o *AnalysisOrchestrator) feed(ctx context.Context, run *analysisRun, w io.Writer) error {
	if run.whole {
		_, err := w.Write(run.data)
		return err
	}
	return o.gateway.Stream(ctx, run.path, o.cfg.ChunkSize, w)
}

func assemble(run *analysisRun) *entities.AnalysisReport {
	report := &entities.AnalysisReport{
		File: entities.BinaryFile{
			Path:    run.path,
			Size:    run.size,
			Format:  run.format,
			Digests: run.digests,
		},
		Header:       run.header,
		Entropy:      run.entropy,
		Security:     run.security,
		Packer:       run.packer,
		StringsCount: run.stringsCount,
	}

	switch {
	case run.elfInfo != nil:
		report.Stripped = entities.Some(!run.elfInfo.HasSymbolTable)
		report.Sections = run.elfInfo.Sections
	case run.peInfo != nil:
		report.Stripped = entities.Some(run.peInfo.Stripped())
		report.ImportCount = entities.Some(run.peInfo.ImportCount)
		report.Sections = run.peInfo.Sections
	}
	if report.Security.Checks == nil {
		report.Security = entities.NewSecurityProfile()
	}
	return report
}

// cacheKey identifies a report by content, loaded signatures and the settings
// that change results. Empty when the file could not be hashed.
func (o *AnalysisOrchestrator) cacheKey(run *analysisRun) string {
	sha, ok := run.digests.SHA256.Get()
	if !ok || o.store == nil {
		return ""
	}
	return fmt.Sprintf("%s:%s:%s:%d:%d", cacheSchema, sha, o.service.RegistryFingerprint(), o.cfg.MinStringLength, o.cfg.MaxFileSize)
}

func (o *AnalysisOrchestrator) lookup(ctx context.Context, key string) *entities.AnalysisReport {
	if key == "" {
		return nil
	}
	report, ok, err := o.store.Get(ctx, key)
	if err != nil {
		o.warn("cache", key, err)
		return nil
	}
	if !ok {
		return nil
	}
	o.logger.Debug("report cache hit", interfaces.F("key", key))
	return report
}

func (o *AnalysisOrchestrator) save(ctx context.Context, key string, report *entities.AnalysisReport) {
	if key == "" {
		return
	}
	if err := o.store.Put(ctx, key, report); err != nil {
		o.warn("cache", key, err)
	}
}

func (o *AnalysisOrchestrator) warn(component, path string, err error) {
	o.logger.Warn("analysis degraded",
		interfaces.F("component", component),
		interfaces.F("path", path),
		interfaces.F("error", err.Error()),
		interfaces.F("parse_error", errors.Is(err, entities.ErrParse)))
}
