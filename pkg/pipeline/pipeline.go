package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/firmforge/firmforge/pkg/aggregate"
	"github.com/firmforge/firmforge/pkg/document"
	"github.com/firmforge/firmforge/pkg/emit"
	"github.com/firmforge/firmforge/pkg/model"
	"github.com/firmforge/firmforge/pkg/scan"
	"github.com/firmforge/firmforge/pkg/telemetry"
	"github.com/firmforge/firmforge/pkg/topics"
	"github.com/firmforge/firmforge/pkg/validate"
)

// MirrorDirName is the directory under the work dir that receives the
// mirrored merged documents.
const MirrorDirName = "merged"

// Options configures a compile run.
type Options struct {
	// Root is the project root directory.
	Root string `json:"root" validate:"required"`

	// ExtraRoots are additional directories scanned recursively.
	ExtraRoots []string `json:"extra_roots,omitempty"`

	// WorkDir is the working directory for mirrored merged documents.
	// Defaults to <root>/.forge.
	WorkDir string `json:"work_dir,omitempty"`

	// OutDir is the directory generated headers are written to.
	// Defaults to <root>/src, alongside the firmware sources that
	// include them.
	OutDir string `json:"out_dir,omitempty"`

	// TemplateDir optionally overrides the embedded emitter templates.
	TemplateDir string `json:"template_dir,omitempty"`

	// DisableMirror skips writing mirrored merged documents.
	DisableMirror bool `json:"disable_mirror,omitempty"`
}

// Pipeline executes compile runs: scan, load, aggregate, then per-domain
// validate, allocate, and emit. Domains fail independently; a failing
// domain never blocks the others.
type Pipeline struct {
	opts       Options
	scanner    Scanner
	loader     Loader
	aggregator Aggregator
	validator  Validator
	allocator  Allocator
	emitter    Emitter
	logger     zerolog.Logger
}

// NewPipeline wires a pipeline from the given options. A template
// override directory that is missing any template fails here, before any
// input is read.
func NewPipeline(opts Options, logger zerolog.Logger) (*Pipeline, error) {
	if opts.Root == "" {
		return nil, NewRunFatalError("project root is required", nil).WithCode(ErrCodeNoInput)
	}
	if opts.WorkDir == "" {
		opts.WorkDir = filepath.Join(opts.Root, scan.DefaultWorkDirName)
	}
	if opts.OutDir == "" {
		opts.OutDir = filepath.Join(opts.Root, "src")
	}

	emitter, err := emit.NewCppEmitter(emit.Options{
		OutDir:      opts.OutDir,
		TemplateDir: opts.TemplateDir,
	}, logger)
	if err != nil {
		return nil, NewRunFatalError("loading emitter templates", err).WithCode(ErrCodeTemplateMissing)
	}

	return &Pipeline{
		opts: opts,
		scanner: scan.NewScanner(scan.Options{
			Root:        opts.Root,
			ExtraRoots:  opts.ExtraRoots,
			WorkDirName: filepath.Base(opts.WorkDir),
		}, logger),
		loader:     document.NewLoader(logger),
		aggregator: aggregate.NewAggregator(logger),
		validator:  validate.NewValidator(logger),
		allocator:  topics.NewAllocator(logger),
		emitter:    emitter,
		logger:     logger.With().Str("component", "pipeline").Logger(),
	}, nil
}

// Run executes one complete compile run. The returned error is non-nil
// only for run-fatal conditions; per-domain failures are reported in the
// result and leave the other domains' artifacts intact.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	runID := uuid.New().String()
	started := time.Now()

	tel := telemetry.FromTelemetryContext(ctx)
	ctx = telemetry.WithRunContext(ctx, runID, p.opts.Root)

	result := &RunResult{
		RunID: runID,
		Root:  p.opts.Root,
	}
	logger := p.logger.With().Str("run_id", runID).Logger()
	logger.Info().Str("root", p.opts.Root).Msg("Starting compile run")

	var (
		files  []string
		docs   []document.Document
		merged *aggregate.Result
	)

	err := telemetry.RecordPhase(ctx, "scan", func(ctx context.Context) error {
		var scanErr error
		files, scanErr = p.scanner.Scan(ctx)
		return scanErr
	})
	if err != nil {
		return p.abort(ctx, result, started, NewRunFatalError("scanning configuration files", err).WithCode(ErrCodeCancelled))
	}
	result.Files = files
	logger.Debug().Int("files", len(files)).Msg("Scan complete")

	_ = telemetry.RecordPhase(ctx, "load", func(ctx context.Context) error {
		docs = p.loader.LoadAll(files)
		return nil
	})

	_ = telemetry.RecordPhase(ctx, "aggregate", func(ctx context.Context) error {
		merged = p.aggregator.Merge(docs)
		return nil
	})

	if !merged.Tasks.Found && !merged.Packet.Found && !merged.Commands.Found {
		err := NewRunFatalError("no configuration input discovered", nil).
			WithCode(ErrCodeNoInput).
			WithPath(p.opts.Root).
			WithDetail("files_scanned", len(files))
		return p.abort(ctx, result, started, err)
	}

	for _, domain := range model.Domains() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return p.abort(ctx, result, started, NewRunFatalError("run cancelled", ctxErr).WithCode(ErrCodeCancelled))
		}

		var res DomainResult
		switch domain {
		case model.DomainTasks:
			res = p.runTaskDomain(ctx, runID, tel, &merged.Tasks)
		case model.DomainPacket:
			res = p.runPacketDomain(ctx, runID, tel, &merged.Packet)
		case model.DomainCommands:
			res = p.runCommandDomain(ctx, runID, tel, &merged.Commands)
		}
		result.Domains = append(result.Domains, res)

		if IsRunFatal(res.Err) {
			return p.abort(ctx, result, started, res.Err)
		}
	}

	result.finish(started)
	logger.Info().
		Str("status", string(result.Status)).
		Int("succeeded", result.Summary.Succeeded).
		Int("failed", result.Summary.Failed).
		Int("skipped", result.Summary.Skipped).
		Dur("duration", result.Duration).
		Msg("Compile run finished")

	telemetry.EndRunContext(ctx, runID, string(result.Status), nil)
	return result, nil
}

// abort finalizes the result for a run-fatal error and closes the run
// telemetry.
func (p *Pipeline) abort(ctx context.Context, result *RunResult, started time.Time, err error) (*RunResult, error) {
	result.finish(started)
	result.Status = RunStatusFailed
	var perr *PipelineError
	if errors.As(err, &perr) && perr.Code == ErrCodeCancelled {
		result.Status = RunStatusCancelled
	}
	p.logger.Error().Err(err).Str("run_id", result.RunID).Msg("Compile run aborted")
	telemetry.EndRunContext(ctx, result.RunID, string(result.Status), err)
	return result, err
}

// runTaskDomain validates, mirrors, allocates, and emits the
// task/messaging domain.
func (p *Pipeline) runTaskDomain(ctx context.Context, runID string, tel *telemetry.Telemetry, doc *aggregate.TaskDoc) DomainResult {
	res := DomainResult{Domain: model.DomainTasks, Found: doc.Found}
	if !doc.Found {
		res.Status = DomainStatusSkipped
		return res
	}

	domainCtx := telemetry.WithDomainContext(ctx, runID, string(model.DomainTasks), "compile")
	defer func() { telemetry.EndDomainContext(domainCtx, res.Err) }()

	domain, violations := p.validator.ValidateTasks(domainCtx, doc)
	if !violations.OK() {
		p.failDomain(&res, runID, tel, violations)
		return res
	}
	records := len(domain.Tasks) + len(domain.Messages) + len(domain.Channels)
	p.publishValidated(runID, tel, model.DomainTasks, records)

	mirror, err := p.writeMirror(model.DomainTasks, doc.AsMap())
	if err != nil {
		res.Status = DomainStatusFailed
		res.Err = err
		return res
	}
	res.MirrorFile = mirror

	names := make([]string, 0, len(domain.Channels))
	for _, ch := range domain.Channels {
		names = append(names, ch.Name)
	}
	table, err := p.allocator.Allocate(names)
	if err != nil {
		res.Status = DomainStatusFailed
		res.Err = NewDomainFatalError("allocating topic IDs", err).
			WithCode(ErrCodeBandExhausted).
			WithDomain(model.DomainTasks)
		if tel != nil {
			_ = tel.Events.PublishDomainFailed(runID, string(model.DomainTasks), 0)
		}
		return res
	}
	res.Topics = table
	if tel != nil {
		_ = tel.Events.PublishTopicsAllocated(runID, table.Len())
	}

	paths, err := p.emitter.EmitTasks(domainCtx, domain, table)
	if err != nil {
		res.Status = DomainStatusFailed
		res.Err = p.classifyEmitError(model.DomainTasks, err)
		return res
	}
	p.finishDomain(&res, runID, tel, paths)
	return res
}

// runPacketDomain validates, mirrors, and emits the packet domain.
func (p *Pipeline) runPacketDomain(ctx context.Context, runID string, tel *telemetry.Telemetry, doc *aggregate.PacketDoc) DomainResult {
	res := DomainResult{Domain: model.DomainPacket, Found: doc.Found}
	if !doc.Found {
		res.Status = DomainStatusSkipped
		return res
	}

	domainCtx := telemetry.WithDomainContext(ctx, runID, string(model.DomainPacket), "compile")
	defer func() { telemetry.EndDomainContext(domainCtx, res.Err) }()

	domain, violations := p.validator.ValidatePacket(domainCtx, doc)
	if !violations.OK() {
		p.failDomain(&res, runID, tel, violations)
		return res
	}
	p.publishValidated(runID, tel, model.DomainPacket, len(domain.Opcodes))

	mirror, err := p.writeMirror(model.DomainPacket, doc.AsMap())
	if err != nil {
		res.Status = DomainStatusFailed
		res.Err = err
		return res
	}
	res.MirrorFile = mirror

	paths, err := p.emitter.EmitPacket(domainCtx, domain)
	if err != nil {
		res.Status = DomainStatusFailed
		res.Err = p.classifyEmitError(model.DomainPacket, err)
		return res
	}
	p.finishDomain(&res, runID, tel, paths)
	return res
}

// runCommandDomain validates, mirrors, and emits the command domain.
func (p *Pipeline) runCommandDomain(ctx context.Context, runID string, tel *telemetry.Telemetry, doc *aggregate.CommandDoc) DomainResult {
	res := DomainResult{Domain: model.DomainCommands, Found: doc.Found}
	if !doc.Found {
		res.Status = DomainStatusSkipped
		return res
	}

	domainCtx := telemetry.WithDomainContext(ctx, runID, string(model.DomainCommands), "compile")
	defer func() { telemetry.EndDomainContext(domainCtx, res.Err) }()

	domain, violations := p.validator.ValidateCommands(domainCtx, doc)
	if !violations.OK() {
		p.failDomain(&res, runID, tel, violations)
		return res
	}
	p.publishValidated(runID, tel, model.DomainCommands, len(domain.Commands))

	mirror, err := p.writeMirror(model.DomainCommands, doc.AsMap())
	if err != nil {
		res.Status = DomainStatusFailed
		res.Err = err
		return res
	}
	res.MirrorFile = mirror

	paths, err := p.emitter.EmitCommands(domainCtx, domain)
	if err != nil {
		res.Status = DomainStatusFailed
		res.Err = p.classifyEmitError(model.DomainCommands, err)
		return res
	}
	p.finishDomain(&res, runID, tel, paths)
	return res
}

// failDomain records a validation failure on the result and publishes
// the violation events.
func (p *Pipeline) failDomain(res *DomainResult, runID string, tel *telemetry.Telemetry, violations validate.Result) {
	res.Status = DomainStatusFailed
	res.Violations = violations
	res.Err = NewDomainFatalError("domain failed validation", nil).
		WithCode(ErrCodeValidation).
		WithDomain(res.Domain).
		WithDetail("violations", len(violations))

	p.logger.Warn().
		Str("run_id", runID).
		Str("domain", string(res.Domain)).
		Int("violations", len(violations)).
		Msg("Domain failed validation; skipping its artifacts")

	if tel == nil {
		return
	}
	for _, v := range violations {
		_ = tel.Events.PublishViolation(runID, string(res.Domain), v.Entity, string(v.Kind), v.String())
	}
	_ = tel.Events.PublishDomainFailed(runID, string(res.Domain), len(violations))
}

// finishDomain records a successful emission on the result and publishes
// the artifact events.
func (p *Pipeline) finishDomain(res *DomainResult, runID string, tel *telemetry.Telemetry, paths []string) {
	res.Status = DomainStatusSucceeded
	res.OutFiles = paths
	if tel == nil {
		return
	}
	for _, path := range paths {
		_ = tel.Events.PublishArtifactWritten(runID, string(res.Domain), path)
	}
}

// publishValidated publishes the domain validated event.
func (p *Pipeline) publishValidated(runID string, tel *telemetry.Telemetry, domain model.Domain, records int) {
	if tel == nil {
		return
	}
	_ = tel.Events.PublishDomainValidated(runID, string(domain), records)
}

// writeMirror serializes a canonical merged document under the work dir.
// Mirrors are pure outputs: the scanner excludes them, so they are never
// re-ingested.
func (p *Pipeline) writeMirror(domain model.Domain, doc map[string]any) (string, error) {
	if p.opts.DisableMirror {
		return "", nil
	}

	dir := filepath.Join(p.opts.WorkDir, MirrorDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", NewRunFatalError("creating mirror directory", err).
			WithCode(ErrCodeWorkDir).
			WithPath(dir)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return "", NewRunFatalError("serializing merged document", err).
			WithCode(ErrCodeInternal).
			WithDomain(domain)
	}

	path := filepath.Join(dir, domain.MergedFileName())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", NewRunFatalError("writing merged document", err).
			WithCode(ErrCodeMirrorWrite).
			WithPath(path)
	}
	return path, nil
}

// classifyEmitError classifies an emitter failure: cancellation stays
// run-fatal with its own code, everything else is an output-dir failure.
func (p *Pipeline) classifyEmitError(domain model.Domain, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewRunFatalError("run cancelled", err).WithCode(ErrCodeCancelled).WithDomain(domain)
	}
	return NewRunFatalError("writing generated headers", err).
		WithCode(ErrCodeOutDir).
		WithDomain(domain)
}
