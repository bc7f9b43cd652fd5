// Package telemetry provides observability instrumentation for the FirmForge
// toolchain.
//
// The telemetry package integrates structured logging (zerolog), distributed
// tracing (OpenTelemetry), and run event publishing into a unified system for
// monitoring and debugging forge compile runs.
//
// # Architecture
//
// The telemetry system is built on three pillars:
//
//  1. Structured Logging - Context-aware logging with zerolog
//  2. Distributed Tracing - OpenTelemetry traces with multiple exporters
//  3. Run Events - Ordered event stream for progress reporting
//
// # Usage
//
// Initialize telemetry at startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
// The logger provides component-specific logging with automatic context
// propagation:
//
//	logger := tel.Logger.NewComponentLogger("validate")
//	logger = logger.WithRunID(runID).WithDomain("task")
//	logger.Info("Validating task domain")
//	logger.WithError(err).Error("Validation failed")
//
// Log levels: trace, debug, info, warn, error, fatal
//
// Pipeline components that take a zerolog.Logger directly can be handed one
// via Logger.Zerolog().
//
// # Distributed Tracing
//
// Tracing provides visibility into where a compile run spends its time:
//
//	ctx, span := tel.Tracer.StartRunSpan(ctx, runID, root)
//	defer span.End()
//
//	ctx, span := tel.Tracer.StartPhaseSpan(ctx, "aggregate")
//	defer span.End()
//
//	span.SetAttributes(telemetry.AttrFileCount.Int(len(files)))
//
//	if err != nil {
//	    telemetry.RecordError(span, err)
//	}
//
// Supported exporters: OTLP/gRPC (CI and production collectors), stdout
// (development), none (spans generated but not exported).
//
// # Run Events
//
// The event system publishes an ordered stream of progress events during a
// run. With async delivery disabled (the default) subscribers are invoked
// synchronously in publish order, which makes the stream suitable for
// terminal progress output:
//
//	tel.Events.Subscribe(func(event telemetry.Event) {
//	    fmt.Fprintf(os.Stderr, "%s %s\n", event.Type, event.Message)
//	}, telemetry.FilterByLevel("info"))
//
//	tel.Events.PublishDomainValidated(runID, "task", fileCount)
//	tel.Events.PublishArtifactWritten(runID, "task", path)
//
// Event filters: FilterByLevel, FilterByType, FilterByRunID, FilterByDomain
//
// # Context Helpers
//
// High-level helpers simplify common instrumentation patterns:
//
//	// Instrument an operation
//	ic := telemetry.StartOperation(ctx, "topics.allocate",
//	    telemetry.AttrChannelCount.Int(channels))
//	defer ic.End(err)
//
//	// Run context
//	ctx = telemetry.WithRunContext(ctx, runID, root)
//	defer telemetry.EndRunContext(ctx, runID, status, err)
//
//	// Phase timing
//	err := telemetry.RecordPhase(ctx, "emit", func(ctx context.Context) error {
//	    return emit(ctx)
//	})
//
// # Configuration
//
// The package provides pre-configured setups for different environments:
//
//	// Development (verbose console logs, stdout traces)
//	cfg := telemetry.DevelopmentConfig()
//
//	// CI (JSON logs, OTLP traces)
//	cfg := telemetry.CIConfig()
//
// Logs default to stderr so stdout stays clean for generated artifacts and
// machine-readable command output. Tracing defaults to disabled; a compile
// run is short-lived and most invocations have no collector to talk to.
//
// # Graceful Shutdown
//
// Always shut down telemetry to flush pending data:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//	defer cancel()
//
//	if err := tel.Shutdown(ctx); err != nil {
//	    log.Printf("Telemetry shutdown error: %v", err)
//	}
package telemetry
