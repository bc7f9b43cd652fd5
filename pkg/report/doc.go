// Package report provides the optional run ledger for FirmForge.
// It persists compile runs, per-domain outcomes, and topic identifier
// allocations to SQLite with WAL mode and embedded migrations. The
// ledger is pure output: the compile pipeline never reads it back.
package report
