// Package validate checks canonical domain documents and resolves them
// into typed domain models.
//
// # Overview
//
// Validation runs three layers over a merged document and never stops
// at the first problem:
//
//   - CUE schemas check the document shape and the root mappings
//     (messaging tunables, packet framing, command-table settings).
//   - Per-record struct validation checks required fields, identifier
//     well-formedness, enumeration membership, and byte ranges.
//   - Cross-entity checks cover name and wire-value uniqueness,
//     referential integrity between channels, messages, and tasks, and
//     the shared message payload budget.
//
// The result is either an empty violation list together with the fully
// resolved domain (defaults applied), or the complete ordered list of
// every violation found. A failing domain is never resolved, so nothing
// downstream ever sees a partially valid model.
package validate
