// Package model defines the configuration data model for FirmForge:
// the record types that user-authored YAML fragments are decoded into,
// the enumerations those records use, and the validating constructors
// that apply defaulting rules in one place.
//
// # Overview
//
// FirmForge merges scattered configuration fragments into three canonical
// domains: the task/messaging domain (tasks, messages, channels and the
// messaging root), the packet domain (packet framing root and opcodes),
// and the command domain (commands and the command-table config root).
// This package owns the typed representation of every record in those
// domains.
//
// # Records and constructors
//
// Raw records arrive as YAML mappings. Each record type has exactly one
// constructor (NewTask, NewChannel, NewOpcode, ...) that decodes the
// mapping and applies the documented defaults. Fields that are required
// with no default (a task's watchdog settings) stay nil when absent so
// the validator can report them; fields with defaults are filled in by
// the constructor, never at read sites.
//
// # Determinism
//
// Records carry no timestamps, host names, or other run-local state.
// Identical input mappings decode to identical records on every run and
// every machine.
package model
