// Package aggregate folds loaded configuration documents into canonical
// per-domain documents.
//
// # Overview
//
// Documents are folded in scan order into three independent domains:
// task/messaging, packet, and command. Named records (tasks, messages,
// channels, opcodes, commands) are keyed by their declared name; a later
// declaration of an existing name fully replaces the earlier one while
// keeping its first-appearance position. Opcode and command records
// additionally carry a numeric wire value: when a later record's value
// collides with an earlier record under a different name, the earlier
// entry is evicted before the later one is inserted, so a wire value is
// never silently shared between two names.
//
// Root mappings (messaging, packet, config) are shallow-merged key by
// key; null values never overwrite and never establish a key.
//
// The aggregator works on raw mappings only. It applies no defaults and
// performs no validation beyond structural skips: sections and records
// that are not shaped as expected contribute nothing and are logged.
// Decoding into typed records happens downstream.
package aggregate
