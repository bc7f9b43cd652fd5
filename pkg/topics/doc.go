// Package topics derives stable 16-bit topic identifiers from channel
// names.
//
// # Overview
//
// Identifiers are computed from the channel name alone: a 32-bit FNV-1a
// hash folded to 16 bits and mapped into the band [0x1000, 0xEFFF],
// which keeps clear of the low and high reserved ranges. The same name
// yields the same identifier on every run and every machine, so authors
// never assign numbers by hand and no identifier table is persisted
// between runs.
//
// Within a single run, two names whose hashes collide are resolved by
// probing linearly forward through the band in first-appearance order.
// Collision resolution therefore depends on the order channels appear in
// the merged document, which is itself deterministic. Exhausting the
// band is a hard failure.
package topics
