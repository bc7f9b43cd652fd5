// Package document loads raw configuration documents from disk.
//
// A document is one YAML file parsed into a top-level mapping. Files
// that cannot be read, cannot be parsed, or whose top level is not a
// mapping contribute nothing: they are skipped with a log line and the
// run continues. A single bad file must never abort aggregation.
package document
