// Package scan discovers candidate configuration files under a project
// tree.
//
// # Overview
//
// The scanner walks a fixed set of candidate roots: the project root
// itself (top level only), conventional configuration subdirectories
// (config, configs, conf, cfg) recursively, and any extra roots supplied
// by the caller recursively. Build, vendor, and tooling directories are
// pruned during the walk, and previously merged output files are never
// picked up again as inputs.
//
// Results are absolute paths, deduplicated with first appearance
// winning, in lexical walk order. Merge precedence downstream depends
// only on this order, so the order is deterministic for a given tree but
// carries no further meaning.
//
// Directories that cannot be listed are skipped with a warning; a scan
// never fails because part of the tree is unreadable.
package scan
