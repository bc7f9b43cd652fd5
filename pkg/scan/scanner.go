package scan

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/firmforge/firmforge/pkg/model"
)

// DefaultWorkDirName is the reserved working directory used to stage
// merged output. It is always pruned from scans.
const DefaultWorkDirName = ".forge"

// configDirNames are conventional configuration directories searched
// recursively below the project root.
var configDirNames = []string{"config", "configs", "conf", "cfg"}

// deniedDirNames are build, vendor, and tooling directories pruned
// during recursive walks.
var deniedDirNames = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	".pio":         true,
	".platformio":  true,
	".vscode":      true,
	".idea":        true,
	"node_modules": true,
	"vendor":       true,
	"build":        true,
	"cache":        true,
	"__pycache__":  true,
}

// Options configures a scan.
type Options struct {
	// Root is the project root directory.
	Root string `json:"root" validate:"required"`

	// ExtraRoots are additional directories searched recursively.
	ExtraRoots []string `json:"extra_roots,omitempty"`

	// WorkDirName overrides the reserved working directory name that is
	// pruned from scans. Defaults to DefaultWorkDirName.
	WorkDirName string `json:"work_dir_name,omitempty"`
}

// Scanner discovers configuration files eligible for aggregation.
type Scanner struct {
	opts   Options
	merged map[string]bool
	logger zerolog.Logger
}

// NewScanner creates a scanner for the given options.
func NewScanner(opts Options, logger zerolog.Logger) *Scanner {
	if opts.WorkDirName == "" {
		opts.WorkDirName = DefaultWorkDirName
	}
	merged := make(map[string]bool, len(model.Domains()))
	for _, name := range model.MergedFileNames() {
		merged[name] = true
	}
	return &Scanner{
		opts:   opts,
		merged: merged,
		logger: logger.With().Str("component", "scan").Logger(),
	}
}

// Scan returns the ordered, deduplicated absolute paths of all eligible
// configuration files. The only error it returns is context
// cancellation; unreadable directories are logged and skipped.
func (s *Scanner) Scan(ctx context.Context) ([]string, error) {
	var (
		paths []string
		seen  = make(map[string]bool)
	)

	add := func(path string) {
		abs, err := filepath.Abs(path)
		if err != nil {
			s.logger.Warn().Err(err).Str("file", path).Msg("Skipping file with unresolvable path")
			return
		}
		if seen[abs] {
			return
		}
		seen[abs] = true
		paths = append(paths, abs)
	}

	if err := s.scanTopLevel(ctx, s.opts.Root, add); err != nil {
		return nil, err
	}
	for _, name := range configDirNames {
		dir := filepath.Join(s.opts.Root, name)
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		if err := s.walk(ctx, dir, add); err != nil {
			return nil, err
		}
	}
	for _, dir := range s.opts.ExtraRoots {
		if err := s.walk(ctx, dir, add); err != nil {
			return nil, err
		}
	}

	s.logger.Debug().Int("files", len(paths)).Msg("Scan complete")
	return paths, nil
}

// scanTopLevel collects eligible files directly under dir without
// descending into subdirectories.
func (s *Scanner) scanTopLevel(ctx context.Context, dir string, add func(string)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Warn().Err(err).Str("dir", dir).Msg("Skipping unlistable directory")
		return nil
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if s.eligible(entry.Name()) {
			add(filepath.Join(dir, entry.Name()))
		}
	}
	return nil
}

// walk collects eligible files under dir recursively, pruning denied
// directories.
func (s *Scanner) walk(ctx context.Context, dir string, add func(string)) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("dir", path).Msg("Skipping unlistable directory")
			return nil
		}
		if d.IsDir() {
			if path != dir && s.pruned(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if s.eligible(d.Name()) {
			add(path)
		}
		return nil
	})
}

// pruned reports whether a directory name is excluded from walks.
func (s *Scanner) pruned(name string) bool {
	return deniedDirNames[name] || name == s.opts.WorkDirName
}

// eligible reports whether a file name is a candidate configuration
// file. Previously merged outputs are never eligible.
func (s *Scanner) eligible(name string) bool {
	if s.merged[name] {
		return false
	}
	switch filepath.Ext(name) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
