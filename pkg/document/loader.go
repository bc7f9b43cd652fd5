package document

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Document is one parsed configuration file: its absolute path and its
// top-level mapping.
type Document struct {
	// Path is the file the document was loaded from.
	Path string `json:"path"`

	// Data is the parsed top-level mapping.
	Data map[string]any `json:"data"`
}

// Loader reads configuration files and parses them into documents.
type Loader struct {
	logger zerolog.Logger
}

// NewLoader creates a document loader.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		logger: logger.With().Str("component", "document").Logger(),
	}
}

// Load parses one file into a document. The returned error marks the
// file as contributing nothing; callers treat it as skippable, never
// fatal.
func (l *Loader) Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var root any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	mapping, ok := root.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parsing %s: top level is not a mapping", path)
	}

	return &Document{Path: path, Data: mapping}, nil
}

// LoadAll parses every path in order, skipping files that fail to load.
// Skips are logged at warn level; the returned slice preserves the input
// order of the files that loaded.
func (l *Loader) LoadAll(paths []string) []Document {
	docs := make([]Document, 0, len(paths))
	for _, path := range paths {
		doc, err := l.Load(path)
		if err != nil {
			l.logger.Warn().Err(err).Str("file", path).Msg("Skipping unparseable configuration file")
			continue
		}
		docs = append(docs, *doc)
	}
	return docs
}
