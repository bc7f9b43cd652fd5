package pipeline

import (
	"context"

	"github.com/firmforge/firmforge/pkg/aggregate"
	"github.com/firmforge/firmforge/pkg/document"
	"github.com/firmforge/firmforge/pkg/model"
	"github.com/firmforge/firmforge/pkg/topics"
	"github.com/firmforge/firmforge/pkg/validate"
)

// Scanner discovers configuration files eligible for aggregation.
type Scanner interface {
	// Scan returns the ordered, deduplicated absolute paths of all
	// eligible configuration files. The only error it returns is
	// context cancellation.
	Scan(ctx context.Context) ([]string, error)
}

// Loader parses configuration files into documents.
type Loader interface {
	// LoadAll parses every path in order, skipping files that fail to
	// load. The returned slice preserves the input order of the files
	// that loaded.
	LoadAll(paths []string) []document.Document
}

// Aggregator merges parsed documents into the three canonical domain
// documents.
type Aggregator interface {
	// Merge folds the documents in order into one Result. Later files
	// win field-by-field; numeric identity fields evict earlier holders.
	Merge(docs []document.Document) *aggregate.Result
}

// Validator checks canonical domain documents and resolves them into
// typed domain models.
type Validator interface {
	// ValidateTasks checks the task/messaging domain. On success it
	// returns the resolved domain with defaults applied; on failure it
	// returns the complete ordered violation list and no domain.
	ValidateTasks(ctx context.Context, doc *aggregate.TaskDoc) (*model.TaskDomain, validate.Result)

	// ValidatePacket checks the packet domain.
	ValidatePacket(ctx context.Context, doc *aggregate.PacketDoc) (*model.PacketDomain, validate.Result)

	// ValidateCommands checks the command domain.
	ValidateCommands(ctx context.Context, doc *aggregate.CommandDoc) (*model.CommandDomain, validate.Result)
}

// Allocator assigns stable topic IDs to channel names.
type Allocator interface {
	// Allocate assigns an ID to every name in order. It fails only when
	// the identifier band is exhausted.
	Allocate(names []string) (*topics.Table, error)
}

// Emitter renders resolved domains into generated C++ headers.
type Emitter interface {
	// EmitTasks renders the task and messaging headers.
	EmitTasks(ctx context.Context, domain *model.TaskDomain, table *topics.Table) ([]string, error)

	// EmitPacket renders the packet configuration header.
	EmitPacket(ctx context.Context, domain *model.PacketDomain) ([]string, error)

	// EmitCommands renders the command table header.
	EmitCommands(ctx context.Context, domain *model.CommandDomain) ([]string, error)
}
