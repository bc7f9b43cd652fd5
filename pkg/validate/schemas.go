package validate

import (
	"context"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/firmforge/firmforge/pkg/model"
)

// SchemaRegistry manages CUE schemas for document validation.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	ctx := cuecontext.New()
	sr := &SchemaRegistry{
		ctx:     ctx,
		schemas: make(map[string]cue.Value),
	}

	// Register built-in schemas
	sr.registerBuiltInSchemas()

	return sr
}

// registerBuiltInSchemas registers the schema of each canonical domain
// document.
func (sr *SchemaRegistry) registerBuiltInSchemas() {
	sr.RegisterSchema(string(model.DomainTasks), builtinTasksSchema)
	sr.RegisterSchema(string(model.DomainPacket), builtinPacketSchema)
	sr.RegisterSchema(string(model.DomainCommands), builtinCommandsSchema)
}

// RegisterSchema registers a CUE schema with the given name.
func (sr *SchemaRegistry) RegisterSchema(name, schema string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(schema)
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	sr.schemas[name] = val
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// ValidateAgainstSchema validates data against a named schema. The
// returned error carries the individual CUE findings; callers explode it
// with schemaViolations.
func (sr *SchemaRegistry) ValidateAgainstSchema(ctx context.Context, schemaName string, data any) error {
	schema, ok := sr.GetSchema(schemaName)
	if !ok {
		return fmt.Errorf("schema %s not found", schemaName)
	}

	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	unified := schema.Unify(dataVal)
	return unified.Validate(cue.Concrete(true))
}

// ListSchemas returns all registered schema names.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	return names
}

// ValidateTaskDomain validates a task/messaging canonical document.
func (sr *SchemaRegistry) ValidateTaskDomain(ctx context.Context, doc map[string]any) error {
	return sr.ValidateAgainstSchema(ctx, string(model.DomainTasks), doc)
}

// ValidatePacketDomain validates a packet canonical document.
func (sr *SchemaRegistry) ValidatePacketDomain(ctx context.Context, doc map[string]any) error {
	return sr.ValidateAgainstSchema(ctx, string(model.DomainPacket), doc)
}

// ValidateCommandDomain validates a command canonical document.
func (sr *SchemaRegistry) ValidateCommandDomain(ctx context.Context, doc map[string]any) error {
	return sr.ValidateAgainstSchema(ctx, string(model.DomainCommands), doc)
}

// Built-in schema definitions. Record fields stay open here: per-record
// constraints are enforced by struct validation, which can attribute a
// finding to the record's name.

const builtinTasksSchema = `
// Task/messaging domain canonical document
tasks?: [...{...}]
messages?: [...{...}]
channels?: [...{...}]

// Global broker tunables
messaging?: {
	// Topic queues backing each mailbox
	topic_queues_per_mailbox?: int & >0

	// High/normal bandwidth split ratio
	high_ratio_num?: int & >0
	high_ratio_den?: int & >0

	// Notify subscribers only on empty to non-empty transitions
	notify_on_empty_only?: bool
}
`

const builtinPacketSchema = `
// A single wire byte: an integer or a short hex string
#Byte: int & >=0 & <=255 | string & =~"^0[xX][0-9a-fA-F]{1,2}$"

// Packet domain canonical document
opcodes?: [...{...}]

// Wire framing
packet?: {
	// Start-of-frame sync sequence; at least one byte
	sync?: [#Byte, ...#Byte]

	// Whether the length field is 16 bits wide
	length_16bit?: bool

	// Maximum payload size in bytes
	max_payload?: int & >0
}
`

const builtinCommandsSchema = `
// Command domain canonical document
commands?: [...{...}]

// Command-table generation settings
config?: {
	// Namespace the table is generated into
	namespace?: string

	// Handler table capacity
	max_commands?: int & >0

	// Opcodes are assigned sequentially
	sequential_opcodes?: bool

	// Unknown-opcode handler reference
	error_handler?: string
}
`
