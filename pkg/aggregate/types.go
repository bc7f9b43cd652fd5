package aggregate

import (
	"github.com/firmforge/firmforge/pkg/model"
)

// Record is one named configuration record in its raw, undecoded form.
// Fields holds the complete mapping as authored, including the name key.
type Record struct {
	// Name is the record's declared name, used as its merge identity.
	Name string `json:"name"`

	// Fields is the raw mapping of the record.
	Fields map[string]any `json:"fields"`
}

// TaskDoc is the canonical task/messaging domain document.
type TaskDoc struct {
	// Tasks are the merged task records in first-appearance order.
	Tasks []Record `json:"tasks,omitempty"`

	// Messages are the merged message-type records.
	Messages []Record `json:"messages,omitempty"`

	// Channels are the merged channel records.
	Channels []Record `json:"channels,omitempty"`

	// Messaging is the shallow-merged messaging root mapping.
	Messaging map[string]any `json:"messaging,omitempty"`

	// Found reports whether any file contributed content to the domain.
	Found bool `json:"found"`
}

// AsMap returns the document as a plain mapping under the reserved
// top-level keys. Empty sections are omitted.
func (d *TaskDoc) AsMap() map[string]any {
	out := make(map[string]any, 4)
	if len(d.Tasks) > 0 {
		out[model.KeyTasks] = recordList(d.Tasks)
	}
	if len(d.Messages) > 0 {
		out[model.KeyMessages] = recordList(d.Messages)
	}
	if len(d.Channels) > 0 {
		out[model.KeyChannels] = recordList(d.Channels)
	}
	if len(d.Messaging) > 0 {
		out[model.KeyMessaging] = d.Messaging
	}
	return out
}

// PacketDoc is the canonical packet domain document.
type PacketDoc struct {
	// Packet is the shallow-merged packet root mapping.
	Packet map[string]any `json:"packet,omitempty"`

	// Opcodes are the merged opcode records in first-appearance order.
	Opcodes []Record `json:"opcodes,omitempty"`

	// Found reports whether any file contributed content to the domain.
	Found bool `json:"found"`
}

// AsMap returns the document as a plain mapping under the reserved
// top-level keys. Empty sections are omitted.
func (d *PacketDoc) AsMap() map[string]any {
	out := make(map[string]any, 2)
	if len(d.Packet) > 0 {
		out[model.KeyPacket] = d.Packet
	}
	if len(d.Opcodes) > 0 {
		out[model.KeyOpcodes] = recordList(d.Opcodes)
	}
	return out
}

// CommandDoc is the canonical command domain document.
type CommandDoc struct {
	// Commands are the merged command records in first-appearance order.
	Commands []Record `json:"commands,omitempty"`

	// Config is the shallow-merged command-config root mapping.
	Config map[string]any `json:"config,omitempty"`

	// Found reports whether any file contributed content to the domain.
	Found bool `json:"found"`
}

// AsMap returns the document as a plain mapping under the reserved
// top-level keys. Empty sections are omitted.
func (d *CommandDoc) AsMap() map[string]any {
	out := make(map[string]any, 2)
	if len(d.Commands) > 0 {
		out[model.KeyCommands] = recordList(d.Commands)
	}
	if len(d.Config) > 0 {
		out[model.KeyConfig] = d.Config
	}
	return out
}

// Result holds the three canonical domain documents of one merge pass.
type Result struct {
	// Tasks is the task/messaging domain.
	Tasks TaskDoc `json:"tasks"`

	// Packet is the packet domain.
	Packet PacketDoc `json:"packet"`

	// Commands is the command domain.
	Commands CommandDoc `json:"commands"`
}

// recordList flattens records back to their raw mappings in order.
func recordList(records []Record) []any {
	out := make([]any, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Fields)
	}
	return out
}
