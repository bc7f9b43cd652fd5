package model

import "fmt"

// Domain identifies one of the three independent configuration domains.
type Domain string

const (
	// DomainTasks is the task/messaging domain: tasks, messages, channels
	// and the messaging root.
	DomainTasks Domain = "tasks"

	// DomainPacket is the packet domain: packet framing root and opcodes.
	DomainPacket Domain = "packet"

	// DomainCommands is the command domain: commands and the command
	// table config root.
	DomainCommands Domain = "commands"
)

// Validate checks if the domain is one of the three known domains.
func (d Domain) Validate() error {
	switch d {
	case DomainTasks, DomainPacket, DomainCommands:
		return nil
	default:
		return fmt.Errorf("invalid domain: %s", d)
	}
}

// MergedFileName returns the reserved filename under which the canonical
// merged document for this domain is mirrored. These filenames are always
// excluded from scanning so that merged output is never re-ingested.
func (d Domain) MergedFileName() string {
	switch d {
	case DomainPacket:
		return "packet_merged.yaml"
	case DomainCommands:
		return "commands_merged.yaml"
	default:
		return "tasks_merged.yaml"
	}
}

// Domains lists the three domains in their fixed processing order.
func Domains() []Domain {
	return []Domain{DomainTasks, DomainPacket, DomainCommands}
}

// MergedFileNames lists every reserved merged-output filename.
func MergedFileNames() []string {
	return []string{
		DomainTasks.MergedFileName(),
		DomainPacket.MergedFileName(),
		DomainCommands.MergedFileName(),
	}
}

// Reserved top-level keys recognized in configuration documents. Keys are
// grouped by the domain they contribute to; any other top-level key is
// ignored by the aggregator.
const (
	// KeyTasks is the list of task records (task/messaging domain).
	KeyTasks = "tasks"

	// KeyMessages is the list of message-type records (task/messaging domain).
	KeyMessages = "messages"

	// KeyChannels is the list of channel records (task/messaging domain).
	KeyChannels = "channels"

	// KeyMessaging is the messaging-root mapping (task/messaging domain).
	KeyMessaging = "messaging"

	// KeyPacket is the packet-root mapping (packet domain).
	KeyPacket = "packet"

	// KeyOpcodes is the list of opcode records (packet domain).
	KeyOpcodes = "opcodes"

	// KeyCommands is the list of command records (command domain).
	KeyCommands = "commands"

	// KeyConfig is the command-config mapping (command domain).
	KeyConfig = "config"
)

// TaskDomain is the fully resolved task/messaging domain after
// aggregation and validation.
type TaskDomain struct {
	// Tasks are the merged task records in first-appearance order.
	Tasks []Task `json:"tasks"`

	// Messages are the merged message-type records in first-appearance order.
	Messages []Message `json:"messages"`

	// Channels are the merged channel records in first-appearance order.
	Channels []Channel `json:"channels"`

	// Messaging is the shallow-merged messaging root.
	Messaging MessagingConfig `json:"messaging"`
}

// PacketDomain is the fully resolved packet domain.
type PacketDomain struct {
	// Packet is the shallow-merged packet framing root.
	Packet PacketConfig `json:"packet"`

	// Opcodes are the merged opcode records in first-appearance order.
	Opcodes []Opcode `json:"opcodes"`
}

// CommandDomain is the fully resolved command domain.
type CommandDomain struct {
	// Commands are the merged command records in first-appearance order.
	Commands []Command `json:"commands"`

	// Config is the shallow-merged command-table config root.
	Config CommandConfig `json:"config"`
}
