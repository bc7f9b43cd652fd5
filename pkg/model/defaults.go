package model

// Defaults applied by the record constructors. Defaulting happens in the
// constructors only; read sites never fall back.
const (
	// DefaultStackSize is the task stack size in bytes.
	DefaultStackSize = 4096

	// DefaultQueueSize is the channel queue depth.
	DefaultQueueSize = 16

	// DefaultMaxSubscribers is the channel subscriber limit.
	DefaultMaxSubscribers = 8

	// PayloadBudget is the serialized size budget shared by every
	// message type in a domain, in bytes.
	PayloadBudget = 64

	// DefaultMaxPayload is the packet payload limit in bytes.
	DefaultMaxPayload = 128

	// DefaultMaxCommands is the dispatcher handler table size.
	DefaultMaxCommands = 16

	// DefaultNamespace is the namespace the command table is generated
	// into.
	DefaultNamespace = "fw::commands"

	// DefaultErrorHandler is the unknown-command handler reference.
	DefaultErrorHandler = "cmd_unknown_command"

	// DefaultTopicQueuesPerMailbox is the per-mailbox topic queue count.
	DefaultTopicQueuesPerMailbox = 1

	// DefaultHighRatioNum is the high/normal split ratio numerator.
	DefaultHighRatioNum = 1

	// DefaultHighRatioDen is the high/normal split ratio denominator.
	DefaultHighRatioDen = 4

	// DefaultNotifyOnEmptyOnly notifies only on empty-to-non-empty
	// transitions.
	DefaultNotifyOnEmptyOnly = true
)

// DefaultSync returns the default frame sync byte sequence.
func DefaultSync() []ByteValue {
	return []ByteValue{0x55, 0xAA}
}
