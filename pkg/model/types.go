package model

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// CPUAffinity is an optional CPU core pin for a task. AffinityNone (-1)
// means the task may run on any core. Configuration may write a core
// index or the string "none".
type CPUAffinity int

// AffinityNone leaves the task unpinned.
const AffinityNone CPUAffinity = -1

// Pinned returns true when the task is pinned to a specific core.
func (a CPUAffinity) Pinned() bool {
	return a >= 0
}

// UnmarshalYAML decodes a core index or the string "none".
func (a *CPUAffinity) UnmarshalYAML(value *yaml.Node) error {
	var n int
	if err := value.Decode(&n); err == nil {
		*a = CPUAffinity(n)
		return nil
	}
	var s string
	if err := value.Decode(&s); err == nil && strings.EqualFold(s, "none") {
		*a = AffinityNone
		return nil
	}
	return fmt.Errorf("cpu_affinity must be a core index or \"none\"")
}

// Subscription is one entry in a task's subscription list: a channel
// reference with optional per-subscription overrides. Configuration may
// write a bare channel name or a mapping.
type Subscription struct {
	// Channel is the referenced channel name.
	Channel string `yaml:"channel" json:"channel" validate:"required,identifier"`

	// Depth overrides the subscriber's mailbox depth for this channel.
	Depth *int `yaml:"depth,omitempty" json:"depth,omitempty"`

	// OverflowPolicy overrides the channel's overflow policy for this
	// subscriber.
	OverflowPolicy OverflowPolicy `yaml:"overflow_policy,omitempty" json:"overflow_policy,omitempty" validate:"omitempty,oneof=drop_oldest reject"`
}

// UnmarshalYAML decodes either a bare channel name or a subscription
// mapping.
func (s *Subscription) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var name string
		if err := value.Decode(&name); err != nil {
			return err
		}
		s.Channel = name
		return nil
	}
	type plain Subscription
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*s = Subscription(p)
	return nil
}

// Task is one task record from the task/messaging domain.
type Task struct {
	// Name uniquely identifies the task.
	Name string `yaml:"name" json:"name" validate:"required,identifier"`

	// Function is the task entry point reference.
	Function string `yaml:"function" json:"function" validate:"required,identifier"`

	// Description is the human-readable description. Defaults to Name.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// PeriodMS is the execution period in milliseconds. Zero means the
	// task is not periodic.
	PeriodMS int `yaml:"period_ms,omitempty" json:"period_ms"`

	// Priority is the scheduling priority. Defaults to normal.
	Priority TaskPriority `yaml:"priority,omitempty" json:"priority"`

	// StackSize is the stack size in bytes. Defaults to 4096.
	StackSize *int `yaml:"stack_size,omitempty" json:"stack_size,omitempty"`

	// Enabled controls whether the task is started. Defaults to true.
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// CreateNative creates the task as a native RTOS thread.
	CreateNative bool `yaml:"create_native,omitempty" json:"create_native,omitempty"`

	// CPUAffinity optionally pins the task to a core. Defaults to none.
	CPUAffinity *CPUAffinity `yaml:"cpu_affinity,omitempty" json:"cpu_affinity,omitempty"`

	// WatchdogTimeoutMS is the watchdog deadline in milliseconds.
	// Required; absence is a validation violation, never a default.
	WatchdogTimeoutMS *int `yaml:"watchdog_timeout_ms,omitempty" json:"watchdog_timeout_ms,omitempty" validate:"required"`

	// WatchdogAction is the reaction to a missed deadline. Required.
	WatchdogAction *WatchdogAction `yaml:"watchdog_action,omitempty" json:"watchdog_action,omitempty" validate:"required,oneof=none log_warning reset_task system_reset"`

	// MaxExecutionUS bounds a single execution in microseconds. Zero
	// means no limit.
	MaxExecutionUS int `yaml:"max_execution_us,omitempty" json:"max_execution_us,omitempty"`

	// SubscribesTo lists the channels the task consumes, in order.
	SubscribesTo []Subscription `yaml:"subscribes_to,omitempty" json:"subscribes_to,omitempty" validate:"omitempty,dive"`

	// PublishesTo lists the channels the task produces to, in order.
	PublishesTo []string `yaml:"publishes_to,omitempty" json:"publishes_to,omitempty" validate:"omitempty,dive,identifier"`
}

// MessageField is one typed field of a message type.
type MessageField struct {
	// Name is the field name.
	Name string `yaml:"name" json:"name" validate:"required,identifier"`

	// Type is the primitive field type. Defaults to u32.
	Type FieldType `yaml:"type,omitempty" json:"type" validate:"omitempty,oneof=u8 u16 u32 u64 i8 i16 i32 i64 f32 f64 bool"`
}

// Message is one message-type record from the task/messaging domain.
type Message struct {
	// Name uniquely identifies the message type.
	Name string `yaml:"name" json:"name" validate:"required,identifier"`

	// Description is the human-readable description. Defaults to Name.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Fields are the typed fields, in declaration order.
	Fields []MessageField `yaml:"fields,omitempty" json:"fields,omitempty" validate:"omitempty,dive"`
}

// WireSize returns the serialized size of the message in bytes: the sum
// of its field sizes, with no padding.
func (m Message) WireSize() int {
	size := 0
	for _, f := range m.Fields {
		size += f.Type.Size()
	}
	return size
}

// Channel is one channel record from the task/messaging domain.
type Channel struct {
	// Name uniquely identifies the channel.
	Name string `yaml:"name" json:"name" validate:"required,identifier"`

	// MessageType references the message type carried by the channel.
	MessageType string `yaml:"message_type" json:"message_type" validate:"required,identifier"`

	// QueueSize is the queue depth. Positive; defaults to 16.
	QueueSize *int `yaml:"queue_size,omitempty" json:"queue_size,omitempty"`

	// MaxSubscribers bounds the subscriber count. Positive; defaults to 8.
	MaxSubscribers *int `yaml:"max_subscribers,omitempty" json:"max_subscribers,omitempty"`

	// Priority is the default delivery priority. Defaults to normal.
	Priority MessagePriority `yaml:"priority,omitempty" json:"priority,omitempty" validate:"omitempty,oneof=low normal high critical"`

	// Flags is the default flag set for messages on the channel.
	Flags []MessageFlag `yaml:"flags,omitempty" json:"flags,omitempty" validate:"omitempty,dive,oneof=none requires_ack broadcast urgent persistent"`

	// TimestampSource selects who stamps messages. Defaults to producer.
	TimestampSource TimestampSource `yaml:"timestamp_source,omitempty" json:"timestamp_source,omitempty" validate:"omitempty,oneof=producer broker"`

	// OverflowPolicy selects the full-queue behavior. Defaults to
	// drop_oldest.
	OverflowPolicy OverflowPolicy `yaml:"overflow_policy,omitempty" json:"overflow_policy,omitempty" validate:"omitempty,oneof=drop_oldest reject"`
}

// MessagingConfig is the shallow-merged messaging root: global broker
// tunables shared by the whole task/messaging domain.
type MessagingConfig struct {
	// TopicQueuesPerMailbox is the per-mailbox topic queue count.
	// Defaults to 1.
	TopicQueuesPerMailbox *int `yaml:"topic_queues_per_mailbox,omitempty" json:"topic_queues_per_mailbox,omitempty"`

	// HighRatioNum is the numerator of the high/normal split ratio.
	// Defaults to 1.
	HighRatioNum *int `yaml:"high_ratio_num,omitempty" json:"high_ratio_num,omitempty"`

	// HighRatioDen is the denominator of the high/normal split ratio.
	// Defaults to 4.
	HighRatioDen *int `yaml:"high_ratio_den,omitempty" json:"high_ratio_den,omitempty"`

	// NotifyOnEmptyOnly notifies subscribers only on empty-to-non-empty
	// transitions. Defaults to true.
	NotifyOnEmptyOnly *bool `yaml:"notify_on_empty_only,omitempty" json:"notify_on_empty_only,omitempty"`
}

// Opcode is one opcode record from the packet domain. Names are unique;
// numeric codes are unique as a secondary constraint.
type Opcode struct {
	// Name uniquely identifies the opcode.
	Name string `yaml:"name" json:"name" validate:"required,identifier"`

	// Code is the numeric wire code, 0-255.
	Code *ByteValue `yaml:"code,omitempty" json:"code,omitempty" validate:"required,gte=0,lte=255"`
}

// PacketConfig is the shallow-merged packet root: wire framing tunables.
type PacketConfig struct {
	// Sync is the frame sync byte sequence. Defaults to [0x55, 0xAA].
	Sync []ByteValue `yaml:"sync,omitempty" json:"sync,omitempty"`

	// Length16Bit selects a 16-bit length field. Defaults to true.
	Length16Bit *bool `yaml:"length_16bit,omitempty" json:"length_16bit,omitempty"`

	// MaxPayload is the maximum payload size. Positive; defaults to 128.
	MaxPayload *int `yaml:"max_payload,omitempty" json:"max_payload,omitempty"`
}

// CommandParam is one typed parameter of a command.
type CommandParam struct {
	// Name is the parameter name.
	Name string `yaml:"name" json:"name" validate:"required,identifier"`

	// Type is the primitive parameter type. A u8[] parameter implies a
	// companion <name>_length field in the generated parameter struct.
	Type FieldType `yaml:"type" json:"type" validate:"required,oneof=u8 u16 u32 u64 i8 i16 i32 i64 f32 f64 bool u8[]"`
}

// Command is one command record from the command domain. Names are
// unique; numeric opcodes are unique as a secondary constraint.
type Command struct {
	// Name uniquely identifies the command.
	Name string `yaml:"name" json:"name" validate:"required,identifier"`

	// Function is the handler function reference.
	Function string `yaml:"function" json:"function" validate:"required,identifier"`

	// Opcode is the numeric wire opcode, 0-255.
	Opcode *ByteValue `yaml:"opcode,omitempty" json:"opcode,omitempty" validate:"required,gte=0,lte=255"`

	// Description is the human-readable description. Defaults to Name.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Parameters are the typed parameters, in declaration order.
	Parameters []CommandParam `yaml:"parameters,omitempty" json:"parameters,omitempty" validate:"omitempty,dive"`
}

// CommandConfig is the shallow-merged command-table root.
type CommandConfig struct {
	// Namespace is the namespace the command table is generated into.
	// Defaults to fw::commands.
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty" validate:"omitempty,identifier"`

	// MaxCommands bounds the dispatcher handler table. Positive;
	// defaults to 16.
	MaxCommands *int `yaml:"max_commands,omitempty" json:"max_commands,omitempty"`

	// SequentialOpcodes declares that opcodes are assigned sequentially.
	SequentialOpcodes bool `yaml:"sequential_opcodes,omitempty" json:"sequential_opcodes,omitempty"`

	// ErrorHandler is the unknown-command handler reference. Defaults
	// to cmd_unknown_command.
	ErrorHandler string `yaml:"error_handler,omitempty" json:"error_handler,omitempty" validate:"omitempty,identifier"`
}
