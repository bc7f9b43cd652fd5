package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// decode round-trips a raw mapping through YAML into a typed record so
// that the record types' yaml tags and custom unmarshalers apply.
func decode(raw map[string]any, out any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	return yaml.Unmarshal(data, out)
}

// NewTask decodes one raw task record and applies the task defaults.
// The watchdog fields stay nil when absent; they have no default.
func NewTask(raw map[string]any) (*Task, error) {
	var t Task
	if err := decode(raw, &t); err != nil {
		return nil, err
	}
	if t.Description == "" {
		t.Description = t.Name
	}
	if t.Priority.Band == "" {
		t.Priority = TaskPriority{Band: PriorityNormal, Level: PriorityNormal.Level()}
	}
	if t.StackSize == nil {
		t.StackSize = intPtr(DefaultStackSize)
	}
	if t.Enabled == nil {
		t.Enabled = boolPtr(true)
	}
	if t.CPUAffinity == nil {
		affinity := AffinityNone
		t.CPUAffinity = &affinity
	}
	return &t, nil
}

// NewMessage decodes one raw message-type record and applies defaults:
// the description falls back to the name and untyped fields default to u32.
func NewMessage(raw map[string]any) (*Message, error) {
	var m Message
	if err := decode(raw, &m); err != nil {
		return nil, err
	}
	if m.Description == "" {
		m.Description = m.Name
	}
	for i := range m.Fields {
		if m.Fields[i].Type == "" {
			m.Fields[i].Type = DefaultFieldType
		}
	}
	return &m, nil
}

// NewChannel decodes one raw channel record and applies the channel
// defaults.
func NewChannel(raw map[string]any) (*Channel, error) {
	var c Channel
	if err := decode(raw, &c); err != nil {
		return nil, err
	}
	if c.QueueSize == nil {
		c.QueueSize = intPtr(DefaultQueueSize)
	}
	if c.MaxSubscribers == nil {
		c.MaxSubscribers = intPtr(DefaultMaxSubscribers)
	}
	if c.Priority == "" {
		c.Priority = MessagePriorityNormal
	}
	if c.TimestampSource == "" {
		c.TimestampSource = TimestampProducer
	}
	if c.OverflowPolicy == "" {
		c.OverflowPolicy = OverflowDropOldest
	}
	return &c, nil
}

// NewMessagingConfig decodes the merged messaging root and applies the
// broker tunable defaults. A nil root yields the full default config.
func NewMessagingConfig(root map[string]any) (*MessagingConfig, error) {
	var m MessagingConfig
	if err := decode(root, &m); err != nil {
		return nil, err
	}
	if m.TopicQueuesPerMailbox == nil {
		m.TopicQueuesPerMailbox = intPtr(DefaultTopicQueuesPerMailbox)
	}
	if m.HighRatioNum == nil {
		m.HighRatioNum = intPtr(DefaultHighRatioNum)
	}
	if m.HighRatioDen == nil {
		m.HighRatioDen = intPtr(DefaultHighRatioDen)
	}
	if m.NotifyOnEmptyOnly == nil {
		m.NotifyOnEmptyOnly = boolPtr(DefaultNotifyOnEmptyOnly)
	}
	return &m, nil
}

// NewOpcode decodes one raw opcode record.
func NewOpcode(raw map[string]any) (*Opcode, error) {
	var o Opcode
	if err := decode(raw, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// NewPacketConfig decodes the merged packet root and applies the framing
// defaults. A nil root yields the full default config.
func NewPacketConfig(root map[string]any) (*PacketConfig, error) {
	var p PacketConfig
	if err := decode(root, &p); err != nil {
		return nil, err
	}
	if p.Sync == nil {
		p.Sync = DefaultSync()
	}
	if p.Length16Bit == nil {
		p.Length16Bit = boolPtr(true)
	}
	if p.MaxPayload == nil {
		p.MaxPayload = intPtr(DefaultMaxPayload)
	}
	return &p, nil
}

// NewCommand decodes one raw command record; the description falls back
// to the name.
func NewCommand(raw map[string]any) (*Command, error) {
	var c Command
	if err := decode(raw, &c); err != nil {
		return nil, err
	}
	if c.Description == "" {
		c.Description = c.Name
	}
	return &c, nil
}

// NewCommandConfig decodes the merged command-table root and applies its
// defaults. A nil root yields the full default config.
func NewCommandConfig(root map[string]any) (*CommandConfig, error) {
	var c CommandConfig
	if err := decode(root, &c); err != nil {
		return nil, err
	}
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.MaxCommands == nil {
		c.MaxCommands = intPtr(DefaultMaxCommands)
	}
	if c.ErrorHandler == "" {
		c.ErrorHandler = DefaultErrorHandler
	}
	return &c, nil
}

func intPtr(v int) *int {
	return &v
}

func boolPtr(v bool) *bool {
	return &v
}
