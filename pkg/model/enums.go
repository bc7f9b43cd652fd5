package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// PriorityBand represents a task scheduling priority band.
type PriorityBand string

const (
	// PriorityIdle runs only when nothing else is runnable.
	PriorityIdle PriorityBand = "idle"

	// PriorityLow is background work.
	PriorityLow PriorityBand = "low"

	// PriorityNormal is the default band for periodic tasks.
	PriorityNormal PriorityBand = "normal"

	// PriorityHigh is latency-sensitive work.
	PriorityHigh PriorityBand = "high"

	// PriorityCritical preempts everything else.
	PriorityCritical PriorityBand = "critical"
)

// Validate checks if the priority band is valid.
func (b PriorityBand) Validate() error {
	switch b {
	case PriorityIdle, PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return nil
	default:
		return fmt.Errorf("invalid priority: %s", b)
	}
}

// Level returns the RTOS numeric priority conventionally associated with
// the band: idle=0, low=1, normal=5, high=10, critical=15.
func (b PriorityBand) Level() int {
	switch b {
	case PriorityIdle:
		return 0
	case PriorityLow:
		return 1
	case PriorityHigh:
		return 10
	case PriorityCritical:
		return 15
	default:
		return 5
	}
}

// BandOfLevel maps an explicit numeric priority level into a band:
// 0 is idle, 1-5 low, 6-15 normal, 16-20 high, above 20 critical.
func BandOfLevel(level int) PriorityBand {
	switch {
	case level == 0:
		return PriorityIdle
	case level <= 5:
		return PriorityLow
	case level <= 15:
		return PriorityNormal
	case level <= 20:
		return PriorityHigh
	default:
		return PriorityCritical
	}
}

// TaskPriority is a task's scheduling priority: the enumerated band plus
// the RTOS-level numeric priority it resolves to. Configuration may
// declare either a band name or an explicit numeric level; a numeric
// level keeps its exact value and is banded deterministically.
type TaskPriority struct {
	// Band is the enumerated priority band.
	Band PriorityBand `json:"band"`

	// Level is the RTOS numeric priority.
	Level int `json:"level"`
}

// UnmarshalYAML decodes a priority from either a band name or an integer
// level. Unrecognized band names are preserved verbatim for the validator.
func (p *TaskPriority) UnmarshalYAML(value *yaml.Node) error {
	var level int
	if err := value.Decode(&level); err == nil {
		p.Band = BandOfLevel(level)
		p.Level = level
		return nil
	}
	var band string
	if err := value.Decode(&band); err != nil {
		return fmt.Errorf("priority must be a band name or integer level")
	}
	p.Band = PriorityBand(band)
	p.Level = p.Band.Level()
	return nil
}

// WatchdogAction represents what the watchdog does when a task misses
// its deadline.
type WatchdogAction string

const (
	// WatchdogNone disables any reaction.
	WatchdogNone WatchdogAction = "none"

	// WatchdogLogWarning logs and continues.
	WatchdogLogWarning WatchdogAction = "log_warning"

	// WatchdogResetTask restarts the offending task.
	WatchdogResetTask WatchdogAction = "reset_task"

	// WatchdogSystemReset resets the whole system.
	WatchdogSystemReset WatchdogAction = "system_reset"
)

// Validate checks if the watchdog action is valid.
func (a WatchdogAction) Validate() error {
	switch a {
	case WatchdogNone, WatchdogLogWarning, WatchdogResetTask, WatchdogSystemReset:
		return nil
	default:
		return fmt.Errorf("invalid watchdog action: %s", a)
	}
}

// MessagePriority represents the delivery priority of messages on a channel.
type MessagePriority string

const (
	// MessagePriorityLow is background delivery.
	MessagePriorityLow MessagePriority = "low"

	// MessagePriorityNormal is the default delivery priority.
	MessagePriorityNormal MessagePriority = "normal"

	// MessagePriorityHigh is expedited delivery.
	MessagePriorityHigh MessagePriority = "high"

	// MessagePriorityCritical bypasses normal queueing.
	MessagePriorityCritical MessagePriority = "critical"
)

// Validate checks if the message priority is valid.
func (p MessagePriority) Validate() error {
	switch p {
	case MessagePriorityLow, MessagePriorityNormal, MessagePriorityHigh, MessagePriorityCritical:
		return nil
	default:
		return fmt.Errorf("invalid message priority: %s", p)
	}
}

// MessageFlag represents a per-message delivery flag.
type MessageFlag string

const (
	// FlagNone carries no special handling.
	FlagNone MessageFlag = "none"

	// FlagRequiresAck requires consumer acknowledgement.
	FlagRequiresAck MessageFlag = "requires_ack"

	// FlagBroadcast delivers to every subscriber mailbox.
	FlagBroadcast MessageFlag = "broadcast"

	// FlagUrgent jumps queue ordering within a priority.
	FlagUrgent MessageFlag = "urgent"

	// FlagPersistent survives queue overflow policies.
	FlagPersistent MessageFlag = "persistent"
)

// Validate checks if the message flag is valid.
func (f MessageFlag) Validate() error {
	switch f {
	case FlagNone, FlagRequiresAck, FlagBroadcast, FlagUrgent, FlagPersistent:
		return nil
	default:
		return fmt.Errorf("invalid message flag: %s", f)
	}
}

// Bit returns the wire bit for the flag.
func (f MessageFlag) Bit() uint8 {
	switch f {
	case FlagRequiresAck:
		return 0x01
	case FlagBroadcast:
		return 0x02
	case FlagUrgent:
		return 0x04
	case FlagPersistent:
		return 0x08
	default:
		return 0x00
	}
}

// FlagMask combines a flag set into its wire bitmask.
func FlagMask(flags []MessageFlag) uint8 {
	var mask uint8
	for _, f := range flags {
		mask |= f.Bit()
	}
	return mask
}

// TimestampSource represents who stamps a message's timestamp.
type TimestampSource string

const (
	// TimestampProducer stamps at publish time.
	TimestampProducer TimestampSource = "producer"

	// TimestampBroker stamps at enqueue time.
	TimestampBroker TimestampSource = "broker"
)

// Validate checks if the timestamp source is valid.
func (s TimestampSource) Validate() error {
	switch s {
	case TimestampProducer, TimestampBroker:
		return nil
	default:
		return fmt.Errorf("invalid timestamp source: %s", s)
	}
}

// OverflowPolicy represents what happens when a queue is full.
type OverflowPolicy string

const (
	// OverflowDropOldest evicts the oldest queued message.
	OverflowDropOldest OverflowPolicy = "drop_oldest"

	// OverflowReject refuses the incoming message.
	OverflowReject OverflowPolicy = "reject"
)

// Validate checks if the overflow policy is valid.
func (p OverflowPolicy) Validate() error {
	switch p {
	case OverflowDropOldest, OverflowReject:
		return nil
	default:
		return fmt.Errorf("invalid overflow policy: %s", p)
	}
}
