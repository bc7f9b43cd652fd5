package model

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestNewTask_Defaults(t *testing.T) {
	task, err := NewTask(map[string]any{
		"name":     "heartbeat",
		"function": "heartbeat_task",
	})
	if err != nil {
		t.Fatalf("NewTask failed: %v", err)
	}

	if task.Description != "heartbeat" {
		t.Errorf("description = %q, want name fallback", task.Description)
	}
	if task.Priority.Band != PriorityNormal || task.Priority.Level != 5 {
		t.Errorf("priority = %+v, want normal/5", task.Priority)
	}
	if task.StackSize == nil || *task.StackSize != DefaultStackSize {
		t.Errorf("stack size = %v, want %d", task.StackSize, DefaultStackSize)
	}
	if task.Enabled == nil || !*task.Enabled {
		t.Error("enabled must default to true")
	}
	if task.CPUAffinity == nil || *task.CPUAffinity != AffinityNone {
		t.Errorf("cpu affinity = %v, want none", task.CPUAffinity)
	}
	if task.PeriodMS != 0 || task.MaxExecutionUS != 0 {
		t.Error("period and max execution must default to 0")
	}
	if task.CreateNative {
		t.Error("create_native must default to false")
	}

	// Required fields have no defaults: absence must stay visible.
	if task.WatchdogTimeoutMS != nil {
		t.Error("watchdog_timeout_ms must stay nil when absent")
	}
	if task.WatchdogAction != nil {
		t.Error("watchdog_action must stay nil when absent")
	}
}

func TestNewTask_ExplicitValues(t *testing.T) {
	task, err := NewTask(map[string]any{
		"name":                "control",
		"function":            "control_loop",
		"period_ms":           10,
		"priority":            "high",
		"stack_size":          8192,
		"enabled":             false,
		"create_native":       true,
		"cpu_affinity":        1,
		"watchdog_timeout_ms": 500,
		"watchdog_action":     "reset_task",
		"max_execution_us":    2000,
	})
	if err != nil {
		t.Fatalf("NewTask failed: %v", err)
	}

	if task.Priority.Band != PriorityHigh || task.Priority.Level != 10 {
		t.Errorf("priority = %+v, want high/10", task.Priority)
	}
	if *task.StackSize != 8192 {
		t.Errorf("stack size = %d, want 8192", *task.StackSize)
	}
	if *task.Enabled {
		t.Error("explicit enabled=false must survive defaulting")
	}
	if *task.CPUAffinity != 1 {
		t.Errorf("cpu affinity = %d, want 1", *task.CPUAffinity)
	}
	if *task.WatchdogTimeoutMS != 500 {
		t.Errorf("watchdog timeout = %d, want 500", *task.WatchdogTimeoutMS)
	}
	if *task.WatchdogAction != WatchdogResetTask {
		t.Errorf("watchdog action = %s, want reset_task", *task.WatchdogAction)
	}
}

func TestNewTask_NumericPriorityBanding(t *testing.T) {
	tests := []struct {
		level     int
		wantBand  PriorityBand
		wantLevel int
	}{
		{0, PriorityIdle, 0},
		{3, PriorityLow, 3},
		{12, PriorityNormal, 12},
		{18, PriorityHigh, 18},
		{25, PriorityCritical, 25},
	}

	for _, tt := range tests {
		task, err := NewTask(map[string]any{
			"name":     "t",
			"function": "f",
			"priority": tt.level,
		})
		if err != nil {
			t.Fatalf("NewTask(priority=%d) failed: %v", tt.level, err)
		}
		if task.Priority.Band != tt.wantBand {
			t.Errorf("priority %d banded to %s, want %s", tt.level, task.Priority.Band, tt.wantBand)
		}
		if task.Priority.Level != tt.wantLevel {
			t.Errorf("priority %d kept level %d, want %d", tt.level, task.Priority.Level, tt.wantLevel)
		}
	}
}

func TestNewTask_UnknownPriorityPreserved(t *testing.T) {
	task, err := NewTask(map[string]any{
		"name":     "t",
		"function": "f",
		"priority": "turbo",
	})
	if err != nil {
		t.Fatalf("NewTask failed: %v", err)
	}
	if task.Priority.Band != PriorityBand("turbo") {
		t.Errorf("unknown priority band = %q, want preserved verbatim", task.Priority.Band)
	}
}

func TestNewTask_CPUAffinityNone(t *testing.T) {
	task, err := NewTask(map[string]any{
		"name":         "t",
		"function":     "f",
		"cpu_affinity": "none",
	})
	if err != nil {
		t.Fatalf("NewTask failed: %v", err)
	}
	if *task.CPUAffinity != AffinityNone {
		t.Errorf("cpu affinity = %d, want none", *task.CPUAffinity)
	}
	if task.CPUAffinity.Pinned() {
		t.Error("none affinity must not be pinned")
	}
}

func TestSubscription_UnmarshalYAML(t *testing.T) {
	var task Task
	doc := `
name: reader
function: reader_task
subscribes_to:
  - telemetry_channel
  - channel: motor_cmd_channel
    depth: 4
    overflow_policy: reject
`
	if err := yaml.Unmarshal([]byte(doc), &task); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if len(task.SubscribesTo) != 2 {
		t.Fatalf("got %d subscriptions, want 2", len(task.SubscribesTo))
	}

	plain := task.SubscribesTo[0]
	if plain.Channel != "telemetry_channel" || plain.Depth != nil || plain.OverflowPolicy != "" {
		t.Errorf("bare subscription = %+v, want channel reference only", plain)
	}

	override := task.SubscribesTo[1]
	if override.Channel != "motor_cmd_channel" {
		t.Errorf("override channel = %q", override.Channel)
	}
	if override.Depth == nil || *override.Depth != 4 {
		t.Errorf("override depth = %v, want 4", override.Depth)
	}
	if override.OverflowPolicy != OverflowReject {
		t.Errorf("override policy = %q, want reject", override.OverflowPolicy)
	}
}

func TestNewMessage_FieldTypeDefault(t *testing.T) {
	msg, err := NewMessage(map[string]any{
		"name": "sensor_reading",
		"fields": []any{
			map[string]any{"name": "value"},
			map[string]any{"name": "flags", "type": "u8"},
		},
	})
	if err != nil {
		t.Fatalf("NewMessage failed: %v", err)
	}

	if msg.Fields[0].Type != TypeU32 {
		t.Errorf("untyped field = %s, want u32 default", msg.Fields[0].Type)
	}
	if msg.Fields[1].Type != TypeU8 {
		t.Errorf("typed field = %s, want u8", msg.Fields[1].Type)
	}
	if got := msg.WireSize(); got != 5 {
		t.Errorf("wire size = %d, want 5", got)
	}
}

func TestNewChannel_Defaults(t *testing.T) {
	ch, err := NewChannel(map[string]any{
		"name":         "telemetry_channel",
		"message_type": "telemetry_msg",
	})
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}

	if *ch.QueueSize != DefaultQueueSize {
		t.Errorf("queue size = %d, want %d", *ch.QueueSize, DefaultQueueSize)
	}
	if *ch.MaxSubscribers != DefaultMaxSubscribers {
		t.Errorf("max subscribers = %d, want %d", *ch.MaxSubscribers, DefaultMaxSubscribers)
	}
	if ch.Priority != MessagePriorityNormal {
		t.Errorf("priority = %s, want normal", ch.Priority)
	}
	if ch.TimestampSource != TimestampProducer {
		t.Errorf("timestamp source = %s, want producer", ch.TimestampSource)
	}
	if ch.OverflowPolicy != OverflowDropOldest {
		t.Errorf("overflow policy = %s, want drop_oldest", ch.OverflowPolicy)
	}
	if len(ch.Flags) != 0 {
		t.Errorf("flags = %v, want empty default", ch.Flags)
	}
}

func TestByteValue_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		want    ByteValue
		wantErr bool
	}{
		{"decimal", "code: 16", 16, false},
		{"yaml hex", "code: 0x10", 16, false},
		{"hex string", `code: "0x10"`, 16, false},
		{"decimal string", `code: "16"`, 16, false},
		{"out of range kept", "code: 300", 300, false},
		{"garbage", `code: "0xZZ"`, 0, true},
		{"mapping", "code: {a: 1}", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out struct {
				Code ByteValue `yaml:"code"`
			}
			err := yaml.Unmarshal([]byte(tt.doc), &out)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			if out.Code != tt.want {
				t.Errorf("code = %d, want %d", out.Code, tt.want)
			}
		})
	}
}

func TestParseByte(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   int
		wantOK bool
	}{
		{"int", 16, 16, true},
		{"zero", 0, 0, true},
		{"max", 255, 255, true},
		{"hex string", "0x7F", 127, true},
		{"decimal string", "42", 42, true},
		{"negative", -1, 0, false},
		{"too large", 256, 0, false},
		{"garbage string", "abc", 0, false},
		{"nil", nil, 0, false},
		{"bool", true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseByte(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ParseByte(%v) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseByte(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewPacketConfig_Defaults(t *testing.T) {
	cfg, err := NewPacketConfig(nil)
	if err != nil {
		t.Fatalf("NewPacketConfig failed: %v", err)
	}

	if len(cfg.Sync) != 2 || cfg.Sync[0] != 0x55 || cfg.Sync[1] != 0xAA {
		t.Errorf("sync = %v, want [0x55 0xAA]", cfg.Sync)
	}
	if cfg.Length16Bit == nil || !*cfg.Length16Bit {
		t.Error("length_16bit must default to true")
	}
	if cfg.MaxPayload == nil || *cfg.MaxPayload != DefaultMaxPayload {
		t.Errorf("max payload = %v, want %d", cfg.MaxPayload, DefaultMaxPayload)
	}
}

func TestNewCommandConfig_Defaults(t *testing.T) {
	cfg, err := NewCommandConfig(nil)
	if err != nil {
		t.Fatalf("NewCommandConfig failed: %v", err)
	}

	if cfg.Namespace != DefaultNamespace {
		t.Errorf("namespace = %q, want %q", cfg.Namespace, DefaultNamespace)
	}
	if *cfg.MaxCommands != DefaultMaxCommands {
		t.Errorf("max commands = %d, want %d", *cfg.MaxCommands, DefaultMaxCommands)
	}
	if cfg.SequentialOpcodes {
		t.Error("sequential_opcodes must default to false")
	}
	if cfg.ErrorHandler != DefaultErrorHandler {
		t.Errorf("error handler = %q, want %q", cfg.ErrorHandler, DefaultErrorHandler)
	}
}

func TestNewMessagingConfig_Defaults(t *testing.T) {
	cfg, err := NewMessagingConfig(nil)
	if err != nil {
		t.Fatalf("NewMessagingConfig failed: %v", err)
	}

	if *cfg.TopicQueuesPerMailbox != 1 {
		t.Errorf("topic queues per mailbox = %d, want 1", *cfg.TopicQueuesPerMailbox)
	}
	if *cfg.HighRatioNum != 1 || *cfg.HighRatioDen != 4 {
		t.Errorf("high ratio = %d/%d, want 1/4", *cfg.HighRatioNum, *cfg.HighRatioDen)
	}
	if !*cfg.NotifyOnEmptyOnly {
		t.Error("notify_on_empty_only must default to true")
	}
}

func TestNewMessagingConfig_PartialOverride(t *testing.T) {
	cfg, err := NewMessagingConfig(map[string]any{
		"high_ratio_den": 2,
	})
	if err != nil {
		t.Fatalf("NewMessagingConfig failed: %v", err)
	}
	if *cfg.HighRatioNum != 1 || *cfg.HighRatioDen != 2 {
		t.Errorf("high ratio = %d/%d, want 1/2", *cfg.HighRatioNum, *cfg.HighRatioDen)
	}
}

func TestNewTask_DecodeError(t *testing.T) {
	_, err := NewTask(map[string]any{
		"name":     "broken",
		"function": "f",
		"priority": []any{"not", "a", "priority"},
	})
	if err == nil {
		t.Fatal("expected decode error for structured priority value")
	}
}
