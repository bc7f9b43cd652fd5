package validate

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/firmforge/firmforge/pkg/aggregate"
	"github.com/firmforge/firmforge/pkg/document"
	"github.com/firmforge/firmforge/pkg/model"
)

func mergeYAML(t *testing.T, content string) *aggregate.Result {
	t.Helper()
	var data map[string]any
	if err := yaml.Unmarshal([]byte(content), &data); err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	docs := []document.Document{{Path: "test.yaml", Data: data}}
	return aggregate.NewAggregator(zerolog.Nop()).Merge(docs)
}

func hasViolation(t *testing.T, res Result, want string) bool {
	t.Helper()
	for _, s := range res.Strings() {
		if strings.Contains(s, want) {
			return true
		}
	}
	return false
}

func requireViolation(t *testing.T, res Result, want string) {
	t.Helper()
	if !hasViolation(t, res, want) {
		t.Errorf("missing violation containing %q, got:\n%s", want, strings.Join(res.Strings(), "\n"))
	}
}

const validTaskYAML = `
tasks:
  - name: sensor_task
    function: sensor_run
    period_ms: 10
    priority: high
    watchdog_timeout_ms: 100
    watchdog_action: reset_task
    subscribes_to:
      - telemetry_channel
    publishes_to:
      - sensor_data_channel
messages:
  - name: imu_data
    fields:
      - name: ax
        type: f32
      - name: ay
        type: f32
channels:
  - name: telemetry_channel
    message_type: imu_data
  - name: sensor_data_channel
    message_type: imu_data
    queue_size: 32
messaging:
  topic_queues_per_mailbox: 2
`

func TestValidateTasks_Valid(t *testing.T) {
	merged := mergeYAML(t, validTaskYAML)
	v := NewValidator(zerolog.Nop())

	domain, res := v.ValidateTasks(context.Background(), &merged.Tasks)
	if !res.OK() {
		t.Fatalf("unexpected violations:\n%s", strings.Join(res.Strings(), "\n"))
	}
	if domain == nil {
		t.Fatal("ValidateTasks() returned nil domain for valid document")
	}

	task := domain.Tasks[0]
	if task.StackSize == nil || *task.StackSize != model.DefaultStackSize {
		t.Errorf("stack_size default not applied: %v", task.StackSize)
	}
	if task.Enabled == nil || !*task.Enabled {
		t.Errorf("enabled default not applied: %v", task.Enabled)
	}
	if task.Priority.Band != model.PriorityHigh || task.Priority.Level != 10 {
		t.Errorf("priority = %+v, want high/10", task.Priority)
	}

	ch := domain.Channels[0]
	if ch.QueueSize == nil || *ch.QueueSize != model.DefaultQueueSize {
		t.Errorf("queue_size default not applied: %v", ch.QueueSize)
	}
	if ch.MaxSubscribers == nil || *ch.MaxSubscribers != model.DefaultMaxSubscribers {
		t.Errorf("max_subscribers default not applied: %v", ch.MaxSubscribers)
	}
	if *domain.Channels[1].QueueSize != 32 {
		t.Errorf("explicit queue_size lost: %v", *domain.Channels[1].QueueSize)
	}

	if *domain.Messaging.TopicQueuesPerMailbox != 2 {
		t.Errorf("messaging override lost: %v", *domain.Messaging.TopicQueuesPerMailbox)
	}
	if *domain.Messaging.HighRatioDen != model.DefaultHighRatioDen {
		t.Errorf("messaging default not applied: %v", *domain.Messaging.HighRatioDen)
	}
}

func TestValidateTasks_MissingWatchdogFields(t *testing.T) {
	merged := mergeYAML(t, `
tasks:
  - name: sensor_task
    function: sensor_run
`)
	v := NewValidator(zerolog.Nop())

	domain, res := v.ValidateTasks(context.Background(), &merged.Tasks)
	if domain != nil {
		t.Error("ValidateTasks() returned a domain despite violations")
	}
	requireViolation(t, res, "task 'sensor_task': missing required field 'watchdog_timeout_ms'")
	requireViolation(t, res, "task 'sensor_task': missing required field 'watchdog_action'")
}

func TestValidateTasks_UndeclaredReferences(t *testing.T) {
	merged := mergeYAML(t, `
tasks:
  - name: sensor_task
    function: sensor_run
    watchdog_timeout_ms: 100
    watchdog_action: none
    subscribes_to:
      - ghost_channel
    publishes_to:
      - phantom_channel
channels:
  - name: telemetry_channel
    message_type: imu_data
`)
	v := NewValidator(zerolog.Nop())

	_, res := v.ValidateTasks(context.Background(), &merged.Tasks)
	requireViolation(t, res, "channel 'telemetry_channel': references undeclared message type 'imu_data'")
	requireViolation(t, res, "task 'sensor_task': subscribes to undeclared channel 'ghost_channel'")
	requireViolation(t, res, "task 'sensor_task': publishes to undeclared channel 'phantom_channel'")
}

func TestValidateTasks_IdentifierChecks(t *testing.T) {
	merged := mergeYAML(t, `
tasks:
  - name: 9starts_with_digit
    function: has-dash
    watchdog_timeout_ms: 100
    watchdog_action: none
`)
	v := NewValidator(zerolog.Nop())

	_, res := v.ValidateTasks(context.Background(), &merged.Tasks)
	requireViolation(t, res, "field 'name' is not a valid identifier: '9starts_with_digit'")
	requireViolation(t, res, "field 'function' is not a valid identifier: 'has-dash'")
}

func TestValidateTasks_PayloadBudget(t *testing.T) {
	merged := mergeYAML(t, `
messages:
  - name: big_message
    fields:
      - name: a
        type: u64
      - name: b
        type: u64
      - name: c
        type: u64
      - name: d
        type: u64
      - name: e
        type: u64
      - name: f
        type: u64
      - name: g
        type: u64
      - name: h
        type: u64
      - name: overflow
        type: u8
`)
	v := NewValidator(zerolog.Nop())

	_, res := v.ValidateTasks(context.Background(), &merged.Tasks)
	requireViolation(t, res, "message 'big_message': serialized size 65 exceeds payload budget of 64 bytes")
}

func TestValidateTasks_EnumMembership(t *testing.T) {
	merged := mergeYAML(t, `
tasks:
  - name: sensor_task
    function: sensor_run
    priority: turbo
    watchdog_timeout_ms: 100
    watchdog_action: reboot_the_moon
channels:
  - name: c1
    message_type: m1
    overflow_policy: explode
messages:
  - name: m1
`)
	v := NewValidator(zerolog.Nop())

	_, res := v.ValidateTasks(context.Background(), &merged.Tasks)
	requireViolation(t, res, "task 'sensor_task': invalid priority 'turbo'")
	requireViolation(t, res, "field 'watchdog_action' must be one of")
	requireViolation(t, res, "channel 'c1': field 'overflow_policy' must be one of")
}

func TestValidateTasks_NumericPriorityIsValid(t *testing.T) {
	merged := mergeYAML(t, `
tasks:
  - name: fast_task
    function: run_fast
    priority: 25
    watchdog_timeout_ms: 100
    watchdog_action: none
`)
	v := NewValidator(zerolog.Nop())

	domain, res := v.ValidateTasks(context.Background(), &merged.Tasks)
	if !res.OK() {
		t.Fatalf("unexpected violations:\n%s", strings.Join(res.Strings(), "\n"))
	}
	if domain.Tasks[0].Priority.Band != model.PriorityCritical || domain.Tasks[0].Priority.Level != 25 {
		t.Errorf("priority = %+v, want critical/25", domain.Tasks[0].Priority)
	}
}

func TestValidateTasks_PositiveTunables(t *testing.T) {
	merged := mergeYAML(t, `
channels:
  - name: c1
    message_type: m1
    queue_size: 0
    max_subscribers: -2
messages:
  - name: m1
tasks:
  - name: t1
    function: f1
    watchdog_timeout_ms: 100
    watchdog_action: none
    subscribes_to:
      - channel: c1
        depth: 0
`)
	v := NewValidator(zerolog.Nop())

	_, res := v.ValidateTasks(context.Background(), &merged.Tasks)
	requireViolation(t, res, "channel 'c1': field 'queue_size' must be a positive integer, got 0")
	requireViolation(t, res, "channel 'c1': field 'max_subscribers' must be a positive integer, got -2")
	requireViolation(t, res, "task 't1': subscription 'c1': depth must be a positive integer, got 0")
}

func TestValidateTasks_MessagingRootSchema(t *testing.T) {
	merged := mergeYAML(t, `
messaging:
  topic_queues_per_mailbox: 0
  notify_on_empty_only: sometimes
`)
	v := NewValidator(zerolog.Nop())

	_, res := v.ValidateTasks(context.Background(), &merged.Tasks)
	requireViolation(t, res, "messaging.topic_queues_per_mailbox")
	requireViolation(t, res, "messaging.notify_on_empty_only")

	// The flagged root is not decoded again, so each problem is
	// reported exactly once.
	count := 0
	for _, s := range res.Strings() {
		if strings.Contains(s, "topic_queues_per_mailbox") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("topic_queues_per_mailbox reported %d times, want once", count)
	}
}

func TestValidateTasks_DuplicateNames(t *testing.T) {
	doc := &aggregate.TaskDoc{
		Tasks: []aggregate.Record{
			{Name: "worker", Fields: map[string]any{"name": "worker", "function": "f1", "watchdog_timeout_ms": 10, "watchdog_action": "none"}},
			{Name: "worker", Fields: map[string]any{"name": "worker", "function": "f2", "watchdog_timeout_ms": 10, "watchdog_action": "none"}},
		},
		Found: true,
	}
	v := NewValidator(zerolog.Nop())

	_, res := v.ValidateTasks(context.Background(), doc)
	requireViolation(t, res, "task 'worker': duplicate name")
}

func TestValidateTasks_CollectsEverything(t *testing.T) {
	merged := mergeYAML(t, `
tasks:
  - name: t1
    function: f1
  - name: t2
    function: f2
`)
	v := NewValidator(zerolog.Nop())

	_, res := v.ValidateTasks(context.Background(), &merged.Tasks)
	if len(res) < 4 {
		t.Errorf("expected all violations in one pass, got %d:\n%s", len(res), strings.Join(res.Strings(), "\n"))
	}
}

func TestValidatePacket_Valid(t *testing.T) {
	merged := mergeYAML(t, `
packet:
  sync: [0x55, 0xAA]
  length_16bit: true
  max_payload: 128
opcodes:
  - name: op_ping
    code: 0x01
  - name: op_reset
    code: "0x02"
`)
	v := NewValidator(zerolog.Nop())

	domain, res := v.ValidatePacket(context.Background(), &merged.Packet)
	if !res.OK() {
		t.Fatalf("unexpected violations:\n%s", strings.Join(res.Strings(), "\n"))
	}
	if len(domain.Packet.Sync) != 2 || int(domain.Packet.Sync[0]) != 0x55 {
		t.Errorf("sync = %v, want [0x55 0xAA]", domain.Packet.Sync)
	}
	if int(*domain.Opcodes[1].Code) != 0x02 {
		t.Errorf("hex string code not decoded: %v", *domain.Opcodes[1].Code)
	}
}

func TestValidatePacket_Defaults(t *testing.T) {
	merged := mergeYAML(t, `
opcodes:
  - name: op_ping
    code: 1
`)
	v := NewValidator(zerolog.Nop())

	domain, res := v.ValidatePacket(context.Background(), &merged.Packet)
	if !res.OK() {
		t.Fatalf("unexpected violations:\n%s", strings.Join(res.Strings(), "\n"))
	}
	if len(domain.Packet.Sync) != 2 || int(domain.Packet.Sync[0]) != 0x55 || int(domain.Packet.Sync[1]) != 0xAA {
		t.Errorf("sync default = %v, want [0x55 0xAA]", domain.Packet.Sync)
	}
	if domain.Packet.Length16Bit == nil || !*domain.Packet.Length16Bit {
		t.Error("length_16bit default not applied")
	}
	if domain.Packet.MaxPayload == nil || *domain.Packet.MaxPayload != model.DefaultMaxPayload {
		t.Error("max_payload default not applied")
	}
}

func TestValidatePacket_RootSchema(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "empty sync",
			yaml: "packet:\n  sync: []\n",
			want: "packet.sync",
		},
		{
			name: "sync byte out of range",
			yaml: "packet:\n  sync: [0x55, 300]\n",
			want: "packet.sync",
		},
		{
			name: "sync byte bad string",
			yaml: "packet:\n  sync: [\"0xZZ\"]\n",
			want: "packet.sync",
		},
		{
			name: "non-positive max_payload",
			yaml: "packet:\n  max_payload: 0\n",
			want: "packet.max_payload",
		},
		{
			name: "length flag not bool",
			yaml: "packet:\n  length_16bit: 12\n",
			want: "packet.length_16bit",
		},
	}

	v := NewValidator(zerolog.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := mergeYAML(t, tt.yaml)
			domain, res := v.ValidatePacket(context.Background(), &merged.Packet)
			if domain != nil {
				t.Error("ValidatePacket() returned a domain despite violations")
			}
			requireViolation(t, res, tt.want)
		})
	}
}

func TestValidatePacket_OpcodeRange(t *testing.T) {
	merged := mergeYAML(t, `
opcodes:
  - name: op_big
    code: 300
  - name: op_negative
    code: -1
  - name: op_missing
`)
	v := NewValidator(zerolog.Nop())

	_, res := v.ValidatePacket(context.Background(), &merged.Packet)
	requireViolation(t, res, "opcode 'op_big': field 'code' must be <= 255, got 300")
	requireViolation(t, res, "opcode 'op_negative': field 'code' must be >= 0, got -1")
	requireViolation(t, res, "opcode 'op_missing': missing required field 'code'")
}

func TestValidatePacket_DuplicateCodes(t *testing.T) {
	doc := &aggregate.PacketDoc{
		Opcodes: []aggregate.Record{
			{Name: "op_a", Fields: map[string]any{"name": "op_a", "code": 16}},
			{Name: "op_b", Fields: map[string]any{"name": "op_b", "code": 16}},
		},
		Found: true,
	}
	v := NewValidator(zerolog.Nop())

	_, res := v.ValidatePacket(context.Background(), doc)
	requireViolation(t, res, "opcode 'op_b': code 0x10 already used by 'op_a'")
}

func TestValidateCommands_Valid(t *testing.T) {
	merged := mergeYAML(t, `
commands:
  - name: cmd_set_led
    opcode: 0x10
    function: handle_set_led
    parameters:
      - name: red
        type: u8
      - name: payload
        type: u8[]
config:
  namespace: app::commands
`)
	v := NewValidator(zerolog.Nop())

	domain, res := v.ValidateCommands(context.Background(), &merged.Commands)
	if !res.OK() {
		t.Fatalf("unexpected violations:\n%s", strings.Join(res.Strings(), "\n"))
	}
	if domain.Config.Namespace != "app::commands" {
		t.Errorf("namespace = %s, want app::commands", domain.Config.Namespace)
	}
	if *domain.Config.MaxCommands != model.DefaultMaxCommands {
		t.Errorf("max_commands default not applied: %v", *domain.Config.MaxCommands)
	}
	if domain.Config.ErrorHandler != model.DefaultErrorHandler {
		t.Errorf("error_handler default not applied: %v", domain.Config.ErrorHandler)
	}
	if domain.Commands[0].Description != "cmd_set_led" {
		t.Errorf("description default = %q, want command name", domain.Commands[0].Description)
	}
}

func TestValidateCommands_ParamTypes(t *testing.T) {
	merged := mergeYAML(t, `
commands:
  - name: cmd_bad
    opcode: 1
    function: handle_bad
    parameters:
      - name: blob
        type: u24
`)
	v := NewValidator(zerolog.Nop())

	_, res := v.ValidateCommands(context.Background(), &merged.Commands)
	requireViolation(t, res, "command 'cmd_bad'")
	requireViolation(t, res, "must be one of")
}

func TestValidateCommands_ConfigRoot(t *testing.T) {
	merged := mergeYAML(t, `
config:
  namespace: 9bad::ns
  max_commands: 0
`)
	v := NewValidator(zerolog.Nop())

	_, res := v.ValidateCommands(context.Background(), &merged.Commands)
	requireViolation(t, res, "config.max_commands")

	// The namespace identifier check only runs once the root types are
	// fixed, so the schema finding is the only config violation here.
	if hasViolation(t, res, "not a valid identifier") {
		t.Error("identifier check ran on a schema-flagged root")
	}
}

func TestValidateCommands_NamespaceIdentifier(t *testing.T) {
	merged := mergeYAML(t, `
config:
  namespace: 9bad::ns
`)
	v := NewValidator(zerolog.Nop())

	_, res := v.ValidateCommands(context.Background(), &merged.Commands)
	requireViolation(t, res, "field 'namespace' is not a valid identifier: '9bad::ns'")
}

func TestValidateCommands_DuplicateOpcodes(t *testing.T) {
	doc := &aggregate.CommandDoc{
		Commands: []aggregate.Record{
			{Name: "cmd_a", Fields: map[string]any{"name": "cmd_a", "opcode": 32, "function": "fa"}},
			{Name: "cmd_b", Fields: map[string]any{"name": "cmd_b", "opcode": 32, "function": "fb"}},
		},
		Found: true,
	}
	v := NewValidator(zerolog.Nop())

	_, res := v.ValidateCommands(context.Background(), doc)
	requireViolation(t, res, "command 'cmd_b': opcode 0x20 already used by 'cmd_a'")
}

func TestValidate_DomainsAreIndependent(t *testing.T) {
	merged := mergeYAML(t, `
channels:
  - name: c1
    message_type: ghost_message
commands:
  - name: cmd_ok
    opcode: 1
    function: handle_ok
`)
	v := NewValidator(zerolog.Nop())

	taskDomain, taskRes := v.ValidateTasks(context.Background(), &merged.Tasks)
	if taskDomain != nil || taskRes.OK() {
		t.Error("task domain should fail on the dangling reference")
	}

	cmdDomain, cmdRes := v.ValidateCommands(context.Background(), &merged.Commands)
	if cmdDomain == nil || !cmdRes.OK() {
		t.Errorf("command domain should pass independently, got:\n%s", strings.Join(cmdRes.Strings(), "\n"))
	}
}
