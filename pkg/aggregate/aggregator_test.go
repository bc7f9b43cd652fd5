package aggregate

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/firmforge/firmforge/pkg/document"
)

// docFromYAML builds a loaded document from inline YAML.
func docFromYAML(t *testing.T, path, content string) document.Document {
	t.Helper()
	var data map[string]any
	if err := yaml.Unmarshal([]byte(content), &data); err != nil {
		t.Fatalf("parsing fixture %s: %v", path, err)
	}
	return document.Document{Path: path, Data: data}
}

func merge(t *testing.T, contents ...string) *Result {
	t.Helper()
	docs := make([]document.Document, 0, len(contents))
	for i, content := range contents {
		docs = append(docs, docFromYAML(t, fmt.Sprintf("f%d.yaml", i+1), content))
	}
	return NewAggregator(zerolog.Nop()).Merge(docs)
}

func names(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Name)
	}
	return out
}

func TestMerge_LastWriterWins(t *testing.T) {
	res := merge(t,
		"channels:\n  - name: telemetry_channel\n    message_type: imu_data\n    queue_size: 16\n",
		"channels:\n  - name: telemetry_channel\n    message_type: imu_data\n    queue_size: 32\n",
	)

	if len(res.Tasks.Channels) != 1 {
		t.Fatalf("merged %d channels, want 1", len(res.Tasks.Channels))
	}
	got := res.Tasks.Channels[0]
	if got.Fields["queue_size"] != 32 {
		t.Errorf("queue_size = %v, want 32", got.Fields["queue_size"])
	}
}

func TestMerge_ReplacementIsFull(t *testing.T) {
	res := merge(t,
		"tasks:\n  - name: sensor_task\n    function: sensor_run\n    stack_size: 8192\n",
		"tasks:\n  - name: sensor_task\n    function: sensor_run_v2\n",
	)

	got := res.Tasks.Tasks[0]
	if got.Fields["function"] != "sensor_run_v2" {
		t.Errorf("function = %v, want sensor_run_v2", got.Fields["function"])
	}
	if _, ok := got.Fields["stack_size"]; ok {
		t.Error("stack_size survived replacement, want full record replacement")
	}
}

func TestMerge_ReplacementKeepsPosition(t *testing.T) {
	res := merge(t,
		"tasks:\n  - name: alpha\n    function: fa\n  - name: beta\n    function: fb\n",
		"tasks:\n  - name: alpha\n    function: fa2\n",
	)

	want := []string{"alpha", "beta"}
	if got := names(res.Tasks.Tasks); !reflect.DeepEqual(got, want) {
		t.Errorf("task order = %v, want %v", got, want)
	}
	if res.Tasks.Tasks[0].Fields["function"] != "fa2" {
		t.Errorf("replaced record did not carry new fields")
	}
}

func TestMerge_NumericEviction(t *testing.T) {
	res := merge(t,
		"opcodes:\n  - name: op_ping\n    code: 0x10\n",
		"opcodes:\n  - name: op_reset\n    code: 0x10\n",
	)

	if got := names(res.Packet.Opcodes); !reflect.DeepEqual(got, []string{"op_reset"}) {
		t.Fatalf("opcodes = %v, want [op_reset]", got)
	}
}

func TestMerge_NumericEvictionMatchesAcrossForms(t *testing.T) {
	// 0x10 as an int literal and "0x10" as a string are the same wire
	// value and must still evict.
	res := merge(t,
		"opcodes:\n  - name: op_ping\n    code: 16\n",
		"opcodes:\n  - name: op_reset\n    code: \"0x10\"\n",
	)

	if got := names(res.Packet.Opcodes); !reflect.DeepEqual(got, []string{"op_reset"}) {
		t.Fatalf("opcodes = %v, want [op_reset]", got)
	}
}

func TestMerge_SameNameSameValueReplaces(t *testing.T) {
	res := merge(t,
		"opcodes:\n  - name: op_ping\n    code: 0x10\n",
		"opcodes:\n  - name: op_ping\n    code: 0x10\n    description: again\n",
	)

	if len(res.Packet.Opcodes) != 1 {
		t.Fatalf("merged %d opcodes, want 1", len(res.Packet.Opcodes))
	}
	if res.Packet.Opcodes[0].Fields["description"] != "again" {
		t.Error("later same-name same-code record did not replace")
	}
}

func TestMerge_UnparsableCodeDoesNotEvict(t *testing.T) {
	res := merge(t,
		"opcodes:\n  - name: op_ping\n    code: 0x10\n",
		"opcodes:\n  - name: op_big\n    code: 300\n",
	)

	want := []string{"op_ping", "op_big"}
	if got := names(res.Packet.Opcodes); !reflect.DeepEqual(got, want) {
		t.Fatalf("opcodes = %v, want %v", got, want)
	}
}

func TestMerge_CommandOpcodeEviction(t *testing.T) {
	res := merge(t,
		"commands:\n  - name: cmd_arm\n    opcode: 0x20\n    function: do_arm\n",
		"commands:\n  - name: cmd_disarm\n    opcode: 0x20\n    function: do_disarm\n",
	)

	if got := names(res.Commands.Commands); !reflect.DeepEqual(got, []string{"cmd_disarm"}) {
		t.Fatalf("commands = %v, want [cmd_disarm]", got)
	}
}

func TestMerge_RootMapping(t *testing.T) {
	res := merge(t,
		"packet:\n  sync: [0x55, 0xAA]\n  max_payload: 128\n",
		"packet:\n  max_payload: 256\n  length_16bit: false\n",
	)

	p := res.Packet.Packet
	if p["max_payload"] != 256 {
		t.Errorf("max_payload = %v, want 256", p["max_payload"])
	}
	if p["length_16bit"] != false {
		t.Errorf("length_16bit = %v, want false", p["length_16bit"])
	}
	sync, ok := p["sync"].([]any)
	if !ok || len(sync) != 2 {
		t.Errorf("sync = %v, want preserved from earlier file", p["sync"])
	}
}

func TestMerge_NullNeverOverwrites(t *testing.T) {
	res := merge(t,
		"config:\n  namespace: fw::commands\n  max_commands: 32\n",
		"config:\n  namespace: null\n  error_handler: on_unknown\n",
	)

	c := res.Commands.Config
	if c["namespace"] != "fw::commands" {
		t.Errorf("namespace = %v, want earlier value preserved over null", c["namespace"])
	}
	if c["error_handler"] != "on_unknown" {
		t.Errorf("error_handler = %v, want on_unknown", c["error_handler"])
	}
}

func TestMerge_NullNeverEstablishes(t *testing.T) {
	res := merge(t, "messaging:\n  topic_queues_per_mailbox: null\n")

	if _, ok := res.Tasks.Messaging["topic_queues_per_mailbox"]; ok {
		t.Error("null value established a key")
	}
	if res.Tasks.Found {
		t.Error("domain found although nothing was contributed")
	}
}

func TestMerge_FoundFlags(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		tasks    bool
		packet   bool
		commands bool
	}{
		{name: "empty document", content: "other: 1\n"},
		{name: "empty sections", content: "tasks: []\nopcodes: []\ncommands: []\n"},
		{name: "tasks only", content: "tasks:\n  - name: t\n    function: f\n", tasks: true},
		{name: "messaging only", content: "messaging:\n  topic_queues_per_mailbox: 2\n", tasks: true},
		{name: "packet root only", content: "packet:\n  max_payload: 64\n", packet: true},
		{name: "opcodes only", content: "opcodes:\n  - name: op\n    code: 1\n", packet: true},
		{name: "config only", content: "config:\n  namespace: fw\n", commands: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := merge(t, tt.content)
			if res.Tasks.Found != tt.tasks {
				t.Errorf("tasks found = %v, want %v", res.Tasks.Found, tt.tasks)
			}
			if res.Packet.Found != tt.packet {
				t.Errorf("packet found = %v, want %v", res.Packet.Found, tt.packet)
			}
			if res.Commands.Found != tt.commands {
				t.Errorf("commands found = %v, want %v", res.Commands.Found, tt.commands)
			}
		})
	}
}

func TestMerge_MalformedSectionsSkipped(t *testing.T) {
	res := merge(t,
		"tasks: hello\nmessaging: [1, 2]\n",
		"tasks:\n  - just a string\n  - name: real_task\n    function: f\n  - description: nameless\n",
	)

	if got := names(res.Tasks.Tasks); !reflect.DeepEqual(got, []string{"real_task"}) {
		t.Errorf("tasks = %v, want [real_task]", got)
	}
	if len(res.Tasks.Messaging) != 0 {
		t.Errorf("messaging = %v, want empty", res.Tasks.Messaging)
	}
}

func TestMerge_ScalarNameIsStringified(t *testing.T) {
	res := merge(t, "tasks:\n  - name: 42\n    function: f\n")

	if got := names(res.Tasks.Tasks); !reflect.DeepEqual(got, []string{"42"}) {
		t.Errorf("tasks = %v, want [42] kept for validation", got)
	}
}

func TestMerge_StableUnderSelfUnion(t *testing.T) {
	base := []string{
		"tasks:\n  - name: alpha\n    function: fa\nchannels:\n  - name: c1\n    message_type: m1\n",
		"opcodes:\n  - name: op_a\n    code: 0x10\n  - name: op_b\n    code: 0x11\n",
		"config:\n  namespace: fw::commands\n",
	}
	first := merge(t, base...)

	// Feed the canonical documents back in after the originals.
	mirror := func(m map[string]any) string {
		out, err := yaml.Marshal(m)
		if err != nil {
			t.Fatalf("marshalling mirror: %v", err)
		}
		return string(out)
	}
	second := merge(t, append(base,
		mirror(first.Tasks.AsMap()),
		mirror(first.Packet.AsMap()),
		mirror(first.Commands.AsMap()),
	)...)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("merge not stable under self-union:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestMerge_Determinism(t *testing.T) {
	base := []string{
		"tasks:\n  - name: alpha\n    function: fa\n  - name: beta\n    function: fb\n",
		"messages:\n  - name: imu_data\n    fields:\n      - name: ax\n        type: f32\n",
		"packet:\n  sync: [0x55, 0xAA]\n",
	}

	first := merge(t, base...)
	second := merge(t, base...)
	for _, pair := range []struct {
		name          string
		left, right   map[string]any
	}{
		{"tasks", first.Tasks.AsMap(), second.Tasks.AsMap()},
		{"packet", first.Packet.AsMap(), second.Packet.AsMap()},
		{"commands", first.Commands.AsMap(), second.Commands.AsMap()},
	} {
		leftYAML, err := yaml.Marshal(pair.left)
		if err != nil {
			t.Fatalf("marshalling %s: %v", pair.name, err)
		}
		rightYAML, err := yaml.Marshal(pair.right)
		if err != nil {
			t.Fatalf("marshalling %s: %v", pair.name, err)
		}
		if string(leftYAML) != string(rightYAML) {
			t.Errorf("%s mirror not byte-identical across runs", pair.name)
		}
	}
}
