package emit

import (
	"fmt"
	"strings"

	"github.com/firmforge/firmforge/pkg/model"
	"github.com/firmforge/firmforge/pkg/topics"
)

// The view structs are what the templates render. They carry plain
// values only: optional model fields are resolved to their effective
// values here so the templates never deal with pointers. Views are
// built from validated domains, whose constructors have already
// applied every default.

// tasksView is the render model for generated_tasks.hpp.
type tasksView struct {
	// Source labels the merged document the header derives from.
	Source   string
	Tasks    []taskView
	Messages []messageView
	Channels []channelView
}

// taskView is one row of the task configuration table.
type taskView struct {
	Name              string
	Function          string
	Description       string
	PriorityBand      string
	RTOSPriority      int
	PeriodMS          int
	Enabled           bool
	StackSize         int
	CreateNative      bool
	CPUAffinity       int
	WatchdogTimeoutMS int
	WatchdogAction    string
	MaxExecutionUS    int
	Subscriptions     []subscriptionView
}

// Pinned reports whether the task is pinned to a CPU core.
func (t taskView) Pinned() bool {
	return t.CPUAffinity >= 0
}

// subscriptionView binds a task to a topic with its resolved mailbox
// settings.
type subscriptionView struct {
	// Topic is the channel name with the "_channel" suffix stripped.
	Topic string

	// Depth is the mailbox depth: the subscription override when
	// present, the channel queue size otherwise.
	Depth int

	// OverflowPolicy is set only when the subscription overrides the
	// channel policy.
	OverflowPolicy string
}

// messageView is one generated message struct.
type messageView struct {
	Name        string
	Description string
	Fields      []fieldView
}

// fieldView is one member of a message struct.
type fieldView struct {
	Name string
	Type string
}

// channelView is one topic with its allocated identifier.
type channelView struct {
	Name           string
	Topic          string
	TopicID        int
	MessageType    string
	QueueSize      int
	MaxSubscribers int
	Priority       string

	// FlagsExpr is a C++ expression for the default flag mask, usable
	// inside a static_cast to u8.
	FlagsExpr      string
	OverflowPolicy string

	// ProducerStamped selects whether the pack helper stamps the
	// timestamp at the producer or leaves it to the broker.
	ProducerStamped bool
}

// messagingView is the render model for messaging_config.hpp.
type messagingView struct {
	Source                string
	QueueCapacity         int
	MaxTopics             int
	MaxSubscribers        int
	TopicQueuesPerMailbox int
	HighRatioNum          int
	HighRatioDen          int
	NotifyOnEmptyOnly     int
}

// packetView is the render model for generated_packet_config.hpp.
type packetView struct {
	Source      string
	SyncLen     int
	SyncList    string
	Length16Bit bool
	MaxPayload  int
	Opcodes     []opcodeView
}

// opcodeView is one protocol opcode.
type opcodeView struct {
	Name string
	Code int
}

// commandsView is the render model for generated_command_table.hpp.
type commandsView struct {
	Source       string
	Namespace    string
	MaxCommands  int
	ErrorHandler string
	Commands     []commandView
}

// commandView is one dispatchable command.
type commandView struct {
	Name        string
	Function    string
	Description string
	Opcode      int
	Params      []paramView
}

// paramView is one command parameter with its wire layout.
type paramView struct {
	Name string

	// CppType is the member type in the parameter struct.
	CppType string

	// IsArray marks variable-length byte parameters, which carry a
	// companion length member.
	IsArray bool

	// FieldType is the qualified wire field type constant.
	FieldType string
}

// topicName strips every "_channel" occurrence from a channel name to
// form the topic enum entry.
func topicName(channel string) string {
	return strings.ReplaceAll(channel, "_channel", "")
}

// flagsExpr renders a channel's default flag set as a C++ expression.
// A single named flag keeps its symbolic form; combined flags collapse
// to the numeric mask.
func flagsExpr(flags []model.MessageFlag) string {
	mask := model.FlagMask(flags)
	if mask == 0 {
		return "fw::messaging::message_flags::none"
	}
	if len(flags) == 1 {
		return fmt.Sprintf("fw::messaging::message_flags::%s", flags[0])
	}
	return fmt.Sprintf("0x%02X", mask)
}

// cppFieldType maps a wire field type to the member type used in
// generated structs.
func cppFieldType(ft model.FieldType) string {
	if ft.IsArray() {
		return "const u8*"
	}
	return string(ft)
}

// wireFieldType maps a wire field type to the qualified FieldType
// constant used in field layout tables.
func wireFieldType(ft model.FieldType) string {
	var name string
	switch ft {
	case model.TypeU8:
		name = "U8"
	case model.TypeU16:
		name = "U16"
	case model.TypeU32:
		name = "U32"
	case model.TypeU64:
		name = "U64"
	case model.TypeI8:
		name = "I8"
	case model.TypeI16:
		name = "I16"
	case model.TypeI32:
		name = "I32"
	case model.TypeI64:
		name = "I64"
	case model.TypeF32:
		name = "F32"
	case model.TypeF64:
		name = "F64"
	case model.TypeBool:
		name = "BOOL"
	case model.TypeU8Array:
		name = "U8_ARRAY"
	default:
		name = "U8"
	}
	return "fw::protocol::FieldType::" + name
}

// newTasksView resolves a task domain and its topic table into a
// render model.
func newTasksView(domain *model.TaskDomain, table *topics.Table) (*tasksView, error) {
	view := &tasksView{Source: model.DomainTasks.MergedFileName()}

	channelQueue := make(map[string]int, len(domain.Channels))
	for _, ch := range domain.Channels {
		id, ok := table.IDFor(ch.Name)
		if !ok {
			return nil, fmt.Errorf("channel %s has no allocated topic identifier", ch.Name)
		}
		channelQueue[ch.Name] = *ch.QueueSize
		view.Channels = append(view.Channels, channelView{
			Name:            ch.Name,
			Topic:           topicName(ch.Name),
			TopicID:         int(id),
			MessageType:     ch.MessageType,
			QueueSize:       *ch.QueueSize,
			MaxSubscribers:  *ch.MaxSubscribers,
			Priority:        string(ch.Priority),
			FlagsExpr:       flagsExpr(ch.Flags),
			OverflowPolicy:  string(ch.OverflowPolicy),
			ProducerStamped: ch.TimestampSource == model.TimestampProducer,
		})
	}

	for _, msg := range domain.Messages {
		mv := messageView{Name: msg.Name, Description: msg.Description}
		for _, f := range msg.Fields {
			mv.Fields = append(mv.Fields, fieldView{Name: f.Name, Type: cppFieldType(f.Type)})
		}
		view.Messages = append(view.Messages, mv)
	}

	for _, task := range domain.Tasks {
		tv := taskView{
			Name:              task.Name,
			Function:          task.Function,
			Description:       task.Description,
			PriorityBand:      string(task.Priority.Band),
			RTOSPriority:      task.Priority.Level,
			PeriodMS:          task.PeriodMS,
			Enabled:           *task.Enabled,
			StackSize:         *task.StackSize,
			CreateNative:      task.CreateNative,
			CPUAffinity:       int(*task.CPUAffinity),
			WatchdogTimeoutMS: *task.WatchdogTimeoutMS,
			WatchdogAction:    string(*task.WatchdogAction),
			MaxExecutionUS:    task.MaxExecutionUS,
		}
		for _, sub := range task.SubscribesTo {
			sv := subscriptionView{
				Topic:          topicName(sub.Channel),
				OverflowPolicy: string(sub.OverflowPolicy),
			}
			if sub.Depth != nil {
				sv.Depth = *sub.Depth
			} else {
				sv.Depth = channelQueue[sub.Channel]
			}
			tv.Subscriptions = append(tv.Subscriptions, sv)
		}
		view.Tasks = append(view.Tasks, tv)
	}

	return view, nil
}

// newMessagingView derives the compile-time messaging limits from the
// merged channels and the messaging root.
func newMessagingView(domain *model.TaskDomain) *messagingView {
	view := &messagingView{
		Source:                model.DomainTasks.MergedFileName(),
		QueueCapacity:         model.DefaultQueueSize,
		MaxTopics:             32,
		MaxSubscribers:        model.DefaultMaxSubscribers,
		TopicQueuesPerMailbox: *domain.Messaging.TopicQueuesPerMailbox,
		HighRatioNum:          *domain.Messaging.HighRatioNum,
		HighRatioDen:          *domain.Messaging.HighRatioDen,
	}

	maxQueue, maxSubs := 0, 0
	for _, ch := range domain.Channels {
		if *ch.QueueSize > maxQueue {
			maxQueue = *ch.QueueSize
		}
		if *ch.MaxSubscribers > maxSubs {
			maxSubs = *ch.MaxSubscribers
		}
	}
	if maxQueue > 0 {
		view.QueueCapacity = maxQueue
	}
	if len(domain.Channels) > 0 {
		view.MaxTopics = len(domain.Channels)
	}
	if maxSubs > 0 {
		view.MaxSubscribers = maxSubs
	}
	if *domain.Messaging.NotifyOnEmptyOnly {
		view.NotifyOnEmptyOnly = 1
	}
	return view
}

// newPacketView resolves a packet domain into a render model.
func newPacketView(domain *model.PacketDomain) *packetView {
	parts := make([]string, len(domain.Packet.Sync))
	for i, b := range domain.Packet.Sync {
		parts[i] = fmt.Sprintf("0x%02X", int(b))
	}

	view := &packetView{
		Source:      model.DomainPacket.MergedFileName(),
		SyncLen:     len(domain.Packet.Sync),
		SyncList:    strings.Join(parts, ", "),
		Length16Bit: *domain.Packet.Length16Bit,
		MaxPayload:  *domain.Packet.MaxPayload,
	}

	for _, op := range domain.Opcodes {
		view.Opcodes = append(view.Opcodes, opcodeView{Name: op.Name, Code: int(*op.Code)})
	}
	return view
}

// newCommandsView resolves a command domain into a render model.
func newCommandsView(domain *model.CommandDomain) *commandsView {
	view := &commandsView{
		Source:       model.DomainCommands.MergedFileName(),
		Namespace:    domain.Config.Namespace,
		MaxCommands:  *domain.Config.MaxCommands,
		ErrorHandler: domain.Config.ErrorHandler,
	}

	for _, cmd := range domain.Commands {
		cv := commandView{
			Name:        cmd.Name,
			Function:    cmd.Function,
			Description: cmd.Description,
			Opcode:      int(*cmd.Opcode),
		}
		for _, p := range cmd.Parameters {
			cv.Params = append(cv.Params, paramView{
				Name:      p.Name,
				CppType:   cppFieldType(p.Type),
				IsArray:   p.Type.IsArray(),
				FieldType: wireFieldType(p.Type),
			})
		}
		view.Commands = append(view.Commands, cv)
	}
	return view
}
