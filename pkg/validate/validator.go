package validate

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/firmforge/firmforge/pkg/aggregate"
	"github.com/firmforge/firmforge/pkg/model"
)

// Validator checks canonical domain documents and resolves them into
// typed domain models.
type Validator struct {
	schemas *SchemaRegistry
	checks  *validator.Validate
	logger  zerolog.Logger
}

// NewValidator creates a validator with the built-in schemas.
func NewValidator(logger zerolog.Logger) *Validator {
	checks := validator.New()
	_ = checks.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return model.IsIdentifier(fl.Field().String())
	})
	checks.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{
		schemas: NewSchemaRegistry(),
		checks:  checks,
		logger:  logger.With().Str("component", "validate").Logger(),
	}
}

// ValidateTasks checks the task/messaging domain. On success it returns
// the resolved domain with defaults applied; on failure it returns the
// complete ordered violation list and no domain.
func (v *Validator) ValidateTasks(ctx context.Context, doc *aggregate.TaskDoc) (*model.TaskDomain, Result) {
	var res Result

	schemaViols := schemaViolations(model.DomainTasks, v.schemas.ValidateTaskDomain(ctx, doc.AsMap()))
	res = append(res, schemaViols...)
	dirty := dirtyRoots(schemaViols)

	domain := &model.TaskDomain{
		Tasks:    make([]model.Task, 0, len(doc.Tasks)),
		Messages: make([]model.Message, 0, len(doc.Messages)),
		Channels: make([]model.Channel, 0, len(doc.Channels)),
	}

	for _, rec := range doc.Tasks {
		entity := entityRef("task", rec.Name)
		task, err := model.NewTask(rec.Fields)
		if err != nil {
			res = append(res, decodeViolation(model.DomainTasks, entity, err))
			continue
		}
		res = append(res, v.structViolations(model.DomainTasks, entity, task)...)
		res = append(res, checkTask(entity, task)...)
		domain.Tasks = append(domain.Tasks, *task)
	}

	for _, rec := range doc.Messages {
		entity := entityRef("message", rec.Name)
		msg, err := model.NewMessage(rec.Fields)
		if err != nil {
			res = append(res, decodeViolation(model.DomainTasks, entity, err))
			continue
		}
		res = append(res, v.structViolations(model.DomainTasks, entity, msg)...)
		if size := msg.WireSize(); size > model.PayloadBudget {
			res = append(res, Violation{
				Domain:  model.DomainTasks,
				Kind:    KindConstraint,
				Entity:  entity,
				Field:   "fields",
				Message: fmt.Sprintf("serialized size %d exceeds payload budget of %d bytes", size, model.PayloadBudget),
			})
		}
		domain.Messages = append(domain.Messages, *msg)
	}

	for _, rec := range doc.Channels {
		entity := entityRef("channel", rec.Name)
		ch, err := model.NewChannel(rec.Fields)
		if err != nil {
			res = append(res, decodeViolation(model.DomainTasks, entity, err))
			continue
		}
		res = append(res, v.structViolations(model.DomainTasks, entity, ch)...)
		res = append(res, checkPositive(model.DomainTasks, entity, "queue_size", ch.QueueSize)...)
		res = append(res, checkPositive(model.DomainTasks, entity, "max_subscribers", ch.MaxSubscribers)...)
		domain.Channels = append(domain.Channels, *ch)
	}

	if !rootDirty(dirty, model.KeyMessaging) {
		cfg, err := model.NewMessagingConfig(doc.Messaging)
		if err != nil {
			res = append(res, decodeViolation(model.DomainTasks, model.KeyMessaging, err))
		} else {
			domain.Messaging = *cfg
		}
	}

	res = append(res, taskCrossChecks(domain)...)

	if len(res) > 0 {
		v.logger.Debug().Int("violations", len(res)).Str("domain", string(model.DomainTasks)).Msg("Domain failed validation")
		return nil, res
	}
	return domain, nil
}

// ValidatePacket checks the packet domain.
func (v *Validator) ValidatePacket(ctx context.Context, doc *aggregate.PacketDoc) (*model.PacketDomain, Result) {
	var res Result

	schemaViols := schemaViolations(model.DomainPacket, v.schemas.ValidatePacketDomain(ctx, doc.AsMap()))
	res = append(res, schemaViols...)
	dirty := dirtyRoots(schemaViols)

	domain := &model.PacketDomain{
		Opcodes: make([]model.Opcode, 0, len(doc.Opcodes)),
	}

	if !rootDirty(dirty, model.KeyPacket) {
		cfg, err := model.NewPacketConfig(doc.Packet)
		if err != nil {
			res = append(res, decodeViolation(model.DomainPacket, model.KeyPacket, err))
		} else {
			domain.Packet = *cfg
		}
	}

	for _, rec := range doc.Opcodes {
		entity := entityRef("opcode", rec.Name)
		op, err := model.NewOpcode(rec.Fields)
		if err != nil {
			res = append(res, decodeViolation(model.DomainPacket, entity, err))
			continue
		}
		res = append(res, v.structViolations(model.DomainPacket, entity, op)...)
		domain.Opcodes = append(domain.Opcodes, *op)
	}

	res = append(res, packetCrossChecks(domain)...)

	if len(res) > 0 {
		v.logger.Debug().Int("violations", len(res)).Str("domain", string(model.DomainPacket)).Msg("Domain failed validation")
		return nil, res
	}
	return domain, nil
}

// ValidateCommands checks the command domain.
func (v *Validator) ValidateCommands(ctx context.Context, doc *aggregate.CommandDoc) (*model.CommandDomain, Result) {
	var res Result

	schemaViols := schemaViolations(model.DomainCommands, v.schemas.ValidateCommandDomain(ctx, doc.AsMap()))
	res = append(res, schemaViols...)
	dirty := dirtyRoots(schemaViols)

	domain := &model.CommandDomain{
		Commands: make([]model.Command, 0, len(doc.Commands)),
	}

	if !rootDirty(dirty, model.KeyConfig) {
		cfg, err := model.NewCommandConfig(doc.Config)
		if err != nil {
			res = append(res, decodeViolation(model.DomainCommands, model.KeyConfig, err))
		} else {
			res = append(res, v.structViolations(model.DomainCommands, model.KeyConfig, cfg)...)
			domain.Config = *cfg
		}
	}

	for _, rec := range doc.Commands {
		entity := entityRef("command", rec.Name)
		cmd, err := model.NewCommand(rec.Fields)
		if err != nil {
			res = append(res, decodeViolation(model.DomainCommands, entity, err))
			continue
		}
		res = append(res, v.structViolations(model.DomainCommands, entity, cmd)...)
		domain.Commands = append(domain.Commands, *cmd)
	}

	res = append(res, commandCrossChecks(domain)...)

	if len(res) > 0 {
		v.logger.Debug().Int("violations", len(res)).Str("domain", string(model.DomainCommands)).Msg("Domain failed validation")
		return nil, res
	}
	return domain, nil
}

// structViolations runs struct validation and maps each field error to
// an attributable violation.
func (v *Validator) structViolations(domain model.Domain, entity string, value any) []Violation {
	err := v.checks.Struct(value)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []Violation{{Domain: domain, Kind: KindShape, Entity: entity, Message: err.Error()}}
	}
	out := make([]Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, Violation{
			Domain:  domain,
			Kind:    kindForTag(fe.Tag()),
			Entity:  entity,
			Field:   fieldPath(fe),
			Message: fieldMessage(fe),
		})
	}
	return out
}

// kindForTag maps a struct validation tag to a violation kind.
func kindForTag(tag string) Kind {
	if tag == "identifier" {
		return KindIdentifier
	}
	return KindConstraint
}

// fieldPath strips the struct name from a field error's namespace,
// leaving the document-level field path.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// fieldMessage renders a field error in its reportable form.
func fieldMessage(fe validator.FieldError) string {
	field := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("missing required field '%s'", field)
	case "identifier":
		return fmt.Sprintf("field '%s' is not a valid identifier: '%v'", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of [%s], got '%v'", field, fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("field '%s' must be >= %s, got %v", field, fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("field '%s' must be <= %s, got %v", field, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("field '%s' failed %s validation", field, fe.Tag())
	}
}

// decodeViolation reports a record or root mapping that cannot be
// decoded into its typed form.
func decodeViolation(domain model.Domain, entity string, err error) Violation {
	return Violation{
		Domain:  domain,
		Kind:    KindShape,
		Entity:  entity,
		Message: fmt.Sprintf("cannot decode: %v", err),
	}
}

// checkTask covers the task constraints struct tags cannot express.
func checkTask(entity string, task *model.Task) []Violation {
	var out []Violation
	if err := task.Priority.Band.Validate(); err != nil {
		out = append(out, Violation{
			Domain:  model.DomainTasks,
			Kind:    KindConstraint,
			Entity:  entity,
			Field:   "priority",
			Message: fmt.Sprintf("invalid priority '%s'", task.Priority.Band),
		})
	}
	for _, sub := range task.SubscribesTo {
		if sub.Depth != nil && *sub.Depth <= 0 {
			out = append(out, Violation{
				Domain:  model.DomainTasks,
				Kind:    KindConstraint,
				Entity:  entity,
				Field:   "subscribes_to",
				Message: fmt.Sprintf("subscription '%s': depth must be a positive integer, got %d", sub.Channel, *sub.Depth),
			})
		}
	}
	return out
}

// checkPositive reports a present but non-positive tunable. Explicit
// zeroes must fail here, which struct tags cannot express on pointer
// fields.
func checkPositive(domain model.Domain, entity, field string, value *int) []Violation {
	if value == nil || *value > 0 {
		return nil
	}
	return []Violation{{
		Domain:  domain,
		Kind:    KindConstraint,
		Entity:  entity,
		Field:   field,
		Message: fmt.Sprintf("field '%s' must be a positive integer, got %d", field, *value),
	}}
}

// taskCrossChecks covers uniqueness and referential integrity across the
// task/messaging domain.
func taskCrossChecks(domain *model.TaskDomain) []Violation {
	var out []Violation

	out = append(out, duplicateNames(model.DomainTasks, "task", taskNames(domain.Tasks))...)
	out = append(out, duplicateNames(model.DomainTasks, "message", messageNames(domain.Messages))...)
	out = append(out, duplicateNames(model.DomainTasks, "channel", channelNames(domain.Channels))...)

	messages := make(map[string]bool, len(domain.Messages))
	for _, m := range domain.Messages {
		messages[m.Name] = true
	}
	channels := make(map[string]bool, len(domain.Channels))
	for _, c := range domain.Channels {
		channels[c.Name] = true
	}

	for _, c := range domain.Channels {
		if c.MessageType != "" && !messages[c.MessageType] {
			out = append(out, Violation{
				Domain:  model.DomainTasks,
				Kind:    KindReference,
				Entity:  entityRef("channel", c.Name),
				Field:   "message_type",
				Message: fmt.Sprintf("references undeclared message type '%s'", c.MessageType),
			})
		}
	}
	for _, t := range domain.Tasks {
		for _, sub := range t.SubscribesTo {
			if sub.Channel != "" && !channels[sub.Channel] {
				out = append(out, Violation{
					Domain:  model.DomainTasks,
					Kind:    KindReference,
					Entity:  entityRef("task", t.Name),
					Field:   "subscribes_to",
					Message: fmt.Sprintf("subscribes to undeclared channel '%s'", sub.Channel),
				})
			}
		}
		for _, pub := range t.PublishesTo {
			if pub != "" && !channels[pub] {
				out = append(out, Violation{
					Domain:  model.DomainTasks,
					Kind:    KindReference,
					Entity:  entityRef("task", t.Name),
					Field:   "publishes_to",
					Message: fmt.Sprintf("publishes to undeclared channel '%s'", pub),
				})
			}
		}
	}
	return out
}

// packetCrossChecks covers uniqueness across the packet domain.
func packetCrossChecks(domain *model.PacketDomain) []Violation {
	var out []Violation

	names := make([]string, 0, len(domain.Opcodes))
	for _, op := range domain.Opcodes {
		names = append(names, op.Name)
	}
	out = append(out, duplicateNames(model.DomainPacket, "opcode", names)...)

	byCode := make(map[int]string, len(domain.Opcodes))
	for _, op := range domain.Opcodes {
		if op.Code == nil {
			continue
		}
		code := int(*op.Code)
		if first, ok := byCode[code]; ok {
			out = append(out, Violation{
				Domain:  model.DomainPacket,
				Kind:    KindUniqueness,
				Entity:  entityRef("opcode", op.Name),
				Field:   "code",
				Message: fmt.Sprintf("code 0x%02X already used by '%s'", code, first),
			})
			continue
		}
		byCode[code] = op.Name
	}
	return out
}

// commandCrossChecks covers uniqueness across the command domain.
func commandCrossChecks(domain *model.CommandDomain) []Violation {
	var out []Violation

	names := make([]string, 0, len(domain.Commands))
	for _, cmd := range domain.Commands {
		names = append(names, cmd.Name)
	}
	out = append(out, duplicateNames(model.DomainCommands, "command", names)...)

	byOpcode := make(map[int]string, len(domain.Commands))
	for _, cmd := range domain.Commands {
		if cmd.Opcode == nil {
			continue
		}
		code := int(*cmd.Opcode)
		if first, ok := byOpcode[code]; ok {
			out = append(out, Violation{
				Domain:  model.DomainCommands,
				Kind:    KindUniqueness,
				Entity:  entityRef("command", cmd.Name),
				Field:   "opcode",
				Message: fmt.Sprintf("opcode 0x%02X already used by '%s'", code, first),
			})
			continue
		}
		byOpcode[code] = cmd.Name
	}
	return out
}

// duplicateNames reports every repeated name after its first appearance.
func duplicateNames(domain model.Domain, kind string, names []string) []Violation {
	var out []Violation
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			out = append(out, Violation{
				Domain:  domain,
				Kind:    KindUniqueness,
				Entity:  entityRef(kind, name),
				Field:   "name",
				Message: "duplicate name",
			})
			continue
		}
		seen[name] = true
	}
	return out
}

func taskNames(tasks []model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Name)
	}
	return out
}

func messageNames(messages []model.Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Name)
	}
	return out
}

func channelNames(channels []model.Channel) []string {
	out := make([]string, 0, len(channels))
	for _, c := range channels {
		out = append(out, c.Name)
	}
	return out
}
