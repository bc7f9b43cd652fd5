package aggregate

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/firmforge/firmforge/pkg/document"
	"github.com/firmforge/firmforge/pkg/model"
)

// Aggregator merges loaded documents into canonical domain documents.
type Aggregator struct {
	logger zerolog.Logger
}

// NewAggregator creates an aggregator.
func NewAggregator(logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		logger: logger.With().Str("component", "aggregate").Logger(),
	}
}

// Merge folds the documents, in order, into the three canonical domain
// documents. Earlier documents establish records and keys; later
// documents override them.
func (a *Aggregator) Merge(docs []document.Document) *Result {
	var (
		tasks    = newRecordSet()
		messages = newRecordSet()
		channels = newRecordSet()
		opcodes  = newRecordSet()
		commands = newRecordSet()

		messaging = make(map[string]any)
		packet    = make(map[string]any)
		config    = make(map[string]any)
	)

	for _, doc := range docs {
		a.mergeRecords(tasks, doc, model.KeyTasks, "")
		a.mergeRecords(messages, doc, model.KeyMessages, "")
		a.mergeRecords(channels, doc, model.KeyChannels, "")
		a.mergeRecords(opcodes, doc, model.KeyOpcodes, "code")
		a.mergeRecords(commands, doc, model.KeyCommands, "opcode")

		a.mergeMapping(messaging, doc, model.KeyMessaging)
		a.mergeMapping(packet, doc, model.KeyPacket)
		a.mergeMapping(config, doc, model.KeyConfig)
	}

	res := &Result{
		Tasks: TaskDoc{
			Tasks:     tasks.records(),
			Messages:  messages.records(),
			Channels:  channels.records(),
			Messaging: messaging,
		},
		Packet: PacketDoc{
			Packet:  packet,
			Opcodes: opcodes.records(),
		},
		Commands: CommandDoc{
			Commands: commands.records(),
			Config:   config,
		},
	}
	res.Tasks.Found = len(res.Tasks.Tasks)+len(res.Tasks.Messages)+len(res.Tasks.Channels)+len(res.Tasks.Messaging) > 0
	res.Packet.Found = len(res.Packet.Packet)+len(res.Packet.Opcodes) > 0
	res.Commands.Found = len(res.Commands.Commands)+len(res.Commands.Config) > 0
	return res
}

// mergeRecords folds one named-record section of a document into a set.
// numericField, when set, names the record field whose byte value must
// stay unique across names: an incoming record evicts any differently
// named record holding the same value.
func (a *Aggregator) mergeRecords(set *recordSet, doc document.Document, key, numericField string) {
	raw, ok := doc.Data[key]
	if !ok || raw == nil {
		return
	}
	items, ok := raw.([]any)
	if !ok {
		a.logger.Warn().Str("file", doc.Path).Str("section", key).
			Msgf("Skipping section: expected a list, got %T", raw)
		return
	}
	for i, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			a.logger.Warn().Str("file", doc.Path).Str("section", key).
				Msgf("Skipping entry %d: expected a mapping, got %T", i, item)
			continue
		}
		name, ok := recordName(fields)
		if !ok {
			a.logger.Warn().Str("file", doc.Path).Str("section", key).
				Msgf("Skipping entry %d: no usable name", i)
			continue
		}
		if numericField != "" {
			if value, ok := model.ParseByte(fields[numericField]); ok {
				for _, evicted := range set.evictValue(numericField, value, name) {
					a.logger.Warn().Str("file", doc.Path).Str("section", key).
						Msgf("Evicting '%s': %s 0x%02X reassigned to '%s'", evicted, numericField, value, name)
				}
			}
		}
		set.put(Record{Name: name, Fields: fields})
	}
}

// mergeMapping shallow-merges one root mapping of a document. Null
// values are dropped: they neither overwrite nor establish a key.
func (a *Aggregator) mergeMapping(dst map[string]any, doc document.Document, key string) {
	raw, ok := doc.Data[key]
	if !ok || raw == nil {
		return
	}
	mapping, ok := raw.(map[string]any)
	if !ok {
		a.logger.Warn().Str("file", doc.Path).Str("section", key).
			Msgf("Skipping section: expected a mapping, got %T", raw)
		return
	}
	for k, v := range mapping {
		if v == nil {
			continue
		}
		dst[k] = v
	}
}

// recordName extracts the merge identity of a raw record. Scalar names
// are stringified so malformed names still reach validation; records
// with a missing or container-valued name cannot be keyed at all.
func recordName(fields map[string]any) (string, bool) {
	v, ok := fields["name"]
	if !ok || v == nil {
		return "", false
	}
	switch v.(type) {
	case map[string]any, []any:
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprintf("%v", v), true
}

// recordSet is an ordered, name-keyed record collection.
type recordSet struct {
	names  []string
	byName map[string]Record
}

func newRecordSet() *recordSet {
	return &recordSet{byName: make(map[string]Record)}
}

// put inserts a record, replacing in place if the name already exists.
func (s *recordSet) put(rec Record) {
	if _, ok := s.byName[rec.Name]; !ok {
		s.names = append(s.names, rec.Name)
	}
	s.byName[rec.Name] = rec
}

// evictValue removes every record, except keep, whose field parses to
// the given byte value. It returns the evicted names in order.
func (s *recordSet) evictValue(field string, value int, keep string) []string {
	var evicted []string
	for _, name := range s.names {
		if name == keep {
			continue
		}
		if v, ok := model.ParseByte(s.byName[name].Fields[field]); ok && v == value {
			evicted = append(evicted, name)
		}
	}
	for _, name := range evicted {
		s.remove(name)
	}
	return evicted
}

func (s *recordSet) remove(name string) {
	if _, ok := s.byName[name]; !ok {
		return
	}
	delete(s.byName, name)
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			break
		}
	}
}

// records returns the set's records in first-appearance order.
func (s *recordSet) records() []Record {
	out := make([]Record, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, s.byName[name])
	}
	return out
}
