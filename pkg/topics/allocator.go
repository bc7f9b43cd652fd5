package topics

import (
	"fmt"
	"hash/fnv"

	"github.com/rs/zerolog"
)

// Topic identifier band. Values below BandStart and above BandEnd are
// reserved for the runtime.
const (
	BandStart = 0x1000
	BandEnd   = 0xEFFF
	BandSize  = BandEnd - BandStart + 1
)

// HashName folds the 32-bit FNV-1a hash of a channel name to 16 bits.
func HashName(name string) uint16 {
	h := fnv.New32a()
	h.Write([]byte(name))
	v := h.Sum32()
	v ^= v >> 16
	return uint16(v)
}

// Allocation is one name to identifier assignment.
type Allocation struct {
	// Name is the channel name.
	Name string `json:"name"`

	// ID is the allocated topic identifier.
	ID uint16 `json:"id"`
}

// Table holds one run's topic identifier assignments in allocation
// order.
type Table struct {
	order []Allocation
	ids   map[string]uint16
}

// Len returns the number of allocated identifiers.
func (t *Table) Len() int {
	return len(t.order)
}

// IDFor returns the identifier allocated to a channel name.
func (t *Table) IDFor(name string) (uint16, bool) {
	id, ok := t.ids[name]
	return id, ok
}

// Allocations returns the assignments in allocation order.
func (t *Table) Allocations() []Allocation {
	out := make([]Allocation, len(t.order))
	copy(out, t.order)
	return out
}

// Allocator assigns topic identifiers to channel names.
type Allocator struct {
	logger zerolog.Logger
}

// NewAllocator creates an allocator.
func NewAllocator(logger zerolog.Logger) *Allocator {
	return &Allocator{
		logger: logger.With().Str("component", "topics").Logger(),
	}
}

// Allocate assigns an identifier to every name, in order. Names hashing
// to an identifier already taken in this run probe linearly forward
// through the band, wrapping at the band end. A repeated name keeps its
// first assignment. Allocate fails only when the band is exhausted.
func (a *Allocator) Allocate(names []string) (*Table, error) {
	table := &Table{ids: make(map[string]uint16, len(names))}
	taken := make(map[int]string, len(names))

	for _, name := range names {
		if _, ok := table.ids[name]; ok {
			continue
		}
		id := BandStart + int(HashName(name))%BandSize
		probes := 0
		for {
			if _, used := taken[id]; !used {
				break
			}
			probes++
			if probes >= BandSize {
				return nil, fmt.Errorf("topic identifier band exhausted after %d channels", len(taken))
			}
			id = BandStart + (id-BandStart+1)%BandSize
		}
		taken[id] = name
		table.ids[name] = uint16(id)
		table.order = append(table.order, Allocation{Name: name, ID: uint16(id)})

		event := a.logger.Debug().Str("channel", name).Str("id", fmt.Sprintf("0x%04X", id))
		if probes > 0 {
			event = event.Int("probes", probes)
		}
		event.Msg("Allocated topic identifier")
	}

	return table, nil
}
