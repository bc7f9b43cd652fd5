package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a compile-run event published during a forge run.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies the pipeline component that published the event.
	Source string `json:"source"`

	// RunID is the associated run ID, if applicable.
	RunID string `json:"run_id,omitempty"`

	// Domain is the associated config domain (task, packet, command).
	Domain string `json:"domain,omitempty"`

	// Path is the associated config file or artifact path, if applicable.
	Path string `json:"path,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for common event types.
const (
	EventTypeRunStarted        = "run.started"
	EventTypeRunCompleted      = "run.completed"
	EventTypeRunFailed         = "run.failed"
	EventTypeDomainValidated   = "domain.validated"
	EventTypeDomainFailed      = "domain.failed"
	EventTypeViolationReported = "violation.reported"
	EventTypeTopicsAllocated   = "topics.allocated"
	EventTypeArtifactWritten   = "artifact.written"
	EventTypeError             = "error"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events. Subscribers run on the
// publishing goroutine when async delivery is disabled, so they must not
// block.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher manages event publishing and subscriptions.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	filters     []EventFilter
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config:      cfg,
		subscribers: make([]subscriberEntry, 0),
		filters:     make([]EventFilter, 0),
		ctx:         ctx,
		cancel:      cancel,
	}

	// Start the event processing goroutine
	if cfg.EnableAsync {
		ep.buffer = make(chan Event, cfg.BufferSize)
		ep.wg.Add(1)
		go ep.processEvents()
	}

	return ep, nil
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	// Set ID and timestamp if not already set
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Apply global filters
	ep.mu.RLock()
	for _, filter := range ep.filters {
		if !filter(event) {
			ep.mu.RUnlock()
			return nil // Event filtered out
		}
	}
	ep.mu.RUnlock()

	// Send to buffer if async, otherwise deliver immediately
	if ep.config.EnableAsync {
		select {
		case ep.buffer <- event:
			return nil
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	// Synchronous delivery preserves event ordering
	ep.deliverEvent(event)
	return nil
}

// PublishRunStarted publishes a run started event.
func (ep *EventPublisher) PublishRunStarted(runID, root string) error {
	return ep.Publish(Event{
		Type:    EventTypeRunStarted,
		Source:  "pipeline",
		RunID:   runID,
		Path:    root,
		Message: fmt.Sprintf("Run %s started for config root %s", runID, root),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"root": root,
		},
	})
}

// PublishRunCompleted publishes a run completed event.
func (ep *EventPublisher) PublishRunCompleted(runID, status string, duration time.Duration) error {
	return ep.Publish(Event{
		Type:    EventTypeRunCompleted,
		Source:  "pipeline",
		RunID:   runID,
		Message: fmt.Sprintf("Run %s completed with status: %s", runID, status),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"status":   status,
			"duration": duration.Seconds(),
		},
	})
}

// PublishRunFailed publishes a run failed event.
func (ep *EventPublisher) PublishRunFailed(runID, reason string) error {
	return ep.Publish(Event{
		Type:    EventTypeRunFailed,
		Source:  "pipeline",
		RunID:   runID,
		Message: fmt.Sprintf("Run %s failed: %s", runID, reason),
		Level:   EventLevelError,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishDomainValidated publishes a domain validated event.
func (ep *EventPublisher) PublishDomainValidated(runID, domain string, records int) error {
	return ep.Publish(Event{
		Type:    EventTypeDomainValidated,
		Source:  "validator",
		RunID:   runID,
		Domain:  domain,
		Message: fmt.Sprintf("Domain %s validated (%d records)", domain, records),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"records": records,
		},
	})
}

// PublishDomainFailed publishes a domain failed event.
func (ep *EventPublisher) PublishDomainFailed(runID, domain string, violations int) error {
	return ep.Publish(Event{
		Type:    EventTypeDomainFailed,
		Source:  "validator",
		RunID:   runID,
		Domain:  domain,
		Message: fmt.Sprintf("Domain %s failed validation with %d violation(s)", domain, violations),
		Level:   EventLevelError,
		Data: map[string]interface{}{
			"violations": violations,
		},
	})
}

// PublishViolation publishes a single validation violation event.
func (ep *EventPublisher) PublishViolation(runID, domain, entity, kind, message string) error {
	return ep.Publish(Event{
		Type:    EventTypeViolationReported,
		Source:  "validator",
		RunID:   runID,
		Domain:  domain,
		Message: fmt.Sprintf("Violation [%s]: %s", kind, message),
		Level:   EventLevelWarning,
		Data: map[string]interface{}{
			"kind":   kind,
			"entity": entity,
		},
	})
}

// PublishTopicsAllocated publishes a topic allocation event.
func (ep *EventPublisher) PublishTopicsAllocated(runID string, channels int) error {
	return ep.Publish(Event{
		Type:    EventTypeTopicsAllocated,
		Source:  "allocator",
		RunID:   runID,
		Message: fmt.Sprintf("Allocated topic IDs for %d channel(s)", channels),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"channels": channels,
		},
	})
}

// PublishArtifactWritten publishes an artifact written event.
func (ep *EventPublisher) PublishArtifactWritten(runID, domain, path string) error {
	return ep.Publish(Event{
		Type:    EventTypeArtifactWritten,
		Source:  "emitter",
		RunID:   runID,
		Domain:  domain,
		Path:    path,
		Message: fmt.Sprintf("Wrote %s", path),
		Level:   EventLevelInfo,
	})
}

// Subscribe adds a new event subscriber.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// processEvents processes events from the buffer asynchronously. Partial
// batches are flushed on a timer so events are not held back indefinitely.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	flushInterval := ep.config.FlushInterval
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, ep.config.MaxBatchSize)

	for {
		select {
		case event := <-ep.buffer:
			batch = append(batch, event)

			// Flush batch if it reaches max size
			if len(batch) >= ep.config.MaxBatchSize {
				ep.flushBatch(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				ep.flushBatch(batch)
				batch = batch[:0]
			}

		case <-ep.ctx.Done():
			// Drain the buffer and flush remaining events before shutting down
			for {
				select {
				case event := <-ep.buffer:
					batch = append(batch, event)
				default:
					if len(batch) > 0 {
						ep.flushBatch(batch)
					}
					return
				}
			}
		}
	}
}

// flushBatch delivers a batch of events to subscribers.
func (ep *EventPublisher) flushBatch(events []Event) {
	for _, event := range events {
		ep.deliverEvent(event)
	}
}

// deliverEvent delivers an event to all subscribers.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		// Apply subscriber-specific filter
		if entry.filter != nil && !entry.filter(event) {
			continue
		}

		entry.subscriber(event)
	}
}

// Shutdown gracefully shuts down the event publisher.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled || !ep.config.EnableAsync {
		return nil
	}

	// Signal shutdown
	ep.cancel()

	// Wait for processing to complete with timeout
	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// Common event filters.

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByRunID creates a filter that only allows events for a specific run.
func FilterByRunID(runID string) EventFilter {
	return func(event Event) bool {
		return event.RunID == runID
	}
}

// FilterByDomain creates a filter that only allows events for a specific domain.
func FilterByDomain(domain string) EventFilter {
	return func(event Event) bool {
		return event.Domain == domain
	}
}
