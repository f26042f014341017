package deliberation

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/parliament/types"
)

// EventType identifies a deliberation progress event.
type EventType string

const (
	EventRoundStarted    EventType = "round_started"
	EventAnalystDone     EventType = "analyst_completed"
	EventAnalystFailed   EventType = "analyst_failed"
	EventRoundCompleted  EventType = "round_completed"
	EventConsensus       EventType = "consensus_reached"
	EventDeadEnd         EventType = "dead_end"
	EventAwaitingHuman   EventType = "awaiting_continuation"
	EventBudgetExhausted EventType = "budget_exhausted"
	EventSessionCreated  EventType = "session_created"
	EventSessionCancel   EventType = "session_cancelled"
	EventFeedback        EventType = "feedback_received"
)

// Event is one progress notification. Consumers use these to stream round
// progress to a UI or chat front end; the engine never blocks on them.
type Event struct {
	Type      EventType      `json:"type"`
	SessionID string         `json:"session_id,omitempty"`
	ProjectID string         `json:"project_id,omitempty"`
	Round     int            `json:"round,omitempty"`
	AgentID   string         `json:"agent_id,omitempty"`
	Decision  types.Decision `json:"decision,omitempty"`
	Detail    string         `json:"detail,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// EventHandler consumes events. Handlers run on their own goroutines and must
// not assume ordering across event types.
type EventHandler func(Event)

// EventBus distributes progress events to subscribers.
type EventBus interface {
	Publish(event Event)
	Subscribe(eventType EventType, handler EventHandler) string
	Unsubscribe(subscriptionID string)
	Stop()
}

// subscriptionCounter generates unique subscription ids.
var subscriptionCounter int64

// SimpleEventBus is a buffered, drop-on-overflow EventBus. Losing a progress
// event is acceptable; blocking a deliberation round is not.
type SimpleEventBus struct {
	mu       sync.RWMutex
	handlers map[EventType]map[string]EventHandler
	events   chan Event
	done     chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

// NewEventBus creates a started event bus.
func NewEventBus(logger *zap.Logger) *SimpleEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	bus := &SimpleEventBus{
		handlers: make(map[EventType]map[string]EventHandler),
		events:   make(chan Event, 100),
		done:     make(chan struct{}),
		logger:   logger,
	}
	go bus.process()
	return bus
}

// Publish enqueues an event. Drops when the buffer is full or the bus is
// stopped.
func (b *SimpleEventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case b.events <- event:
	case <-b.done:
	default:
	}
}

// Subscribe registers a handler for one event type and returns the
// subscription id.
func (b *SimpleEventBus) Subscribe(eventType EventType, handler EventHandler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[string]EventHandler)
	}
	id := fmt.Sprintf("%s-%d", eventType, atomic.AddInt64(&subscriptionCounter, 1))
	b.handlers[eventType][id] = handler
	return id
}

// Unsubscribe removes a subscription.
func (b *SimpleEventBus) Unsubscribe(subscriptionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, handlers := range b.handlers {
		if _, ok := handlers[subscriptionID]; ok {
			delete(handlers, subscriptionID)
			if len(handlers) == 0 {
				delete(b.handlers, eventType)
			}
			return
		}
	}
}

func (b *SimpleEventBus) process() {
	for {
		select {
		case event := <-b.events:
			b.mu.RLock()
			src := b.handlers[event.Type]
			handlers := make([]EventHandler, 0, len(src))
			for _, h := range src {
				handlers = append(handlers, h)
			}
			b.mu.RUnlock()

			for _, handler := range handlers {
				h := handler
				go func() {
					defer func() {
						if r := recover(); r != nil {
							b.logger.Error("event handler panicked", zap.Any("recover", r))
						}
					}()
					h(event)
				}()
			}
		case <-b.done:
			return
		}
	}
}

// Stop shuts the bus down. Safe to call more than once.
func (b *SimpleEventBus) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
	})
}

// nopBus swallows everything; used when no bus is configured.
type nopBus struct{}

func (nopBus) Publish(Event)                            {}
func (nopBus) Subscribe(EventType, EventHandler) string { return "" }
func (nopBus) Unsubscribe(string)                       {}
func (nopBus) Stop()                                    {}
