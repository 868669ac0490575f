package chain

import (
	"fmt"
	"sync"

	"github.com/VictoriaMetrics/metrics"
)

// EventKind names the submission operation an event was deposited for.
type EventKind uint8

const (
	EventConnectionRequested EventKind = iota
	EventDisconnectRequested
	EventQueuedDataToAdd
	EventQueuedDataToCat
	EventQueuedDataToPin
	EventQueuedDataToRemove
	EventQueuedDataToUnpin
	EventFindPeerIssued
	EventFindProvidersIssued
)

func (k EventKind) String() string {
	switch k {
	case EventConnectionRequested:
		return "ConnectionRequested"
	case EventDisconnectRequested:
		return "DisconnectRequested"
	case EventQueuedDataToAdd:
		return "QueuedDataToAdd"
	case EventQueuedDataToCat:
		return "QueuedDataToCat"
	case EventQueuedDataToPin:
		return "QueuedDataToPin"
	case EventQueuedDataToRemove:
		return "QueuedDataToRemove"
	case EventQueuedDataToUnpin:
		return "QueuedDataToUnpin"
	case EventFindPeerIssued:
		return "FindPeerIssued"
	case EventFindProvidersIssued:
		return "FindProvidersIssued"
	default:
		return "Unknown"
	}
}

// Event records that an account's submission was accepted and queued.
type Event struct {
	Kind    EventKind
	Account AccountID
}

// IEventSink receives one event per accepted submission.
type IEventSink interface {
	Deposit(e Event)
}

// EventLog is an in-memory event sink keeping the most recent events.
type EventLog struct {
	mu     sync.Mutex
	events []Event
	limit  int
}

// NewEventLog creates an event log that retains at most limit events.
func NewEventLog(limit int) *EventLog {
	return &EventLog{limit: limit}
}

func (l *EventLog) Deposit(e Event) {
	log.Infof("event %s deposited by %s", e.Kind, e.Account)
	metrics.GetOrCreateCounter(fmt.Sprintf(`dipfs_chain_events_total{kind=%q}`, e.Kind)).Inc()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	if len(l.events) > l.limit {
		l.events = l.events[len(l.events)-l.limit:]
	}
}

// Recent returns a copy of the retained events, oldest first.
func (l *EventLog) Recent() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}
