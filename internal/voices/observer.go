package voices

import "time"

// EventKind identifies a catalog state change
type EventKind int

const (
	// EventRegistered is sent after a register callback returned a handle
	EventRegistered EventKind = iota
	// EventRegisterFailed is sent when a register callback failed
	EventRegisterFailed
	// EventUnregistered is sent after a handle was released
	EventUnregistered
	// EventLookupHit is sent when HandleFor found a voice
	EventLookupHit
	// EventLookupMiss is sent when HandleFor found no voice
	EventLookupMiss
)

func (k EventKind) String() string {
	switch k {
	case EventRegistered:
		return "registered"
	case EventRegisterFailed:
		return "register_failed"
	case EventUnregistered:
		return "unregistered"
	case EventLookupHit:
		return "lookup_hit"
	case EventLookupMiss:
		return "lookup_miss"
	}
	return "unknown"
}

// Event describes one catalog state change.
// Latency is set for register events; Err for failures, including an
// unregister callback that returned an error.
type Event struct {
	Kind    EventKind
	Locale  Locale
	Err     error
	Latency time.Duration
}

// Observer receives catalog events. Observe runs while the catalog lock is
// held and must not call back into the catalog.
type Observer interface {
	Observe(e Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(e Event)

// Observe calls f(e)
func (f ObserverFunc) Observe(e Event) {
	f(e)
}

// Observers fans an event out to several observers in order
type Observers []Observer

// Observe forwards e to every non-nil observer
func (o Observers) Observe(e Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(e)
		}
	}
}
