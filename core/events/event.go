package events

// Event is a structured state change emitted by an engine.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (RPC, metrics,
// indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events.
// Engines default to it so emission is always safe to call.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}
