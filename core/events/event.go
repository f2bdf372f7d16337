package events

// Event is a structured record of a state change produced by one of the
// native engines. Attributes are stringly typed so downstream consumers
// (API event buffer, log sinks, indexers) can forward them without decoding.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Emitter receives events as they are produced by an engine.
type Emitter interface {
	Emit(*Event)
}

// NoopEmitter satisfies Emitter while discarding everything. Engines default
// to it so event wiring stays optional.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(*Event) {}

// Recorder buffers emitted events in order. It backs the API's recent-events
// view and keeps engine tests free of channel plumbing.
type Recorder struct {
	events []*Event
	limit  int
}

// NewRecorder constructs a Recorder retaining at most limit events; a limit
// of zero keeps everything.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(evt *Event) {
	if r == nil || evt == nil {
		return
	}
	r.events = append(r.events, evt)
	if r.limit > 0 && len(r.events) > r.limit {
		r.events = r.events[len(r.events)-r.limit:]
	}
}

// Events returns the buffered events oldest first.
func (r *Recorder) Events() []*Event {
	if r == nil {
		return nil
	}
	out := make([]*Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset discards all buffered events.
func (r *Recorder) Reset() {
	if r != nil {
		r.events = r.events[:0]
	}
}
