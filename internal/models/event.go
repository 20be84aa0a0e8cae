package models

// EventKind identifies the type of a job event.
type EventKind string

const (
	EventProgress EventKind = "progress"
	EventDone     EventKind = "done"
	EventError    EventKind = "error"
)

// Event is emitted by an extraction job. Progress events carry Percent;
// the single terminal event is either EventDone with Result or EventError with Message.
type Event struct {
	Kind    EventKind
	Percent int
	Result  *DocumentResult
	Message string
}

func (e Event) Terminal() bool {
	return e.Kind == EventDone || e.Kind == EventError
}
