package ocr

// Status tells whether a recognition call produced an answer.
type Status int

const (
	StatusRecognized Status = iota
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusRecognized:
		return "recognized"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Result is the outcome of a recognition call. A recognized result may still
// carry empty text when the region holds nothing legible.
type Result struct {
	Status Status
	Text   string
	Err    error
}

func Recognized(text string) Result {
	return Result{Status: StatusRecognized, Text: text}
}

func Unavailable(err error) Result {
	return Result{Status: StatusUnavailable, Err: err}
}

func (r Result) OK() bool {
	return r.Status == StatusRecognized
}

// String collapses the result to plain text; unavailable results become "".
func (r Result) String() string {
	if r.Status != StatusRecognized {
		return ""
	}
	return r.Text
}
