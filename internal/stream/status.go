package stream

// Status is the state of one half of the stream.
//
//	NotOpen → Opening → Open ⇄ Reading/Writing → AtEnd/Error → Closed
type Status int

const (
	NotOpen Status = iota
	Opening
	Open
	Reading
	Writing
	AtEnd
	Error
	Closed
)

var statusNames = [...]string{
	NotOpen: "not-open",
	Opening: "opening",
	Open:    "open",
	Reading: "reading",
	Writing: "writing",
	AtEnd:   "at-end",
	Error:   "error",
	Closed:  "closed",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// transitions lists the legal successors of each status.
var transitions = map[Status][]Status{
	NotOpen: {Opening, Closed},
	Opening: {Open, Error, Closed},
	Open:    {Reading, Writing, AtEnd, Error, Closed},
	Reading: {Open, AtEnd, Error, Closed},
	Writing: {Open, Error, Closed},
	AtEnd:   {Closed},
	Error:   {Closed},
	Closed:  nil,
}

// CanMove reports whether a half may go from s to to.
func (s Status) CanMove(to Status) bool {
	for _, n := range transitions[s] {
		if n == to {
			return true
		}
	}
	return false
}

// half is one direction of the connection.  Guarded by Stream.mu.
type half struct {
	status Status
}

// move applies a transition, ignoring illegal ones.  It reports whether
// the status changed.
func (h *half) move(to Status) bool {
	if !h.status.CanMove(to) {
		return false
	}
	h.status = to
	return true
}
