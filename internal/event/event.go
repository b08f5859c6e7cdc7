// Package event defines the typed values the console and the socket
// stream hand to the session router.
package event

import "fmt"

// Kind tags an Event.
type Kind int

const (
	// LocalInput carries bytes typed (or pasted) on the local terminal.
	LocalInput Kind = iota
	// RemoteData carries bytes received from the server.
	RemoteData
	// RemoteClosed reports that the stream's read loop has ended.
	RemoteClosed
)

func (k Kind) String() string {
	switch k {
	case LocalInput:
		return "local-input"
	case RemoteData:
		return "remote-data"
	case RemoteClosed:
		return "remote-closed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one occurrence delivered to the router.  Data is owned by
// the receiver; producers never reuse it.
type Event struct {
	Kind Kind
	Data []byte
}

// Local builds a LocalInput event.
func Local(b []byte) Event { return Event{Kind: LocalInput, Data: b} }

// Remote builds a RemoteData event.
func Remote(b []byte) Event { return Event{Kind: RemoteData, Data: b} }

// Closed builds a RemoteClosed event.
func Closed() Event { return Event{Kind: RemoteClosed} }
