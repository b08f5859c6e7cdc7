// Package session routes events between the terminal and the server.
// One goroutine runs the router and owns the line editor; the console
// and the stream only feed it events over channels.
//
// The conversation alternates: type a line, send it, render whatever
// the server answers, prompt again.  Remote data arriving after the
// connection dropped ends the session; whatever the stream queued
// before its closing event is still rendered.
package session

import (
	"context"
	"fmt"

	"imapcli/internal/event"
	"imapcli/internal/metrics"
	"imapcli/internal/transcript"
	"imapcli/util"
)

// Editor is the part of the line editor the router drives.
type Editor interface {
	Process(chunk []byte) bool
	Get() []byte
	Output(b []byte)
	Ready()
}

// Sender is the part of the socket stream the router drives.
type Sender interface {
	WriteData(b []byte) bool
	Connected() bool
}

// State is the router's position in the conversation.
type State int

const (
	AwaitingInput State = iota
	AwaitingResponse
	Terminated
)

func (s State) String() string {
	switch s {
	case AwaitingInput:
		return "awaiting-input"
	case AwaitingResponse:
		return "awaiting-response"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var crlf = []byte{'\r', '\n'}

// Router sequences one interactive session.
type Router struct {
	editor  Editor
	stream  Sender
	sink    transcript.Sink
	logger  *util.Logger
	metrics *metrics.Collector

	state State
}

// New returns a Router in AwaitingInput.  sink and m may be nil.
func New(editor Editor, stream Sender, sink transcript.Sink, logger *util.Logger, m *metrics.Collector) *Router {
	if sink == nil {
		sink = transcript.Discard{}
	}
	return &Router{editor: editor, stream: stream, sink: sink, logger: logger, metrics: m}
}

// State returns the current state.  Only meaningful from the goroutine
// running Run, or after Run has returned.
func (r *Router) State() State { return r.state }

// Run dispatches events until the server side closes or ctx is done.
// A closed local channel only stops local input; the session continues
// until the server side ends.
func (r *Router) Run(ctx context.Context, local, remote <-chan event.Event) error {
	for r.state != Terminated {
		select {
		case <-ctx.Done():
			r.logger.Debug("session: interrupted")
			r.state = Terminated

		case ev, ok := <-local:
			if !ok {
				r.logger.Debug("session: local input closed")
				local = nil
				continue
			}
			r.Handle(ev)

		case ev, ok := <-remote:
			if !ok {
				ev = event.Closed()
			}
			r.Handle(ev)
			if r.state == Terminated && ev.Kind == event.RemoteData {
				r.drain(ctx, remote)
			}
		}
	}
	return nil
}

// drain renders the data the stream raised before its closing event.
// Local input is no longer read.
func (r *Router) drain(ctx context.Context, remote <-chan event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-remote:
			if !ok || ev.Kind != event.RemoteData {
				return
			}
			r.sink.Write("S: " + string(ev.Data))
			r.editor.Output(ev.Data)
		}
	}
}

// Handle applies a single event.
func (r *Router) Handle(ev event.Event) {
	if r.state == Terminated {
		return
	}
	switch ev.Kind {
	case event.LocalInput:
		r.local(ev.Data)
	case event.RemoteData:
		r.remote(ev.Data)
	case event.RemoteClosed:
		r.logger.Debug("session: server side closed")
		r.state = Terminated
	}
}

func (r *Router) local(chunk []byte) {
	r.metrics.Keystrokes(int64(len(chunk)))
	if !r.editor.Process(chunk) {
		return
	}

	line := append(r.editor.Get(), crlf...)
	if r.stream.WriteData(line) {
		r.sink.Write("C: " + string(line))
		r.metrics.LineSent()
		r.state = AwaitingResponse
	} else {
		r.metrics.SendFailed()
		r.logger.Verbose("session: line not sent (%d bytes)", len(line))
	}
	r.editor.Ready()
}

func (r *Router) remote(data []byte) {
	r.sink.Write("S: " + string(data))
	r.editor.Output(data)

	if r.stream.Connected() {
		r.editor.Ready()
		r.state = AwaitingInput
		return
	}
	r.logger.Debug("session: connection gone after remote data")
	r.state = Terminated
}
