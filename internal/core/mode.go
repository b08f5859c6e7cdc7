// Package core is the orchestration layer.  It wires the console, the
// line editor, the socket stream and the router into one interactive
// session and provides a builder that derives it from a Config.
//
// Architecture layers (bottom → top):
//
//	transport → stream ┐
//	console → lineedit ┴→ session → core → cmd (CLI)
package core

import "context"

// Mode represents a complete operational mode of imapcli.  A mode owns
// its full lifecycle from connection establishment to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
