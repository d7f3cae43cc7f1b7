// Package core is the orchestration layer.  It composes transports,
// the chat protocol and the gateway into complete operational modes
// and provides a builder that selects the right mode from a Config.
//
// Architecture layers (bottom → top):
//
//	transport  →  session  →  chat  →  core  →  cmd (CLI)
package core

import "context"

// Mode is a complete operational mode of tcpchat: the chat server
// (ListenMode) or the terminal client (ConnectMode).  Each mode owns
// its full lifecycle from establishing connections to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
