// Package session is the composition root for a drawing session. A Session
// owns the agent registry, the rendezvous barrier, the scheduler config and
// the scheduler itself, and hands out Agent handles bound to it.
//
// One Session is expected per process. The scheduler goroutine starts lazily
// when the first agent is created and runs until the session context is
// cancelled or the renderer fails. Every Agent mutation blocks until a tick
// that observed the change has been rendered.
package session
