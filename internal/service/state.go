package service

import (
	"fmt"
	"sync"
)

// State is the lifecycle state of a QA session.
type State int

const (
	// StateLoading - transcripts are being read, chunked and embedded.
	StateLoading State = iota
	// StateReady - waiting for the next question.
	StateReady
	// StateAnswering - a question is being embedded, retrieved and answered.
	StateAnswering
	// StateExiting - terminal; no further questions are accepted.
	StateExiting
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "LOADING"
	case StateReady:
		return "READY"
	case StateAnswering:
		return "ANSWERING"
	case StateExiting:
		return "EXITING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// lifecycle guards state transitions.
//
//	LOADING → READY ⇄ ANSWERING
//	   └────────┴──────────┴──→ EXITING
type lifecycle struct {
	mu    sync.RWMutex
	state State
}

func (l *lifecycle) get() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// transition moves from one state to another and reports whether the
// current state was from.
func (l *lifecycle) transition(from, to State) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != from {
		return false
	}
	l.state = to
	return true
}

// exit moves to EXITING from any state.
func (l *lifecycle) exit() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = StateExiting
}
