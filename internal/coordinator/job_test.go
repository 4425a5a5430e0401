package coordinator

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestJobStateMachine(t *testing.T) {
	j := newJob("tiny", zerolog.Nop())
	if got := j.current(); got != stateReceived {
		t.Fatalf("initial state=%q", got)
	}

	for _, s := range []jobState{
		stateValidated, stateQueuedForLoad, stateModelReady,
		stateQueuedForExec, stateExecuting,
	} {
		j.to(s)
		if got := j.current(); got != s {
			t.Fatalf("state=%q want %q", got, s)
		}
	}

	j.to(stateTimedOut)
	if got := j.current(); got != stateTimedOut {
		t.Fatalf("state=%q", got)
	}

	// A worker finishing late cannot resurrect a terminal job.
	j.to(stateCompleted)
	if got := j.current(); got != stateTimedOut {
		t.Fatalf("terminal state overwritten: %q", got)
	}
}

func TestTerminalStates(t *testing.T) {
	for _, s := range []jobState{stateCompleted, stateFailed, stateTimedOut} {
		if !s.terminal() {
			t.Fatalf("%q should be terminal", s)
		}
	}
	for _, s := range []jobState{stateReceived, stateExecuting} {
		if s.terminal() {
			t.Fatalf("%q should not be terminal", s)
		}
	}
}
