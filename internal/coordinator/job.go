package coordinator

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// jobState tracks a job through its lifecycle. Terminal states are
// completed, failed, and timed_out; a job never leaves a terminal state.
type jobState string

const (
	stateReceived      jobState = "received"
	stateValidated     jobState = "validated"
	stateQueuedForLoad jobState = "queued_for_model_load"
	stateModelReady    jobState = "model_ready"
	stateQueuedForExec jobState = "queued_for_execution"
	stateExecuting     jobState = "executing"
	stateCompleted     jobState = "completed"
	stateFailed        jobState = "failed"
	stateTimedOut      jobState = "timed_out"
)

func (s jobState) terminal() bool {
	switch s {
	case stateCompleted, stateFailed, stateTimedOut:
		return true
	}
	return false
}

// job is one transcription request's unit of work. Owned by the
// coordinator; destroyed once a response (or error) is produced. State
// is guarded because the awaiting goroutine and the worker both touch it.
type job struct {
	id          string
	model       string
	submittedAt time.Time

	mu    sync.Mutex
	state jobState

	log zerolog.Logger
}

func newJob(model string, log zerolog.Logger) *job {
	j := &job{
		id:          uuid.NewString(),
		model:       model,
		submittedAt: time.Now(),
		state:       stateReceived,
	}
	j.log = log.With().Str("job_id", j.id).Str("model", model).Logger()
	return j
}

// to advances the state machine. Transitions out of a terminal state are
// ignored, so a worker finishing after a timeout cannot resurrect a job.
func (j *job) to(next jobState) {
	j.mu.Lock()
	cur := j.state
	if !cur.terminal() {
		j.state = next
	}
	j.mu.Unlock()
	if cur.terminal() {
		return
	}
	j.log.Debug().Str("from", string(cur)).Str("to", string(next)).Msg("job transition")
}

func (j *job) current() jobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}
