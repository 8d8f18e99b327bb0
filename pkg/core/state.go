package core

import (
	"fmt"
	"time"
)

// OutcomeStatus represents the result of processing one road.
type OutcomeStatus string

// Outcome status constants.
const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailed  OutcomeStatus = "failed"
)

// BatchStatus represents the status of a batch run.
type BatchStatus string

// Batch status constants.
const (
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusCompleted BatchStatus = "completed"
	BatchStatusFailed    BatchStatus = "failed"
)

// Outcome is the result of processing a single road.
type Outcome struct {
	Road     RoadCode
	Status   OutcomeStatus
	Kind     ErrorKind
	Phase    string
	Err      error
	Tasks    []string // tasks that completed, in execution order
	Duration time.Duration
}

// Succeeded returns a success outcome for road.
func Succeeded(road RoadCode, tasks []string) Outcome {
	return Outcome{Road: road, Status: OutcomeSuccess, Tasks: tasks}
}

// Failed returns a failed outcome for road classified from err.
func Failed(road RoadCode, tasks []string, err error) Outcome {
	return Outcome{
		Road:   road,
		Status: OutcomeFailed,
		Kind:   KindOf(err),
		Phase:  PhaseOf(err),
		Err:    err,
		Tasks:  tasks,
	}
}

// OK reports whether the road was processed without error.
func (o Outcome) OK() bool {
	return o.Status == OutcomeSuccess
}

// Report summarizes a batch run.
type Report struct {
	BatchID      string
	Command      string
	AmountMeters int64
	Outcomes     []Outcome
	Errors       int
	Status       BatchStatus
	Message      string
	StartedAt    time.Time
	CompletedAt  time.Time
}

// NewReport returns a running report for command.
func NewReport(batchID, command string) *Report {
	return &Report{
		BatchID:   batchID,
		Command:   command,
		Status:    BatchStatusRunning,
		StartedAt: time.Now(),
	}
}

// Add appends an outcome and counts it if it failed.
func (r *Report) Add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	if !o.OK() {
		r.Errors++
	}
}

// Finish stamps the completion time and sets the final status and message.
func (r *Report) Finish() {
	r.CompletedAt = time.Now()
	if r.Errors == 0 {
		r.Status = BatchStatusCompleted
		r.Message = "completed successfully"
		return
	}
	r.Status = BatchStatusFailed
	r.Message = fmt.Sprintf("completed with errors (%d)", r.Errors)
}

// Duration returns the wall time of the batch.
func (r *Report) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Failed reports whether any road failed.
func (r *Report) Failed() bool {
	return r.Errors > 0
}
