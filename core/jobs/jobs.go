// Package jobs implements the shell's job table, process-group management,
// terminal ownership transfer, and signal-driven job state tracking.
package jobs

import (
	"errors"
	"fmt"
	"io"
)

const (
	// MaxJobs bounds the number of concurrently tracked jobs.
	MaxJobs = 32
	// maxCommandLen bounds the display command stored per job.
	maxCommandLen = 1024
)

// ErrTableFull is returned when every job slot is occupied.
var ErrTableFull = errors.New("too many jobs")

// Job tracks one foreground/background unit of execution: a single command
// or an entire pipeline. PID is the group leader's pid; PGID is shared by
// every process in the pipeline.
type Job struct {
	PID  int
	PGID int
	// ID is the 1-based job id; freed slots are reused densely.
	ID      int
	Command string
	// Running is false once the job has stopped or finished.
	Running    bool
	Foreground bool
	// Notified gates one-time Stopped/Done notices from the reaper.
	Notified bool
	// Done is true once the leader has terminated; a job that is neither
	// running nor done is stopped.
	Done bool
	// Status holds the leader's exit status once it has terminated.
	Status int
}

// Table is a fixed-capacity job table. Slot index determines job id.
type Table struct {
	slots [MaxJobs]*Job
}

// NewTable returns an empty job table.
func NewTable() *Table {
	return &Table{}
}

// Add allocates the first free slot for a new job. The job id is the slot
// index plus one, so ids are dense and freed ids are reused.
func (t *Table) Add(pid, pgid int, command string, background bool) (*Job, error) {
	if len(command) > maxCommandLen {
		command = command[:maxCommandLen]
	}
	for i := range t.slots {
		if t.slots[i] != nil {
			continue
		}
		job := &Job{
			PID:        pid,
			PGID:       pgid,
			ID:         i + 1,
			Command:    command,
			Running:    true,
			Foreground: !background,
		}
		t.slots[i] = job
		return job, nil
	}
	return nil, ErrTableFull
}

// Remove frees the slot for the given job id. Removing a free or
// out-of-range id is a no-op.
func (t *Table) Remove(id int) {
	if id <= 0 || id > MaxJobs {
		return
	}
	t.slots[id-1] = nil
}

// Get returns the live job with the given id, or nil.
func (t *Table) Get(id int) *Job {
	if id <= 0 || id > MaxJobs {
		return nil
	}
	return t.slots[id-1]
}

// FindByPID returns the live job whose leader has the given pid, or nil.
// Pipeline members other than the leader are not indexed; they are found
// through process-group wait semantics instead.
func (t *Table) FindByPID(pid int) *Job {
	for i := range t.slots {
		if t.slots[i] != nil && t.slots[i].PID == pid {
			return t.slots[i]
		}
	}
	return nil
}

// Count returns the number of live jobs.
func (t *Table) Count() int {
	n := 0
	for i := range t.slots {
		if t.slots[i] != nil {
			n++
		}
	}
	return n
}

// State returns the job's display state.
func (j *Job) State() string {
	if j.Running {
		return "Running"
	}
	return "Stopped"
}

// List writes every live job in slot order as "[id] pid state<TAB>command".
func (t *Table) List(w io.Writer) {
	for i := range t.slots {
		if t.slots[i] == nil {
			continue
		}
		j := t.slots[i]
		fmt.Fprintf(w, "[%d] %d %s\t%s\n", j.ID, j.PID, j.State(), j.Command)
	}
}
