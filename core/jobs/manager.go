package jobs

import (
	"fmt"
	"io"
	"log"

	"github.com/fatih/color"
	"golang.org/x/sys/unix"
)

var (
	stoppedColor = color.New(color.FgYellow, color.Bold)
	doneColor    = color.New(color.FgGreen, color.Bold)
)

// Syscall seams, swapped by tests to script kernel wait results and record
// signal delivery without real process groups.
var (
	wait4    = unix.Wait4
	sendKill = unix.Kill
)

// Manager drives foreground/background transitions and collects state
// changes reported by the kernel for the jobs in one table.
type Manager struct {
	Table *Table
	// Term is nil for non-interactive sessions; all terminal handoff is
	// skipped in that case.
	Term *Terminal
	// Out receives job notices ("[1] Stopped: ...", "[2] Done: ...").
	Out io.Writer
	// Colorize enables colored state words; enabled only on a PTY.
	Colorize bool
}

func (m *Manager) sprint(c *color.Color, s string) string {
	if m.Colorize {
		return c.Sprint(s)
	}
	return s
}

// PutInForeground hands the terminal to the job's process group, optionally
// continues a stopped group, and blocks until the job's leader exits or any
// group member stops. The terminal and the shell's saved modes are restored
// unconditionally before returning.
func (m *Manager) PutInForeground(job *Job, cont bool) {
	if job == nil {
		return
	}
	if m.Term != nil {
		if err := m.Term.GiveTo(job.PGID); err != nil {
			log.Printf("tcsetpgrp: %v", err)
		}
	}
	if cont {
		if err := sendKill(-job.PGID, unix.SIGCONT); err != nil {
			fmt.Fprintf(m.Out, "ash: kill (SIGCONT): %v\n", err)
		}
	}
	job.Running = true
	job.Foreground = true

	m.WaitForJob(job)

	if m.Term != nil {
		m.Term.TakeBack()
	}
}

// PutInBackground marks the job running in the background, optionally
// sending SIGCONT to the whole group. It never blocks.
func (m *Manager) PutInBackground(job *Job, cont bool) {
	if job == nil {
		return
	}
	if cont {
		if err := sendKill(-job.PGID, unix.SIGCONT); err != nil {
			fmt.Fprintf(m.Out, "ash: kill (SIGCONT): %v\n", err)
		}
	}
	job.Running = true
	job.Foreground = false
}

// ContinueJob restarts a stopped job in the foreground or background.
func (m *Manager) ContinueJob(job *Job, foreground bool) {
	if job == nil {
		return
	}
	job.Running = true
	job.Notified = false
	if foreground {
		m.PutInForeground(job, true)
	} else {
		m.PutInBackground(job, true)
	}
}

// WaitForJob blocks until the job's leader exits or any member of the
// job's process group stops. Waiting targets the whole group (-pgid) so
// intermediate pipeline stages are reaped as they finish; their exits do
// not end the wait, only the recorded leader's does. A stop reported for
// any member marks the whole job stopped, so Ctrl+Z on one pipeline stage
// stops the pipeline as a unit.
func (m *Manager) WaitForJob(job *Job) {
	var ws unix.WaitStatus
	for {
		pid, err := wait4(-job.PGID, &ws, unix.WUNTRACED, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			log.Printf("wait4: %v", err)
			return
		}

		switch {
		case ws.Stopped():
			job.Running = false
			return
		case ws.Exited() || ws.Signaled():
			if pid != job.PID {
				continue
			}
			job.Running = false
			job.Done = true
			if ws.Signaled() {
				job.Status = 128 + int(ws.Signal())
			} else {
				job.Status = ws.ExitStatus()
			}
			return
		}
	}
}

// Reap is the asynchronous background reaper, run once per read-loop
// iteration. It collects every terminated or stopped child without
// blocking: stops mark the job not-running with a one-time Stopped notice,
// exits print a one-time Done notice and free the slot. Children that
// belong to no job (already-finished pipeline members) are ignored.
func (m *Manager) Reap() {
	var ws unix.WaitStatus
	for {
		pid, err := wait4(-1, &ws, unix.WNOHANG|unix.WUNTRACED, nil)
		if err != nil || pid <= 0 {
			return
		}

		job := m.Table.FindByPID(pid)
		if job == nil {
			continue
		}

		switch {
		case ws.Stopped():
			job.Running = false
			m.NoticeStopped(job)
		case ws.Exited() || ws.Signaled():
			job.Running = false
			job.Done = true
			if !job.Notified {
				fmt.Fprintf(m.Out, "\n[%d] %s: %s\n",
					job.ID, m.sprint(doneColor, "Done"), job.Command)
				job.Notified = true
			}
			m.Table.Remove(job.ID)
		}
	}
}

// NoticeStopped prints the one-time Stopped notice for a job, used both by
// the reaper and by the foreground path when a job stops under Ctrl+Z.
func (m *Manager) NoticeStopped(job *Job) {
	if job.Notified {
		return
	}
	fmt.Fprintf(m.Out, "\n[%d] %s: %s\n",
		job.ID, m.sprint(stoppedColor, "Stopped"), job.Command)
	job.Notified = true
}
