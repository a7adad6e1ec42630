package jobs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// waitEvent is one scripted kernel wait result.
type waitEvent struct {
	pid    int
	status unix.WaitStatus
}

// stubSyscalls replaces the manager's wait/kill seams for one test. wait4
// pops the next scripted event; an exhausted script reports "no children"
// (pid 0), which ends a Reap pass. The returned slice records every kill
// target in order.
func stubSyscalls(t *testing.T, events []waitEvent) *[]int {
	t.Helper()
	origWait, origKill := wait4, sendKill
	t.Cleanup(func() { wait4, sendKill = origWait, origKill })

	kills := &[]int{}
	sendKill = func(pid int, sig unix.Signal) error {
		*kills = append(*kills, pid)
		return nil
	}
	wait4 = func(pid int, ws *unix.WaitStatus, options int, rusage *unix.Rusage) (int, error) {
		if len(events) == 0 {
			return 0, nil
		}
		ev := events[0]
		events = events[1:]
		*ws = ev.status
		return ev.pid, nil
	}
	return kills
}

// Wait statuses in the kernel's raw encoding.
func exitedStatus(code int) unix.WaitStatus { return unix.WaitStatus(code << 8) }
func stoppedStatus(sig unix.Signal) unix.WaitStatus {
	return unix.WaitStatus(uint32(sig)<<8 | 0x7f)
}
func signaledStatus(sig unix.Signal) unix.WaitStatus { return unix.WaitStatus(sig) }

func TestWaitForJobLeaderExit(t *testing.T) {
	stubSyscalls(t, []waitEvent{
		// An intermediate pipeline stage exiting must not end the wait.
		{pid: 11, status: exitedStatus(0)},
		{pid: 10, status: exitedStatus(3)},
	})
	m := &Manager{Table: NewTable(), Out: &bytes.Buffer{}}
	job, err := m.Table.Add(10, 10, "false | false", false)
	require.NoError(t, err)

	m.WaitForJob(job)
	assert.True(t, job.Done)
	assert.False(t, job.Running)
	assert.Equal(t, 3, job.Status)
}

func TestWaitForJobStopOfAnyMember(t *testing.T) {
	stubSyscalls(t, []waitEvent{
		{pid: 11, status: stoppedStatus(unix.SIGTSTP)},
	})
	m := &Manager{Table: NewTable(), Out: &bytes.Buffer{}}
	job, err := m.Table.Add(10, 10, "cat | less", false)
	require.NoError(t, err)

	m.WaitForJob(job)
	assert.False(t, job.Running)
	assert.False(t, job.Done, "a stop is not completion")
}

func TestWaitForJobLeaderSignaled(t *testing.T) {
	stubSyscalls(t, []waitEvent{
		{pid: 10, status: signaledStatus(unix.SIGKILL)},
	})
	m := &Manager{Table: NewTable(), Out: &bytes.Buffer{}}
	job, err := m.Table.Add(10, 10, "sleep 100", false)
	require.NoError(t, err)

	m.WaitForJob(job)
	assert.True(t, job.Done)
	assert.Equal(t, 128+int(unix.SIGKILL), job.Status)
}

func TestPutInForegroundContinuesGroup(t *testing.T) {
	kills := stubSyscalls(t, []waitEvent{
		{pid: 10, status: exitedStatus(0)},
	})
	m := &Manager{Table: NewTable(), Out: &bytes.Buffer{}}
	job, err := m.Table.Add(10, 10, "vi notes.txt", false)
	require.NoError(t, err)
	job.Running = false

	m.PutInForeground(job, true)
	assert.Equal(t, []int{-10}, *kills, "SIGCONT goes to the whole group")
	assert.True(t, job.Done)
	assert.True(t, job.Foreground)
}

func TestPutInBackgroundContinuesWithoutWaiting(t *testing.T) {
	kills := stubSyscalls(t, nil)
	m := &Manager{Table: NewTable(), Out: &bytes.Buffer{}}
	job, err := m.Table.Add(10, 10, "make", false)
	require.NoError(t, err)
	job.Running = false

	m.PutInBackground(job, true)
	assert.Equal(t, []int{-10}, *kills)
	assert.True(t, job.Running)
	assert.False(t, job.Foreground)
}

func TestReapTransitions(t *testing.T) {
	out := &bytes.Buffer{}
	m := &Manager{Table: NewTable(), Out: out}
	job, err := m.Table.Add(21, 21, "sleep 100 &", true)
	require.NoError(t, err)

	// A child with no job entry is ignored; a stop marks the job and
	// prints a one-time notice.
	stubSyscalls(t, []waitEvent{
		{pid: 99, status: exitedStatus(0)},
		{pid: 21, status: stoppedStatus(unix.SIGTSTP)},
	})
	m.Reap()
	assert.Contains(t, out.String(), "[1] Stopped: sleep 100 &")
	assert.False(t, job.Running)
	assert.NotNil(t, m.Table.Get(1), "stopped jobs stay in the table")

	// The notice never repeats while the job stays stopped.
	out.Reset()
	stubSyscalls(t, nil)
	m.Reap()
	assert.Empty(t, out.String())

	// Continuing resets the notice gate; the exit then prints Done and
	// frees the slot.
	stubSyscalls(t, []waitEvent{
		{pid: 21, status: exitedStatus(0)},
	})
	m.ContinueJob(job, false)
	m.Reap()
	assert.Contains(t, out.String(), "[1] Done: sleep 100 &")
	assert.Nil(t, m.Table.Get(1), "done jobs are removed")
}
