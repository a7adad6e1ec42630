package jobs

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Terminal holds the process-wide terminal state for an interactive shell:
// the shell's own process group, the controlling terminal descriptor, and
// the terminal modes saved at startup so they can be restored after every
// foreground job.
type Terminal struct {
	FD        int
	ShellPGID int
	saved     *unix.Termios
}

// InitTerminal prepares job control for an interactive session. It waits
// until the shell is in the foreground, puts the shell into its own
// process group, claims the terminal, and saves the terminal modes.
// It returns nil (no error) when fd is not a terminal; callers treat a nil
// Terminal as the non-interactive mode marker.
func InitTerminal(fd int) (*Terminal, error) {
	if !term.IsTerminal(fd) {
		return nil, nil
	}

	// Loop until we own the terminal; if another group owns it, stop
	// ourselves the way the terminal driver would.
	for {
		fg, err := tcgetpgrp(fd)
		if err != nil {
			return nil, fmt.Errorf("terminal init: %w", err)
		}
		pgrp := unix.Getpgrp()
		if fg == pgrp {
			break
		}
		_ = unix.Kill(-pgrp, unix.SIGTTIN)
	}

	pid := os.Getpid()
	if err := unix.Setpgid(pid, pid); err != nil {
		return nil, fmt.Errorf("couldn't put the shell in its own process group: %w", err)
	}
	if err := tcsetpgrp(fd, pid); err != nil {
		return nil, fmt.Errorf("couldn't claim the terminal: %w", err)
	}
	saved, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, fmt.Errorf("couldn't save terminal modes: %w", err)
	}

	return &Terminal{FD: fd, ShellPGID: pid, saved: saved}, nil
}

// GiveTo transfers terminal ownership to the given process group.
func (t *Terminal) GiveTo(pgid int) error {
	return tcsetpgrp(t.FD, pgid)
}

// TakeBack returns terminal ownership to the shell and reapplies the saved
// terminal modes. It must run unconditionally after every foreground job,
// stopped or finished, so a job's mode changes never corrupt the shell's
// own line editing.
func (t *Terminal) TakeBack() {
	_ = tcsetpgrp(t.FD, t.ShellPGID)
	if t.saved != nil {
		// TCSETSW drains pending output first, like tcsetattr(TCSADRAIN).
		_ = unix.IoctlSetTermios(t.FD, unix.TCSETSW, t.saved)
	}
}

func tcgetpgrp(fd int) (int, error) {
	return unix.IoctlGetInt(fd, unix.TIOCGPGRP)
}

func tcsetpgrp(fd, pgid int) error {
	return unix.IoctlSetPointerInt(fd, unix.TIOCSPGRP, pgid)
}
