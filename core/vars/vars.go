// Package vars implements the shell's variable store: a fixed-capacity
// table of name/value pairs with linear-scan lookup and environment export.
package vars

import "errors"

const (
	// MaxVars bounds the number of live variables.
	MaxVars = 64
	// MaxNameLen bounds variable names; longer names are truncated.
	MaxNameLen = 64
	// MaxValueLen bounds values; longer values are truncated.
	MaxValueLen = 1024
)

// ErrTableFull is returned when no free slot remains. The caller keeps its
// prior state; the failure is never fatal to the shell.
var ErrTableFull = errors.New("variable table full")

type slot struct {
	name     string
	value    string
	inUse    bool
	exported bool
}

// Store is a bounded variable table. It is owned by a single session and
// accessed from one goroutine at a time, so it carries no locking.
type Store struct {
	slots [MaxVars]slot
}

// New returns an empty variable store.
func New() *Store {
	return &Store{}
}

func clamp(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

func (st *Store) find(name string) int {
	for i := range st.slots {
		if st.slots[i].inUse && st.slots[i].name == name {
			return i
		}
	}
	return -1
}

// Set creates or overwrites the variable. Slots are reused only by name
// match; a new name claims the first free slot.
func (st *Store) Set(name, value string) error {
	name = clamp(name, MaxNameLen)
	value = clamp(value, MaxValueLen)

	idx := st.find(name)
	if idx == -1 {
		for i := range st.slots {
			if !st.slots[i].inUse {
				idx = i
				st.slots[i].inUse = true
				st.slots[i].name = name
				break
			}
		}
	}
	if idx == -1 {
		return ErrTableFull
	}
	st.slots[idx].value = value
	return nil
}

// Get returns the variable's value and whether it is defined.
func (st *Store) Get(name string) (string, bool) {
	if idx := st.find(clamp(name, MaxNameLen)); idx != -1 {
		return st.slots[idx].value, true
	}
	return "", false
}

// Export marks the named variable for inheritance by child processes of
// the owning session. It fails if the variable is undefined. The process
// environment itself is never touched, so a subshell's exports cannot leak
// into its parent.
func (st *Store) Export(name string) error {
	idx := st.find(clamp(name, MaxNameLen))
	if idx == -1 {
		return errors.New("undefined variable: " + name)
	}
	st.slots[idx].exported = true
	return nil
}

// Environ returns NAME=value pairs for the exported variables in slot
// order, ready to overlay onto a child's environment.
func (st *Store) Environ() []string {
	var env []string
	for i := range st.slots {
		if st.slots[i].inUse && st.slots[i].exported {
			env = append(env, st.slots[i].name+"="+st.slots[i].value)
		}
	}
	return env
}

// Names returns the names of all live variables in slot order.
func (st *Store) Names() []string {
	var names []string
	for i := range st.slots {
		if st.slots[i].inUse {
			names = append(names, st.slots[i].name)
		}
	}
	return names
}

// Clone returns an independent copy of the store, used to give subshells
// fork-like isolation.
func (st *Store) Clone() *Store {
	out := &Store{}
	out.slots = st.slots
	return out
}
