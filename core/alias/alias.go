// Package alias implements the shell's alias table.
package alias

import (
	"errors"
	"fmt"
	"sort"
)

// MaxAliases bounds the number of live aliases.
const MaxAliases = 64

// ErrTableFull is returned when no free slot remains.
var ErrTableFull = errors.New("alias table full")

type entry struct {
	name  string
	value string
	inUse bool
}

// Table is a bounded alias table with linear-scan lookup.
type Table struct {
	slots [MaxAliases]entry
}

// New returns an empty alias table.
func New() *Table {
	return &Table{}
}

func (t *Table) find(name string) int {
	for i := range t.slots {
		if t.slots[i].inUse && t.slots[i].name == name {
			return i
		}
	}
	return -1
}

// Set creates or overwrites an alias.
func (t *Table) Set(name, value string) error {
	idx := t.find(name)
	if idx == -1 {
		for i := range t.slots {
			if !t.slots[i].inUse {
				idx = i
				t.slots[i].inUse = true
				t.slots[i].name = name
				break
			}
		}
	}
	if idx == -1 {
		return ErrTableFull
	}
	t.slots[idx].value = value
	return nil
}

// Get returns the alias value and whether the alias exists.
func (t *Table) Get(name string) (string, bool) {
	if idx := t.find(name); idx != -1 {
		return t.slots[idx].value, true
	}
	return "", false
}

// Unset removes an alias. Removing an unknown name is a no-op.
func (t *Table) Unset(name string) {
	if idx := t.find(name); idx != -1 {
		t.slots[idx] = entry{}
	}
}

// Names returns all alias names, sorted.
func (t *Table) Names() []string {
	var names []string
	for i := range t.slots {
		if t.slots[i].inUse {
			names = append(names, t.slots[i].name)
		}
	}
	sort.Strings(names)
	return names
}

// List renders every alias as "alias name='value'" lines, sorted by name.
func (t *Table) List() []string {
	names := t.Names()
	out := make([]string, 0, len(names))
	for _, name := range names {
		value, _ := t.Get(name)
		out = append(out, fmt.Sprintf("alias %s='%s'", name, value))
	}
	return out
}

// Clone returns an independent copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{}
	out.slots = t.slots
	return out
}
