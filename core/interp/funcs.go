package interp

import "errors"

// MaxFuncs bounds the number of defined shell functions.
const MaxFuncs = 32

// ErrTableFull is returned when no free function slot remains.
var ErrTableFull = errors.New("function table full")

type funcEntry struct {
	name  string
	body  []string
	inUse bool
}

// FuncTable stores shell functions as their verbatim body lines.
//
// Function bodies share the session's single global variable store;
// positional parameters are bound globally per call, so recursive or
// re-entrant calls clobber each other's parameters. This is a documented
// limitation, not an accident.
type FuncTable struct {
	slots [MaxFuncs]funcEntry
}

// NewFuncTable returns an empty function table.
func NewFuncTable() *FuncTable {
	return &FuncTable{}
}

func (t *FuncTable) find(name string) int {
	for i := range t.slots {
		if t.slots[i].inUse && t.slots[i].name == name {
			return i
		}
	}
	return -1
}

// Define creates or redefines a function.
func (t *FuncTable) Define(name string, body []string) error {
	idx := t.find(name)
	if idx == -1 {
		for i := range t.slots {
			if !t.slots[i].inUse {
				idx = i
				break
			}
		}
	}
	if idx == -1 {
		return ErrTableFull
	}
	t.slots[idx] = funcEntry{name: name, body: body, inUse: true}
	return nil
}

// Find returns the function's body lines and whether it exists.
func (t *FuncTable) Find(name string) ([]string, bool) {
	if idx := t.find(name); idx != -1 {
		return t.slots[idx].body, true
	}
	return nil, false
}

// Names returns the names of all defined functions in slot order.
func (t *FuncTable) Names() []string {
	var names []string
	for i := range t.slots {
		if t.slots[i].inUse {
			names = append(names, t.slots[i].name)
		}
	}
	return names
}

// Clone returns an independent copy of the table. Bodies are shared; they
// are never mutated after definition.
func (t *FuncTable) Clone() *FuncTable {
	out := &FuncTable{}
	out.slots = t.slots
	return out
}
