package vars

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Table is an in-memory set of variables safe for concurrent use.
type Table struct {
	rw   sync.RWMutex
	vals map[string]string
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{}
}

// NewTableFromList creates a table from a list of "key=value" entries like
// the one returned by os.Environ. Entries without '=' get an empty value.
func NewTableFromList(list []string) *Table {
	out := &Table{}
	for _, e := range list {
		key, value := splitEntry(e)
		out.Set(key, value)
	}
	return out
}

func splitEntry(e string) (key, value string) {
	split := strings.SplitN(e, "=", 2)
	key = split[0]
	if len(split) > 1 {
		value = split[1]
	}
	return key, value
}

// Set the value of a variable.
func (t *Table) Set(key, value string) {
	t.rw.Lock()
	defer t.rw.Unlock()

	if t.vals == nil {
		t.vals = make(map[string]string)
	}
	t.vals[key] = value
}

// Unset removes a variable.
func (t *Table) Unset(key string) {
	t.rw.Lock()
	defer t.rw.Unlock()
	if t.vals != nil {
		delete(t.vals, key)
	}
}

// Lookup retrieves the value of a variable and whether it was set.
func (t *Table) Lookup(key string) (string, bool) {
	t.rw.RLock()
	defer t.rw.RUnlock()

	val, ok := t.vals[key]
	return val, ok
}

// Get retrieves the value of a variable, or the empty string if unset.
func (t *Table) Get(key string) string {
	val, _ := t.Lookup(key)
	return val
}

// List returns the variables as "key=value" entries sorted by key.
func (t *Table) List() []string {
	t.rw.RLock()
	defer t.rw.RUnlock()

	out := make([]string, 0, len(t.vals))
	for k, v := range t.vals {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(out)
	return out
}

// Clear removes every variable.
func (t *Table) Clear() {
	t.rw.Lock()
	defer t.rw.Unlock()
	t.vals = make(map[string]string)
}
