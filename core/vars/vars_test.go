package vars

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ExampleNewTableFromList() {
	table := NewTableFromList([]string{"C=D", "A=B", "E", "F=G=H"})

	fmt.Printf("List(): %q\n", table.List())
	fmt.Printf("Get(\"F\"): %q\n", table.Get("F"))

	// Output: List(): ["A=B" "C=D" "E=" "F=G=H"]
	// Get("F"): "G=H"
}

func ExampleTable_Unset() {
	table := NewTable()
	table.Set("A", "B")
	table.Set("C", "D")

	fmt.Println("Before:", table.List())
	table.Unset("A")
	fmt.Println("After:", table.List())

	// Output: Before: [A=B C=D]
	// After: [C=D]
}

func ExampleVars_Lookup() {
	v := New([]string{"HOME=/home/ada", "TERM=xterm"})
	v.Shell.Set("TERM", "vt100")

	val, ok := v.Lookup("TERM")
	fmt.Println("Shadowed", "val:", val, "ok:", ok)
	val, ok = v.Lookup("HOME")
	fmt.Println("Environment", "val:", val, "ok:", ok)
	val, ok = v.Lookup("MISSING")
	fmt.Println("Missing", "val:", val, "ok:", ok)

	// Output: Shadowed val: vt100 ok: true
	// Environment val: /home/ada ok: true
	// Missing val:  ok: false
}

func TestVars_Status(t *testing.T) {
	v := New(nil)
	assert.Equal(t, 0, v.Status())

	v.SetStatus(127)
	assert.Equal(t, 127, v.Status())
	assert.Equal(t, "127", v.Get(Status))
}

func TestVars_SetBool(t *testing.T) {
	v := New(nil)
	assert.False(t, v.IsSet(NoClobber))

	v.SetBool(NoClobber, true)
	assert.True(t, v.IsSet(NoClobber))

	v.SetBool(NoClobber, false)
	assert.False(t, v.IsSet(NoClobber))
}

func TestFromLists(t *testing.T) {
	orig := New([]string{"PATH=/bin"})
	orig.SetBool(NoClobber, true)
	orig.SetStatus(3)

	copied := FromLists(orig.ShellList(), orig.Environ())
	assert.Equal(t, orig.ShellList(), copied.ShellList())
	assert.Equal(t, []string{"PATH=/bin"}, copied.Environ())
	assert.True(t, copied.IsSet(NoClobber))

	copied.Shell.Set("x", "y")
	assert.False(t, orig.IsSet("x"))
}
