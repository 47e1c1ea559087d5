package vars

import "strconv"

// Well known variable names.
const (
	Status      = "status"
	NoClobber   = "noclobber"
	NoAmbiguous = "noambiguous"
	Cwd         = "cwd"
	Prompt      = "prompt"

	EnvPath = "PATH"
	EnvHome = "HOME"
	EnvPWD  = "PWD"
)

// Vars holds the interpreter's shell variables and its exported environment.
//
// Shell variables shadow environment variables of the same name during
// expansion; only the environment is passed to child programs.
type Vars struct {
	Shell *Table
	Env   *Table
}

// New creates a variable store seeded with the given environment.
func New(environ []string) *Vars {
	return &Vars{
		Shell: NewTable(),
		Env:   NewTableFromList(environ),
	}
}

// FromLists rebuilds a store from the output of ShellList and Environ.
func FromLists(shell, environ []string) *Vars {
	return &Vars{
		Shell: NewTableFromList(shell),
		Env:   NewTableFromList(environ),
	}
}

// Lookup resolves a name the way expansion does.
func (v *Vars) Lookup(name string) (string, bool) {
	if val, ok := v.Shell.Lookup(name); ok {
		return val, true
	}
	return v.Env.Lookup(name)
}

// Get resolves a name, returning the empty string if it isn't set anywhere.
func (v *Vars) Get(name string) string {
	val, _ := v.Lookup(name)
	return val
}

// IsSet reports whether a shell variable is set, used for boolean options
// like noclobber.
func (v *Vars) IsSet(name string) bool {
	_, ok := v.Shell.Lookup(name)
	return ok
}

// SetBool sets or unsets a boolean shell option.
func (v *Vars) SetBool(name string, on bool) {
	if on {
		v.Shell.Set(name, "")
	} else {
		v.Shell.Unset(name)
	}
}

// SetStatus records the exit status of the last command.
func (v *Vars) SetStatus(code int) {
	v.Shell.Set(Status, strconv.Itoa(code))
}

// Status returns the exit status of the last command.
func (v *Vars) Status() int {
	code, err := strconv.Atoi(v.Shell.Get(Status))
	if err != nil {
		return 0
	}
	return code
}

// Environ returns the exported environment for child programs.
func (v *Vars) Environ() []string {
	return v.Env.List()
}

// ShellList returns the shell variables.
func (v *Vars) ShellList() []string {
	return v.Shell.List()
}
