package shell

import "strings"

// Flags control how a node is executed. They are set by the parser, handed
// down from parent to child while the tree is walked and never read back up.
type Flags struct {
	PipeIn      bool `json:"pipe_in,omitempty"`
	PipeOut     bool `json:"pipe_out,omitempty"`
	Background  bool `json:"background,omitempty"`
	Append      bool `json:"append,omitempty"`
	Overwrite   bool `json:"overwrite,omitempty"`
	MergeStderr bool `json:"merge_stderr,omitempty"`
	Repeat      bool `json:"repeat,omitempty"`
	NoFork      bool `json:"no_fork,omitempty"`
	NoInterrupt bool `json:"no_interrupt,omitempty"`
	Nice        bool `json:"nice,omitempty"`
	NoHup       bool `json:"no_hup,omitempty"`
	Hup         bool `json:"hup,omitempty"`
	Timed       bool `json:"timed,omitempty"`
}

// Merge sets every flag that is set in other.
func (f *Flags) Merge(other Flags) {
	f.PipeIn = f.PipeIn || other.PipeIn
	f.PipeOut = f.PipeOut || other.PipeOut
	f.Background = f.Background || other.Background
	f.Append = f.Append || other.Append
	f.Overwrite = f.Overwrite || other.Overwrite
	f.MergeStderr = f.MergeStderr || other.MergeStderr
	f.Repeat = f.Repeat || other.Repeat
	f.NoFork = f.NoFork || other.NoFork
	f.NoInterrupt = f.NoInterrupt || other.NoInterrupt
	f.Nice = f.Nice || other.Nice
	f.NoHup = f.NoHup || other.NoHup
	f.Hup = f.Hup || other.Hup
	f.Timed = f.Timed || other.Timed
}

// ForPipeWriter returns the flags the left side of a pipe inherits.
func (f Flags) ForPipeWriter() Flags {
	return Flags{
		PipeOut:     true,
		PipeIn:      f.PipeIn,
		Background:  f.Background,
		MergeStderr: f.MergeStderr,
		NoInterrupt: f.NoInterrupt,
	}
}

// ForPipeReader returns the flags the right side of a pipe inherits.
func (f Flags) ForPipeReader() Flags {
	return Flags{
		PipeIn:      true,
		PipeOut:     f.PipeOut,
		Background:  f.Background,
		NoFork:      f.NoFork,
		NoInterrupt: f.NoInterrupt,
	}
}

// ForListLeft returns the flags the first child of a sequence, and or or
// inherits.
func (f Flags) ForListLeft() Flags {
	return Flags{NoInterrupt: f.NoInterrupt}
}

// ForListRight returns the flags the second child of a sequence, and or or
// inherits.
func (f Flags) ForListRight() Flags {
	return Flags{NoFork: f.NoFork, NoInterrupt: f.NoInterrupt}
}

// Modified reports whether a process boundary is needed to apply the
// scheduling prefixes.
func (f Flags) Modified() bool {
	return f.Nice || f.NoHup || f.Hup
}

// String lists the set flags by name, comma separated.
func (f Flags) String() string {
	var names []string
	for _, e := range []struct {
		name string
		set  bool
	}{
		{"pipein", f.PipeIn},
		{"pipeout", f.PipeOut},
		{"background", f.Background},
		{"append", f.Append},
		{"overwrite", f.Overwrite},
		{"stderr", f.MergeStderr},
		{"repeat", f.Repeat},
		{"nofork", f.NoFork},
		{"nointerrupt", f.NoInterrupt},
		{"nice", f.Nice},
		{"nohup", f.NoHup},
		{"hup", f.Hup},
		{"time", f.Timed},
	} {
		if e.set {
			names = append(names, e.name)
		}
	}
	return strings.Join(names, ",")
}
