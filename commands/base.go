package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/josephlewis42/forksh/core/engine"
	getopt "github.com/pborman/getopt/v2"
	"golang.org/x/term"
)

// Builtin is a command run by the shell itself.
type Builtin struct {
	Name  string
	Short string
	// Flow marks builtins that still run when commands are only being
	// checked.
	Flow bool
	Main func(ctx context.Context, inv *engine.Invocation) int
}

var _ engine.Builtin = (*Builtin)(nil)

// ControlFlow implements engine.Builtin.
func (b *Builtin) ControlFlow() bool { return b.Flow }

// Run implements engine.Builtin.
func (b *Builtin) Run(ctx context.Context, inv *engine.Invocation) int {
	return b.Main(ctx, inv)
}

// AllBuiltins holds every registered builtin by name.
var AllBuiltins = make(map[string]*Builtin)

// addBuiltin registers b under its name and any aliases.
func addBuiltin(b *Builtin, aliases ...string) {
	AllBuiltins[b.Name] = b
	for _, alias := range aliases {
		AllBuiltins[alias] = b
	}
}

// Table looks builtins up in AllBuiltins.
type Table struct{}

var _ engine.Builtins = Table{}

// Lookup implements engine.Builtins.
func (Table) Lookup(name string) (engine.Builtin, bool) {
	b, ok := AllBuiltins[name]
	if !ok {
		return nil, false
	}
	return b, true
}

// BuiltinNames lists the registered names in order.
func BuiltinNames() []string {
	var names []string
	for name := range AllBuiltins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type SimpleCommand struct {
	// Use holds a one line usage string
	Use string
	// Short holds a one line description of the command.
	Short string
	// ShowHelp sets whether help is displayed or not.
	// If this is non-nil when Run() is called, then the default help flag isn't
	// added.
	ShowHelp *bool
	// NeverBail skips interacting with stdout/stderr on failure and
	// always runs the callback.
	NeverBail bool

	flags *getopt.Set
}

// Flags gets the command's flag set.
func (s *SimpleCommand) Flags() *getopt.Set {
	if s.flags == nil {
		s.flags = getopt.New()
	}

	return s.flags
}

// PrintHelp writes help for the command to the given writer.
func (s *SimpleCommand) PrintHelp(w io.Writer) {
	fmt.Fprint(w, "usage: ")
	fmt.Fprintln(w, s.Use)
	fmt.Fprintln(w, s.Short)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	s.Flags().PrintOptions(w)
}

// Run the command, if flag parsing was succcessful call the callback.
func (s *SimpleCommand) Run(inv *engine.Invocation, callback func() int) int {
	opts := s.Flags()

	// Add help flag if not overridden.
	if s.ShowHelp == nil {
		s.ShowHelp = opts.BoolLong("help", 'h', "show this help and exit")
	}

	err := opts.Getopt(inv.Argv, nil)
	if err != nil && !s.NeverBail {
		fmt.Fprintf(inv.Stderr, "%s: %s\n\n", inv.Argv[0], err)

		s.PrintHelp(inv.Stderr)
		return 1
	}

	if *s.ShowHelp {
		s.PrintHelp(inv.Stdout)
		return 0
	}

	return callback()
}

const (
	colorAlways = "always"
	colorAuto   = "auto"
	colorNever  = "never"
)

var (
	ColorBoldBlue  = color.New(color.FgBlue, color.Bold)
	ColorBoldGreen = color.New(color.FgGreen, color.Bold)
	ColorBoldCyan  = color.New(color.FgCyan, color.Bold)
	ColorBoldRed   = color.New(color.FgRed, color.Bold)
)

type ColorPrinter struct {
	value *string
	out   io.Writer
}

// Init adds the --color flag and remembers where output is going.
func (c *ColorPrinter) Init(flags *getopt.Set, out io.Writer) {
	c.out = out
	c.value = flags.EnumLong(
		"color",
		rune(0), // No short flag.
		[]string{colorAlways, colorAuto, colorNever},
		colorAuto,
		"colorize the output (always|auto|never)")
}

// NewColorPrinter creates a printer that colors when out is a terminal.
func NewColorPrinter(mode string, out io.Writer) *ColorPrinter {
	return &ColorPrinter{value: &mode, out: out}
}

func (c *ColorPrinter) ShouldColor() bool {
	switch {
	case c.value == nil || *c.value == colorNever:
		return false
	case *c.value == colorAlways:
		return true
	default:
		f, ok := c.out.(*os.File)
		return ok && term.IsTerminal(int(f.Fd()))
	}
}

func (c *ColorPrinter) Sprintf(color *color.Color, format string, a ...interface{}) string {
	if c.ShouldColor() {
		return color.Sprintf(format, a...)
	}
	return fmt.Sprintf(format, a...)
}
