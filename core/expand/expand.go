// Package expand implements variable expansion and filename globbing for
// command words.
package expand

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/josephlewis42/forksh/core/vars"
	"github.com/spf13/afero"
	shexpand "mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"
)

// ErrNoMatch is returned when no glob pattern matched anything.
var ErrNoMatch = errors.New("No match.")

// Field is a word after variable expansion and quote removal.
type Field struct {
	Text string
	// Glob is set when the word contains unquoted pattern characters.
	Glob bool
}

// Expander expands words against a variable store and globs them against a
// filesystem.
type Expander struct {
	Vars *vars.Vars
	// Fs is the filesystem globbed against, the OS filesystem if nil.
	Fs afero.Fs
	// Dir returns the directory relative patterns are matched in, the
	// process working directory if nil.
	Dir func() string
}

// Expand performs variable expansion and quote removal on a single source
// word, never splitting it.
func (x *Expander) Expand(word string) (Field, error) {
	w, err := parseWord(word)
	if err != nil {
		return Field{}, err
	}

	cfg := &shexpand.Config{Env: shexpand.FuncEnviron(x.lookup)}
	text, err := shexpand.Literal(cfg, w)
	if err != nil {
		return Field{}, fmt.Errorf("%s: %w", word, err)
	}
	return Field{Text: text, Glob: hasMeta(w)}, nil
}

// ExpandAll expands each word in order.
func (x *Expander) ExpandAll(words []string) ([]Field, error) {
	out := make([]Field, 0, len(words))
	for _, word := range words {
		f, err := x.Expand(word)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Glob replaces every pattern field with its sorted matches. Patterns that
// match nothing are dropped, unless no pattern matched at all in which case
// ErrNoMatch is returned.
func (x *Expander) Glob(fields []Field) ([]string, error) {
	var out []string
	patterns, matched := 0, 0
	for _, f := range fields {
		if !f.Glob {
			out = append(out, f.Text)
			continue
		}
		patterns++

		matches, err := x.glob(f.Text)
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			matched++
			out = append(out, matches...)
		}
	}

	if patterns > 0 && matched == 0 {
		return nil, ErrNoMatch
	}
	return out, nil
}

// Texts returns the fields without globbing them.
func Texts(fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Text
	}
	return out
}

func (x *Expander) glob(pattern string) ([]string, error) {
	dir := x.dir()
	abs := pattern
	relative := !filepath.IsAbs(pattern)
	if relative {
		abs = filepath.Join(dir, pattern)
	}

	matches, err := afero.Glob(x.fs(), abs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pattern, err)
	}

	hidden := strings.HasPrefix(filepath.Base(pattern), ".")
	var out []string
	for _, m := range matches {
		if !hidden && strings.HasPrefix(filepath.Base(m), ".") {
			continue
		}
		if relative {
			if rel, err := filepath.Rel(dir, m); err == nil {
				m = rel
			}
		}
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func (x *Expander) lookup(name string) string {
	if x.Vars == nil {
		return ""
	}
	if name == "?" {
		name = vars.Status
	}
	return x.Vars.Get(name)
}

func (x *Expander) fs() afero.Fs {
	if x.Fs == nil {
		return afero.NewOsFs()
	}
	return x.Fs
}

func (x *Expander) dir() string {
	if x.Dir != nil {
		return x.Dir()
	}
	wd, err := os.Getwd()
	if err != nil {
		return "/"
	}
	return wd
}

// parseWord parses source text holding exactly one shell word. The word is
// parsed as an argument so that text like a=b isn't read as an assignment.
func parseWord(word string) (*syntax.Word, error) {
	file, err := syntax.NewParser().Parse(strings.NewReader(": "+word), "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", word, err)
	}
	if len(file.Stmts) == 1 {
		if call, ok := file.Stmts[0].Cmd.(*syntax.CallExpr); ok && len(call.Args) == 2 {
			return call.Args[1], nil
		}
	}
	return nil, fmt.Errorf("%s: not a single word", word)
}

func hasMeta(w *syntax.Word) bool {
	for _, part := range w.Parts {
		if lit, ok := part.(*syntax.Lit); ok && strings.ContainsAny(lit.Value, "*?[") {
			return true
		}
	}
	return false
}
