package engine

import (
	"errors"

	"github.com/josephlewis42/forksh/core/expand"
	"github.com/josephlewis42/forksh/core/shell"
	"github.com/josephlewis42/forksh/core/vars"
)

// resolveTarget expands a redirection word to a single path.
//
// A word without pattern characters names one path. A pattern must match
// exactly one path unless the noambiguous variable is set, in which case the
// first match is used and the rest are appended to the command's arguments.
func (e *Engine) resolveTarget(n *shell.Node, word string) (string, error) {
	field, err := e.expander.Expand(word)
	if err != nil {
		return "", &Error{Op: "redirect", Path: word, Err: err}
	}
	if !field.Glob {
		if field.Text == "" {
			return "", &Error{Op: "redirect", Err: ErrMissingName}
		}
		return field.Text, nil
	}

	matches, err := e.expander.Glob([]expand.Field{field})
	permissive := e.vars.IsSet(vars.NoAmbiguous)
	switch {
	case errors.Is(err, expand.ErrNoMatch) && !permissive:
		return "", &Error{Op: "redirect", Path: word, Err: ErrAmbiguous}
	case err != nil:
		return "", &Error{Op: "redirect", Path: word, Err: err}
	case permissive:
		n.Argv = append(n.Argv, matches[1:]...)
		return matches[0], nil
	case len(matches) != 1:
		return "", &Error{Op: "redirect", Path: word, Err: ErrAmbiguous}
	}
	return matches[0], nil
}
