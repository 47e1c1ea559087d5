package engine

import (
	"strconv"

	"github.com/josephlewis42/forksh/core/shell"
)

// DefaultNice is the level nice uses without an explicit +N or -N.
const DefaultNice = 4

// StripModifiers consumes leading nice [±N], nohup, hup and time words from a
// simple command, recording each on the node. A modifier is only consumed
// when a word follows it, so a bare "nice" or "nice +5" is left alone and
// runs as a command of that name.
func StripModifiers(n *shell.Node) error {
	for len(n.Argv) > 1 {
		switch n.Argv[0] {
		case "nice":
			arg := n.Argv[1]
			if len(arg) > 0 && (arg[0] == '+' || arg[0] == '-') {
				if len(n.Argv) < 3 {
					return nil
				}
				level, err := strconv.Atoi(arg)
				if err != nil {
					return &Error{Op: "nice", Path: arg, Err: ErrBadNumber}
				}
				n.NiceLevel = level
				n.Flags.Nice = true
				n.Argv = n.Argv[2:]
				continue
			}
			n.NiceLevel = DefaultNice
			n.Flags.Nice = true
		case "nohup":
			n.Flags.NoHup = true
		case "hup":
			n.Flags.Hup = true
		case "time":
			n.Flags.Timed = true
		default:
			return nil
		}
		n.Argv = n.Argv[1:]
	}
	return nil
}
