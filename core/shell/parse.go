package shell

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// ErrUnsupported is returned for syntax the engine has no node for.
var ErrUnsupported = errors.New("unsupported syntax")

// Parse converts one command line into a Node tree.
//
// The grammar is the POSIX shell grammar as understood by mvdan.cc/sh. An
// empty line yields a nil node and no error.
func Parse(src string) (*Node, error) {
	file, err := syntax.NewParser().Parse(strings.NewReader(src), "")
	if err != nil {
		return nil, err
	}

	c := &converter{printer: syntax.NewPrinter()}
	return c.stmts(file.Stmts)
}

type converter struct {
	printer *syntax.Printer
}

func (c *converter) unsupported(node syntax.Node, what string) error {
	return fmt.Errorf("%s: %w: %s", node.Pos(), ErrUnsupported, what)
}

func (c *converter) word(w *syntax.Word) (string, error) {
	if w == nil {
		return "", nil
	}
	var buf bytes.Buffer
	if err := c.printer.Print(&buf, w); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// stmts builds a right leaning sequence: a; b; c is a; (b; c).
func (c *converter) stmts(stmts []*syntax.Stmt) (*Node, error) {
	if len(stmts) == 0 {
		return nil, nil
	}

	head, err := c.stmt(stmts[0])
	if err != nil {
		return nil, err
	}
	if len(stmts) == 1 {
		return head, nil
	}

	rest, err := c.stmts(stmts[1:])
	if err != nil {
		return nil, err
	}
	return &Node{Kind: KindSequence, Left: head, Right: rest}, nil
}

func (c *converter) stmt(st *syntax.Stmt) (*Node, error) {
	if st.Negated {
		return nil, c.unsupported(st, "negation")
	}
	if st.Coprocess {
		return nil, c.unsupported(st, "coprocess")
	}

	n, err := c.command(st.Cmd)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, c.unsupported(st, "empty command")
	}

	for _, r := range st.Redirs {
		if err := c.redirect(n, r); err != nil {
			return nil, err
		}
	}

	if st.Background {
		n.Flags.Background = true
		n.Flags.NoInterrupt = true
	}
	return n, nil
}

func (c *converter) command(cmd syntax.Command) (*Node, error) {
	switch cmd := cmd.(type) {
	case *syntax.CallExpr:
		if len(cmd.Assigns) > 0 {
			return nil, c.unsupported(cmd, "variable assignment, use set or setenv")
		}
		n := &Node{Kind: KindSimple}
		for _, w := range cmd.Args {
			arg, err := c.word(w)
			if err != nil {
				return nil, err
			}
			n.Argv = append(n.Argv, arg)
		}
		return n, nil

	case *syntax.BinaryCmd:
		switch cmd.Op {
		case syntax.AndStmt, syntax.OrStmt:
			left, err := c.stmt(cmd.X)
			if err != nil {
				return nil, err
			}
			right, err := c.stmt(cmd.Y)
			if err != nil {
				return nil, err
			}
			kind := KindAnd
			if cmd.Op == syntax.OrStmt {
				kind = KindOr
			}
			return &Node{Kind: kind, Left: left, Right: right}, nil

		case syntax.Pipe, syntax.PipeAll:
			return c.pipeline(cmd)
		}
		return nil, c.unsupported(cmd, cmd.Op.String())

	case *syntax.Subshell:
		body, err := c.stmts(cmd.Stmts)
		if err != nil {
			return nil, err
		}
		if body != nil && !body.Flags.Background {
			// The last command of a group replaces the subshell process.
			body.Flags.NoFork = true
		}
		return &Node{Kind: KindSubshell, Body: body}, nil

	case *syntax.Block:
		return c.stmts(cmd.Stmts)

	case *syntax.TimeClause:
		if cmd.Stmt == nil {
			return NewSimple("time"), nil
		}
		n, err := c.stmt(cmd.Stmt)
		if err != nil {
			return nil, err
		}
		return timed(n), nil
	}

	return nil, c.unsupported(cmd, fmt.Sprintf("%T", cmd))
}

// pipeline flattens a | b | c and rebuilds it leaning right, so the first
// stage is always the left child of the outermost pipe.
func (c *converter) pipeline(cmd *syntax.BinaryCmd) (*Node, error) {
	var stmts []*syntax.Stmt
	var ops []syntax.BinCmdOperator
	flattenPipe(cmd.X, &stmts, &ops)
	ops = append(ops, cmd.Op)
	flattenPipe(cmd.Y, &stmts, &ops)

	stages := make([]*Node, len(stmts))
	for i, st := range stmts {
		n, err := c.stmt(st)
		if err != nil {
			return nil, err
		}
		if i > 0 && n.In != nil {
			return nil, fmt.Errorf("%s: Ambiguous input redirect", st.Pos())
		}
		if i < len(stmts)-1 && n.Out != nil {
			return nil, fmt.Errorf("%s: Ambiguous output redirect", st.Pos())
		}
		if n.Kind != KindSimple && n.Kind != KindSubshell {
			n.Flags.NoFork = !n.Flags.Background
			n = &Node{Kind: KindSubshell, Body: n}
		}
		stages[i] = n
	}

	out := stages[len(stages)-1]
	for i := len(stages) - 2; i >= 0; i-- {
		out = &Node{
			Kind:  KindPipe,
			Left:  stages[i],
			Right: out,
			Flags: Flags{MergeStderr: ops[i] == syntax.PipeAll},
		}
	}
	return out, nil
}

// timed marks every process n starts for a resource usage report. Simple
// commands get a time prefix word so they are handled like nice and nohup.
func timed(n *Node) *Node {
	switch n.Kind {
	case KindSimple:
		n.Argv = append([]string{"time"}, n.Argv...)
	case KindSubshell:
		n.Flags.Timed = true
	case KindPipe:
		for _, stage := range n.Stages() {
			timed(stage)
		}
	default:
		n.Flags.NoFork = !n.Flags.Background
		n = &Node{Kind: KindSubshell, Body: n, Flags: Flags{Timed: true}}
	}
	return n
}

func flattenPipe(st *syntax.Stmt, stmts *[]*syntax.Stmt, ops *[]syntax.BinCmdOperator) {
	if bin, ok := st.Cmd.(*syntax.BinaryCmd); ok && isPipe(bin.Op) && plain(st) {
		flattenPipe(bin.X, stmts, ops)
		*ops = append(*ops, bin.Op)
		flattenPipe(bin.Y, stmts, ops)
		return
	}
	*stmts = append(*stmts, st)
}

func isPipe(op syntax.BinCmdOperator) bool {
	return op == syntax.Pipe || op == syntax.PipeAll
}

func plain(st *syntax.Stmt) bool {
	return len(st.Redirs) == 0 && !st.Background && !st.Negated && !st.Coprocess
}

func (c *converter) redirect(n *Node, r *syntax.Redirect) error {
	if n.Kind != KindSimple && n.Kind != KindSubshell {
		return c.unsupported(r, "redirection of a compound command")
	}

	fd := ""
	if r.N != nil {
		fd = r.N.Value
	}

	target, err := c.word(r.Word)
	if err != nil {
		return err
	}

	switch r.Op {
	case syntax.RdrIn:
		if fd != "" && fd != "0" {
			return c.unsupported(r, "input redirection of fd "+fd)
		}
		n.In = &Redirect{Word: target}

	case syntax.Hdoc, syntax.DashHdoc:
		var doc string
		if r.Hdoc != nil {
			if doc, err = c.word(r.Hdoc); err != nil {
				return err
			}
		}
		n.In = &Redirect{IsHeredoc: true, Heredoc: doc}

	case syntax.RdrOut, syntax.AppOut, syntax.ClbOut:
		if fd != "" && fd != "1" {
			return c.unsupported(r, "output redirection of fd "+fd)
		}
		n.Out = &Redirect{Word: target}
		n.Flags.Append = r.Op == syntax.AppOut
		n.Flags.Overwrite = r.Op == syntax.ClbOut

	case syntax.RdrAll, syntax.AppAll:
		n.Out = &Redirect{Word: target}
		n.Flags.Append = r.Op == syntax.AppAll
		n.Flags.MergeStderr = true

	case syntax.DplOut:
		if fd != "2" || target != "1" {
			return c.unsupported(r, "descriptor duplication other than 2>&1")
		}
		n.Flags.MergeStderr = true

	default:
		return c.unsupported(r, r.Op.String())
	}
	return nil
}
