package shell

import (
	"fmt"
	"strings"
)

// Kind identifies the shape of a command Node.
type Kind int

const (
	// KindSimple is a single command with an argument vector.
	KindSimple Kind = iota
	// KindPipe connects the output of Left to the input of Right.
	KindPipe
	// KindSequence runs Left then Right.
	KindSequence
	// KindAnd runs Right only if Left succeeds.
	KindAnd
	// KindOr runs Right only if Left fails.
	KindOr
	// KindSubshell runs Body in a child shell.
	KindSubshell
)

var kindNames = map[Kind]string{
	KindSimple:   "simple",
	KindPipe:     "pipe",
	KindSequence: "sequence",
	KindAnd:      "and",
	KindOr:       "or",
	KindSubshell: "subshell",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("unknown node kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind written by MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown node kind %q", text)
}

// Redirect is the target of an input or output redirection.
//
// Word holds the unexpanded source text of the target. When IsHeredoc is set
// the redirect carries the literal document text in Heredoc instead.
type Redirect struct {
	Word      string `json:"word,omitempty"`
	IsHeredoc bool   `json:"is_heredoc,omitempty"`
	Heredoc   string `json:"heredoc,omitempty"`
}

// Node is one syntactic unit of a command line.
//
// The engine may strip prefix modifiers from Argv and adjust Flags while it
// executes the tree; nothing else is modified after parsing.
type Node struct {
	Kind Kind     `json:"kind"`
	Argv []string `json:"argv,omitempty"`

	Left  *Node `json:"left,omitempty"`
	Right *Node `json:"right,omitempty"`
	Body  *Node `json:"body,omitempty"`

	In  *Redirect `json:"in,omitempty"`
	Out *Redirect `json:"out,omitempty"`

	Flags     Flags `json:"flags"`
	NiceLevel int   `json:"nice_level,omitempty"`
}

// NewSimple creates a simple command node.
func NewSimple(argv ...string) *Node {
	return &Node{Kind: KindSimple, Argv: argv}
}

// Name returns the command name of a simple node, or the kind for others.
func (n *Node) Name() string {
	if n.Kind == KindSimple && len(n.Argv) > 0 {
		return n.Argv[0]
	}
	return n.Kind.String()
}

// Stages returns the leaves of a pipeline in left to right order. Non-pipe
// nodes are a single stage.
func (n *Node) Stages() []*Node {
	if n == nil {
		return nil
	}
	if n.Kind != KindPipe {
		return []*Node{n}
	}
	return append(n.Left.Stages(), n.Right.Stages()...)
}

// String renders the tree one node per line, children indented.
func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb, 0)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder, depth int) {
	if n == nil {
		return
	}
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(n.Kind.String())
	if n.Kind == KindSimple {
		fmt.Fprintf(sb, " %q", n.Argv)
	}
	if n.In != nil {
		if n.In.IsHeredoc {
			fmt.Fprintf(sb, " <<%q", n.In.Heredoc)
		} else {
			fmt.Fprintf(sb, " <%q", n.In.Word)
		}
	}
	if n.Out != nil {
		fmt.Fprintf(sb, " >%q", n.Out.Word)
	}
	if flags := n.Flags.String(); flags != "" {
		sb.WriteString(" {")
		sb.WriteString(flags)
		sb.WriteString("}")
	}
	if n.Flags.Nice {
		fmt.Fprintf(sb, " nice=%d", n.NiceLevel)
	}
	sb.WriteString("\n")

	n.Left.write(sb, depth+1)
	n.Right.write(sb, depth+1)
	n.Body.write(sb, depth+1)
}
