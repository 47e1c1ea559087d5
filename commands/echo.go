package commands

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/josephlewis42/forksh/core/engine"
)

var (
	unescapeOctal   = regexp.MustCompile(`\\0[0-8][0-8]?[0-8]?`)
	unescapeHex     = regexp.MustCompile(`\\x[0-9a-fA-F][0-9a-fA-F]?`)
	unescapeReplace = strings.NewReplacer(
		`\n`, "\n", // newline
		`\r`, "\r", // carriage return
		`\t`, "\t", // horizontal tab
		`\\`, `\`, // backslash literal
		`\b`, "\b", // backspace
		`\a`, "\a", // alert
		`\f`, "\f", // form feed
		`\v`, "\v", // vertical tab
		`\e`, "\033", // escape
	)
)

func unescape(s string) string {
	s = unescapeReplace.Replace(s)
	s = unescapeOctal.ReplaceAllStringFunc(s, func(arg string) string {
		out, err := strconv.ParseInt(arg[2:], 8, 8)
		if err != nil {
			return arg
		}
		return string(rune(out))
	})
	s = unescapeHex.ReplaceAllStringFunc(s, func(arg string) string {
		out, err := strconv.ParseInt(arg[2:], 16, 8)
		if err != nil {
			return arg
		}
		return string(rune(out))
	})
	return s
}

// Echo writes its arguments separated by spaces. Leading -n suppresses the
// newline and -e interprets backslash escapes; anything else, including
// other words starting with a dash, is printed.
func Echo(_ context.Context, inv *engine.Invocation) int {
	args := inv.Argv[1:]
	newline, escaped := true, false

flags:
	for len(args) > 0 {
		switch args[0] {
		case "-n":
			newline = false
		case "-e":
			escaped = true
		default:
			break flags
		}
		args = args[1:]
	}

	w := inv.Stdout
	for i, arg := range args {
		if i > 0 {
			fmt.Fprint(w, " ")
		}
		if escaped {
			arg = unescape(arg)
		}
		fmt.Fprint(w, arg)
	}
	if newline {
		fmt.Fprintln(w)
	}
	return 0
}

func init() {
	addBuiltin(&Builtin{Name: "echo", Short: "Display a line of text.", Main: Echo})
}
