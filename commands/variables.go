package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/josephlewis42/forksh/core/engine"
)

// Set lists shell variables, or sets each name or name=value argument.
func Set(_ context.Context, inv *engine.Invocation) int {
	if len(inv.Argv) == 1 {
		for _, kv := range inv.Vars.ShellList() {
			fmt.Fprintln(inv.Stdout, strings.Replace(kv, "=", "\t", 1))
		}
		return 0
	}

	for _, arg := range inv.Argv[1:] {
		name, value, _ := strings.Cut(arg, "=")
		if !validName(name) {
			fmt.Fprintf(inv.Stderr, "set: Variable name must begin with a letter.\n")
			return 1
		}
		inv.Vars.Shell.Set(name, value)
	}
	return 0
}

// Unset removes shell variables.
func Unset(_ context.Context, inv *engine.Invocation) int {
	if len(inv.Argv) == 1 {
		fmt.Fprintln(inv.Stderr, "unset: Too few arguments.")
		return 1
	}
	for _, name := range inv.Argv[1:] {
		inv.Vars.Shell.Unset(name)
	}
	return 0
}

// Setenv lists the environment, or sets NAME to VALUE.
func Setenv(_ context.Context, inv *engine.Invocation) int {
	switch len(inv.Argv) {
	case 1:
		for _, kv := range inv.Vars.Environ() {
			fmt.Fprintln(inv.Stdout, kv)
		}
		return 0
	case 2, 3:
		name := inv.Argv[1]
		if !validName(name) {
			fmt.Fprintln(inv.Stderr, "setenv: Variable name must begin with a letter.")
			return 1
		}
		value := ""
		if len(inv.Argv) == 3 {
			value = inv.Argv[2]
		}
		inv.Vars.Env.Set(name, value)
		return 0
	default:
		fmt.Fprintln(inv.Stderr, "setenv: Too many arguments.")
		return 1
	}
}

// Unsetenv removes environment variables.
func Unsetenv(_ context.Context, inv *engine.Invocation) int {
	if len(inv.Argv) == 1 {
		fmt.Fprintln(inv.Stderr, "unsetenv: Too few arguments.")
		return 1
	}
	for _, name := range inv.Argv[1:] {
		inv.Vars.Env.Unset(name)
	}
	return 0
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		letter := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !letter && (i == 0 || r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func init() {
	addBuiltin(&Builtin{Name: "set", Short: "Show or set shell variables.", Main: Set})
	addBuiltin(&Builtin{Name: "unset", Short: "Remove shell variables.", Main: Unset})
	addBuiltin(&Builtin{Name: "setenv", Short: "Show or set environment variables.", Main: Setenv})
	addBuiltin(&Builtin{Name: "unsetenv", Short: "Remove environment variables.", Main: Unsetenv})
}
