package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"teamboard-cli/internal/cli"
)

// taskRef reports whether s is a "#42" task reference and returns the id.
func taskRef(s string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "#")
	if !ok {
		return "", false
	}
	if id, err := strconv.ParseInt(rest, 10, 64); err != nil || id <= 0 {
		return "", false
	}
	return rest, true
}

// rewriteShortcutArgs expands the first positional token:
//
//	teamboard #42         -> teamboard tasks show 42
//	teamboard /boards/12  -> teamboard route check /boards/12
//
// Cobra treats the first non-flag token as a subcommand, so this happens
// before parsing. Persistent flags may come first.
func rewriteShortcutArgs(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}
	valueFlags := map[string]bool{
		"--api-url":   true,
		"--format":    true,
		"--log-level": true,
	}

	// expand replaces argv[from:i+1] with the expansion; from < i drops a
	// preceding "--" so the subcommand is still parsed as one.
	expand := func(from, i int) []string {
		a := strings.TrimSpace(argv[i])
		var with []string
		if id, ok := taskRef(a); ok {
			with = []string{"tasks", "show", id}
		} else if strings.HasPrefix(a, "/") {
			with = []string{"route", "check", a}
		} else {
			return argv
		}
		out := make([]string, 0, len(argv)+2)
		out = append(out, argv[:from]...)
		out = append(out, with...)
		return append(out, argv[i+1:]...)
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		switch {
		case a == "":
			continue
		case a == "--":
			if i+1 < len(argv) {
				return expand(i, i+1)
			}
			return argv
		case strings.HasPrefix(a, "-"):
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++
			}
			continue
		}
		return expand(i, i)
	}
	return argv
}

func main() {
	os.Args = rewriteShortcutArgs(os.Args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
