package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
)

// subcommand is one tool reachable as `bfincorn <name>`.
type subcommand struct {
	desc string
	main func(args []string)
}

var subcommands = map[string]subcommand{}

// Register adds a subcommand. main gets the argument list with
// "<prog> <name>" joined into args[0] so flag usage reads naturally.
func Register(name, desc string, main func(args []string)) {
	if _, dup := subcommands[name]; dup {
		panic("cmd: subcommand registered twice: " + name)
	}
	subcommands[name] = subcommand{desc, main}
}

func listCommands(w io.Writer, prog string) {
	names := make([]string, 0, len(subcommands))
	for name := range subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(w, "Usage: %s <command> [options]\n\nCommands:\n", prog)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(tw, "  %s\t%s\n", name, subcommands[name].desc)
	}
	tw.Flush()
	fmt.Fprintf(w, "\nExample: %s run -etrace -rtrace test.elf\n", prog)
}

// dispatch runs the subcommand named by args[1]. It returns the exit
// status for the cases where no subcommand ran.
func dispatch(args []string, w io.Writer) int {
	if len(args) < 2 {
		listCommands(w, args[0])
		return 1
	}
	switch args[1] {
	case "help", "-h", "-help", "--help":
		listCommands(w, args[0])
		return 0
	}
	sub, ok := subcommands[args[1]]
	if !ok {
		fmt.Fprintf(w, "Command '%s' not found.\n\n", args[1])
		listCommands(w, args[0])
		return 1
	}
	sub.main(append([]string{strings.Join(args[:2], " ")}, args[2:]...))
	return 0
}

func Main() {
	os.Exit(dispatch(os.Args, os.Stderr))
}
