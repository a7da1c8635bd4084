package models

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// FlagSection is one titled block of a command's option listing.
type FlagSection struct {
	Title string
	Flags []*flag.Flag
}

// WriteFlags lists every section with the flag names and defaults in
// shared columns, wrapping usage text to width.
func WriteFlags(w io.Writer, width int, sections ...FlagSection) {
	wname, wdef := 0, 0
	for _, s := range sections {
		for _, f := range s.Flags {
			if len(f.Name) > wname {
				wname = len(f.Name)
			}
			if d := flagDefault(f); len(d) > wdef {
				wdef = len(d)
			}
		}
	}
	indent := 2 + 1 + wname + 1 + wdef + 1
	wdesc := width - indent
	if wdesc < 20 {
		wdesc = 20
	}
	for i, s := range sections {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if s.Title != "" {
			fmt.Fprintf(w, "%s:\n", s.Title)
		}
		for _, f := range s.Flags {
			lines := wrapWords(f.Usage, wdesc)
			if len(lines) == 0 {
				lines = []string{""}
			}
			fmt.Fprintf(w, "  -%-*s %-*s %s\n", wname, f.Name, wdef, flagDefault(f), lines[0])
			for _, l := range lines[1:] {
				fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", indent), l)
			}
		}
	}
}

// flagDefault hides zero values that carry no information.
func flagDefault(f *flag.Flag) string {
	switch f.DefValue {
	case "", "[]", "false", "0", "-1":
		return ""
	}
	return "(" + f.DefValue + ")"
}

// wrapWords breaks text into lines of at most width columns. Explicit
// newlines are kept. A single word longer than width gets its own line.
func wrapWords(text string, width int) []string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			switch {
			case line == "":
				line = word
			case len(line)+1+len(word) <= width:
				line += " " + word
			default:
				out = append(out, line)
				line = word
			}
		}
		out = append(out, line)
	}
	return out
}
