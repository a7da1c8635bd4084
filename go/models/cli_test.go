package models

import (
	"bytes"
	"flag"
	"strings"
	"testing"
)

func TestWriteFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Bool("v", false, "verbose output")
	fs.Int("gdb", -1, "listen for gdb connection on localhost:<port>")
	fs.String("to", "trace.bin", "binary trace output file, written as the program runs and flushed when it halts")
	var main, trace []*flag.Flag
	fs.VisitAll(func(f *flag.Flag) {
		if f.Name == "to" {
			trace = append(trace, f)
		} else {
			main = append(main, f)
		}
	})

	var out bytes.Buffer
	WriteFlags(&out, 70, FlagSection{Flags: main}, FlagSection{Title: "Trace Options", Flags: trace})
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	want := []string{
		"  -gdb             listen for gdb connection on localhost:<port>",
		"  -v               verbose output",
		"",
		"Trace Options:",
		"  -to  (trace.bin) binary trace output file, written as the program",
		"                   runs and flushed when it halts",
	}
	if strings.Join(lines, "\n") != strings.Join(want, "\n") {
		t.Fatalf("got:\n%s\nwant:\n%s", strings.Join(lines, "\n"), strings.Join(want, "\n"))
	}
}

func TestWrapWords(t *testing.T) {
	got := wrapWords("a bb ccc\nverylongword d", 4)
	want := []string{"a bb", "ccc", "verylongword", "d"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %q", got)
	}
}
