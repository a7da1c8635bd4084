package trace

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bfincorn/go/cmd"
	"github.com/lunixbochs/bfincorn/go/cpu/bfin/cec"
	"github.com/lunixbochs/bfincorn/go/models"
	"github.com/lunixbochs/bfincorn/go/models/trace"
)

func PrintJson(tf *trace.TraceReader, w io.Writer) error {
	out, err := json.Marshal(&tf.Header)
	if err != nil {
		return errors.Wrap(err, "error printing header")
	}
	fmt.Fprintf(w, "%s\n", out)
	for {
		rec, err := tf.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return errors.Wrap(err, "error reading next trace record")
		}
		out, _ := json.Marshal(rec)
		fmt.Fprintf(w, "%s\n", out)
	}
	return nil
}

// FormatRecord renders one record as a line of console text.
func FormatRecord(rec *trace.Record) string {
	switch rec.Kind {
	case trace.REC_INS:
		n := int(rec.Len) / 2
		if n > len(rec.Words) {
			n = len(rec.Words)
		}
		s := fmt.Sprintf("0x%08x:", rec.PC)
		for _, w := range rec.Words[:n] {
			s += fmt.Sprintf(" %04x", w)
		}
		return s
	case trace.REC_EVENT:
		return fmt.Sprintf("0x%08x: event %s cause %#x", rec.PC, cec.IVG(rec.A), rec.B)
	case trace.REC_READ:
		return fmt.Sprintf("0x%08x: R 0x%08x [%d] = %#x", rec.PC, rec.A, rec.Len, rec.B)
	case trace.REC_WRITE:
		return fmt.Sprintf("0x%08x: W 0x%08x [%d] = %#x", rec.PC, rec.A, rec.Len, rec.B)
	case trace.REC_HALT:
		if models.HaltReason(rec.A) == models.HaltExited {
			return fmt.Sprintf("0x%08x: exit %d", rec.PC, rec.B)
		}
		return fmt.Sprintf("0x%08x: stop signal %d", rec.PC, rec.B)
	}
	return fmt.Sprintf("0x%08x: unknown record kind %d", rec.PC, rec.Kind)
}

func PrintPretty(tf *trace.TraceReader, w io.Writer) error {
	fmt.Fprintf(w, "%s trace, entry 0x%08x\n", tf.Header.Arch, tf.Header.Entry)
	for {
		rec, err := tf.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return errors.Wrap(err, "error reading next trace record")
		}
		fmt.Fprintln(w, FormatRecord(rec))
	}
	return nil
}

func Main(args []string) {
	fs := flag.NewFlagSet("args", flag.ExitOnError)
	jsonFlag := fs.Bool("json", false, "output trace as line-delimited JSON objects")
	prettyFlag := fs.Bool("pretty", false, "output trace as human-readable console text")
	drcovFlag := fs.String("drcov", "", "output trace to drcov file")
	fs.Usage = func() {
		fmt.Printf("Usage: %s [options] <tracefile>\n", args[0])
		fs.PrintDefaults()
	}

	fs.Parse(args[1:])
	if fs.NArg() == 0 || !(*jsonFlag || *prettyFlag || *drcovFlag != "") {
		fs.Usage()
		os.Exit(1)
	}
	args = fs.Args()

	f, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open: %s %v\n", args[0], err)
		os.Exit(1)
	}
	tf, err := trace.NewReader(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening trace file: %v\n", err)
		os.Exit(1)
	}
	defer tf.Close()
	if *jsonFlag {
		if err := PrintJson(tf, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "error printing json: %v\n", err)
			os.Exit(1)
		}
	} else if *prettyFlag {
		if err := PrintPretty(tf, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "error printing pretty: %v\n", err)
			os.Exit(1)
		}
	} else if *drcovFlag != "" {
		f, err := os.Create(*drcovFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error opening drcov output file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := WriteDrcov(tf, f); err != nil {
			fmt.Fprintf(os.Stderr, "error generating drcov file: %v\n", err)
			os.Exit(1)
		}
	}
}

func init() { cmd.Register("trace", "manipulate a saved trace file", Main) }
