package cmd

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/lunixbochs/argjoy"

	"github.com/lunixbochs/bfincorn/go/cpu/bfin"
	"github.com/lunixbochs/bfincorn/go/models"
)

const base = 0x1000

type nopCloser struct{ bytes.Buffer }

func (n *nopCloser) Close() error { return nil }

func asm(words ...uint16) []byte {
	p := make([]byte, len(words)*2)
	for i, w := range words {
		binary.LittleEndian.PutUint16(p[i*2:], w)
	}
	return p
}

func testContext(t *testing.T) (*Context, *bytes.Buffer) {
	m, err := bfin.New(&models.Config{Output: &nopCloser{}, Entry: base})
	if err != nil {
		t.Fatal(err)
	}
	// R0 = 5; HLT
	if err := m.Mem.Write(base, asm(0x6028, 0xf8c4)); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	return &Context{Writer: &out, M: m}, &out
}

func run(t *testing.T, c *Context, line string) {
	if err := Run(c, line); err != nil {
		t.Fatal(err)
	}
}

func TestRegCommand(t *testing.T) {
	c, out := testContext(t)
	run(t, c, "reg r0=0x10 R0 a0.x=0x1ff a0x")
	if got := out.String(); got != "R0 0x10\nA0.X 0xff\n" {
		t.Fatalf("got %q", got)
	}
	out.Reset()
	run(t, c, "reg nope")
	if got := out.String(); got != "reg nope not found\n" {
		t.Fatalf("got %q", got)
	}
	out.Reset()
	run(t, c, "reg")
	if !strings.Contains(out.String(), "\nR0 0x10\n") {
		t.Fatalf("dump missing R0:\n%s", out.String())
	}
}

func TestStepAndBreak(t *testing.T) {
	c, out := testContext(t)
	run(t, c, "step")
	if c.M.ReadPC() != base+2 || !strings.Contains(out.String(), "pc = 0x00001002") {
		t.Fatalf("step: pc %#x, %q", c.M.ReadPC(), out.String())
	}
	if v, _ := c.M.ReadRegister(0); v != 5 {
		t.Fatalf("R0 = %d", v)
	}

	c, out = testContext(t)
	run(t, c, "break 0x1002")
	if bps := c.M.Breakpoints(); len(bps) != 1 || bps[0] != base+2 {
		t.Fatalf("breakpoints %v", bps)
	}
	run(t, c, "cont")
	if !strings.Contains(out.String(), "breakpoint") || c.M.ReadPC() != base+2 {
		t.Fatalf("cont did not stop at the breakpoint: %q", out.String())
	}
	out.Reset()
	run(t, c, "cont")
	if !strings.Contains(out.String(), "exited with status 0") {
		t.Fatalf("got %q", out.String())
	}
}

func TestSymbolBreakpoint(t *testing.T) {
	c, out := testContext(t)
	c.Syms = models.NewSymbolTable([]models.Symbol{{Name: "start", Start: base, End: base + 4}})
	run(t, c, "break start+2")
	if bps := c.M.Breakpoints(); len(bps) != 1 || bps[0] != base+2 {
		t.Fatalf("breakpoints %v", bps)
	}
	out.Reset()
	run(t, c, "break")
	if got := out.String(); got != "  0x00001002 start+0x2\n" {
		t.Fatalf("got %q", got)
	}
}

func TestRunErrors(t *testing.T) {
	c, out := testContext(t)
	run(t, c, "bogus")
	run(t, c, "mem")
	run(t, c, "maps extra")
	run(t, c, `reg "unterminated`)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	want := []string{
		"command not found.",
		"error: usage: mem <addr> <size>",
		"error: usage: maps ",
		"parse error:",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %q", lines)
	}
	for i := range want {
		if !strings.HasPrefix(lines[i], want[i]) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], want[i])
		}
	}
}

func TestStateCommands(t *testing.T) {
	c, out := testContext(t)
	run(t, c, "cec")
	if !strings.Contains(out.String(), "IPEND") || !strings.Contains(out.String(), "EVT15") {
		t.Fatalf("cec output %q", out.String())
	}
	out.Reset()
	run(t, c, "cplb")
	if !strings.Contains(out.String(), "dcplb") || !strings.Contains(out.String(), "icplb") {
		t.Fatalf("cplb output %q", out.String())
	}
	out.Reset()
	run(t, c, "maps")
	if len(c.M.Mem.Regions()) > 0 && !strings.Contains(out.String(), "0x") {
		t.Fatalf("maps output %q", out.String())
	}
	out.Reset()
	run(t, c, "help")
	for _, name := range Names() {
		if !strings.Contains(out.String(), name) {
			t.Errorf("help is missing %s", name)
		}
	}
}

func TestParseArg(t *testing.T) {
	var u uint32
	if err := parseArg(&u, []interface{}{"0x20"}); err != nil || u != 0x20 {
		t.Fatalf("uint32: %v %#x", err, u)
	}
	if err := parseArg(&u, []interface{}{"0x100000000"}); err == nil {
		t.Fatal("accepted a 33-bit value")
	}
	var n int
	if err := parseArg(&n, []interface{}{"-3"}); err != nil || n != -3 {
		t.Fatalf("int: %v %d", err, n)
	}
	var f float64
	if err := parseArg(&f, []interface{}{"1"}); err != argjoy.NoMatch {
		t.Fatalf("float: %v", err)
	}
	if err := parseArg(&u, []interface{}{uint64(1)}); err != argjoy.NoMatch {
		t.Fatalf("non-string: %v", err)
	}
}
