package debug

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/lunixbochs/bfincorn/go/cpu/bfin"
	"github.com/lunixbochs/bfincorn/go/models"
)

const base = 0x1000

type nopCloser struct{ bytes.Buffer }

func (n *nopCloser) Close() error { return nil }

func testMachine(t *testing.T) *bfin.Machine {
	m, err := bfin.New(&models.Config{Output: &nopCloser{}, Entry: base, Debug: true})
	if err != nil {
		t.Fatal(err)
	}
	// R0 = 5; R1 = 3; R2 = R0 + R1; HLT
	code := []uint16{0x6028, 0x6019, 0x5088, 0xf8c4}
	p := make([]byte, len(code)*2)
	for i, w := range code {
		binary.LittleEndian.PutUint16(p[i*2:], w)
	}
	if err := m.Mem.Write(base, p); err != nil {
		t.Fatal(err)
	}
	return m
}

type gdbConn struct {
	t *testing.T
	c net.Conn
	r *bufio.Reader
}

func (g *gdbConn) cmd(pkt string) string {
	fmt.Fprintf(g.c, "$%s#%s", pkt, checksum([]byte(pkt)))
	return g.reply()
}

// reply skips acks and returns the next packet body.
func (g *gdbConn) reply() string {
	for {
		b, err := g.r.ReadByte()
		if err != nil {
			g.t.Fatal(err)
		}
		if b == '$' {
			break
		}
	}
	body, err := g.r.ReadString('#')
	if err != nil {
		g.t.Fatal(err)
	}
	if _, err := io.ReadFull(g.r, make([]byte, 2)); err != nil {
		g.t.Fatal(err)
	}
	return body[:len(body)-1]
}

func startStub(t *testing.T, m *bfin.Machine) (*gdbConn, chan error) {
	server, client := net.Pipe()
	stub := NewGdbstub(m, m.Config().Logger("gdb"))
	stub.Monitor = Monitor(m, nil)
	done := make(chan error, 1)
	go func() {
		_, err := stub.Run(server)
		done <- err
	}()
	return &gdbConn{t: t, c: client, r: bufio.NewReader(client)}, done
}

func TestGdbstubSession(t *testing.T) {
	m := testMachine(t)
	g, done := startStub(t, m)
	defer g.c.Close()

	if r := g.cmd("QStartNoAckMode"); r != "OK" {
		t.Fatalf("QStartNoAckMode: %q", r)
	}
	if r := g.cmd("?"); r != "S05" {
		t.Fatalf("?: %q", r)
	}
	regs := g.cmd("g")
	if len(regs) != len(gdbRegs)*8 {
		t.Fatalf("g returned %d chars", len(regs))
	}
	pcN := 53
	if gdbRegs[pcN] != "pc" || regs[pcN*8:pcN*8+8] != "00100000" {
		t.Fatalf("pc slot %q", regs[pcN*8:pcN*8+8])
	}
	if r := g.cmd("m1000,4"); r != "28601960" {
		t.Fatalf("m: %q", r)
	}
	if r := g.cmd("Z0,1004,2"); r != "OK" {
		t.Fatalf("Z0: %q", r)
	}
	if r := g.cmd("c"); r != "T0535:04100000;thread:1;" {
		t.Fatalf("c to breakpoint: %q", r)
	}
	if r := g.cmd("s"); r != "T0535:06100000;thread:1;" {
		t.Fatalf("s: %q", r)
	}
	if r := g.cmd("p2"); r != "08000000" {
		t.Fatalf("p2: %q", r)
	}
	if r := g.cmd("P1=2a000000"); r != "OK" || m.Regs.D(1) != 42 {
		t.Fatalf("P1: %q R1 = %d", r, m.Regs.D(1))
	}
	if r := g.cmd("M2000,2:abcd"); r != "OK" {
		t.Fatalf("M: %q", r)
	}
	if r := g.cmd("m2000,2"); r != "abcd" {
		t.Fatalf("m after M: %q", r)
	}
	if r := g.cmd("z0,1004,2"); r != "OK" || len(m.Breakpoints()) != 0 {
		t.Fatalf("z0: %q %v", r, m.Breakpoints())
	}
	if r := g.cmd("c"); r != "W00" {
		t.Fatalf("c to exit: %q", r)
	}
	if r := g.cmd("vMustReplyEmpty"); r != "" {
		t.Fatalf("v: %q", r)
	}
	if r := g.cmd("D"); r != "OK" {
		t.Fatalf("D: %q", r)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestGdbstubMonitor(t *testing.T) {
	m := testMachine(t)
	g, done := startStub(t, m)
	defer g.c.Close()

	g.cmd("QStartNoAckMode")
	r := g.cmd("qRcmd," + hex.EncodeToString([]byte("reg pc")))
	var out string
	for r != "OK" && strings.HasPrefix(r, "O") {
		p, err := hex.DecodeString(r[1:])
		if err != nil {
			t.Fatal(err)
		}
		out += string(p)
		r = g.reply()
	}
	if r != "OK" || out != "PC 0x1000\n" {
		t.Fatalf("monitor: %q %q", r, out)
	}
	g.c.Close()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestGdbEscape(t *testing.T) {
	in := []byte("a#b$c}d*e")
	if out := unescape(escape(in)); !bytes.Equal(out, in) {
		t.Fatalf("round trip gave %q", out)
	}
	if string(checksum([]byte("OK"))) != "9a" {
		t.Fatal("bad checksum")
	}
}
