package debug

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/lunixbochs/bfincorn/go/models"
)

// gdbRegs is the remote register order gdb uses for Blackfin. cc is a
// view of ASTAT bit 5.
var gdbRegs = []string{
	"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7",
	"p0", "p1", "p2", "p3", "p4", "p5", "sp", "fp",
	"i0", "i1", "i2", "i3", "m0", "m1", "m2", "m3",
	"b0", "b1", "b2", "b3", "l0", "l1", "l2", "l3",
	"a0x", "a0w", "a1x", "a1w", "astat", "rets",
	"lc0", "lt0", "lb0", "lc1", "lt1", "lb1", "cycles", "cycles2",
	"usp", "seqstat", "syscfg", "reti", "retx", "retn", "rete",
	"pc", "cc",
}

const astatCC = 1 << 5

func escape(p []byte) []byte {
	out := make([]byte, 0, len(p))
	for _, c := range p {
		if c == '#' || c == '$' || c == '}' || c == '*' {
			out = append(out, '}')
			out = append(out, c^0x20)
		} else {
			out = append(out, c)
		}
	}
	return out
}

func unescape(p []byte) []byte {
	out := make([]byte, 0, len(p))
	for i := 0; i < len(p); i++ {
		if p[i] == '}' && i < len(p)-1 {
			i++
			out = append(out, p[i]^0x20)
		} else {
			out = append(out, p[i])
		}
	}
	return out
}

func checksum(p []byte) []byte {
	chk := 0
	for _, c := range p {
		chk = (chk + int(c)) % 256
	}
	return []byte(fmt.Sprintf("%02x", chk))
}

// parseRange splits "addr,len" with an optional "cmd:" prefix.
func parseRange(s string) (uint32, int, error) {
	tmp := strings.Split(s, ":")
	tmp = strings.Split(tmp[len(tmp)-1], ",")
	if len(tmp) != 2 {
		return 0, 0, errors.Errorf("bad range %q", s)
	}
	a, err := strconv.ParseUint(tmp[0], 16, 32)
	if err != nil {
		return 0, 0, errors.Wrap(err, "bad address")
	}
	b, err := strconv.ParseUint(tmp[1], 16, 31)
	if err != nil {
		return 0, 0, errors.Wrap(err, "bad length")
	}
	return uint32(a), int(b), nil
}

func fmtReg(v uint32) string {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return hex.EncodeToString(tmp[:])
}

func parseReg(s string) (uint32, error) {
	p, err := hex.DecodeString(s)
	if err != nil || len(p) != 4 {
		return 0, errors.Errorf("bad register value %q", s)
	}
	return binary.LittleEndian.Uint32(p), nil
}

// Gdbstub serves the gdb remote protocol for one core. Monitor commands
// are handed to Monitor when it is set.
type Gdbstub struct {
	D       models.Debuggee
	Monitor func(w io.Writer, line string) error
	Log     *logrus.Entry
}

func NewGdbstub(d models.Debuggee, log *logrus.Entry) *Gdbstub {
	return &Gdbstub{D: d, Log: log}
}

// Run serves c until the remote detaches or the connection closes. The
// last halt is returned so the caller can decide whether to keep running.
func (g *Gdbstub) Run(c net.Conn) (*models.Halt, error) {
	g.Log.WithField("remote", c.RemoteAddr().String()).Info("gdb connected")
	gc := newGdbClient(c, g)
	defer c.Close()
	err := gc.serve()
	if err == errDetached {
		err = nil
	}
	return gc.last, err
}

var errDetached = errors.New("detached")

type packet struct {
	data      []byte
	interrupt bool
	err       error
}

type gdbClient struct {
	rw    io.ReadWriter
	stub  *Gdbstub
	d     models.Debuggee
	noAck bool
	last  *models.Halt
	in    chan packet
	done  chan struct{}

	regIdx []int
}

func newGdbClient(rw io.ReadWriter, stub *Gdbstub) *gdbClient {
	c := &gdbClient{
		rw:   rw,
		stub: stub,
		d:    stub.D,
		in:   make(chan packet),
		done: make(chan struct{}),
	}
	c.regIdx = make([]int, len(gdbRegs))
	for i, name := range gdbRegs {
		idx, ok := c.d.RegisterIndex(name)
		if !ok {
			idx = -1
		}
		c.regIdx[i] = idx
	}
	return c
}

func (c *gdbClient) push(p packet) bool {
	select {
	case c.in <- p:
		return true
	case <-c.done:
		return false
	}
}

// readPackets feeds framed packets and interrupt requests to c.in.
func (c *gdbClient) readPackets() {
	input := bufio.NewReader(c.rw)
	for {
		b, err := input.ReadByte()
		if err != nil {
			c.push(packet{err: err})
			return
		}
		switch b {
		case 0x03:
			if !c.push(packet{interrupt: true}) {
				return
			}
			continue
		case '$':
		default:
			// acks, nacks and line noise
			continue
		}
		body, err := input.ReadBytes('#')
		if err != nil {
			c.push(packet{err: err})
			return
		}
		chk := make([]byte, 2)
		if _, err := io.ReadFull(input, chk); err != nil {
			c.push(packet{err: err})
			return
		}
		data := body[:len(body)-1]
		if string(checksum(data)) != strings.ToLower(string(chk)) {
			c.ack('-')
			continue
		}
		c.ack('+')
		if !c.push(packet{data: unescape(data)}) {
			return
		}
	}
}

func (c *gdbClient) ack(b byte) {
	if !c.noAck {
		c.rw.Write([]byte{b})
	}
}

func (c *gdbClient) Send(s string) error {
	data := escape([]byte(s))
	data = []byte("$" + string(data) + "#" + string(checksum(data)))
	_, err := c.rw.Write(data)
	return errors.Wrap(err, "gdbstub socket write failed")
}

func (c *gdbClient) serve() error {
	defer close(c.done)
	go c.readPackets()
	for p := range c.in {
		if p.err != nil {
			if p.err == io.EOF {
				return nil
			}
			return errors.Wrap(p.err, "gdbstub socket read failed")
		}
		if p.interrupt {
			continue
		}
		if err := c.Handle(p.data); err != nil {
			return err
		}
	}
	return nil
}

// stopReply reports the last halt the way gdb expects.
func (c *gdbClient) stopReply() string {
	h := c.last
	switch {
	case h == nil:
		return fmt.Sprintf("S%02x", models.SIGTRAP)
	case h.Reason == models.HaltExited:
		return fmt.Sprintf("W%02x", h.Status&0xff)
	default:
		return fmt.Sprintf("T%02x%02x:%s;thread:1;", h.Signal, c.pcNum(), fmtReg(h.PC))
	}
}

func (c *gdbClient) pcNum() int {
	for i, name := range gdbRegs {
		if name == "pc" {
			return i
		}
	}
	return 0
}

func (c *gdbClient) readReg(n int) (uint32, error) {
	if n < 0 || n >= len(gdbRegs) {
		return 0, errors.Errorf("register %d out of range", n)
	}
	if gdbRegs[n] == "cc" {
		astat, err := c.readReg(c.regByName("astat"))
		return (astat & astatCC) >> 5, err
	}
	if c.regIdx[n] < 0 {
		return 0, nil
	}
	return c.d.ReadRegister(c.regIdx[n])
}

func (c *gdbClient) writeReg(n int, val uint32) error {
	if n < 0 || n >= len(gdbRegs) {
		return errors.Errorf("register %d out of range", n)
	}
	if gdbRegs[n] == "cc" {
		astatN := c.regByName("astat")
		astat, err := c.readReg(astatN)
		if err != nil {
			return err
		}
		astat &^= astatCC
		if val != 0 {
			astat |= astatCC
		}
		return c.writeReg(astatN, astat)
	}
	if c.regIdx[n] < 0 {
		return nil
	}
	if gdbRegs[n] == "pc" {
		c.d.WritePC(val)
		return nil
	}
	return c.d.WriteRegister(c.regIdx[n], val)
}

func (c *gdbClient) regByName(name string) int {
	for i, n := range gdbRegs {
		if n == name {
			return i
		}
	}
	return -1
}

// resume runs the core until it halts. An interrupt from gdb stops it.
func (c *gdbClient) resume(step bool) error {
	type result struct {
		halt *models.Halt
		err  error
	}
	done := make(chan result, 1)
	go func() {
		var r result
		if step {
			r.halt, r.err = c.d.SingleStep()
		} else {
			r.halt, r.err = c.d.Run()
		}
		done <- r
	}()
	for {
		select {
		case r := <-done:
			if r.err != nil {
				return r.err
			}
			if r.halt == nil {
				r.halt = models.Stopped(c.d.ReadPC(), models.SIGTRAP, "step")
			}
			c.last = r.halt
			return c.Send(c.stopReply())
		case p := <-c.in:
			if p.err != nil {
				c.d.Stop()
				<-done
				return errors.Wrap(p.err, "connection lost while running")
			}
			if p.interrupt {
				c.d.Stop()
			}
		}
	}
}

// monitorWriter sends console output to gdb as O packets.
type monitorWriter struct{ c *gdbClient }

func (m monitorWriter) Write(p []byte) (int, error) {
	if err := m.c.Send("O" + hex.EncodeToString(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *gdbClient) Handle(cmdb []byte) error {
	if len(cmdb) == 0 {
		return nil
	}
	b, rest := cmdb[0], string(cmdb[1:])
	var cmd, args string
	if strings.Contains(rest, ":") {
		tmp := strings.SplitN(rest, ":", 2)
		cmd, args = tmp[0], tmp[1]
	} else {
		cmd = rest
	}
	log := c.stub.Log
	switch b {
	case 'q': // query
		switch {
		case cmd == "Supported":
			return c.Send("PacketSize=4000;QStartNoAckMode+")
		case cmd == "Attached":
			return c.Send("1")
		case cmd == "C":
			return c.Send("QC1")
		case cmd == "fThreadInfo":
			return c.Send("m1")
		case cmd == "sThreadInfo":
			return c.Send("l")
		case cmd == "Offsets":
			return c.Send("Text=0;Data=0;Bss=0")
		case cmd == "Symbol":
			return c.Send("OK")
		case cmd == "TStatus":
			return c.Send("")
		case strings.HasPrefix(cmd, "Rcmd,"):
			line, err := hex.DecodeString(cmd[len("Rcmd,"):])
			if err != nil || c.stub.Monitor == nil {
				return c.Send("E01")
			}
			if err := c.stub.Monitor(monitorWriter{c}, string(line)); err != nil {
				fmt.Fprintf(monitorWriter{c}, "error: %v\n", err)
			}
			return c.Send("OK")
		default:
			log.Debugf("unknown cmd q %s %s", cmd, args)
			return c.Send("")
		}
	case 'Q': // set query
		if cmd == "StartNoAckMode" {
			c.noAck = true
			return c.Send("OK")
		}
		log.Debugf("unknown cmd Q %s %s", cmd, args)
		return c.Send("")
	case 'v':
		return c.Send("")
	case 'g': // read regs
		var vals []string
		for i := range gdbRegs {
			v, err := c.readReg(i)
			if err != nil {
				return c.Send("E01")
			}
			vals = append(vals, fmtReg(v))
		}
		return c.Send(strings.Join(vals, ""))
	case 'G': // write regs
		for i := range gdbRegs {
			if len(rest) < (i+1)*8 {
				break
			}
			v, err := parseReg(rest[i*8 : (i+1)*8])
			if err != nil {
				return c.Send("E01")
			}
			if err := c.writeReg(i, v); err != nil {
				return c.Send("E01")
			}
		}
		return c.Send("OK")
	case 'p': // read one reg
		i, err := strconv.ParseUint(rest, 16, 16)
		if err != nil {
			return c.Send("E01")
		}
		v, err := c.readReg(int(i))
		if err != nil {
			return c.Send("E01")
		}
		return c.Send(fmtReg(v))
	case 'P': // write one reg
		tmp := strings.SplitN(rest, "=", 2)
		if len(tmp) != 2 {
			return c.Send("E01")
		}
		i, err := strconv.ParseUint(tmp[0], 16, 16)
		if err != nil {
			return c.Send("E01")
		}
		v, err := parseReg(tmp[1])
		if err != nil {
			return c.Send("E01")
		}
		if err := c.writeReg(int(i), v); err != nil {
			return c.Send("E01")
		}
		return c.Send("OK")
	case 'm': // read memory
		addr, size, err := parseRange(rest)
		if err != nil {
			return c.Send("E01")
		}
		mem, err := c.d.MemRead(addr, size)
		if err != nil {
			log.WithError(err).Debug("memory read failed")
			return c.Send("E14")
		}
		return c.Send(hex.EncodeToString(mem))
	case 'M': // write memory
		addr, _, err := parseRange(cmd)
		if err != nil {
			return c.Send("E01")
		}
		data, err := hex.DecodeString(args)
		if err != nil {
			return c.Send("E01")
		}
		if err := c.d.MemWrite(addr, data); err != nil {
			log.WithError(err).Debug("memory write failed")
			return c.Send("E14")
		}
		return c.Send("OK")
	case 'Z', 'z': // breakpoints
		fields := strings.Split(rest, ",")
		if len(fields) != 3 || (fields[0] != "0" && fields[0] != "1") {
			return c.Send("")
		}
		addr, err := strconv.ParseUint(fields[1], 16, 32)
		if err != nil {
			return c.Send("E01")
		}
		if b == 'Z' {
			c.d.SetBreakpoint(uint32(addr))
		} else {
			c.d.ClearBreakpoint(uint32(addr))
		}
		return c.Send("OK")
	case 'c': // continue
		if rest != "" {
			if addr, err := strconv.ParseUint(rest, 16, 32); err == nil {
				c.d.WritePC(uint32(addr))
			}
		}
		if c.last != nil && c.last.Reason == models.HaltExited {
			return c.Send(c.stopReply())
		}
		return c.resume(false)
	case 's': // step
		if c.last != nil && c.last.Reason == models.HaltExited {
			return c.Send(c.stopReply())
		}
		return c.resume(true)
	case '?': // last signal
		return c.Send(c.stopReply())
	case 'H', 'T': // thread ops
		return c.Send("OK")
	case 'D': // detach
		c.Send("OK")
		return errDetached
	case 'k': // kill
		return errDetached
	default:
		log.Debugf("unknown command %c %s", b, rest)
		return c.Send("")
	}
}
