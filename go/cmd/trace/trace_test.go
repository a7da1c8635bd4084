package trace

import (
	"bytes"
	"io/ioutil"
	"strings"
	"testing"

	"github.com/lunixbochs/bfincorn/go/models/trace"
)

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

var testRecords = []*trace.Record{
	{Kind: trace.REC_INS, Len: 2, PC: 0x1000, Words: [4]uint16{0x6028}},
	{Kind: trace.REC_INS, Len: 4, PC: 0x1002, Words: [4]uint16{0xe150, 0x0100}},
	{Kind: trace.REC_EVENT, PC: 0x1006, A: 3, B: 0x21},
	{Kind: trace.REC_INS, Len: 2, PC: 0x2000, Words: [4]uint16{0xf8c4}},
	{Kind: trace.REC_HALT, PC: 0x2000, A: 0, B: 0},
}

func testReader(t *testing.T) *trace.TraceReader {
	buf := nopCloser{&bytes.Buffer{}}
	w, err := trace.NewWriter(buf, "bfin", 0x1000)
	if err != nil {
		t.Fatal(err)
	}
	for _, rec := range testRecords {
		if err := w.Pack(rec); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	r, err := trace.NewReader(ioutil.NopCloser(bytes.NewReader(buf.Bytes())))
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestPrintPretty(t *testing.T) {
	var out bytes.Buffer
	if err := PrintPretty(testReader(t), &out); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"bfin trace, entry 0x00001000",
		"0x00001000: 6028",
		"0x00001002: e150 0100",
		"0x00001006: event EVX cause 0x21",
		"0x00002000: f8c4",
		"0x00002000: exit 0",
	}
	got := strings.Split(strings.TrimSpace(out.String()), "\n")
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("got:\n%s", out.String())
	}
}

func TestPrintJson(t *testing.T) {
	var out bytes.Buffer
	if err := PrintJson(testReader(t), &out); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != len(testRecords)+1 || !strings.Contains(lines[0], `"Arch":"bfin"`) {
		t.Fatalf("got:\n%s", out.String())
	}
}

func TestWriteDrcov(t *testing.T) {
	var out bytes.Buffer
	if err := WriteDrcov(testReader(t), &out); err != nil {
		t.Fatal(err)
	}
	s := out.String()
	idx := strings.Index(s, "BB Table: 2 bbs\n")
	if idx < 0 {
		t.Fatalf("got:\n%s", s)
	}
	if !strings.Contains(s, "0, 0x00000000, 0x01000000, 0x00000000, [sdram]") {
		t.Errorf("missing sdram module:\n%s", s)
	}
	blocks := []byte(s[idx+len("BB Table: 2 bbs\n"):])
	want := []byte{
		0x00, 0x10, 0x00, 0x00, 0x06, 0x00, 0x00, 0x00,
		0x00, 0x20, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00,
	}
	if !bytes.Equal(blocks, want) {
		t.Fatalf("blocks % x", blocks)
	}
}
