package models

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const hexWidth = 80

func printable(p []byte) string {
	o := make([]byte, len(p))
	for i, c := range p {
		if c >= 0x20 && c <= 0x7e {
			o[i] = c
		} else {
			o[i] = '.'
		}
	}
	return string(o)
}

// HexDump formats mem as 32-bit words, one line per row, with the printable
// bytes on the right.
func HexDump(base uint32, mem []byte) []string {
	const bsz = 4
	padBlock := strings.Repeat(" ", bsz*2)
	padTail := strings.Repeat(" ", bsz)

	addrSize := bsz*2 + 4
	blockCount := ((hexWidth - addrSize) * 3 / 4) / ((bsz + 1) * 2)
	lineSize := blockCount * bsz
	var out []string
	blocks := make([]string, blockCount)
	tail := make([]string, blockCount)
	for i := 0; i < len(mem); i += lineSize {
		memLine := mem[i:]
		for j := 0; j < blockCount; j++ {
			if j*bsz >= len(memLine) {
				blocks[j] = padBlock
				tail[j] = padTail
				continue
			}
			end := (j + 1) * bsz
			var block []byte
			if end > len(memLine) {
				block = memLine[j*bsz:]
			} else {
				block = memLine[j*bsz : end]
			}
			blocks[j] = hex.EncodeToString(block)
			tail[j] = printable(block)
			if end > len(memLine) {
				pad := end - len(memLine)
				blocks[j] += strings.Repeat("  ", pad)
				tail[j] += strings.Repeat(" ", pad)
			}
		}
		out = append(out, fmt.Sprintf("0x%08x: %s [%s]", base+uint32(i),
			strings.Join(blocks, " "), strings.Join(tail, " ")))
	}
	return out
}

// Repr quotes p, escaping unprintable bytes and truncating to strsize.
func Repr(p []byte, strsize int) string {
	tmp := make([]string, len(p))
	for i, b := range p {
		if b >= 0x20 && b <= 0x7e {
			tmp[i] = string(b)
		} else {
			tmp[i] = fmt.Sprintf("\\x%02x", b)
		}
	}
	out := strings.Join(tmp, "")
	if strsize > 0 && len(out) > strsize {
		for i := len(tmp) - 1; len(out) > strsize-3; i-- {
			out = strings.Join(tmp[:i], "")
		}
		return "\"" + out + "\"..."
	}
	return "\"" + out + "\""
}
