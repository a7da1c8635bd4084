package trace

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/lunixbochs/bfincorn/go/models"
	"github.com/lunixbochs/bfincorn/go/models/mem"
	"github.com/lunixbochs/bfincorn/go/models/trace"
)

type drcovBB struct {
	Start uint32
	Size  uint16
	ModId uint16
}

var strucOptions = &struc.Options{Order: binary.LittleEndian}

// drcov modules are the executable regions of the default memory layout.
func execModules() []models.RegionConfig {
	var mods []models.RegionConfig
	for _, r := range models.DefaultRegions {
		if r.Prot&mem.PROT_EXEC != 0 {
			mods = append(mods, r)
		}
	}
	return mods
}

func findModule(mods []models.RegionConfig, addr uint32) int {
	for i, r := range mods {
		if addr >= r.Addr && uint64(addr) < uint64(r.Addr)+uint64(r.Size) {
			return i
		}
	}
	return -1
}

// WriteDrcov converts executed instructions to drcov basic blocks. A block
// ends wherever execution does not fall through to the next instruction.
func WriteDrcov(tf *trace.TraceReader, out io.Writer) error {
	mods := execModules()
	var blocks bytes.Buffer
	bbCount := 0
	var cur *drcovBB
	var curMod int
	var next uint32
	flush := func() error {
		if cur == nil {
			return nil
		}
		if err := struc.PackWithOptions(&blocks, cur, strucOptions); err != nil {
			return err
		}
		bbCount++
		cur = nil
		return nil
	}
	for {
		rec, err := tf.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return errors.Wrap(err, "error reading next trace record")
		}
		if rec.Kind != trace.REC_INS {
			continue
		}
		mod := findModule(mods, rec.PC)
		if mod < 0 {
			continue
		}
		if cur != nil && rec.PC == next && mod == curMod && int(cur.Size)+int(rec.Len) <= 0xffff {
			cur.Size += uint16(rec.Len)
		} else {
			if err := flush(); err != nil {
				return err
			}
			cur = &drcovBB{Start: rec.PC - mods[mod].Addr, Size: uint16(rec.Len), ModId: uint16(mod)}
			curMod = mod
		}
		next = rec.PC + uint32(rec.Len)
	}
	if err := flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "DRCOV VERSION: 2\n")
	fmt.Fprintf(out, "DRCOV FLAVOR: drcov-32\n")
	fmt.Fprintf(out, "Module Table: version 2, count %d\n", len(mods))
	fmt.Fprintf(out, "Columns: id, base, end, entry, path\n")
	for i, r := range mods {
		fmt.Fprintf(out, "%d, 0x%08x, 0x%08x, 0x%08x, [%s]\n", i, r.Addr, uint64(r.Addr)+uint64(r.Size), 0, r.Name)
	}
	fmt.Fprintf(out, "BB Table: %d bbs\n", bbCount)
	_, err := blocks.WriteTo(out)
	return err
}
