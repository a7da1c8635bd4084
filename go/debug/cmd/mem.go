package cmd

import (
	"encoding/hex"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bfincorn/go/models"
)

var MapsCmd = cmd(&Command{
	Name: "maps",
	Desc: "Display memory mappings.",
	Run: func(c *Context) error {
		for _, m := range c.M.Mem.Regions() {
			c.Printf("  %v\n", m.String())
		}
		return nil
	},
})

var MemCmd = cmd(&Command{
	Name: "mem",
	Args: "<addr> <size>",
	Desc: "Read memory.",
	Run: func(c *Context, desc string, size uint32) error {
		addr, err := c.Addr(desc)
		if err != nil {
			return err
		}
		mem, err := c.M.MemRead(addr, int(size))
		if err != nil {
			return err
		}
		for _, line := range models.HexDump(addr, mem) {
			c.Printf("  %s\n", line)
		}
		return nil
	},
})

var WriteCmd = cmd(&Command{
	Name: "write",
	Args: "<addr> <hex>",
	Desc: "Write hex bytes to memory.",
	Run: func(c *Context, desc, data string) error {
		addr, err := c.Addr(desc)
		if err != nil {
			return err
		}
		p, err := hex.DecodeString(data)
		if err != nil {
			return errors.Wrap(err, "bad hex")
		}
		return c.M.MemWrite(addr, p)
	},
})
