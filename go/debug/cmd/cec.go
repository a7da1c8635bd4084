package cmd

import (
	"github.com/lunixbochs/bfincorn/go/cpu/bfin/cec"
	"github.com/lunixbochs/bfincorn/go/cpu/bfin/mmu"
)

var CecCmd = cmd(&Command{
	Name: "cec",
	Desc: "Show event controller state.",
	Run: func(c *Context) error {
		e := c.M.CEC
		c.Printf("level %s, supervisor %v\n", e.CurrentIVG(), e.IsSupervisor())
		c.Printf("IMASK %s\n", e.IMASK)
		c.Printf("ILAT  %s\n", e.ILAT)
		c.Printf("IPEND %s\n", e.IPEND)
		for i, v := range e.EVT {
			c.Printf("  EVT%-2d %-6s 0x%08x\n", i, cec.IVG(i), v)
		}
		return nil
	},
})

func printSpace(c *Context, name string, s *mmu.Space) {
	c.Printf("%s: control 0x%08x enabled %v fault status 0x%08x addr 0x%08x\n",
		name, s.Control, s.Enabled(), s.Fault.Status, s.Fault.Addr)
	for i, e := range s.CPLB {
		if !e.Valid() {
			continue
		}
		c.Printf("  %2d 0x%08x-0x%08x data %#06x\n", i, e.Addr, e.Addr+e.PageSize()-1, e.Data)
	}
}

var CplbCmd = cmd(&Command{
	Name: "cplb",
	Desc: "Show valid CPLB entries.",
	Run: func(c *Context) error {
		printSpace(c, "dcplb", &c.M.MMU.D)
		printSpace(c, "icplb", &c.M.MMU.I)
		return nil
	},
})
