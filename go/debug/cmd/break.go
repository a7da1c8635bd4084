package cmd

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bfincorn/go/models"
)

var BreakCmd = cmd(&Command{
	Name: "break",
	Args: "[addr|sym[+off]]",
	Desc: "Set or list breakpoints.",
	Run: func(c *Context, args ...string) error {
		if len(args) == 0 {
			addrs := c.M.Breakpoints()
			sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
			for _, addr := range addrs {
				c.Printf("  0x%08x %s\n", addr, c.Syms.Symbolicate(addr))
			}
			return nil
		}
		for _, desc := range args {
			bp, err := models.NewBreakpoint(desc, c.Syms)
			if err != nil {
				return err
			}
			c.M.SetBreakpoint(bp.Addr)
			c.Printf("breakpoint at %s\n", bp)
		}
		return nil
	},
})

var DeleteCmd = cmd(&Command{
	Name: "delete",
	Args: "<addr|sym[+off]>",
	Desc: "Remove a breakpoint.",
	Run: func(c *Context, desc string) error {
		addr, err := c.Addr(desc)
		if err != nil {
			return err
		}
		for _, b := range c.M.Breakpoints() {
			if b == addr {
				c.M.ClearBreakpoint(addr)
				return nil
			}
		}
		return errors.Errorf("no breakpoint at 0x%08x", addr)
	},
})

var SymCmd = cmd(&Command{
	Name: "sym",
	Args: "<name|addr>",
	Desc: "Look up a symbol.",
	Run: func(c *Context, desc string) error {
		if s, ok := c.Syms.Find(desc); ok {
			c.Printf("%s 0x%08x-0x%08x\n", s.Name, s.Start, s.End)
			return nil
		}
		addr, err := c.Addr(desc)
		if err != nil {
			return err
		}
		c.Printf("0x%08x %s\n", addr, c.Syms.Symbolicate(addr))
		return nil
	},
})
