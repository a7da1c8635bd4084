package cmd

import (
	"fmt"
	"io"

	"github.com/lunixbochs/bfincorn/go/cpu/bfin"
	"github.com/lunixbochs/bfincorn/go/models"
)

type Context struct {
	io.Writer
	M    *bfin.Machine
	Syms models.SymbolTable
	// Diff, when set, prints changed registers after each step.
	Diff  *models.StatusDiff
	Color bool
}

func (c *Context) Printf(format string, a ...interface{}) (n int, err error) {
	return fmt.Fprintf(c, format, a...)
}

// Addr resolves a number or symbol[+off] to an address.
func (c *Context) Addr(desc string) (uint32, error) {
	bp, err := models.NewBreakpoint(desc, c.Syms)
	if err != nil {
		return 0, err
	}
	return bp.Addr, nil
}

func (c *Context) printHalt(h *models.Halt) {
	pc := c.M.ReadPC()
	if h != nil {
		c.Printf("%s\n", h)
		pc = h.PC
	}
	c.Printf("pc = %s\n", c.Syms.Symbolicate(pc))
}
