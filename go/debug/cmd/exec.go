package cmd

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bfincorn/go/models"
)

var StepCmd = cmd(&Command{
	Name: "step",
	Args: "[count]",
	Desc: "Single step instructions.",
	Run: func(c *Context, args ...string) error {
		n := 1
		if len(args) > 1 {
			return errors.New("usage: step [count]")
		} else if len(args) == 1 {
			var err error
			if n, err = strconv.Atoi(args[0]); err != nil || n < 1 {
				return errors.Errorf("bad count %q", args[0])
			}
		}
		var halt *models.Halt
		for i := 0; i < n && halt == nil; i++ {
			var err error
			if halt, err = c.M.SingleStep(); err != nil {
				return err
			}
		}
		if c.Diff != nil {
			c.Printf("%s", c.Diff.Changes(true).String(c.Color))
		}
		c.printHalt(halt)
		return nil
	},
})

var ContCmd = cmd(&Command{
	Name: "cont",
	Desc: "Run until a breakpoint or halt.",
	Run: func(c *Context) error {
		halt, err := c.M.Run()
		if err != nil {
			return err
		}
		c.printHalt(halt)
		return nil
	},
})
