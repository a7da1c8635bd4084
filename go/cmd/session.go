package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/lunixbochs/bfincorn/go/cpu/bfin"
	"github.com/lunixbochs/bfincorn/go/debug"
	"github.com/lunixbochs/bfincorn/go/models"
)

// finish runs a machine a debugger left behind, unless it already exited.
func finish(m *bfin.Machine, last *models.Halt) (*models.Halt, error) {
	if last != nil && last.Reason == models.HaltExited {
		return last, nil
	}
	return m.Run()
}

func (c *BfinCmd) serveGdb(port int) (*models.Halt, error) {
	log := c.Config.Logger("gdb")
	conn, err := debug.Accept("localhost", strconv.Itoa(port), log)
	if err != nil {
		return nil, err
	}
	stub := debug.NewGdbstub(c.Machine, log)
	stub.Monitor = debug.Monitor(c.Machine, c.Syms)
	last, err := stub.Run(conn)
	if err != nil {
		return nil, err
	}
	return finish(c.Machine, last)
}

func (c *BfinCmd) serveConsole(port int) (*models.Halt, error) {
	log := c.Config.Logger("console")
	conn, err := debug.Accept("localhost", strconv.Itoa(port), log)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	con, err := debug.NewRemoteConsole(c.Machine, c.Syms, conn)
	if err != nil {
		return nil, err
	}
	con.Run()
	return c.Machine.Run()
}

func (c *BfinCmd) localConsole() (*models.Halt, error) {
	con, err := debug.NewConsole(c.Machine, c.Syms)
	if err != nil {
		return nil, err
	}
	con.Run()
	return c.Machine.Run()
}

// hookRegDiff prints the registers each instruction changed.
func hookRegDiff(m *bfin.Machine, config *models.Config) {
	var out io.Writer = config.Output
	diff := &models.StatusDiff{D: m}
	diff.Changes(true)
	m.Hooks().HookCode(func(addr uint32, size int) {
		if changes := diff.Changes(true); changes.Count() > 0 {
			fmt.Fprintf(out, "%s", changes.String(config.Color))
		}
	}, 1, 0)
}
