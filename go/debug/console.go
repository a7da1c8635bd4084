package debug

import (
	"fmt"
	"io"
	"net"
	"path/filepath"

	"github.com/chzyer/readline"
	"github.com/pkg/errors"
	"github.com/shibukawa/configdir"
	"github.com/sirupsen/logrus"

	"github.com/lunixbochs/bfincorn/go/cpu/bfin"
	"github.com/lunixbochs/bfincorn/go/debug/cmd"
	"github.com/lunixbochs/bfincorn/go/models"
)

// Console is an interactive command prompt attached to a machine, either
// on the local terminal or over a connection from RunClient.
type Console struct {
	ctx *cmd.Context
	rl  *readline.Instance
	log *logrus.Entry
}

func historyPath() string {
	configDirs := configdir.New("bfincorn", "console")
	cacheDir := configDirs.QueryCacheFolder()
	if err := cacheDir.MkdirAll(); err != nil {
		return ""
	}
	return filepath.Join(cacheDir.Path, "history")
}

func newConsole(m *bfin.Machine, syms models.SymbolTable, cfg *readline.Config) (*Console, error) {
	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "opening readline")
	}
	ctx := &cmd.Context{
		Writer: rl.Stdout(),
		M:      m,
		Syms:   syms,
		Diff:   &models.StatusDiff{D: m},
		Color:  m.Config().Color,
	}
	return &Console{ctx: ctx, rl: rl, log: m.Config().Logger("console")}, nil
}

// NewConsole opens a prompt on the local terminal.
func NewConsole(m *bfin.Machine, syms models.SymbolTable) (*Console, error) {
	return newConsole(m, syms, &readline.Config{
		InterruptPrompt: "\n",
		HistoryFile:     historyPath(),
	})
}

// NewRemoteConsole opens a prompt over c. The peer's terminal is expected
// to be in raw mode already.
func NewRemoteConsole(m *bfin.Machine, syms models.SymbolTable, c net.Conn) (*Console, error) {
	nop := func() error { return nil }
	return newConsole(m, syms, &readline.Config{
		InterruptPrompt: "\n",
		Stdin:           c,
		Stdout:          c,
		Stderr:          c,
		FuncIsTerminal:  func() bool { return true },
		FuncMakeRaw:     nop,
		FuncExitRaw:     nop,
		FuncGetWidth:    func() int { return 80 },
	})
}

func (c *Console) setPrompt() {
	pc := c.ctx.M.ReadPC()
	c.rl.SetPrompt(fmt.Sprintf("%s> ", c.ctx.Syms.Symbolicate(pc)))
}

// Run reads and executes commands until EOF. Ctrl-C interrupts a running
// machine.
func (c *Console) Run() {
	defer c.rl.Close()
	c.setPrompt()
	for {
		ln := c.rl.Line()
		if ln.Error == readline.ErrInterrupt {
			c.ctx.M.Stop()
			continue
		} else if ln.CanContinue() {
			continue
		} else if ln.CanBreak() {
			break
		}
		if err := cmd.Run(c.ctx, ln.Line); err != nil {
			c.log.WithError(err).Error("command failed")
			break
		}
		c.setPrompt()
	}
}

// Monitor returns a gdb monitor handler that runs console commands.
func Monitor(m *bfin.Machine, syms models.SymbolTable) func(w io.Writer, line string) error {
	return func(w io.Writer, line string) error {
		ctx := &cmd.Context{Writer: w, M: m, Syms: syms}
		return cmd.Run(ctx, line)
	}
}
