package cmd

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"

	"github.com/lunixbochs/bfincorn/go/cpu/bfin"
	"github.com/lunixbochs/bfincorn/go/debug"
	"github.com/lunixbochs/bfincorn/go/loader"
	"github.com/lunixbochs/bfincorn/go/models"
	"github.com/lunixbochs/bfincorn/go/models/trace"
)

type strslice []string

func (s *strslice) String() string {
	return fmt.Sprintf("%v", *s)
}

func (s *strslice) Set(value string) error {
	*s = append(*s, value)
	return nil
}

type BfinCmd struct {
	Config *models.Config

	SetupFlags   func() error
	SetupMachine func() error
	MakeMachine  func(images, raw []string) (*bfin.Machine, error)
	RunMachine   func() (*models.Halt, error)
	Teardown     func()

	NoImage bool

	Machine *bfin.Machine
	Syms    models.SymbolTable
	Flags   *flag.FlagSet
}

func NewBfinCmd() *BfinCmd {
	fs := flag.NewFlagSet("cli", flag.ExitOnError)
	c := &BfinCmd{Flags: fs}
	c.MakeMachine = c.makeMachine
	return c
}

// openImages resolves every program image before the machine exists, so
// the entry point is known at reset.
func (c *BfinCmd) openImages(images, raw []string) ([]models.Loader, error) {
	var loaders []models.Loader
	for _, path := range images {
		l, err := loader.LoadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "loading %s", path)
		}
		if l.Arch() != bfin.Arch {
			return nil, errors.Errorf("%s: unsupported architecture %q", path, l.Arch())
		}
		loaders = append(loaders, l)
	}
	for _, spec := range raw {
		l, err := loader.LoadRaw(spec)
		if err != nil {
			return nil, err
		}
		loaders = append(loaders, l)
	}
	return loaders, nil
}

func (c *BfinCmd) makeMachine(images, raw []string) (*bfin.Machine, error) {
	loaders, err := c.openImages(images, raw)
	if err != nil {
		return nil, err
	}
	if c.Config.Entry == 0 && len(loaders) > 0 {
		c.Config.Entry = loaders[0].Entry()
	}
	m, err := bfin.New(c.Config)
	if err != nil {
		return nil, err
	}
	var syms []models.Symbol
	var brk uint32
	for _, l := range loaders {
		if err := loader.Map(m, l); err != nil {
			return nil, err
		}
		if end, err := loader.End(l); err == nil && end > brk {
			brk = end
		}
		s, err := l.Symbols()
		if err != nil {
			return nil, err
		}
		syms = append(syms, s...)
	}
	c.Syms = models.NewSymbolTable(syms)
	if m.Kernel != nil {
		m.Kernel.SetBrk(brk)
	}
	return m, nil
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func (c *BfinCmd) PrintError(err error) {
	// print an error, and a stacktrace if available
	fmt.Fprintf(os.Stderr, "%s\n", strings.Repeat("-", 40))
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	if err, ok := err.(stackTracer); ok {
		// parse full path and method name for each stack frame
		var frames [][]string
		for _, f := range err.StackTrace() {
			fullpath := ""
			fileline := fmt.Sprintf("%s:%d", f, f)
			method := fmt.Sprintf("%n", f)

			frame := fmt.Sprintf("%+s", f)
			tmp := strings.SplitN(frame, "\n", 3)
			if len(tmp) == 2 {
				pathsplit := strings.Split(tmp[0], "/")
				method = pathsplit[len(pathsplit)-1]
				fullpath = strings.TrimSpace(tmp[1])
			}
			frames = append(frames, []string{fullpath, fileline, method})
			if method == "main.main" {
				break
			}
		}
		widths := make([]int, 3)
		for _, f := range frames {
			for i, s := range f {
				if len(s) > widths[i] {
					widths[i] = len(s)
				}
			}
		}
		for _, f := range frames {
			method := f[2]
			for i := 0; i < 2; i++ {
				if widths[i] > 0 {
					pad := strings.Repeat(" ", widths[i]-len(f[i]))
					fmt.Fprintf(os.Stderr, "%s%s | ", f[i], pad)
				}
			}
			fmt.Fprintf(os.Stderr, "%s()\n", method)
		}
	}
}

func (c *BfinCmd) saveState(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating savestate")
	}
	if err := c.Machine.Snapshot().Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (c *BfinCmd) restoreState(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening savestate")
	}
	defer f.Close()
	snap, err := models.LoadSnapshot(f)
	if err != nil {
		return err
	}
	return c.Machine.Restore(snap)
}

// exitCode maps a halt to a process exit status. Stops by signal exit
// with 128+signal, as a shell reports them.
func exitCode(h *models.Halt) int {
	if h == nil {
		return 0
	}
	if h.Reason == models.HaltExited {
		return h.Status
	}
	return 128 + h.Signal
}

func (c *BfinCmd) Run(argv []string) int {
	fs := c.Flags
	// tracing flags
	etrace := fs.Bool("etrace", false, "trace execution")
	mtrace := fs.Bool("mtrace", false, "trace memory access")
	rtrace := fs.Bool("rtrace", false, "trace register modification")
	evtrace := fs.Bool("evtrace", false, "trace events and exceptions")
	tracefile := fs.String("to", "", "binary trace output file")
	tnames := []string{"etrace", "mtrace", "rtrace", "evtrace", "to"}

	inscount := fs.Bool("inscount", false, "print instruction count after execution")
	verbose := fs.Bool("v", false, "verbose output")
	color := fs.Bool("color", isatty.IsTerminal(os.Stderr.Fd()), "colorize output")
	osMode := fs.Bool("os", false, "enable CPLB checks, privilege separation and event vectoring")
	selfNest := fs.Bool("snen", false, "set SYSCFG.SNEN at reset")
	enterUser := fs.Bool("user", false, "start in user mode (with -os)")
	entry := fs.Uint64("entry", 0, "force entry point")
	maxins := fs.Uint64("maxins", 0, "stop after this many instructions")
	var raw strslice
	fs.Var(&raw, "load", "load a raw binary, in the form file@addr")
	prefix := fs.String("prefix", "", "prefix absolute paths opened by emulated syscalls")

	outfile := fs.String("o", "", "redirect debugging output to file (default stderr)")

	savepre := fs.String("savepre", "", "save state to file and exit before emulation starts")
	savepost := fs.String("savepost", "", "save state to file after emulation ends")
	restore := fs.String("restore", "", "restore state from file before emulation starts")

	gdb := fs.Int("gdb", -1, "listen for gdb connection on localhost:<port>")
	listen := fs.Int("listen", -1, "listen for debug console connection on localhost:<port>")
	connect := fs.Int("connect", -1, "connect to remote bfincorn console on localhost:<port>")
	console := fs.Bool("console", false, "start a debug console on this terminal")

	cpuprofile := fs.String("cpuprofile", "", "write cpu profile to <file>")
	memprofile := fs.String("memprofile", "", "write mem profile to <file>")

	fs.Usage = func() {
		usage := "Usage: %s [options]"
		if !c.NoImage {
			usage += " <elf>..."
		}
		usage += "\n\nOptions:\n"
		fmt.Fprintf(os.Stderr, usage, argv[0])
		var flags []*flag.Flag
		var tflags []*flag.Flag
		fs.VisitAll(func(f *flag.Flag) {
			for _, name := range tnames {
				if name == f.Name {
					tflags = append(tflags, f)
					return
				}
			}
			flags = append(flags, f)
		})
		models.WriteFlags(os.Stderr, 80, models.FlagSection{Flags: flags}, models.FlagSection{Title: "Trace Options", Flags: tflags})
		fmt.Fprintf(os.Stderr, "\nDebug Client:\n  %s -connect <port>\n", argv[0])
		fmt.Fprintf(os.Stderr, "\nExample:\n  %s -etrace -load boot.bin@0xffa00000 test.elf\n", argv[0])
	}
	if c.SetupFlags != nil {
		if err := c.SetupFlags(); err != nil {
			panic(err)
		}
	}
	fs.Parse(argv[1:])

	// connect to debug server (skips the simulator)
	if *connect > 0 {
		addr := net.JoinHostPort("localhost", strconv.Itoa(*connect))
		if err := debug.RunClient(addr); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	images := fs.Args()
	if !c.NoImage && len(images) == 0 && len(raw) == 0 {
		fs.Usage()
		return 1
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			panic(err)
		}
		pprof.StartCPUProfile(f)
	}

	config := &models.Config{
		Color:     *color,
		Verbose:   *verbose,
		Debug:     *gdb > 0,
		OSMode:    *osMode,
		SelfNest:  *selfNest,
		EnterUser: *enterUser,
		Entry:     uint32(*entry),
		MaxIns:    *maxins,
		SavePre:   *savepre,
		SavePost:  *savepost,
		InsCount:  *inscount,
		FsRoot:    *prefix,

		Trace: models.TraceConfig{
			Tracefile: *tracefile,
			Ins:       *etrace,
			Mem:       *mtrace,
			Reg:       *rtrace,
			Evt:       *evtrace,
		},
	}
	c.Config = config
	if *outfile != "" {
		out, err := os.OpenFile(*outfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			panic(err)
		}
		config.Output = out
	}
	// tracing implies log output
	if config.Trace.Any() && config.Trace.Tracefile == "" {
		config.Verbose = true
	}

	m, err := c.MakeMachine(images, raw)
	if err != nil {
		c.PrintError(err)
		return 1
	}
	c.Machine = m
	log := config.Logger("cmd")
	if c.SetupMachine != nil {
		if err := c.SetupMachine(); err != nil {
			c.PrintError(err)
			return 1
		}
	}
	if *restore != "" {
		if err := c.restoreState(*restore); err != nil {
			c.PrintError(err)
			return 1
		}
	}

	var tw *trace.TraceWriter
	// won't run on an early return, so it's manually run below
	teardown := func() {
		if tw != nil {
			if err := tw.Close(); err != nil {
				log.WithError(err).Error("closing trace file")
			}
		}
		if *cpuprofile != "" {
			pprof.StopCPUProfile()
		}
		if *memprofile != "" {
			f, err := os.Create(*memprofile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not write heap profile: %s\n", err)
			} else {
				pprof.WriteHeapProfile(f)
				f.Close()
			}
		}
		if c.Teardown != nil {
			c.Teardown()
		}
	}
	defer teardown()

	if config.SavePre != "" {
		if err := c.saveState(config.SavePre); err != nil {
			c.PrintError(err)
			return 1
		}
		return 0
	}
	if *tracefile != "" {
		f, err := os.Create(*tracefile)
		if err != nil {
			c.PrintError(errors.Wrap(err, "creating trace file"))
			return 1
		}
		if tw, err = trace.NewWriter(f, bfin.Arch, m.ReadPC()); err != nil {
			c.PrintError(err)
			return 1
		}
		m.SetTrace(tw)
	}
	if *rtrace {
		hookRegDiff(m, config)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	go func() {
		for range sigs {
			m.Stop()
		}
	}()

	var halt *models.Halt
	switch {
	case c.RunMachine != nil:
		halt, err = c.RunMachine()
	case *gdb > 0:
		halt, err = c.serveGdb(*gdb)
	case *listen > 0:
		halt, err = c.serveConsole(*listen)
	case *console:
		halt, err = c.localConsole()
	default:
		halt, err = m.Run()
	}
	if err != nil {
		c.PrintError(err)
		return 1
	}
	if halt != nil && halt.Reason == models.HaltStopped {
		fmt.Fprintf(os.Stderr, "%s\n", halt)
	}
	if config.SavePost != "" {
		if err := c.saveState(config.SavePost); err != nil {
			c.PrintError(err)
			return 1
		}
	}
	if config.InsCount {
		fmt.Fprintf(os.Stderr, "inscount: %d\n", m.InsCount)
	}
	return exitCode(halt)
}
