package models

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type TraceConfig struct {
	Tracefile string

	Ins bool
	Mem bool
	Reg bool
	Evt bool
}

func (t *TraceConfig) Any() bool {
	return t.Tracefile != "" || t.Ins || t.Mem || t.Reg || t.Evt
}

// Region describes one chunk of backing store the machine maps at reset.
type RegionConfig struct {
	Name string
	Addr uint32
	Size uint32
	Prot int
}

type Config struct {
	Color   bool
	Verbose bool
	// Debug is set when an external debugger drives the core. EMUEXCPT and
	// failed DBGA assertions stop instead of exiting.
	Debug bool

	// OSMode enables the full operating environment: CPLB checks,
	// supervisor/user separation and CEC vectoring.
	OSMode bool
	// SelfNest is applied to SYSCFG.SNEN on reset.
	SelfNest    bool
	ResetVector uint32
	Entry       uint32
	// EnterUser drops to user mode before the first instruction.
	EnterUser bool

	Regions []RegionConfig
	MaxIns  uint64

	SavePre  string
	SavePost string
	InsCount bool

	Trace TraceConfig

	Output io.WriteCloser
	Log    *logrus.Logger

	// guest standard streams for emulated syscalls
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// FsRoot prefixes absolute paths the guest opens.
	FsRoot string
}

var DefaultRegions = []RegionConfig{
	{"sdram", 0x00000000, 0x01000000, 7},
	{"boot rom", 0xef000000, 0x00008000, 5},
	{"l1 data a", 0xff800000, 0x00008000, 7},
	{"l1 data b", 0xff900000, 0x00008000, 7},
	{"l1 inst", 0xffa00000, 0x0000c000, 7},
	{"l1 scratch", 0xffb00000, 0x00001000, 7},
}

// Init fills unset fields with defaults. It returns c for chaining.
func (c *Config) Init() *Config {
	if c.Output == nil {
		c.Output = os.Stderr
	}
	if c.Stdin == nil {
		c.Stdin = os.Stdin
	}
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}
	if c.Log == nil {
		c.Log = logrus.New()
		c.Log.Out = c.Output
		c.Log.Formatter = &logrus.TextFormatter{DisableTimestamp: true, ForceColors: c.Color}
		if c.Verbose {
			c.Log.SetLevel(logrus.DebugLevel)
		} else {
			c.Log.SetLevel(logrus.WarnLevel)
		}
	}
	if c.Regions == nil {
		c.Regions = DefaultRegions
	}
	if c.ResetVector == 0 {
		c.ResetVector = 0xef000000
	}
	return c
}

func (c *Config) Logger(component string) *logrus.Entry {
	if c.Log == nil {
		c.Init()
	}
	return c.Log.WithField("component", component)
}
