package run

import (
	"os"

	"github.com/lunixbochs/bfincorn/go/cmd"
)

func Main(args []string) {
	os.Exit(cmd.NewBfinCmd().Run(args))
}

func init() { cmd.Register("run", "simulate a Blackfin program", Main) }
