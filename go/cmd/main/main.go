package main

import (
	"github.com/lunixbochs/bfincorn/go/cmd"

	_ "github.com/lunixbochs/bfincorn/go/cmd/run"
	_ "github.com/lunixbochs/bfincorn/go/cmd/trace"
)

func main() { cmd.Main() }
