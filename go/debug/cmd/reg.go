package cmd

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/lunixbochs/bfincorn/go/models"
)

var strEqNumRe = regexp.MustCompile(`^([A-Za-z][\w.]*)=(-?(?:0[xX][0-9a-fA-F]+|0[bB][01]+|\d+))$`)

var RegCmd = cmd(&Command{
	Name: "reg",
	Args: "[reg[=value]...]",
	Desc: "Read/write regs.",
	Run: func(c *Context, args ...string) error {
		if len(args) == 0 {
			for _, reg := range models.RegDump(c.M) {
				c.Printf("%s 0x%x\n", reg.Name, reg.Val)
			}
			return nil
		}
		for _, v := range args {
			var value uint32
			reg := v
			match := strEqNumRe.FindStringSubmatch(v)
			if len(match) > 0 {
				reg = match[1]
				var err error
				if match[2][0] == '-' {
					var n int64
					n, err = strconv.ParseInt(match[2], 0, 32)
					value = uint32(n)
				} else {
					var n uint64
					n, err = strconv.ParseUint(match[2], 0, 32)
					value = uint32(n)
				}
				if err != nil {
					c.Printf("error parsing %s value: %v\n", reg, err)
					continue
				}
			}
			idx, ok := c.M.RegisterIndex(reg)
			if !ok {
				if strings.Contains(reg, "=") {
					c.Printf("invalid assignment: %s\n", reg)
				} else {
					c.Printf("reg %s not found\n", reg)
				}
				continue
			}
			if len(match) > 0 {
				if err := c.M.WriteRegister(idx, value); err != nil {
					c.Printf("%s: %v\n", v, err)
				}
			} else {
				val, _ := c.M.ReadRegister(idx)
				c.Printf("%s 0x%x\n", c.M.RegisterNames()[idx], val)
			}
		}
		return nil
	},
})
