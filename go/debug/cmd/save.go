package cmd

import (
	"os"

	"github.com/pkg/errors"
)

var SaveCmd = cmd(&Command{
	Name: "save",
	Args: "<file>",
	Desc: "Write a savestate.",
	Run: func(c *Context, path string) error {
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "creating savestate")
		}
		if err := c.M.Snapshot().Save(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	},
})
