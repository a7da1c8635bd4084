package cmd

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/lunixbochs/argjoy"
	"github.com/mattn/go-shellwords"
	"github.com/pkg/errors"
)

type Command struct {
	Name string
	Args string
	Desc string
	Run  interface{}
}

var Commands = make(map[string]*Command)

func cmd(c *Command) *Command {
	fn := reflect.ValueOf(c.Run)
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		panic(fmt.Sprintf("Command.Run must be a func: got (%T) %#v\n", c.Run, c.Run))
	}
	t := fn.Type()
	if t.NumIn() == 0 || t.In(0) != reflect.TypeOf(&Context{}) {
		panic(fmt.Sprintf("%s: first argument must be *Context", c.Name))
	}
	if t.IsVariadic() && t.In(t.NumIn()-1).Elem().Kind() != reflect.String {
		panic(fmt.Sprintf("%s: variadic arguments must be strings", c.Name))
	}
	Commands[c.Name] = c
	return c
}

// Names returns the registered command names, sorted.
func Names() []string {
	names := make([]string, 0, len(Commands))
	for name := range Commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var aj = argjoy.NewArgjoy()

func init() {
	aj.Register(parseArg)
}

// parseArg converts a command line word to the parameter type.
// Numbers accept 0x and 0b prefixes.
func parseArg(arg interface{}, vals []interface{}) error {
	s, ok := vals[0].(string)
	if !ok {
		return argjoy.NoMatch
	}
	switch v := arg.(type) {
	case *string:
		*v = s
	case *uint32:
		n, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return errors.Errorf("%q is not a 32-bit number", s)
		}
		*v = uint32(n)
	case *int:
		n, err := strconv.ParseInt(s, 0, 0)
		if err != nil {
			return errors.Errorf("%q is not a number", s)
		}
		*v = int(n)
	default:
		return argjoy.NoMatch
	}
	return nil
}

func usage(c *Command) error {
	return errors.Errorf("usage: %s %s", c.Name, c.Args)
}

// call converts args to cmd.Run's parameters and invokes it. Trailing
// variadic parameters receive the remaining words unconverted.
func call(c *Context, cmd *Command, args []string) error {
	fn := reflect.ValueOf(cmd.Run)
	t := fn.Type()
	fixed := t.NumIn() - 1
	if t.IsVariadic() {
		fixed--
	}
	if len(args) < fixed || (!t.IsVariadic() && len(args) > fixed) {
		return usage(cmd)
	}
	in := []reflect.Value{reflect.ValueOf(c)}
	if fixed > 0 {
		types := make([]reflect.Type, fixed)
		vals := make([]interface{}, fixed)
		for i := range types {
			types[i] = t.In(i + 1)
			vals[i] = args[i]
		}
		converted, err := aj.Convert(types, false, vals)
		if err != nil {
			return errors.Wrap(err, cmd.Name)
		}
		in = append(in, converted...)
	}
	for _, s := range args[fixed:] {
		in = append(in, reflect.ValueOf(s))
	}
	out := fn.Call(in)
	if len(out) > 0 {
		if err, ok := out[0].Interface().(error); ok {
			return err
		}
	}
	return nil
}

// Run parses and executes one console line. Command errors are reported
// to the context rather than returned.
func Run(c *Context, line string) error {
	args, err := shellwords.Parse(line)
	if err != nil {
		c.Printf("parse error: %v\n", err)
		return nil
	}
	if len(args) == 0 {
		return nil
	}
	name, args := args[0], args[1:]
	if cmd, ok := Commands[name]; ok {
		if err := call(c, cmd, args); err != nil {
			c.Printf("error: %v\n", err)
		}
	} else {
		c.Printf("command not found.\n")
	}
	return nil
}

var HelpCmd = cmd(&Command{
	Name: "help",
	Desc: "List commands.",
	Run: func(c *Context) error {
		for _, name := range Names() {
			cmd := Commands[name]
			c.Printf("  %-20s %s\n", cmd.Name+" "+cmd.Args, cmd.Desc)
		}
		return nil
	},
})
