// Package kernel emulates the Linux system calls a user-environment Blackfin
// program makes through EXCPT 0.
package kernel

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lunixbochs/argjoy"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Memory is guest memory as seen by syscall handlers.
type Memory interface {
	MemRead(addr uint32, size int) ([]byte, error)
	MemWrite(addr uint32, p []byte) error
}

type KernelBase struct {
	Syscalls map[string]Syscall
	Mem      Memory
	Argjoy   argjoy.Argjoy
	Log      *logrus.Entry
}

func (k *KernelBase) Base() *KernelBase {
	return k
}

type Kernel interface {
	Base() *KernelBase
}

func camelToSnakeCase(name string) string {
	var words []string
	last := 0
	for i, c := range name {
		if unicode.IsUpper(c) {
			if i > 0 {
				words = append(words, name[last:i])
			}
			last = i
		}
	}
	words = append(words, name[last:])
	return strings.ToLower(strings.Join(words, "_"))
}

// initKernel builds the dispatch table from kf's exported methods. Gettimeofday
// becomes "gettimeofday", ExitGroup becomes "exit_group".
func initKernel(kf Kernel) {
	k := kf.Base()
	k.Syscalls = make(map[string]Syscall)
	instance := reflect.ValueOf(kf)
	typ := instance.Type()
	for i := 0; i < typ.NumMethod(); i++ {
		method := typ.Method(i)
		name := method.Name
		if r, size := utf8.DecodeRuneInString(name); size <= 0 || !unicode.IsUpper(r) {
			continue
		}
		name = camelToSnakeCase(name)
		in := make([]reflect.Type, method.Type.NumIn()-1)
		for j := 1; j < method.Type.NumIn(); j++ {
			in[j-1] = method.Type.In(j)
		}
		k.Syscalls[name] = Syscall{
			Name:     name,
			Kernel:   k,
			Instance: instance,
			Method:   method,
			In:       in,
			NumOut:   method.Type.NumOut(),
		}
	}
	k.Argjoy.Register(k.argCodec)
	k.Argjoy.Register(argjoy.IntToInt)
}

func Lookup(kf Kernel, name string) *Syscall {
	k := kf.Base()
	if k.Syscalls == nil {
		initKernel(kf)
	}
	if sys, ok := k.Syscalls[name]; ok {
		return &sys
	}
	return nil
}

type Syscall struct {
	Name     string
	Kernel   *KernelBase
	Instance reflect.Value
	Method   reflect.Method
	In       []reflect.Type
	NumOut   int
}

var uint32Type = reflect.TypeOf(uint32(0))

// Call converts the raw register arguments and invokes the handler. The
// first result, if it is an integer, is returned for R0.
func (sys Syscall) Call(args []uint32) (uint32, error) {
	converted, err := sys.Kernel.Argjoy.Convert(sys.In, false, args)
	if err != nil {
		return 0, errors.Wrapf(err, "calling %s", sys.Name)
	}
	in := append([]reflect.Value{sys.Instance}, converted...)
	out := sys.Method.Func.Call(in)
	if len(out) > 0 && out[0].Type().ConvertibleTo(uint32Type) {
		return uint32(out[0].Convert(uint32Type).Uint()), nil
	}
	return 0, nil
}

// Trace formats the call the way strace would, using the converted args.
func (sys Syscall) Trace(args []uint32) string {
	converted, err := sys.Kernel.Argjoy.Convert(sys.In, false, args)
	if err != nil {
		return fmt.Sprintf("%s(%v)", sys.Name, err)
	}
	out := make([]string, len(converted))
	for i, v := range converted {
		out[i] = traceArg(v.Interface())
	}
	return fmt.Sprintf("%s(%s)", sys.Name, strings.Join(out, ", "))
}

func traceArg(arg interface{}) string {
	switch v := arg.(type) {
	case Buf:
		return fmt.Sprintf("0x%x", v.Addr)
	case Obuf:
		return fmt.Sprintf("0x%x", v.Addr)
	case Ptr, uint32:
		return fmt.Sprintf("0x%x", v)
	case string:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
