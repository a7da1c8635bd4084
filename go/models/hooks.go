package models

type Hook interface{}

type CodeCb func(addr uint32, size int)
type IntrCb func(ivg int, cause int)
type MemCb func(access int, addr uint32, size int, val uint32)

type hookRange struct {
	start, end uint32
}

func (h *hookRange) Contains(addr uint32) bool {
	return h.start > h.end || addr >= h.start && addr <= h.end
}

type codeHook struct {
	hookRange
	cb CodeCb
}

type intrHook struct {
	cb IntrCb
}

type memHook struct {
	hookRange
	access int
	cb     MemCb
}

// Hooks holds the observers a debugger or tracer attaches to a running core.
// A hook with start > end matches every address.
type Hooks struct {
	code []*codeHook
	intr []*intrHook
	mem  []*memHook
}

func (h *Hooks) HookCode(cb CodeCb, start, end uint32) Hook {
	hh := &codeHook{hookRange{start, end}, cb}
	h.code = append(h.code, hh)
	return hh
}

func (h *Hooks) HookIntr(cb IntrCb) Hook {
	hh := &intrHook{cb}
	h.intr = append(h.intr, hh)
	return hh
}

// HookMem fires for reads and/or writes, depending on access (MEM_READ, MEM_WRITE or 0 for both).
func (h *Hooks) HookMem(access int, cb MemCb, start, end uint32) Hook {
	hh := &memHook{hookRange{start, end}, access, cb}
	h.mem = append(h.mem, hh)
	return hh
}

func (h *Hooks) HookDel(hook Hook) {
	switch hh := hook.(type) {
	case *codeHook:
		tmp := h.code[:0]
		for _, v := range h.code {
			if v != hh {
				tmp = append(tmp, v)
			}
		}
		h.code = tmp
	case *intrHook:
		tmp := h.intr[:0]
		for _, v := range h.intr {
			if v != hh {
				tmp = append(tmp, v)
			}
		}
		h.intr = tmp
	case *memHook:
		tmp := h.mem[:0]
		for _, v := range h.mem {
			if v != hh {
				tmp = append(tmp, v)
			}
		}
		h.mem = tmp
	}
}

func (h *Hooks) HasCode() bool { return len(h.code) > 0 }
func (h *Hooks) HasMem() bool  { return len(h.mem) > 0 }

func (h *Hooks) OnCode(addr uint32, size int) {
	for _, v := range h.code {
		if v.Contains(addr) {
			v.cb(addr, size)
		}
	}
}

func (h *Hooks) OnIntr(ivg, cause int) {
	for _, v := range h.intr {
		v.cb(ivg, cause)
	}
}

func (h *Hooks) OnMem(access int, addr uint32, size int, val uint32) {
	for _, v := range h.mem {
		if (v.access == 0 || v.access == access) && v.Contains(addr) {
			v.cb(access, addr, size, val)
		}
	}
}
