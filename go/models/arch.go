package models

import (
	"sort"

	"github.com/lunixbochs/fvbommel-util/sortorder"
)

type RegVal struct {
	Idx  int
	Name string
	Val  uint32
}

type regList []RegVal

func (r regList) Len() int           { return len(r) }
func (r regList) Swap(i, j int)      { r[i], r[j] = r[j], r[i] }
func (r regList) Less(i, j int) bool { return sortorder.NaturalLess(r[i].Name, r[j].Name) }

// RegDump reads every register of d, in natural name order (R2 before R10).
func RegDump(d Debuggee) []RegVal {
	names := d.RegisterNames()
	ret := make(regList, 0, len(names))
	for i, name := range names {
		val, err := d.ReadRegister(i)
		if err != nil {
			continue
		}
		ret = append(ret, RegVal{i, name, val})
	}
	sort.Sort(ret)
	return ret
}
