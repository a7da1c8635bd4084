package models

import (
	"strings"
	"testing"
)

func TestChangeMask(t *testing.T) {
	c := NewChange(0, "R0", 0x12345678, 0x12005678)
	if !c.Changed() {
		t.Fatal("change not detected")
	}
	masks := c.Mask(8)
	if len(masks) != 3 || masks[1].New != "34" || !masks[1].Changed {
		t.Fatalf("unexpected masks %+v", masks)
	}
	plain := c.String(8, false)
	if !strings.HasPrefix(plain, "+ ") || !strings.Contains(plain, "12345678") {
		t.Fatalf("unexpected plain output %q", plain)
	}
}
