package bfin

// Immediate field decoders. Names follow the operand forms in the
// instruction set reference: s/u for signedness, the bit width, and an
// optional left scale.

func imm3(x uint32) uint32  { return signExtend(x, 3) }
func uimm3(x uint32) uint32 { return x & 7 }
func uimm4(x uint32) uint32 { return x & 0xf }
func imm5(x uint32) uint32  { return signExtend(x, 5) }
func uimm5(x uint32) uint32 { return x & 0x1f }
func imm6(x uint32) uint32  { return signExtend(x, 6) }
func imm7(x uint32) uint32  { return signExtend(x, 7) }

func uimm4s2(x uint32) uint32 { return (x & 0xf) << 1 }
func uimm4s4(x uint32) uint32 { return (x & 0xf) << 2 }

// negimm5s4 has an implied sign bit above its 5 bits.
func negimm5s4(x uint32) uint32 { return signExtend(x|1<<5, 6) << 2 }

func imm16(x uint32) uint32    { return signExtend(x, 16) }
func luimm16(x uint32) uint32  { return x & 0xffff }
func imm16s2(x uint32) uint32  { return signExtend(x, 16) << 1 }
func imm16s4(x uint32) uint32  { return signExtend(x, 16) << 2 }
func uimm16s4(x uint32) uint32 { return (x & 0xffff) << 2 }

func pcrel4(x uint32) uint32    { return (x & 0xf) << 1 }
func lppcrel10(x uint32) uint32 { return (x & 0x3ff) << 1 }
func pcrel10(x uint32) uint32   { return signExtend(x, 10) << 1 }
func pcrel12(x uint32) uint32   { return signExtend(x, 12) << 1 }
func pcrel24(x uint32) uint32   { return signExtend(x, 24) << 1 }
