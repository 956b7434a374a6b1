package dut

import (
	"math/bits"

	"github.com/roach88/crcsweep/internal/crc"
)

// core is the CRC datapath configured from build parameters only: it never
// sees the catalog's raw init.
type core struct {
	width  uint
	mask   uint64
	poly   uint64
	init   uint64 // normalized
	xorOut uint64
	refIn  bool
	refOut bool
	state  uint64 // register XOR xorOut
}

func newCore(spec crc.Spec) *core {
	c := &core{
		width:  spec.Width,
		mask:   spec.Mask(),
		poly:   spec.Poly,
		init:   spec.Init,
		xorOut: spec.XorOut,
		refIn:  spec.ReflectIn,
		refOut: spec.ReflectOut,
	}
	c.reset()
	return c
}

func (c *core) reset() {
	c.state = c.init
}

// update folds bytes into the register one bit at a time, MSB first, with
// bytes bit-reversed when the input is reflected.
func (c *core) update(data []byte) {
	reg := c.state ^ c.xorOut
	top := uint64(1) << (c.width - 1)
	for _, b := range data {
		if c.refIn {
			b = bits.Reverse8(b)
		}
		for i := 7; i >= 0; i-- {
			in := uint64(b>>uint(i)) & 1
			fb := (reg&top != 0) != (in == 1)
			reg = (reg << 1) & c.mask
			if fb {
				reg ^= c.poly
			}
		}
	}
	c.state = reg ^ c.xorOut
}

// result returns the checksum of the bytes folded since the last reset.
func (c *core) result() uint64 {
	if !c.refOut {
		return c.state
	}
	return crc.Reflect(c.state^c.xorOut, c.width) ^ c.xorOut
}
