package crc

import "math/bits"

// table is a byte-at-a-time lookup table for one (width, poly, reflect-in)
// combination.
type table struct {
	width     uint
	mask      uint64
	poly      uint64
	reflected bool
	entries   [256]uint64
}

func widthMask(width uint) uint64 {
	return ^uint64(0) >> (64 - width)
}

// Reflect reverses the low width bits of v.
func Reflect(v uint64, width uint) uint64 {
	return bits.Reverse64(v) >> (64 - width)
}

func newTable(width uint, poly uint64, reflected bool) *table {
	t := &table{width: width, mask: widthMask(width), poly: poly, reflected: reflected}
	if reflected {
		rpoly := Reflect(poly, width)
		for i := range t.entries {
			crc := uint64(i)
			for k := 0; k < 8; k++ {
				if crc&1 != 0 {
					crc = crc>>1 ^ rpoly
				} else {
					crc >>= 1
				}
			}
			t.entries[i] = crc
		}
		return t
	}

	if width < 8 {
		// Narrow non-reflected CRCs go bit by bit; see checksum.
		return t
	}
	top := uint64(1) << (width - 1)
	for i := range t.entries {
		crc := uint64(i) << (width - 8)
		for k := 0; k < 8; k++ {
			if crc&top != 0 {
				crc = crc<<1 ^ poly
			} else {
				crc <<= 1
			}
		}
		t.entries[i] = crc & t.mask
	}
	return t
}

// checksum runs the Rocksoft model: the register starts at init, the final
// value is reflected when refOut differs from the table's bit order, then
// XORed with xorOut.
func (t *table) checksum(init, xorOut uint64, refOut bool, data []byte) uint64 {
	w := t.width
	var reg uint64

	switch {
	case t.reflected:
		reg = Reflect(init&t.mask, w)
		for _, b := range data {
			reg = t.entries[byte(reg)^b] ^ reg>>8
		}
		reg &= t.mask
		if !refOut {
			reg = Reflect(reg, w)
		}

	case w < 8:
		reg = init & t.mask
		for _, b := range data {
			for i := 7; i >= 0; i-- {
				fb := (reg>>(w-1))&1 ^ uint64(b>>uint(i))&1
				reg = reg << 1 & t.mask
				if fb != 0 {
					reg ^= t.poly
				}
			}
		}
		if refOut {
			reg = Reflect(reg, w)
		}

	default:
		reg = init & t.mask
		for _, b := range data {
			reg = (reg<<8)&t.mask ^ t.entries[byte(reg>>(w-8))^b]
		}
		if refOut {
			reg = Reflect(reg, w)
		}
	}

	return (reg ^ xorOut) & t.mask
}
