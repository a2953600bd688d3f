package rbokvs

import "math/bits"

// band is a 128-bit row segment; bit i of the band is word i/64, bit i%64.
type band [2]uint64

func (b band) bit(i int) bool {
	return b[i>>6]>>(uint(i)&63)&1 == 1
}

func (b band) isZero() bool {
	return b[0] == 0 && b[1] == 0
}

// firstSet returns the index of the lowest set bit, or -1.
func (b band) firstSet() int {
	if b[0] != 0 {
		return bits.TrailingZeros64(b[0])
	}
	if b[1] != 0 {
		return 64 + bits.TrailingZeros64(b[1])
	}
	return -1
}

func (b band) xor(o band) band {
	return band{b[0] ^ o[0], b[1] ^ o[1]}
}

// shr moves bit i to bit i-n.
func (b band) shr(n int) band {
	switch {
	case n == 0:
		return b
	case n >= 128:
		return band{}
	case n >= 64:
		return band{b[1] >> uint(n-64), 0}
	default:
		return band{b[0]>>uint(n) | b[1]<<uint(64-n), b[1] >> uint(n)}
	}
}

// shl moves bit i to bit i+n, dropping bits past 127.
func (b band) shl(n int) band {
	switch {
	case n == 0:
		return b
	case n >= 128:
		return band{}
	case n >= 64:
		return band{0, b[0] << uint(n-64)}
	default:
		return band{b[0] << uint(n), b[1]<<uint(n) | b[0]>>uint(64-n)}
	}
}

// truncate clears every bit at index >= width.
func (b band) truncate(width int) band {
	switch {
	case width >= 128:
		return b
	case width > 64:
		return band{b[0], b[1] & (1<<uint(width-64) - 1)}
	case width == 64:
		return band{b[0], 0}
	default:
		return band{b[0] & (1<<uint(width) - 1), 0}
	}
}
