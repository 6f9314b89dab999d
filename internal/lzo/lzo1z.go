// Package lzo implements a decompressor for the LZO1Z variant used by the
// NSE market-data broadcast feeds. The decoder is pure: it reads only from
// src, writes only into dst, and refuses to step outside either buffer.
// Output is byte-identical to liblzo2's lzo1z_decompress_safe on the same
// input.
package lzo

import "errors"

// Decode failure modes. Any error is non-recoverable for that packet;
// callers drop the packet and count the failure.
var (
	ErrInputOverrun      = errors.New("lzo: input overrun")
	ErrOutputOverrun     = errors.New("lzo: output overrun")
	ErrLookbehindOverrun = errors.New("lzo: lookbehind overrun")
	ErrEOFNotFound       = errors.New("lzo: EOF marker not found")
	ErrInputNotConsumed  = errors.New("lzo: input not fully consumed")
	ErrCorrupted         = errors.New("lzo: corrupted data")
)

// m2MaxOffset is the largest offset reachable by a two-byte M2 match.
const m2MaxOffset = 0x0700

// Decompress expands the LZO1Z stream in src into dst and returns the number
// of bytes written. dst must be preallocated to at least the expected
// uncompressed size; the decoder never grows it. The stream must terminate
// with the EOF marker and consume src exactly.
func Decompress(src, dst []byte) (int, error) {
	var (
		ip, op   int
		t        int
		mPos     int
		mLen     int
		off      int
		lastMOff int
	)
	ipEnd := len(src)
	opEnd := len(dst)

	if ipEnd == 0 {
		return 0, ErrInputOverrun
	}
	t = int(src[ip])
	ip++

	if t <= 17 {
		goto mainLoop
	}

	// Initial literal run: instruction byte encodes length + 17.
	t -= 17
	if op+t > opEnd {
		return op, ErrOutputOverrun
	}
	if ip+t > ipEnd {
		return op, ErrInputOverrun
	}
	copy(dst[op:], src[ip:ip+t])
	op += t
	ip += t
	if ip >= ipEnd {
		return op, ErrEOFNotFound
	}
	if t < 4 {
		t = int(src[ip])
		ip++
		goto mainLoop
	}
	t = int(src[ip])
	ip++
	if t >= 16 {
		goto mainLoop
	}
	// Short match immediately after the initial literal run; offset is
	// biased past the M2 window.
	if ip >= ipEnd {
		return op, ErrInputOverrun
	}
	off = 1 + m2MaxOffset + t<<6 + int(src[ip])>>2
	ip++
	if off > op {
		return op, ErrLookbehindOverrun
	}
	mPos = op - off
	lastMOff = off
	if op+3 > opEnd {
		return op, ErrOutputOverrun
	}
	dst[op] = dst[mPos]
	dst[op+1] = dst[mPos+1]
	dst[op+2] = dst[mPos+2]
	op += 3
	goto matchDone

mainLoop:
	if t >= 16 {
		goto matchHandling
	}
	// Literal run of t+3 bytes, with zero-byte length extension.
	if t == 0 {
		for {
			if ip >= ipEnd {
				return op, ErrInputOverrun
			}
			if src[ip] != 0 {
				break
			}
			t += 255
			ip++
		}
		t += 15 + int(src[ip])
		ip++
	}
	t += 3
	if op+t > opEnd {
		return op, ErrOutputOverrun
	}
	if ip+t > ipEnd {
		return op, ErrInputOverrun
	}
	copy(dst[op:], src[ip:ip+t])
	op += t
	ip += t
	if ip >= ipEnd {
		return op, ErrEOFNotFound
	}
	t = int(src[ip])
	ip++
	if t >= 16 {
		goto matchHandling
	}
	// M1 match following a literal run: 2-byte copy.
	if ip >= ipEnd {
		return op, ErrInputOverrun
	}
	off = 1 + t<<6 + int(src[ip])>>2
	ip++
	if off > op {
		return op, ErrLookbehindOverrun
	}
	mPos = op - off
	lastMOff = off
	if op+2 > opEnd {
		return op, ErrOutputOverrun
	}
	dst[op] = dst[mPos]
	dst[op+1] = dst[mPos+1]
	op += 2
	goto matchDone

matchHandling:
	if t >= 64 {
		// M2: short match, offset in the instruction byte plus one more.
		// Offset codes >= 0x1c reuse the previous match offset.
		off = t & 0x1f
		if off >= 0x1c {
			if lastMOff == 0 {
				return op, ErrCorrupted
			}
			off = lastMOff
			mPos = op - off
		} else {
			if ip >= ipEnd {
				return op, ErrInputOverrun
			}
			off = 1 + off<<6 + int(src[ip])>>2
			ip++
			if off > op {
				return op, ErrLookbehindOverrun
			}
			mPos = op - off
			lastMOff = off
		}
		mLen = t>>5 - 1
	} else if t >= 32 {
		// M3: longer match, two offset bytes, run-length extension.
		t &= 31
		if t == 0 {
			for {
				if ip >= ipEnd {
					return op, ErrInputOverrun
				}
				if src[ip] != 0 {
					break
				}
				t += 255
				ip++
			}
			t += 31 + int(src[ip])
			ip++
		}
		if ip+2 > ipEnd {
			return op, ErrInputOverrun
		}
		off = 1 + int(src[ip])<<6 + int(src[ip+1])>>2
		ip += 2
		if off > op {
			return op, ErrLookbehindOverrun
		}
		mPos = op - off
		lastMOff = off
		mLen = t
	} else if t >= 16 {
		// M4 far match, or the EOF marker.
		mPos = op - (t&8)<<11
		t &= 7
		if t == 0 {
			for {
				if ip >= ipEnd {
					return op, ErrInputOverrun
				}
				if src[ip] != 0 {
					break
				}
				t += 255
				ip++
			}
			t += 7 + int(src[ip])
			ip++
		}
		if ip+2 > ipEnd {
			return op, ErrInputOverrun
		}
		mPos -= int(src[ip])<<6 + int(src[ip+1])>>2
		ip += 2
		if mPos == op {
			// EOF marker: the stream must end exactly here.
			if ip < ipEnd {
				return op, ErrInputNotConsumed
			}
			return op, nil
		}
		mPos -= 0x4000
		if op < mPos {
			return op, ErrLookbehindOverrun
		}
		lastMOff = op - mPos
		if lastMOff == 0 || lastMOff > op {
			return op, ErrCorrupted
		}
		mLen = t
	} else {
		// M1 match after a match's trailing literals: 2-byte copy.
		if ip >= ipEnd {
			return op, ErrInputOverrun
		}
		off = 1 + t<<6 + int(src[ip])>>2
		ip++
		if off > op {
			return op, ErrLookbehindOverrun
		}
		mPos = op - off
		lastMOff = off
		if op+2 > opEnd {
			return op, ErrOutputOverrun
		}
		dst[op] = dst[mPos]
		dst[op+1] = dst[mPos+1]
		op += 2
		goto matchDone
	}

	// Copy the match byte-by-byte: source and destination may overlap.
	{
		total := 2 + mLen
		if op+total > opEnd {
			return op, ErrOutputOverrun
		}
		for i := 0; i < total; i++ {
			dst[op+i] = dst[mPos+i]
		}
		op += total
	}

matchDone:
	// Low two bits of the last consumed byte carry the trailing literal count.
	t = int(src[ip-1]) & 3
	if ip >= ipEnd {
		return op, ErrEOFNotFound
	}
	if t != 0 {
		if op+t > opEnd {
			return op, ErrOutputOverrun
		}
		if ip+t > ipEnd {
			return op, ErrInputOverrun
		}
		copy(dst[op:], src[ip:ip+t])
		op += t
		ip += t
		if ip >= ipEnd {
			return op, ErrEOFNotFound
		}
		t = int(src[ip])
		ip++
		goto matchHandling
	}
	t = int(src[ip])
	ip++
	goto mainLoop
}
