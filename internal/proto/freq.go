package proto

import "math"

// FreqFracBits is the number of fractional bits of a Freq.
const FreqFracBits = 20

// Freq is a signed frequency in Hz with FreqFracBits fractional bits,
// carried on the wire as a hi/lo pair of 32-bit words.
type Freq int64

// FreqFromHz converts Hz to fixed point, rounding to nearest.
func FreqFromHz(hz float64) Freq {
	return Freq(math.Round(hz * (1 << FreqFracBits)))
}

// FreqFromHiLo joins the wire halves.
func FreqFromHiLo(hi, lo uint32) Freq {
	return Freq(int64(uint64(hi)<<32 | uint64(lo)))
}

// Hz returns the frequency as a float.
func (f Freq) Hz() float64 { return float64(f) / (1 << FreqFracBits) }

// Hi returns the upper wire word.
func (f Freq) Hi() uint32 { return uint32(uint64(f) >> 32) }

// Lo returns the lower wire word.
func (f Freq) Lo() uint32 { return uint32(uint64(f)) }
