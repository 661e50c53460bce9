package dispatch

// Default CIC range of both DSP chains.
const (
	MinCICRate = 1
	MaxCICRate = 128
)

// RateConfig is an interpolation or decimation factor split across the
// two half-band stages and the CIC stage.
type RateConfig struct {
	HB1 bool
	HB2 bool
	CIC uint32
}

// Register returns the DSP rate register value.
func (r RateConfig) Register() uint32 {
	var v uint32
	if r.HB1 {
		v |= 1 << 9
	}
	if r.HB2 {
		v |= 1 << 8
	}
	return v | r.CIC
}

// DecomposeRate peels up to two factors of two off rate into the half-band
// stages, HB2 first, and leaves the rest to the CIC. ok is false when the
// residual CIC factor falls outside [cicMin, cicMax].
func DecomposeRate(rate, cicMin, cicMax uint32) (RateConfig, bool) {
	var rc RateConfig
	if rate&1 == 0 {
		rc.HB2 = true
		rate >>= 1
	}
	if rate&1 == 0 {
		rc.HB1 = true
		rate >>= 1
	}
	rc.CIC = rate
	if rate < cicMin || rate > cicMax {
		return rc, false
	}
	return rc, true
}
