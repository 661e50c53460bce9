package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecomposeRate(t *testing.T) {
	tests := []struct {
		name string
		rate uint32
		want RateConfig
		reg  uint32
		ok   bool
	}{
		{"odd", 3, RateConfig{CIC: 3}, 0x003, true},
		{"two", 2, RateConfig{HB2: true, CIC: 1}, 0x101, true},
		{"four", 4, RateConfig{HB1: true, HB2: true, CIC: 1}, 0x301, true},
		{"eight", 8, RateConfig{HB1: true, HB2: true, CIC: 2}, 0x302, true},
		{"six", 6, RateConfig{HB2: true, CIC: 3}, 0x103, true},
		{"max", 512, RateConfig{HB1: true, HB2: true, CIC: 128}, 0x380, true},
		{"over", 1024, RateConfig{HB1: true, HB2: true, CIC: 256}, 0x300 | 256, false},
		{"zero", 0, RateConfig{HB1: true, HB2: true}, 0x300, false},
		{"odd over", 129, RateConfig{CIC: 129}, 129, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecomposeRate(tt.rate, MinCICRate, MaxCICRate)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.reg, got.Register())
		})
	}
}
