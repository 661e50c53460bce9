// Package sim is an in-memory device: registers are plain fields, every
// register write is appended to a shared journal, and the buffer pool hands
// transmitted frames to a caller supplied egress function. It backs the
// host-side run mode and the tests of the control path.
package sim

import (
	"fmt"
	"sync"
)

// Write is one journaled register write.
type Write struct {
	Reg   string
	Value uint32
}

func (w Write) String() string { return fmt.Sprintf("%s=0x%x", w.Reg, w.Value) }

// Journal records register writes in order.
type Journal struct {
	mu     sync.Mutex
	writes []Write
}

func (j *Journal) record(reg string, v uint32) {
	j.mu.Lock()
	j.writes = append(j.writes, Write{Reg: reg, Value: v})
	j.mu.Unlock()
}

// Writes returns a copy of the journal.
func (j *Journal) Writes() []Write {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Write, len(j.writes))
	copy(out, j.writes)
	return out
}

// Regs returns the register names in write order.
func (j *Journal) Regs() []string {
	ws := j.Writes()
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Reg
	}
	return out
}

// Last returns the most recent value written to reg.
func (j *Journal) Last(reg string) (uint32, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := len(j.writes) - 1; i >= 0; i-- {
		if j.writes[i].Reg == reg {
			return j.writes[i].Value, true
		}
	}
	return 0, false
}

// Reset clears the journal.
func (j *Journal) Reset() {
	j.mu.Lock()
	j.writes = j.writes[:0]
	j.mu.Unlock()
}
