// Package link provides raw Ethernet frame I/O for the host-side control
// loop. Drivers register themselves by name and are selected by config.
package link

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/0xastro/uhd/internal/core"
)

// FrameLink reads and writes whole Ethernet frames.
type FrameLink interface {
	// ReadFrame blocks until a frame arrives or ctx is done. The slice is
	// only valid until the next call.
	ReadFrame(ctx context.Context) ([]byte, error)
	WriteFrame(frame []byte) error
	Close() error
}

// Config selects a driver and carries its options.
type Config struct {
	Type    string                 `mapstructure:"type" yaml:"type"`
	Device  string                 `mapstructure:"device" yaml:"device"`
	Options map[string]interface{} `mapstructure:"options" yaml:"options,omitempty"`
}

// Opener builds a link from its config.
type Opener func(cfg Config) (FrameLink, error)

var (
	mu      sync.RWMutex
	drivers = make(map[string]Opener)
)

// Register makes a driver available under name.
func Register(name string, open Opener) {
	mu.Lock()
	defer mu.Unlock()
	drivers[name] = open
}

// Drivers returns the registered driver names.
func Drivers() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(drivers))
	for n := range drivers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Open starts the driver named by cfg.Type.
func Open(cfg Config) (FrameLink, error) {
	mu.RLock()
	open, ok := drivers[cfg.Type]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%q: %w", cfg.Type, core.ErrUnsupportedLink)
	}
	return open(cfg)
}

// decodeOptions fills out from a generic option map. Strings are converted
// to numbers and booleans so options can come from the environment.
func decodeOptions(in map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}
