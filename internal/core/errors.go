// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors shared by the control path.
var (
	// Frame decoding / building errors
	ErrPacketTooShort = errors.New("u2ctl: packet too short")
	ErrShortBuffer    = errors.New("u2ctl: output buffer too small")

	// Reply addressing errors
	ErrNoPeer = errors.New("u2ctl: no control peer observed yet")

	// Transmit errors
	ErrTransmitFailed = errors.New("u2ctl: transmit completed with error")

	// Link errors
	ErrUnsupportedLink = errors.New("u2ctl: unsupported link type")
	ErrLinkClosed      = errors.New("u2ctl: link closed")

	// Configuration errors
	ErrConfigInvalid = errors.New("u2ctl: invalid configuration")
)
