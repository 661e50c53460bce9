// Package proto is the wire codec for control subpackets: a sequence of
// 4-byte aligned, self-describing command or reply units carried in the
// UDP payload of a control frame. All multi-byte fields are big-endian.
package proto

import (
	"errors"
	"fmt"
)

// Opcode selects the command a subpacket carries. Replies carry the
// request opcode with ReplyBit set.
type Opcode uint8

const (
	OpEOP           Opcode = 0 // end of subpackets
	OpID            Opcode = 1
	OpBurnMACAddr   Opcode = 2
	OpConfigRxV2    Opcode = 4
	OpConfigTxV2    Opcode = 5
	OpStartRxStream Opcode = 6
	OpStopRx        Opcode = 7
	OpDboardInfo    Opcode = 9
	OpPeek          Opcode = 11
	OpPoke          Opcode = 12
	OpSetTxLOOffset Opcode = 13
	OpSetRxLOOffset Opcode = 14
	OpResetDB       Opcode = 15
	OpGPIOSetDDR    Opcode = 17
	OpGPIOSetSels   Opcode = 18
	OpGPIORead      Opcode = 19
	OpGPIOWrite     Opcode = 20
	OpGPIOStream    Opcode = 21
	OpSetTime       Opcode = 22
	OpConfigClock   Opcode = 23

	ReplyBit Opcode = 0x80
)

var opcodeNames = map[Opcode]string{
	OpEOP:           "EOP",
	OpID:            "ID",
	OpBurnMACAddr:   "BURN_MAC_ADDR",
	OpConfigRxV2:    "CONFIG_RX_V2",
	OpConfigTxV2:    "CONFIG_TX_V2",
	OpStartRxStream: "START_RX_STREAMING",
	OpStopRx:        "STOP_RX",
	OpDboardInfo:    "DBOARD_INFO",
	OpPeek:          "PEEK",
	OpPoke:          "POKE",
	OpSetTxLOOffset: "SET_TX_LO_OFFSET",
	OpSetRxLOOffset: "SET_RX_LO_OFFSET",
	OpResetDB:       "RESET_DB",
	OpGPIOSetDDR:    "GPIO_SET_DDR",
	OpGPIOSetSels:   "GPIO_SET_SELS",
	OpGPIORead:      "GPIO_READ",
	OpGPIOWrite:     "GPIO_WRITE",
	OpGPIOStream:    "GPIO_STREAM",
	OpSetTime:       "SET_TIME",
	OpConfigClock:   "CONFIG_CLOCK",
}

// Reply returns the reply opcode for a request opcode.
func (o Opcode) Reply() Opcode { return o | ReplyBit }

// IsReply reports whether the reply bit is set.
func (o Opcode) IsReply() bool { return o&ReplyBit != 0 }

func (o Opcode) String() string {
	name, ok := opcodeNames[o&^ReplyBit]
	if !ok {
		return fmt.Sprintf("OP_%d", uint8(o))
	}
	if o.IsReply() && o != OpEOP {
		return name + "_REPLY"
	}
	return name
}

// Framing constants.
const (
	HeaderLen       = 4
	MaxSubpacketLen = 252

	// ReplyCapacity is the most reply bytes a single request may produce.
	ReplyCapacity = 4 * MaxSubpacketLen
)

var (
	ErrShortSubpacket = errors.New("proto: subpacket too short")
	ErrShortBuffer    = errors.New("proto: buffer too short")
	ErrBadLength      = errors.New("proto: declared length out of range")
)

// Align4 rounds n up to the next multiple of 4.
func Align4(n int) int { return (n + 3) &^ 3 }
