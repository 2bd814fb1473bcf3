package gateway

import (
	"encoding/binary"
	"fmt"
)

// frameHeaderSize is the length, in bytes, of the fixed frame header: a
// big-endian uint32 total length followed by a big-endian uint16 opcode.
// The total length covers the header itself, so the minimum valid frame
// is exactly frameHeaderSize bytes (an empty payload).
const frameHeaderSize = 6

// Message is an application-level opcode + payload pair, the unit Encode
// and Decode operate on. It mirrors NetworkMessage from the original
// implementation's wire protocol.
type Message struct {
	Opcode  uint16
	Payload []byte
}

// Encode serializes m to wire format: a 4-byte total length (network byte
// order, header-inclusive), a 2-byte opcode (network byte order), and the
// payload bytes.
func Encode(m Message) []byte {
	totalLength := frameHeaderSize + len(m.Payload)
	frame := make([]byte, totalLength)
	binary.BigEndian.PutUint32(frame[0:4], uint32(totalLength))
	binary.BigEndian.PutUint16(frame[4:6], m.Opcode)
	copy(frame[frameHeaderSize:], m.Payload)
	return frame
}

// Decode parses a wire frame produced by Encode. It rejects frames shorter
// than frameHeaderSize, frames whose declared total length is below
// frameHeaderSize, and frames whose declared total length does not match
// the buffer's actual length, without mutating any state. Decode(Encode(m))
// always reproduces m.
func Decode(data []byte) (Message, error) {
	if len(data) < frameHeaderSize {
		return Message{}, fmt.Errorf("gateway: malformed frame: buffer too short (%d bytes)", len(data))
	}

	totalLength := binary.BigEndian.Uint32(data[0:4])
	if totalLength < frameHeaderSize {
		return Message{}, fmt.Errorf("gateway: malformed frame: declared length %d below minimum %d", totalLength, frameHeaderSize)
	}
	if int(totalLength) != len(data) {
		return Message{}, fmt.Errorf("gateway: malformed frame: declared length %d does not match buffer length %d", totalLength, len(data))
	}

	opcode := binary.BigEndian.Uint16(data[4:6])
	payload := make([]byte, len(data)-frameHeaderSize)
	copy(payload, data[frameHeaderSize:])
	return Message{Opcode: opcode, Payload: payload}, nil
}
