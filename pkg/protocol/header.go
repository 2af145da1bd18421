package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// HeaderSize is the length of the fixed datagram header.
	HeaderSize = 10

	// ChecksumSize is the length of the trailing checksum.
	ChecksumSize = 2

	// MinDatagramSize is the smallest datagram that carries a header and a
	// checksum.
	MinDatagramSize = HeaderSize + ChecksumSize
)

var (
	// ErrShortDatagram is returned when a datagram cannot hold a header and
	// a checksum.
	ErrShortDatagram = errors.New("datagram shorter than header and checksum")

	// ErrPayloadSize is returned when the header's size field exceeds the
	// bytes actually received.
	ErrPayloadSize = errors.New("header size exceeds received payload")
)

// Header is the fixed part of every datagram. All fields are big-endian on
// the wire, in declaration order.
type Header struct {
	Size      uint16
	Sequence  uint16
	SessionID uint16
	Parameter uint16
	Code      uint16
}

// ParseHeader decodes the header at the front of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("parse header: %d bytes: %w", len(b), ErrShortDatagram)
	}
	return Header{
		Size:      binary.BigEndian.Uint16(b[0:2]),
		Sequence:  binary.BigEndian.Uint16(b[2:4]),
		SessionID: binary.BigEndian.Uint16(b[4:6]),
		Parameter: binary.BigEndian.Uint16(b[6:8]),
		Code:      binary.BigEndian.Uint16(b[8:10]),
	}, nil
}

// Put encodes h into the first HeaderSize bytes of b.
func (h Header) Put(b []byte) {
	_ = b[HeaderSize-1]
	binary.BigEndian.PutUint16(b[0:2], h.Size)
	binary.BigEndian.PutUint16(b[2:4], h.Sequence)
	binary.BigEndian.PutUint16(b[4:6], h.SessionID)
	binary.BigEndian.PutUint16(b[6:8], h.Parameter)
	binary.BigEndian.PutUint16(b[8:10], h.Code)
}

// Packet is a decoded inbound datagram.
//
// Payload aliases the receive buffer and is only valid until the session's
// handler returns. A handler that needs the bytes afterwards either copies
// them or calls Retain.
type Packet struct {
	Header
	Payload []byte

	// OnRetain is set by the transport so that Retain can keep the
	// underlying buffer out of the pool.
	OnRetain func()
}

// Retain keeps the packet's receive buffer from being recycled.
func (p *Packet) Retain() {
	if p.OnRetain != nil {
		p.OnRetain()
	}
}

// Decode parses a checksummed datagram. The checksum itself is not checked;
// callers run Verify first.
func Decode(datagram []byte) (*Packet, error) {
	if len(datagram) < MinDatagramSize {
		return nil, fmt.Errorf("decode: %d bytes: %w", len(datagram), ErrShortDatagram)
	}

	h, err := ParseHeader(datagram)
	if err != nil {
		return nil, err
	}

	payload := datagram[HeaderSize : len(datagram)-ChecksumSize]
	if int(h.Size) > len(payload) {
		return nil, fmt.Errorf("decode: size %d, have %d: %w", h.Size, len(payload), ErrPayloadSize)
	}

	return &Packet{Header: h, Payload: payload[:h.Size]}, nil
}
