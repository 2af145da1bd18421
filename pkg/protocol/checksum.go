package protocol

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Checksum computes the trailing datagram checksum. Implementations are
// identified by name and version so that a future wire revision can swap
// algorithms without touching the pipeline.
type Checksum interface {
	Name() string
	Version() int
	Sum(b []byte) uint16
}

// Fletcher7E is the version 1 checksum: a Fletcher-style pair of byte
// accumulators seeded with 0x7E.
type Fletcher7E struct{}

// Name implements Checksum.
func (Fletcher7E) Name() string { return "fletcher7e" }

// Version implements Checksum.
func (Fletcher7E) Version() int { return 1 }

// Sum implements Checksum.
func (Fletcher7E) Sum(b []byte) uint16 {
	a, c := byte(0x7E), byte(0x7E)
	for _, v := range b {
		a += v
		c += a
	}
	return uint16(int(c) - (int(a)+int(c))<<8)
}

var checksums = map[string]Checksum{
	Fletcher7E{}.Name(): Fletcher7E{},
}

// LookupChecksum returns the checksum registered under name. Lookup is case
// insensitive.
func LookupChecksum(name string) (Checksum, error) {
	cs, ok := checksums[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown checksum %q (available: %s)", name, strings.Join(ChecksumNames(), ", "))
	}
	return cs, nil
}

// ChecksumNames lists the registered checksum names in sorted order.
func ChecksumNames() []string {
	names := make([]string, 0, len(checksums))
	for name := range checksums {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Verify compares the checksum carried in the last two bytes of datagram
// with the one computed over everything before them.
func Verify(datagram []byte, cs Checksum) (pak, calc uint16, ok bool) {
	n := len(datagram)
	if n < ChecksumSize {
		return 0, 0, false
	}
	pak = binary.BigEndian.Uint16(datagram[n-ChecksumSize:])
	calc = cs.Sum(datagram[:n-ChecksumSize])
	return pak, calc, pak == calc
}

// Seal builds a datagram from h and payload. The header's Size field is
// overwritten with the payload length.
func Seal(h Header, payload []byte, cs Checksum) []byte {
	h.Size = uint16(len(payload))

	out := make([]byte, HeaderSize+len(payload)+ChecksumSize)
	h.Put(out)
	copy(out[HeaderSize:], payload)

	body := out[:len(out)-ChecksumSize]
	binary.BigEndian.PutUint16(out[len(body):], cs.Sum(body))
	return out
}

// HexDump formats b for debug logging.
func HexDump(b []byte) string {
	return hex.Dump(b)
}
