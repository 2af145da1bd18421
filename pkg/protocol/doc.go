// Package protocol defines the UDP datagram layout shared by the server and
// its clients.
//
// A datagram is a 10-byte big-endian header, the payload, and a 2-byte
// big-endian checksum computed over everything before it:
//
//	+------+----------+-----------+-----------+------+---------+----------+
//	| size | sequence | sessionID | parameter | code | payload | checksum |
//	+------+----------+-----------+-----------+------+---------+----------+
//	   2        2          2           2         2      size        2
//
// The checksum algorithm is pluggable through the Checksum interface.
// Fletcher7E is the only registered algorithm today.
package protocol
