// Package session holds the server-side session table: 16-bit session IDs,
// the UDP endpoint bound to each session and the processor packets are
// delivered to.
package session
