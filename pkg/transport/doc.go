// Package transport implements the UDP ingestion pipeline.
//
// Every read borrows a buffer from the packet pool and is handed to its own
// goroutine, so handling of one datagram never delays the next read. A
// datagram is delivered only if the server is open, its checksum matches,
// its session ID is registered and it comes from the endpoint bound to that
// session. The first datagram for an unbound session binds the sender.
// Anything else is dropped and counted by DropReason.
//
// Outbound datagrams go through Send, which copies the bytes onto a bounded
// queue drained by a single writer.
package transport
