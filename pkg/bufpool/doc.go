// Package bufpool provides the preallocated receive buffer pool used by the
// UDP ingestion pipeline.
//
// The pool is sized from the client limit with CountFor and rebuilt on every
// server start. Buffers that a consumer keeps past its handler are marked
// with Buffer.Retain and are not taken back.
package bufpool
