// Package wire implements the binary frame-streaming protocol: the session
// header record, length-delimited frame chunks, and the terminal result
// record carrying either the encoded artifact or a structured failure.
//
// The codec is pure and stateless; it performs no I/O beyond the reader and
// writer handed to it and never reorders data. End-of-input is signalled by
// half-closing the write direction of the connection, not by a terminator
// record.
package wire
