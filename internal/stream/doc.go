// Package stream implements the producer side of the frame-streaming encode
// pipeline: it pulls frames from a source, feeds them through a bounded FIFO
// queue to a remote encoder daemon over TCP, half-closes to signal
// end-of-input, and waits for the encoded artifact or a structured failure.
//
// Peak memory is bounded by the queue depth times the chunk size, regardless
// of how many frames a session streams.
package stream
