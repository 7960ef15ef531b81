// Package daemon coordinates the long-running framecastd process.
//
// It wires configuration, the session journal, the accelerator probe, and
// the encoder server into a single lifecycle with flock-based locking to
// prevent multiple instances from sharing one spool directory.
package daemon
