// Command framecast is the client CLI: it streams rendered frame
// directories to a framecastd encoder and manages the daemon over its
// control socket.
package main
