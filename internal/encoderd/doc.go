// Package encoderd implements the remote encoding daemon's session loop:
// it accepts length-delimited frame streams over TCP, pipes them through a
// hardware-accelerated transcoder subprocess, and returns the finished mp4
// artifact or a structured failure on the same connection.
package encoderd
