// Package frame defines the frame type and the lazy frame sources the
// streaming client pulls from.
package frame
