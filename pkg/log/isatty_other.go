//go:build !linux && !darwin

package log

import "os"

// isTerminal always reports false on platforms without termios, so
// color output stays off unless forced with SetColorize.
func isTerminal(f *os.File) bool {
	return false
}
