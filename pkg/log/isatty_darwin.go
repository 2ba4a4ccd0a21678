//go:build darwin

package log

import "golang.org/x/sys/unix"

// Terminal detection ioctl for macOS
const ioctlGetTermios = unix.TIOCGETA
