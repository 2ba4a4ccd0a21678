//go:build linux

package log

import "golang.org/x/sys/unix"

// Terminal detection ioctl for Linux
const ioctlGetTermios = unix.TCGETS
