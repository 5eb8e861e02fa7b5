//go:build linux

package hostinfo

import (
	"golang.org/x/sys/unix"
)

// Describe returns e.g. "Ubuntu 24.04 LTS (kernel 6.8.0-45-generic)".
func (h *Host) Describe() string {
	distro := h.distro()
	if distro == "" {
		distro = "Linux"
	}
	kernel := kernelRelease()
	if kernel == "" {
		return distro
	}
	return distro + " (kernel " + kernel + ")"
}

func kernelRelease() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return ""
	}
	return unix.ByteSliceToString(uts.Release[:])
}
