//go:build !linux

package hostinfo

import "runtime"

// Describe returns the platform name; only Linux reports a distribution.
func (h *Host) Describe() string {
	if distro := h.distro(); distro != "" {
		return distro
	}
	return runtime.GOOS + "/" + runtime.GOARCH
}
