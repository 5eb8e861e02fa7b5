// Package hostinfo identifies the operating system for diagnostic reports.
package hostinfo

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Host implements application.HostInfo.
type Host struct {
	osRelease string
}

// New returns a Host reading /etc/os-release.
func New() *Host {
	return &Host{osRelease: "/etc/os-release"}
}

// prettyName extracts PRETTY_NAME from an os-release file.
func prettyName(r io.Reader) string {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if v, ok := strings.CutPrefix(line, "PRETTY_NAME="); ok {
			return strings.Trim(v, `"'`)
		}
	}
	return ""
}

func (h *Host) distro() string {
	f, err := os.Open(h.osRelease)
	if err != nil {
		return ""
	}
	defer f.Close()
	return prettyName(f)
}
