package hostinfo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyName(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"quoted", "NAME=\"Ubuntu\"\nPRETTY_NAME=\"Ubuntu 24.04 LTS\"\nID=ubuntu\n", "Ubuntu 24.04 LTS"},
		{"unquoted", "PRETTY_NAME=Arch\n", "Arch"},
		{"missing", "NAME=Debian\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, prettyName(strings.NewReader(tt.content)))
		})
	}
}

func TestDescribe_UsesOSRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "os-release")
	require.NoError(t, os.WriteFile(path, []byte("PRETTY_NAME=\"Fedora Linux 41\"\n"), 0o644))

	h := &Host{osRelease: path}
	assert.True(t, strings.HasPrefix(h.Describe(), "Fedora Linux 41"))
}

func TestDescribe_NoOSRelease(t *testing.T) {
	h := &Host{osRelease: filepath.Join(t.TempDir(), "missing")}
	assert.NotEmpty(t, h.Describe())
}
