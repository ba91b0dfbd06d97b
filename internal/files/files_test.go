package files

import (
	"os"
	"os/user"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanRelativePath(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"foo/bar", "foo/bar"},
		{"foo/../bar", "bar"},
		{"foo/./bar", "foo/bar"},
		{"/foo/bar", "foo/bar"},
		{"foo//bar", "foo/bar"},
		{"foo/bar/..", "foo"},
		{"../foo/bar", "foo/bar"},
		{"foo/../../../..", "."},
		{"foo/../../../bar", "bar"},
		{"", "."},
		{".", "."},
		{"..", "."},
	}
	for _, tc := range testCases {
		assert.Equal(t, filepath.FromSlash(tc.expected), CleanRelativePath(tc.input), "input %q", tc.input)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "file.txt")
	assert.False(t, Exists(filePath))
	require.NoError(t, os.WriteFile(filePath, []byte("x"), 0o644))
	assert.True(t, Exists(filePath))
	assert.True(t, Exists(dir))
}

func TestReplaceTildeInDir(t *testing.T) {
	got, err := ReplaceTildeInDir("/tmp/cache")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cache", got)

	got, err = ReplaceTildeInDir("")
	require.NoError(t, err)
	assert.Equal(t, "", got)

	usr, err := user.Current()
	if err != nil {
		t.Skipf("no current user: %v", err)
	}
	got, err = ReplaceTildeInDir("~/cache")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(usr.HomeDir, "cache"), got)
}
