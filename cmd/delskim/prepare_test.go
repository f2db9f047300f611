package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFileLists(t *testing.T) {
	dir := t.TempDir()
	listA := filepath.Join(dir, "a.txt")
	listB := filepath.Join(dir, "b.txt")

	require.NoError(t, os.WriteFile(listA, []byte(`
# signal files
/data/GG_RPV10_1400_850-1.arrow
/data/GG_RPV10_1400_850-2.arrow

`), 0o644))
	require.NoError(t, os.WriteFile(listB, []byte("/data/jetjet_JZ4-1.arrow\n"), 0o644))

	files, err := readFileLists([]string{listA, listB})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/data/GG_RPV10_1400_850-1.arrow",
		"/data/GG_RPV10_1400_850-2.arrow",
		"/data/jetjet_JZ4-1.arrow",
	}, files)
}

func TestReadFileListsMissing(t *testing.T) {
	_, err := readFileLists([]string{filepath.Join(t.TempDir(), "nope.txt")})
	require.Error(t, err)
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd(testConfig())

	names := make([]string, 0)
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Contains(t, names, "prepare")
	assert.Contains(t, names, "serve")
}
