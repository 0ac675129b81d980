package model

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspace(t *testing.T) {
	ws, err := NewWorkspace("vips")
	require.NoError(t, err)

	path := ws.Join("input.png")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	assert.FileExists(t, path)
	assert.Contains(t, ws.Dir(), "workspace-vips-")

	require.NoError(t, ws.Remove())
	assert.NoDirExists(t, ws.Dir())
}
