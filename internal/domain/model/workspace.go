package model

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is a temporary directory used by encoders that work on files.
type Workspace struct {
	dir string
}

// NewWorkspace creates a new temporary directory under the system temp dir.
func NewWorkspace(id string) (*Workspace, error) {
	tempDir, err := os.MkdirTemp("", fmt.Sprintf("workspace-%s-", id))
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace directory: %w", err)
	}

	return &Workspace{
		dir: tempDir,
	}, nil
}

// Join constructs a path by joining the workspace path with the provided elements.
func (w *Workspace) Join(elem ...string) string {
	elements := append([]string{w.dir}, elem...)
	return filepath.Join(elements...)
}

// Remove deletes the workspace directory and all its contents.
func (w *Workspace) Remove() error {
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("failed to remove workspace: %w", err)
	}
	return nil
}

func (w *Workspace) Dir() string {
	return w.dir
}
