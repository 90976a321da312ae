// Package cache holds the in-memory project directory shared by the ingest
// and read paths.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/minisentry/minisentry/internal/model"
)

// Loader reads the full project set from persistent storage.
type Loader interface {
	ListProjects(ctx context.Context) ([]model.Project, error)
}

// ProjectDirectory is a read-mostly table of known projects. Refresh installs
// a whole new snapshot; the current one is never mutated in place, so readers
// only ever wait for the pointer swap itself.
type ProjectDirectory struct {
	loader Loader

	mu       sync.RWMutex
	projects []model.Project
}

// NewProjectDirectory returns an empty directory backed by the given loader.
func NewProjectDirectory(loader Loader) *ProjectDirectory {
	return &ProjectDirectory{loader: loader}
}

// Snapshot returns the current project table. The returned slice is shared
// with other readers and must not be modified.
func (d *ProjectDirectory) Snapshot() []model.Project {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.projects
}

// Refresh re-reads all projects from storage and swaps in the new snapshot.
// On failure the previous snapshot stays in place and the error is returned
// for the caller to log.
func (d *ProjectDirectory) Refresh(ctx context.Context) error {
	projects, err := d.loader.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}

	d.mu.Lock()
	d.projects = projects
	d.mu.Unlock()
	return nil
}

// LookupName resolves a project id to its display name, falling back to the
// id rendered as a string for projects that have not been named yet. The
// table is small, a linear scan is fine.
func (d *ProjectDirectory) LookupName(projectID int64) string {
	d.mu.RLock()
	projects := d.projects
	d.mu.RUnlock()

	for _, p := range projects {
		if p.ID == projectID {
			return p.DisplayName()
		}
	}
	return strconv.FormatInt(projectID, 10)
}
