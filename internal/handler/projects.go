package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/minisentry/minisentry/internal/model"
	"github.com/minisentry/minisentry/internal/repository"
	"github.com/minisentry/minisentry/internal/response"
)

// ProjectWriter is the slice of the project repository the admin API needs.
type ProjectWriter interface {
	Rename(ctx context.Context, id int64, name string) error
}

// Directory is the project directory as seen by the handlers: read for
// display, refreshed after administrative writes.
type Directory interface {
	Snapshot() []model.Project
	Refresh(ctx context.Context) error
	LookupName(projectID int64) string
}

// ProjectHandler serves the project directory (GET /api/projects) and the
// rename admin operation (PUT /api/projects/:id).
type ProjectHandler struct {
	Projects  ProjectWriter
	Directory Directory
	Log       zerolog.Logger
}

type projectItem struct {
	ID          int64   `json:"id"`
	Name        *string `json:"name"`
	DisplayName string  `json:"display_name"`
}

type renameProjectRequest struct {
	Name string `json:"name" form:"name"`
}

// List returns the current directory snapshot.
func (h *ProjectHandler) List(c echo.Context) error {
	snapshot := h.Directory.Snapshot()
	items := make([]projectItem, 0, len(snapshot))
	for _, p := range snapshot {
		items = append(items, projectItem{
			ID:          p.ID,
			Name:        p.Name,
			DisplayName: p.DisplayName(),
		})
	}
	return response.OK(c, map[string]any{"projects": items}, "")
}

// Rename sets a project's name and refreshes the directory.
func (h *ProjectHandler) Rename(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return response.BadRequest(c, "invalid project id", err.Error())
	}

	var req renameProjectRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body", err.Error())
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return response.BadRequest(c, "missing name", "name must not be empty")
	}

	if err := h.Projects.Rename(c.Request().Context(), id, name); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "project not found", err.Error())
		}
		return response.InternalError(c, "renaming project failed", err.Error())
	}

	if err := h.Directory.Refresh(c.Request().Context()); err != nil {
		// Stale name until the next refresh; the rename itself succeeded.
		h.Log.Error().Err(err).Int64("project_id", id).Msg("refreshing project directory")
	}

	return response.OK(c, projectItem{ID: id, Name: &name, DisplayName: name}, "project renamed")
}
