package handler

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/minisentry/minisentry/internal/model"
	"github.com/minisentry/minisentry/internal/repository"
	"github.com/minisentry/minisentry/internal/response"
)

// startCursor means "no upper bound yet": the first page starts at the
// newest record.
const startCursor = math.MaxInt64

// RecordReader is the slice of the record repository the read API needs.
type RecordReader interface {
	List(ctx context.Context, cursor int64, limit int, projectID *int64) ([]model.Record, error)
	Get(ctx context.Context, id int64) (*model.Record, error)
}

// NameResolver resolves project ids to display names.
type NameResolver interface {
	LookupName(projectID int64) string
}

// RecordHandler serves stored records (GET /api/records, GET /api/records/:id).
type RecordHandler struct {
	Records   RecordReader
	Directory NameResolver
	PageSize  int
}

type recordListItem struct {
	ID          int64   `json:"id"`
	ProjectID   int64   `json:"project_id"`
	ProjectName string  `json:"project_name"`
	Timestamp   int64   `json:"timestamp"`
	Time        string  `json:"time"`
	Message     *string `json:"message"`
	Level       string  `json:"level"`
	EventID     string  `json:"event_id"`
}

type recordDetail struct {
	model.Record
	ProjectName string `json:"project_name"`
	Time        string `json:"time"`
}

// List returns one newest-first page. Query params: cursor (exclusive upper
// id bound, defaults to the start sentinel) and project_id (optional filter).
func (h *RecordHandler) List(c echo.Context) error {
	cursor := int64(startCursor)
	if raw := c.QueryParam("cursor"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return response.BadRequest(c, "invalid cursor", err.Error())
		}
		cursor = parsed
	}

	var projectID *int64
	if raw := c.QueryParam("project_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return response.BadRequest(c, "invalid project id", err.Error())
		}
		projectID = &parsed
	}

	records, err := h.Records.List(c.Request().Context(), cursor, h.PageSize, projectID)
	if err != nil {
		return response.InternalError(c, "listing records failed", err.Error())
	}

	items := make([]recordListItem, 0, len(records))
	for _, rec := range records {
		items = append(items, recordListItem{
			ID:          rec.ID,
			ProjectID:   rec.ProjectID,
			ProjectName: h.Directory.LookupName(rec.ProjectID),
			Timestamp:   rec.Timestamp,
			Time:        formatEpoch(rec.Timestamp),
			Message:     rec.Message,
			Level:       rec.Level,
			EventID:     rec.EventID,
		})
	}

	body := map[string]any{"records": items}
	if len(records) > 0 {
		body["next_cursor"] = records[len(records)-1].ID
	}
	return response.OK(c, body, "")
}

// Get returns one record by id, 404 when it does not exist.
func (h *RecordHandler) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return response.BadRequest(c, "invalid record id", err.Error())
	}

	rec, err := h.Records.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "record not found", err.Error())
		}
		return response.InternalError(c, "fetching record failed", err.Error())
	}

	return response.OK(c, recordDetail{
		Record:      *rec,
		ProjectName: h.Directory.LookupName(rec.ProjectID),
		Time:        formatEpoch(rec.Timestamp),
	}, "")
}

func formatEpoch(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}
