package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/minisentry/minisentry/internal/ingest"
	"github.com/minisentry/minisentry/internal/response"
)

// ackBody is the fixed acknowledgement for the envelope endpoint. Clients get
// it regardless of how many individual payloads failed; failures are only
// logged.
var ackBody = []byte("{}")

// IngestHandler accepts envelope submissions (POST /api/:project_id/envelope/).
type IngestHandler struct {
	Pipeline *ingest.Pipeline
}

// Handle streams the request body through the ingestion pipeline.
func (h *IngestHandler) Handle(c echo.Context) error {
	projectID, err := strconv.ParseInt(c.Param("project_id"), 10, 64)
	if err != nil {
		return response.BadRequest(c, "invalid project id", err.Error())
	}

	h.Pipeline.Ingest(c.Request().Context(), projectID, c.Request().Body)

	return c.JSONBlob(http.StatusOK, ackBody)
}
