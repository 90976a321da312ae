package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/minisentry/minisentry/internal/ingest"
	"github.com/minisentry/minisentry/internal/model"
)

type recordingStores struct {
	records   []model.Record
	refreshes int
	known     map[int64]bool
}

func (s *recordingStores) UpsertID(ctx context.Context, id int64) (bool, error) {
	if s.known == nil {
		s.known = make(map[int64]bool)
	}
	if s.known[id] {
		return false, nil
	}
	s.known[id] = true
	return true, nil
}

func (s *recordingStores) Insert(ctx context.Context, rec *model.Record) error {
	rec.ID = int64(len(s.records) + 1)
	s.records = append(s.records, *rec)
	return nil
}

func (s *recordingStores) Refresh(ctx context.Context) error {
	s.refreshes++
	return nil
}

func TestIngestHandler_AcksRegardlessOfPayloadFailures(t *testing.T) {
	stores := &recordingStores{}
	h := &IngestHandler{Pipeline: ingest.NewPipeline(stores, stores, stores, zerolog.Nop())}

	body := strings.Join([]string{
		`{"timestamp":1704164645,"event_id":"ok","platform":"go","sdk":{}}`,
		`this line is garbage`,
		`{"timestamp":"never","event_id":"bad-ts","platform":"go","sdk":{}}`,
	}, "\n")

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("project_id")
	c.SetParamValues("9")

	if err := h.Handle(c); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "{}" {
		t.Fatalf("ack body = %q, want {}", got)
	}
	if len(stores.records) != 1 {
		t.Fatalf("expected 1 persisted record, got %d", len(stores.records))
	}
	if stores.refreshes != 1 {
		t.Fatalf("expected 1 directory refresh, got %d", stores.refreshes)
	}
}

func TestIngestHandler_InvalidProjectID(t *testing.T) {
	stores := &recordingStores{}
	h := &IngestHandler{Pipeline: ingest.NewPipeline(stores, stores, stores, zerolog.Nop())}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("project_id")
	c.SetParamValues("not-a-number")

	if err := h.Handle(c); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
