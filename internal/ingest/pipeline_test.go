package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/minisentry/minisentry/internal/model"
)

type fakeProjectStore struct {
	known   map[int64]bool
	upserts int
	err     error
}

func (s *fakeProjectStore) UpsertID(ctx context.Context, id int64) (bool, error) {
	s.upserts++
	if s.err != nil {
		return false, s.err
	}
	if s.known == nil {
		s.known = make(map[int64]bool)
	}
	if s.known[id] {
		return false, nil
	}
	s.known[id] = true
	return true, nil
}

type fakeRecordStore struct {
	records []model.Record
	inserts int
	failOn  int // 1-based insert attempt to fail, 0 = never
}

func (s *fakeRecordStore) Insert(ctx context.Context, rec *model.Record) error {
	s.inserts++
	if s.inserts == s.failOn {
		return errors.New("write failed")
	}
	rec.ID = int64(len(s.records) + 1)
	s.records = append(s.records, *rec)
	return nil
}

type fakeRefresher struct {
	refreshes int
}

func (r *fakeRefresher) Refresh(ctx context.Context) error {
	r.refreshes++
	return nil
}

func newTestPipeline() (*Pipeline, *fakeProjectStore, *fakeRecordStore, *fakeRefresher) {
	projects := &fakeProjectStore{}
	records := &fakeRecordStore{}
	refresher := &fakeRefresher{}
	p := NewPipeline(projects, records, refresher, zerolog.Nop())
	return p, projects, records, refresher
}

const validPayload = `{"timestamp":1704164645,"event_id":"abc123","platform":"go","sdk":{"name":"test"},"logentry":{"message":"boom"}}`

func TestIngest_PersistsCanonicalRecord(t *testing.T) {
	p, _, records, _ := newTestPipeline()

	p.Ingest(context.Background(), 42, strings.NewReader(validPayload+"\n"))

	if len(records.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records.records))
	}
	rec := records.records[0]
	if rec.ProjectID != 42 {
		t.Fatalf("project id = %d, want 42", rec.ProjectID)
	}
	if rec.Timestamp != 1704164645 {
		t.Fatalf("timestamp = %d, want 1704164645", rec.Timestamp)
	}
	if rec.Message == nil || *rec.Message != "boom" {
		t.Fatalf("message = %v, want boom", rec.Message)
	}
	if rec.Level != "error" {
		t.Fatalf("level should default to error, got %q", rec.Level)
	}
	if string(rec.User) != "{}" || string(rec.Tags) != "{}" {
		t.Fatalf("absent user/tags should default to empty objects, got %s / %s", rec.User, rec.Tags)
	}
}

func TestIngest_NewProjectRefreshesOnce(t *testing.T) {
	p, projects, records, refresher := newTestPipeline()

	body := validPayload + "\n" + validPayload + "\n"
	p.Ingest(context.Background(), 7, strings.NewReader(body))

	if len(records.records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records.records))
	}
	if projects.upserts != 2 {
		t.Fatalf("expected an upsert per payload, got %d", projects.upserts)
	}
	if len(projects.known) != 1 {
		t.Fatalf("expected exactly 1 project row, got %d", len(projects.known))
	}
	if refresher.refreshes != 1 {
		t.Fatalf("expected exactly 1 refresh for a new project, got %d", refresher.refreshes)
	}
}

func TestIngest_BadPayloadsAreSkippedNotFatal(t *testing.T) {
	p, _, records, _ := newTestPipeline()

	lines := []string{
		`not json at all`,
		`{"timestamp":"not-a-date","event_id":"x","platform":"go","sdk":{}}`,
		`{"event_id":"missing-fields"}`,
		validPayload,
	}
	p.Ingest(context.Background(), 1, strings.NewReader(strings.Join(lines, "\n")+"\n"))

	if len(records.records) != 1 {
		t.Fatalf("only the valid payload should persist, got %d records", len(records.records))
	}
	if records.records[0].EventID != "abc123" {
		t.Fatalf("wrong record persisted: %q", records.records[0].EventID)
	}
}

func TestIngest_StorageFailureLosesOnePayload(t *testing.T) {
	p, _, records, _ := newTestPipeline()
	records.failOn = 1

	body := validPayload + "\n" + validPayload + "\n"
	p.Ingest(context.Background(), 1, strings.NewReader(body))

	if len(records.records) != 1 {
		t.Fatalf("second payload should persist after first write fails, got %d", len(records.records))
	}
}

func TestIngest_PreservesArrivalOrder(t *testing.T) {
	p, _, records, _ := newTestPipeline()

	var sb strings.Builder
	ids := []string{"first", "second", "third"}
	for _, id := range ids {
		sb.WriteString(`{"timestamp":1704164645,"event_id":"` + id + `","platform":"go","sdk":{}}`)
		sb.WriteString("\n")
	}
	p.Ingest(context.Background(), 1, strings.NewReader(sb.String()))

	if len(records.records) != len(ids) {
		t.Fatalf("expected %d records, got %d", len(ids), len(records.records))
	}
	for i, id := range ids {
		if records.records[i].EventID != id {
			t.Fatalf("record %d = %q, want %q", i, records.records[i].EventID, id)
		}
	}
}

func TestIngest_StopsOnCancelledContext(t *testing.T) {
	p, _, records, _ := newTestPipeline()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p.Ingest(ctx, 1, strings.NewReader(validPayload+"\n"+validPayload+"\n"))

	if len(records.records) != 0 {
		t.Fatalf("no payloads should be read after cancellation, got %d", len(records.records))
	}
}

func TestIngest_OversizedPayloadSkippedNotFatal(t *testing.T) {
	p, _, records, _ := newTestPipeline()

	oversized := `{"timestamp":1704164645,"event_id":"huge","platform":"go","sdk":{},"extra":{"blob":"` +
		strings.Repeat("x", maxPayloadBytes+1) + `"}}`
	body := oversized + "\n" + validPayload + "\n"
	p.Ingest(context.Background(), 1, strings.NewReader(body))

	if len(records.records) != 1 {
		t.Fatalf("valid payload after oversized line should persist, got %d records", len(records.records))
	}
	if records.records[0].EventID != "abc123" {
		t.Fatalf("wrong record persisted: %q", records.records[0].EventID)
	}
}

func TestIngest_OversizedPayloadAtEndOfStream(t *testing.T) {
	p, _, records, _ := newTestPipeline()

	body := validPayload + "\n" +
		strings.Repeat("y", maxPayloadBytes+1) // no trailing newline
	p.Ingest(context.Background(), 1, strings.NewReader(body))

	if len(records.records) != 1 {
		t.Fatalf("expected only the valid payload, got %d records", len(records.records))
	}
}

// disconnectingStores cancels the request context during the project upsert,
// simulating the caller going away while a payload is mid-flight, and fails
// any write that arrives with an already-cancelled context.
type disconnectingStores struct {
	cancel    context.CancelFunc
	records   []model.Record
	refreshes int
}

func (s *disconnectingStores) UpsertID(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.cancel()
	return true, nil
}

func (s *disconnectingStores) Insert(ctx context.Context, rec *model.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.records = append(s.records, *rec)
	return nil
}

func (s *disconnectingStores) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.refreshes++
	return nil
}

func TestIngest_DisconnectMidPayloadCompletesCurrentWrite(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores := &disconnectingStores{cancel: cancel}
	p := NewPipeline(stores, stores, stores, zerolog.Nop())

	body := validPayload + "\n" + validPayload + "\n"
	p.Ingest(ctx, 1, strings.NewReader(body))

	if len(stores.records) != 1 {
		t.Fatalf("in-flight payload should finish its write after disconnect, got %d records", len(stores.records))
	}
	if stores.refreshes != 1 {
		t.Fatalf("refresh for the in-flight payload should complete, got %d", stores.refreshes)
	}
}

func TestIngest_UnknownFieldsRetained(t *testing.T) {
	p, _, records, _ := newTestPipeline()

	payload := `{"timestamp":1704164645,"event_id":"abc","platform":"go","sdk":{},"custom_field":{"a":1}}`
	p.Ingest(context.Background(), 1, strings.NewReader(payload+"\n"))

	if len(records.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records.records))
	}
	unknown := string(records.records[0].Unknown)
	if !strings.Contains(unknown, `"custom_field"`) {
		t.Fatalf("unknown bag should retain unrecognized fields, got %s", unknown)
	}
}
