// Package ingest normalizes raw event payloads into canonical records and
// persists them per project.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/minisentry/minisentry/internal/event"
	"github.com/minisentry/minisentry/internal/model"
)

// maxPayloadBytes caps a single newline-delimited payload. Longer lines are
// skipped like any other undecodable payload.
const maxPayloadBytes = 1 << 20

var errPayloadTooLarge = errors.New("payload exceeds size limit")

// emptyObject is the stored default for absent open sub-documents.
var emptyObject = json.RawMessage(`{}`)

// ProjectStore creates project rows on demand.
type ProjectStore interface {
	// UpsertID inserts a project row if absent and reports whether it did.
	UpsertID(ctx context.Context, id int64) (bool, error)
}

// RecordStore persists canonical records.
type RecordStore interface {
	Insert(ctx context.Context, rec *model.Record) error
}

// Refresher is the project directory's refresh primitive.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Pipeline drives ingestion: decode, resolve timestamp, extract message,
// upsert the owning project, persist. Every failure is isolated to the
// payload that caused it.
type Pipeline struct {
	projects  ProjectStore
	records   RecordStore
	directory Refresher
	validate  *validator.Validate
	log       zerolog.Logger
}

// NewPipeline wires a pipeline over the given stores and project directory.
func NewPipeline(projects ProjectStore, records RecordStore, directory Refresher, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		projects:  projects,
		records:   records,
		directory: directory,
		validate:  validator.New(),
		log:       log.With().Str("component", "ingest").Logger(),
	}
}

// Ingest consumes newline-delimited JSON payloads for one project, in arrival
// order. Payloads that fail to decode, validate, or persist are logged and
// skipped; the rest of the stream is still processed. Reading stops once the
// caller's context is cancelled.
func (p *Pipeline) Ingest(ctx context.Context, projectID int64, body io.Reader) {
	logger := p.log.With().
		Str("ingest_id", uuid.NewString()).
		Int64("project_id", projectID).
		Logger()

	reader := bufio.NewReaderSize(body, 64*1024)

	for {
		if ctx.Err() != nil {
			logger.Debug().Msg("caller gone, stopping ingest")
			return
		}
		line, err := readPayloadLine(reader)
		if errors.Is(err, errPayloadTooLarge) {
			logger.Warn().Msg("skipping oversized payload")
			continue
		}
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			p.ingestOne(ctx, logger, projectID, trimmed)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				logger.Error().Err(err).Msg("reading payload stream")
			}
			return
		}
	}
}

// readPayloadLine returns the next newline-delimited payload. A line longer
// than maxPayloadBytes is discarded through its terminating newline and
// reported as errPayloadTooLarge, so one oversized payload cannot take down
// the rest of the stream.
func readPayloadLine(r *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice('\n')
		line = append(line, chunk...)
		switch {
		case err == nil, errors.Is(err, io.EOF):
			return line, err
		case errors.Is(err, bufio.ErrBufferFull):
			if len(line) > maxPayloadBytes {
				if derr := discardLine(r); derr != nil && !errors.Is(derr, io.EOF) {
					return nil, derr
				}
				return nil, errPayloadTooLarge
			}
		default:
			return line, err
		}
	}
}

// discardLine consumes input through the next newline.
func discardLine(r *bufio.Reader) error {
	for {
		_, err := r.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return err
	}
}

func (p *Pipeline) ingestOne(ctx context.Context, logger zerolog.Logger, projectID int64, payload []byte) {
	var env model.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		logger.Warn().Err(err).Msg("skipping undecodable payload")
		return
	}
	if err := p.validate.Struct(&env); err != nil {
		logger.Warn().Err(err).Msg("skipping payload with missing required fields")
		return
	}

	ts, err := event.ResolveTimestamp(env.Timestamp)
	if err != nil {
		logger.Warn().
			Str("event_id", env.EventID).
			Str("timestamp", string(env.Timestamp)).
			Msg("skipping payload with unresolvable timestamp")
		return
	}

	rec := newRecord(projectID, &env, ts)

	// A payload that made it this far gets to finish its writes even if the
	// caller disconnects mid-stream; only reading further lines stops.
	storeCtx := context.WithoutCancel(ctx)

	created, err := p.projects.UpsertID(storeCtx, projectID)
	if err != nil {
		logger.Error().Err(err).Str("event_id", env.EventID).Msg("upserting project")
		return
	}

	if err := p.records.Insert(storeCtx, rec); err != nil {
		logger.Error().Err(err).Str("event_id", env.EventID).Msg("persisting record")
	}

	if created {
		if err := p.directory.Refresh(storeCtx); err != nil {
			logger.Error().Err(err).Msg("refreshing project directory")
		}
	}
}

// newRecord builds the canonical record for an envelope.
func newRecord(projectID int64, env *model.Envelope, ts int64) *model.Record {
	level := env.Level
	if level == "" {
		level = "error"
	}

	var unknown json.RawMessage
	if len(env.Unknown) > 0 {
		// Marshalling a map of RawMessage cannot fail.
		unknown, _ = json.Marshal(env.Unknown)
	}

	return &model.Record{
		ProjectID:   projectID,
		Timestamp:   ts,
		Message:     event.ExtractMessage(env),
		Level:       level,
		Environment: env.Environment,
		EventID:     env.EventID,
		Platform:    env.Platform,
		ServerName:  env.ServerName,
		SDK:         env.SDK,
		User:        orEmptyObject(env.User),
		Tags:        orEmptyObject(env.Tags),
		Contexts:    env.Contexts,
		Extra:       orEmptyObject(env.Extra),
		Breadcrumbs: orEmptyObject(env.Breadcrumbs),
		Exception:   env.Exception,
		Unknown:     unknown,
	}
}

func orEmptyObject(raw json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 {
		return emptyObject
	}
	return raw
}
