// Package audit keeps an append-only log of entity changes in Postgres.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	EventUserSignedUp       = "USER_SIGNED_UP"
	EventUserLoggedIn       = "USER_LOGGED_IN"
	EventUserLinkedOAuth    = "USER_OAUTH_CREATED"
	EventUserCreated        = "USER_CREATED"
	EventUserUpdated        = "USER_UPDATED"
	EventUserDeleted        = "USER_DELETED"
	EventDoctorCreated      = "DOCTOR_CREATED"
	EventDoctorUpdated      = "DOCTOR_UPDATED"
	EventDoctorDeleted      = "DOCTOR_DELETED"
	EventPatientCreated     = "PATIENT_CREATED"
	EventPatientUpdated     = "PATIENT_UPDATED"
	EventPatientDeleted     = "PATIENT_DELETED"
	EventAppointmentCreated = "APPOINTMENT_CREATED"
	EventAppointmentUpdated = "APPOINTMENT_UPDATED"
	EventAppointmentDeleted = "APPOINTMENT_DELETED"
)

type Event struct {
	Type      string
	EntityID  string
	Payload   map[string]any
	CreatedAt time.Time
}

// Recorder never fails the caller; errors are logged.
type Recorder interface {
	Record(ctx context.Context, ev Event)
}

type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Event) {}

const schema = `
CREATE TABLE IF NOT EXISTS event_logs (
	id         BIGSERIAL PRIMARY KEY,
	event_type TEXT        NOT NULL,
	entity_id  TEXT,
	payload    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS event_logs_entity_idx ON event_logs (entity_id);
`

type PgRecorder struct {
	pool *pgxpool.Pool
}

func NewPgRecorder(pool *pgxpool.Pool) *PgRecorder {
	return &PgRecorder{pool: pool}
}

func (r *PgRecorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create event_logs: %w", err)
	}
	return nil
}

func (r *PgRecorder) Record(ctx context.Context, ev Event) {
	log := zerolog.Ctx(ctx)

	data, err := json.Marshal(ev.Payload)
	if err != nil {
		log.Warn().Err(err).Str("event", ev.Type).Msg("marshal event payload")
		data = nil
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, entity_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.Type, nullableString(ev.EntityID), data, nullableTime(ev.CreatedAt))
	if err != nil {
		log.Error().Err(err).Str("event", ev.Type).Str("entity_id", ev.EntityID).Msg("insert event log")
	}
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
