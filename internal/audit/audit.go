// internal/audit/audit.go

// Package audit persists the transition history of every subject to
// PostgreSQL so operators can inspect how a record got into its current
// state. Audit writes are best effort: callers log failures and move on.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hireflow/internal/common/logger"
)

var (
	ErrAuditWriteFailed = errors.New("AUDIT_WRITE_FAILED")
	ErrAuditQueryFailed = errors.New("AUDIT_QUERY_FAILED")
)

// Event is one recorded workflow transition.
type Event struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subjectId"`
	Stage     string    `json:"stage"`
	Outcome   string    `json:"outcome"`
	CreatedAt time.Time `json:"createdAt"`
}

type Recorder struct {
	db     *sql.DB
	logger logger.Logger
}

func NewRecorder(db *sql.DB, log logger.Logger) *Recorder {
	return &Recorder{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "audit"}),
	}
}

// RecordAdvance appends one transition to the workflow_events table.
func (r *Recorder) RecordAdvance(ctx context.Context, subjectID string, stage, outcome string) error {
	eventID := uuid.New().String()
	createdAt := time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO workflow_events (id, subject_id, stage, outcome, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		eventID, subjectID, stage, outcome, createdAt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuditWriteFailed, err)
	}

	r.logger.Debug("transition recorded", map[string]interface{}{
		"eventId":   eventID,
		"subjectId": subjectID,
		"stage":     stage,
		"outcome":   outcome,
	})
	return nil
}

// EventsForSubject returns the most recent transitions for one subject,
// newest first.
func (r *Recorder) EventsForSubject(ctx context.Context, subjectID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, subject_id, stage, outcome, created_at
		FROM workflow_events
		WHERE subject_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuditQueryFailed, err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.SubjectID, &e.Stage, &e.Outcome, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAuditQueryFailed, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuditQueryFailed, err)
	}
	return events, nil
}
