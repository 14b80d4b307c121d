package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// uniqueViolation is the Postgres error code raised when two writers append
// the same (stream_id, version).
const uniqueViolation = "23505"

type eventStore struct {
	db *sql.DB
}

// NewEventStore creates an EventStore appending to the action_journal table.
func NewEventStore(db *sql.DB) repository.EventStore {
	return &eventStore{db: db}
}

func (s *eventStore) SaveEvents(ctx context.Context, streamID string, expectedVersion int, actions []entity.Action) error {
	if len(actions) == 0 {
		return nil
	}

	rows := make([][]byte, len(actions))
	for i, a := range actions {
		payload, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("failed to marshal action %s: %w", a.ActionType(), err)
		}
		rows[i] = payload
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var head int
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM action_journal WHERE stream_id = $1", streamID,
	).Scan(&head); err != nil {
		return fmt.Errorf("failed to read head of %s: %w", streamID, err)
	}
	if expectedVersion != repository.AnyVersion && head != expectedVersion {
		return fmt.Errorf("%w: %s is at version %d, expected %d", repository.ErrConcurrency, streamID, head, expectedVersion)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("action_journal", "id", "stream_id", "version", "action_type", "payload", "created_at"))
	if err != nil {
		return fmt.Errorf("failed to prepare journal copy: %w", err)
	}
	now := time.Now().UTC()
	for i, a := range actions {
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), streamID, head+i+1, a.ActionType(), string(rows[i]), now); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to append %s: %w", a.ActionType(), err)
		}
	}
	// the buffered rows are written by the final empty Exec
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return journalError(streamID, err)
	}
	if err := stmt.Close(); err != nil {
		return journalError(streamID, err)
	}

	if err := tx.Commit(); err != nil {
		return journalError(streamID, err)
	}
	return nil
}

func journalError(streamID string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: concurrent append to %s", repository.ErrConcurrency, streamID)
	}
	return fmt.Errorf("failed to append to %s: %w", streamID, err)
}

func (s *eventStore) LoadEvents(ctx context.Context, streamID string) ([]entity.ActionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, stream_id, version, action_type, payload, created_at
		FROM action_journal
		WHERE stream_id = $1
		ORDER BY version`, streamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load journal %s: %w", streamID, err)
	}
	defer rows.Close()

	var records []entity.ActionRecord
	for rows.Next() {
		var rec entity.ActionRecord
		if err := rows.Scan(&rec.ID, &rec.StreamID, &rec.Version, &rec.ActionType, &rec.Payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
