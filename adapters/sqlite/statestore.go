package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/quotawatch/quotawatch/domain/threshold"
	"github.com/quotawatch/quotawatch/domain/usage"
	"github.com/quotawatch/quotawatch/ports"
)

// StateStore implements ports.StateStore using SQLite. State rows hold
// JSON payloads and are read-then-replaced, never partially updated, so a
// crash between read and write loses at most one evaluation.
type StateStore struct {
	db *DB
}

// NewStateStore creates a new state store.
func NewStateStore(db *DB) *StateStore {
	return &StateStore{db: db}
}

// LoadThreshold returns the stored state for a key. Absent or corrupt
// rows are reported as nil, never as a fatal error.
func (s *StateStore) LoadThreshold(ctx context.Context, key string) (*threshold.State, error) {
	var payload string
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT payload FROM threshold_state WHERE key = ?`, key,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var st threshold.State
	if err := json.Unmarshal([]byte(payload), &st); err != nil {
		// Corrupt state resets to baseline.
		return nil, nil
	}
	return &st, nil
}

// SaveThreshold replaces the stored state for a key wholesale.
func (s *StateStore) SaveThreshold(ctx context.Context, key string, st threshold.State) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO threshold_state (key, payload, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			updated_at = CURRENT_TIMESTAMP`,
		key, string(payload),
	)
	return err
}

// LoadViewState returns the last persisted view state, or nil when absent
// or unreadable.
func (s *StateStore) LoadViewState(ctx context.Context) (*usage.ViewState, error) {
	var payload string
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT payload FROM view_state WHERE id = 1`,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var vs usage.ViewState
	if err := json.Unmarshal([]byte(payload), &vs); err != nil {
		return nil, nil
	}
	return &vs, nil
}

// SaveViewState replaces the persisted view state.
func (s *StateStore) SaveViewState(ctx context.Context, vs usage.ViewState) error {
	payload, err := json.Marshal(vs)
	if err != nil {
		return err
	}
	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO view_state (id, payload, updated_at)
		VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = CURRENT_TIMESTAMP`,
		string(payload),
	)
	return err
}

// Ensure interface compliance.
var _ ports.StateStore = (*StateStore)(nil)
