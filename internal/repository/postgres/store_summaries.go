package postgres

import (
	"database/sql"
	"errors"

	"github.com/GreonXpert/netreduction-engine/internal/apperr"
	"github.com/jmoiron/sqlx"
)

type summaryStore struct{ db *sqlx.DB }

func (s summaryStore) UpsertPeriodSummary(clientID, period, windowKey string, summaryJSON []byte) error {
	err := retryIO(func() error {
		_, execErr := s.db.Exec(`
			INSERT INTO period_summaries (client_id, period, window_key, summary, has_summary, calculated_at)
			VALUES ($1, $2, $3, $4, TRUE, now())
			ON CONFLICT (client_id, period, window_key) DO UPDATE SET
				summary = EXCLUDED.summary, has_summary = TRUE, calculated_at = now()
		`, clientID, period, windowKey, summaryJSON)
		return execErr
	})
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "upsert period summary %s/%s/%s", clientID, period, windowKey)
	}
	return nil
}

func (s summaryStore) GetPeriodSummary(clientID, period, windowKey string) ([]byte, bool, error) {
	var summary []byte
	err := s.db.QueryRow(`
		SELECT summary FROM period_summaries WHERE client_id = $1 AND period = $2 AND window_key = $3
	`, clientID, period, windowKey).Scan(&summary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperr.Wrap(apperr.Internal, err, "get period summary %s/%s/%s", clientID, period, windowKey)
	}
	return summary, true, nil
}

func (s summaryStore) UpsertClientSummary(clientID string, summaryJSON []byte) error {
	err := retryIO(func() error {
		_, execErr := s.db.Exec(`
			INSERT INTO client_summaries (client_id, summary, updated_at) VALUES ($1, $2, now())
			ON CONFLICT (client_id) DO UPDATE SET summary = EXCLUDED.summary, updated_at = now()
		`, clientID, summaryJSON)
		return execErr
	})
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "upsert client summary %s", clientID)
	}
	return nil
}

func (s summaryStore) GetClientSummary(clientID string) ([]byte, bool, error) {
	var summary []byte
	err := s.db.QueryRow(`SELECT summary FROM client_summaries WHERE client_id = $1`, clientID).Scan(&summary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperr.Wrap(apperr.Internal, err, "get client summary %s", clientID)
	}
	return summary, true, nil
}
