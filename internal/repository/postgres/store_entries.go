package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/GreonXpert/netreduction-engine/internal/apperr"
	"github.com/GreonXpert/netreduction-engine/internal/domain/entry"
	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
	"github.com/GreonXpert/netreduction-engine/internal/repository"
	"github.com/jmoiron/sqlx"
)

type entryStore struct{ db *sqlx.DB }

type entryPayload struct {
	M1            *entry.M1Payload    `json:"m1,omitempty"`
	M2            *entry.M2Payload    `json:"m2,omitempty"`
	M3            *entry.M3Payload    `json:"m3,omitempty"`
	SourceDetails entry.SourceDetails `json:"sourceDetails"`
}

func (e entryStore) Append(en *entry.Entry) error {
	payload, err := json.Marshal(entryPayload{M1: en.M1, M2: en.M2, M3: en.M3, SourceDetails: en.SourceDetails})
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "marshal entry payload")
	}

	err = retryIO(func() error {
		_, execErr := e.db.Exec(`
			INSERT INTO net_reduction_entries
				(id, client_id, project_id, methodology, input_type, original_input_type, source_details,
				 entry_date, entry_time, timestamp, payload, net_reduction,
				 cumulative_net_reduction, high_net_reduction, low_net_reduction, is_deleted, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, '{}'::jsonb, $7, $8, $9, $10, $11, $12, $13, $14, FALSE, now())
		`, en.ID, en.ClientID, en.ProjectID, en.Methodology, en.InputType, "", en.Date, en.Time, en.Timestamp, payload,
			en.NetReduction, en.CumulativeNetReduction, en.HighNetReduction, en.LowNetReduction)
		return execErr
	})
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "append entry %s", en.ID)
	}
	return nil
}

func (e entryStore) scanRow(scan func(dest ...any) error) (*entry.Entry, error) {
	var (
		en          entry.Entry
		methodology string
		inputType   string
		payload     []byte
	)
	if err := scan(&en.ID, &en.ClientID, &en.ProjectID, &methodology, &inputType, &en.Date, &en.Time, &en.Timestamp,
		&payload, &en.NetReduction, &en.CumulativeNetReduction, &en.HighNetReduction, &en.LowNetReduction); err != nil {
		return nil, err
	}
	en.Methodology = project.Methodology(methodology)
	en.InputType = entry.InputType(inputType)

	var p entryPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, apperr.Wrap(apperr.Internal, err, "unmarshal entry payload")
		}
	}
	en.M1, en.M2, en.M3, en.SourceDetails = p.M1, p.M2, p.M3, p.SourceDetails
	return &en, nil
}

const entryColumns = `id, client_id, project_id, methodology, input_type, entry_date, entry_time, timestamp,
	payload, net_reduction, cumulative_net_reduction, high_net_reduction, low_net_reduction`

func (e entryStore) Get(id string) (*entry.Entry, error) {
	row := e.db.QueryRow(`SELECT `+entryColumns+` FROM net_reduction_entries WHERE id = $1 AND is_deleted = FALSE`, id)
	en, err := e.scanRow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "get entry %s", id)
	}
	return en, nil
}

func (e entryStore) Update(en *entry.Entry) error {
	payload, err := json.Marshal(entryPayload{M1: en.M1, M2: en.M2, M3: en.M3, SourceDetails: en.SourceDetails})
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "marshal entry payload")
	}
	var n int64
	err = retryIO(func() error {
		res, execErr := e.db.Exec(`
			UPDATE net_reduction_entries SET
				entry_date = $2, entry_time = $3, timestamp = $4, payload = $5, net_reduction = $6, updated_at = now()
			WHERE id = $1 AND is_deleted = FALSE
		`, en.ID, en.Date, en.Time, en.Timestamp, payload, en.NetReduction)
		if execErr != nil {
			return execErr
		}
		n, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "update entry %s", en.ID)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (e entryStore) Delete(id string) error {
	var n int64
	err := retryIO(func() error {
		res, execErr := e.db.Exec(`UPDATE net_reduction_entries SET is_deleted = TRUE, updated_at = now() WHERE id = $1`, id)
		if execErr != nil {
			return execErr
		}
		n, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "delete entry %s", id)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (e entryStore) ListSeries(key entry.SeriesKey) ([]*entry.Entry, error) {
	rows, err := e.db.Query(`
		SELECT `+entryColumns+` FROM net_reduction_entries
		WHERE client_id = $1 AND project_id = $2 AND methodology = $3 AND is_deleted = FALSE
		ORDER BY timestamp ASC, id ASC
	`, key.ClientID, key.ProjectID, key.Methodology)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "list series %+v", key)
	}
	defer rows.Close()

	var out []*entry.Entry
	for rows.Next() {
		en, err := e.scanRow(rows.Scan)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, err, "scan series row")
		}
		out = append(out, en)
	}
	return out, rows.Err()
}

// BulkUpdateDerived writes every row's recomputed cumulative/high/low in a
// single transaction, matching the Series Recomputer's "walk once, bulk
// write" contract.
func (e entryStore) BulkUpdateDerived(updates []repository.DerivedUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	err := retryIO(func() error {
		tx, err := e.db.Beginx()
		if err != nil {
			return apperr.Wrap(apperr.Internal, err, "begin bulk derived update")
		}
		defer tx.Rollback()

		stmt, err := tx.Prepare(`
			UPDATE net_reduction_entries SET cumulative_net_reduction = $2, high_net_reduction = $3, low_net_reduction = $4
			WHERE id = $1
		`)
		if err != nil {
			return apperr.Wrap(apperr.Internal, err, "prepare bulk derived update")
		}
		defer stmt.Close()

		for _, u := range updates {
			if _, err := stmt.Exec(u.EntryID, u.Cumulative, u.High, u.Low); err != nil {
				return apperr.Wrap(apperr.Internal, err, "update derived columns for entry %s", u.EntryID)
			}
		}
		return tx.Commit()
	})
	return err
}

func (e entryStore) ListFiltered(filter repository.EntryFilter) ([]*entry.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM net_reduction_entries WHERE is_deleted = FALSE`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if filter.ClientID != "" {
		query += ` AND client_id = ` + arg(filter.ClientID)
	}
	if filter.ProjectID != "" {
		query += ` AND project_id = ` + arg(filter.ProjectID)
	}
	if filter.Methodology != "" {
		query += ` AND methodology = ` + arg(filter.Methodology)
	}
	if filter.From != nil {
		query += ` AND timestamp >= ` + arg(*filter.From)
	}
	if filter.To != nil {
		query += ` AND timestamp <= ` + arg(*filter.To)
	}
	query += ` ORDER BY timestamp ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := e.db.Query(query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "list filtered entries")
	}
	defer rows.Close()

	var out []*entry.Entry
	for rows.Next() {
		en, err := e.scanRow(rows.Scan)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, err, "scan filtered row")
		}
		out = append(out, en)
	}
	return out, rows.Err()
}

func (e entryStore) ListForClientWindow(clientID string, from, to time.Time) ([]*entry.Entry, error) {
	rows, err := e.db.Query(`
		SELECT `+entryColumns+` FROM net_reduction_entries
		WHERE client_id = $1 AND timestamp >= $2 AND timestamp <= $3 AND is_deleted = FALSE
		ORDER BY timestamp ASC
	`, clientID, from, to)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "list entries for client window")
	}
	defer rows.Close()

	var out []*entry.Entry
	for rows.Next() {
		en, err := e.scanRow(rows.Scan)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, err, "scan client-window row")
		}
		out = append(out, en)
	}
	return out, rows.Err()
}

func placeholder(n int) string {
	// lib/pq uses $1, $2, ... positional placeholders.
	return "$" + strconv.Itoa(n)
}
