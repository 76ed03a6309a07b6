package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/GreonXpert/netreduction-engine/internal/apperr"
	"github.com/GreonXpert/netreduction-engine/internal/domain/formula"
	"github.com/GreonXpert/netreduction-engine/internal/repository"
	"github.com/jmoiron/sqlx"
)

type formulaStore struct{ db *sqlx.DB }

func (f formulaStore) GetFormula(id string) (*formula.Formula, error) {
	var (
		clientID, name, expression, status string
		version                            int
		variablesJSON                      []byte
	)
	err := f.db.QueryRow(`
		SELECT client_id, version, name, expression, status, variables
		FROM formulas WHERE id = $1 ORDER BY version DESC LIMIT 1
	`, id).Scan(&clientID, &version, &name, &expression, &status, &variablesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "get formula %s", id)
	}

	var variables []formula.Variable
	if len(variablesJSON) > 0 {
		if err := json.Unmarshal(variablesJSON, &variables); err != nil {
			return nil, apperr.Wrap(apperr.Internal, err, "unmarshal formula variables")
		}
	}

	return &formula.Formula{
		ID: id, ClientID: clientID, Name: name, Expression: expression,
		Variables: variables, Version: version, Status: formula.Status(status),
	}, nil
}

func (f formulaStore) Save(fo *formula.Formula) error {
	variablesJSON, err := json.Marshal(fo.Variables)
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "marshal formula variables")
	}
	err = retryIO(func() error {
		_, execErr := f.db.Exec(`
			INSERT INTO formulas (id, client_id, version, name, expression, status, variables)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id, version) DO UPDATE SET
				client_id = EXCLUDED.client_id, name = EXCLUDED.name,
				expression = EXCLUDED.expression, status = EXCLUDED.status, variables = EXCLUDED.variables
		`, fo.ID, fo.ClientID, fo.Version, fo.Name, fo.Expression, fo.Status, variablesJSON)
		return execErr
	})
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "save formula %s v%d", fo.ID, fo.Version)
	}
	return nil
}

func (f formulaStore) List(clientID string) ([]*formula.Formula, error) {
	rows, err := f.db.Query(`
		SELECT id, client_id, version, name, expression, status, variables
		FROM formulas WHERE client_id = $1 OR client_id = '' ORDER BY id, version DESC
	`, clientID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "list formulas for %s", clientID)
	}
	defer rows.Close()

	var out []*formula.Formula
	for rows.Next() {
		var (
			id, cID, name, expression, status string
			version                           int
			variablesJSON                     []byte
		)
		if err := rows.Scan(&id, &cID, &version, &name, &expression, &status, &variablesJSON); err != nil {
			return nil, apperr.Wrap(apperr.Internal, err, "scan formula row")
		}
		var variables []formula.Variable
		if len(variablesJSON) > 0 {
			_ = json.Unmarshal(variablesJSON, &variables)
		}
		out = append(out, &formula.Formula{
			ID: id, ClientID: cID, Name: name, Expression: expression,
			Variables: variables, Version: version, Status: formula.Status(status),
		})
	}
	return out, rows.Err()
}
