package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/GreonXpert/netreduction-engine/internal/apperr"
	"github.com/GreonXpert/netreduction-engine/internal/domain/project"
	"github.com/GreonXpert/netreduction-engine/internal/repository"
	"github.com/jmoiron/sqlx"
)

type projectStore struct{ db *sqlx.DB }

func (p projectStore) Save(pr *project.Project) error {
	payload, err := json.Marshal(pr)
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "marshal project payload")
	}

	activity := ""
	if pr.M3 != nil {
		activity = string(pr.M3.ProjectActivity)
	}

	err = retryIO(func() error {
		_, execErr := p.db.Exec(`
			INSERT INTO projects (client_id, project_id, methodology, name, category, scope, location, project_activity, is_deleted, payload, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
			ON CONFLICT (client_id, project_id) DO UPDATE SET
				methodology = EXCLUDED.methodology,
				name = EXCLUDED.name,
				category = EXCLUDED.category,
				scope = EXCLUDED.scope,
				location = EXCLUDED.location,
				project_activity = EXCLUDED.project_activity,
				is_deleted = EXCLUDED.is_deleted,
				payload = EXCLUDED.payload,
				updated_at = now()
		`, pr.ClientID, pr.ProjectID, pr.Methodology, pr.Name, pr.Category, pr.Scope, pr.LocationKey(), activity, pr.IsDeleted, payload)
		return execErr
	})
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "save project %s/%s", pr.ClientID, pr.ProjectID)
	}
	return nil
}

func (p projectStore) Get(clientID, projectID string) (*project.Project, error) {
	var payload []byte
	var isDeleted bool
	err := p.db.QueryRow(`
		SELECT payload, is_deleted FROM projects WHERE client_id = $1 AND project_id = $2
	`, clientID, projectID).Scan(&payload, &isDeleted)
	if errors.Is(err, sql.ErrNoRows) || isDeleted {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "get project %s/%s", clientID, projectID)
	}

	var pr project.Project
	if err := json.Unmarshal(payload, &pr); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "unmarshal project payload")
	}
	return &pr, nil
}

func (p projectStore) List(clientID string) ([]*project.Project, error) {
	rows, err := p.db.Query(`
		SELECT payload FROM projects WHERE client_id = $1 AND is_deleted = FALSE ORDER BY project_id
	`, clientID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "list projects for %s", clientID)
	}
	defer rows.Close()

	var out []*project.Project
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, apperr.Wrap(apperr.Internal, err, "scan project row")
		}
		var pr project.Project
		if err := json.Unmarshal(payload, &pr); err != nil {
			return nil, apperr.Wrap(apperr.Internal, err, "unmarshal project payload")
		}
		out = append(out, &pr)
	}
	return out, rows.Err()
}

func (p projectStore) Delete(clientID, projectID string) error {
	var n int64
	err := retryIO(func() error {
		res, execErr := p.db.Exec(`
			UPDATE projects SET is_deleted = TRUE, updated_at = now() WHERE client_id = $1 AND project_id = $2
		`, clientID, projectID)
		if execErr != nil {
			return execErr
		}
		n, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "delete project %s/%s", clientID, projectID)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (p projectStore) NextSequence(clientID string) (int, error) {
	var next int
	err := p.db.QueryRow(`
		INSERT INTO project_sequences (client_id, next_seq) VALUES ($1, 2)
		ON CONFLICT (client_id) DO UPDATE SET next_seq = project_sequences.next_seq + 1
		RETURNING next_seq - 1
	`, clientID).Scan(&next)
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, err, "assign sequence for client %s", clientID)
	}
	return next, nil
}
