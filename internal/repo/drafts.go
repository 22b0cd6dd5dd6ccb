package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"launchpad/internal/domain"
)

// Drafts are keyed by owner (a user id, or "" before login) and role.

func (r Repo) SaveDraft(ctx context.Context, d domain.Draft) error {
	data, err := json.Marshal(d.Values)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, `INSERT INTO drafts(owner,role,values_json,updated_at) VALUES (?,?,?,?)
ON CONFLICT(owner,role) DO UPDATE SET values_json=excluded.values_json, updated_at=excluded.updated_at`,
		d.Owner, string(d.Role), string(data), d.UpdatedAt)
	return err
}

func (r Repo) GetDraft(ctx context.Context, owner string, role domain.Role) (domain.Draft, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT owner,role,values_json,updated_at FROM drafts WHERE owner=? AND role=?`, owner, string(role))
	d, err := scanDraft(row)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	return d, err
}

func (r Repo) ListDrafts(ctx context.Context, owner string) ([]domain.Draft, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT owner,role,values_json,updated_at FROM drafts WHERE owner=? ORDER BY updated_at DESC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

// DeleteDraft removes one draft; a missing draft is not an error.
func (r Repo) DeleteDraft(ctx context.Context, owner string, role domain.Role) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM drafts WHERE owner=? AND role=?`, owner, string(role))
	return err
}

func scanDraft(row scanner) (domain.Draft, error) {
	var d domain.Draft
	var role, data string
	if err := row.Scan(&d.Owner, &role, &data, &d.UpdatedAt); err != nil {
		return d, err
	}
	d.Role = domain.Role(role)
	if err := json.Unmarshal([]byte(data), &d.Values); err != nil {
		return d, fmt.Errorf("decode draft %s: %w", role, err)
	}
	return d, nil
}
