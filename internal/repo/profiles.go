package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"launchpad/internal/domain"
)

// ProfileRecord is a stored role profile. Payload is the JSON document the
// user submitted.
type ProfileRecord struct {
	ID        string
	UserID    string
	Role      domain.Role
	Payload   json.RawMessage
	CreatedAt string
}

type ProfileFilters struct {
	Role   domain.Role
	UserID string
	Limit  int
	Offset int
}

// InsertProfileTx stores a profile. A user holds at most one profile per role;
// a second one yields ErrConflict.
func (r Repo) InsertProfileTx(ctx context.Context, tx *sql.Tx, p ProfileRecord) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO profiles(user_id,role,id,payload_json,created_at) VALUES (?,?,?,?,?)`,
		p.UserID, string(p.Role), p.ID, string(p.Payload), p.CreatedAt)
	if isUniqueViolation(err) || (err != nil && strings.Contains(err.Error(), "PRIMARY KEY")) {
		return ErrConflict
	}
	return err
}

func (r Repo) GetProfile(ctx context.Context, userID string, role domain.Role) (ProfileRecord, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT id,user_id,role,payload_json,created_at FROM profiles WHERE user_id=? AND role=?`, userID, string(role))
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

// ListProfiles returns profiles newest first.
func (r Repo) ListProfiles(ctx context.Context, f ProfileFilters) ([]ProfileRecord, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.Role != "" {
		clauses = append(clauses, "role=?")
		args = append(args, string(f.Role))
	}
	if f.UserID != "" {
		clauses = append(clauses, "user_id=?")
		args = append(args, f.UserID)
	}
	if f.Limit <= 0 {
		f.Limit = -1
	}
	query := fmt.Sprintf(`SELECT id,user_id,role,payload_json,created_at FROM profiles WHERE %s ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		strings.Join(clauses, " AND "))
	args = append(args, f.Limit, f.Offset)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []ProfileRecord
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func scanProfile(row scanner) (ProfileRecord, error) {
	var p ProfileRecord
	var role, payload string
	if err := row.Scan(&p.ID, &p.UserID, &role, &payload, &p.CreatedAt); err != nil {
		return p, err
	}
	p.Role = domain.Role(role)
	p.Payload = json.RawMessage(payload)
	return p, nil
}
