package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"launchpad/internal/session"
)

// SaveSession replaces the stored client session.
func (r Repo) SaveSession(ctx context.Context, s session.Session) error {
	user, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("marshal session user: %w", err)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	_, err = r.DB.ExecContext(ctx, `INSERT INTO client_session(id,token,user_json,created_at) VALUES (1,?,?,?)
ON CONFLICT(id) DO UPDATE SET token=excluded.token, user_json=excluded.user_json, created_at=excluded.created_at`,
		s.Token, string(user), s.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

// LoadSession returns session.ErrNoSession when nobody is logged in.
func (r Repo) LoadSession(ctx context.Context) (session.Session, error) {
	var s session.Session
	var user, created string
	err := r.DB.QueryRowContext(ctx, `SELECT token,user_json,created_at FROM client_session WHERE id=1`).Scan(&s.Token, &user, &created)
	if err == sql.ErrNoRows {
		return session.Session{}, session.ErrNoSession
	}
	if err != nil {
		return session.Session{}, err
	}
	if err := json.Unmarshal([]byte(user), &s.User); err != nil {
		return session.Session{}, fmt.Errorf("decode session user: %w", err)
	}
	s.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return s, nil
}

func (r Repo) ClearSession(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM client_session`)
	return err
}

var _ session.Store = Repo{}
