package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"launchpad/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// UserRecord is a stored account with its credential hash.
type UserRecord struct {
	domain.User
	PasswordHash string
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

const userColumns = `id,first_name,last_name,email,COALESCE(phone,''),password_hash,role,is_verified,is_active,created_at,updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (UserRecord, error) {
	var u UserRecord
	var verified int
	var role string
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Phone, &u.PasswordHash, &role, &verified, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	u.Role = domain.Role(role)
	u.IsVerified = verified == 1
	return u, err
}

// InsertUserTx stores a new account. A taken email yields ErrConflict.
func (r Repo) InsertUserTx(ctx context.Context, tx *sql.Tx, u UserRecord) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO users(id,first_name,last_name,email,phone,password_hash,role,is_verified,is_active,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		u.ID, u.FirstName, u.LastName, normalizeEmail(u.Email), nullable(u.Phone), u.PasswordHash, string(u.Role), boolInt(u.IsVerified), u.IsActive, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r Repo) GetUser(ctx context.Context, id string) (UserRecord, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
}

func (r Repo) GetUserByEmail(ctx context.Context, email string) (UserRecord, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=?`, normalizeEmail(email)))
}

func (r Repo) MarkVerifiedTx(ctx context.Context, tx *sql.Tx, email, now string) error {
	res, err := tx.ExecContext(ctx, `UPDATE users SET is_verified=1, updated_at=? WHERE email=?`, now, normalizeEmail(email))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
