package repo

import (
	"context"
	"database/sql"
)

func (r Repo) RevokeTokenTx(ctx context.Context, tx *sql.Tx, jti, expiresAt string) error {
	_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO revoked_tokens(jti,expires_at) VALUES (?,?)`, jti, expiresAt)
	return err
}

func (r Repo) TokenRevoked(ctx context.Context, jti string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT 1 FROM revoked_tokens WHERE jti=? LIMIT 1`, jti).Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// PruneRevokedTokens drops revocations whose token has expired anyway.
func (r Repo) PruneRevokedTokens(ctx context.Context, now string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at<?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
