package repo

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"strings"
)

// OTPRecord is the pending one-time password of an email.
type OTPRecord struct {
	Email     string
	CodeHash  string
	Attempts  int
	SentAt    string
	ExpiresAt string
}

// HashCode returns a stable SHA-256 hex digest for an OTP code.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(code)))
	return hex.EncodeToString(sum[:])
}

// UpsertOTPTx replaces any pending code for the email and resets attempts.
func (r Repo) UpsertOTPTx(ctx context.Context, tx *sql.Tx, o OTPRecord) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO otps(email,code_hash,attempts,sent_at,expires_at) VALUES (?,?,0,?,?)
ON CONFLICT(email) DO UPDATE SET code_hash=excluded.code_hash, attempts=0, sent_at=excluded.sent_at, expires_at=excluded.expires_at`,
		normalizeEmail(o.Email), o.CodeHash, o.SentAt, o.ExpiresAt)
	return err
}

func (r Repo) GetOTPTx(ctx context.Context, tx *sql.Tx, email string) (OTPRecord, error) {
	row := tx.QueryRowContext(ctx, `SELECT email,code_hash,attempts,sent_at,expires_at FROM otps WHERE email=?`, normalizeEmail(email))
	var o OTPRecord
	err := row.Scan(&o.Email, &o.CodeHash, &o.Attempts, &o.SentAt, &o.ExpiresAt)
	if err == sql.ErrNoRows {
		return o, ErrNotFound
	}
	return o, err
}

func (r Repo) GetOTP(ctx context.Context, email string) (OTPRecord, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT email,code_hash,attempts,sent_at,expires_at FROM otps WHERE email=?`, normalizeEmail(email))
	var o OTPRecord
	err := row.Scan(&o.Email, &o.CodeHash, &o.Attempts, &o.SentAt, &o.ExpiresAt)
	if err == sql.ErrNoRows {
		return o, ErrNotFound
	}
	return o, err
}

func (r Repo) IncrementOTPAttemptsTx(ctx context.Context, tx *sql.Tx, email string) error {
	_, err := tx.ExecContext(ctx, `UPDATE otps SET attempts=attempts+1 WHERE email=?`, normalizeEmail(email))
	return err
}

func (r Repo) DeleteOTPTx(ctx context.Context, tx *sql.Tx, email string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM otps WHERE email=?`, normalizeEmail(email))
	return err
}
