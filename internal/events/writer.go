// Package events records account and profile activity in the audit log.
// The webhook dispatcher and `lp log tail` read the same table.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

const (
	UserRegistered = "user.registered"
	UserVerified   = "user.verified"
	OTPSent        = "otp.sent"
	ProfileCreated = "profile.created"
	TokenRevoked   = "token.revoked"
)

const (
	KindUser    = "user"
	KindProfile = "profile"
)

var known = []string{UserRegistered, UserVerified, OTPSent, ProfileCreated, TokenRevoked}

// Types lists every event type the server emits.
func Types() []string { return slices.Clone(known) }

func Known(t string) bool { return slices.Contains(known, t) }

type Payload map[string]any

// Record is one audit entry. Actor defaults to EntityID.
type Record struct {
	Type     string
	Kind     string
	EntityID string
	Actor    string
	Payload  Payload
}

// ForUser builds a record about the user acting on their own account.
func ForUser(typ, userID string, p Payload) Record {
	return Record{Type: typ, Kind: KindUser, EntityID: userID, Payload: p}
}

// Writer appends records inside the caller's transaction so an event is
// stored only when the change it describes commits.
type Writer struct {
	Now func() time.Time
}

func (w Writer) Append(ctx context.Context, tx *sql.Tx, rec Record) error {
	if !Known(rec.Type) {
		return fmt.Errorf("unknown event type %q", rec.Type)
	}
	if rec.Kind == "" {
		return fmt.Errorf("event %s: entity kind required", rec.Type)
	}
	actor := rec.Actor
	if actor == "" {
		actor = rec.EntityID
	}
	body := rec.Payload
	if body == nil {
		body = Payload{}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("event %s payload: %w", rec.Type, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO events(ts,type,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?)`,
		w.stamp(), rec.Type, rec.Kind, nullString(rec.EntityID), actor, string(data))
	return err
}

func (w Writer) stamp() string {
	t := time.Now()
	if w.Now != nil {
		t = w.Now()
	}
	return t.UTC().Format(time.RFC3339)
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
