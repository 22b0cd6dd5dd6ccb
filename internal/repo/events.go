package repo

import (
	"context"
	"database/sql"
	"strings"

	"launchpad/internal/domain"
)

// EventFilter narrows LatestEvents. Zero fields match everything.
type EventFilter struct {
	Type       string
	TypePrefix string // e.g. "user." for every account event
	EntityKind string
	EntityID   string
	Limit      int
}

func (f EventFilter) where() (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		conds = append(conds, cond)
		args = append(args, v)
	}
	if f.Type != "" {
		add("type = ?", f.Type)
	}
	if f.TypePrefix != "" {
		add("substr(type, 1, length(?)) = ?", f.TypePrefix)
		args = append(args, f.TypePrefix)
	}
	if f.EntityKind != "" {
		add("entity_kind = ?", f.EntityKind)
	}
	if f.EntityID != "" {
		add("entity_id = ?", f.EntityID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

const selectEvents = `SELECT id, ts, type, entity_kind, entity_id, actor_id, payload_json FROM events`

// LatestEvents returns the newest matching events, newest first.
func (r Repo) LatestEvents(ctx context.Context, f EventFilter) ([]domain.Event, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	where, args := f.where()
	return r.scanEvents(ctx, selectEvents+where+` ORDER BY id DESC LIMIT ?`, append(args, limit)...)
}

// EventsAfter pages forward from cursor, oldest first.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.scanEvents(ctx, selectEvents+` WHERE id > ? ORDER BY id ASC LIMIT ?`, cursor, limit)
}

// LatestEventID is the cursor a new reader starts from; 0 on an empty log.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	var id sql.NullInt64
	if err := r.DB.QueryRowContext(ctx, `SELECT MAX(id) FROM events`).Scan(&id); err != nil {
		return 0, err
	}
	return id.Int64, nil
}

func (r Repo) scanEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.Event{}
	for rows.Next() {
		var (
			evt      domain.Event
			entityID sql.NullString
		)
		if err := rows.Scan(&evt.ID, &evt.TS, &evt.Type, &evt.EntityKind, &entityID, &evt.ActorID, &evt.Payload); err != nil {
			return nil, err
		}
		evt.EntityID = entityID.String
		out = append(out, evt)
	}
	return out, rows.Err()
}
