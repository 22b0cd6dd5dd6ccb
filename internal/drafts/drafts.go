// Package drafts keeps unfinished profile forms in the workspace database so
// an interrupted session can be resumed.
package drafts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"launchpad/internal/domain"
	"launchpad/internal/form"
	"launchpad/internal/forms"
	"launchpad/internal/repo"
	"launchpad/internal/schema"
)

// Store saves one draft per role for Owner, the id of the logged in user
// ("" when nobody is).
type Store struct {
	Repo  repo.Repo
	Log   *zap.Logger
	Now   func() time.Time
	Owner string
}

func New(r repo.Repo, log *zap.Logger) Store {
	if log == nil {
		log = zap.NewNop()
	}
	return Store{Repo: r, Log: log, Now: time.Now}
}

// For returns the store of another owner.
func (s Store) For(owner string) Store {
	s.Owner = owner
	return s
}

func (s Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Save stores the current values of f as the draft of role.
func (s Store) Save(ctx context.Context, role domain.Role, f *form.Form) error {
	v, err := forms.ForRole(role)
	if err != nil {
		return err
	}
	if f.Schema() != v.Schema() {
		return fmt.Errorf("form %s does not belong to role %s", f.Schema().Name, role)
	}
	d := domain.Draft{
		Owner:     s.Owner,
		Role:      role,
		Values:    f.Snapshot(),
		UpdatedAt: s.now().UTC().Format(time.RFC3339),
	}
	if err := s.Repo.SaveDraft(ctx, d); err != nil {
		return fmt.Errorf("save %s draft: %w", role, err)
	}
	s.Log.Debug("draft saved", zap.String("role", string(role)))
	return nil
}

// Load rebuilds the saved form of role. ok is false when no draft exists.
func (s Store) Load(ctx context.Context, role domain.Role) (f *form.Form, ok bool, err error) {
	v, err := forms.ForRole(role)
	if err != nil {
		return nil, false, err
	}
	d, err := s.Repo.GetDraft(ctx, s.Owner, role)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	f, err = form.Restore(v.Schema(), schema.Values(d.Values))
	if err != nil {
		return nil, false, fmt.Errorf("restore %s draft: %w", role, err)
	}
	return f, true, nil
}

// LoadOrNew returns the saved form of role or a fresh one.
func (s Store) LoadOrNew(ctx context.Context, role domain.Role) (*form.Form, error) {
	f, ok, err := s.Load(ctx, role)
	if err != nil {
		return nil, err
	}
	if ok {
		return f, nil
	}
	v, err := forms.ForRole(role)
	if err != nil {
		return nil, err
	}
	return form.New(v.Schema()), nil
}

func (s Store) List(ctx context.Context) ([]domain.Draft, error) {
	return s.Repo.ListDrafts(ctx, s.Owner)
}

// Discard drops the draft of role. It satisfies submit.Drafts.
func (s Store) Discard(ctx context.Context, role domain.Role) error {
	if err := s.Repo.DeleteDraft(ctx, s.Owner, role); err != nil {
		return err
	}
	s.Log.Debug("draft discarded", zap.String("role", string(role)))
	return nil
}
