package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"mess-o-midi-backend/internal/apperr"
	"mess-o-midi-backend/internal/billing"
	"mess-o-midi-backend/internal/database"
	"mess-o-midi-backend/internal/models"
)

// Users persists accounts keyed by their Google subject.
type Users struct {
	store *database.Store
	now   func() time.Time
}

func NewUsers(store *database.Store) *Users {
	return &Users{store: store, now: time.Now}
}

func (u *Users) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := u.store.FetchOne(ctx, &user, `SELECT * FROM users WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// UpsertGoogleUser creates the user on first login and refreshes email and
// name on later logins. The plan is never touched here.
func (u *Users) UpsertGoogleUser(ctx context.Context, identity *Identity) (*models.User, error) {
	if identity == nil || strings.TrimSpace(identity.Subject) == "" {
		return nil, apperr.Validation("identity is missing a subject")
	}

	user, err := u.upsert(ctx, identity)
	if errors.Is(err, apperr.ErrConflict) {
		// Lost a race with a concurrent first login for the same subject.
		user, err = u.upsert(ctx, identity)
	}
	return user, err
}

func (u *Users) upsert(ctx context.Context, identity *Identity) (*models.User, error) {
	now := u.now().UTC()

	var existing models.User
	err := u.store.FetchOne(ctx, &existing, `SELECT * FROM users WHERE google_sub = ?`, identity.Subject)
	switch {
	case err == nil:
		if existing.Email != identity.Email || existing.Name != identity.Name {
			_, err := u.store.Update(ctx, "users", map[string]interface{}{
				"email":      identity.Email,
				"name":       identity.Name,
				"updated_at": now,
			}, "id = ?", existing.ID)
			if err != nil {
				return nil, fmt.Errorf("update user: %w", err)
			}
			existing.Email = identity.Email
			existing.Name = identity.Name
			existing.UpdatedAt = now
		}
		return &existing, nil
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, fmt.Errorf("find user: %w", err)
	}

	id, err := u.store.Insert(ctx, "users", map[string]interface{}{
		"email":      identity.Email,
		"name":       identity.Name,
		"google_sub": identity.Subject,
		"plan":       billing.DefaultPlan,
		"created_at": now,
		"updated_at": now,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return &models.User{
		ID:        id,
		Email:     identity.Email,
		Name:      identity.Name,
		GoogleSub: identity.Subject,
		Plan:      billing.DefaultPlan,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
