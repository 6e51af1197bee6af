package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserPreference is a per (userId, channel) opt-in flag. Absence of any
// row for a user means every channel is enabled.
type UserPreference struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Channel   Channel   `json:"channel"`
	IsEnabled bool      `json:"is_enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EnabledChannels reduces preference rows to the set of channels the user
// accepts. With no rows at all it returns nil, which callers treat as
// all-enabled.
func EnabledChannels(prefs []UserPreference) map[Channel]bool {
	if len(prefs) == 0 {
		return nil
	}
	enabled := make(map[Channel]bool, len(prefs))
	for _, p := range prefs {
		if p.IsEnabled {
			enabled[p.Channel] = true
		}
	}
	return enabled
}

type PreferenceRepository interface {
	ListByUser(ctx context.Context, userID string) ([]UserPreference, error)

	// Upsert creates the (userId, channel) row or updates its flag.
	Upsert(ctx context.Context, userID string, channel Channel, enabled bool) (*UserPreference, error)
}

// DeviceToken is a push registration. Only active tokens are targeted.
type DeviceToken struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type DeviceTokenRepository interface {
	ListActive(ctx context.Context, userID string) ([]DeviceToken, error)

	// Upsert registers the token; on conflict it reactivates the row and
	// refreshes the platform tag.
	Upsert(ctx context.Context, userID, token, platform string) (*DeviceToken, error)

	// Deactivate flips isActive off. Missing rows are not an error.
	Deactivate(ctx context.Context, userID, token string) error
}

// User is a read-only recipient projection of the external account
// system. Email or phone may be absent.
type User struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)

	// UpsertProjection refreshes the local projection row from an
	// upstream event. The account system stays the source of truth.
	UpsertProjection(ctx context.Context, user *User) error
}
