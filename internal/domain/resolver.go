package domain

import "context"

// Resolver is the lookup surface the pipeline uses for recipients,
// preferences, device tokens and templates. Read operations degrade to
// empty results on failure so callers can pick a fallback; writes
// surface their errors.
type Resolver interface {
	Recipient(ctx context.Context, userID string, channel Channel) Recipient
	Preferences(ctx context.Context, userID string) []UserPreference
	Template(ctx context.Context, typ Type, channel Channel) *Template

	UpsertPreference(ctx context.Context, userID string, channel Channel, enabled bool) (*UserPreference, error)
	RegisterDeviceToken(ctx context.Context, userID, token, platform string) (*DeviceToken, error)
	DeactivateDeviceToken(ctx context.Context, userID, token string) error
	SyncUser(ctx context.Context, user *User) error

	InvalidateTemplate(typ Type, channel Channel)
}
