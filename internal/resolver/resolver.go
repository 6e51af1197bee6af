package resolver

import (
	"context"
	"errors"
	"log/slog"

	"github.com/signalhouse/dispatch/internal/domain"
)

// Resolver looks up recipient addresses, preferences, device tokens and
// templates for the dispatch pipeline. Read failures degrade to empty
// results so delivery decisions can fall back; writes surface errors.
type Resolver struct {
	users     domain.UserRepository
	prefs     domain.PreferenceRepository
	tokens    domain.DeviceTokenRepository
	templates domain.TemplateRepository
	cache     *templateCache
	logger    *slog.Logger
}

// New creates a Resolver owning its template cache.
func New(
	users domain.UserRepository,
	prefs domain.PreferenceRepository,
	tokens domain.DeviceTokenRepository,
	templates domain.TemplateRepository,
	logger *slog.Logger,
) *Resolver {
	return &Resolver{
		users:     users,
		prefs:     prefs,
		tokens:    tokens,
		templates: templates,
		cache:     newTemplateCache(templateCacheSize, templateCacheTTL),
		logger:    logger,
	}
}

// Recipient resolves the delivery target for one channel. Lookup
// failures yield an empty recipient rather than an error.
func (r *Resolver) Recipient(ctx context.Context, userID string, channel domain.Channel) domain.Recipient {
	recipient := domain.Recipient{UserID: userID}

	switch channel {
	case domain.ChannelEmail, domain.ChannelSMS:
		user, err := r.users.GetByID(ctx, userID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				r.logger.Warn("recipient lookup failed",
					slog.String("user_id", userID),
					slog.String("channel", string(channel)),
					slog.String("error", err.Error()))
			}
			return recipient
		}
		if channel == domain.ChannelEmail && user.Email != nil {
			recipient.Email = *user.Email
		}
		if channel == domain.ChannelSMS && user.Phone != nil {
			recipient.Phone = *user.Phone
		}

	case domain.ChannelPush:
		tokens, err := r.tokens.ListActive(ctx, userID)
		if err != nil {
			r.logger.Warn("device token lookup failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
			return recipient
		}
		recipient.Tokens = tokens
	}

	return recipient
}

// Preferences returns the user's preference rows, or nil when the
// lookup fails or no rows exist.
func (r *Resolver) Preferences(ctx context.Context, userID string) []domain.UserPreference {
	prefs, err := r.prefs.ListByUser(ctx, userID)
	if err != nil {
		r.logger.Warn("preference lookup failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return nil
	}
	return prefs
}

// UpsertPreference creates or updates a (user, channel) preference row
func (r *Resolver) UpsertPreference(ctx context.Context, userID string, channel domain.Channel, enabled bool) (*domain.UserPreference, error) {
	return r.prefs.Upsert(ctx, userID, channel, enabled)
}

// RegisterDeviceToken registers or reactivates a push token
func (r *Resolver) RegisterDeviceToken(ctx context.Context, userID, token, platform string) (*domain.DeviceToken, error) {
	return r.tokens.Upsert(ctx, userID, token, platform)
}

// DeactivateDeviceToken disables a push token
func (r *Resolver) DeactivateDeviceToken(ctx context.Context, userID, token string) error {
	return r.tokens.Deactivate(ctx, userID, token)
}

// Template returns the active template for (type, channel), cache-first,
// or nil when none exists or the lookup fails.
func (r *Resolver) Template(ctx context.Context, typ domain.Type, channel domain.Channel) *domain.Template {
	key := templateKey(typ, channel)

	if template, ok := r.cache.get(key); ok {
		return template
	}

	template, err := r.templates.GetActive(ctx, typ, channel)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Warn("template lookup failed",
				slog.String("type", string(typ)),
				slog.String("channel", string(channel)),
				slog.String("error", err.Error()))
		}
		return nil
	}

	r.cache.put(key, template)
	return template
}

// InvalidateTemplate drops the cached entry for (type, channel), used
// after template administration writes.
func (r *Resolver) InvalidateTemplate(typ domain.Type, channel domain.Channel) {
	r.cache.remove(templateKey(typ, channel))
}

// SyncUser refreshes the recipient projection from an upstream event
func (r *Resolver) SyncUser(ctx context.Context, user *domain.User) error {
	return r.users.UpsertProjection(ctx, user)
}

func templateKey(typ domain.Type, channel domain.Channel) string {
	return string(typ) + ":" + string(channel)
}
