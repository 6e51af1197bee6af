package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/signalhouse/dispatch/internal/domain"
)

// PreferenceRepository implements domain.PreferenceRepository using PostgreSQL
type PreferenceRepository struct {
	db *DB
}

// NewPreferenceRepository creates a new PreferenceRepository
func NewPreferenceRepository(db *DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// ListByUser returns all preference rows for a user
func (r *PreferenceRepository) ListByUser(ctx context.Context, userID string) ([]domain.UserPreference, error) {
	query := `
		SELECT id, user_id, channel, is_enabled, created_at, updated_at
		FROM user_preferences
		WHERE user_id = $1
		ORDER BY channel ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query preferences: %w", err)
	}
	defer rows.Close()

	prefs := make([]domain.UserPreference, 0)
	for rows.Next() {
		var p domain.UserPreference
		if err := rows.Scan(&p.ID, &p.UserID, &p.Channel, &p.IsEnabled, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan preference: %w", err)
		}
		prefs = append(prefs, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating preferences: %w", err)
	}

	return prefs, nil
}

// Upsert creates the (user, channel) row or flips its flag
func (r *PreferenceRepository) Upsert(ctx context.Context, userID string, channel domain.Channel, enabled bool) (*domain.UserPreference, error) {
	query := `
		INSERT INTO user_preferences (id, user_id, channel, is_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id, channel)
		DO UPDATE SET is_enabled = EXCLUDED.is_enabled, updated_at = EXCLUDED.updated_at
		RETURNING id, user_id, channel, is_enabled, created_at, updated_at
	`

	var p domain.UserPreference
	err := r.db.Pool.QueryRow(ctx, query, uuid.New(), userID, channel, enabled, time.Now().UTC()).
		Scan(&p.ID, &p.UserID, &p.Channel, &p.IsEnabled, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert preference: %w", err)
	}

	return &p, nil
}

// DeviceTokenRepository implements domain.DeviceTokenRepository using PostgreSQL
type DeviceTokenRepository struct {
	db *DB
}

// NewDeviceTokenRepository creates a new DeviceTokenRepository
func NewDeviceTokenRepository(db *DB) *DeviceTokenRepository {
	return &DeviceTokenRepository{db: db}
}

// ListActive returns the user's active push tokens
func (r *DeviceTokenRepository) ListActive(ctx context.Context, userID string) ([]domain.DeviceToken, error) {
	query := `
		SELECT id, user_id, token, platform, is_active, created_at, updated_at
		FROM device_tokens
		WHERE user_id = $1 AND is_active
		ORDER BY created_at ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query device tokens: %w", err)
	}
	defer rows.Close()

	tokens := make([]domain.DeviceToken, 0)
	for rows.Next() {
		var t domain.DeviceToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.Token, &t.Platform, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating device tokens: %w", err)
	}

	return tokens, nil
}

// Upsert registers a token, reactivating and refreshing the platform on
// conflict
func (r *DeviceTokenRepository) Upsert(ctx context.Context, userID, token, platform string) (*domain.DeviceToken, error) {
	query := `
		INSERT INTO device_tokens (id, user_id, token, platform, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $5)
		ON CONFLICT (user_id, token)
		DO UPDATE SET is_active = TRUE, platform = EXCLUDED.platform, updated_at = EXCLUDED.updated_at
		RETURNING id, user_id, token, platform, is_active, created_at, updated_at
	`

	var t domain.DeviceToken
	err := r.db.Pool.QueryRow(ctx, query, uuid.New(), userID, token, platform, time.Now().UTC()).
		Scan(&t.ID, &t.UserID, &t.Token, &t.Platform, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert device token: %w", err)
	}

	return &t, nil
}

// Deactivate flips the token off. A missing row is not an error.
func (r *DeviceTokenRepository) Deactivate(ctx context.Context, userID, token string) error {
	query := `UPDATE device_tokens SET is_active = FALSE, updated_at = $3 WHERE user_id = $1 AND token = $2`

	_, err := r.db.Pool.Exec(ctx, query, userID, token, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to deactivate device token: %w", err)
	}

	return nil
}

// UserRepository reads the recipient projection
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID retrieves a recipient projection row
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT id, name, email, phone FROM users WHERE id = $1`

	var u domain.User
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Name, &u.Email, &u.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return &u, nil
}

// UpsertProjection refreshes the projection row from an upstream event.
// Blank fields never overwrite previously synced values.
func (r *UserRepository) UpsertProjection(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, name, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (id)
		DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name),
			email = COALESCE(EXCLUDED.email, users.email),
			phone = COALESCE(EXCLUDED.phone, users.phone),
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Pool.Exec(ctx, query, user.ID, user.Name, user.Email, user.Phone, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert user projection: %w", err)
	}

	return nil
}
