package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/signalhouse/dispatch/internal/domain"
)

const templateColumns = `id, type, channel, title, message, html_content, is_active, created_at, updated_at`

// TemplateRepository implements domain.TemplateRepository using PostgreSQL
type TemplateRepository struct {
	db *DB
}

// NewTemplateRepository creates a new TemplateRepository
func NewTemplateRepository(db *DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create creates a new template. A second active template for the same
// (type, channel) violates the partial unique index.
func (r *TemplateRepository) Create(ctx context.Context, t *domain.Template) error {
	query := `
		INSERT INTO notification_templates (id, type, channel, title, message, html_content, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		t.ID, t.Type, t.Channel, t.Title, t.Message, t.HTMLContent, t.IsActive, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create template: %w", err)
	}

	return nil
}

// GetByID retrieves a template by ID
func (r *TemplateRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Template, error) {
	query := fmt.Sprintf(`SELECT %s FROM notification_templates WHERE id = $1`, templateColumns)

	return r.scanTemplate(ctx, query, id)
}

// GetActive retrieves the single active template for (type, channel)
func (r *TemplateRepository) GetActive(ctx context.Context, typ domain.Type, channel domain.Channel) (*domain.Template, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM notification_templates
		WHERE type = $1 AND channel = $2 AND is_active
	`, templateColumns)

	return r.scanTemplate(ctx, query, typ, channel)
}

// List retrieves all templates
func (r *TemplateRepository) List(ctx context.Context) ([]*domain.Template, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM notification_templates
		ORDER BY type ASC, channel ASC, is_active DESC
	`, templateColumns)

	return r.scanTemplates(ctx, query)
}

// Update updates an existing template
func (r *TemplateRepository) Update(ctx context.Context, t *domain.Template) error {
	query := `
		UPDATE notification_templates SET
			type = $2, channel = $3, title = $4, message = $5,
			html_content = $6, is_active = $7, updated_at = now()
		WHERE id = $1
	`

	result, err := r.db.Pool.Exec(ctx, query,
		t.ID, t.Type, t.Channel, t.Title, t.Message, t.HTMLContent, t.IsActive,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("failed to update template: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// Delete deletes a template
func (r *TemplateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM notification_templates WHERE id = $1`

	result, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// Helper functions

func (r *TemplateRepository) scanTemplate(ctx context.Context, query string, args ...any) (*domain.Template, error) {
	row := r.db.Pool.QueryRow(ctx, query, args...)

	t := &domain.Template{}
	err := row.Scan(
		&t.ID, &t.Type, &t.Channel, &t.Title, &t.Message, &t.HTMLContent, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan template: %w", err)
	}

	return t, nil
}

func (r *TemplateRepository) scanTemplates(ctx context.Context, query string, args ...any) ([]*domain.Template, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	templates := make([]*domain.Template, 0)
	for rows.Next() {
		t := &domain.Template{}
		err := rows.Scan(
			&t.ID, &t.Type, &t.Channel, &t.Title, &t.Message, &t.HTMLContent, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}

		templates = append(templates, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating templates: %w", err)
	}

	return templates, nil
}
