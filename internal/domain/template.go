package domain

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Template is a stored (type, channel) content template. At most one
// active template exists per (type, channel) pair.
type Template struct {
	ID          uuid.UUID `json:"id"`
	Type        Type      `json:"type"`
	Channel     Channel   `json:"channel"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	HTMLContent *string   `json:"html_content,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RenderedContent is the output of rendering a template
type RenderedContent struct {
	Title       string  `json:"title"`
	Message     string  `json:"message"`
	HTMLContent *string `json:"html_content,omitempty"`
}

// variablePattern matches template variables like {{variable_name}}
var variablePattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// NewTemplate creates a new active template
func NewTemplate(typ Type, channel Channel, title, message string) *Template {
	now := time.Now().UTC()
	return &Template{
		ID:        uuid.New(),
		Type:      typ,
		Channel:   channel,
		Title:     title,
		Message:   message,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Variables extracts the distinct variable names referenced by the
// template fields, in first-appearance order.
func (t *Template) Variables() []string {
	seen := make(map[string]bool)
	variables := make([]string, 0)

	fields := []string{t.Title, t.Message}
	if t.HTMLContent != nil {
		fields = append(fields, *t.HTMLContent)
	}
	for _, field := range fields {
		for _, match := range variablePattern.FindAllStringSubmatch(field, -1) {
			if len(match) > 1 && !seen[match[1]] {
				variables = append(variables, match[1])
				seen[match[1]] = true
			}
		}
	}
	return variables
}

// Render substitutes every {{name}} token in title, message and
// htmlContent with the string form of vars[name]. Unknown tokens are
// left in place. Rendering never fails.
func (t *Template) Render(vars map[string]any) RenderedContent {
	out := RenderedContent{
		Title:   substitute(t.Title, vars),
		Message: substitute(t.Message, vars),
	}
	if t.HTMLContent != nil {
		html := substitute(*t.HTMLContent, vars)
		out.HTMLContent = &html
	}
	return out
}

func substitute(content string, vars map[string]any) string {
	result := content
	for key, value := range vars {
		placeholder := "{{" + key + "}}"
		result = strings.ReplaceAll(result, placeholder, fmt.Sprintf("%v", value))
	}
	return result
}

// TemplateRepository defines the interface for template persistence
type TemplateRepository interface {
	Create(ctx context.Context, template *Template) error
	GetByID(ctx context.Context, id uuid.UUID) (*Template, error)

	// GetActive returns the single active template for (type, channel),
	// or ErrNotFound.
	GetActive(ctx context.Context, typ Type, channel Channel) (*Template, error)

	List(ctx context.Context) ([]*Template, error)
	Update(ctx context.Context, template *Template) error
	Delete(ctx context.Context, id uuid.UUID) error
}
