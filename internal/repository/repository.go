// Package repository defines the storage contracts for the authentication
// service. Two backends implement them: postgres (direct pgx) and supabase
// (PostgREST over HTTP).
package repository

import (
	"context"

	"github.com/karciss/red-social-backend/internal/domain"
)

// ListFilter narrows and pages the admin user listing. Nil fields mean no
// filtering on that attribute.
type ListFilter struct {
	Role    *string
	Active  *bool
	Page    int
	PerPage int
}

// Offset returns the row offset for the filter's page.
func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.PerPage
}

// UserRepository is the storage contract for user accounts.
type UserRepository interface {
	// Create persists a new user. Returns a duplicate email error when the
	// address is already registered, compared case-insensitively.
	Create(ctx context.Context, u *domain.User) error

	// GetByID retrieves a user by ID regardless of active state.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by email address, compared
	// case-insensitively.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// List returns a page of users matching the filter plus the total
	// count of matches across all pages.
	List(ctx context.Context, filter ListFilter) ([]domain.User, int, error)

	// Search returns up to limit active users whose name or email contains
	// the query, case-insensitively.
	Search(ctx context.Context, query string, limit int) ([]domain.User, error)

	// Update persists changes to an existing user.
	Update(ctx context.Context, u *domain.User) error

	// SetActive flips the active flag without touching other fields.
	SetActive(ctx context.Context, id string, active bool) error
}
