// Package service implements the business logic for registration, login,
// session refresh, per-request identity resolution, and the admin user
// lifecycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/karciss/red-social-backend/internal/auth"
	"github.com/karciss/red-social-backend/internal/domain"
	"github.com/karciss/red-social-backend/internal/event"
	"github.com/karciss/red-social-backend/internal/repository"
	apperrors "github.com/karciss/red-social-backend/pkg/errors"
	"github.com/karciss/red-social-backend/pkg/pagination"
)

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// defaultSearchLimit bounds search results when the caller does not ask for a
// specific limit.
const defaultSearchLimit = 20

// UserService implements the business logic for auth and user operations.
type UserService struct {
	userRepo   repository.UserRepository
	codec      *auth.TokenCodec
	producer   *event.Producer
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(
	userRepo repository.UserRepository,
	codec *auth.TokenCodec,
	producer *event.Producer,
	accessTTL time.Duration,
	refreshTTL time.Duration,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		codec:      codec,
		producer:   producer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

// --- Input types ---

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
}

// UpdateProfileInput holds the parameters for updating a user's profile.
type UpdateProfileInput struct {
	FirstName      *string
	LastName       *string
	ProfilePicture *string
}

// ListUsersInput narrows and pages the admin user listing.
type ListUsersInput struct {
	Role    *string
	Active  *bool
	Page    int
	PerPage int
}

// TokenDiagnostics is the result of inspecting a token without granting any
// authorization.
type TokenDiagnostics struct {
	Valid     bool       `json:"valid"`
	Reason    string     `json:"reason,omitempty"`
	Subject   string     `json:"subject,omitempty"`
	Role      string     `json:"role,omitempty"`
	TokenType string     `json:"token_type,omitempty"`
	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	ExpiresIn *int64     `json:"expires_in_seconds,omitempty"`
}

// --- Auth Operations ---

// Register creates a new user account, hashes the password, and returns the
// user with a fresh session pair.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, *domain.SessionPair, error) {
	if input.Email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if input.FirstName == "" {
		return nil, nil, apperrors.InvalidInput("first name is required")
	}
	if input.LastName == "" {
		return nil, nil, apperrors.InvalidInput("last name is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, nil, err
	}

	// Accounts self-select student or teacher. Admin accounts are only
	// created out of band.
	role := input.Role
	if role == "" {
		role = domain.RoleStudent
	}
	if role != domain.RoleStudent && role != domain.RoleTeacher {
		return nil, nil, apperrors.InvalidInput("role must be student or teacher")
	}

	hashedPassword, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        input.Email,
		PasswordHash: hashedPassword,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, storeError(err, "create user")
	}

	session, err := s.issueSessionPair(user)
	if err != nil {
		return nil, nil, err
	}

	// Publish registration event (non-blocking on failure).
	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
		slog.String("role", user.Role),
	)

	return user, session, nil
}

// Login authenticates a user with email and password. Unknown email and wrong
// password are indistinguishable to the caller; a correct password against a
// deactivated account is reported as inactive.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*domain.User, *domain.SessionPair, error) {
	if input.Email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if input.Password == "" {
		return nil, nil, apperrors.InvalidInput("password is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.InvalidCredentials()
		}
		return nil, nil, storeError(err, "get user by email")
	}

	if !auth.VerifyPassword(user.PasswordHash, input.Password) {
		return nil, nil, apperrors.InvalidCredentials()
	}

	if !user.Active {
		return nil, nil, apperrors.AccountInactive()
	}

	session, err := s.issueSessionPair(user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
	)

	return user, session, nil
}

// Refresh exchanges a valid refresh token for a full new session pair. The
// user record is re-read so the new access token carries the current role;
// the presented refresh token stays usable until it expires.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*domain.User, *domain.SessionPair, error) {
	if refreshToken == "" {
		return nil, nil, apperrors.InvalidInput("refresh token is required")
	}

	claims, err := s.codec.Verify(refreshToken, auth.TokenKindRefresh)
	if err != nil {
		s.logger.WarnContext(ctx, "refresh token rejected",
			slog.String("error", err.Error()),
		)
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			return nil, nil, apperrors.Unauthorized("refresh token expired")
		case errors.Is(err, auth.ErrTokenWrongKind):
			return nil, nil, apperrors.Unauthorized("token is not a refresh token")
		default:
			return nil, nil, apperrors.Unauthorized("invalid refresh token")
		}
	}
	if claims.Subject == "" {
		return nil, nil, apperrors.Unauthorized("refresh token has no subject")
	}

	user, err := s.userRepo.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.NotFound("user", claims.Subject)
		}
		return nil, nil, storeError(err, "get user for refresh")
	}

	if !user.Active {
		return nil, nil, apperrors.AccountInactive()
	}

	session, err := s.issueSessionPair(user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "session refreshed",
		slog.String("user_id", user.ID),
	)

	return user, session, nil
}

// ResolveUser turns a raw Authorization header value into the live user it
// identifies. The user record is read from the store on every call, never
// cached, so role changes and deactivation take effect immediately.
func (s *UserService) ResolveUser(ctx context.Context, rawAuthorizationValue string) (*domain.User, error) {
	token := stripBearerPrefix(rawAuthorizationValue)
	if token == "" {
		return nil, apperrors.Unauthorized("missing bearer token")
	}

	claims, err := s.codec.Verify(token, auth.TokenKindAccess)
	if err != nil {
		s.logger.DebugContext(ctx, "access token rejected",
			slog.String("error", err.Error()),
		)
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			return nil, apperrors.Unauthorized("token expired")
		case errors.Is(err, auth.ErrTokenWrongKind):
			return nil, apperrors.Unauthorized("token is not an access token")
		default:
			return nil, apperrors.Unauthorized("invalid token")
		}
	}
	if claims.Subject == "" {
		return nil, apperrors.Unauthorized("token has no subject")
	}

	user, err := s.userRepo.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// The token was valid but its subject no longer exists. This is
			// a distinct outcome from a bad token; the transport layer maps
			// it separately.
			return nil, apperrors.NotFound("user", claims.Subject)
		}
		return nil, storeError(err, "get user for token subject")
	}

	if !user.Active {
		return nil, apperrors.AccountInactive()
	}

	return user, nil
}

// InspectToken reports on a presented token without granting authorization.
// The payload is decoded unverified so even an expired or foreign-signed
// token yields diagnostics.
func (s *UserService) InspectToken(ctx context.Context, token string) *TokenDiagnostics {
	diag := &TokenDiagnostics{}

	if _, err := s.codec.Verify(token, auth.TokenKindAccess); err == nil {
		diag.Valid = true
	} else {
		diag.Reason = err.Error()
	}

	claims, err := s.codec.DecodeUnverified(token)
	if err != nil {
		return diag
	}

	diag.Subject = claims.Subject
	diag.Role = claims.Role
	diag.TokenType = string(claims.TokenType)
	if claims.IssuedAt != nil {
		t := claims.IssuedAt.Time
		diag.IssuedAt = &t
	}
	if claims.ExpiresAt != nil {
		t := claims.ExpiresAt.Time
		diag.ExpiresAt = &t
		seconds := int64(t.Sub(s.codec.Now()).Seconds())
		diag.ExpiresIn = &seconds
	}

	return diag
}

// --- User Operations ---

// GetUser retrieves a user by their ID.
func (s *UserService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", userID)
		}
		return nil, storeError(err, "get user")
	}
	return user, nil
}

// SearchUsers finds active users whose name or email contains the query.
func (s *UserService) SearchUsers(ctx context.Context, query string, limit int) ([]domain.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.InvalidInput("search query is required")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > pagination.MaxPerPage {
		limit = pagination.MaxPerPage
	}

	users, err := s.userRepo.Search(ctx, query, limit)
	if err != nil {
		return nil, storeError(err, "search users")
	}
	return users, nil
}

// UpdateProfile updates the caller's own profile fields.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", userID)
		}
		return nil, storeError(err, "get user for update")
	}

	if input.FirstName != nil {
		if *input.FirstName == "" {
			return nil, apperrors.InvalidInput("first name must not be empty")
		}
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		if *input.LastName == "" {
			return nil, apperrors.InvalidInput("last name must not be empty")
		}
		user.LastName = *input.LastName
	}
	if input.ProfilePicture != nil {
		user.ProfilePicture = *input.ProfilePicture
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, storeError(err, "update user")
	}

	s.logger.InfoContext(ctx, "user profile updated",
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// --- Admin Operations ---

// ListUsers returns a page of users for the admin listing.
func (s *UserService) ListUsers(ctx context.Context, input ListUsersInput) ([]domain.User, int, error) {
	if input.Role != nil && !domain.IsValidRole(*input.Role) {
		return nil, 0, apperrors.InvalidInput("unknown role filter")
	}
	if input.Page < 1 {
		input.Page = 1
	}
	if input.PerPage < 1 {
		input.PerPage = pagination.DefaultPerPage
	}
	if input.PerPage > pagination.MaxPerPage {
		input.PerPage = pagination.MaxPerPage
	}

	users, total, err := s.userRepo.List(ctx, repository.ListFilter{
		Role:    input.Role,
		Active:  input.Active,
		Page:    input.Page,
		PerPage: input.PerPage,
	})
	if err != nil {
		return nil, 0, storeError(err, "list users")
	}

	return users, total, nil
}

// DeactivateUser soft-deletes an account. The row is kept and the flag can be
// reversed with ActivateUser.
func (s *UserService) DeactivateUser(ctx context.Context, userID string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("user", userID)
		}
		return storeError(err, "get user for deactivation")
	}

	if err := s.userRepo.SetActive(ctx, userID, false); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("user", userID)
		}
		return storeError(err, "deactivate user")
	}

	// Publish deactivation event (non-blocking on failure).
	if err := s.producer.PublishUserDeactivated(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.deactivated event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user deactivated",
		slog.String("user_id", userID),
	)

	return nil
}

// ActivateUser reinstates a deactivated account and returns the updated user.
func (s *UserService) ActivateUser(ctx context.Context, userID string) (*domain.User, error) {
	if err := s.userRepo.SetActive(ctx, userID, true); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("user", userID)
		}
		return nil, storeError(err, "activate user")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "get user after activation")
	}

	s.logger.InfoContext(ctx, "user activated",
		slog.String("user_id", userID),
	)

	return user, nil
}

// --- Helpers ---

// issueSessionPair signs both tokens for the user. Callers only ever see a
// complete pair; a failure signing either token fails the operation.
func (s *UserService) issueSessionPair(user *domain.User) (*domain.SessionPair, error) {
	accessToken, err := s.codec.Issue(user.ID, user.Role, auth.TokenKindAccess, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, err := s.codec.Issue(user.ID, "", auth.TokenKindRefresh, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return domain.NewSessionPair(accessToken, refreshToken), nil
}

// stripBearerPrefix trims the Bearer scheme from an Authorization value,
// tolerating case differences, extra whitespace, and a duplicated prefix.
func stripBearerPrefix(raw string) string {
	token := strings.TrimSpace(raw)
	for len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	// A scheme with nothing after it carries no token.
	if strings.EqualFold(token, "bearer") {
		return ""
	}
	return token
}

// storeError converts a repository failure into the error surfaced to
// clients. Context cancellation and timeouts mean the store was unreachable.
func storeError(err error, action string) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Unavailable("user store unreachable")
	}
	return fmt.Errorf("%s: %w", action, err)
}

// validatePassword checks that the password meets minimum complexity requirements.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return apperrors.InvalidInput("password must contain at least one uppercase letter, one lowercase letter, and one digit")
	}

	return nil
}
