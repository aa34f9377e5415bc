// Package supabase implements the repository contracts against a Supabase
// project's PostgREST API. It is the storage backend used when the service
// runs without direct database access.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/karciss/red-social-backend/internal/domain"
	"github.com/karciss/red-social-backend/internal/repository"
	apperrors "github.com/karciss/red-social-backend/pkg/errors"
	"github.com/karciss/red-social-backend/pkg/httpclient"
)

const serviceName = "supabase"

// userRecord is the wire shape of a row in the users table. It exists because
// domain.User never serializes the password hash, while PostgREST round-trips
// every column.
type userRecord struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"password_hash"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	ProfilePicture string    `json:"profile_picture"`
	Role           string    `json:"role"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toRecord(u *domain.User) userRecord {
	return userRecord{
		ID:             u.ID,
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		ProfilePicture: u.ProfilePicture,
		Role:           u.Role,
		Active:         u.Active,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (r userRecord) toDomain() domain.User {
	return domain.User{
		ID:             r.ID,
		Email:          r.Email,
		PasswordHash:   r.PasswordHash,
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		ProfilePicture: r.ProfilePicture,
		Role:           r.Role,
		Active:         r.Active,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// UserStore implements repository.UserRepository over PostgREST.
type UserStore struct {
	client  *httpclient.CircuitBreakerClient
	baseURL string
	apiKey  string
}

// NewUserStore creates a PostgREST-backed user store. baseURL is the project
// URL without a trailing slash, e.g. https://abc.supabase.co.
func NewUserStore(client *httpclient.CircuitBreakerClient, baseURL, apiKey string) *UserStore {
	return &UserStore{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

func (s *UserStore) usersURL(query url.Values) string {
	u := s.baseURL + "/rest/v1/users"
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// newRequest builds a PostgREST request with auth headers applied. A non-nil
// body is JSON.
func (s *UserStore) newRequest(ctx context.Context, method, rawURL string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

func decodeRecords(resp *http.Response) ([]userRecord, error) {
	defer func() { _ = resp.Body.Close() }()

	var records []userRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return records, nil
}

// Create inserts the user. PostgREST reports a unique constraint hit as a 409
// carrying SQLSTATE 23505, which ParseResponseError maps to a duplicate email.
func (s *UserStore) Create(ctx context.Context, u *domain.User) error {
	req, err := s.newRequest(ctx, http.MethodPost, s.usersURL(nil), toRecord(u))
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=minimal")

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return httpclient.ParseResponseError(resp, serviceName)
	}
	_ = resp.Body.Close()

	return nil
}

// GetByID retrieves a user by ID regardless of active state.
func (s *UserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := url.Values{}
	query.Set("id", "eq."+id)
	query.Set("limit", "1")

	return s.getOne(ctx, query)
}

// patternEscaper neutralizes (I)LIKE metacharacters so caller input matches
// literally. Underscores are common in email local parts and would otherwise
// act as single-character wildcards; PostgREST additionally treats * as an
// alias for %.
var patternEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`, `*`, `\*`)

// GetByEmail retrieves a user by email. The ilike operator with an escaped
// pattern gives the case-insensitive equality the contract requires.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := url.Values{}
	query.Set("email", "ilike."+patternEscaper.Replace(email))
	query.Set("limit", "1")

	return s.getOne(ctx, query)
}

func (s *UserStore) getOne(ctx context.Context, query url.Values) (*domain.User, error) {
	req, err := s.newRequest(ctx, http.MethodGet, s.usersURL(query), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, serviceName)
	}

	records, err := decodeRecords(resp)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apperrors.ErrNotFound
	}

	user := records[0].toDomain()
	return &user, nil
}

// List returns a page of users plus the total match count, taken from the
// Content-Range header PostgREST emits under Prefer: count=exact.
func (s *UserStore) List(ctx context.Context, filter repository.ListFilter) ([]domain.User, int, error) {
	query := url.Values{}
	if filter.Role != nil {
		query.Set("role", "eq."+*filter.Role)
	}
	if filter.Active != nil {
		query.Set("active", "eq."+strconv.FormatBool(*filter.Active))
	}
	query.Set("order", "created_at.desc")
	query.Set("limit", strconv.Itoa(filter.PerPage))
	query.Set("offset", strconv.Itoa(filter.Offset()))

	req, err := s.newRequest(ctx, http.MethodGet, s.usersURL(query), nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Prefer", "count=exact")

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, 0, httpclient.ParseResponseError(resp, serviceName)
	}

	total, err := parseTotalCount(resp.Header.Get("Content-Range"))
	if err != nil {
		_ = resp.Body.Close()
		return nil, 0, err
	}

	records, err := decodeRecords(resp)
	if err != nil {
		return nil, 0, err
	}

	users := make([]domain.User, 0, len(records))
	for _, r := range records {
		users = append(users, r.toDomain())
	}

	return users, total, nil
}

// Search returns up to limit active users whose name or email contains the
// query. The asterisk is the PostgREST pattern wildcard; the query itself is
// escaped so it matches literally.
func (s *UserStore) Search(ctx context.Context, searchQuery string, limit int) ([]domain.User, error) {
	pattern := "*" + patternEscaper.Replace(searchQuery) + "*"

	query := url.Values{}
	query.Set("active", "eq.true")
	query.Set("or", fmt.Sprintf("(first_name.ilike.%s,last_name.ilike.%s,email.ilike.%s)", pattern, pattern, pattern))
	query.Set("order", "last_name.asc,first_name.asc")
	query.Set("limit", strconv.Itoa(limit))

	req, err := s.newRequest(ctx, http.MethodGet, s.usersURL(query), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, serviceName)
	}

	records, err := decodeRecords(resp)
	if err != nil {
		return nil, err
	}

	users := make([]domain.User, 0, len(records))
	for _, r := range records {
		users = append(users, r.toDomain())
	}

	return users, nil
}

// Update persists the full user row. A filter that matches no row comes back
// as an empty representation, which maps to not found.
func (s *UserStore) Update(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()

	query := url.Values{}
	query.Set("id", "eq."+u.ID)

	req, err := s.newRequest(ctx, http.MethodPatch, s.usersURL(query), toRecord(u))
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=representation")

	return s.patchExpectingMatch(ctx, req, u.ID)
}

// SetActive flips the active flag without touching other fields.
func (s *UserStore) SetActive(ctx context.Context, id string, active bool) error {
	query := url.Values{}
	query.Set("id", "eq."+id)

	body := map[string]any{
		"active":     active,
		"updated_at": time.Now().UTC(),
	}

	req, err := s.newRequest(ctx, http.MethodPatch, s.usersURL(query), body)
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=representation")

	return s.patchExpectingMatch(ctx, req, id)
}

func (s *UserStore) patchExpectingMatch(ctx context.Context, req *http.Request, id string) error {
	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return httpclient.ParseResponseError(resp, serviceName)
	}

	records, err := decodeRecords(resp)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return apperrors.NotFound("user", id)
	}

	return nil
}

// Ping checks that the PostgREST endpoint is reachable and accepts our
// credentials. Used as a readiness probe.
func (s *UserStore) Ping(ctx context.Context) error {
	query := url.Values{}
	query.Set("limit", "1")
	query.Set("select", "id")

	req, err := s.newRequest(ctx, http.MethodHead, s.usersURL(query), nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("ping supabase: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("ping supabase: unexpected status %d", resp.StatusCode)
	}

	return nil
}

// parseTotalCount extracts the total from a PostgREST Content-Range header,
// e.g. "0-19/42" or "*/0" for an empty result.
func parseTotalCount(contentRange string) (int, error) {
	_, totalPart, found := strings.Cut(contentRange, "/")
	if !found {
		return 0, fmt.Errorf("malformed Content-Range header: %q", contentRange)
	}
	if totalPart == "*" {
		return 0, nil
	}

	total, err := strconv.Atoi(totalPart)
	if err != nil {
		return 0, fmt.Errorf("malformed Content-Range total: %q", contentRange)
	}
	return total, nil
}
