package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"ideaboard/internal/auth"
	"ideaboard/internal/models"
	"ideaboard/internal/repository"
	"ideaboard/internal/validation"

	"github.com/google/uuid"
)

// ErrCASFailed is returned when the CAS server rejects or garbles a ticket.
var ErrCASFailed = models.NewUnauthenticatedError("CAS authentication failed")

const casResponseLimit = 1 << 20

// CASIdentity is what a successful serviceValidate response tells us.
type CASIdentity struct {
	Username    string
	Email       string
	DisplayName string
}

// CASService validates CAS tickets and maps them onto local users.
type CASService struct {
	users       repository.UserRepository
	hasher      auth.PasswordHasher
	baseURL     string
	emailDomain string
	client      *http.Client
}

// NewCASService returns a CASService for the CAS server at baseURL. Users
// without a mail attribute get addresses under emailDomain.
func NewCASService(users repository.UserRepository, hasher auth.PasswordHasher, baseURL, emailDomain string, client *http.Client) *CASService {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &CASService{
		users:       users,
		hasher:      hasher,
		baseURL:     strings.TrimRight(baseURL, "/"),
		emailDomain: emailDomain,
		client:      client,
	}
}

// Enabled reports whether a CAS server is configured.
func (s *CASService) Enabled() bool { return s.baseURL != "" }

// Login validates ticket against the CAS server and returns the linked
// local user, creating one on first login.
func (s *CASService) Login(ctx context.Context, ticket, service string) (*models.User, error) {
	if !s.Enabled() {
		return nil, models.NewNotFoundError("CAS", "login")
	}
	if strings.TrimSpace(ticket) == "" || strings.TrimSpace(service) == "" {
		return nil, models.NewValidationError("ticket and service are required")
	}
	id, err := s.Validate(ctx, ticket, service)
	if err != nil {
		slog.WarnContext(ctx, "CAS ticket validation failed", slog.Any("error", err))
		return nil, ErrCASFailed
	}
	return s.getOrCreate(ctx, id)
}

// Validate calls serviceValidate and extracts the identity attributes.
func (s *CASService) Validate(ctx context.Context, ticket, service string) (*CASIdentity, error) {
	q := url.Values{}
	q.Set("service", service)
	q.Set("ticket", ticket)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/serviceValidate?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build CAS request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("CAS validation request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, casResponseLimit))
	if err != nil {
		return nil, fmt.Errorf("CAS validation response read failed: %w", err)
	}
	return parseCASResponse(string(body), s.emailDomain)
}

func parseCASResponse(body, emailDomain string) (*CASIdentity, error) {
	if strings.Contains(body, "authenticationFailure") {
		return nil, errors.New("CAS authentication failed")
	}
	username, ok := firstTag(body, "user")
	if !ok {
		return nil, errors.New("CAS response missing user")
	}
	email, _ := firstTag(body, "mail", "email", "eduPersonPrincipalName", "user")
	display, ok := firstTag(body, "displayName", "cn", "name")
	if !ok {
		display = username
	}
	return &CASIdentity{
		Username:    username,
		Email:       validation.NormalizeEmail(ensureEmail(username, email, emailDomain)),
		DisplayName: display,
	}, nil
}

func ensureEmail(username, email, domain string) string {
	switch {
	case strings.Contains(email, "@"):
		return email
	case strings.Contains(username, "@"):
		return username
	default:
		return username + "@" + domain
	}
}

var tagPatterns sync.Map

// extractTag returns the trimmed text of the first <tag> or <ns:tag> element.
func extractTag(xml, tag string) (string, bool) {
	re, ok := tagPatterns.Load(tag)
	if !ok {
		q := regexp.QuoteMeta(tag)
		re, _ = tagPatterns.LoadOrStore(tag, regexp.MustCompile(`(?s)<(?:\w+:)?`+q+`>\s*([^<]+?)\s*</(?:\w+:)?`+q+`>`))
	}
	m := re.(*regexp.Regexp).FindStringSubmatch(xml)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func firstTag(xml string, tags ...string) (string, bool) {
	for _, tag := range tags {
		if v, ok := extractTag(xml, tag); ok {
			return v, true
		}
	}
	return "", false
}

// getOrCreate resolves a CAS identity by subject, then by email (linking the
// subject), and finally creates a user with a random password.
func (s *CASService) getOrCreate(ctx context.Context, id *CASIdentity) (*models.User, error) {
	user, err := s.users.GetByCASSubject(ctx, id.Username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, translate(err, "User", id.Username)
	}

	user, err = s.users.GetByEmail(ctx, id.Email)
	if err == nil {
		if _, err := s.users.LinkCASSubject(ctx, user.ID, id.Username); err != nil {
			slog.WarnContext(ctx, "failed to link CAS subject",
				slog.Uint64("linked_user_id", uint64(user.ID)), slog.Any("error", err))
		}
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, translate(err, "User", id.Email)
	}

	hash, err := s.hasher.Hash("cas:" + uuid.NewString())
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	subject := id.Username
	user = &models.User{
		Email:        id.Email,
		Name:         id.DisplayName,
		PasswordHash: hash,
		Role:         models.RoleUser,
		CASSubject:   &subject,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, translate(err, "User", id.Email)
		}
		// Lost a creation race with a concurrent login.
		existing, lookupErr := s.users.GetByEmail(ctx, id.Email)
		if lookupErr != nil {
			return nil, translate(lookupErr, "User", id.Email)
		}
		return existing, nil
	}
	slog.InfoContext(ctx, "CAS user created", slog.Uint64("new_user_id", uint64(user.ID)))
	return user, nil
}
