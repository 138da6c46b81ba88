package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"audioshelf/internal/domain"
	"audioshelf/internal/observability"

	"golang.org/x/crypto/bcrypt"
)

// Bytes of entropy in a session token. Hex-encoded, so tokens are twice this
// many characters on the wire.
const tokenEntropy = 32

const bcryptCost = 12

// AuthService owns the session lifecycle: login, logout, and per-request
// resolution with expiry and sliding renewal. It also carries user management
// since users and credentials are inseparable here.
type AuthService struct {
	userRepo    domain.UserRepository
	sessionRepo domain.SessionRepository
	ttl         time.Duration
	renewAfter  time.Duration

	// now is swappable for tests
	now func() time.Time

	// renewals tracks in-flight fire-and-forget renewal writes so Close can
	// drain them instead of dropping them at shutdown.
	renewals sync.WaitGroup
}

// NewAuthService creates an AuthService with the given session TTL and
// sliding-renewal threshold.
func NewAuthService(userRepo domain.UserRepository, sessionRepo domain.SessionRepository, ttl, renewAfter time.Duration) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		ttl:         ttl,
		renewAfter:  renewAfter,
		now:         time.Now,
	}
}

// TTL returns the configured session lifetime.
func (s *AuthService) TTL() time.Duration {
	return s.ttl
}

// NewToken returns a fresh opaque session token.
func NewToken() (string, error) {
	buf := make([]byte, tokenEntropy)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Login verifies credentials and creates a new session, returning the token
// for the caller to hand to the client.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(
		[]byte(user.PasswordHash), []byte(password),
	); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := NewToken()
	if err != nil {
		return "", nil, err
	}

	session := &domain.Session{
		Token:  token,
		UserID: user.ID,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return "", nil, err
	}

	return token, user, nil
}

// Logout deletes the session for the given token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessionRepo.Delete(ctx, token)
}

// ResolveResult is the outcome of resolving a token. Info is nil when the
// token did not map to a live session. Renewed reports that the sliding
// window advanced, meaning the client's cookie expiry must be refreshed with
// this response.
type ResolveResult struct {
	Info    *domain.SessionInfo
	Renewed bool
}

// Resolve looks up a token and applies the session state machine: expired
// sessions are deleted and treated as absent, and sessions whose last renewal
// is older than the renewal threshold get last_accessed advanced. The renewal
// write happens off the request path; only the cookie refresh is synchronous.
// An unknown or malformed token is not an error, just an absent session.
func (s *AuthService) Resolve(ctx context.Context, token string) (ResolveResult, error) {
	if token == "" {
		return ResolveResult{}, nil
	}

	info, err := s.sessionRepo.GetInfoByToken(ctx, token)
	if err != nil {
		if err == domain.ErrSessionNotFound {
			return ResolveResult{}, nil
		}
		return ResolveResult{}, err
	}

	now := s.now()

	if info.LastAccessed.Before(now.Add(-s.ttl)) {
		observability.SessionsExpiredTotal.Inc()
		if err := s.sessionRepo.Delete(ctx, token); err != nil {
			// A dangling expired row self-heals on the next resolve.
			observability.FromContext(ctx).Error("could not delete expired session", "error", err.Error())
		}
		return ResolveResult{}, nil
	}

	renewed := false
	if info.LastAccessed.Before(now.Add(-s.renewAfter)) {
		renewed = true
		observability.SessionRenewalsTotal.Inc()

		s.renewals.Add(1)
		go func() {
			defer s.renewals.Done()
			renewCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.sessionRepo.Touch(renewCtx, token); err != nil {
				observability.Error("could not update session last access time", "error", err.Error())
			}
		}()
	}

	return ResolveResult{Info: info, Renewed: renewed}, nil
}

// Close waits for any in-flight renewal writes to finish.
func (s *AuthService) Close() {
	s.renewals.Wait()
}

// CleanupExpired deletes every session whose age exceeds the TTL and returns
// the number removed.
func (s *AuthService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.sessionRepo.DeleteExpired(ctx, s.now().Add(-s.ttl))
}

// CreateUser creates an account with a normalized username and hashed
// password.
func (s *AuthService) CreateUser(ctx context.Context, username, password string, admin bool) (*domain.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return nil, domain.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           newID(),
		Username:     username,
		PasswordHash: string(hash),
		Admin:        admin,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser applies the supplied fields; nil fields are left alone.
func (s *AuthService) UpdateUser(ctx context.Context, id string, username, password *string, admin *bool) error {
	update := domain.UserUpdate{Admin: admin}

	if username != nil {
		normalized := strings.ToLower(strings.TrimSpace(*username))
		if normalized == "" {
			return domain.ErrInvalidInput
		}
		update.Username = &normalized
	}

	if password != nil {
		if *password == "" {
			return domain.ErrInvalidInput
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcryptCost)
		if err != nil {
			return err
		}
		hashed := string(hash)
		update.PasswordHash = &hashed
	}

	return s.userRepo.Update(ctx, id, update)
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// ListUsers retrieves all users.
func (s *AuthService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.userRepo.List(ctx)
}

// CountUsers returns the number of accounts; used by the first-run seed.
func (s *AuthService) CountUsers(ctx context.Context) (int64, error) {
	return s.userRepo.Count(ctx)
}
