// Package service: authentication business logic.
//
// AuthService is the business logic layer for authentication. It sits between
// the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ IdentityProvider (GitHub)
//	                   ↘ TokenService (JWT)
//	                   ↘ StateStore (login nonces)
//
// THE LOGIN STATE MACHINE:
//
//	BeginLogin:    anonymous visit → nonce saved → redirect to GitHub
//	CompleteLogin: code + state back → nonce consumed → code exchanged →
//	               profile fetched → user resolved → token issued → redirect
//	Me:            token verified (middleware) → user still exists → profile
//
// Each HTTP call is its own short run through this machine. The only state
// carried between requests is the nonce (StateStore) and the token itself.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/devsnap/internal/apperror"
	"github.com/sakif/devsnap/internal/auth"
	"github.com/sakif/devsnap/internal/model"
	"github.com/sakif/devsnap/internal/repository"
)

// IdentityProvider is the external OAuth provider. *auth.GitHubProvider is the
// production implementation; tests substitute a fake so no network is used.
type IdentityProvider interface {
	Configured() bool
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
	FetchProfile(ctx context.Context, accessToken string) (*model.ExternalProfile, error)
}

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users     repository.UserRepository    → read/write user records
//   - profiles  repository.ProfileRepository → user + projects + blogs in one read
//   - provider  IdentityProvider             → OAuth code exchange, profile fetch
//   - states    auth.StateStore              → single-use login nonces
//   - tokens    *auth.TokenService           → issue JWTs
type AuthService struct {
	users       repository.UserRepository
	profiles    repository.ProfileRepository
	provider    IdentityProvider
	states      auth.StateStore
	tokens      *auth.TokenService
	frontendURL string
	stateTTL    time.Duration
	logger      *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// Call this in server.go when wiring the dependency graph.
func NewAuthService(
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	provider IdentityProvider,
	states auth.StateStore,
	tokens *auth.TokenService,
	frontendURL string,
	stateTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	if stateTTL <= 0 {
		stateTTL = 10 * time.Minute
	}
	return &AuthService{
		users:       users,
		profiles:    profiles,
		provider:    provider,
		states:      states,
		tokens:      tokens,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		stateTTL:    stateTTL,
		logger:      logger,
	}
}

// LoginResult is returned by CompleteLogin.
// It bundles the user record, the issued JWT and the frontend URL the browser
// should land on, so the handler can respond in one step.
type LoginResult struct {
	User        *model.User
	Token       string
	RedirectURL string
}

// BeginLogin starts an OAuth login. It returns the provider URL to redirect
// to and the nonce, which the handler also pins to the browser in a cookie.
func (s *AuthService) BeginLogin(ctx context.Context) (redirectURL, state string, err error) {
	if !s.provider.Configured() {
		return "", "", apperror.Configuration("GitHub OAuth not configured")
	}

	state = auth.NewState()
	if err := s.states.Save(ctx, state, s.stateTTL); err != nil {
		return "", "", fmt.Errorf("service/auth: saving login state: %w", err)
	}
	return s.provider.AuthURL(state), state, nil
}

// CompleteLogin handles the GitHub OAuth callback.
//
// ORDER MATTERS:
//  1. A missing code is rejected before anything else is touched, so a
//     malformed callback never reaches the state store or the database.
//  2. The state must match the cookie set by BeginLogin AND be consumable
//     from the store. Consume deletes it, so a callback URL cannot be replayed.
//  3. Only then do we talk to GitHub and write the user.
//
// WHAT THIS METHOD DOES NOT DO:
//   - It does NOT set or clear cookies (that's the handler's job)
//   - It does NOT read HTTP requests
func (s *AuthService) CompleteLogin(ctx context.Context, code, state, cookieState string) (*LoginResult, error) {
	if strings.TrimSpace(code) == "" {
		return nil, apperror.ValidationFailed("code", "Authorization code not provided")
	}
	if state == "" || state != cookieState {
		s.logger.Warn("oauth state mismatch")
		return nil, apperror.ValidationFailed("state", "Invalid OAuth state")
	}

	ok, err := s.states.Consume(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("service/auth: consuming login state: %w", err)
	}
	if !ok {
		s.logger.Warn("oauth state unknown or expired")
		return nil, apperror.ValidationFailed("state", "Invalid or expired OAuth state")
	}

	accessToken, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	profile, err := s.provider.FetchProfile(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.Resolve(ctx, profile)
	if err != nil {
		// The only conflict left after Resolve is an email that a directly
		// created account already owns. The login request itself is what
		// cannot be honoured.
		if errors.Is(err, apperror.ErrConflict) {
			s.logger.Warn("GitHub email belongs to another account",
				slog.String("login", profile.Login),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("%w (%v)", apperror.ValidationFailed("email",
				"The email on this GitHub account is already used by another DevSnap account"), err)
		}
		return nil, err
	}

	token, err := s.tokens.Issue(auth.Claims{
		Email:            user.Email,
		GitHubID:         user.GitHubID,
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID},
	}, 0)
	if err != nil {
		if errors.Is(err, auth.ErrSigning) {
			return nil, fmt.Errorf("%w (%v)", apperror.Configuration("JWT secret not configured"), err)
		}
		return nil, fmt.Errorf("service/auth: issuing token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", profile.Login),
		slog.Duration("tokenTTL", s.tokens.TTL()),
	)

	return &LoginResult{
		User:        user,
		Token:       token,
		RedirectURL: s.frontendURL + "/auth/callback?token=" + url.QueryEscape(token) + "&provider=github",
	}, nil
}

// Resolve maps a provider profile to a local user, creating it on first
// login and refreshing it on every later one.
//
// The provider is authoritative: name, email, username and avatar are always
// overwritten with what GitHub just told us.
//
// CONCURRENT FIRST LOGINS:
// Two callbacks for the same new identity can both miss the lookup. The
// UNIQUE constraint on github_id lets exactly one INSERT win; the loser sees
// a Conflict on github_id, re-reads the winner's row and updates it instead.
func (s *AuthService) Resolve(ctx context.Context, profile *model.ExternalProfile) (*model.User, error) {
	if profile == nil || profile.ExternalID == "" {
		return nil, fmt.Errorf("service/auth: external profile must have an id")
	}

	existing, err := s.users.GetUserByGitHubID(ctx, profile.ExternalID)
	switch {
	case err == nil:
		return s.refresh(ctx, existing, profile)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: looking up github id %s: %w", profile.ExternalID, err)
	}

	user := &model.User{
		GitHubID:        model.StringPtr(profile.ExternalID),
		ThemePreference: model.DefaultTheme,
	}
	applyExternal(user, profile)

	err = s.users.CreateUser(ctx, user)
	if err == nil {
		s.logger.Info("user created from GitHub login",
			slog.String("userID", user.ID),
			slog.String("githubID", profile.ExternalID),
		)
		return user, nil
	}

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrConflict) || appErr.Field != "github_id" {
		return nil, fmt.Errorf("service/auth: creating user for github id %s: %w", profile.ExternalID, err)
	}

	// Lost the race: someone else created this identity between our lookup
	// and our insert.
	s.logger.Info("concurrent first login, retrying as update",
		slog.String("githubID", profile.ExternalID),
	)
	existing, err = s.users.GetUserByGitHubID(ctx, profile.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: re-reading github id %s: %w", profile.ExternalID, err)
	}
	return s.refresh(ctx, existing, profile)
}

func (s *AuthService) refresh(ctx context.Context, user *model.User, profile *model.ExternalProfile) (*model.User, error) {
	applyExternal(user, profile)
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: updating user %s: %w", user.ID, err)
	}
	return user, nil
}

// Me returns the caller's profile with all projects and blogs.
//
// The token was already verified by the middleware, but the user it names may
// have been deleted since. That case is 401, not 404: the credential no longer
// identifies anybody.
func (s *AuthService) Me(ctx context.Context, claims *auth.Claims) (*model.Profile, error) {
	if claims == nil || claims.Subject == "" {
		return nil, apperror.Unauthorized("Invalid token payload")
	}

	if _, err := s.users.GetUserByID(ctx, claims.Subject); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("User not found")
		}
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", claims.Subject, err)
	}

	return s.profiles.LoadProfile(ctx, claims.Subject)
}

// Logout only acknowledges the request. Tokens are stateless, so the one the
// client discards stays valid until it expires; we log when that will be.
func (s *AuthService) Logout(rawToken string) {
	if rawToken == "" {
		return
	}
	attrs := []any{}
	if c := s.tokens.DecodeUnchecked(rawToken); c != nil && c.Subject != "" {
		attrs = append(attrs, slog.String("userID", c.Subject))
	}
	if exp, ok := s.tokens.Expiration(rawToken); ok {
		attrs = append(attrs,
			slog.Time("expiresAt", exp),
			slog.Bool("expired", s.tokens.IsExpired(rawToken)),
		)
	}
	s.logger.Info("logout acknowledged", attrs...)
}

// applyExternal copies the provider-owned fields onto user.
func applyExternal(user *model.User, p *model.ExternalProfile) {
	user.Name = p.DisplayName()
	user.Email = p.Email
	user.GitHubUsername = model.StringPtr(p.Login)
	user.ProfileImage = p.AvatarURL
}
