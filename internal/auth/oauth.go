package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/sakif/devsnap/internal/apperror"
	"github.com/sakif/devsnap/internal/config"
	"github.com/sakif/devsnap/internal/model"
)

var (
	// ErrExchangeFailed means the provider would not trade the code for an
	// access token.
	ErrExchangeFailed = errors.New("auth: OAuth code exchange failed")

	// ErrProfileFetchFailed means the provider's /user endpoint did not answer
	// with a usable profile.
	ErrProfileFetchFailed = errors.New("auth: GitHub profile fetch failed")
)

// githubUser is the portion of the GitHub /user API response we care about.
// GitHub returns a much larger object; we only unmarshal the fields we need.
//
// GitHub API docs: https://docs.github.com/en/rest/users/users#get-the-authenticated-user
type githubUser struct {
	ID        int64   `json:"id"`         // GitHub's numeric user ID, stable forever
	Login     string  `json:"login"`      // GitHub username, e.g. "octocat"
	Name      *string `json:"name"`       // display name, null when unset
	Email     *string `json:"email"`      // public email, null when hidden in GitHub settings
	AvatarURL *string `json:"avatar_url"` // profile picture URL
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. Your server redirects the user to GitHub's authorization endpoint,
//     with your ClientID and the requested scopes.
//  2. The user approves (or denies) the authorization request on GitHub.
//  3. GitHub redirects back to your CallbackURL with a short-lived "code".
//  4. Your server exchanges the code for an access token (server-to-server call).
//  5. Your server uses the access token to call the GitHub API for user info.
//
// Steps 4 and 5 are two separate methods so the caller can tell which one
// failed. Neither is retried: a failed login is reported straight away.
type GitHubProvider struct {
	config *oauth2.Config
	apiURL string
	client *http.Client
}

// NewGitHubProvider creates a GitHubProvider from the GitHub section of the
// configuration.
//
// The endpoint URLs start from oauth2/github's github.com defaults and are
// replaced by whatever the config carries, so tests can point the provider
// at an httptest server.
//
// Scopes we request:
//   - "read:user": the user's public profile (ID, login, avatar)
//   - "user:email": the user's email addresses
func NewGitHubProvider(cfg config.GitHub) *GitHubProvider {
	endpoint := github.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	// GitHub accepts client credentials in the form body; pinning the style
	// stops oauth2 from probing with an extra request on the first exchange.
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = "https://api.github.com"
	}

	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     endpoint,
		},
		apiURL: strings.TrimRight(apiURL, "/"),
		client: &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

// Configured reports whether a client ID is set. Without one the login
// redirect would send users to a GitHub error page.
func (p *GitHubProvider) Configured() bool {
	return p.config.ClientID != ""
}

// AuthURL returns the URL to redirect the user to for authorization.
//
// STATE PARAMETER:
// state is the per-login nonce from the StateStore. GitHub echoes it back on
// the callback and we only accept the callback if it matches. This prevents
// CSRF (Cross-Site Request Forgery) attacks where an attacker tricks your
// browser into completing an OAuth flow for their account.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// ExchangeCode trades the authorization code for a GitHub access token.
//
// Errors wrap ErrExchangeFailed together with an apperror.Upstream whose
// ClientFault flag says who is to blame:
//   - GitHub answered with a 4xx, an "error" field or no access_token:
//     the code was bad, expired or already used (client fault, 400)
//   - network failure, timeout or a 5xx from GitHub (provider fault, 500)
func (p *GitHubProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	// oauth2 picks up the HTTP client from the context. Ours carries the
	// configured timeout.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		clientFault := false
		var re *oauth2.RetrieveError
		switch {
		case errors.As(err, &re):
			clientFault = re.ErrorCode != "" || re.Response == nil || re.Response.StatusCode < http.StatusInternalServerError
		case strings.Contains(err.Error(), "missing access_token"):
			clientFault = true
		}
		return "", fmt.Errorf("%w: %w (%v)", ErrExchangeFailed,
			apperror.Upstream("failed to exchange authorization code with GitHub", clientFault), err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: %w", ErrExchangeFailed,
			apperror.Upstream("GitHub returned no access token", true))
	}

	return tok.AccessToken, nil
}

// FetchProfile calls GitHub's /user API with the access token as a bearer
// credential and maps the answer onto model.ExternalProfile.
//
// A 401 from GitHub is a client fault (400). Anything else that goes wrong is
// the provider's (500).
func (p *GitHubProvider) FetchProfile(ctx context.Context, accessToken string) (*model.ExternalProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building GitHub /user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w (%v)", ErrProfileFetchFailed,
			apperror.Upstream("failed to get user info from GitHub", false), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// A 401 means GitHub rejected the token it just issued for the
		// caller's code, which is reported like a rejected code.
		clientFault := resp.StatusCode == http.StatusUnauthorized
		return nil, fmt.Errorf("%w: %w (status %d)", ErrProfileFetchFailed,
			apperror.Upstream("failed to get user info from GitHub", clientFault), resp.StatusCode)
	}

	var gh githubUser
	if err := json.NewDecoder(resp.Body).Decode(&gh); err != nil {
		return nil, fmt.Errorf("%w: %w (decoding: %v)", ErrProfileFetchFailed,
			apperror.Upstream("GitHub returned an unreadable profile", false), err)
	}
	if gh.ID == 0 || gh.Login == "" {
		return nil, fmt.Errorf("%w: %w", ErrProfileFetchFailed,
			apperror.Upstream("GitHub returned an incomplete profile", false))
	}

	return &model.ExternalProfile{
		ExternalID: strconv.FormatInt(gh.ID, 10),
		Login:      gh.Login,
		Name:       nonEmpty(gh.Name),
		Email:      nonEmpty(gh.Email),
		AvatarURL:  nonEmpty(gh.AvatarURL),
	}, nil
}

// nonEmpty turns GitHub's "" into nil so optional columns stay NULL.
func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
