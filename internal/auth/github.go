package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"docuflow/internal/shared/cache"
	"docuflow/internal/shared/server/respond"
	"docuflow/internal/shared/telemetry"
	"docuflow/internal/users"
)

const defaultGitHubAPI = "https://api.github.com"

// UserUpserter stores the account behind a GitHub login.
type UserUpserter interface {
	UpsertFromGitHub(ctx context.Context, p users.GitHubProfile) (users.User, error)
}

// TokenSigner issues session tokens.
type TokenSigner interface {
	Sign(subject, email, name string) (string, error)
}

// GitHubConfig configures GitHubService.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	UIRedirect   string
	// APIBaseURL overrides https://api.github.com.
	APIBaseURL string
	// Endpoint overrides the GitHub OAuth endpoint.
	Endpoint *oauth2.Endpoint
}

// GitHubService handles GitHub OAuth flows.
type GitHubService struct {
	oauthConfig *oauth2.Config
	apiBase     string
	uiRedirect  string
	stateTTL    time.Duration
	states      *stateStore
	users       UserUpserter
	signer      TokenSigner
}

// NewGitHubService builds a GitHubService. States live in store so any API
// replica can finish a login started on another one.
func NewGitHubService(cfg GitHubConfig, store cache.Cache, usersSvc UserUpserter, signer TokenSigner) *GitHubService {
	endpoint := github.Endpoint
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}
	apiBase := strings.TrimRight(cfg.APIBaseURL, "/")
	if apiBase == "" {
		apiBase = defaultGitHubAPI
	}
	return &GitHubService{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     endpoint,
		},
		apiBase:    apiBase,
		uiRedirect: cfg.UIRedirect,
		stateTTL:   5 * time.Minute,
		states:     &stateStore{store: store},
		users:      usersSvc,
		signer:     signer,
	}
}

// RegisterRoutes attaches GitHub auth routes.
func (s *GitHubService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/github/start", s.start)
	rg.GET("/auth/github/callback", s.callback)
}

func (s *GitHubService) configured() bool {
	return s.oauthConfig.ClientID != "" && s.oauthConfig.ClientSecret != "" && s.oauthConfig.RedirectURL != ""
}

func (s *GitHubService) start(c *gin.Context) {
	if !s.configured() {
		respond.Error(c, http.StatusInternalServerError, "auth_not_configured", "GitHub auth not configured", nil)
		return
	}

	state := uuid.NewString()
	if err := s.states.put(c.Request.Context(), state, s.stateTTL); err != nil {
		respond.Internal(c, fmt.Errorf("store oauth state: %w", err))
		return
	}
	c.Redirect(http.StatusFound, s.oauthConfig.AuthCodeURL(state))
}

func (s *GitHubService) callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing state or code", nil)
		return
	}

	ctx := c.Request.Context()
	ok, err := s.states.consume(ctx, state)
	if err != nil {
		respond.Internal(c, fmt.Errorf("read oauth state: %w", err))
		return
	}
	if !ok {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state", nil)
		return
	}

	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		telemetry.Warn("auth.github.exchange_failed", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusBadRequest, "invalid_request", "failed to exchange code", nil)
		return
	}

	profile, err := s.fetchProfile(ctx, token)
	if err != nil {
		telemetry.Warn("auth.github.profile_failed", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusBadGateway, "auth_failed", "failed to fetch user profile", nil)
		return
	}

	user, err := s.users.UpsertFromGitHub(ctx, profile)
	if err != nil {
		respond.Internal(c, fmt.Errorf("upsert github user: %w", err))
		return
	}

	jwt, err := s.signer.Sign(user.ID, user.Email, user.Name)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to issue token", nil)
		return
	}

	redirectURL, err := appendToken(s.uiRedirect, jwt)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to redirect", nil)
		return
	}
	telemetry.Info("auth.github.login", map[string]any{"user_id": user.ID, "login": profile.Login})
	c.Redirect(http.StatusFound, redirectURL)
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// fetchProfile loads /user and, when the public email is hidden, the primary
// verified address from /user/emails.
func (s *GitHubService) fetchProfile(ctx context.Context, token *oauth2.Token) (users.GitHubProfile, error) {
	client := s.oauthConfig.Client(ctx, token)

	var u githubUser
	if err := s.getJSON(ctx, client, "/user", &u); err != nil {
		return users.GitHubProfile{}, err
	}
	if u.Login == "" {
		return users.GitHubProfile{}, errors.New("github user has no login")
	}

	email := u.Email
	if email == "" {
		var emails []githubEmail
		if err := s.getJSON(ctx, client, "/user/emails", &emails); err != nil {
			return users.GitHubProfile{}, err
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				email = e.Email
				break
			}
		}
	}
	if email == "" {
		return users.GitHubProfile{}, errors.New("github account has no verified primary email")
	}

	return users.GitHubProfile{
		Login:     u.Login,
		Name:      u.Name,
		Email:     email,
		AvatarURL: u.AvatarURL,
	}, nil
}

func (s *GitHubService) getJSON(ctx context.Context, client *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiBase+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github %s status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// stateStore keeps single-use OAuth states in the shared cache.
type stateStore struct {
	store cache.Cache
}

func stateKey(state string) string { return "oauth_state:" + state }

func (s *stateStore) put(ctx context.Context, state string, ttl time.Duration) error {
	return s.store.Set(ctx, stateKey(state), []byte("1"), ttl)
}

func (s *stateStore) consume(ctx context.Context, state string) (bool, error) {
	key := stateKey(state)
	_, ok, err := s.store.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}

func appendToken(rawURL, token string) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
