package client

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/mrembo/urembo/core"
	"github.com/mrembo/urembo/core/user"
)

// overridable in tests
var (
	refreshInterval  = 5 * time.Minute
	userPollInterval = 10 * time.Second
)

const (
	// LoginPath is where unauthenticated visitors land.
	LoginPath = "/login"
	// HomePath is the standard user's home.
	HomePath = "/"
	// AdminPath is the admin panel's home.
	AdminPath = "/admin"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Session owns the authenticated user's lifecycle: login/logout, the
// timer-driven token refresh and the current-user poll. Both timers are
// torn down by Close.
type Session struct {
	client *Client
	logger core.Logger

	mu      sync.RWMutex
	current *user.User

	closeOnce sync.Once
	done      chan struct{}
}

func NewSession(client *Client, logger core.Logger) *Session {
	return &Session{
		client: client,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Login exchanges credentials for an access token, loads the user profile
// and returns the role-appropriate landing path.
func (s *Session) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{
		"username": {username},
		"password": {password},
	}
	var tokens tokenResponse
	if err := s.client.postForm(ctx, "/api/auth/login", form, &tokens); err != nil {
		return "", err
	}
	s.client.tokens.Set(tokens.AccessToken)

	usr, err := s.fetchUser(ctx)
	if err != nil {
		return "", err
	}
	if usr.IsAdmin() {
		return AdminPath, nil
	}
	return HomePath, nil
}

// Logout invalidates the session server-side and always clears the local
// token and cached user, even when the backend call fails.
func (s *Session) Logout(ctx context.Context) error {
	err := s.client.postJSON(ctx, "/api/auth/logout", nil, nil)

	s.client.tokens.Clear()
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	return err
}

// Refresh silently exchanges the refresh cookie for a new access token.
// Failure is non-fatal; the next protected call surfaces it.
func (s *Session) Refresh(ctx context.Context) error {
	var tokens tokenResponse
	if err := s.client.postForm(ctx, "/api/auth/refresh", url.Values{}, &tokens); err != nil {
		return err
	}
	s.client.tokens.Set(tokens.AccessToken)
	return nil
}

// CurrentUser returns the cached profile, fetching it first if needed.
// Without a token no request is attempted at all.
func (s *Session) CurrentUser(ctx context.Context) (user.User, error) {
	if s.client.tokens.Token() == "" {
		return user.User{}, errors.New("no session")
	}

	s.mu.RLock()
	cached := s.current
	s.mu.RUnlock()
	if cached != nil {
		return *cached, nil
	}
	return s.fetchUser(ctx)
}

func (s *Session) fetchUser(ctx context.Context) (user.User, error) {
	var usr user.User
	if err := s.client.getJSON(ctx, "/api/user/me", &usr); err != nil {
		s.mu.Lock()
		s.current = nil
		s.mu.Unlock()
		return user.User{}, err
	}
	s.mu.Lock()
	s.current = &usr
	s.mu.Unlock()
	return usr, nil
}

// Start launches the periodic token refresh and current-user poll. They
// run until Close is called or ctx is cancelled.
func (s *Session) Start(ctx context.Context) {
	go s.loop(ctx, refreshInterval, func() {
		if err := s.Refresh(ctx); err != nil {
			s.logger.Warn("token refresh failed", err)
		}
	})
	go s.loop(ctx, userPollInterval, func() {
		if _, err := s.fetchUser(ctx); err != nil {
			s.logger.Debug("current user poll failed", err)
		}
	})
}

func (s *Session) loop(ctx context.Context, interval time.Duration, tick func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			if s.client.tokens.Token() == "" {
				continue // nothing to refresh or poll
			}
			tick()
		}
	}
}

// Close tears down the timers. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Redirect applies the route guard to the requested path: unauthenticated
// visitors go to login, non-admins only reach the allow-listed paths.
func (s *Session) Redirect(ctx context.Context, path string) string {
	usr, err := s.CurrentUser(ctx)
	if err != nil {
		return LoginPath
	}
	if !usr.IsAdmin() && !allowedForNonAdmin(path) {
		return HomePath
	}
	return path
}

// allowedForNonAdmin admits the home view and a single lesson detail
// view; deeper lesson paths are not student routes.
func allowedForNonAdmin(path string) bool {
	if path == HomePath {
		return true
	}
	id := strings.TrimPrefix(path, "/lesson/")
	if id == path {
		return false
	}
	return id != "" && !strings.Contains(id, "/")
}
